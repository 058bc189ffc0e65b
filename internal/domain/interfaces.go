package domain

import (
	"context"
)

// ScoringEngine turns one assessment input into a complete result. The local
// deterministic engine is the baseline; other implementations (for example an
// LLM-backed one) are interchangeable behind this interface.
type ScoringEngine interface {
	Name() string
	Score(ctx context.Context, input AssessmentInput) (*AssessmentResult, error)
}

// ProfileRepository persists owner profiles
type ProfileRepository interface {
	Upsert(ctx context.Context, profile *Profile) error
	GetByID(ctx context.Context, id string) (*Profile, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetDatabaseURL() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
