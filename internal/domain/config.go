package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Cache       CacheConfig      `mapstructure:"cache"`
	Logging     LoggingConfig    `mapstructure:"logging"`
	Auth        AuthConfig       `mapstructure:"auth"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	AI          AIConfig         `mapstructure:"ai"`
	Assessment  AssessmentConfig `mapstructure:"assessment"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// CacheConfig represents history cache configuration
type CacheConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	RedisURL       string        `mapstructure:"redis_url"`
	DefaultTTL     time.Duration `mapstructure:"default_ttl"`
	MaxRetries     int           `mapstructure:"max_retries"`
	PoolSize       int           `mapstructure:"pool_size"`
	PoolTimeout    time.Duration `mapstructure:"pool_timeout"`
	MemoryMaxItems int           `mapstructure:"memory_max_items"`
	MemoryTTL      time.Duration `mapstructure:"memory_ttl"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig controls bearer-token validation. Tokens are issued by an external
// identity provider.
type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// RateLimitConfig represents per-owner request limits
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// AIConfig configures the LLM-backed scoring engine
type AIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RateLimit   float64       `mapstructure:"rate_limit"`
}

// Engine names accepted by AssessmentConfig.Engine
const (
	EngineDeterministic  = "deterministic"
	EngineAI             = "ai"
	EngineAIWithFallback = "ai_with_fallback"
)

// Missing chronological age policies
const (
	MissingAgeReject  = "reject"
	MissingAgeDefault = "default"
)

// AssessmentConfig controls the calculation pipeline
type AssessmentConfig struct {
	Engine           string `mapstructure:"engine"`
	ShadowCompare    bool   `mapstructure:"shadow_compare"`
	MissingAgePolicy string `mapstructure:"missing_age_policy"`
	DefaultAge       int    `mapstructure:"default_age"`
	StrictCatalog    bool   `mapstructure:"strict_catalog"`
	HistoryPageSize  int    `mapstructure:"history_page_size"`
}
