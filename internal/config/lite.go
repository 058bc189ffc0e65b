// Package config provides configuration management for the scoring service.
// This file contains the lightweight configuration for standalone operation.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bioage-mcp-server/internal/domain"
)

// LiteConfig is a simplified configuration for standalone operation (the stdio
// MCP server and the CLI). It needs no external services: history lives in a
// local SQLite file and the cache is in memory.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for data files

	// Cache settings
	CacheMaxItems int           // Maximum owners in memory cache
	CacheTTL      time.Duration // Cache entry TTL

	// Assessment settings
	OwnerID          string // Owner recorded on assessments made through this process
	MissingAgePolicy string // reject or default
	DefaultAge       int    // Age used by the default policy
	StrictCatalog    bool   // Reject observations of undefined metrics

	// Optional AI engine
	Engine   string // deterministic, ai, ai_with_fallback
	AIAPIKey string
	AIModel  string

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".bioage")

	return &LiteConfig{
		DataDir:          dataDir,
		CacheMaxItems:    1000,
		CacheTTL:         10 * time.Minute,
		OwnerID:          "local",
		MissingAgePolicy: domain.MissingAgeReject,
		DefaultAge:       30,
		Engine:           domain.EngineDeterministic,
		AIModel:          "gpt-4o-mini",
		LogLevel:         "info",
		LogFormat:        "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("BIOAGE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	if v := os.Getenv("BIOAGE_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("BIOAGE_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	if v := os.Getenv("BIOAGE_OWNER_ID"); v != "" {
		cfg.OwnerID = v
	}
	if v := os.Getenv("BIOAGE_MISSING_AGE_POLICY"); v == domain.MissingAgeReject || v == domain.MissingAgeDefault {
		cfg.MissingAgePolicy = v
	}
	if v := os.Getenv("BIOAGE_DEFAULT_AGE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DefaultAge = n
		}
	}
	if v := os.Getenv("BIOAGE_STRICT_CATALOG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.StrictCatalog = b
		}
	}

	if v := os.Getenv("BIOAGE_ENGINE"); v != "" {
		cfg.Engine = v
	}
	cfg.AIAPIKey = os.Getenv("OPENAI_API_KEY")
	if v := os.Getenv("BIOAGE_AI_MODEL"); v != "" {
		cfg.AIModel = v
	}

	if v := os.Getenv("BIOAGE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("BIOAGE_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// HistoryDBPath returns the path to the assessment history SQLite database.
func (c *LiteConfig) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}

// LoggingConfig returns the logging section in the shape the logger expects.
func (c *LiteConfig) LoggingConfig() domain.LoggingConfig {
	return domain.LoggingConfig{Level: c.LogLevel, Format: c.LogFormat}
}

// AssessmentConfig maps the lite settings onto the full assessment section.
func (c *LiteConfig) AssessmentConfig() domain.AssessmentConfig {
	return domain.AssessmentConfig{
		Engine:           c.Engine,
		MissingAgePolicy: c.MissingAgePolicy,
		DefaultAge:       c.DefaultAge,
		StrictCatalog:    c.StrictCatalog,
		HistoryPageSize:  20,
	}
}

// AIConfig maps the lite settings onto the AI engine section.
func (c *LiteConfig) AIConfig() domain.AIConfig {
	return domain.AIConfig{
		APIKey:      c.AIAPIKey,
		Model:       c.AIModel,
		Temperature: 0.2,
		Timeout:     30 * time.Second,
		RateLimit:   2,
	}
}
