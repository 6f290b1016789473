// Package container provides dependency injection and lifecycle management
// for the expense report service.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Authentication configuration
	Auth AuthConfig

	// Storage configuration
	Storage StorageConfig

	// Server configuration
	Server ServerConfig

	// Metrics configuration
	Metrics MetricsConfig

	// Worker configuration
	Worker WorkerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// AutoMigrate applies the embedded migrations on start
	AutoMigrate bool
}

// AuthConfig holds password hashing and token settings.
type AuthConfig struct {
	JWTSecret  string
	JWTIssuer  string
	TokenTTL   time.Duration
	BcryptCost int
}

// StorageConfig holds file storage settings.
type StorageConfig struct {
	// JustificationDir is the base directory for uploaded receipts
	JustificationDir string

	// MaxPDFPages rejects uploads with more pages than this
	MaxPDFPages int
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host          string
	Port          int
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	MaxUploadSize int64
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	CloseEnabled  bool
	CloseInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
// JWTSecret has no default and must be provided.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:         "data/gsb.db",
			MaxOpenConns: 1,
			MaxIdleConns: 1,
			AutoMigrate:  true,
		},
		Auth: AuthConfig{
			JWTIssuer:  "gsb-frais",
			TokenTTL:   8 * time.Hour,
			BcryptCost: 10,
		},
		Storage: StorageConfig{
			JustificationDir: "data/justificatifs",
			MaxPDFPages:      50,
		},
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          8080,
			ReadTimeout:   30 * time.Second,
			WriteTimeout:  30 * time.Second,
			MaxUploadSize: 10 << 20,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Worker: WorkerConfig{
			CloseEnabled:  true,
			CloseInterval: time.Hour,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}

	if c.Storage.JustificationDir == "" {
		return fmt.Errorf("storage.justification_dir is required")
	}

	if c.Worker.CloseEnabled && c.Worker.CloseInterval <= 0 {
		return fmt.Errorf("worker.close_interval must be positive")
	}

	return nil
}
