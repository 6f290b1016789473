package config

import (
	"github.com/gsblab/gsb-frais/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This is the bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			AutoMigrate:     c.Database.AutoMigrate,
		},
		Auth: container.AuthConfig{
			JWTSecret:  c.Auth.JWTSecret,
			JWTIssuer:  c.Auth.JWTIssuer,
			TokenTTL:   c.Auth.TokenTTL,
			BcryptCost: c.Auth.BcryptCost,
		},
		Storage: container.StorageConfig{
			JustificationDir: c.Storage.JustificationDir,
			MaxPDFPages:      c.Storage.MaxPDFPages,
		},
		Server: container.ServerConfig{
			Host:          c.Server.Host,
			Port:          c.Server.Port,
			ReadTimeout:   c.Server.ReadTimeout,
			WriteTimeout:  c.Server.WriteTimeout,
			MaxUploadSize: c.Server.MaxUploadSize,
		},
		Metrics: container.MetricsConfig{
			Enabled: c.Metrics.Enabled,
			Path:    c.Metrics.Path,
		},
		Worker: container.WorkerConfig{
			CloseEnabled:  c.Worker.CloseEnabled,
			CloseInterval: c.Worker.CloseInterval,
		},
	}
}
