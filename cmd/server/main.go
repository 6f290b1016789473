package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gsblab/gsb-frais/internal/config"
	"github.com/gsblab/gsb-frais/internal/container"
	httpapi "github.com/gsblab/gsb-frais/internal/interfaces/http"
	"github.com/gsblab/gsb-frais/pkg/logging"
)

func main() {
	if err := newServerCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newServerCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "gsb-server",
		Short:         "Serve the GSB expense report API",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "configs/config.yaml", "path to the YAML configuration file")
	return cmd
}

func run(ctx context.Context, configPath string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Initialize logger
	logger, err := logging.New(logging.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("Starting GSB expense report service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		logger.Error("Failed to create container", zap.Error(err))
		return err
	}
	if err := c.Start(ctx); err != nil {
		logger.Error("Failed to start container", zap.Error(err))
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Container shutdown error", zap.Error(err))
		}
	}()

	services := c.Services()
	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxUploadBytes: cfg.Server.MaxUploadSize,
		MetricsPath:    cfg.Metrics.Path,
	}, httpapi.Services{
		Auth:           services.Auth,
		Reports:        services.Reports,
		Expenses:       services.Expenses,
		Directory:      services.Directory,
		Justifications: services.Justifications,
		Export:         services.Export,
	}, metricsCollector(c), c.ServiceLogger(), httpapi.WithHealth(healthFunc(c)))

	// Start blocks until a signal cancels ctx
	if err := server.Start(ctx); err != nil {
		logger.Error("HTTP server stopped with error", zap.Error(err))
		return err
	}

	logger.Info("Server exited successfully")
	return nil
}

// metricsCollector returns an untyped nil when metrics are disabled
// so the server skips the instrumentation.
func metricsCollector(c *container.Container) httpapi.MetricsCollector {
	if m := c.Metrics(); m != nil {
		return m
	}
	return nil
}

// healthFunc flattens the container health report for /health
func healthFunc(c *container.Container) httpapi.HealthFunc {
	return func() (bool, map[string]string) {
		status := c.Health()
		components := make(map[string]string, len(status.Components))
		for name, h := range status.Components {
			switch {
			case h.Healthy && h.Message == "":
				components[name] = "ok"
			case h.Healthy:
				components[name] = "ok: " + h.Message
			default:
				components[name] = h.Message
			}
		}
		return status.Overall, components
	}
}
