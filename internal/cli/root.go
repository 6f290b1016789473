// Package cli implements gsbctl, the administration tool for the expense
// report database: migrations, passwords, month closing and exports.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gsblab/gsb-frais/internal/config"
	"github.com/gsblab/gsb-frais/internal/container"
	"github.com/gsblab/gsb-frais/pkg/logging"
)

// Actor attributes lifecycle events raised from the command line
const Actor = "gsbctl"

type options struct {
	configPath string
	verbose    bool
}

// NewRootCommand builds the gsbctl command tree
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "gsbctl",
		Short:         "Administer the GSB expense report database",
		Long:          "Maintenance commands for the GSB expense report service, working directly on its SQLite database.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "configs/config.yaml", "Configuration file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")

	root.AddCommand(
		newMigrateCommand(opts),
		newHashPasswordCommand(),
		newSetPasswordCommand(opts),
		newNextMonthCommand(),
		newCloseMonthCommand(opts),
		newExportCommand(opts),
	)
	return root
}

// Execute runs gsbctl with the process arguments
func Execute() error {
	return NewRootCommand().Execute()
}

func (o *options) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}

	if !o.verbose {
		return cfg, zap.NewNop(), nil
	}
	logger, err := logging.New(logging.Config{Level: cfg.Logger.Level, OutputPath: "stderr", Format: "console"})
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// openContainer starts the application without its background workers or metrics
func (o *options) openContainer(ctx context.Context) (*container.Container, error) {
	cfg, logger, err := o.load()
	if err != nil {
		return nil, err
	}

	cc := cfg.ToContainerConfig()
	cc.Worker.CloseEnabled = false
	cc.Metrics.Enabled = false

	c, err := container.NewContainer(cc, logger)
	if err != nil {
		return nil, err
	}
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	return c, nil
}
