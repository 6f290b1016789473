package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gsblab/gsb-frais/internal/domain/entity"
	"github.com/gsblab/gsb-frais/internal/domain/period"
	"github.com/gsblab/gsb-frais/internal/infrastructure/security"
	"github.com/gsblab/gsb-frais/migrations"
	"github.com/gsblab/gsb-frais/pkg/database"
)

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}

			db, err := database.New(database.Config{Path: cfg.Database.Path}, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := database.NewMigrator(db, logger).Run(migrations.FS)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d migration(s) applied to %s\n", applied, cfg.Database.Path)
			return nil
		},
	}
}

func newHashPasswordCommand() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash of a password, read from stdin when omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := passwordArg(cmd, args)
			if err != nil {
				return err
			}

			hash, err := security.NewBcryptHasher(cost).Hash(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", security.DefaultBcryptCost, "bcrypt cost")
	return cmd
}

func newSetPasswordCommand(opts *options) *cobra.Command {
	var role, login string

	cmd := &cobra.Command{
		Use:   "set-password [password]",
		Short: "Replace the stored password of a visitor or accountant",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := passwordArg(cmd, args)
			if err != nil {
				return err
			}

			c, err := opts.openContainer(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Services().Auth.SetPassword(cmd.Context(), role, login, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %s %s\n", role, login)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", entity.RoleVisitor, "visiteur or comptable")
	cmd.Flags().StringVar(&login, "login", "", "Account login")
	cmd.MarkFlagRequired("login")
	return cmd
}

func newNextMonthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "next-month [YYYYMM]",
		Short: "Print the month following YYYYMM, or the current month when omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), period.FromTime(time.Now()))
				return nil
			}
			next, err := period.NextMonth(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), next)
			return nil
		},
	}
}

func newCloseMonthCommand(opts *options) *cobra.Command {
	var before string

	cmd := &cobra.Command{
		Use:   "close-month",
		Short: "Close every open report of a month earlier than --before",
		RunE: func(cmd *cobra.Command, args []string) error {
			if before == "" {
				before = period.FromTime(time.Now()).String()
			}

			c, err := opts.openContainer(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			closed, err := c.Services().Reports.CloseMonthsBefore(cmd.Context(), before, Actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d report(s) closed before %s\n", closed, before)
			return nil
		},
	}
	cmd.Flags().StringVar(&before, "before", "", "Month YYYYMM, defaults to the current month")
	return cmd
}

func newExportCommand(opts *options) *cobra.Command {
	var visitorID, month, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a report as an Excel sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = fmt.Sprintf("fiche_%s_%s.xlsx", visitorID, month)
			}

			c, err := opts.openContainer(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			file, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := c.Services().Export.Export(cmd.Context(), visitorID, month, file); err != nil {
				file.Close()
				os.Remove(out)
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report %s/%s written to %s\n", visitorID, month, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&visitorID, "visitor", "", "Visitor id")
	cmd.Flags().StringVar(&month, "month", "", "Month YYYYMM")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file")
	cmd.MarkFlagRequired("visitor")
	cmd.MarkFlagRequired("month")
	return cmd
}

func passwordArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("password is required")
	}
	return password, nil
}
