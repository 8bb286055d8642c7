package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/config"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/platform/postgres"
	"github.com/phrazzld/scry-classroom/internal/service/auth"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "scry-classroom",
		Short:        "Flashcard classroom server",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "path to a YAML config file (default ./config.yaml)")

	root.AddCommand(newServeCmd(), newMigrateCmd(), newSweepCmd(), newTokenCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and notification websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadAppConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := openApplication(ctx, cfg, log)
			if err != nil {
				return err
			}
			return app.Run(ctx)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [up|down|reset|status|version]",
		Short: "Apply or inspect database migrations",
		Args:  cobra.ExactArgs(1),
		ValidArgs: []string{
			postgres.MigrateUp,
			postgres.MigrateDown,
			postgres.MigrateReset,
			postgres.MigrateStatus,
			postgres.MigrateVersion,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadAppConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return fmt.Errorf("migrate requires database.url")
			}

			db, err := setupAppDatabase(cmd.Context(), cfg.Database, log)
			if err != nil {
				return err
			}
			defer db.Close()

			return postgres.Migrate(cmd.Context(), db, args[0], log)
		},
	}
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Deactivate expired grants once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadAppConfig(cmd)
			if err != nil {
				return err
			}
			app, err := openApplication(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer app.cleanup()

			n, err := app.distribution.SweepExpired(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deactivated %d expired grants\n", n)
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	var (
		userID string
		role   string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a bearer token for a user (development helper)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadAppConfig(cmd)
			if err != nil {
				return err
			}

			id := uuid.New()
			if userID != "" {
				if id, err = uuid.Parse(userID); err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
			}
			if !domain.Role(role).Valid() {
				return fmt.Errorf("invalid --role %q (expected teacher, student or admin)", role)
			}

			jwtService, err := auth.NewJWTService(cfg.Auth)
			if err != nil {
				return err
			}
			token, err := jwtService.GenerateToken(cmd.Context(), id, domain.Role(role))
			if err != nil {
				return err
			}
			log.Debug("token issued", slog.String("user_id", id.String()), slog.String("role", role))
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID (random when empty)")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleStudent), "teacher, student or admin")
	return cmd
}

// openApplication connects to the database when the postgres driver is
// configured and wires the application.
func openApplication(ctx context.Context, cfg *config.Config, log *slog.Logger) (*application, error) {
	if cfg.Store.Driver != "postgres" {
		return newApplication(cfg, log, nil)
	}

	db, err := setupAppDatabase(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	app, err := newApplication(cfg, log, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}
