package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/app"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/config"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/identity"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/logger"
)

var envFile string

func main() {
	// Create a context that is canceled on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "storefront",
		Short:        "Storefront session service: wishlist, compare and browsing history",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment, if present")

	root.AddCommand(newServeCmd(), newMigrateCmd(), newSeedCmd(), newTokenCmd())
	return root
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(config.ServiceName, cfg.LogLevel)
	slog.SetDefault(log)
	return cfg, log, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			log.Info("starting storefront service",
				slog.String("environment", cfg.Environment),
				slog.Int("http_port", cfg.HTTPPort),
				slog.String("history_write_mode", cfg.HistoryWriteMode),
			)

			application, err := app.NewApp(cmd.Context(), cfg, log)
			if err != nil {
				log.Error("failed to initialize application", slog.String("error", err.Error()))
				return err
			}

			// Run the application. This blocks until shutdown.
			if err := application.Run(cmd.Context()); err != nil {
				log.Error("application error", slog.String("error", err.Error()))
				return err
			}

			log.Info("storefront service stopped")
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			return app.Migrate(cmd.Context(), cfg, log)
		},
	}
}

func newSeedCmd() *cobra.Command {
	var (
		count   int
		rngSeed uint64
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a deterministic demo catalog into the products table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1, got %d", count)
			}
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			n, err := app.Seed(cmd.Context(), cfg, log, count, rngSeed)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products\n", n)
			return err
		},
	}
	cmd.Flags().IntVar(&count, "count", 1000, "number of products to generate")
	cmd.Flags().Uint64Var(&rngSeed, "seed", 42, "generator seed; the same seed yields the same catalog")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var email, role string

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue an access token signed with JWT_SECRET, for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			token, err := identity.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTokenTTL).Issue(args[0], email, role)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&role, "role", "customer", "role claim")
	return cmd
}
