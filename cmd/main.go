package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dydqjadlsp/detailpage/internal/app"
	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
)

func main() {
	if err := app.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}
	log, err := app.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(log).ExecuteContext(ctx); err != nil {
		log.Error("Command failed", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

func newRootCmd(log *logger.Logger) *cobra.Command {
	serve := newServeCmd(log)
	root := &cobra.Command{
		Use:           "detailpage",
		Short:         "AI landing page generation service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.Flags().AddFlagSet(serve.Flags())
	root.AddCommand(serve, newMigrateCmd(log), newEnsureBucketCmd(log))
	return root
}

func newServeCmd(log *logger.Logger) *cobra.Command {
	var skipMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := app.LoadConfig(log)
			a, err := app.New(ctx, log, cfg, !skipMigrate)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())
			return a.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not auto-migrate the schema on startup")
	return cmd
}

func newMigrateCmd(log *logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.LoadConfig(log)
			pg, err := app.OpenPostgres(log, cfg, true)
			if err != nil {
				return err
			}
			defer pg.Close()
			log.Info("Migration complete")
			return nil
		},
	}
}

func newEnsureBucketCmd(log *logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-bucket",
		Short: "Create the image bucket if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := app.LoadConfig(log)
			bucket, err := app.OpenBucket(ctx, log, cfg)
			if err != nil {
				return err
			}
			if err := bucket.EnsureBucket(ctx); err != nil {
				return fmt.Errorf("ensure bucket %s: %w", bucket.BucketName(), err)
			}
			log.Info("Bucket ready", "bucket", bucket.BucketName())
			return nil
		},
	}
}
