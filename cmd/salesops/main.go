package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ggitteam/salesops/internal/api"
	"github.com/ggitteam/salesops/internal/config"
	"github.com/ggitteam/salesops/internal/database"
	"github.com/ggitteam/salesops/internal/genealogy"
	"github.com/ggitteam/salesops/internal/logging"
	"github.com/ggitteam/salesops/internal/repository"
	"github.com/ggitteam/salesops/internal/s3storage"
	"github.com/ggitteam/salesops/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Setup()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "salesops: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "salesops",
		Short: "Sales operations toolkit",
		Long: `salesops ingests spreadsheet sales exports, normalizes them into canonical
transaction rows, persists them to Postgres and serves the filtered table,
summary card and dashboard views plus the legacy upline/downline reports.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newServeCmd(),
		newWorkerCmd(),
		newImportCmd(),
		newPreviewCmd(),
		newRowsCmd(),
		newExportCmd(),
		newUplineCmd(),
		newDownlineCmd(),
	)
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			pool, err := database.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()
			if err := database.EnsureSchema(ctx, pool); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}
			repo := repository.NewSalesRepository(pool)

			store, err := s3storage.New(cfg)
			if err != nil {
				return fmt.Errorf("init storage: %w", err)
			}
			if err := store.EnsureBucket(ctx); err != nil {
				return fmt.Errorf("ensure bucket: %w", err)
			}

			queueClient := asynq.NewClient(asynq.RedisClientOpt{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			defer queueClient.Close()

			gen := genealogy.NewClient(cfg.GenealogyBaseURL, cfg.GenealogyUser, cfg.GenealogyTimeout)

			srv := api.New(cfg, repo, store, queueClient, gen)
			return srv.Run(ctx)
		},
	}
}

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the import worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			pool, err := database.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()
			if err := database.EnsureSchema(ctx, pool); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}
			repo := repository.NewSalesRepository(pool)

			store, err := s3storage.New(cfg)
			if err != nil {
				return fmt.Errorf("init storage: %w", err)
			}
			if err := store.EnsureBucket(ctx); err != nil {
				return fmt.Errorf("ensure bucket: %w", err)
			}

			server := asynq.NewServer(asynq.RedisClientOpt{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			}, asynq.Config{
				Concurrency: cfg.Workers,
			})
			processor := worker.NewProcessor(repo, store)

			go func() {
				<-ctx.Done()
				server.Shutdown()
			}()

			log.Info().Int("concurrency", cfg.Workers).Msg("Worker running")
			return server.Run(processor.Handler())
		},
	}
}
