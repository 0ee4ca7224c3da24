package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/datasetops/shuttle/config"
	"github.com/datasetops/shuttle/engine"
	"github.com/datasetops/shuttle/provider"
	"github.com/datasetops/shuttle/store"
)

var (
	cfgPath   string
	logLevel  string
	globalCfg *config.Config
	logger    *slog.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shuttle",
		Short: "Move files from Google Drive into S3 with content dedup",
		Long: `shuttle transfers files from a Google Drive folder into an S3 bucket,
skipping content that was already transferred, attaching structured metadata,
and organizing destination keys as {rank}/{capture_date}/{filename}.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initLogger()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			globalCfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: ./shuttle.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newRunCmd())

	return cmd
}

func initLogger() {
	level := slog.LevelInfo
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// components bundles everything a command needs to run transfers.
type components struct {
	manager   *engine.JobManager
	scheduler *engine.Scheduler
	source    provider.Source
	index     store.Index
}

// buildComponents wires the source, destination, dedup index, and engine
// from the loaded configuration. The returned cleanup closes the index.
func buildComponents(ctx context.Context) (*components, func(), error) {
	cfg := globalCfg

	source, err := createSource(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	dest, err := createDestination(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(cfg.StateDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	index, err := store.NewBoltIndex(filepath.Join(cfg.StateDir, "dedup.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open dedup index: %w", err)
	}

	stagingDir := cfg.StagingDir
	if stagingDir == "" {
		stagingDir, err = os.MkdirTemp("", "shuttle-staging-")
	} else {
		err = os.MkdirAll(stagingDir, 0700)
	}
	if err != nil {
		index.Close()
		return nil, nil, fmt.Errorf("failed to prepare staging directory: %w", err)
	}

	policy := engine.RetryPolicy{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.MaxInterval,
	}

	manager := engine.NewJobManager(logger)
	worker := engine.NewTransferWorker(source, dest, index, stagingDir, policy, engine.NewBufferPool(0), logger)
	scheduler := engine.NewScheduler(ctx, manager, source, dest, worker, cfg.Streams, logger)

	cleanup := func() {
		if err := index.Close(); err != nil {
			logger.Warn("failed to close dedup index", "error", err)
		}
	}

	return &components{
		manager:   manager,
		scheduler: scheduler,
		source:    source,
		index:     index,
	}, cleanup, nil
}

func createSource(ctx context.Context, cfg *config.Config) (provider.Source, error) {
	if cfg.Source.LocalDir != "" {
		return provider.NewLocalSource(cfg.Source.LocalDir), nil
	}
	if cfg.Source.CredentialsFile == "" {
		return nil, fmt.Errorf("source.credentials_file (or source.local_dir) must be configured")
	}
	return provider.NewDriveSource(ctx, cfg.Source.CredentialsFile)
}

func createDestination(ctx context.Context, cfg *config.Config) (provider.Destination, error) {
	if cfg.S3.LocalDir != "" {
		if err := os.MkdirAll(cfg.S3.LocalDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create local destination: %w", err)
		}
		return provider.NewLocalDestination(cfg.S3.LocalDir), nil
	}
	return provider.NewS3Destination(ctx, provider.S3Options{
		Bucket:   cfg.S3.Bucket,
		Prefix:   cfg.S3.Prefix,
		Region:   cfg.S3.Region,
		Endpoint: cfg.S3.Endpoint,
	})
}
