package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/datasetops/shuttle/server"
)

var serveListen string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP transfer service",
		Long: `Start the HTTP service exposing the job control surface: POST /transfer
starts a job, GET /status/{job_id} and GET /jobs report progress, and the
/folders endpoints browse the source repository.`,
		Example: `  shuttle serve
  shuttle serve --listen 127.0.0.1:9000`,
		RunE: serveRun,
	}

	cmd.Flags().StringVar(&serveListen, "listen", "", "address to listen on (overrides config)")

	return cmd
}

func serveRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	comps, cleanup, err := buildComponents(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	listen := serveListen
	if listen == "" {
		listen = globalCfg.Listen
	}

	srv := server.New(comps.manager, comps.scheduler, comps.source, logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(listen)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
