package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/contrib/bridges/otelslog"

	cfgpkg "github.com/statline/statline/internal/config"
	"github.com/statline/statline/internal/orchestrator"
	otelsetup "github.com/statline/statline/internal/otel"
)

const name = "github.com/statline/statline"

func main() {
	if err := run(); err != nil {
		log.Fatalln(err)
	}
}

func run() (err error) {
	// Instance logger bridged to OTel.
	logger := otelslog.NewLogger(name)
	slog.SetDefault(logger)
	logger.Info("Starting statline")

	// Set up OpenTelemetry.
	otelShutdown, err := otelsetup.Setup(context.Background())
	if err != nil {
		return
	}

	defer func() { err = errors.Join(err, otelShutdown(context.Background())) }()

	// Config
	readFlags := cfgpkg.RegisterFlags()

	flag.Parse()

	cfg := readFlags()
	if err := cfg.Validate(); err != nil {
		return err
	}

	slog.Debug("Configuration loaded",
		slog.String("seedFile", cfg.SeedFile),
		slog.Int("count", cfg.Count),
		slog.Int("workers", cfg.Workers))

	orchestratorSvc, err := orchestrator.New(cfg, logger)
	if err != nil {
		return err
	}
	// Derive a context canceled on SIGINT/SIGTERM for graceful shutdown
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Run in a goroutine so we can handle signals
	runErr := make(chan error, 1)

	go func() { runErr <- orchestratorSvc.Run(sigCtx) }()

	select {
	case err := <-runErr:
		return errors.Join(err, orchestratorSvc.Close(context.Background()))
	case <-sigCtx.Done():
		slog.Info("Shutdown signal received; waiting for workers to stop")

		// Workers observe the canceled context between emissions; bound
		// the wait with the configured timeout.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
		defer cancel()

		select {
		case err := <-runErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return errors.Join(err, orchestratorSvc.Close(shutdownCtx))
			}
		case <-shutdownCtx.Done():
			slog.Warn("Graceful stop timed out")
		}

		return orchestratorSvc.Close(shutdownCtx)
	}
}
