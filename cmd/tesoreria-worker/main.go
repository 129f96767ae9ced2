package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"tesoreria/internal/cli"
	applog "tesoreria/internal/log"
	"tesoreria/internal/worker"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Worker failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	cfg, logger, b, err := cli.Bootstrap(ctx, applog.ComponentWorker)
	if err != nil {
		return err
	}
	defer b.Close()

	logger.Info("Starting tesoreria-worker",
		"backend", cfg.DataBackend,
		"schedule", cfg.ReconcileSchedule)

	// Start sweeps once and then on the cron schedule
	if err := b.Reconciler.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if b.Events != nil {
		w := worker.NewEventWorker(b.Events, b.Reconciler)
		g.Go(func() error {
			err := w.Run(gctx)
			stats := w.Stats()
			logger.Info("Event consumer stopped",
				"processed", stats.Processed,
				"ignored", stats.Ignored,
				"failed", stats.Failed)
			return err
		})
	} else {
		logger.Warn("AMQP disabled - budgets are reconciled on schedule only")
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down worker...", applog.FieldOperation, applog.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return b.Reconciler.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Worker shutdown complete")
	return nil
}
