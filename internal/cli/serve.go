package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	apphttp "tesoreria/internal/http"
	applog "tesoreria/internal/log"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand() *cobra.Command {
	var withReconciler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), withReconciler)
		},
	}

	cmd.Flags().BoolVar(&withReconciler, "with-reconciler", false, "also run the scheduled reconciliation in this process")

	return cmd
}

func runServe(ctx context.Context, withReconciler bool) error {
	ctx, stop := SignalContext(ctx)
	defer stop()

	cfg, logger, b, err := Bootstrap(ctx, applog.ComponentHTTP)
	if err != nil {
		return err
	}
	defer b.Close()

	if withReconciler {
		if err := b.Reconciler.Start(ctx); err != nil {
			return fmt.Errorf("start reconciler: %w", err)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Accounts:        b.Accounts,
		Transactions:    b.Transactions,
		Expenses:        b.Expenses,
		Projects:        b.Projects,
		ProjectExpenses: b.ProjectExpenses,
		Budgets:         b.Budgets,
		Statistics:      b.Statistics,
	}, apphttp.Options{
		RequestsPerMinute: cfg.RateLimitPerMinute,
		Logger:            logger,
		TrustedProxies:    cfg.TrustedProxies,
		Ready:             b.Store,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting tesoreria server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"events_enabled", b.Events != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	if withReconciler {
		if err := b.Reconciler.Stop(shutdownCtx); err != nil {
			logger.Warn("Reconciler stop error", "error", err)
		}
	}
	logger.Info("Server stopped gracefully")
	return nil
}
