package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"tesoreria/internal/amqp"
	"tesoreria/internal/core"
	applog "tesoreria/internal/log"
	"tesoreria/internal/services"
)

// EventSource delivers ledger events until ctx is done. *amqp.Client implements it.
type EventSource interface {
	Consume(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error
}

// BudgetReconciler is the part of services.Reconciler the worker drives.
type BudgetReconciler interface {
	HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error
	Sweep(ctx context.Context) (services.SweepResult, error)
}

// Stats counts handled events since start.
type Stats struct {
	Processed int64
	Ignored   int64
	Failed    int64
}

// EventWorker reconciles budgets touched by ledger events. It is the
// consumer side of the events the services publish after each write.
type EventWorker struct {
	source     EventSource
	reconciler BudgetReconciler

	processed int64
	ignored   int64
	failed    int64
}

func NewEventWorker(source EventSource, reconciler BudgetReconciler) *EventWorker {
	return &EventWorker{source: source, reconciler: reconciler}
}

// HandleLedgerEvent processes a single ledger event from AMQP. Events that do
// not touch a budget are acknowledged without work.
func (w *EventWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	if ev.BudgetID == nil {
		atomic.AddInt64(&w.ignored, 1)
		slog.DebugContext(ctx, "Ledger event without budget, skipping",
			applog.FieldEventID, ev.ID,
			"routing_key", ev.RoutingKey())
		return nil
	}

	start := time.Now()
	slog.InfoContext(ctx, "Processing ledger event",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldEventID, ev.ID,
		applog.FieldBudgetID, *ev.BudgetID,
		"routing_key", ev.RoutingKey(),
		"version", ev.Version)

	if err := w.reconciler.HandleEvent(ctx, ev); err != nil {
		atomic.AddInt64(&w.failed, 1)
		// Validation failures will not succeed on redelivery
		if errors.Is(err, core.ErrValidation) {
			slog.ErrorContext(ctx, "Dropping ledger event",
				applog.FieldEventID, ev.ID,
				applog.FieldErrorKind, string(core.KindOf(err)),
				"error", err)
			return nil
		}
		return fmt.Errorf("reconcile budget %d: %w", *ev.BudgetID, err)
	}

	atomic.AddInt64(&w.processed, 1)
	slog.DebugContext(ctx, "Ledger event processed",
		applog.FieldEventID, ev.ID,
		applog.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// StartupCheck reconciles every budget once, covering events missed while
// the worker was down.
func (w *EventWorker) StartupCheck(ctx context.Context) error {
	res, err := w.reconciler.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("startup reconciliation: %w", err)
	}
	slog.InfoContext(ctx, "Startup reconciliation completed",
		applog.FieldOperation, applog.OpStartup,
		"promoted", res.Promoted,
		"checked", res.Checked,
		"corrected", res.Corrected,
		"errors", res.Failed)
	return nil
}

// Run consumes events until ctx is cancelled. A cancelled context is not an error.
func (w *EventWorker) Run(ctx context.Context) error {
	err := w.source.Consume(ctx, w.HandleLedgerEvent)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume ledger events: %w", err)
	}
	return nil
}

// Stats returns the event counters.
func (w *EventWorker) Stats() Stats {
	return Stats{
		Processed: atomic.LoadInt64(&w.processed),
		Ignored:   atomic.LoadInt64(&w.ignored),
		Failed:    atomic.LoadInt64(&w.failed),
	}
}
