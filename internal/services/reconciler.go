package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"tesoreria/internal/amqp"
	"tesoreria/internal/core"
	applog "tesoreria/internal/log"
)

// DefaultReconcileSchedule runs the sweep at the top of every hour.
const DefaultReconcileSchedule = "@hourly"

// SweepResult summarizes one reconciliation sweep.
type SweepResult struct {
	Promoted   int
	Checked    int
	Corrected  int
	Failed     int
	Reconciled []core.Reconciliation
}

// Reconciler keeps stored budget spent in line with linked transactions and
// activates pending budgets when their start date arrives. It runs on a cron
// schedule and on ledger events.
type Reconciler struct {
	budgets  *BudgetService
	schedule string

	// Lifecycle management
	mu      sync.Mutex
	running bool
	cron    *cron.Cron
}

// NewReconciler creates a reconciler. An empty schedule uses DefaultReconcileSchedule.
func NewReconciler(budgets *BudgetService, schedule string) *Reconciler {
	if schedule == "" {
		schedule = DefaultReconcileSchedule
	}
	return &Reconciler{budgets: budgets, schedule: schedule}
}

// Start runs one sweep and then schedules Sweep. Returns an error if already running.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("reconciler is already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(r.schedule, func() {
		if _, err := r.Sweep(ctx); err != nil {
			slog.ErrorContext(ctx, "Scheduled reconciliation failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", r.schedule, err)
	}

	// Sweep immediately on startup
	if _, err := r.Sweep(ctx); err != nil {
		slog.WarnContext(ctx, "Initial reconciliation failed", "error", err)
	}

	c.Start()
	r.cron = c
	r.running = true

	slog.InfoContext(ctx, "Reconciler started",
		applog.FieldComponent, applog.ComponentReconciler,
		"schedule", r.schedule)
	return nil
}

// Stop waits for a running sweep to finish or ctx to expire.
func (r *Reconciler) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	done := r.cron.Stop().Done()
	r.running = false
	r.mu.Unlock()

	select {
	case <-done:
		slog.InfoContext(ctx, "Reconciler stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Reconciler stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the schedule is active
func (r *Reconciler) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Sweep promotes due budgets and reconciles every budget. A failure on one
// budget is logged and counted, the sweep goes on.
func (r *Reconciler) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	promoted, err := r.budgets.PromoteDue(ctx)
	if err != nil {
		return res, fmt.Errorf("promote due budgets: %w", err)
	}
	res.Promoted = promoted

	ids, err := r.budgets.store.ListBudgetIDs(ctx)
	if err != nil {
		return res, fmt.Errorf("list budgets: %w", err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rec, err := r.budgets.ReconcileBudget(ctx, id)
		res.Checked++
		if errors.Is(err, core.ErrNotFound) {
			continue
		}
		if err != nil {
			res.Failed++
			slog.ErrorContext(ctx, "Budget reconciliation failed",
				applog.FieldBudgetID, id,
				applog.FieldErrorKind, string(core.KindOf(err)),
				"error", err)
			continue
		}
		if rec.Changed {
			res.Corrected++
			res.Reconciled = append(res.Reconciled, rec)
		}
	}

	slog.InfoContext(ctx, "Reconciliation sweep finished",
		applog.FieldOperation, applog.OpReconcile,
		"promoted", res.Promoted,
		"checked", res.Checked,
		"corrected", res.Corrected,
		"failed", res.Failed)
	return res, nil
}

// HandleEvent reconciles the budget an event refers to. Events the
// reconciler publishes itself are ignored, as are budgets deleted since.
func (r *Reconciler) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	if ev.BudgetID == nil || ev.Type == amqp.EventReconciled || (ev.Type == amqp.EventDeleted && ev.Entity == amqp.EntityBudget) {
		return nil
	}

	_, err := r.budgets.ReconcileBudget(ctx, *ev.BudgetID)
	if errors.Is(err, core.ErrNotFound) {
		slog.DebugContext(ctx, "Budget gone, skipping event",
			applog.FieldBudgetID, *ev.BudgetID,
			applog.FieldEventID, ev.ID)
		return nil
	}
	return err
}
