package services

import (
	"context"
	"log/slog"

	"tesoreria/internal/amqp"
	"tesoreria/internal/core"
	applog "tesoreria/internal/log"
	"tesoreria/internal/storage"
)

// BudgetService owns budgets and the only path that moves spent forward:
// SpendFromBudget.
type BudgetService struct {
	base
	projects ProjectDirectory
	policy   core.StartPolicy
}

// NewBudgetService creates a budget service. An invalid policy falls back to
// StartPending.
func NewBudgetService(store *storage.Store, projects ProjectDirectory, policy core.StartPolicy, opts ...Option) *BudgetService {
	if !policy.Valid() {
		policy = core.StartPending
	}
	return &BudgetService{base: newBase(store, opts), projects: projects, policy: policy}
}

// CreateBudget stores a new budget with spent 0. The start policy decides
// between pending and active; an explicit status in the input is ignored.
func (s *BudgetService) CreateBudget(ctx context.Context, in core.BudgetInput) (core.Budget, error) {
	var b core.Budget
	in.Apply(&b)
	b.Status = s.policy.InitialStatus(b.StartDate, s.today())
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := s.checkProjects(ctx, b.ProjectIDs); err != nil {
		return core.Budget{}, err
	}
	b.CreatedAt = s.timestamp()
	b.UpdatedAt = b.CreatedAt

	var created core.Budget
	err := s.store.InTx(ctx, func(q *storage.Queries) error {
		var err error
		created, err = q.CreateBudget(ctx, b)
		return err
	})
	if err != nil {
		return core.Budget{}, err
	}

	slog.InfoContext(ctx, "Budget created",
		applog.FieldBudgetID, created.ID,
		applog.FieldCategory, created.Category,
		"allocated_cents", created.Allocated.Cents,
		"status", string(created.Status))
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventCreated, amqp.EntityBudget, created.ID).
		WithBudget(created.ID, created.Version).
		WithAmount(created.Allocated.Cents))
	return created, nil
}

// UpdateBudget rewrites the editable fields. Spent is never taken from the
// input, allocated may not drop below spent and status only moves forward.
func (s *BudgetService) UpdateBudget(ctx context.Context, id int64, in core.BudgetInput) (core.Budget, error) {
	var links core.Budget
	in.Apply(&links)
	if err := s.checkProjects(ctx, links.ProjectIDs); err != nil {
		return core.Budget{}, err
	}

	var updated core.Budget
	err := s.store.InTx(ctx, func(q *storage.Queries) error {
		existing, err := q.GetBudget(ctx, id)
		if err != nil {
			return err
		}

		b := existing
		in.Apply(&b)
		if err := b.Validate(); err != nil {
			return err
		}
		if !existing.Status.CanTransitionTo(b.Status) {
			return core.Validationf("budget status cannot change from %s to %s", existing.Status, b.Status)
		}
		if b.Allocated.Cents < b.Spent.Cents {
			return core.Validationf("allocated %s is below the amount already spent %s", b.Allocated, b.Spent)
		}

		b.UpdatedAt = s.timestamp()
		updated, err = q.UpdateBudget(ctx, b)
		return err
	})
	if err != nil {
		return core.Budget{}, err
	}

	slog.InfoContext(ctx, "Budget updated",
		applog.FieldBudgetID, id,
		"version", updated.Version,
		"status", string(updated.Status))
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventUpdated, amqp.EntityBudget, id).
		WithBudget(id, updated.Version).
		WithAmount(updated.Allocated.Cents))
	return updated, nil
}

func (s *BudgetService) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	return s.store.GetBudget(ctx, id)
}

func (s *BudgetService) ListBudgets(ctx context.Context, f core.BudgetFilter) (core.Page[core.Budget], error) {
	if f.Status != "" && !f.Status.Valid() {
		return core.Page[core.Budget]{}, core.Validationf("invalid budget status %q", f.Status)
	}
	f.PageRequest = f.PageRequest.Normalize()
	items, total, err := s.store.ListBudgets(ctx, f)
	if err != nil {
		return core.Page[core.Budget]{}, err
	}
	return core.NewPage(items, total, f.PageRequest), nil
}

// DeleteBudget removes a budget; its transactions stay with the link cleared.
func (s *BudgetService) DeleteBudget(ctx context.Context, id int64) error {
	err := s.store.InTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetBudget(ctx, id); err != nil {
			return err
		}
		return q.DeleteBudget(ctx, id)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Budget deleted", applog.FieldBudgetID, id)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventDeleted, amqp.EntityBudget, id))
	return nil
}

// SpendFromBudget records an outgoing transaction against a budget and moves
// its spent forward, all in one storage transaction. A pending budget whose
// start date has arrived is promoted first. A concurrent writer on the same
// budget makes this call fail with a ConflictError.
func (s *BudgetService) SpendFromBudget(ctx context.Context, id int64, in core.SpendInput) (core.SpendResult, error) {
	if err := in.Amount.Validate(); err != nil {
		return core.SpendResult{}, err
	}

	today := s.today()
	date := in.Date
	if date.IsZero() {
		date = today
	}

	var result core.SpendResult
	err := s.store.InTx(ctx, func(q *storage.Queries) error {
		b, err := q.GetBudget(ctx, id)
		if err != nil {
			return err
		}

		if b.Status == core.BudgetPending && !b.StartDate.After(today.Time) {
			b.Status = core.BudgetActive
			b.UpdatedAt = s.timestamp()
			if b, err = q.UpdateBudget(ctx, b); err != nil {
				return err
			}
			slog.InfoContext(ctx, "Budget promoted to active",
				applog.FieldBudgetID, id,
				applog.FieldOperation, applog.OpSpend)
		}

		if err := b.CheckSpend(in.Amount, in.Override); err != nil {
			return err
		}
		if in.Override && in.Amount.Cents > b.Remaining().Cents {
			slog.WarnContext(ctx, "Budget spend overrides remaining balance",
				applog.FieldBudgetID, id,
				applog.FieldAmountCents, in.Amount.Cents,
				"remaining_cents", b.Remaining().Cents)
		}

		description := in.Description
		if description == "" {
			description = b.SpendNote()
		}
		budgetID := b.ID
		t := core.Transaction{
			Type:            core.Outgoing,
			Category:        b.Category,
			Amount:          in.Amount,
			TransactionDate: date,
			Description:     description,
			Status:          core.StatusCompleted,
			BudgetID:        &budgetID,
			CreatedAt:       s.timestamp(),
		}
		t.UpdatedAt = t.CreatedAt
		if err := t.Validate(); err != nil {
			return err
		}

		if result.Transaction, err = q.CreateTransaction(ctx, t); err != nil {
			return err
		}
		result.Budget, err = q.AddBudgetSpent(ctx, b.ID, in.Amount, b.Version, t.CreatedAt)
		return err
	})
	if err != nil {
		slog.WarnContext(ctx, "Budget spend rejected",
			applog.FieldBudgetID, id,
			applog.FieldAmountCents, in.Amount.Cents,
			applog.FieldErrorKind, string(core.KindOf(err)),
			"error", err)
		return core.SpendResult{}, err
	}

	slog.InfoContext(ctx, "Budget spend recorded",
		applog.FieldBudgetID, id,
		"transaction_id", result.Transaction.ID,
		applog.FieldAmountCents, in.Amount.Cents,
		"remaining_cents", result.Budget.Remaining().Cents)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventSpent, amqp.EntityBudget, id).
		WithBudget(id, result.Budget.Version).
		WithAmount(in.Amount.Cents))
	return result, nil
}

// ReconcileBudget recomputes spent from the budget's linked transactions.
// The budget is only written when the stored value was off.
func (s *BudgetService) ReconcileBudget(ctx context.Context, id int64) (core.Reconciliation, error) {
	var (
		rec     core.Reconciliation
		version int64
	)
	err := s.store.InTx(ctx, func(q *storage.Queries) error {
		b, err := q.GetBudget(ctx, id)
		if err != nil {
			return err
		}
		sum, err := q.SumBudgetTransactions(ctx, id)
		if err != nil {
			return err
		}

		rec = core.Reconciliation{BudgetID: id, Before: b.Spent, After: sum, Changed: sum != b.Spent}
		version = b.Version
		if !rec.Changed {
			return nil
		}
		b.Spent = sum
		b.UpdatedAt = s.timestamp()
		updated, err := q.UpdateBudget(ctx, b)
		if err != nil {
			return err
		}
		version = updated.Version
		return nil
	})
	if err != nil {
		return core.Reconciliation{}, err
	}

	if !rec.Changed {
		slog.DebugContext(ctx, "Budget already reconciled", applog.FieldBudgetID, id)
		return rec, nil
	}
	slog.WarnContext(ctx, "Budget spent corrected",
		applog.FieldBudgetID, id,
		applog.FieldOperation, applog.OpReconcile,
		"before_cents", rec.Before.Cents,
		"after_cents", rec.After.Cents)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventReconciled, amqp.EntityBudget, id).
		WithBudget(id, version).
		WithAmount(rec.After.Cents))
	return rec, nil
}

// PromoteDue activates every pending budget whose start date has arrived and
// returns how many were promoted. A budget changed concurrently is skipped.
func (s *BudgetService) PromoteDue(ctx context.Context) (int, error) {
	today := s.today()
	due, err := s.store.ListPendingBudgetsStartingBy(ctx, today)
	if err != nil {
		return 0, err
	}

	promoted := 0
	for _, b := range due {
		if err := ctx.Err(); err != nil {
			return promoted, err
		}
		b.Status = core.BudgetActive
		b.UpdatedAt = s.timestamp()
		var updated core.Budget
		err := s.store.InTx(ctx, func(q *storage.Queries) error {
			var err error
			updated, err = q.UpdateBudget(ctx, b)
			return err
		})
		switch core.KindOf(err) {
		case core.KindConflict, core.KindNotFound:
			slog.DebugContext(ctx, "Skipping budget changed during promotion", applog.FieldBudgetID, b.ID, "error", err)
			continue
		}
		if err != nil {
			return promoted, err
		}
		promoted++
		s.publish(ctx, amqp.NewLedgerEvent(amqp.EventUpdated, amqp.EntityBudget, b.ID).WithBudget(b.ID, updated.Version))
	}

	if promoted > 0 {
		slog.InfoContext(ctx, "Promoted pending budgets",
			applog.FieldOperation, applog.OpPromote,
			"count", promoted,
			"day", today.String())
	}
	return promoted, nil
}

// checkProjects runs outside storage transactions: the directory may read
// through the store.
func (s *BudgetService) checkProjects(ctx context.Context, ids []int64) error {
	if s.projects == nil {
		return nil
	}
	for _, id := range ids {
		if _, err := resolveProject(ctx, s.projects, id); err != nil {
			return err
		}
	}
	return nil
}
