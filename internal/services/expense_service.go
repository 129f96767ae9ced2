package services

import (
	"context"
	"log/slog"

	"tesoreria/internal/amqp"
	"tesoreria/internal/core"
	applog "tesoreria/internal/log"
	"tesoreria/internal/storage"
)

// ExpenseService manages operational expenses. Expenses are stored apart
// from transactions and start out pending until approved.
type ExpenseService struct {
	base
}

func NewExpenseService(store *storage.Store, opts ...Option) *ExpenseService {
	return &ExpenseService{base: newBase(store, opts)}
}

// CreateExpense saves an expense and publishes a created event
func (s *ExpenseService) CreateExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	var e core.Expense
	in.Apply(&e)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.CreatedAt = s.timestamp()
	e.UpdatedAt = e.CreatedAt

	created, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense saved",
		"expense_id", created.ID,
		"amount_cents", created.Amount.Cents,
		"category", created.Category,
		"status", string(created.Status))
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventCreated, amqp.EntityExpense, created.ID).WithAmount(created.Amount.Cents))
	return created, nil
}

func (s *ExpenseService) UpdateExpense(ctx context.Context, id int64, in core.ExpenseInput) (core.Expense, error) {
	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	in.Apply(&e)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.UpdatedAt = s.timestamp()

	updated, err := s.store.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense updated", "expense_id", id, "amount_cents", updated.Amount.Cents)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventUpdated, amqp.EntityExpense, id).WithAmount(updated.Amount.Cents))
	return updated, nil
}

// ApproveExpense settles a pending expense. Any other state is a conflict.
func (s *ExpenseService) ApproveExpense(ctx context.Context, id int64) (core.Expense, error) {
	e, ok, err := s.store.ApproveExpense(ctx, id, s.timestamp())
	if err != nil {
		return core.Expense{}, err
	}
	if !ok {
		return core.Expense{}, core.Conflictf("expense %d is %s, only pending expenses can be approved", id, e.Status)
	}

	slog.InfoContext(ctx, "Expense approved", "expense_id", id, applog.FieldOperation, applog.OpApprove, "amount_cents", e.Amount.Cents)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventApproved, amqp.EntityExpense, id).WithAmount(e.Amount.Cents))
	return e, nil
}

func (s *ExpenseService) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	return s.store.GetExpense(ctx, id)
}

// DeleteExpense removes an expense and publishes a delete event
func (s *ExpenseService) DeleteExpense(ctx context.Context, id int64) error {
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense deleted", "expense_id", id)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventDeleted, amqp.EntityExpense, id))
	return nil
}

func (s *ExpenseService) ListExpenses(ctx context.Context, f core.ExpenseFilter) (core.Page[core.Expense], error) {
	if f.Status != "" && !f.Status.Valid() {
		return core.Page[core.Expense]{}, core.Validationf("invalid status %q", f.Status)
	}
	f.PageRequest = f.PageRequest.Normalize()
	items, total, err := s.store.ListExpenses(ctx, f)
	if err != nil {
		return core.Page[core.Expense]{}, err
	}
	return core.NewPage(items, total, f.PageRequest), nil
}
