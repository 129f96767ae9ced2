package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tesoreria/internal/amqp"
	"tesoreria/internal/core"
	"tesoreria/internal/storage"
)

// TransactionService records incoming and outgoing money movements.
type TransactionService struct {
	base
}

func NewTransactionService(store *storage.Store, opts ...Option) *TransactionService {
	return &TransactionService{base: newBase(store, opts)}
}

// CreateTransaction validates and stores a transaction. Incoming
// transactions need an active account, whose lastUsed is stamped in the same
// storage transaction; outgoing ones never keep an account.
func (s *TransactionService) CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	var t core.Transaction
	in.Apply(&t)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t.CreatedAt = s.timestamp()
	t.UpdatedAt = t.CreatedAt

	var created core.Transaction
	err := s.store.InTx(ctx, func(q *storage.Queries) error {
		if t.Type == core.Incoming {
			if err := requireActiveAccount(ctx, q, *t.AccountID); err != nil {
				return err
			}
			if err := q.TouchAccount(ctx, *t.AccountID, t.CreatedAt); err != nil {
				return err
			}
		}
		var err error
		created, err = q.CreateTransaction(ctx, t)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction created",
		"transaction_id", created.ID,
		"type", string(created.Type),
		"amount_cents", created.Amount.Cents,
		"category", created.Category)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventCreated, amqp.EntityTransaction, created.ID).
		WithAmount(created.Amount.Cents))
	return created, nil
}

// UpdateTransaction re-validates and rewrites a transaction. When the
// transaction was produced by a budget spend, the budget's spent moves by the
// same delta under the budget's version guard.
func (s *TransactionService) UpdateTransaction(ctx context.Context, id int64, in core.TransactionInput) (core.Transaction, error) {
	var (
		updated core.Transaction
		budget  *core.Budget
	)
	err := s.store.InTx(ctx, func(q *storage.Queries) error {
		existing, err := q.GetTransaction(ctx, id)
		if err != nil {
			return err
		}

		t := existing
		in.Apply(&t)
		if err := t.Validate(); err != nil {
			return err
		}
		if t.Type == core.Incoming {
			// Deactivated accounts keep their past transactions.
			moved := existing.Type != core.Incoming || existing.AccountID == nil || *existing.AccountID != *t.AccountID
			if moved {
				if err := requireActiveAccount(ctx, q, *t.AccountID); err != nil {
					return err
				}
			} else if _, err := q.GetAccount(ctx, *t.AccountID); err != nil {
				return err
			}
		}

		if existing.BudgetID != nil {
			if t.Type == core.Incoming {
				return core.Validationf("transaction %d was spent from a budget and must stay outgoing", id)
			}
			delta := budgetWeight(t).Sub(budgetWeight(existing))
			if !delta.IsZero() {
				budget, err = moveBudgetSpent(ctx, q, *existing.BudgetID, delta, s.timestamp())
				if err != nil {
					return err
				}
			}
		}

		t.UpdatedAt = s.timestamp()
		updated, err = q.UpdateTransaction(ctx, t)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction updated", "transaction_id", id, "amount_cents", updated.Amount.Cents)
	event := amqp.NewLedgerEvent(amqp.EventUpdated, amqp.EntityTransaction, id).WithAmount(updated.Amount.Cents)
	if budget != nil {
		event.WithBudget(budget.ID, budget.Version)
	}
	s.publish(ctx, event)
	return updated, nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// DeleteTransaction hard-deletes a transaction. A budget spend is reversed
// in the same storage transaction.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id int64) error {
	var deleted core.Transaction
	var budget *core.Budget
	err := s.store.InTx(ctx, func(q *storage.Queries) error {
		var err error
		deleted, err = q.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if deleted.BudgetID != nil {
			if w := budgetWeight(deleted); !w.IsZero() {
				budget, err = moveBudgetSpent(ctx, q, *deleted.BudgetID, core.Cents(-w.Cents), s.timestamp())
				if err != nil {
					return err
				}
			}
		}
		return q.DeleteTransaction(ctx, id)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transaction deleted", "transaction_id", id, "amount_cents", deleted.Amount.Cents)
	event := amqp.NewLedgerEvent(amqp.EventDeleted, amqp.EntityTransaction, id).WithAmount(deleted.Amount.Cents)
	if budget != nil {
		event.WithBudget(budget.ID, budget.Version)
	}
	s.publish(ctx, event)
	return nil
}

func (s *TransactionService) ListTransactions(ctx context.Context, f core.TransactionFilter) (core.Page[core.Transaction], error) {
	if f.Type != "" && !f.Type.Valid() {
		return core.Page[core.Transaction]{}, core.Validationf("invalid transaction type %q", f.Type)
	}
	if f.Status != "" && !f.Status.Valid() {
		return core.Page[core.Transaction]{}, core.Validationf("invalid status %q", f.Status)
	}
	f.PageRequest = f.PageRequest.Normalize()
	items, total, err := s.store.ListTransactions(ctx, f)
	if err != nil {
		return core.Page[core.Transaction]{}, err
	}
	return core.NewPage(items, total, f.PageRequest), nil
}

func requireActiveAccount(ctx context.Context, q *storage.Queries, id int64) error {
	a, err := q.GetAccount(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Validationf("account %d does not exist", id)
	}
	if err != nil {
		return err
	}
	if !a.IsActive {
		return core.Validationf("account %d is inactive", id)
	}
	return nil
}

// budgetWeight is what a linked transaction contributes to its budget's spent.
func budgetWeight(t core.Transaction) core.Money {
	if t.Status == core.StatusFailed {
		return core.Money{}
	}
	return t.Amount
}

// moveBudgetSpent applies delta to a budget's spent. Increases must fit the
// remaining balance; decreases never take spent below zero.
// A nil budget means the link is stale.
func moveBudgetSpent(ctx context.Context, q *storage.Queries, budgetID int64, delta core.Money, at time.Time) (*core.Budget, error) {
	b, err := q.GetBudget(ctx, budgetID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if delta.Cents > 0 && delta.Cents > b.Remaining().Cents {
		return nil, core.InsufficientBudget(delta, b.Remaining())
	}
	if delta.Cents < 0 && -delta.Cents > b.Spent.Cents {
		slog.WarnContext(ctx, "Budget spent lower than linked amount, clamping",
			"budget_id", budgetID,
			"spent_cents", b.Spent.Cents,
			"delta_cents", delta.Cents)
		delta = core.Cents(-b.Spent.Cents)
	}
	updated, err := q.AddBudgetSpent(ctx, budgetID, delta, b.Version, at)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
