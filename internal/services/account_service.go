package services

import (
	"context"
	"log/slog"

	"tesoreria/internal/amqp"
	"tesoreria/internal/core"
	applog "tesoreria/internal/log"
	"tesoreria/internal/storage"
)

// AccountService manages the accounts incoming money settles into.
type AccountService struct {
	base
}

func NewAccountService(store *storage.Store, opts ...Option) *AccountService {
	return &AccountService{base: newBase(store, opts)}
}

// CreateAccount registers an account. New accounts are active unless the input says otherwise.
func (s *AccountService) CreateAccount(ctx context.Context, in core.AccountInput) (core.Account, error) {
	a := core.Account{IsActive: true}
	in.Apply(&a)
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	a.CreatedAt = s.timestamp()
	a.UpdatedAt = a.CreatedAt

	created, err := s.store.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, err
	}

	slog.InfoContext(ctx, "Account created", applog.FieldAccountID, created.ID, "bank", created.BankName)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventCreated, amqp.EntityAccount, created.ID))
	return created, nil
}

// UpdateAccount rewrites an account. Transactions referencing it are untouched.
func (s *AccountService) UpdateAccount(ctx context.Context, id int64, in core.AccountInput) (core.Account, error) {
	a, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, err
	}
	in.Apply(&a)
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	a.UpdatedAt = s.timestamp()

	updated, err := s.store.UpdateAccount(ctx, a)
	if err != nil {
		return core.Account{}, err
	}

	slog.InfoContext(ctx, "Account updated", applog.FieldAccountID, id, "is_active", updated.IsActive)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventUpdated, amqp.EntityAccount, id))
	return updated, nil
}

func (s *AccountService) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	return s.store.GetAccount(ctx, id)
}

func (s *AccountService) ListAccounts(ctx context.Context, f core.AccountFilter) (core.Page[core.Account], error) {
	f.PageRequest = f.PageRequest.Normalize()
	items, total, err := s.store.ListAccounts(ctx, f)
	if err != nil {
		return core.Page[core.Account]{}, err
	}
	return core.NewPage(items, total, f.PageRequest), nil
}
