package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tesoreria/internal/amqp"
	applog "tesoreria/internal/log"
	"tesoreria/internal/services"
	"tesoreria/internal/storage"
)

// Open connects the store (running migrations), the optional AMQP client
// and builds every service. A broker that cannot be reached is logged and
// events are disabled; the ledger keeps working without them.
func Open(ctx context.Context, config Config) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, config.Type.Dialect(), config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s store: %w", config.Type, err)
	}
	b := &Backend{Store: store}
	b.cleanup = append(b.cleanup, store.Close)

	var opts []services.Option
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			slog.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events",
				applog.FieldComponent, applog.ComponentBackend,
				"error", err)
		} else {
			b.Events = client
			b.cleanup = append(b.cleanup, client.Close)
			opts = append(opts, services.WithEvents(client))
			slog.InfoContext(ctx, "Initialized AMQP client",
				applog.FieldComponent, applog.ComponentBackend,
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}
	if config.Now != nil {
		opts = append(opts, services.WithClock(config.Now))
	}

	b.Projects = services.NewProjectService(store, config.ProjectCacheTTL, opts...)
	b.Accounts = services.NewAccountService(store, opts...)
	b.Transactions = services.NewTransactionService(store, opts...)
	b.Expenses = services.NewExpenseService(store, opts...)
	b.ProjectExpenses = services.NewProjectExpenseService(store, b.Projects, opts...)
	b.Budgets = services.NewBudgetService(store, b.Projects, config.StartPolicy, opts...)
	b.Statistics = services.NewStatisticsService(store, config.StatisticsTimeout, opts...)
	b.Reconciler = services.NewReconciler(b.Budgets, config.ReconcileSchedule)

	slog.InfoContext(ctx, "Initialized ledger backend",
		applog.FieldComponent, applog.ComponentBackend,
		"backend", config.Type.String(),
		"events_enabled", b.Events != nil,
		"start_policy", string(config.StartPolicy))

	return b, nil
}

// Close releases the AMQP connection and the store, in reverse order of opening.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.cleanup) - 1; i >= 0; i-- {
		if err := b.cleanup[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.cleanup = nil
	return errors.Join(errs...)
}
