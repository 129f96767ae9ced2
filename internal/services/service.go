// Package services implements the ledger's operations on top of storage.
// Every multi-step write runs in one SQL transaction; events are published
// after commit and never fail the operation.
package services

import (
	"context"
	"log/slog"
	"time"

	"tesoreria/internal/amqp"
	"tesoreria/internal/core"
	"tesoreria/internal/storage"
)

// EventPublisher sends ledger events. *amqp.Client implements it.
type EventPublisher interface {
	Publish(ctx context.Context, msg *amqp.LedgerEvent) error
}

// Option configures the shared dependencies of a service.
type Option func(*base)

// WithEvents sets the publisher used after successful writes.
func WithEvents(p EventPublisher) Option {
	return func(b *base) { b.events = p }
}

// WithClock replaces time.Now. Statistics windows and budget promotion use it.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

type base struct {
	store  *storage.Store
	events EventPublisher
	now    func() time.Time
}

func newBase(store *storage.Store, opts []Option) base {
	b := base{store: store, now: time.Now}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *base) today() core.Date {
	return core.DateOf(b.now())
}

// timestamp is the write time stored on records, truncated for stable round trips.
func (b *base) timestamp() time.Time {
	return b.now().UTC().Truncate(time.Microsecond)
}

func (b *base) publish(ctx context.Context, msg *amqp.LedgerEvent) {
	if b.events == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping event", "routing_key", msg.RoutingKey())
		return
	}
	if err := b.events.Publish(ctx, msg); err != nil {
		// Don't fail the request - the write is committed
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"event_id", msg.ID,
			"routing_key", msg.RoutingKey(),
			"error", err)
	}
}
