package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tesoreria/internal/amqp"
	"tesoreria/internal/core"
	"tesoreria/internal/services"
)

type fakeReconciler struct {
	handled []int64
	err     error
	sweeps  int
}

func (f *fakeReconciler) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	f.handled = append(f.handled, *ev.BudgetID)
	return f.err
}

func (f *fakeReconciler) Sweep(ctx context.Context) (services.SweepResult, error) {
	f.sweeps++
	return services.SweepResult{Checked: 3, Corrected: 1}, f.err
}

// fakeSource replays events then blocks until the context ends.
type fakeSource struct {
	events []*amqp.LedgerEvent
	errs   []error
}

func (s *fakeSource) Consume(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error {
	for _, ev := range s.events {
		s.errs = append(s.errs, handler(ctx, ev))
	}
	<-ctx.Done()
	return ctx.Err()
}

func spent(budgetID int64) *amqp.LedgerEvent {
	return amqp.NewLedgerEvent(amqp.EventSpent, amqp.EntityBudget, budgetID).WithBudget(budgetID, 2)
}

func TestHandleLedgerEvent(t *testing.T) {
	rec := &fakeReconciler{}
	w := NewEventWorker(nil, rec)
	ctx := context.Background()

	require.NoError(t, w.HandleLedgerEvent(ctx, spent(7)))
	require.NoError(t, w.HandleLedgerEvent(ctx, amqp.NewLedgerEvent(amqp.EventCreated, amqp.EntityAccount, 1)))

	assert.Equal(t, []int64{7}, rec.handled)
	assert.Equal(t, Stats{Processed: 1, Ignored: 1}, w.Stats())
}

func TestHandleLedgerEventErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("transient failure is returned for redelivery", func(t *testing.T) {
		w := NewEventWorker(nil, &fakeReconciler{err: core.Transport("reconcile budget", errors.New("database is locked"))})
		err := w.HandleLedgerEvent(ctx, spent(3))
		assert.ErrorIs(t, err, core.ErrTransport)
		assert.EqualValues(t, 1, w.Stats().Failed)
	})

	t.Run("validation failure is dropped", func(t *testing.T) {
		w := NewEventWorker(nil, &fakeReconciler{err: core.Validationf("bad budget")})
		assert.NoError(t, w.HandleLedgerEvent(ctx, spent(3)))
		assert.EqualValues(t, 1, w.Stats().Failed)
	})
}

func TestRunConsumesUntilCancelled(t *testing.T) {
	rec := &fakeReconciler{}
	src := &fakeSource{events: []*amqp.LedgerEvent{spent(1), spent(2)}}
	w := NewEventWorker(src, rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return w.Stats().Processed == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
	assert.Equal(t, []int64{1, 2}, rec.handled)
}

func TestStartupCheck(t *testing.T) {
	rec := &fakeReconciler{}
	w := NewEventWorker(nil, rec)
	require.NoError(t, w.StartupCheck(context.Background()))
	assert.Equal(t, 1, rec.sweeps)

	rec.err = errors.New("boom")
	assert.Error(t, w.StartupCheck(context.Background()))
}
