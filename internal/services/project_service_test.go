package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tesoreria/internal/core"
)

func TestProjectLookupIsCached(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	p, err := l.projects.CreateProject(ctx, core.ProjectInput{Name: " Website ", ClientName: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "Website", p.Name)
	assert.Equal(t, 1, l.projects.Cache().Size())

	got, err := l.projects.Lookup(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = l.projects.GetProject(ctx, 404)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = l.projects.CreateProject(ctx, core.ProjectInput{ClientName: "Acme"})
	assert.ErrorIs(t, err, core.ErrValidation)

	list, err := l.projects.ListProjects(ctx, core.ProjectFilter{})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
	assert.Equal(t, int64(1), list.Total)
}

func TestProjectServiceWithoutCache(t *testing.T) {
	l := newLedger(t)
	svc := NewProjectService(l.store, 0)
	assert.Nil(t, svc.Cache())

	p, err := svc.CreateProject(context.Background(), core.ProjectInput{Name: "App"})
	require.NoError(t, err)
	got, err := svc.Lookup(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "App", got.Name)
}

func TestProjectExpenses(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	acme, err := l.projects.CreateProject(ctx, core.ProjectInput{Name: "Website", ClientName: "Acme"})
	require.NoError(t, err)
	other, err := l.projects.CreateProject(ctx, core.ProjectInput{Name: "Internal"})
	require.NoError(t, err)

	in := core.ProjectExpenseInput{
		ProjectID: acme.ID, Name: "acme.io", Category: "Domain", Amount: core.Cents(1299),
		PaymentMethod: "credit card", ExpenseDate: testToday(),
	}

	t.Run("vendor defaults to client", func(t *testing.T) {
		e, err := l.projectExp.CreateProjectExpense(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, "Acme", e.Vendor)
		assert.Equal(t, core.ProjectDomain, e.Category)
		assert.Equal(t, core.PaymentCreditCard, e.PaymentMethod)
	})

	t.Run("no client leaves vendor empty", func(t *testing.T) {
		in := in
		in.ProjectID = other.ID
		in.PaymentMethod = ""
		e, err := l.projectExp.CreateProjectExpense(ctx, in)
		require.NoError(t, err)
		assert.Empty(t, e.Vendor)
		assert.Equal(t, core.PaymentOther, e.PaymentMethod)
	})

	t.Run("unknown project", func(t *testing.T) {
		in := in
		in.ProjectID = 404
		_, err := l.projectExp.CreateProjectExpense(ctx, in)
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("bad category and payment method", func(t *testing.T) {
		bad := in
		bad.Category = "coffee"
		_, err := l.projectExp.CreateProjectExpense(ctx, bad)
		assert.ErrorIs(t, err, core.ErrValidation)

		bad = in
		bad.PaymentMethod = "barter"
		_, err = l.projectExp.CreateProjectExpense(ctx, bad)
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("list by project", func(t *testing.T) {
		page, err := l.projectExp.ListProjectExpensesByProject(ctx, acme.ID, core.PageRequest{})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "acme.io", page.Items[0].Name)
		assert.Equal(t, int64(1), page.Total)

		_, err = l.projectExp.ListProjectExpensesByProject(ctx, 404, core.PageRequest{})
		assert.ErrorIs(t, err, core.ErrNotFound)

		page, err = l.projectExp.ListProjectExpenses(ctx, core.ProjectExpenseFilter{Category: core.ProjectDomain})
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
	})

	t.Run("update keeps project and never touches budgets", func(t *testing.T) {
		b := l.budget(t, 1000)
		page, err := l.projectExp.ListProjectExpensesByProject(ctx, acme.ID, core.PageRequest{})
		require.NoError(t, err)
		items := page.Items

		upd := in
		upd.ProjectID = 0
		upd.Amount = core.Cents(1500)
		upd.Vendor = "Namecheap"
		e, err := l.projectExp.UpdateProjectExpense(ctx, items[0].ID, upd)
		require.NoError(t, err)
		assert.Equal(t, acme.ID, e.ProjectID)
		assert.Equal(t, "Namecheap", e.Vendor)

		require.NoError(t, l.projectExp.DeleteProjectExpense(ctx, e.ID))
		got, err := l.budgets.GetBudget(ctx, b.ID)
		require.NoError(t, err)
		assert.Zero(t, got.Spent.Cents)
	})
}
