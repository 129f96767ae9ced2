package services

import (
	"context"
	"log/slog"

	"tesoreria/internal/amqp"
	"tesoreria/internal/core"
	applog "tesoreria/internal/log"
	"tesoreria/internal/storage"
)

// ProjectExpenseService manages costs booked against projects. Project
// expenses never touch budgets.
type ProjectExpenseService struct {
	base
	projects ProjectDirectory
}

func NewProjectExpenseService(store *storage.Store, projects ProjectDirectory, opts ...Option) *ProjectExpenseService {
	return &ProjectExpenseService{base: newBase(store, opts), projects: projects}
}

// CreateProjectExpense requires a resolvable project. An empty vendor
// defaults to the project's client.
func (s *ProjectExpenseService) CreateProjectExpense(ctx context.Context, in core.ProjectExpenseInput) (core.ProjectExpense, error) {
	var e core.ProjectExpense
	if err := in.Apply(&e); err != nil {
		return core.ProjectExpense{}, err
	}
	if err := e.Validate(); err != nil {
		return core.ProjectExpense{}, err
	}
	project, err := resolveProject(ctx, s.projects, e.ProjectID)
	if err != nil {
		return core.ProjectExpense{}, err
	}
	if e.Vendor == "" {
		e.Vendor = project.ClientName
	}
	e.CreatedAt = s.timestamp()
	e.UpdatedAt = e.CreatedAt

	created, err := s.store.CreateProjectExpense(ctx, e)
	if err != nil {
		return core.ProjectExpense{}, err
	}

	slog.InfoContext(ctx, "Project expense saved",
		"project_expense_id", created.ID,
		applog.FieldProjectID, created.ProjectID,
		"amount_cents", created.Amount.Cents,
		"category", string(created.Category))
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventCreated, amqp.EntityProjectExpense, created.ID).WithAmount(created.Amount.Cents))
	return created, nil
}

func (s *ProjectExpenseService) UpdateProjectExpense(ctx context.Context, id int64, in core.ProjectExpenseInput) (core.ProjectExpense, error) {
	e, err := s.store.GetProjectExpense(ctx, id)
	if err != nil {
		return core.ProjectExpense{}, err
	}
	if in.ProjectID == 0 {
		in.ProjectID = e.ProjectID
	}
	if err := in.Apply(&e); err != nil {
		return core.ProjectExpense{}, err
	}
	if err := e.Validate(); err != nil {
		return core.ProjectExpense{}, err
	}
	project, err := resolveProject(ctx, s.projects, e.ProjectID)
	if err != nil {
		return core.ProjectExpense{}, err
	}
	if e.Vendor == "" {
		e.Vendor = project.ClientName
	}
	e.UpdatedAt = s.timestamp()

	updated, err := s.store.UpdateProjectExpense(ctx, e)
	if err != nil {
		return core.ProjectExpense{}, err
	}

	slog.InfoContext(ctx, "Project expense updated", "project_expense_id", id, "amount_cents", updated.Amount.Cents)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventUpdated, amqp.EntityProjectExpense, id).WithAmount(updated.Amount.Cents))
	return updated, nil
}

func (s *ProjectExpenseService) GetProjectExpense(ctx context.Context, id int64) (core.ProjectExpense, error) {
	return s.store.GetProjectExpense(ctx, id)
}

func (s *ProjectExpenseService) DeleteProjectExpense(ctx context.Context, id int64) error {
	if err := s.store.DeleteProjectExpense(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Project expense deleted", "project_expense_id", id)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventDeleted, amqp.EntityProjectExpense, id))
	return nil
}

func (s *ProjectExpenseService) ListProjectExpenses(ctx context.Context, f core.ProjectExpenseFilter) (core.Page[core.ProjectExpense], error) {
	if f.Category != "" && !f.Category.Valid() {
		return core.Page[core.ProjectExpense]{}, core.Validationf("invalid project expense category %q", f.Category)
	}
	f.PageRequest = f.PageRequest.Normalize()
	items, total, err := s.store.ListProjectExpenses(ctx, f)
	if err != nil {
		return core.Page[core.ProjectExpense]{}, err
	}
	return core.NewPage(items, total, f.PageRequest), nil
}

// ListProjectExpensesByProject pages the expenses of one project, newest
// first. An unknown project is NotFound rather than an empty page.
func (s *ProjectExpenseService) ListProjectExpensesByProject(ctx context.Context, projectID int64, page core.PageRequest) (core.Page[core.ProjectExpense], error) {
	if _, err := s.projects.Lookup(ctx, projectID); err != nil {
		return core.Page[core.ProjectExpense]{}, err
	}
	return s.ListProjectExpenses(ctx, core.ProjectExpenseFilter{ProjectID: projectID, PageRequest: page})
}
