package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tesoreria/internal/amqp"
	"tesoreria/internal/cache"
	"tesoreria/internal/core"
	applog "tesoreria/internal/log"
	"tesoreria/internal/storage"
)

// ProjectDirectory resolves project ids. The ledger only reads projects.
type ProjectDirectory interface {
	Lookup(ctx context.Context, id int64) (core.Project, error)
}

// ProjectService is the local mirror of the project service, with an LRU
// cache in front of lookups. It implements ProjectDirectory.
type ProjectService struct {
	base
	cache *cache.LRUCache[int64, core.Project]
}

// NewProjectService creates the project mirror. A zero ttl disables caching.
func NewProjectService(store *storage.Store, ttl time.Duration, opts ...Option) *ProjectService {
	s := &ProjectService{base: newBase(store, opts)}
	if ttl > 0 {
		s.cache = cache.NewLRUCache[int64, core.Project](512, ttl)
	}
	return s
}

// Cache exposes the lookup cache so a cache.Manager can sweep it. Nil when disabled.
func (s *ProjectService) Cache() *cache.LRUCache[int64, core.Project] {
	return s.cache
}

func (s *ProjectService) CreateProject(ctx context.Context, in core.ProjectInput) (core.Project, error) {
	var p core.Project
	in.Apply(&p)
	if err := p.Validate(); err != nil {
		return core.Project{}, err
	}
	p.CreatedAt = s.timestamp()

	created, err := s.store.CreateProject(ctx, p)
	if err != nil {
		return core.Project{}, err
	}
	if s.cache != nil {
		s.cache.Set(created.ID, created)
	}

	slog.InfoContext(ctx, "Project registered", applog.FieldProjectID, created.ID, "client", created.ClientName)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventCreated, amqp.EntityProject, created.ID))
	return created, nil
}

func (s *ProjectService) GetProject(ctx context.Context, id int64) (core.Project, error) {
	return s.Lookup(ctx, id)
}

func (s *ProjectService) ListProjects(ctx context.Context, f core.ProjectFilter) (core.Page[core.Project], error) {
	f.PageRequest = f.PageRequest.Normalize()
	items, total, err := s.store.ListProjects(ctx, f)
	if err != nil {
		return core.Page[core.Project]{}, err
	}
	return core.NewPage(items, total, f.PageRequest), nil
}

// Lookup resolves a project, serving repeated lookups from the cache.
func (s *ProjectService) Lookup(ctx context.Context, id int64) (core.Project, error) {
	if s.cache != nil {
		if p, ok := s.cache.Get(id); ok {
			return p, nil
		}
	}
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return core.Project{}, err
	}
	if s.cache != nil {
		s.cache.Set(id, p)
	}
	return p, nil
}

// resolveProject turns a missing project into a ValidationError.
func resolveProject(ctx context.Context, dir ProjectDirectory, id int64) (core.Project, error) {
	p, err := dir.Lookup(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Project{}, core.Validationf("project %d does not exist", id)
	}
	return p, err
}
