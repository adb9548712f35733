package service

import (
	"context"
	"log/slog"

	"github.com/planloom/planloom/internal/domain/project"
	"github.com/planloom/planloom/internal/port/database"
)

// ProjectService handles project lifecycle business logic.
type ProjectService struct {
	store database.Store
}

// NewProjectService creates a new ProjectService.
func NewProjectService(store database.Store) *ProjectService {
	return &ProjectService{store: store}
}

// List returns all projects.
func (s *ProjectService) List(ctx context.Context) ([]project.Project, error) {
	return s.store.ListProjects(ctx)
}

// Get returns a project by ID.
func (s *ProjectService) Get(ctx context.Context, id string) (*project.Project, error) {
	return s.store.GetProject(ctx, id)
}

// Create validates and persists a new project in discovery.
func (s *ProjectService) Create(ctx context.Context, req project.CreateRequest) (*project.Project, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.store.CreateProject(ctx, req)
	if err != nil {
		return nil, err
	}
	slog.Info("project created", "project_id", p.ID, "title", p.Title)
	return p, nil
}

// UpdateContext replaces the discovery context of a project.
func (s *ProjectService) UpdateContext(ctx context.Context, id string, pc project.Context) error {
	return s.store.UpdateProjectContext(ctx, id, pc)
}

// Delete removes a project and everything hanging off it.
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	return s.store.DeleteProject(ctx, id)
}
