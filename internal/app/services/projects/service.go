// Package projects serves the read-only project catalogue.
package projects

import (
	"context"
	"fmt"
	"strings"

	"github.com/investestate/platform/internal/app/domain/project"
	"github.com/investestate/platform/internal/app/storage"
	"github.com/investestate/platform/pkg/logger"
)

// Service exposes the project catalogue and its investment models.
type Service struct {
	store storage.ProjectStore
	log   *logger.Logger
}

// New constructs a projects service.
func New(store storage.ProjectStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("projects")
	}
	return &Service{store: store, log: log}
}

// List returns all projects.
func (s *Service) List(ctx context.Context) ([]project.Project, error) {
	return s.store.ListProjects(ctx)
}

// Get retrieves a single project by identifier.
func (s *Service) Get(ctx context.Context, id string) (project.Project, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return project.Project{}, fmt.Errorf("project id is required")
	}
	return s.store.GetProject(ctx, id)
}

// ListModels returns the investment models of a project. The project must
// exist.
func (s *Service) ListModels(ctx context.Context, projectID string) ([]project.Model, error) {
	projectID = strings.TrimSpace(projectID)
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.store.ListModelsByProject(ctx, projectID)
}
