// Package drafts persists in-progress investment selections so a user can
// resume a purchase across devices.
package drafts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/investestate/platform/internal/app/domain/investment"
	"github.com/investestate/platform/internal/app/storage"
	"github.com/investestate/platform/pkg/logger"
)

// ErrNotFound is returned when no live draft exists for the user and project.
var ErrNotFound = errors.New("draft not found")

// Service manages investment drafts.
type Service struct {
	projects storage.ProjectStore
	store    storage.DraftStore
	ttl      time.Duration
	log      *logger.Logger
}

// New constructs a draft service. ttl <= 0 selects the default of 7 days.
func New(projects storage.ProjectStore, store storage.DraftStore, ttl time.Duration, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("drafts")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Service{projects: projects, store: store, ttl: ttl, log: log}
}

// Save validates and upserts a draft, returning the stored copy with its new
// version.
func (s *Service) Save(ctx context.Context, d investment.Draft) (investment.Draft, error) {
	d.ProjectID = strings.TrimSpace(d.ProjectID)
	d.ModelID = strings.TrimSpace(d.ModelID)
	if d.UserID <= 0 {
		return investment.Draft{}, fmt.Errorf("user id is required")
	}
	if d.ProjectID == "" {
		return investment.Draft{}, fmt.Errorf("project id is required")
	}
	if d.Slots < 0 {
		return investment.Draft{}, fmt.Errorf("slots must not be negative")
	}

	if _, err := s.projects.GetProject(ctx, d.ProjectID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return investment.Draft{}, fmt.Errorf("project %q not found", d.ProjectID)
		}
		return investment.Draft{}, err
	}
	if d.ModelID != "" {
		model, err := s.projects.GetModel(ctx, d.ModelID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return investment.Draft{}, fmt.Errorf("model %q not found", d.ModelID)
			}
			return investment.Draft{}, err
		}
		if model.ProjectID != d.ProjectID {
			return investment.Draft{}, fmt.Errorf("model %q does not belong to project %q", d.ModelID, d.ProjectID)
		}
	}

	d.UpdatedAt = time.Now().UTC()
	d.ExpiresAt = d.UpdatedAt.Add(s.ttl)
	saved, err := s.store.UpsertDraft(ctx, d)
	if err != nil {
		return investment.Draft{}, err
	}
	s.log.WithField("user_id", d.UserID).WithField("project_id", d.ProjectID).Info("draft saved")
	return saved, nil
}

// Get returns the user's draft for a project. Expired drafts are discarded
// and reported as missing. stale is set when the draft references a model
// that no longer exists or asks for more slots than remain available.
func (s *Service) Get(ctx context.Context, userID int64, projectID string) (d investment.Draft, stale bool, err error) {
	projectID = strings.TrimSpace(projectID)
	if userID <= 0 || projectID == "" {
		return investment.Draft{}, false, ErrNotFound
	}

	d, err = s.store.GetDraft(ctx, userID, projectID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return investment.Draft{}, false, ErrNotFound
		}
		return investment.Draft{}, false, err
	}

	if time.Now().UTC().After(d.ExpiresAt) {
		if err := s.store.DeleteDraft(ctx, userID, projectID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.log.WithError(err).Warn("discard expired draft failed")
		}
		return investment.Draft{}, false, ErrNotFound
	}

	if d.ModelID != "" {
		model, err := s.projects.GetModel(ctx, d.ModelID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			stale = true
		case err != nil:
			return investment.Draft{}, false, err
		case d.Slots > model.AvailableSlots:
			stale = true
		}
	}
	return d, stale, nil
}

// Discard removes the user's draft for a project. Missing drafts are not an
// error.
func (s *Service) Discard(ctx context.Context, userID int64, projectID string) error {
	projectID = strings.TrimSpace(projectID)
	if userID <= 0 || projectID == "" {
		return nil
	}
	if err := s.store.DeleteDraft(ctx, userID, projectID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}
