// Package investments implements the investment creation workflow and its
// slot accounting.
package investments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/investestate/platform/internal/app/domain/investment"
	"github.com/investestate/platform/internal/app/metrics"
	"github.com/investestate/platform/internal/app/storage"
	"github.com/investestate/platform/pkg/logger"
)

var (
	// ErrProjectNotFound is returned when the referenced project does not exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrModelNotFound is returned when the referenced investment model does
	// not exist or belongs to a different project.
	ErrModelNotFound = errors.New("investment model not found")
	// ErrInsufficientSlots is returned when fewer slots remain than requested.
	ErrInsufficientSlots = errors.New("not enough slots available")
)

// Service manages investments against the project catalogue.
type Service struct {
	projects storage.ProjectStore
	store    storage.InvestmentStore
	log      *logger.Logger
}

// New constructs an investments service.
func New(projects storage.ProjectStore, store storage.InvestmentStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("investments")
	}
	return &Service{projects: projects, store: store, log: log}
}

// Create validates the request, computes the financial fields and persists
// the investment. The slot check-and-decrement happens atomically in the
// store, so a concurrent request cannot oversell a model; the availability
// check here only produces a friendly error on the common path.
func (s *Service) Create(ctx context.Context, userID int64, projectID, modelID string, slots int) (investment.Investment, error) {
	projectID = strings.TrimSpace(projectID)
	modelID = strings.TrimSpace(modelID)

	if userID <= 0 {
		return investment.Investment{}, fmt.Errorf("user id is required")
	}
	if projectID == "" || modelID == "" {
		return investment.Investment{}, fmt.Errorf("projectId and modelId are required")
	}
	if slots <= 0 {
		return investment.Investment{}, fmt.Errorf("slots must be a positive integer")
	}

	proj, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return investment.Investment{}, ErrProjectNotFound
		}
		return investment.Investment{}, err
	}

	model, err := s.projects.GetModel(ctx, modelID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return investment.Investment{}, ErrModelNotFound
		}
		return investment.Investment{}, err
	}
	if model.ProjectID != proj.ID {
		return investment.Investment{}, fmt.Errorf("model %s does not belong to project %s: %w", modelID, projectID, ErrModelNotFound)
	}
	if model.AvailableSlots < slots {
		return investment.Investment{}, ErrInsufficientSlots
	}

	now := time.Now().UTC()
	inv := investment.Investment{
		UserID:          userID,
		ProjectID:       proj.ID,
		ProjectName:     proj.Name,
		ModelID:         model.ID,
		ModelName:       model.Name,
		Slots:           slots,
		Amount:          model.MinInvestment * int64(slots),
		ExpectedReturns: model.ROI,
		LockInPeriod:    model.LockInPeriod,
		MaturityDate:    now.AddDate(model.LockInPeriod, 0, 0),
		Status:          investment.StatusActive,
	}

	created, err := s.store.CreateInvestment(ctx, inv)
	if err != nil {
		if errors.Is(err, storage.ErrInsufficientSlots) {
			return investment.Investment{}, ErrInsufficientSlots
		}
		if errors.Is(err, storage.ErrNotFound) {
			return investment.Investment{}, ErrModelNotFound
		}
		return investment.Investment{}, err
	}

	metrics.RecordInvestment(model.ID, slots)
	s.log.WithField("investment_id", created.ID).
		WithField("user_id", userID).
		WithField("model_id", model.ID).
		WithField("slots", slots).
		WithField("amount", created.Amount).
		Info("investment created")
	return created, nil
}

// ListByUser returns a user's investments.
func (s *Service) ListByUser(ctx context.Context, userID int64) ([]investment.Investment, error) {
	return s.store.ListInvestmentsByUser(ctx, userID)
}

// Quote is a projection of a prospective investment.
type Quote struct {
	ProjectID     string    `json:"projectId"`
	ModelID       string    `json:"modelId"`
	Slots         int       `json:"slots"`
	Amount        int64     `json:"amount"`
	ROI           float64   `json:"roi"`
	LockInPeriod  int       `json:"lockInPeriod"`
	MaturityDate  time.Time `json:"maturityDate"`
	MaturityValue int64     `json:"maturityValue"`
}

// QuoteFor computes the amount and projected maturity value for a slot
// selection without persisting anything.
func (s *Service) QuoteFor(ctx context.Context, projectID, modelID string, slots int) (Quote, error) {
	if slots <= 0 {
		return Quote{}, fmt.Errorf("slots must be a positive integer")
	}

	proj, err := s.projects.GetProject(ctx, strings.TrimSpace(projectID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Quote{}, ErrProjectNotFound
		}
		return Quote{}, err
	}
	model, err := s.projects.GetModel(ctx, strings.TrimSpace(modelID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Quote{}, ErrModelNotFound
		}
		return Quote{}, err
	}
	if model.ProjectID != proj.ID {
		return Quote{}, fmt.Errorf("model %s does not belong to project %s: %w", modelID, projectID, ErrModelNotFound)
	}

	amount := model.MinInvestment * int64(slots)
	return Quote{
		ProjectID:     proj.ID,
		ModelID:       model.ID,
		Slots:         slots,
		Amount:        amount,
		ROI:           model.ROI,
		LockInPeriod:  model.LockInPeriod,
		MaturityDate:  time.Now().UTC().AddDate(model.LockInPeriod, 0, 0),
		MaturityValue: MaturityValue(amount, model.ROI, model.LockInPeriod),
	}, nil
}

// MaturityValue projects the value of a principal at the end of the lock-in:
// compound interest, compounded once per year, rounded to the nearest rupee.
func MaturityValue(principal int64, roiPercent float64, lockInYears int) int64 {
	return int64(math.Round(float64(principal) * math.Pow(1+roiPercent/100, float64(lockInYears))))
}
