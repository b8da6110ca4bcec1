package storage

import (
	"context"
	"errors"
	"time"

	"github.com/investestate/platform/internal/app/domain/investment"
	"github.com/investestate/platform/internal/app/domain/project"
	"github.com/investestate/platform/internal/app/domain/user"
)

// Errors every store implementation must surface so callers can map them to
// API failures without knowing the backing engine.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrPhoneExists is returned when creating a user with a phone number
	// that is already registered.
	ErrPhoneExists = errors.New("phone number already registered")
	// ErrInsufficientSlots is returned by CreateInvestment when the model
	// does not have enough available slots left; no state is mutated.
	ErrInsufficientSlots = errors.New("not enough slots available")
)

// UserStore persists registered users.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id int64) (user.User, error)
	GetUserByPhone(ctx context.Context, phone string) (user.User, error)
}

// OTPStore persists phone-verification codes.
type OTPStore interface {
	CreateOTP(ctx context.Context, otp user.OTP) (user.OTP, error)
	// LatestOTP returns the most recently issued unused OTP for a phone.
	LatestOTP(ctx context.Context, phone string) (user.OTP, error)
	UpdateOTP(ctx context.Context, otp user.OTP) (user.OTP, error)
}

// ProjectStore persists the project catalogue and its investment models.
type ProjectStore interface {
	CreateProject(ctx context.Context, p project.Project) (project.Project, error)
	GetProject(ctx context.Context, id string) (project.Project, error)
	ListProjects(ctx context.Context) ([]project.Project, error)

	CreateModel(ctx context.Context, m project.Model) (project.Model, error)
	GetModel(ctx context.Context, id string) (project.Model, error)
	ListModelsByProject(ctx context.Context, projectID string) ([]project.Model, error)
}

// InvestmentStore persists investments and owns the slot accounting.
type InvestmentStore interface {
	// CreateInvestment inserts the investment and decrements the model's
	// available slots as one atomic operation. It fails with ErrNotFound if
	// the model is gone and ErrInsufficientSlots if fewer than inv.Slots
	// slots remain; in both cases nothing is mutated.
	CreateInvestment(ctx context.Context, inv investment.Investment) (investment.Investment, error)
	GetInvestment(ctx context.Context, id int64) (investment.Investment, error)
	ListInvestmentsByUser(ctx context.Context, userID int64) ([]investment.Investment, error)
	// ListMaturedActive returns active investments whose maturity date is at
	// or before asOf.
	ListMaturedActive(ctx context.Context, asOf time.Time) ([]investment.Investment, error)
	SetInvestmentStatus(ctx context.Context, id int64, status investment.Status) (investment.Investment, error)
}

// DraftStore persists per-user wizard drafts, keyed by (user, project).
type DraftStore interface {
	UpsertDraft(ctx context.Context, d investment.Draft) (investment.Draft, error)
	GetDraft(ctx context.Context, userID int64, projectID string) (investment.Draft, error)
	DeleteDraft(ctx context.Context, userID int64, projectID string) error
}
