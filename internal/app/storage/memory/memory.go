package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/investestate/platform/internal/app/domain/investment"
	"github.com/investestate/platform/internal/app/domain/project"
	"github.com/investestate/platform/internal/app/domain/user"
	"github.com/investestate/platform/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is the reference backend for tests and local
// development.
type Store struct {
	mu               sync.RWMutex
	nextUserID       int64
	nextInvestmentID int64
	users            map[int64]user.User
	usersByPhone     map[string]int64
	otps             map[string]user.OTP
	projects         map[string]project.Project
	projectOrder     []string
	models           map[string]project.Model
	investments      map[int64]investment.Investment
	drafts           map[string]investment.Draft
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.OTPStore = (*Store)(nil)
var _ storage.ProjectStore = (*Store)(nil)
var _ storage.InvestmentStore = (*Store)(nil)
var _ storage.DraftStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextUserID:       1,
		nextInvestmentID: 1,
		users:            make(map[int64]user.User),
		usersByPhone:     make(map[string]int64),
		otps:             make(map[string]user.OTP),
		projects:         make(map[string]project.Project),
		models:           make(map[string]project.Model),
		investments:      make(map[int64]investment.Investment),
		drafts:           make(map[string]investment.Draft),
	}
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByPhone[u.PhoneNumber]; exists {
		return user.User{}, storage.ErrPhoneExists
	}

	u.ID = s.nextUserID
	s.nextUserID++
	u.CreatedAt = time.Now().UTC()

	s.users[u.ID] = u
	s.usersByPhone[u.PhoneNumber] = u.ID
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("user %d: %w", id, storage.ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetUserByPhone(_ context.Context, phone string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByPhone[phone]
	if !ok {
		return user.User{}, fmt.Errorf("user with phone %s: %w", phone, storage.ErrNotFound)
	}
	return s.users[id], nil
}

// OTPStore implementation -----------------------------------------------------

func (s *Store) CreateOTP(_ context.Context, otp user.OTP) (user.OTP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if otp.ID == "" {
		otp.ID = uuid.NewString()
	}
	otp.CreatedAt = time.Now().UTC()
	s.otps[otp.ID] = otp
	return otp, nil
}

func (s *Store) LatestOTP(_ context.Context, phone string) (user.OTP, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest user.OTP
	found := false
	for _, otp := range s.otps {
		if otp.PhoneNumber != phone || otp.Used {
			continue
		}
		if !found || otp.CreatedAt.After(latest.CreatedAt) {
			latest = otp
			found = true
		}
	}
	if !found {
		return user.OTP{}, fmt.Errorf("otp for phone %s: %w", phone, storage.ErrNotFound)
	}
	return latest, nil
}

func (s *Store) UpdateOTP(_ context.Context, otp user.OTP) (user.OTP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.otps[otp.ID]
	if !ok {
		return user.OTP{}, fmt.Errorf("otp %s: %w", otp.ID, storage.ErrNotFound)
	}
	otp.CreatedAt = original.CreatedAt
	s.otps[otp.ID] = otp
	return otp, nil
}

// ProjectStore implementation -------------------------------------------------

func (s *Store) CreateProject(_ context.Context, p project.Project) (project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		return project.Project{}, fmt.Errorf("project id is required")
	}
	if _, exists := s.projects[p.ID]; exists {
		return project.Project{}, fmt.Errorf("project %s already exists", p.ID)
	}
	s.projects[p.ID] = p
	s.projectOrder = append(s.projectOrder, p.ID)
	return p, nil
}

func (s *Store) GetProject(_ context.Context, id string) (project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return project.Project{}, fmt.Errorf("project %s: %w", id, storage.ErrNotFound)
	}
	return p, nil
}

func (s *Store) ListProjects(_ context.Context) ([]project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]project.Project, 0, len(s.projectOrder))
	for _, id := range s.projectOrder {
		out = append(out, s.projects[id])
	}
	return out, nil
}

func (s *Store) CreateModel(_ context.Context, m project.Model) (project.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		return project.Model{}, fmt.Errorf("model id is required")
	}
	if _, exists := s.models[m.ID]; exists {
		return project.Model{}, fmt.Errorf("model %s already exists", m.ID)
	}
	if _, exists := s.projects[m.ProjectID]; !exists {
		return project.Model{}, fmt.Errorf("project %s: %w", m.ProjectID, storage.ErrNotFound)
	}
	s.models[m.ID] = m
	return m, nil
}

func (s *Store) GetModel(_ context.Context, id string) (project.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.models[id]
	if !ok {
		return project.Model{}, fmt.Errorf("model %s: %w", id, storage.ErrNotFound)
	}
	return m, nil
}

func (s *Store) ListModelsByProject(_ context.Context, projectID string) ([]project.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []project.Model
	for _, m := range s.models {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// InvestmentStore implementation ----------------------------------------------

// CreateInvestment checks and decrements the model slot count and inserts the
// investment under a single lock hold, so two concurrent requests cannot both
// pass the availability check.
func (s *Store) CreateInvestment(_ context.Context, inv investment.Investment) (investment.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.models[inv.ModelID]
	if !ok {
		return investment.Investment{}, fmt.Errorf("model %s: %w", inv.ModelID, storage.ErrNotFound)
	}
	if m.AvailableSlots < inv.Slots {
		return investment.Investment{}, storage.ErrInsufficientSlots
	}

	m.AvailableSlots -= inv.Slots
	s.models[m.ID] = m

	inv.ID = s.nextInvestmentID
	s.nextInvestmentID++
	inv.CreatedAt = time.Now().UTC()
	if inv.Status == "" {
		inv.Status = investment.StatusActive
	}
	s.investments[inv.ID] = inv
	return inv, nil
}

func (s *Store) GetInvestment(_ context.Context, id int64) (investment.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.investments[id]
	if !ok {
		return investment.Investment{}, fmt.Errorf("investment %d: %w", id, storage.ErrNotFound)
	}
	return inv, nil
}

func (s *Store) ListInvestmentsByUser(_ context.Context, userID int64) ([]investment.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []investment.Investment
	for _, inv := range s.investments {
		if inv.UserID == userID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListMaturedActive(_ context.Context, asOf time.Time) ([]investment.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []investment.Investment
	for _, inv := range s.investments {
		if inv.Status == investment.StatusActive && !inv.MaturityDate.After(asOf) {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SetInvestmentStatus(_ context.Context, id int64, status investment.Status) (investment.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.investments[id]
	if !ok {
		return investment.Investment{}, fmt.Errorf("investment %d: %w", id, storage.ErrNotFound)
	}
	inv.Status = status
	s.investments[id] = inv
	return inv, nil
}

// DraftStore implementation ---------------------------------------------------

func draftKey(userID int64, projectID string) string {
	return fmt.Sprintf("%d/%s", userID, projectID)
}

func (s *Store) UpsertDraft(_ context.Context, d investment.Draft) (investment.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := draftKey(d.UserID, d.ProjectID)
	if existing, ok := s.drafts[key]; ok {
		d.Version = existing.Version + 1
	} else {
		d.Version = 1
	}
	d.UpdatedAt = time.Now().UTC()
	s.drafts[key] = d
	return d, nil
}

func (s *Store) GetDraft(_ context.Context, userID int64, projectID string) (investment.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.drafts[draftKey(userID, projectID)]
	if !ok {
		return investment.Draft{}, fmt.Errorf("draft for project %s: %w", projectID, storage.ErrNotFound)
	}
	return d, nil
}

func (s *Store) DeleteDraft(_ context.Context, userID int64, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := draftKey(userID, projectID)
	if _, ok := s.drafts[key]; !ok {
		return fmt.Errorf("draft for project %s: %w", projectID, storage.ErrNotFound)
	}
	delete(s.drafts, key)
	return nil
}
