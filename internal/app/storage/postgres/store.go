// Package postgres implements the storage interfaces backed by PostgreSQL
// via database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/investestate/platform/internal/app/domain/investment"
	"github.com/investestate/platform/internal/app/domain/project"
	"github.com/investestate/platform/internal/app/domain/user"
	"github.com/investestate/platform/internal/app/storage"
	"github.com/investestate/platform/internal/dbx"
)

const pqUniqueViolation = "23505"

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.OTPStore = (*Store)(nil)
var _ storage.ProjectStore = (*Store)(nil)
var _ storage.InvestmentStore = (*Store)(nil)
var _ storage.DraftStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// --- UserStore ---------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	u.CreatedAt = time.Now().UTC()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (phone_number, name, email, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, u.PhoneNumber, u.Name, u.Email, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return user.User{}, storage.ErrPhoneExists
		}
		return user.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, phone_number, name, email, created_at
		FROM users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

func (s *Store) GetUserByPhone(ctx context.Context, phone string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, phone_number, name, email, created_at
		FROM users
		WHERE phone_number = $1
	`, phone)
	return scanUser(row)
}

func scanUser(row *sql.Row) (user.User, error) {
	var u user.User
	if err := row.Scan(&u.ID, &u.PhoneNumber, &u.Name, &u.Email, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, storage.ErrNotFound
		}
		return user.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// --- OTPStore ----------------------------------------------------------------

func (s *Store) CreateOTP(ctx context.Context, otp user.OTP) (user.OTP, error) {
	if otp.ID == "" {
		otp.ID = uuid.NewString()
	}
	otp.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO otps (id, phone_number, code_hash, expires_at, used, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, otp.ID, otp.PhoneNumber, otp.CodeHash, otp.ExpiresAt, otp.Used, otp.Attempts, otp.CreatedAt)
	if err != nil {
		return user.OTP{}, fmt.Errorf("insert otp: %w", err)
	}
	return otp, nil
}

func (s *Store) LatestOTP(ctx context.Context, phone string) (user.OTP, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, phone_number, code_hash, expires_at, used, attempts, created_at
		FROM otps
		WHERE phone_number = $1 AND NOT used
		ORDER BY created_at DESC
		LIMIT 1
	`, phone)

	var otp user.OTP
	err := row.Scan(&otp.ID, &otp.PhoneNumber, &otp.CodeHash, &otp.ExpiresAt, &otp.Used, &otp.Attempts, &otp.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.OTP{}, storage.ErrNotFound
		}
		return user.OTP{}, fmt.Errorf("scan otp: %w", err)
	}
	return otp, nil
}

func (s *Store) UpdateOTP(ctx context.Context, otp user.OTP) (user.OTP, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE otps
		SET used = $2, attempts = $3
		WHERE id = $1
	`, otp.ID, otp.Used, otp.Attempts)
	if err != nil {
		return user.OTP{}, fmt.Errorf("update otp: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.OTP{}, storage.ErrNotFound
	}
	return otp, nil
}

// --- ProjectStore ------------------------------------------------------------

func (s *Store) CreateProject(ctx context.Context, p project.Project) (project.Project, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, location, minimum_investment, estimated_returns, lock_in_period, available_slots, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.Name, p.Location, p.MinimumInvestment, p.EstimatedReturns, p.LockInPeriod, p.AvailableSlots, p.Image)
	if err != nil {
		return project.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return p, nil
}

func (s *Store) GetProject(ctx context.Context, id string) (project.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, location, minimum_investment, estimated_returns, lock_in_period, available_slots, image
		FROM projects
		WHERE id = $1
	`, id)

	var p project.Project
	err := row.Scan(&p.ID, &p.Name, &p.Location, &p.MinimumInvestment, &p.EstimatedReturns, &p.LockInPeriod, &p.AvailableSlots, &p.Image)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return project.Project{}, storage.ErrNotFound
		}
		return project.Project{}, fmt.Errorf("scan project: %w", err)
	}
	return p, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]project.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, location, minimum_investment, estimated_returns, lock_in_period, available_slots, image
		FROM projects
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []project.Project
	for rows.Next() {
		var p project.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Location, &p.MinimumInvestment, &p.EstimatedReturns, &p.LockInPeriod, &p.AvailableSlots, &p.Image); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) CreateModel(ctx context.Context, m project.Model) (project.Model, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO investment_models (id, name, min_investment, roi, lock_in_period, available_slots, project_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, m.Name, m.MinInvestment, m.ROI, m.LockInPeriod, m.AvailableSlots, m.ProjectID)
	if err != nil {
		return project.Model{}, fmt.Errorf("insert model: %w", err)
	}
	return m, nil
}

func (s *Store) GetModel(ctx context.Context, id string) (project.Model, error) {
	return getModel(ctx, s.db, id)
}

func getModel(ctx context.Context, db dbx.DBTX, id string) (project.Model, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, name, min_investment, roi, lock_in_period, available_slots, project_id
		FROM investment_models
		WHERE id = $1
	`, id)

	var m project.Model
	err := row.Scan(&m.ID, &m.Name, &m.MinInvestment, &m.ROI, &m.LockInPeriod, &m.AvailableSlots, &m.ProjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return project.Model{}, storage.ErrNotFound
		}
		return project.Model{}, fmt.Errorf("scan model: %w", err)
	}
	return m, nil
}

func (s *Store) ListModelsByProject(ctx context.Context, projectID string) ([]project.Model, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, min_investment, roi, lock_in_period, available_slots, project_id
		FROM investment_models
		WHERE project_id = $1
		ORDER BY id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var out []project.Model
	for rows.Next() {
		var m project.Model
		if err := rows.Scan(&m.ID, &m.Name, &m.MinInvestment, &m.ROI, &m.LockInPeriod, &m.AvailableSlots, &m.ProjectID); err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// --- InvestmentStore ---------------------------------------------------------

// CreateInvestment decrements the model's slot count and inserts the
// investment in one transaction. The decrement is conditional on enough slots
// remaining, so concurrent requests cannot oversell a model.
func (s *Store) CreateInvestment(ctx context.Context, inv investment.Investment) (investment.Investment, error) {
	inv.CreatedAt = time.Now().UTC()
	if inv.Status == "" {
		inv.Status = investment.StatusActive
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE investment_models
			SET available_slots = available_slots - $2
			WHERE id = $1 AND available_slots >= $2
		`, inv.ModelID, inv.Slots)
		if err != nil {
			return fmt.Errorf("reserve slots: %w", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			// Either the model is gone or it has too few slots left.
			if _, err := getModel(ctx, tx, inv.ModelID); err != nil {
				return err
			}
			return storage.ErrInsufficientSlots
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO investments (user_id, project_id, project_name, model_id, model_name, slots, amount, expected_returns, lock_in_period, maturity_date, created_at, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id
		`, inv.UserID, inv.ProjectID, inv.ProjectName, inv.ModelID, inv.ModelName, inv.Slots, inv.Amount,
			inv.ExpectedReturns, inv.LockInPeriod, inv.MaturityDate, inv.CreatedAt, inv.Status).Scan(&inv.ID)
		if err != nil {
			return fmt.Errorf("insert investment: %w", err)
		}
		return nil
	})
	if err != nil {
		return investment.Investment{}, err
	}
	return inv, nil
}

func (s *Store) GetInvestment(ctx context.Context, id int64) (investment.Investment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, project_id, project_name, model_id, model_name, slots, amount, expected_returns, lock_in_period, maturity_date, created_at, status
		FROM investments
		WHERE id = $1
	`, id)

	inv, err := scanInvestment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return investment.Investment{}, storage.ErrNotFound
		}
		return investment.Investment{}, err
	}
	return inv, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvestment(row rowScanner) (investment.Investment, error) {
	var inv investment.Investment
	err := row.Scan(&inv.ID, &inv.UserID, &inv.ProjectID, &inv.ProjectName, &inv.ModelID, &inv.ModelName,
		&inv.Slots, &inv.Amount, &inv.ExpectedReturns, &inv.LockInPeriod, &inv.MaturityDate, &inv.CreatedAt, &inv.Status)
	return inv, err
}

func (s *Store) ListInvestmentsByUser(ctx context.Context, userID int64) ([]investment.Investment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, project_id, project_name, model_id, model_name, slots, amount, expected_returns, lock_in_period, maturity_date, created_at, status
		FROM investments
		WHERE user_id = $1
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}
	defer rows.Close()
	return collectInvestments(rows)
}

func (s *Store) ListMaturedActive(ctx context.Context, asOf time.Time) ([]investment.Investment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, project_id, project_name, model_id, model_name, slots, amount, expected_returns, lock_in_period, maturity_date, created_at, status
		FROM investments
		WHERE status = $1 AND maturity_date <= $2
		ORDER BY id
	`, investment.StatusActive, asOf)
	if err != nil {
		return nil, fmt.Errorf("list matured investments: %w", err)
	}
	defer rows.Close()
	return collectInvestments(rows)
}

func collectInvestments(rows *sql.Rows) ([]investment.Investment, error) {
	var out []investment.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan investment: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *Store) SetInvestmentStatus(ctx context.Context, id int64, status investment.Status) (investment.Investment, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE investments
		SET status = $2
		WHERE id = $1
	`, id, status)
	if err != nil {
		return investment.Investment{}, fmt.Errorf("update investment status: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return investment.Investment{}, storage.ErrNotFound
	}
	return s.GetInvestment(ctx, id)
}

// --- DraftStore --------------------------------------------------------------

func (s *Store) UpsertDraft(ctx context.Context, d investment.Draft) (investment.Draft, error) {
	d.UpdatedAt = time.Now().UTC()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO drafts (user_id, project_id, model_id, slots, step, version, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6, $7)
		ON CONFLICT (user_id, project_id) DO UPDATE
		SET model_id = EXCLUDED.model_id,
		    slots = EXCLUDED.slots,
		    step = EXCLUDED.step,
		    version = drafts.version + 1,
		    updated_at = EXCLUDED.updated_at,
		    expires_at = EXCLUDED.expires_at
		RETURNING version
	`, d.UserID, d.ProjectID, d.ModelID, d.Slots, d.Step, d.UpdatedAt, d.ExpiresAt).Scan(&d.Version)
	if err != nil {
		return investment.Draft{}, fmt.Errorf("upsert draft: %w", err)
	}
	return d, nil
}

func (s *Store) GetDraft(ctx context.Context, userID int64, projectID string) (investment.Draft, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, project_id, model_id, slots, step, version, updated_at, expires_at
		FROM drafts
		WHERE user_id = $1 AND project_id = $2
	`, userID, projectID)

	var d investment.Draft
	err := row.Scan(&d.UserID, &d.ProjectID, &d.ModelID, &d.Slots, &d.Step, &d.Version, &d.UpdatedAt, &d.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return investment.Draft{}, storage.ErrNotFound
		}
		return investment.Draft{}, fmt.Errorf("scan draft: %w", err)
	}
	return d, nil
}

func (s *Store) DeleteDraft(ctx context.Context, userID int64, projectID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM drafts
		WHERE user_id = $1 AND project_id = $2
	`, userID, projectID)
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}
