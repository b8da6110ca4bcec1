package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/investestate/platform/internal/app/domain/investment"
	"github.com/investestate/platform/internal/app/domain/project"
	"github.com/investestate/platform/internal/app/domain/user"
	"github.com/investestate/platform/internal/app/storage"
)

// openTestDB connects to the database named by TEST_DATABASE_URL. Tests are
// skipped when the variable is unset so the suite stays runnable without an
// instance.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	_ = godotenv.Load() // allow .env for local runs
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Ping(); err != nil {
		t.Fatalf("ping database: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for _, table := range []string{"drafts", "investments", "otps", "investment_models", "projects", "users"} {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			t.Fatalf("clean %s: %v", table, err)
		}
	}
	return db
}

func TestStore_Postgres(t *testing.T) {
	db := openTestDB(t)
	store := New(db)
	ctx := context.Background()

	u, err := store.CreateUser(ctx, user.User{PhoneNumber: "9876543210", Name: "Asha"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := store.CreateUser(ctx, user.User{PhoneNumber: "9876543210", Name: "Ravi"}); !errors.Is(err, storage.ErrPhoneExists) {
		t.Fatalf("expected ErrPhoneExists, got %v", err)
	}

	if _, err := store.CreateProject(ctx, project.Project{ID: "p1", Name: "P1", Location: "Bangalore", MinimumInvestment: 100000, EstimatedReturns: 12, LockInPeriod: 3, AvailableSlots: 5}); err != nil {
		t.Fatalf("create project: %v", err)
	}
	if _, err := store.CreateModel(ctx, project.Model{ID: "m1", Name: "Gold", MinInvestment: 100000, ROI: 12, LockInPeriod: 3, AvailableSlots: 2, ProjectID: "p1"}); err != nil {
		t.Fatalf("create model: %v", err)
	}

	inv, err := store.CreateInvestment(ctx, investment.Investment{
		UserID:       u.ID,
		ProjectID:    "p1",
		ProjectName:  "P1",
		ModelID:      "m1",
		ModelName:    "Gold",
		Slots:        2,
		Amount:       200000,
		MaturityDate: time.Now().UTC().AddDate(3, 0, 0),
		Status:       investment.StatusActive,
	})
	if err != nil {
		t.Fatalf("create investment: %v", err)
	}
	if inv.ID == 0 {
		t.Fatal("investment id not assigned")
	}

	m, err := store.GetModel(ctx, "m1")
	if err != nil {
		t.Fatalf("get model: %v", err)
	}
	if m.AvailableSlots != 0 {
		t.Fatalf("slots not decremented: %d", m.AvailableSlots)
	}

	// the conditional update closes the oversell window
	if _, err := store.CreateInvestment(ctx, investment.Investment{UserID: u.ID, ProjectID: "p1", ModelID: "m1", Slots: 1, Status: investment.StatusActive}); !errors.Is(err, storage.ErrInsufficientSlots) {
		t.Fatalf("expected ErrInsufficientSlots, got %v", err)
	}
	if _, err := store.CreateInvestment(ctx, investment.Investment{UserID: u.ID, ProjectID: "p1", ModelID: "ghost", Slots: 1, Status: investment.StatusActive}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	d, err := store.UpsertDraft(ctx, investment.Draft{UserID: u.ID, ProjectID: "p1", ModelID: "m1", Slots: 1, ExpiresAt: time.Now().UTC().Add(time.Hour)})
	if err != nil {
		t.Fatalf("upsert draft: %v", err)
	}
	if d.Version != 1 {
		t.Fatalf("first draft version should be 1, got %d", d.Version)
	}
	d, err = store.UpsertDraft(ctx, investment.Draft{UserID: u.ID, ProjectID: "p1", ModelID: "m1", Slots: 2, ExpiresAt: time.Now().UTC().Add(time.Hour)})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if d.Version != 2 {
		t.Fatalf("draft version should bump, got %d", d.Version)
	}
}
