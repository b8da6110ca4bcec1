package drafts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/investestate/platform/internal/app/domain/investment"
	"github.com/investestate/platform/internal/app/storage"
	"github.com/investestate/platform/internal/app/storage/memory"
)

func newStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	if err := storage.SeedProjects(context.Background(), store); err != nil {
		t.Fatalf("seed projects: %v", err)
	}
	return store
}

func TestService_SaveGetDiscard(t *testing.T) {
	store := newStore(t)
	svc := New(store, store, 0, nil)

	saved, err := svc.Save(context.Background(), investment.Draft{
		UserID:    1,
		ProjectID: "aura",
		ModelID:   "aura-gold",
		Slots:     2,
		Step:      1,
	})
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if saved.Version != 1 {
		t.Fatalf("first save should be version 1, got %d", saved.Version)
	}
	if saved.ExpiresAt.Before(time.Now().Add(6 * 24 * time.Hour)) {
		t.Fatalf("expiry not applied: %v", saved.ExpiresAt)
	}

	saved, err = svc.Save(context.Background(), investment.Draft{
		UserID:    1,
		ProjectID: "aura",
		ModelID:   "aura-platinum",
		Slots:     1,
		Step:      2,
	})
	if err != nil {
		t.Fatalf("resave draft: %v", err)
	}
	if saved.Version != 2 {
		t.Fatalf("resave should bump version, got %d", saved.Version)
	}

	got, stale, err := svc.Get(context.Background(), 1, "aura")
	if err != nil {
		t.Fatalf("get draft: %v", err)
	}
	if stale {
		t.Fatal("fresh draft should not be stale")
	}
	if got.ModelID != "aura-platinum" || got.Step != 2 {
		t.Fatalf("unexpected draft: %+v", got)
	}

	if err := svc.Discard(context.Background(), 1, "aura"); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if _, _, err := svc.Get(context.Background(), 1, "aura"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after discard, got %v", err)
	}
	// discarding again is a no-op
	if err := svc.Discard(context.Background(), 1, "aura"); err != nil {
		t.Fatalf("second discard: %v", err)
	}
}

func TestService_SaveValidation(t *testing.T) {
	store := newStore(t)
	svc := New(store, store, 0, nil)

	cases := []investment.Draft{
		{UserID: 0, ProjectID: "aura"},
		{UserID: 1, ProjectID: ""},
		{UserID: 1, ProjectID: "nope"},
		{UserID: 1, ProjectID: "aura", ModelID: "nope"},
		{UserID: 1, ProjectID: "aura", ModelID: "subha-gold"},
		{UserID: 1, ProjectID: "aura", ModelID: "aura-gold", Slots: -1},
	}
	for i, d := range cases {
		if _, err := svc.Save(context.Background(), d); err == nil {
			t.Fatalf("case %d should fail: %+v", i, d)
		}
	}
}

func TestService_GetExpired(t *testing.T) {
	store := newStore(t)
	svc := New(store, store, time.Nanosecond, nil)

	if _, err := svc.Save(context.Background(), investment.Draft{UserID: 1, ProjectID: "aura", Slots: 1}); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	time.Sleep(time.Millisecond)

	if _, _, err := svc.Get(context.Background(), 1, "aura"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired draft should be gone, got %v", err)
	}
	// the expired row was deleted, not just hidden
	if _, err := store.GetDraft(context.Background(), 1, "aura"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expired draft should be deleted from the store, got %v", err)
	}
}

func TestService_GetStale(t *testing.T) {
	store := newStore(t)
	svc := New(store, store, 0, nil)

	// aura-platinum has 3 slots; draft asks for all of them
	if _, err := svc.Save(context.Background(), investment.Draft{
		UserID:    1,
		ProjectID: "aura",
		ModelID:   "aura-platinum",
		Slots:     3,
	}); err != nil {
		t.Fatalf("save draft: %v", err)
	}

	_, stale, err := svc.Get(context.Background(), 1, "aura")
	if err != nil {
		t.Fatalf("get draft: %v", err)
	}
	if stale {
		t.Fatal("draft within availability should not be stale")
	}

	// someone else buys 1 slot, leaving 2
	if _, err := store.CreateInvestment(context.Background(), investment.Investment{
		UserID:  2,
		ModelID: "aura-platinum",
		Slots:   1,
		Status:  investment.StatusActive,
	}); err != nil {
		t.Fatalf("create investment: %v", err)
	}

	_, stale, err = svc.Get(context.Background(), 1, "aura")
	if err != nil {
		t.Fatalf("get draft after purchase: %v", err)
	}
	if !stale {
		t.Fatal("draft exceeding availability should be stale")
	}
}
