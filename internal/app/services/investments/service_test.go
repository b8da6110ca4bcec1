package investments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/investestate/platform/internal/app/domain/investment"
	"github.com/investestate/platform/internal/app/domain/project"
	"github.com/investestate/platform/internal/app/storage"
	"github.com/investestate/platform/internal/app/storage/memory"
)

func seedCatalogue(t *testing.T, store *memory.Store) {
	t.Helper()
	if err := storage.SeedProjects(context.Background(), store); err != nil {
		t.Fatalf("seed projects: %v", err)
	}
}

func TestService_Create(t *testing.T) {
	store := memory.New()
	seedCatalogue(t, store)
	svc := New(store, store, nil)

	inv, err := svc.Create(context.Background(), 1, "aura", "aura-gold", 2)
	if err != nil {
		t.Fatalf("create investment: %v", err)
	}
	if inv.Amount != 200000 {
		t.Fatalf("amount should be minInvestment*slots, got %d", inv.Amount)
	}
	if inv.ProjectName != "Aura" || inv.ModelName != "Gold" {
		t.Fatalf("denormalised names wrong: %q / %q", inv.ProjectName, inv.ModelName)
	}
	if inv.Status != investment.StatusActive {
		t.Fatalf("unexpected status: %s", inv.Status)
	}
	if inv.ExpectedReturns != 12 || inv.LockInPeriod != 3 {
		t.Fatalf("model terms not carried: roi=%v lockIn=%d", inv.ExpectedReturns, inv.LockInPeriod)
	}

	wantMaturity := time.Now().UTC().AddDate(3, 0, 0)
	if diff := inv.MaturityDate.Sub(wantMaturity); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("maturity date off: %v", inv.MaturityDate)
	}

	model, err := store.GetModel(context.Background(), "aura-gold")
	if err != nil {
		t.Fatalf("get model: %v", err)
	}
	if model.AvailableSlots != 3 {
		t.Fatalf("slots not decremented: %d", model.AvailableSlots)
	}

	list, err := svc.ListByUser(context.Background(), 1)
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(list) != 1 || list[0].ID != inv.ID {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestService_CreateInsufficientSlots(t *testing.T) {
	store := memory.New()
	seedCatalogue(t, store)
	svc := New(store, store, nil)

	// subha-gold starts with 10 slots
	if _, err := svc.Create(context.Background(), 1, "subha", "subha-gold", 11); !errors.Is(err, ErrInsufficientSlots) {
		t.Fatalf("expected ErrInsufficientSlots, got %v", err)
	}

	model, err := store.GetModel(context.Background(), "subha-gold")
	if err != nil {
		t.Fatalf("get model: %v", err)
	}
	if model.AvailableSlots != 10 {
		t.Fatalf("failed purchase must not mutate slots: %d", model.AvailableSlots)
	}
	list, err := svc.ListByUser(context.Background(), 1)
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("failed purchase must not create an investment: %+v", list)
	}
}

func TestService_CreateValidation(t *testing.T) {
	store := memory.New()
	seedCatalogue(t, store)
	svc := New(store, store, nil)

	if _, err := svc.Create(context.Background(), 1, "nope", "aura-gold", 1); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
	if _, err := svc.Create(context.Background(), 1, "aura", "nope", 1); !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound, got %v", err)
	}
	// model exists but belongs to the other project
	if _, err := svc.Create(context.Background(), 1, "aura", "subha-gold", 1); !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound for cross-project model, got %v", err)
	}
	if _, err := svc.Create(context.Background(), 1, "aura", "aura-gold", 0); err == nil {
		t.Fatal("zero slots should fail")
	}
	if _, err := svc.Create(context.Background(), 1, "aura", "aura-gold", -2); err == nil {
		t.Fatal("negative slots should fail")
	}
	if _, err := svc.Create(context.Background(), 0, "aura", "aura-gold", 1); err == nil {
		t.Fatal("missing user should fail")
	}

	model, _ := store.GetModel(context.Background(), "aura-gold")
	if model.AvailableSlots != 5 {
		t.Fatalf("validation failures must not mutate slots: %d", model.AvailableSlots)
	}
}

func TestService_CreateExampleScenario(t *testing.T) {
	store := memory.New()
	if _, err := store.CreateProject(context.Background(), project.Project{ID: "p1", Name: "P1"}); err != nil {
		t.Fatalf("create project: %v", err)
	}
	if _, err := store.CreateModel(context.Background(), project.Model{ID: "m1", Name: "Gold", MinInvestment: 100000, ROI: 12, LockInPeriod: 3, AvailableSlots: 10, ProjectID: "p1"}); err != nil {
		t.Fatalf("create model: %v", err)
	}
	svc := New(store, store, nil)

	inv, err := svc.Create(context.Background(), 1, "p1", "m1", 2)
	if err != nil {
		t.Fatalf("create investment: %v", err)
	}
	if inv.Amount != 200000 {
		t.Fatalf("amount should be 200000, got %d", inv.Amount)
	}
	m, _ := store.GetModel(context.Background(), "m1")
	if m.AvailableSlots != 8 {
		t.Fatalf("8 slots should remain, got %d", m.AvailableSlots)
	}

	if _, err := svc.Create(context.Background(), 1, "p1", "m1", 9); !errors.Is(err, ErrInsufficientSlots) {
		t.Fatalf("expected ErrInsufficientSlots, got %v", err)
	}
	m, _ = store.GetModel(context.Background(), "m1")
	if m.AvailableSlots != 8 {
		t.Fatalf("failed purchase must leave 8 slots, got %d", m.AvailableSlots)
	}
}

func TestService_CreateConcurrentNoOversell(t *testing.T) {
	store := memory.New()
	seedCatalogue(t, store)
	svc := New(store, store, nil)

	// aura-virtual has 10 slots; 25 buyers race for one slot each.
	var wg sync.WaitGroup
	results := make(chan error, 25)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := svc.Create(context.Background(), userID, "aura", "aura-virtual", 1)
			results <- err
		}(int64(i + 1))
	}
	wg.Wait()
	close(results)

	var ok, rejected int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientSlots):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 10 || rejected != 15 {
		t.Fatalf("oversold: %d succeeded, %d rejected", ok, rejected)
	}

	model, _ := store.GetModel(context.Background(), "aura-virtual")
	if model.AvailableSlots != 0 {
		t.Fatalf("slots should be exhausted, got %d", model.AvailableSlots)
	}
}

func TestService_QuoteFor(t *testing.T) {
	store := memory.New()
	seedCatalogue(t, store)
	svc := New(store, store, nil)

	q, err := svc.QuoteFor(context.Background(), "aura", "aura-gold", 2)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.Amount != 200000 {
		t.Fatalf("unexpected amount: %d", q.Amount)
	}
	// 200000 * 1.12^3 = 280985.6
	if q.MaturityValue != 280986 {
		t.Fatalf("unexpected maturity value: %d", q.MaturityValue)
	}

	if _, err := svc.QuoteFor(context.Background(), "aura", "subha-gold", 1); !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound, got %v", err)
	}
	if _, err := svc.QuoteFor(context.Background(), "aura", "aura-gold", 0); err == nil {
		t.Fatal("zero slots should fail")
	}
}

func TestMaturityValue(t *testing.T) {
	cases := []struct {
		principal int64
		roi       float64
		years     int
		want      int64
	}{
		{100000, 12, 3, 140493}, // 100000 * 1.12^3
		{75000, 10, 2, 90750},   // 75000 * 1.1^2
		{100000, 14, 4, 168896}, // 100000 * 1.14^4
		{100000, 0, 3, 100000},  // zero interest
		{0, 12, 3, 0},           // zero principal
	}
	for _, tc := range cases {
		if got := MaturityValue(tc.principal, tc.roi, tc.years); got != tc.want {
			t.Fatalf("MaturityValue(%d, %v, %d) = %d, want %d", tc.principal, tc.roi, tc.years, got, tc.want)
		}
	}
}
