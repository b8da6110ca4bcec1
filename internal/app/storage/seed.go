package storage

import (
	"context"
	"fmt"

	"github.com/investestate/platform/internal/app/domain/project"
)

// SeedProjects loads the demo catalogue: two projects and their Gold,
// Platinum and Virtual tiers. A store that already holds projects is left
// untouched, so repeated startups are safe.
func SeedProjects(ctx context.Context, store ProjectStore) error {
	existing, err := store.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	projects := []project.Project{
		{
			ID:                "aura",
			Name:              "Aura",
			Location:          "Bangalore",
			MinimumInvestment: 100000,
			EstimatedReturns:  14,
			LockInPeriod:      3,
			AvailableSlots:    18,
			Image:             "https://images.unsplash.com/photo-1560518883-ce09059eeffa?auto=format&fit=crop&w=800&q=80",
		},
		{
			ID:                "subha",
			Name:              "Codename Skylife 2100",
			Location:          "Mysore",
			MinimumInvestment: 75000,
			EstimatedReturns:  12,
			LockInPeriod:      3,
			AvailableSlots:    25,
			Image:             "https://images.unsplash.com/photo-1500382017468-9049fed747ef?auto=format&fit=crop&w=800&q=80",
		},
	}

	models := []project.Model{
		{ID: "aura-gold", Name: "Gold", MinInvestment: 100000, ROI: 12, LockInPeriod: 3, AvailableSlots: 5, ProjectID: "aura"},
		{ID: "aura-platinum", Name: "Platinum", MinInvestment: 100000, ROI: 14, LockInPeriod: 4, AvailableSlots: 3, ProjectID: "aura"},
		{ID: "aura-virtual", Name: "Virtual", MinInvestment: 100000, ROI: 10, LockInPeriod: 2, AvailableSlots: 10, ProjectID: "aura"},
		{ID: "subha-gold", Name: "Gold", MinInvestment: 75000, ROI: 12, LockInPeriod: 3, AvailableSlots: 10, ProjectID: "subha"},
		{ID: "subha-platinum", Name: "Platinum", MinInvestment: 75000, ROI: 14, LockInPeriod: 4, AvailableSlots: 5, ProjectID: "subha"},
		{ID: "subha-virtual", Name: "Virtual", MinInvestment: 75000, ROI: 10, LockInPeriod: 2, AvailableSlots: 15, ProjectID: "subha"},
	}

	for _, p := range projects {
		if _, err := store.CreateProject(ctx, p); err != nil {
			return fmt.Errorf("seed project %s: %w", p.ID, err)
		}
	}
	for _, m := range models {
		if _, err := store.CreateModel(ctx, m); err != nil {
			return fmt.Errorf("seed model %s: %w", m.ID, err)
		}
	}
	return nil
}
