package investment

import "time"

// Status of an investment. Investments are created active and flip to
// completed once their maturity date passes.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Investment is a user's completed purchase of slots in a project model.
// Project and model names are denormalized for display. Immutable after
// creation except for the status transition.
type Investment struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"userId"`
	ProjectID       string    `json:"projectId"`
	ProjectName     string    `json:"projectName"`
	ModelID         string    `json:"modelId"`
	ModelName       string    `json:"modelName"`
	Slots           int       `json:"slots"`
	Amount          int64     `json:"amount"`
	ExpectedReturns float64   `json:"expectedReturns"`
	LockInPeriod    int       `json:"lockInPeriod"`
	MaturityDate    time.Time `json:"maturityDate"`
	CreatedAt       time.Time `json:"createdAt"`
	Status          Status    `json:"status"`
}

// Draft is an unfinished wizard selection for a project, persisted
// server-side per user so it can be resumed across devices. Version bumps on
// every save; drafts expire rather than living forever.
type Draft struct {
	UserID    int64     `json:"userId"`
	ProjectID string    `json:"projectId"`
	ModelID   string    `json:"modelId,omitempty"`
	Slots     int       `json:"slots"`
	Step      int       `json:"step"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
