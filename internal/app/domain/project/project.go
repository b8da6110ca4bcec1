// Package project holds the catalogue types: real-estate projects open for
// investment and the tiered models sold against them.
package project

// Project is a real-estate development open for investment. Projects are
// seeded at startup; their headline slot count is informational, the sellable
// capacity lives on the models.
type Project struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Location          string  `json:"location"`
	MinimumInvestment int64   `json:"minimumInvestment"`
	EstimatedReturns  float64 `json:"estimatedReturns"`
	LockInPeriod      int     `json:"lockInPeriod"`
	AvailableSlots    int     `json:"availableSlots"`
	Image             string  `json:"image"`
}

// Model is a named investment tier (Gold/Platinum/Virtual) within a project.
// AvailableSlots is the only mutable field: it strictly decreases as
// investments are accepted and is never re-incremented.
type Model struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	MinInvestment  int64   `json:"minInvestment"`
	ROI            float64 `json:"roi"`
	LockInPeriod   int     `json:"lockInPeriod"`
	AvailableSlots int     `json:"availableSlots"`
	ProjectID      string  `json:"projectId"`
}
