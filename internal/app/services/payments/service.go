// Package payments creates payment intents with an external card processor.
package payments

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/investestate/platform/pkg/logger"
)

var (
	// ErrNotConfigured is returned when no payment provider is wired.
	ErrNotConfigured = errors.New("payment provider not configured")
	// ErrProvider wraps failures reported by the payment processor.
	ErrProvider = errors.New("payment provider error")
)

// Intent is the client-facing handle for completing a card payment.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
}

// Provider creates intents with the upstream processor. Amounts are in the
// currency's smallest unit.
type Provider interface {
	CreateIntent(ctx context.Context, amount int64, currency string) (Intent, error)
}

// Service converts rupee amounts and delegates to the provider.
type Service struct {
	provider Provider
	log      *logger.Logger
}

// New constructs a payment service. provider may be nil, in which case
// CreateIntent reports ErrNotConfigured.
func New(provider Provider, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("payments")
	}
	return &Service{provider: provider, log: log}
}

// CreateIntent opens a payment intent for an amount in rupees.
func (s *Service) CreateIntent(ctx context.Context, amount float64) (Intent, error) {
	if amount <= 0 {
		return Intent{}, fmt.Errorf("amount must be positive")
	}
	if s.provider == nil {
		return Intent{}, ErrNotConfigured
	}

	paise := int64(math.Round(amount * 100))
	intent, err := s.provider.CreateIntent(ctx, paise, "inr")
	if err != nil {
		return Intent{}, err
	}
	s.log.WithField("intent_id", intent.ID).WithField("amount_paise", paise).Info("payment intent created")
	return intent, nil
}
