package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/investestate/platform/pkg/logger"
)

// HTTPProvider creates intents against a Stripe-compatible REST endpoint.
type HTTPProvider struct {
	client    *http.Client
	endpoint  string
	secretKey string
	log       *logger.Logger
}

// NewHTTPProvider constructs a provider for the given intents endpoint.
func NewHTTPProvider(client *http.Client, endpoint, secretKey string, log *logger.Logger) (*HTTPProvider, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("payment endpoint required")
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("parse payment endpoint: %w", err)
	}
	secretKey = strings.TrimSpace(secretKey)
	if secretKey == "" {
		return nil, fmt.Errorf("payment secret key required")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = logger.NewDefault("payments-http")
	}
	return &HTTPProvider{
		client:    client,
		endpoint:  endpoint,
		secretKey: secretKey,
		log:       log,
	}, nil
}

func (p *HTTPProvider) CreateIntent(ctx context.Context, amount int64, currency string) (Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", currency)
	form.Set("automatic_payment_methods[enabled]", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Intent{}, fmt.Errorf("build intent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := p.client.Do(req)
	if err != nil {
		return Intent{}, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var failure struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&failure); err == nil && failure.Error.Message != "" {
			return Intent{}, fmt.Errorf("%w: %s", ErrProvider, failure.Error.Message)
		}
		return Intent{}, fmt.Errorf("%w: status %d", ErrProvider, resp.StatusCode)
	}

	var payload struct {
		ID           string `json:"id"`
		ClientSecret string `json:"client_secret"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Intent{}, fmt.Errorf("decode intent response: %w", err)
	}
	if payload.ID == "" || payload.ClientSecret == "" {
		return Intent{}, fmt.Errorf("%w: incomplete intent response", ErrProvider)
	}
	return Intent{ID: payload.ID, ClientSecret: payload.ClientSecret}, nil
}
