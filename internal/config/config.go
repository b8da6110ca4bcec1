// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds everything the server needs to start.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string
	// DatabaseURL selects PostgreSQL storage; empty runs in-memory.
	DatabaseURL string
	// SessionSecret signs session cookies.
	SessionSecret string
	// SecureCookies marks cookies Secure; enable when serving over TLS.
	SecureCookies bool
	// CORSOrigins lists allowed browser origins.
	CORSOrigins []string
	// RequestsPerSecond and Burst bound per-IP request rates.
	RequestsPerSecond int
	Burst             int

	// OTPTTL is the validity window of login codes.
	OTPTTL time.Duration
	// DraftTTL is the lifetime of untouched purchase drafts.
	DraftTTL time.Duration
	// MaturityInterval is the sweep interval for matured investments.
	MaturityInterval time.Duration

	// PaymentIntentsURL and PaymentSecretKey configure the card processor.
	PaymentIntentsURL string
	PaymentSecretKey  string

	// AuditLogPath, when set, appends an audit trail as JSONL.
	AuditLogPath string
	// SeedDemoData loads the demo projects into an empty store.
	SeedDemoData bool
}

// Load reads configuration from the environment, applying defaults suitable
// for local development.
func Load() (Config, error) {
	cfg := Config{
		Addr:              envOr("ADDR", ":8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		SessionSecret:     envOr("SESSION_SECRET", "investestate-secret"),
		PaymentIntentsURL: os.Getenv("PAYMENT_INTENTS_URL"),
		PaymentSecretKey:  os.Getenv("PAYMENT_SECRET_KEY"),
		AuditLogPath:      os.Getenv("AUDIT_LOG_PATH"),
	}

	var err error
	if cfg.SecureCookies, err = envBool("SECURE_COOKIES", false); err != nil {
		return Config{}, err
	}
	if cfg.SeedDemoData, err = envBool("SEED_DEMO_DATA", true); err != nil {
		return Config{}, err
	}
	if cfg.OTPTTL, err = envDuration("OTP_TTL", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.DraftTTL, err = envDuration("DRAFT_TTL", 7*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.MaturityInterval, err = envDuration("MATURITY_INTERVAL", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.RequestsPerSecond, err = envInt("RATE_LIMIT_RPS", 20); err != nil {
		return Config{}, err
	}
	if cfg.Burst, err = envInt("RATE_LIMIT_BURST", 40); err != nil {
		return Config{}, err
	}

	for _, origin := range strings.Split(envOr("CORS_ORIGINS", "http://localhost:5173"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func envInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}
