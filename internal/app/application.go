package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	authsvc "github.com/investestate/platform/internal/app/services/auth"
	draftsvc "github.com/investestate/platform/internal/app/services/drafts"
	investsvc "github.com/investestate/platform/internal/app/services/investments"
	paysvc "github.com/investestate/platform/internal/app/services/payments"
	projectsvc "github.com/investestate/platform/internal/app/services/projects"
	"github.com/investestate/platform/internal/app/storage"
	"github.com/investestate/platform/internal/app/storage/memory"
	"github.com/investestate/platform/internal/app/system"
	"github.com/investestate/platform/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users       storage.UserStore
	OTPs        storage.OTPStore
	Projects    storage.ProjectStore
	Investments storage.InvestmentStore
	Drafts      storage.DraftStore
}

// Config carries tunables for the application services.
type Config struct {
	// OTPTTL is the validity window for issued login codes.
	OTPTTL time.Duration
	// DraftTTL is how long an untouched investment draft survives.
	DraftTTL time.Duration
	// MaturityInterval is the sweep interval for completing matured
	// investments.
	MaturityInterval time.Duration
	// PaymentIntentsURL and PaymentSecretKey configure the card processor.
	// Leaving the URL empty disables payment intents.
	PaymentIntentsURL string
	PaymentSecretKey  string
	// SeedDemoData loads the demo projects into an empty project store.
	SeedDemoData bool
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Auth        *authsvc.Service
	Projects    *projectsvc.Service
	Investments *investsvc.Service
	Drafts      *draftsvc.Service
	Payments    *paysvc.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, cfg Config, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.OTPs == nil {
		stores.OTPs = mem
	}
	if stores.Projects == nil {
		stores.Projects = mem
	}
	if stores.Investments == nil {
		stores.Investments = mem
	}
	if stores.Drafts == nil {
		stores.Drafts = mem
	}

	if cfg.SeedDemoData {
		if err := storage.SeedProjects(context.Background(), stores.Projects); err != nil {
			return nil, fmt.Errorf("seed demo projects: %w", err)
		}
	}

	manager := system.NewManager()

	authService := authsvc.New(stores.Users, stores.OTPs, log, authsvc.WithCodeTTL(cfg.OTPTTL))
	projectService := projectsvc.New(stores.Projects, log)
	investService := investsvc.New(stores.Projects, stores.Investments, log)
	draftService := draftsvc.New(stores.Projects, stores.Drafts, cfg.DraftTTL, log)

	var provider paysvc.Provider
	if endpoint := strings.TrimSpace(cfg.PaymentIntentsURL); endpoint != "" {
		httpClient := &http.Client{Timeout: 10 * time.Second}
		p, err := paysvc.NewHTTPProvider(httpClient, endpoint, cfg.PaymentSecretKey, log)
		if err != nil {
			return nil, fmt.Errorf("configure payment provider: %w", err)
		}
		provider = p
	} else {
		log.Warn("PAYMENT_INTENTS_URL not set; payment intents disabled")
	}
	paymentService := paysvc.New(provider, log)

	poller := investsvc.NewMaturityPoller(stores.Investments, cfg.MaturityInterval, log)
	if err := manager.Register(poller); err != nil {
		return nil, fmt.Errorf("register %s: %w", poller.Name(), err)
	}
	for _, name := range []string{"auth", "projects", "investments", "drafts", "payments"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	return &Application{
		manager:     manager,
		log:         log,
		Auth:        authService,
		Projects:    projectService,
		Investments: investService,
		Drafts:      draftService,
		Payments:    paymentService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
