package investments

import (
	"context"
	"sync"
	"time"

	"github.com/investestate/platform/internal/app/domain/investment"
	"github.com/investestate/platform/internal/app/storage"
	"github.com/investestate/platform/internal/app/system"
	"github.com/investestate/platform/pkg/logger"
)

// MaturityPoller watches active investments and marks them completed once
// their maturity date passes.
type MaturityPoller struct {
	store    storage.InvestmentStore
	interval time.Duration
	log      *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

var _ system.Service = (*MaturityPoller)(nil)

// NewMaturityPoller constructs a poller with the given sweep interval
// (defaults to one hour).
func NewMaturityPoller(store storage.InvestmentStore, interval time.Duration, log *logger.Logger) *MaturityPoller {
	if log == nil {
		log = logger.NewDefault("investment-maturity")
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &MaturityPoller{store: store, interval: interval, log: log}
}

func (p *MaturityPoller) Name() string { return "investment-maturity" }

func (p *MaturityPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				p.tick(runCtx)
			}
		}
	}()

	p.log.Info("investment maturity poller started")
	return nil
}

func (p *MaturityPoller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

func (p *MaturityPoller) tick(ctx context.Context) {
	matured, err := p.store.ListMaturedActive(ctx, time.Now().UTC())
	if err != nil {
		p.log.WithError(err).Warn("list matured investments failed")
		return
	}

	for _, inv := range matured {
		if _, err := p.store.SetInvestmentStatus(ctx, inv.ID, investment.StatusCompleted); err != nil {
			p.log.WithError(err).Warnf("complete investment %d failed", inv.ID)
			continue
		}
		p.log.WithField("investment_id", inv.ID).
			WithField("user_id", inv.UserID).
			Info("investment matured")
	}
}
