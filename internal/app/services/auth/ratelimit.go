package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// phoneLimiter throttles OTP sends per phone number. Limiters are pruned
// after a quiet period so the map does not grow without bound.
type phoneLimiter struct {
	mu       sync.Mutex
	limiters map[string]*phoneEntry
	limit    rate.Limit
	burst    int
	maxIdle  time.Duration
	lastSeen time.Time
}

type phoneEntry struct {
	limiter *rate.Limiter
	seen    time.Time
}

func newPhoneLimiter() *phoneLimiter {
	return &phoneLimiter{
		limiters: make(map[string]*phoneEntry),
		// one send per 30s with a burst of 3 covers retries without
		// enabling SMS abuse
		limit:   rate.Every(30 * time.Second),
		burst:   3,
		maxIdle: 10 * time.Minute,
	}
}

func (l *phoneLimiter) allow(phone string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSeen) > l.maxIdle {
		l.prune(now)
	}
	l.lastSeen = now

	entry, ok := l.limiters[phone]
	if !ok {
		entry = &phoneEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[phone] = entry
	}
	entry.seen = now
	return entry.limiter.Allow()
}

func (l *phoneLimiter) prune(now time.Time) {
	for phone, entry := range l.limiters {
		if now.Sub(entry.seen) > l.maxIdle {
			delete(l.limiters, phone)
		}
	}
}
