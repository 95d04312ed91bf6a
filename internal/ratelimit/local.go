package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LocalLimiter is an in-process token bucket per caller, used when no Redis
// is configured. Each bucket holds perMinute tokens and refills continuously.
// Buckets idle for a full Window are refilled anyway and get evicted.
type LocalLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	perMinute int
	now       func() time.Time
	lastSweep time.Time
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewLocalLimiter creates a LocalLimiter.
func NewLocalLimiter(perMinute int) *LocalLimiter {
	return &LocalLimiter{
		buckets:   make(map[string]*bucket),
		perMinute: normalizeLimit(perMinute),
		now:       time.Now,
	}
}

func (l *LocalLimiter) Allow(ctx context.Context, caller string) (Result, error) {
	now := l.now()
	lim := l.bucket(caller, now)

	res := Result{Limit: l.perMinute}
	r := lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		res.RetryAfter = delay
	} else {
		res.Allowed = true
	}
	res.Remaining = int(lim.TokensAt(now))
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	return res, nil
}

func (l *LocalLimiter) Ping(ctx context.Context) error {
	return nil
}

// Len returns the number of tracked callers.
func (l *LocalLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *LocalLimiter) bucket(caller string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= Window {
		l.sweep(now)
	}

	b, ok := l.buckets[caller]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Every(Window/time.Duration(l.perMinute)), l.perMinute)}
		l.buckets[caller] = b
	}
	b.lastSeen = now
	return b.lim
}

// sweep drops buckets not seen for a Window. Callers must hold mu.
func (l *LocalLimiter) sweep(now time.Time) {
	for caller, b := range l.buckets {
		if now.Sub(b.lastSeen) >= Window {
			delete(l.buckets, caller)
		}
	}
	l.lastSweep = now
}

// Compile-time check that LocalLimiter implements Limiter.
var _ Limiter = (*LocalLimiter)(nil)
