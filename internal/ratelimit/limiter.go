// Package ratelimit implements per-caller request limits for the proxy API.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

const defaultRequestsPerMinute = 30

// Window is the fixed accounting period for limits.
const Window = time.Minute

// Result describes the limiter decision for one request.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether a caller may make another request.
// Implementations must be safe for concurrent use.
type Limiter interface {
	Allow(ctx context.Context, caller string) (Result, error)
	Ping(ctx context.Context) error
}

func Key(caller string) string {
	return fmt.Sprintf("ratelimit:%s", caller)
}

func normalizeLimit(perMinute int) int {
	if perMinute <= 0 {
		return defaultRequestsPerMinute
	}
	return perMinute
}
