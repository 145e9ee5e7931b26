// internal/connector/ratelimit.go
package connector

import (
	"context"
	"sync"
	"time"

	"github.com/xkilldash9x/snapreg/internal/config"
)

// TokenBucket holds MaxRequests tokens and refills to full capacity once per
// Window. It is a periodic reset, not a smooth leak.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   int
	tokens     int
	window     time.Duration
	lastRefill time.Time
	now        func() time.Time
}

// NewTokenBucket starts full. Zero settings take the package defaults.
func NewTokenBucket(cfg config.RateLimitConfig) *TokenBucket {
	capacity := cfg.MaxRequests
	if capacity <= 0 {
		capacity = config.DefaultRateLimitMaxRequests
	}
	window := cfg.Window
	if window <= 0 {
		window = config.DefaultRateLimitWindow
	}
	tb := &TokenBucket{capacity: capacity, tokens: capacity, window: window, now: time.Now}
	tb.lastRefill = tb.now()
	return tb
}

// Acquire takes one token, blocking until the next refill when the bucket is
// empty. It returns ctx.Err() if ctx ends first.
func (tb *TokenBucket) Acquire(ctx context.Context) error {
	for {
		wait, ok := tb.take()
		if ok {
			return nil
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// TryAcquire takes a token only if one is available right now.
func (tb *TokenBucket) TryAcquire() bool {
	_, ok := tb.take()
	return ok
}

// Available reports the tokens left in the current window.
func (tb *TokenBucket) Available() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	return tb.tokens
}

func (tb *TokenBucket) take() (time.Duration, bool) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	if tb.tokens > 0 {
		tb.tokens--
		return 0, true
	}
	return tb.window - tb.now().Sub(tb.lastRefill), false
}

// refill must be called with mu held.
func (tb *TokenBucket) refill() {
	now := tb.now()
	if elapsed := now.Sub(tb.lastRefill); elapsed >= tb.window {
		tb.tokens = tb.capacity
		tb.lastRefill = now
	}
}
