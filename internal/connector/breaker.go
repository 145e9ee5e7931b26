// internal/connector/breaker.go
package connector

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/xkilldash9x/snapreg/internal/config"
)

// ErrCircuitOpen is returned without calling through while the breaker is
// open, or while a half-open breaker already has its probe in flight.
var ErrCircuitOpen = errors.New("circuit open")

// Breaker guards calls to one manufacturer endpoint. It trips after
// Threshold consecutive failures, stays open for Timeout, and closes again
// after SuccessThreshold consecutive half-open successes. Half-open probes
// run one at a time and any failure re-opens it.
type Breaker struct {
	name   string
	cfg    config.BreakerConfig
	logger *zap.Logger

	mu sync.RWMutex
	cb *gobreaker.CircuitBreaker[*APIResponse]

	// probing is held by the single call allowed through while the
	// breaker is not closed.
	probing atomic.Bool
}

// Metrics is a point-in-time view of a breaker. The counters cover the
// current state only; gobreaker clears them on every transition.
type Metrics struct {
	State                string `json:"state"`
	Requests             uint32 `json:"requests"`
	TotalSuccesses       uint32 `json:"totalSuccesses"`
	TotalFailures        uint32 `json:"totalFailures"`
	ConsecutiveSuccesses uint32 `json:"consecutiveSuccesses"`
	ConsecutiveFailures  uint32 `json:"consecutiveFailures"`
}

// NewBreaker builds a breaker; zero settings take the package defaults.
func NewBreaker(name string, cfg config.BreakerConfig, logger *zap.Logger) *Breaker {
	if cfg.Threshold == 0 {
		cfg.Threshold = config.DefaultBreakerThreshold
	}
	if cfg.SuccessThreshold == 0 {
		cfg.SuccessThreshold = config.DefaultBreakerSuccessThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultBreakerTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Breaker{name: name, cfg: cfg, logger: logger.Named("breaker")}
	b.cb = b.build()
	return b
}

func (b *Breaker) build() *gobreaker.CircuitBreaker[*APIResponse] {
	threshold := b.cfg.Threshold
	return gobreaker.NewCircuitBreaker[*APIResponse](gobreaker.Settings{
		Name: b.name,
		// Probes are serialized by Execute; this caps them per half-open period.
		MaxRequests: b.cfg.SuccessThreshold,
		Timeout:     b.cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn("Circuit breaker state change.",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// Execute runs fn through the breaker.
func (b *Breaker) Execute(fn func() (*APIResponse, error)) (*APIResponse, error) {
	b.mu.RLock()
	cb := b.cb
	b.mu.RUnlock()

	// The open to half-open transition happens lazily inside gobreaker, so
	// the gate covers both states.
	if cb.State() != gobreaker.StateClosed {
		if !b.probing.CompareAndSwap(false, true) {
			return nil, fmt.Errorf("%s: %w: probe already in flight", b.name, ErrCircuitOpen)
		}
		defer b.probing.Store(false)
	}

	resp, err := cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %w: %w", b.name, ErrCircuitOpen, err)
	}
	return resp, err
}

// State is one of "closed", "half-open" or "open".
func (b *Breaker) State() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cb.State().String()
}

func (b *Breaker) Metrics() Metrics {
	b.mu.RLock()
	defer b.mu.RUnlock()
	counts := b.cb.Counts()
	return Metrics{
		State:                b.cb.State().String(),
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
	}
}

// Reset forces the breaker closed with cleared counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cb = b.build()
	b.logger.Info("Circuit breaker reset.", zap.String("breaker", b.name))
}
