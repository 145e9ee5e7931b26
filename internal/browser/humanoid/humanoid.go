// internal/browser/humanoid/humanoid.go
package humanoid

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Humanoid paces UI actions and types text with a human rhythm.
type Humanoid struct {
	// mu guards rng; math/rand sources are not safe for concurrent use.
	mu       sync.Mutex
	cfg      Config
	logger   *zap.Logger
	executor Executor
	rng      *rand.Rand
}

// New creates a Humanoid driving the given executor.
func New(cfg Config, logger *zap.Logger, executor Executor) *Humanoid {
	rng := cfg.Rng
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Humanoid{
		cfg:      cfg,
		logger:   logger.Named("humanoid"),
		executor: executor,
		rng:      rng,
	}
}

// NewTestHumanoid creates a Humanoid with a deterministic RNG.
func NewTestHumanoid(executor Executor, seed int64) *Humanoid {
	cfg := DefaultConfig()
	cfg.Rng = rand.New(rand.NewSource(seed))
	return New(cfg, zap.NewNop(), executor)
}

// Enabled reports whether pacing and per-key typing are active.
func (h *Humanoid) Enabled() bool { return h.cfg.Enabled }

// Pause sleeps for a uniformly random duration in [min, max].
func (h *Humanoid) Pause(ctx context.Context, min, max time.Duration) error {
	if !h.cfg.Enabled {
		return ctx.Err()
	}
	if max < min {
		min, max = max, min
	}
	d := min
	if span := int64(max - min); span > 0 {
		h.mu.Lock()
		d += time.Duration(h.rng.Int63n(span + 1))
		h.mu.Unlock()
	}
	if d <= 0 {
		return ctx.Err()
	}
	return h.executor.Sleep(ctx, d)
}

// ActionDelay sleeps for a random duration in the configured action range.
func (h *Humanoid) ActionDelay(ctx context.Context) error {
	return h.Pause(ctx, h.cfg.ActionDelayMin, h.cfg.ActionDelayMax)
}

// CognitivePause sleeps for a normally distributed duration.
func (h *Humanoid) CognitivePause(ctx context.Context, meanMs, stdDevMs float64) error {
	if !h.cfg.Enabled {
		return ctx.Err()
	}
	h.mu.Lock()
	norm := h.rng.NormFloat64()
	h.mu.Unlock()

	duration := time.Duration(meanMs+norm*stdDevMs) * time.Millisecond
	if duration <= 0 {
		return ctx.Err()
	}
	return h.executor.Sleep(ctx, duration)
}
