// internal/browser/humanoid/config.go
package humanoid

import (
	"math/rand"
	"time"

	"github.com/xkilldash9x/snapreg/internal/config"
)

// Config holds the parameters of the pacing and typing model.
type Config struct {
	Enabled bool
	Rng     *rand.Rand

	// Range of the randomized pause placed around every UI action.
	ActionDelayMin time.Duration
	ActionDelayMax time.Duration

	// Key Pause (IKD) Parameters, in milliseconds.
	KeyPauseMean         float64
	KeyPauseStdDev       float64
	KeyPauseMin          float64
	KeyPauseNgramFactor2 float64
	KeyPauseNgramFactor3 float64

	// Key dwell time, in milliseconds.
	KeyHoldMean   float64
	KeyHoldStdDev float64

	// BurstSpeedFactor scales key pauses inside a word.
	BurstSpeedFactor float64
}

// DefaultConfig returns a configuration representing an average typist.
func DefaultConfig() Config {
	return Config{
		Enabled:              true,
		ActionDelayMin:       300 * time.Millisecond,
		ActionDelayMax:       900 * time.Millisecond,
		KeyPauseMean:         70.0,
		KeyPauseStdDev:       28.0,
		KeyPauseMin:          35.0,
		KeyPauseNgramFactor2: 0.7,
		KeyPauseNgramFactor3: 0.55,
		KeyHoldMean:          55.0,
		KeyHoldStdDev:        15.0,
		BurstSpeedFactor:     0.7,
	}
}

// NewConfig converts the file/env configuration into a Config, keeping
// defaults for unset values.
func NewConfig(c config.HumanoidConfig) Config {
	cfg := DefaultConfig()
	cfg.Enabled = c.Enabled
	if c.ActionDelayMinMs > 0 {
		cfg.ActionDelayMin = time.Duration(c.ActionDelayMinMs) * time.Millisecond
	}
	if c.ActionDelayMaxMs > 0 {
		cfg.ActionDelayMax = time.Duration(c.ActionDelayMaxMs) * time.Millisecond
	}
	if cfg.ActionDelayMax < cfg.ActionDelayMin {
		cfg.ActionDelayMax = cfg.ActionDelayMin
	}
	setIfPositive(&cfg.KeyPauseMean, c.KeyPauseMean)
	setIfPositive(&cfg.KeyPauseStdDev, c.KeyPauseStdDev)
	setIfPositive(&cfg.KeyPauseMin, c.KeyPauseMin)
	setIfPositive(&cfg.KeyPauseNgramFactor2, c.KeyPauseNgramFactor2)
	setIfPositive(&cfg.KeyPauseNgramFactor3, c.KeyPauseNgramFactor3)
	setIfPositive(&cfg.KeyHoldMean, c.KeyHoldMean)
	setIfPositive(&cfg.KeyHoldStdDev, c.KeyHoldStdDev)
	setIfPositive(&cfg.BurstSpeedFactor, c.BurstSpeedFactor)
	return cfg
}

func setIfPositive(dst *float64, v float64) {
	if v > 0 {
		*dst = v
	}
}
