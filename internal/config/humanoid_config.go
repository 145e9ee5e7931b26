// File: internal/config/humanoid_config.go
// HumanoidConfig holds the tunable parameters of the pacing model used around
// every UI action: randomized action delays, cognitive pauses and the
// burst-and-pause typing rhythm.
package config

import "github.com/spf13/viper"

// HumanoidConfig is the serializable form of humanoid.Config.
type HumanoidConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Randomized delay range applied around every UI action (milliseconds).
	ActionDelayMinMs int `mapstructure:"action_delay_min_ms" yaml:"action_delay_min_ms"`
	ActionDelayMaxMs int `mapstructure:"action_delay_max_ms" yaml:"action_delay_max_ms"`

	// Inter-key delay model (milliseconds).
	KeyPauseMean         float64 `mapstructure:"key_pause_mean" yaml:"key_pause_mean"`
	KeyPauseStdDev       float64 `mapstructure:"key_pause_std_dev" yaml:"key_pause_std_dev"`
	KeyPauseMin          float64 `mapstructure:"key_pause_min" yaml:"key_pause_min"`
	KeyPauseNgramFactor2 float64 `mapstructure:"key_pause_ngram_factor_2" yaml:"key_pause_ngram_factor_2"`
	KeyPauseNgramFactor3 float64 `mapstructure:"key_pause_ngram_factor_3" yaml:"key_pause_ngram_factor_3"`
	KeyHoldMean          float64 `mapstructure:"key_hold_mean" yaml:"key_hold_mean"`
	KeyHoldStdDev        float64 `mapstructure:"key_hold_std_dev" yaml:"key_hold_std_dev"`
	BurstSpeedFactor     float64 `mapstructure:"burst_speed_factor" yaml:"burst_speed_factor"`
}

func setHumanoidDefaults(v *viper.Viper) {
	v.SetDefault("browser.humanoid.enabled", true)
	v.SetDefault("browser.humanoid.action_delay_min_ms", 300)
	v.SetDefault("browser.humanoid.action_delay_max_ms", 900)
	v.SetDefault("browser.humanoid.key_pause_mean", 70.0)
	v.SetDefault("browser.humanoid.key_pause_std_dev", 28.0)
	v.SetDefault("browser.humanoid.key_pause_min", 35.0)
	v.SetDefault("browser.humanoid.key_pause_ngram_factor_2", 0.7)
	v.SetDefault("browser.humanoid.key_pause_ngram_factor_3", 0.55)
	v.SetDefault("browser.humanoid.key_hold_mean", 55.0)
	v.SetDefault("browser.humanoid.key_hold_std_dev", 15.0)
	v.SetDefault("browser.humanoid.burst_speed_factor", 0.7)
}
