// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Database() DatabaseConfig
	Browser() BrowserConfig
	Orchestrator() OrchestratorConfig
	Registry() RegistryConfig
	Connectors() map[string]ConnectorConfig
	// Connector returns the settings for one manufacturer, matched case-insensitively.
	Connector(manufacturer string) (ConnectorConfig, bool)

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserCaptureScreenshots(bool)

	// Orchestrator Setters
	SetOrchestratorMaxRetries(int)
	SetOrchestratorConcurrency(int)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg       LoggerConfig               `mapstructure:"logger" yaml:"logger"`
	DatabaseCfg     DatabaseConfig             `mapstructure:"database" yaml:"database"`
	BrowserCfg      BrowserConfig              `mapstructure:"browser" yaml:"browser"`
	OrchestratorCfg OrchestratorConfig         `mapstructure:"orchestrator" yaml:"orchestrator"`
	RegistryCfg     RegistryConfig             `mapstructure:"registry" yaml:"registry"`
	ConnectorsCfg   map[string]ConnectorConfig `mapstructure:"connectors" yaml:"connectors"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig             { return c.LoggerCfg }
func (c *Config) Database() DatabaseConfig         { return c.DatabaseCfg }
func (c *Config) Browser() BrowserConfig           { return c.BrowserCfg }
func (c *Config) Orchestrator() OrchestratorConfig { return c.OrchestratorCfg }
func (c *Config) Registry() RegistryConfig         { return c.RegistryCfg }

func (c *Config) Connectors() map[string]ConnectorConfig { return c.ConnectorsCfg }

func (c *Config) Connector(manufacturer string) (ConnectorConfig, bool) {
	key := strings.ToLower(strings.TrimSpace(manufacturer))
	for name, cc := range c.ConnectorsCfg {
		if strings.ToLower(name) == key {
			return cc, true
		}
	}
	return ConnectorConfig{}, false
}

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetBrowserHeadless(b bool)           { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserCaptureScreenshots(b bool) { c.BrowserCfg.CaptureScreenshots = b }
func (c *Config) SetOrchestratorMaxRetries(n int)     { c.OrchestratorCfg.MaxRetries = n }
func (c *Config) SetOrchestratorConcurrency(n int)    { c.OrchestratorCfg.Concurrency = n }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// DatabaseConfig holds the database connection details. An empty URL
// disables attempt persistence.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// ViewportConfig is the fixed window size of every browsing context.
type ViewportConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// BrowserConfig holds settings for the headless browser and the pages it opens.
type BrowserConfig struct {
	Headless            bool           `mapstructure:"headless" yaml:"headless"`
	Args                []string       `mapstructure:"args" yaml:"args"`
	PageTimeout         time.Duration  `mapstructure:"page_timeout" yaml:"page_timeout"`
	ElementTimeout      time.Duration  `mapstructure:"element_timeout" yaml:"element_timeout"`
	ShortElementTimeout time.Duration  `mapstructure:"short_element_timeout" yaml:"short_element_timeout"`
	LongElementTimeout  time.Duration  `mapstructure:"long_element_timeout" yaml:"long_element_timeout"`
	Viewport            ViewportConfig `mapstructure:"viewport" yaml:"viewport"`
	Locale              string         `mapstructure:"locale" yaml:"locale"`
	Timezone            string         `mapstructure:"timezone" yaml:"timezone"`
	UserAgents          []string       `mapstructure:"user_agents" yaml:"user_agents"`
	CaptureScreenshots  bool           `mapstructure:"capture_screenshots" yaml:"capture_screenshots"`
	ArtifactsDir        string         `mapstructure:"artifacts_dir" yaml:"artifacts_dir"`
	Humanoid            HumanoidConfig `mapstructure:"humanoid" yaml:"humanoid"`
}

// OrchestratorConfig tunes retries and batch fan-out.
type OrchestratorConfig struct {
	MaxRetries  int           `mapstructure:"max_retries" yaml:"max_retries"`
	BaseBackoff time.Duration `mapstructure:"base_backoff" yaml:"base_backoff"`
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"`
	RunTimeout  time.Duration `mapstructure:"run_timeout" yaml:"run_timeout"`
	// LaunchRate is the number of registration runs allowed to start per second.
	LaunchRate  float64 `mapstructure:"launch_rate" yaml:"launch_rate"`
	LaunchBurst int     `mapstructure:"launch_burst" yaml:"launch_burst"`
}

// RegistryConfig controls manufacturer resolution.
type RegistryConfig struct {
	FallbackEnabled   bool `mapstructure:"fallback_enabled" yaml:"fallback_enabled"`
	MaxUnknownEntries int  `mapstructure:"max_unknown_entries" yaml:"max_unknown_entries"`
	FuzzyDistance     int  `mapstructure:"fuzzy_distance" yaml:"fuzzy_distance"`
}

// BreakerConfig configures a connector's circuit breaker.
type BreakerConfig struct {
	Threshold        uint32        `mapstructure:"threshold" yaml:"threshold"`
	SuccessThreshold uint32        `mapstructure:"success_threshold" yaml:"success_threshold"`
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// RateLimitConfig configures a connector's token bucket.
type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max_requests" yaml:"max_requests"`
	Window      time.Duration `mapstructure:"window" yaml:"window"`
}

// ConnectorConfig describes a manufacturer reachable through an HTTP API in
// addition to its registration form.
type ConnectorConfig struct {
	APIURL       string          `mapstructure:"api_url" yaml:"api_url"`
	APIKey       string          `mapstructure:"api_key" yaml:"api_key"`
	Timeout      time.Duration   `mapstructure:"timeout" yaml:"timeout"`
	FallbackCode bool            `mapstructure:"fallback_code" yaml:"fallback_code"`
	Breaker      BreakerConfig   `mapstructure:"breaker" yaml:"breaker"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// Orchestrator fallbacks for zero-valued settings.
const (
	DefaultBaseBackoff = 2 * time.Second
	DefaultRunTimeout  = 3 * time.Minute
)

// Connector defaults applied to every entry under `connectors`.
const (
	DefaultBreakerThreshold        uint32 = 5
	DefaultBreakerSuccessThreshold uint32 = 2
	DefaultBreakerTimeout                 = 60 * time.Second
	DefaultRateLimitMaxRequests           = 10
	DefaultRateLimitWindow                = 60 * time.Second
	DefaultConnectorTimeout               = 30 * time.Second
)

// DefaultUserAgents is the pool a persona's user agent is drawn from.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "snapreg")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.page_timeout", "30s")
	v.SetDefault("browser.element_timeout", "5s")
	v.SetDefault("browser.short_element_timeout", "2s")
	v.SetDefault("browser.long_element_timeout", "15s")
	v.SetDefault("browser.viewport.width", 1920)
	v.SetDefault("browser.viewport.height", 1080)
	v.SetDefault("browser.locale", "en-US")
	v.SetDefault("browser.timezone", "America/New_York")
	v.SetDefault("browser.user_agents", DefaultUserAgents)
	v.SetDefault("browser.capture_screenshots", true)
	v.SetDefault("browser.artifacts_dir", "~/.snapreg/artifacts")
	setHumanoidDefaults(v)

	// -- Orchestrator --
	v.SetDefault("orchestrator.max_retries", 3)
	v.SetDefault("orchestrator.base_backoff", DefaultBaseBackoff)
	v.SetDefault("orchestrator.concurrency", 3)
	v.SetDefault("orchestrator.run_timeout", DefaultRunTimeout)
	v.SetDefault("orchestrator.launch_rate", 2.0)
	v.SetDefault("orchestrator.launch_burst", 1)

	// -- Registry --
	v.SetDefault("registry.fallback_enabled", true)
	v.SetDefault("registry.max_unknown_entries", 500)
	v.SetDefault("registry.fuzzy_distance", 1)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("database.url", "SNAPREG_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.DatabaseCfg.URL == "" {
		cfg.DatabaseCfg.URL = os.Getenv("SNAPREG_DATABASE_URL")
	}
	cfg.applyConnectorDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// applyConnectorDefaults fills zero values on every connector entry. Map
// entries cannot carry viper defaults, so this runs after unmarshaling.
// API keys may also come from SNAPREG_<NAME>_API_KEY.
func (c *Config) applyConnectorDefaults() {
	for name, cc := range c.ConnectorsCfg {
		if cc.Breaker.Threshold == 0 {
			cc.Breaker.Threshold = DefaultBreakerThreshold
		}
		if cc.Breaker.SuccessThreshold == 0 {
			cc.Breaker.SuccessThreshold = DefaultBreakerSuccessThreshold
		}
		if cc.Breaker.Timeout == 0 {
			cc.Breaker.Timeout = DefaultBreakerTimeout
		}
		if cc.RateLimit.MaxRequests == 0 {
			cc.RateLimit.MaxRequests = DefaultRateLimitMaxRequests
		}
		if cc.RateLimit.Window == 0 {
			cc.RateLimit.Window = DefaultRateLimitWindow
		}
		if cc.Timeout == 0 {
			cc.Timeout = DefaultConnectorTimeout
		}
		if cc.APIKey == "" {
			envKey := "SNAPREG_" + strings.ToUpper(strings.NewReplacer("-", "_", " ", "_").Replace(name)) + "_API_KEY"
			cc.APIKey = os.Getenv(envKey)
		}
		c.ConnectorsCfg[name] = cc
	}
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.BrowserCfg.Validate(); err != nil {
		return err
	}
	if err := c.OrchestratorCfg.Validate(); err != nil {
		return err
	}
	if c.RegistryCfg.MaxUnknownEntries <= 0 {
		return fmt.Errorf("registry.max_unknown_entries must be a positive integer")
	}
	if c.RegistryCfg.FuzzyDistance < 0 {
		return fmt.Errorf("registry.fuzzy_distance must not be negative")
	}
	for name, cc := range c.ConnectorsCfg {
		if err := cc.Validate(); err != nil {
			return fmt.Errorf("connectors.%s configuration invalid: %w", name, err)
		}
	}
	return nil
}

// Validate checks the browser settings.
func (b *BrowserConfig) Validate() error {
	if b.PageTimeout <= 0 {
		return fmt.Errorf("browser.page_timeout must be a positive duration")
	}
	if b.ElementTimeout <= 0 || b.ShortElementTimeout <= 0 || b.LongElementTimeout <= 0 {
		return fmt.Errorf("browser element timeouts must be positive durations")
	}
	if b.Viewport.Width <= 0 || b.Viewport.Height <= 0 {
		return fmt.Errorf("browser.viewport dimensions must be positive integers")
	}
	return nil
}

// Validate checks the orchestrator settings.
func (o *OrchestratorConfig) Validate() error {
	if o.MaxRetries <= 0 {
		return fmt.Errorf("orchestrator.max_retries must be a positive integer")
	}
	if o.Concurrency <= 0 {
		return fmt.Errorf("orchestrator.concurrency must be a positive integer")
	}
	if o.BaseBackoff < 0 {
		return fmt.Errorf("orchestrator.base_backoff must not be negative")
	}
	if o.RunTimeout <= 0 {
		return fmt.Errorf("orchestrator.run_timeout must be a positive duration")
	}
	if o.LaunchRate < 0 {
		return fmt.Errorf("orchestrator.launch_rate must not be negative")
	}
	return nil
}

// Validate checks a single connector entry.
func (cc *ConnectorConfig) Validate() error {
	if cc.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	if cc.Breaker.Threshold == 0 || cc.Breaker.SuccessThreshold == 0 {
		return fmt.Errorf("breaker thresholds must be positive")
	}
	if cc.Breaker.Timeout <= 0 {
		return fmt.Errorf("breaker.timeout must be a positive duration")
	}
	if cc.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("rate_limit.max_requests must be a positive integer")
	}
	if cc.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be a positive duration")
	}
	return nil
}
