// internal/connector/connector.go
//
// A Connector registers products API-first. The manufacturer HTTP API is
// called through a rate limiter and a circuit breaker; any API failure falls
// back to a full browser run, and only a failure of both paths is reported.
package connector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/automation"
	"github.com/xkilldash9x/snapreg/internal/config"
)

// StrategyName is reported on results produced by the API path.
const StrategyName = "api"

var (
	ErrNilConfig = errors.New("connector config must not be nil")
	ErrNilLogger = errors.New("connector logger must not be nil")
)

// BrowserRunner runs a browser registration. *orchestrator.Orchestrator
// implements it.
type BrowserRunner interface {
	ExecuteRegistration(ctx context.Context, manufacturer string, data *schemas.RegistrationData, opts *schemas.Options) *schemas.AutomationResult
}

// Connector is safe for concurrent use.
type Connector struct {
	name     string
	cfg      config.ConnectorConfig
	logger   *zap.Logger
	api      *APIClient
	breaker  *Breaker
	limiter  *TokenBucket
	fallback BrowserRunner
	now      func() time.Time
}

// New builds a connector for one manufacturer. fallback may be nil, in which
// case API failures are final.
func New(name string, cfg config.ConnectorConfig, logger *zap.Logger, fallback BrowserRunner) (*Connector, error) {
	if logger == nil {
		return nil, ErrNilLogger
	}
	logger = logger.Named("connector").With(zap.String("manufacturer", name))
	api, err := NewAPIClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connector %s: %w", name, err)
	}
	return &Connector{
		name:     name,
		cfg:      cfg,
		logger:   logger,
		api:      api,
		breaker:  NewBreaker(name, cfg.Breaker, logger),
		limiter:  NewTokenBucket(cfg.RateLimit),
		fallback: fallback,
		now:      time.Now,
	}, nil
}

func (c *Connector) Name() string      { return c.name }
func (c *Connector) Breaker() *Breaker { return c.breaker }

// Register tries the API, then the browser. The returned result is never nil.
func (c *Connector) Register(ctx context.Context, data *schemas.RegistrationData, opts *schemas.Options) *schemas.AutomationResult {
	start := c.now()
	result := &schemas.AutomationResult{
		Attempt:      1,
		Manufacturer: c.name,
		Strategy:     StrategyName,
		Method:       schemas.MethodAPI,
	}
	if data == nil {
		return failed(result, automation.ErrNilData)
	}

	resp, apiErr := c.callAPI(ctx, data)
	if apiErr == nil {
		result.Success = true
		result.ConfirmationCode = resp.ConfirmationCode
		result.Duration = c.now().Sub(start)
		c.ensureCode(result, data)
		c.logger.Info("Registered through the API.", zap.String("confirmation_code", result.ConfirmationCode))
		return result
	}

	if c.fallback == nil {
		c.logger.Error("API registration failed and no browser fallback is configured.", zap.Error(apiErr))
		result.Duration = c.now().Sub(start)
		return failed(result, apiErr)
	}
	c.logger.Warn("API registration failed, falling back to the browser.", zap.Error(apiErr))

	browserResult := c.fallback.ExecuteRegistration(ctx, c.name, data, opts)
	if browserResult == nil {
		return failed(result, apiErr)
	}
	if browserResult.Success {
		c.ensureCode(browserResult, data)
		return browserResult
	}
	browserResult.ErrorMessage = fmt.Sprintf("api: %v; browser: %s", apiErr, browserResult.ErrorMessage)
	return browserResult
}

func (c *Connector) callAPI(ctx context.Context, data *schemas.RegistrationData) (*APIResponse, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("waiting for the api rate limit: %w", err)
	}
	return c.breaker.Execute(func() (*APIResponse, error) {
		return c.api.Register(ctx, data)
	})
}

// ensureCode synthesizes a code on a code-less success when the connector is
// configured to.
func (c *Connector) ensureCode(result *schemas.AutomationResult, data *schemas.RegistrationData) {
	if result.ConfirmationCode != "" || !c.cfg.FallbackCode {
		return
	}
	result.ConfirmationCode = FallbackCode(data.SerialNumber, c.now())
	result.FallbackCode = true
}

// FallbackCode derives a stable-looking local code from the serial number
// and the time of registration. It is not a manufacturer confirmation.
func FallbackCode(serial string, at time.Time) string {
	sum := sha256.Sum256([]byte(serial + at.UTC().Format(time.RFC3339Nano)))
	return "SR-" + strings.ToUpper(hex.EncodeToString(sum[:6]))
}

func failed(result *schemas.AutomationResult, err error) *schemas.AutomationResult {
	result.Success = false
	result.ConfirmationCode = ""
	result.ErrorKind = automation.ClassifyError(err)
	result.ErrorMessage = err.Error()
	return result
}

// Set holds one connector per configured manufacturer. It is read-only
// after NewSet.
type Set struct {
	connectors map[string]*Connector
}

// NewSet builds a connector for every entry under connectors in cfg.
func NewSet(cfg config.Interface, logger *zap.Logger, fallback BrowserRunner) (*Set, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	s := &Set{connectors: make(map[string]*Connector)}
	for name, cc := range cfg.Connectors() {
		c, err := New(name, cc, logger, fallback)
		if err != nil {
			return nil, err
		}
		s.connectors[strings.ToLower(name)] = c
	}
	return s, nil
}

// For returns the connector configured for manufacturer, matched
// case-insensitively.
func (s *Set) For(manufacturer string) (*Connector, bool) {
	c, ok := s.connectors[strings.ToLower(strings.TrimSpace(manufacturer))]
	return c, ok
}

func (s *Set) Len() int {
	return len(s.connectors)
}
