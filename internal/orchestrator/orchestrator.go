// internal/orchestrator/orchestrator.go
//
// The orchestrator wraps single registration attempts with manufacturer
// resolution, retries, backoff and batch fan-out. It owns the one browser
// process shared by every run it starts.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/automation"
	"github.com/xkilldash9x/snapreg/internal/config"
)

const recordTimeout = 5 * time.Second

var (
	ErrNilConfig   = errors.New("orchestrator config must not be nil")
	ErrNilLogger   = errors.New("orchestrator logger must not be nil")
	ErrNilResolver = errors.New("orchestrator resolver must not be nil")
	ErrNilLauncher = errors.New("orchestrator launcher must not be nil")
	ErrShutdown    = errors.New("orchestrator is shut down")
)

// Resolver turns a manufacturer name into a strategy. *registry.Registry
// implements it.
type Resolver interface {
	Get(manufacturer string) (automation.Strategy, error)
}

// Executor runs one attempt. *automation.Runner implements it.
type Executor interface {
	Execute(ctx context.Context, b schemas.Browser, strategy automation.Strategy, data *schemas.RegistrationData, attempt int, opts automation.RunOptions) *schemas.AutomationResult
}

// AttemptRecorder persists attempts. *store.Store implements it.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, rec schemas.AttemptRecord) error
}

// Orchestrator is safe for concurrent use. Shutdown must be called once the
// orchestrator is no longer needed; it releases the shared browser.
type Orchestrator struct {
	cfg        config.OrchestratorConfig
	browserCfg config.BrowserConfig
	logger     *zap.Logger
	resolver   Resolver
	launcher   schemas.Launcher
	executor   Executor
	recorder   AttemptRecorder
	limiter    *rate.Limiter
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time

	mu       sync.Mutex
	browser  schemas.Browser
	shutdown bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithExecutor replaces the default automation.Runner.
func WithExecutor(e Executor) Option {
	return func(o *Orchestrator) { o.executor = e }
}

// WithRecorder persists every attempt through r.
func WithRecorder(r AttemptRecorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithSleep replaces the backoff sleep.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = fn }
}

// New creates an Orchestrator. The browser is launched lazily by the first
// attempt that needs it.
func New(cfg config.Interface, logger *zap.Logger, resolver Resolver, launcher schemas.Launcher, opts ...Option) (*Orchestrator, error) {
	switch {
	case cfg == nil:
		return nil, ErrNilConfig
	case logger == nil:
		return nil, ErrNilLogger
	case resolver == nil:
		return nil, ErrNilResolver
	case launcher == nil:
		return nil, ErrNilLauncher
	}

	ocfg := cfg.Orchestrator()
	limit := rate.Inf
	if ocfg.LaunchRate > 0 {
		limit = rate.Limit(ocfg.LaunchRate)
	}
	burst := ocfg.LaunchBurst
	if burst <= 0 {
		burst = 1
	}

	o := &Orchestrator{
		cfg:        ocfg,
		browserCfg: cfg.Browser(),
		logger:     logger.Named("orchestrator"),
		resolver:   resolver,
		launcher:   launcher,
		limiter:    rate.NewLimiter(limit, burst),
		sleep:      sleepContext,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.executor == nil {
		o.executor = automation.NewRunner(logger, o.browserCfg)
	}
	return o, nil
}

// ExecuteRegistration registers one product, retrying transient failures.
// The returned result is the first success or the last failure; errors
// never escape as Go errors. opts may be nil.
func (o *Orchestrator) ExecuteRegistration(ctx context.Context, manufacturer string, data *schemas.RegistrationData, opts *schemas.Options) *schemas.AutomationResult {
	effective := o.effectiveOptions(opts)
	result := &schemas.AutomationResult{Manufacturer: manufacturer, Method: schemas.MethodBrowser}

	if data == nil {
		return fail(result, automation.ErrNilData)
	}
	if effective.Engine != "" && effective.Engine != schemas.EngineChromium {
		return reject(result, fmt.Errorf("unsupported browser engine %q", effective.Engine))
	}
	strategy, err := o.resolver.Get(manufacturer)
	if err != nil {
		o.logger.Warn("Manufacturer could not be resolved.", zap.String("manufacturer", manufacturer), zap.Error(err))
		return reject(result, err)
	}

	runID := uuid.New().String()
	logger := o.logger.With(
		zap.String("run_id", runID),
		zap.String("manufacturer", manufacturer),
		zap.String("strategy", strategy.Name()),
	)
	runOpts := automation.RunOptions{
		RunID:              runID,
		Manufacturer:       manufacturer,
		CaptureScreenshots: *effective.CaptureScreenshots,
	}

	for attempt := 1; attempt <= effective.MaxRetries; attempt++ {
		var stop bool
		result, stop = o.attempt(ctx, strategy, data, attempt, effective, runOpts)
		result.Manufacturer = manufacturer
		if stop {
			return result
		}
		o.record(ctx, runID, data, result)

		if result.Success {
			logger.Info("Registration succeeded.", zap.Int("attempt", attempt))
			return result
		}
		if !result.ErrorKind.Retryable() {
			logger.Warn("Registration failed with a permanent error, not retrying.",
				zap.Int("attempt", attempt), zap.String("error_type", string(result.ErrorKind)))
			return result
		}
		if ctx.Err() != nil {
			return result
		}
		if attempt == effective.MaxRetries {
			break
		}

		delay := o.backoff(attempt)
		logger.Warn("Registration attempt failed, retrying.",
			zap.Int("attempt", attempt),
			zap.String("error_type", string(result.ErrorKind)),
			zap.String("error", result.ErrorMessage),
			zap.Duration("backoff", delay))
		if err := o.sleep(ctx, delay); err != nil {
			return result
		}
	}

	logger.Error("Registration failed after all attempts.",
		zap.Int("attempts", effective.MaxRetries), zap.String("error_type", string(result.ErrorKind)))
	return result
}

// attempt runs one try. stop is set when the orchestrator has been shut
// down and nothing more should be attempted or recorded.
func (o *Orchestrator) attempt(ctx context.Context, strategy automation.Strategy, data *schemas.RegistrationData, attempt int, opts schemas.Options, runOpts automation.RunOptions) (result *schemas.AutomationResult, stop bool) {
	failed := func(err error) *schemas.AutomationResult {
		r := fail(&schemas.AutomationResult{Attempt: attempt, Method: schemas.MethodBrowser, Strategy: strategy.Name()}, err)
		r.Manufacturer = runOpts.Manufacturer
		return r
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return failed(fmt.Errorf("waiting for a run slot: %w", err)), false
	}
	b, err := o.acquireBrowser(ctx, opts)
	if err != nil {
		return failed(err), errors.Is(err, ErrShutdown)
	}

	actx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	return o.executor.Execute(actx, b, strategy, data, attempt, runOpts), false
}

// backoff is BaseBackoff * 2^(attempt-1): 2s, 4s, 8s with the defaults.
func (o *Orchestrator) backoff(attempt int) time.Duration {
	base := o.cfg.BaseBackoff
	if base <= 0 {
		base = config.DefaultBaseBackoff
	}
	return base << (attempt - 1)
}

func (o *Orchestrator) effectiveOptions(opts *schemas.Options) schemas.Options {
	headless := o.browserCfg.Headless
	capture := o.browserCfg.CaptureScreenshots
	eff := schemas.Options{
		MaxRetries: o.cfg.MaxRetries,
		Timeout:    o.cfg.RunTimeout,
	}
	if opts != nil {
		headless = schemas.BoolValue(opts.Headless, headless)
		capture = schemas.BoolValue(opts.CaptureScreenshots, capture)
		eff.Engine = opts.Engine
		if opts.MaxRetries > 0 {
			eff.MaxRetries = opts.MaxRetries
		}
		if opts.Timeout > 0 {
			eff.Timeout = opts.Timeout
		}
	}
	eff.Headless = schemas.Bool(headless)
	eff.CaptureScreenshots = schemas.Bool(capture)
	if eff.MaxRetries <= 0 {
		eff.MaxRetries = 1
	}
	if eff.Timeout <= 0 {
		eff.Timeout = config.DefaultRunTimeout
	}
	return eff
}

// acquireBrowser returns the shared browser, launching it on first use. The
// launch options of the first caller win for the lifetime of the process.
func (o *Orchestrator) acquireBrowser(ctx context.Context, opts schemas.Options) (schemas.Browser, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.shutdown {
		return nil, ErrShutdown
	}
	if o.browser != nil {
		return o.browser, nil
	}
	b, err := o.launcher.Launch(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	o.logger.Info("Shared browser launched.", zap.Bool("headless", schemas.BoolValue(opts.Headless, o.browserCfg.Headless)))
	o.browser = b
	return b, nil
}

// ExecuteMultiple runs reqs in sequential batches of at most concurrency
// registrations each, so no more than concurrency browsing contexts are
// open at once. Results are returned in request order. A concurrency of zero
// or less uses the configured default.
func (o *Orchestrator) ExecuteMultiple(ctx context.Context, reqs []schemas.Request, concurrency int) []*schemas.AutomationResult {
	if concurrency <= 0 {
		concurrency = o.cfg.Concurrency
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([]*schemas.AutomationResult, len(reqs))

	for start := 0; start < len(reqs); start += concurrency {
		end := min(start+concurrency, len(reqs))
		o.logger.Debug("Starting batch.", zap.Int("from", start), zap.Int("to", end))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				req := reqs[i]
				results[i] = o.ExecuteRegistration(ctx, req.Manufacturer, &req.Data, req.Options)
				return nil
			})
		}
		_ = g.Wait()
	}
	return results
}

// Shutdown closes the shared browser. It is idempotent; later registrations
// fail with ErrShutdown.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	b := o.browser
	o.browser = nil
	o.shutdown = true
	o.mu.Unlock()

	if b == nil {
		return nil
	}
	o.logger.Info("Closing shared browser.")
	if err := b.Close(ctx); err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

func (o *Orchestrator) record(ctx context.Context, runID string, data *schemas.RegistrationData, result *schemas.AutomationResult) {
	if o.recorder == nil {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	rec := schemas.AttemptRecord{
		ID:               uuid.New().String(),
		RunID:            runID,
		RegistrationID:   data.RegistrationID,
		Manufacturer:     result.Manufacturer,
		Strategy:         result.Strategy,
		Method:           result.Method,
		Attempt:          result.Attempt,
		Success:          result.Success,
		ConfirmationCode: result.ConfirmationCode,
		ErrorKind:        result.ErrorKind,
		ErrorMessage:     result.ErrorMessage,
		ScreenshotPath:   result.ScreenshotPath,
		Duration:         result.Duration,
		CreatedAt:        o.now().UTC(),
	}
	if err := o.recorder.RecordAttempt(rctx, rec); err != nil {
		o.logger.Warn("Failed to record attempt.", zap.String("run_id", runID), zap.Error(err))
	}
}

func fail(result *schemas.AutomationResult, err error) *schemas.AutomationResult {
	result.Success = false
	result.ConfirmationCode = ""
	result.ErrorKind = automation.ClassifyError(err)
	result.ErrorMessage = err.Error()
	return result
}

// reject fails result as a validation error regardless of what its message
// would classify as.
func reject(result *schemas.AutomationResult, err error) *schemas.AutomationResult {
	fail(result, err)
	result.ErrorKind = schemas.ErrorKindValidation
	return result
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
