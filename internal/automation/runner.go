// internal/automation/runner.go
package automation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/browser/stealth"
	"github.com/xkilldash9x/snapreg/internal/config"
	"github.com/xkilldash9x/snapreg/internal/fields"
)

const (
	// artifactTimeout bounds screenshot and snapshot capture, which also runs
	// after the run context has expired.
	artifactTimeout  = 10 * time.Second
	pageCloseTimeout = 10 * time.Second

	// VerificationFailedMessage is reported when no success signal was found.
	VerificationFailedMessage = "Submission verification failed."
)

// RunOptions tunes a single Execute call.
type RunOptions struct {
	// RunID groups the attempts of one registration. A new one is generated
	// when empty.
	RunID string
	// Manufacturer is the name the registration was routed under. It
	// defaults to the manufacturer in the registration data.
	Manufacturer       string
	CaptureScreenshots bool
}

// Runner drives a Strategy through the registration lifecycle:
// validate, open page, navigate, fill, captcha check, submit, verify,
// capture confirmation and snapshot, clean up.
type Runner struct {
	logger     *zap.Logger
	cfg        config.BrowserConfig
	timeouts   Timeouts
	personas   *stealth.PersonaPool
	detector   *fields.Detector
	mapper     *fields.Mapper
	classifier *Classifier
	now        func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithClassifier replaces the process-wide error classifier.
func WithClassifier(c *Classifier) RunnerOption {
	return func(r *Runner) { r.classifier = c }
}

// WithClock replaces time.Now, for deterministic durations in tests.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// WithMapper replaces the default field mapper.
func WithMapper(m *fields.Mapper) RunnerOption {
	return func(r *Runner) { r.mapper = m }
}

// NewRunner creates a Runner from the browser settings.
func NewRunner(logger *zap.Logger, cfg config.BrowserConfig, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	userAgents := cfg.UserAgents
	if len(userAgents) == 0 {
		userAgents = config.DefaultUserAgents
	}
	timeouts := TimeoutsFromConfig(cfg)
	if timeouts.Short <= 0 || timeouts.Element <= 0 || timeouts.Long <= 0 {
		timeouts = DefaultTimeouts
	}
	r := &Runner{
		logger:     logger.Named("runner"),
		cfg:        cfg,
		timeouts:   timeouts,
		personas:   stealth.NewPersonaPool(stealth.BasePersona(cfg), userAgents),
		detector:   fields.NewDetector(logger),
		mapper:     fields.NewMapper(logger),
		classifier: defaultClassifier,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute runs one attempt of strategy against a fresh isolated page of b.
// Failures never surface as Go errors; they are folded into the result.
// attempt is 1-based and only used for reporting.
func (r *Runner) Execute(ctx context.Context, b schemas.Browser, strategy Strategy, data *schemas.RegistrationData, attempt int, opts RunOptions) (result *schemas.AutomationResult) {
	start := r.now()
	result = &schemas.AutomationResult{Attempt: attempt, Method: schemas.MethodBrowser}
	defer func() {
		result.Duration = r.now().Sub(start)
		if result.Duration < 0 {
			result.Duration = 0
		}
	}()

	switch {
	case strategy == nil:
		return r.fail(result, ErrNilStrategy)
	case data == nil:
		return r.fail(result, ErrNilData)
	case b == nil:
		return r.fail(result, ErrNilBrowser)
	}
	manufacturer := opts.Manufacturer
	if manufacturer == "" {
		manufacturer = data.Manufacturer
	}
	result.Strategy = strategy.Name()
	result.Manufacturer = manufacturer

	runID := opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	logger := r.logger.With(
		zap.String("run_id", runID),
		zap.String("manufacturer", manufacturer),
		zap.String("strategy", strategy.Name()),
		zap.Int("attempt", attempt),
	)

	// Validation happens before any browser resource is touched.
	if missing := data.MissingFields(strategy.RequiredFields()); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, m := range missing {
			names[i] = string(m)
		}
		err := Abort(schemas.ErrorKindValidation, "missing required fields: %s", strings.Join(names, ", "))
		logger.Error("Registration data rejected.", zap.Error(err))
		return r.fail(result, err)
	}

	page, err := b.NewPage(ctx, r.personas.Next())
	if err != nil {
		logger.Error("Failed to open browsing context.", zap.Error(err))
		return r.fail(result, fmt.Errorf("failed to open browsing context: %w", err))
	}
	s := &Session{
		RunID:        runID,
		Attempt:      attempt,
		Manufacturer: manufacturer,
		Page:         page,
		Data:         data,
		Logger:       logger,
		Timeouts:     r.timeouts,
		Detector:     r.detector,
		Mapper:       r.mapper,
	}

	cleanup := newCloser(page, logger)
	defer cleanup()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Strategy panicked.", zap.Any("panic", rec), zap.Stack("stack"))
			result.Success = false
			result.ConfirmationCode = ""
			result.ErrorKind = schemas.ErrorKindUnknown
			result.ErrorMessage = fmt.Sprintf("strategy panicked: %v", rec)
			r.captureArtifacts(ctx, s, result, true)
		}
	}()

	logger.Info("Starting registration attempt.")
	verified, err := r.runSteps(ctx, strategy, s)
	if err != nil {
		r.captureArtifacts(ctx, s, result, true)
		cleanup()
		r.fail(result, err)
		logger.Error("Registration attempt aborted.",
			zap.String("error_type", string(result.ErrorKind)), zap.Error(err))
		return result
	}
	if !verified {
		r.captureArtifacts(ctx, s, result, true)
		cleanup()
		result.ErrorKind = schemas.ErrorKindUnknown
		result.ErrorMessage = VerificationFailedMessage
		logger.Warn("Submission could not be verified.")
		return result
	}

	result.ConfirmationCode = r.confirmation(ctx, s, strategy)
	r.captureArtifacts(ctx, s, result, opts.CaptureScreenshots)
	cleanup()
	result.Success = true
	logger.Info("Registration attempt succeeded.", zap.String("confirmation_code", result.ConfirmationCode))
	return result
}

// runSteps is the strictly sequential part of the lifecycle.
func (r *Runner) runSteps(ctx context.Context, strategy Strategy, s *Session) (bool, error) {
	if nav, ok := strategy.(Navigator); ok {
		if err := nav.Navigate(ctx, s); err != nil {
			return false, err
		}
	} else {
		if err := s.Page.Navigate(ctx, strategy.RegistrationURL()); err != nil {
			return false, fmt.Errorf("failed to load %s: %w", strategy.RegistrationURL(), err)
		}
	}

	if err := strategy.FillForm(ctx, s); err != nil {
		return false, err
	}

	found, marker, err := HasCaptcha(ctx, s.Page)
	if err != nil {
		return false, err
	}
	if found {
		s.Logger.Warn("CAPTCHA detected, aborting.", zap.String("marker", marker))
		return false, Abort(schemas.ErrorKindCaptcha, "CAPTCHA detected on registration form (%s)", marker)
	}

	if err := strategy.SubmitForm(ctx, s); err != nil {
		return false, err
	}
	return strategy.VerifySuccess(ctx, s)
}

func (r *Runner) confirmation(ctx context.Context, s *Session, strategy Strategy) string {
	doc, err := s.Document(ctx)
	if err != nil {
		s.Logger.Debug("Could not snapshot confirmation page.", zap.Error(err))
		return ""
	}
	var selectors []string
	if loc, ok := strategy.(ConfirmationLocator); ok {
		selectors = loc.ConfirmationSelectors()
	}
	return ExtractConfirmation(doc, selectors)
}

// captureArtifacts stores the HTML snapshot and, when screenshot is set, a
// screenshot on disk. It runs on a context detached from ctx so that
// timed-out runs still leave evidence behind.
func (r *Runner) captureArtifacts(ctx context.Context, s *Session, result *schemas.AutomationResult, screenshot bool) {
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), artifactTimeout)
	defer cancel()

	if markup, err := s.Page.HTML(actx); err == nil {
		result.HTMLSnapshot = markup
	} else {
		s.Logger.Debug("HTML snapshot failed.", zap.Error(err))
	}

	if !screenshot {
		return
	}
	path, err := r.saveScreenshot(actx, s)
	if err != nil {
		s.Logger.Warn("Screenshot capture failed.", zap.Error(err))
		return
	}
	result.ScreenshotPath = path
}

func (r *Runner) saveScreenshot(ctx context.Context, s *Session) (string, error) {
	if r.cfg.ArtifactsDir == "" {
		return "", fmt.Errorf("browser.artifacts_dir is not configured")
	}
	dir, err := homedir.Expand(r.cfg.ArtifactsDir)
	if err != nil {
		return "", fmt.Errorf("could not resolve artifacts dir '%s': %w", r.cfg.ArtifactsDir, err)
	}
	img, err := s.Page.Screenshot(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to capture screenshot: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifacts dir: %w", err)
	}
	path := filepath.Join(dir, ScreenshotName(s.RunID, s.Manufacturer, s.Attempt))
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	return path, nil
}

func (r *Runner) fail(result *schemas.AutomationResult, err error) *schemas.AutomationResult {
	result.Success = false
	result.ConfirmationCode = ""
	result.ErrorKind = r.classifier.Classify(err)
	result.ErrorMessage = err.Error()
	return result
}

// ScreenshotName is "<run_id>-<manufacturer>-attempt<N>.png".
func ScreenshotName(runID, manufacturer string, attempt int) string {
	slug := Slugify(manufacturer, "-")
	if slug == "" {
		slug = "unknown"
	}
	return fmt.Sprintf("%s-%s-attempt%d.png", runID, slug, attempt)
}

// Slugify lowercases s and joins its alphanumeric runs with sep.
func Slugify(s, sep string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return strings.Join(words, sep)
}

// newCloser returns an idempotent page release. Close errors are logged and
// swallowed.
func newCloser(page schemas.Page, logger *zap.Logger) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), pageCloseTimeout)
			defer cancel()
			if err := page.Close(ctx); err != nil {
				logger.Debug("Page close failed.", zap.Error(err))
			}
		})
	}
}
