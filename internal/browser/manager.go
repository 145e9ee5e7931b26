// internal/browser/manager.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/browser/humanoid"
	"github.com/xkilldash9x/snapreg/internal/browser/stealth"
	"github.com/xkilldash9x/snapreg/internal/config"
)

const (
	launchTimeout  = 30 * time.Second
	disposeTimeout = 10 * time.Second
)

// ErrManagerClosed is returned by NewPage after Close.
var ErrManagerClosed = errors.New("browser manager is closed")

var _ schemas.Browser = (*Manager)(nil)

// Manager owns one browser process. Every page it hands out lives in its own
// browser context, so concurrent registrations never share cookies or storage.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	allocCtx    context.Context
	allocCancel context.CancelFunc
	// browserCtx is attached to the initial tab and is used to issue
	// browser-level commands.
	browserCtx    context.Context
	browserCancel context.CancelFunc

	// contextCreationLock serializes browser context creation.
	contextCreationLock sync.Mutex

	// wg tracks open pages for a graceful shutdown.
	wg sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewManager launches the browser process and verifies it responds.
func NewManager(ctx context.Context, logger *zap.Logger, cfg config.BrowserConfig) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
	}

	m.logger.Info("Initializing browser allocator...", zap.Bool("headless", cfg.Headless))
	// The browser process outlives the launching call's deadline.
	m.allocCtx, m.allocCancel = chromedp.NewExecAllocator(context.WithoutCancel(ctx), buildAllocatorOptions(cfg)...)
	m.browserCtx, m.browserCancel = chromedp.NewContext(m.allocCtx)

	startCtx, cancelStart := CombineContext(m.browserCtx, ctx)
	defer cancelStart()
	startCtx, cancelTimeout := context.WithTimeout(startCtx, launchTimeout)
	defer cancelTimeout()

	if err := chromedp.Run(startCtx, chromedp.Navigate("about:blank")); err != nil {
		m.browserCancel()
		m.allocCancel()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	m.logger.Info("Browser launched successfully and is responsive.")
	return m, nil
}

// NewPage creates an isolated browser context and a tab inside it, then
// applies the persona.
func (m *Manager) NewPage(ctx context.Context, persona schemas.Persona) (schemas.Page, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	m.wg.Add(1)
	m.mu.Unlock()

	p, err := m.newPage(ctx, persona)
	if err != nil {
		m.wg.Done()
		return nil, err
	}
	return p, nil
}

func (m *Manager) newPage(ctx context.Context, persona schemas.Persona) (*Page, error) {
	m.contextCreationLock.Lock()
	defer m.contextCreationLock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled before creating browser context: %w", err)
	}

	var browserContextID cdp.BrowserContextID
	var targetID target.ID
	createCtx, cancel := CombineContext(m.browserCtx, ctx)
	defer cancel()
	err := chromedp.Run(createCtx, chromedp.ActionFunc(func(c context.Context) error {
		exec := cdp.WithExecutor(c, chromedp.FromContext(c).Browser)
		var err error
		browserContextID, err = target.CreateBrowserContext().WithDisposeOnDetach(true).Do(exec)
		if err != nil {
			return fmt.Errorf("failed to create browser context: %w", err)
		}
		targetID, err = target.CreateTarget("about:blank").
			WithBrowserContextID(browserContextID).
			Do(exec)
		if err != nil {
			return fmt.Errorf("failed to create target: %w", err)
		}
		return nil
	}))
	if err != nil {
		if browserContextID != "" {
			m.disposeBrowserContext(browserContextID)
		}
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(m.browserCtx, chromedp.WithTargetID(targetID))
	p := newPage(m, tabCtx, tabCancel, browserContextID, persona)

	setupCtx, cancelSetup := CombineContext(tabCtx, ctx)
	defer cancelSetup()
	if err := chromedp.Run(setupCtx, stealth.Apply(persona, p.logger)); err != nil {
		p.release()
		return nil, fmt.Errorf("failed to apply stealth persona: %w", err)
	}

	p.logger.Debug("Browser page initialized.")
	return p, nil
}

// disposeBrowserContext is best effort; a failure leaves an orphaned context
// that dies with the browser process.
func (m *Manager) disposeBrowserContext(id cdp.BrowserContextID) {
	if m.browserCtx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(m.browserCtx, disposeTimeout)
	defer cancel()
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		exec := cdp.WithExecutor(c, chromedp.FromContext(c).Browser)
		return target.DisposeBrowserContext(id).Do(exec)
	}))
	if err != nil {
		m.logger.Warn("Failed to dispose of browser context. It may be orphaned.",
			zap.String("browserContextID", string(id)),
			zap.Error(err),
		)
		return
	}
	m.logger.Debug("Disposed browser context.", zap.String("browserContextID", string(id)))
}

// Close waits for open pages to be released, respecting the caller's
// deadline, then terminates the browser process. It is safe to call more
// than once.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.logger.Info("Browser manager shutdown initiated. Waiting for open pages...")
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Debug("All pages have been released.")
	case <-ctx.Done():
		m.logger.Warn("Shutdown deadline exceeded. Forcing browser termination.", zap.Error(ctx.Err()))
	}

	m.browserCancel()
	m.allocCancel()
	<-m.allocCtx.Done()
	m.logger.Info("Browser process terminated.")
	return nil
}

// newHumanoid builds the typing model for one page.
func (m *Manager) newHumanoid(p *Page) *humanoid.Humanoid {
	return humanoid.New(humanoid.NewConfig(m.cfg.Humanoid), p.logger, &pageExecutor{page: p})
}
