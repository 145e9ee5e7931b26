// internal/browser/page.go
package browser

import (
	"context"
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/browser/humanoid"
)

//go:embed scripts/select_option.js
var selectOptionScript string

//go:embed scripts/set_checked.js
var setCheckedScript string

const screenshotQuality = 90

var _ schemas.Page = (*Page)(nil)

// Page is one tab inside an isolated browser context.
type Page struct {
	id               string
	manager          *Manager
	logger           *zap.Logger
	persona          schemas.Persona
	browserContextID cdp.BrowserContextID

	ctx      context.Context
	cancel   context.CancelFunc
	humanoid *humanoid.Humanoid

	closeOnce sync.Once
	closeErr  error
}

func newPage(m *Manager, tabCtx context.Context, cancel context.CancelFunc, id cdp.BrowserContextID, persona schemas.Persona) *Page {
	pageID := uuid.New().String()
	p := &Page{
		id:               pageID,
		manager:          m,
		logger:           m.logger.With(zap.String("page_id", pageID[:8])),
		persona:          persona,
		browserContextID: id,
		ctx:              tabCtx,
		cancel:           cancel,
	}
	p.humanoid = m.newHumanoid(p)
	return p
}

// ID returns the unique identifier for this page.
func (p *Page) ID() string { return p.id }

// run executes actions on this tab, bounded by the caller's context.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := p.ctx.Err(); err != nil {
		return fmt.Errorf("page is closed: %w", err)
	}
	runCtx, cancel := CombineContext(p.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads a URL and waits for the body to be ready.
func (p *Page) Navigate(ctx context.Context, url string) error {
	p.logger.Debug("Navigating to URL.", zap.String("url", url))
	navCtx, cancel := withTimeout(ctx, p.manager.cfg.PageTimeout)
	defer cancel()
	if err := p.run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return p.humanoid.ActionDelay(ctx)
}

func (p *Page) URL(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to capture HTML snapshot: %w", err)
	}
	return html, nil
}

// WaitVisible blocks until selector is visible. The error message includes
// the selector and "timeout" when the wait expires.
func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	if err := p.run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		if waitCtx.Err() != nil && ctx.Err() == nil {
			return fmt.Errorf("timeout waiting for %s after %s", selector, timeout)
		}
		return fmt.Errorf("waiting for %s: %w", selector, err)
	}
	return nil
}

// Type focuses the element, clears it and types text with human rhythm.
func (p *Page) Type(ctx context.Context, selector, text string) error {
	if err := p.humanoid.ActionDelay(ctx); err != nil {
		return err
	}
	if err := p.run(ctx,
		chromedp.Focus(selector, chromedp.ByQuery),
		chromedp.SetValue(selector, "", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to focus %s: %w", selector, err)
	}
	if err := p.humanoid.Type(ctx, text); err != nil {
		return fmt.Errorf("failed to type into %s: %w", selector, err)
	}
	return nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	if err := p.humanoid.ActionDelay(ctx); err != nil {
		return err
	}
	if err := p.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}
	return nil
}

// scriptResult is returned by the embedded DOM helper scripts.
type scriptResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
	Value  string `json:"value"`
}

// callScript invokes one of the embedded function expressions with JSON
// encoded arguments.
func (p *Page) callScript(ctx context.Context, fn string, args ...interface{}) (scriptResult, error) {
	var res scriptResult
	encoded := make([]byte, 0, 64)
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return res, err
		}
		if i > 0 {
			encoded = append(encoded, ',')
		}
		encoded = append(encoded, b...)
	}
	expr := fmt.Sprintf("(%s)(%s)", fn, encoded)
	if err := p.run(ctx, chromedp.Evaluate(expr, &res)); err != nil {
		return res, err
	}
	return res, nil
}

// SelectOption picks the option whose value or visible label matches value,
// case-insensitively.
func (p *Page) SelectOption(ctx context.Context, selector, value string) error {
	if err := p.humanoid.ActionDelay(ctx); err != nil {
		return err
	}
	res, err := p.callScript(ctx, selectOptionScript, selector, value)
	if err != nil {
		return fmt.Errorf("failed to select %q in %s: %w", value, selector, err)
	}
	if !res.OK {
		return fmt.Errorf("select %s: %s: %q", selector, res.Reason, value)
	}
	return nil
}

func (p *Page) SetChecked(ctx context.Context, selector string, checked bool) error {
	if err := p.humanoid.ActionDelay(ctx); err != nil {
		return err
	}
	res, err := p.callScript(ctx, setCheckedScript, selector, checked)
	if err != nil {
		return fmt.Errorf("failed to toggle %s: %w", selector, err)
	}
	if !res.OK {
		return fmt.Errorf("toggle %s: %s", selector, res.Reason)
	}
	return nil
}

func (p *Page) PressEnter(ctx context.Context, selector string) error {
	return p.run(ctx,
		chromedp.Focus(selector, chromedp.ByQuery),
		chromedp.KeyEvent(kb.Enter),
	)
}

func (p *Page) Evaluate(ctx context.Context, script string, res interface{}) error {
	return p.run(ctx, chromedp.Evaluate(script, res))
}

// Screenshot captures the full page as PNG.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, chromedp.FullScreenshot(&buf, screenshotQuality)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// Close closes the tab and disposes its browser context. Subsequent calls
// return the first call's result.
func (p *Page) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		p.logger.Debug("Closing browser page.")
		p.cancel()
		p.manager.disposeBrowserContext(p.browserContextID)
		p.manager.wg.Done()
	})
	return p.closeErr
}

// release is used when page setup fails before the page is handed out. The
// caller's WaitGroup slot is released by NewPage.
func (p *Page) release() {
	p.closeOnce.Do(func() {
		p.cancel()
		p.manager.disposeBrowserContext(p.browserContextID)
	})
}

// pageExecutor adapts a Page to humanoid.Executor.
type pageExecutor struct {
	page *Page
}

var _ humanoid.Executor = (*pageExecutor)(nil)

// Sleep waits for d, returning early if either the page or ctx is done.
func (e *pageExecutor) Sleep(ctx context.Context, d time.Duration) error {
	opCtx, cancel := CombineContext(e.page.ctx, ctx)
	defer cancel()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-opCtx.Done():
		return opCtx.Err()
	}
}

// SendKeys dispatches key events to the focused element.
func (e *pageExecutor) SendKeys(ctx context.Context, keys string) error {
	return e.page.run(ctx, chromedp.KeyEvent(keys))
}
