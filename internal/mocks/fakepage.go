// internal/mocks/fakepage.go
package mocks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/xkilldash9x/snapreg/api/schemas"
)

// FakeScreenshot is the image every FakePage returns.
var FakeScreenshot = []byte("\x89PNG\r\n\x1a\nfake")

// FakePage is an in-memory schemas.Page backed by HTML fixtures. Selectors
// are evaluated with goquery against the current document, so strategies can
// be exercised end to end without a browser. Clicks can swap the document to
// simulate submissions.
type FakePage struct {
	mu sync.Mutex

	url  string
	html string

	routes     map[string]string
	navErrs    map[string]error
	actionErrs map[string]error
	onClick    map[string]func(*FakePage)
	evalResult interface{}

	navigations []string
	typed       map[string]string
	selected    map[string]string
	checked     map[string]bool
	clicks      []string
	enters      []string
	closes      int
}

var _ schemas.Page = (*FakePage)(nil)

// NewFakePage creates an empty page at about:blank.
func NewFakePage() *FakePage {
	return &FakePage{
		url:        "about:blank",
		routes:     make(map[string]string),
		navErrs:    make(map[string]error),
		actionErrs: make(map[string]error),
		onClick:    make(map[string]func(*FakePage)),
		typed:      make(map[string]string),
		selected:   make(map[string]string),
		checked:    make(map[string]bool),
	}
}

// Route serves markup when url is navigated to.
func (p *FakePage) Route(url, markup string) *FakePage {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routes[url] = markup
	return p
}

// FailNavigation makes navigating to url return err.
func (p *FakePage) FailNavigation(url string, err error) *FakePage {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navErrs[url] = err
	return p
}

// FailAction makes Type, Click, SelectOption and SetChecked on selector
// return err.
func (p *FakePage) FailAction(selector string, err error) *FakePage {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actionErrs[selector] = err
	return p
}

// OnClick runs fn after selector is clicked.
func (p *FakePage) OnClick(selector string, fn func(*FakePage)) *FakePage {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onClick[selector] = fn
	return p
}

// SetEvaluateResult is copied into the res argument of Evaluate when both
// are strings or bools.
func (p *FakePage) SetEvaluateResult(v interface{}) *FakePage {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evalResult = v
	return p
}

// SetDocument replaces the current location and markup. Click hooks use it
// to simulate a post-submit page.
func (p *FakePage) SetDocument(url, markup string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
	p.html = markup
}

// -- schemas.Page --

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigations = append(p.navigations, url)
	if err, ok := p.navErrs[url]; ok {
		return err
	}
	markup, ok := p.routes[url]
	if !ok {
		return fmt.Errorf("page load error net::ERR_NAME_NOT_RESOLVED at %s", url)
	}
	p.url = url
	p.html = markup
	return nil
}

func (p *FakePage) URL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *FakePage) HTML(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html, nil
}

func (p *FakePage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.find(selector).Length() == 0 {
		return fmt.Errorf("timeout waiting for %s after %s", selector, timeout)
	}
	return nil
}

func (p *FakePage) Type(ctx context.Context, selector, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkAction(ctx, selector); err != nil {
		return err
	}
	p.typed[selector] = text
	return nil
}

func (p *FakePage) Click(ctx context.Context, selector string) error {
	p.mu.Lock()
	if err := p.checkAction(ctx, selector); err != nil {
		p.mu.Unlock()
		return err
	}
	p.clicks = append(p.clicks, selector)
	hook := p.onClick[selector]
	p.mu.Unlock()

	if hook != nil {
		hook(p)
	}
	return nil
}

// SelectOption matches value against option values and labels
// case-insensitively, like the browser implementation.
func (p *FakePage) SelectOption(ctx context.Context, selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkAction(ctx, selector); err != nil {
		return err
	}
	want := strings.ToLower(strings.TrimSpace(value))
	var matched string
	found := false
	p.find(selector).First().Find("option").EachWithBreak(func(_ int, o *goquery.Selection) bool {
		v, has := o.Attr("value")
		label := strings.TrimSpace(o.Text())
		if !has {
			v = label
		}
		if strings.ToLower(strings.TrimSpace(v)) == want || strings.ToLower(label) == want {
			matched, found = v, true
			return false
		}
		return true
	})
	if !found {
		return fmt.Errorf("select %s: option not found: %q", selector, value)
	}
	p.selected[selector] = matched
	return nil
}

func (p *FakePage) SetChecked(ctx context.Context, selector string, checked bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkAction(ctx, selector); err != nil {
		return err
	}
	p.checked[selector] = checked
	return nil
}

func (p *FakePage) PressEnter(ctx context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkAction(ctx, selector); err != nil {
		return err
	}
	p.enters = append(p.enters, selector)
	return nil
}

func (p *FakePage) Evaluate(ctx context.Context, script string, res interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch dst := res.(type) {
	case *string:
		if v, ok := p.evalResult.(string); ok {
			*dst = v
		}
	case *bool:
		if v, ok := p.evalResult.(bool); ok {
			*dst = v
		}
	}
	return nil
}

func (p *FakePage) Screenshot(ctx context.Context) ([]byte, error) {
	return FakeScreenshot, nil
}

func (p *FakePage) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
	return nil
}

// -- Inspection --

func (p *FakePage) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

// Typed returns the text typed into selector.
func (p *FakePage) Typed(selector string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.typed[selector]
	return v, ok
}

// TypedCount is the number of distinct selectors typed into.
func (p *FakePage) TypedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.typed)
}

// Selected returns the option value chosen in selector.
func (p *FakePage) Selected(selector string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.selected[selector]
	return v, ok
}

func (p *FakePage) Checked(selector string) (bool, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.checked[selector]
	return v, ok
}

func (p *FakePage) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

func (p *FakePage) Enters() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.enters...)
}

// CloseCount is how many times Close was called.
func (p *FakePage) CloseCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

// checkAction must be called with mu held.
func (p *FakePage) checkAction(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err, ok := p.actionErrs[selector]; ok {
		return err
	}
	if p.find(selector).Length() == 0 {
		return fmt.Errorf("no element matches selector %q", selector)
	}
	return nil
}

// find must be called with mu held.
func (p *FakePage) find(selector string) *goquery.Selection {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.html))
	if err != nil {
		return &goquery.Selection{}
	}
	return doc.Find(selector)
}

// -- Browser --

// ErrFakeBrowserClosed is returned by FakeBrowser.NewPage after Close.
var ErrFakeBrowserClosed = errors.New("fake browser closed")

// FakeBrowser hands out pages produced by a factory and records every
// persona it was asked to apply.
type FakeBrowser struct {
	mu       sync.Mutex
	factory  func() *FakePage
	pages    []*FakePage
	personas []schemas.Persona
	closed   bool
	closes   int
	pageErr  error
}

var _ schemas.Browser = (*FakeBrowser)(nil)

// NewFakeBrowser creates a browser whose pages come from factory.
func NewFakeBrowser(factory func() *FakePage) *FakeBrowser {
	return &FakeBrowser{factory: factory}
}

// FailNewPage makes every NewPage call return err.
func (b *FakeBrowser) FailNewPage(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pageErr = err
}

func (b *FakeBrowser) NewPage(ctx context.Context, persona schemas.Persona) (schemas.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrFakeBrowserClosed
	}
	if b.pageErr != nil {
		return nil, b.pageErr
	}
	page := b.factory()
	b.pages = append(b.pages, page)
	b.personas = append(b.personas, persona)
	return page, nil
}

func (b *FakeBrowser) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.closes++
	return nil
}

// Pages returns every page created so far.
func (b *FakeBrowser) Pages() []*FakePage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*FakePage(nil), b.pages...)
}

func (b *FakeBrowser) Personas() []schemas.Persona {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]schemas.Persona(nil), b.personas...)
}

func (b *FakeBrowser) CloseCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closes
}
