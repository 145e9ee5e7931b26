package stealth

import (
	"context"
	_ "embed"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/config"
)

//go:embed evasions.js
var evasionsScript string

// BuildScript returns the evasions script with the persona prelude that
// it reads on every new document.
func BuildScript(p schemas.Persona) (string, error) {
	prelude := struct {
		Platform  string   `json:"platform"`
		Languages []string `json:"languages"`
		Width     int64    `json:"width"`
		Height    int64    `json:"height"`
	}{p.Platform, p.Languages, p.Width, p.Height}

	data, err := json.Marshal(prelude)
	if err != nil {
		return "", fmt.Errorf("failed to encode persona: %w", err)
	}
	return "window.__snapregPersona = " + string(data) + ";\n" + evasionsScript, nil
}

// AcceptLanguage renders the persona languages as an Accept-Language header,
// with decreasing quality values after the first entry.
func AcceptLanguage(languages []string) string {
	if len(languages) == 0 {
		return "en-US,en;q=0.9"
	}
	parts := make([]string, 0, len(languages))
	q := 0.9
	for i, lang := range languages {
		if i == 0 {
			parts = append(parts, lang)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s;q=%.1f", lang, q))
		if q > 0.2 {
			q -= 0.1
		}
	}
	return strings.Join(parts, ",")
}

// Apply constructs a sequence of Chrome DevTools Protocol actions to make the
// headless browser appear more like a standard, user-operated browser.
func Apply(p schemas.Persona, logger *zap.Logger) chromedp.Tasks {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("Applying browser stealth persona",
		zap.String("userAgent", p.UserAgent),
		zap.String("timezone", p.Timezone),
		zap.String("locale", p.Locale),
	)

	tasks := chromedp.Tasks{
		emulation.SetUserAgentOverride(p.UserAgent).
			WithPlatform(p.Platform).
			WithAcceptLanguage(AcceptLanguage(p.Languages)),
		chromedp.ActionFunc(func(ctx context.Context) error {
			script, err := BuildScript(p)
			if err != nil {
				return err
			}
			if _, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx); err != nil {
				return fmt.Errorf("failed to inject evasions script: %w", err)
			}
			return nil
		}),
	}
	if p.Timezone != "" {
		tasks = append(tasks, emulation.SetTimezoneOverride(p.Timezone))
	}
	if p.Locale != "" {
		tasks = append(tasks, emulation.SetLocaleOverride().WithLocale(p.Locale))
	}
	if p.Width > 0 && p.Height > 0 {
		tasks = append(tasks, emulation.SetDeviceMetricsOverride(p.Width, p.Height, 1.0, false))
	}
	tasks = append(tasks, network.SetExtraHTTPHeaders(network.Headers{
		"Accept-Language": AcceptLanguage(p.Languages),
	}))
	return tasks
}

// BasePersona derives the fixed part of every persona from the browser
// settings: viewport, locale and timezone.
func BasePersona(cfg config.BrowserConfig) schemas.Persona {
	p := schemas.DefaultPersona
	p.Languages = append([]string(nil), schemas.DefaultPersona.Languages...)
	if cfg.Viewport.Width > 0 && cfg.Viewport.Height > 0 {
		p.Width = int64(cfg.Viewport.Width)
		p.Height = int64(cfg.Viewport.Height)
	}
	if cfg.Timezone != "" {
		p.Timezone = cfg.Timezone
	}
	if cfg.Locale != "" {
		p.Locale = cfg.Locale
		p.Languages = []string{cfg.Locale}
		if lang, _, found := strings.Cut(cfg.Locale, "-"); found {
			p.Languages = append(p.Languages, lang)
		}
	}
	return p
}

// PersonaPool hands out personas sharing one viewport, locale and timezone
// but with a user agent drawn at random from a fixed pool.
type PersonaPool struct {
	mu         sync.Mutex
	rng        *rand.Rand
	base       schemas.Persona
	userAgents []string
}

// NewPersonaPool creates a pool. An empty userAgents list always yields the
// base persona's user agent.
func NewPersonaPool(base schemas.Persona, userAgents []string) *PersonaPool {
	return &PersonaPool{
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		base:       base,
		userAgents: append([]string(nil), userAgents...),
	}
}

// Next returns a persona with a randomized user agent.
func (pp *PersonaPool) Next() schemas.Persona {
	p := pp.base
	p.Languages = append([]string(nil), pp.base.Languages...)
	if len(pp.userAgents) == 0 {
		return p
	}
	pp.mu.Lock()
	idx := pp.rng.Intn(len(pp.userAgents))
	pp.mu.Unlock()

	p.UserAgent = pp.userAgents[idx]
	p.Platform = platformFor(p.UserAgent, p.Platform)
	return p
}

// platformFor keeps navigator.platform consistent with the chosen user agent.
func platformFor(userAgent, fallback string) string {
	switch {
	case strings.Contains(userAgent, "Windows"):
		return "Win32"
	case strings.Contains(userAgent, "Macintosh"):
		return "MacIntel"
	case strings.Contains(userAgent, "Linux"):
		return "Linux x86_64"
	default:
		return fallback
	}
}
