package schemas

import (
	"context"
	"time"
)

// -- Browser Persona Schemas --

// Persona is the fingerprint applied to one isolated browsing context.
type Persona struct {
	UserAgent string   `json:"userAgent"`
	Platform  string   `json:"platform"`
	Languages []string `json:"languages"`
	Width     int64    `json:"width"`
	Height    int64    `json:"height"`
	Timezone  string   `json:"timezoneId"`
	Locale    string   `json:"locale"`
}

// DefaultPersona is used when no persona pool is configured.
var DefaultPersona = Persona{
	UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	Platform:  "Win32",
	Languages: []string{"en-US", "en"},
	Width:     1920,
	Height:    1080,
	Timezone:  "America/New_York",
	Locale:    "en-US",
}

// -- Browser Interfaces --

// Page is a single tab inside an isolated browsing context. It is owned by
// exactly one automation run.
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	// HTML returns the serialized document.
	HTML(ctx context.Context) (string, error)
	// WaitVisible blocks until the selector matches a visible element or the
	// timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// Type clears the element and types text into it.
	Type(ctx context.Context, selector, text string) error
	Click(ctx context.Context, selector string) error
	// SelectOption picks the option whose value or visible label equals value.
	SelectOption(ctx context.Context, selector, value string) error
	SetChecked(ctx context.Context, selector string, checked bool) error
	PressEnter(ctx context.Context, selector string) error
	Evaluate(ctx context.Context, script string, res interface{}) error
	Screenshot(ctx context.Context) ([]byte, error)
	// Close releases the page and its browsing context. It is safe to call
	// more than once.
	Close(ctx context.Context) error
}

// Browser is one browser process capable of producing isolated pages.
type Browser interface {
	NewPage(ctx context.Context, persona Persona) (Page, error)
	Close(ctx context.Context) error
}

// Launcher starts browser processes.
type Launcher interface {
	Launch(ctx context.Context, opts Options) (Browser, error)
}
