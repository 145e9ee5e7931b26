// internal/automation/session.go
package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/config"
	"github.com/xkilldash9x/snapreg/internal/fields"
)

// Timeouts are the element waits a strategy may use: Short for optional
// probes, Element for ordinary fields and Long for page transitions.
type Timeouts struct {
	Short   time.Duration
	Element time.Duration
	Long    time.Duration
}

// TimeoutsFromConfig reads the element waits from the browser settings.
func TimeoutsFromConfig(cfg config.BrowserConfig) Timeouts {
	return Timeouts{
		Short:   cfg.ShortElementTimeout,
		Element: cfg.ElementTimeout,
		Long:    cfg.LongElementTimeout,
	}
}

// DefaultTimeouts matches the configuration defaults.
var DefaultTimeouts = Timeouts{Short: 2 * time.Second, Element: 5 * time.Second, Long: 15 * time.Second}

// Session is everything a strategy touches during one run. It is owned by a
// single run and never shared.
type Session struct {
	RunID        string
	Attempt      int
	Manufacturer string
	Page         schemas.Page
	Data         *schemas.RegistrationData
	Logger       *zap.Logger
	Timeouts     Timeouts
	Detector     *fields.Detector
	Mapper       *fields.Mapper
}

// Document parses the current page markup.
func (s *Session) Document(ctx context.Context) (*goquery.Document, error) {
	markup, err := s.Page.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page markup: %w", err)
	}
	return doc, nil
}

// Visible reports whether selector shows up within timeout.
func (s *Session) Visible(ctx context.Context, selector string, timeout time.Duration) bool {
	return s.Page.WaitVisible(ctx, selector, timeout) == nil
}

// Settle waits for the document body after a navigation or submission.
func (s *Session) Settle(ctx context.Context) error {
	if err := s.Page.WaitVisible(ctx, "body", s.Timeouts.Long); err != nil {
		return fmt.Errorf("page did not settle: %w", err)
	}
	return nil
}
