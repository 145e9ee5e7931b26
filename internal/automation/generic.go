// internal/automation/generic.go
package automation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/snapreg/api/schemas"
)

// GenericName is the strategy name reported for fallback runs.
const GenericName = "generic"

// Generic fills any registration form through field detection and mapping
// instead of known selectors. It is the fallback for manufacturers without a
// dedicated strategy and is noticeably less reliable.
type Generic struct {
	manufacturer string
	candidates   []string
	onResolved   func(manufacturer, url string)
}

// GenericOption configures a Generic strategy.
type GenericOption func(*Generic)

// WithURLReporter is called with the candidate URL that actually loaded.
func WithURLReporter(fn func(manufacturer, url string)) GenericOption {
	return func(g *Generic) { g.onResolved = fn }
}

// NewGeneric creates a fallback strategy that tries candidateURLs in order.
func NewGeneric(manufacturer string, candidateURLs []string, opts ...GenericOption) *Generic {
	g := &Generic{
		manufacturer: manufacturer,
		candidates:   append([]string(nil), candidateURLs...),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ Navigator = (*Generic)(nil)

func (g *Generic) Name() string { return GenericName }

// Manufacturer is the name the fallback was built for.
func (g *Generic) Manufacturer() string { return g.manufacturer }

// CandidateURLs returns the guessed registration URLs in the order tried.
func (g *Generic) CandidateURLs() []string { return append([]string(nil), g.candidates...) }

func (g *Generic) RegistrationURL() string {
	if len(g.candidates) == 0 {
		return ""
	}
	return g.candidates[0]
}

func (g *Generic) RequiredFields() []schemas.Attribute {
	return []schemas.Attribute{
		schemas.AttrFirstName, schemas.AttrLastName, schemas.AttrEmail, schemas.AttrModelNumber,
	}
}

// Navigate loads the first candidate that does not fail with a network or
// timeout error.
func (g *Generic) Navigate(ctx context.Context, s *Session) error {
	if len(g.candidates) == 0 {
		return Abort(schemas.ErrorKindValidation, "no registration url candidates for %q", g.manufacturer)
	}
	var lastErr error
	for _, url := range g.candidates {
		err := s.Page.Navigate(ctx, url)
		if err == nil {
			s.Logger.Info("Generic registration page loaded.", zap.String("url", url))
			if g.onResolved != nil {
				g.onResolved(g.manufacturer, url)
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
		switch ClassifyError(err) {
		case schemas.ErrorKindNetwork, schemas.ErrorKindTimeout:
			s.Logger.Debug("Candidate registration url unreachable.", zap.String("url", url), zap.Error(err))
			continue
		}
		return fmt.Errorf("failed to load %s: %w", url, err)
	}
	return fmt.Errorf("no registration url candidate reachable: %w", lastErr)
}

func (g *Generic) FillForm(ctx context.Context, s *Session) error {
	s.DismissCookieConsent(ctx)
	if err := s.BypassLoginWall(ctx); err != nil {
		return err
	}

	detected, err := s.Detector.Detect(ctx, s.Page)
	if err != nil {
		return err
	}
	plan := s.Mapper.Map(detected, s.Data)
	if len(plan) == 0 {
		return Abort(schemas.ErrorKindFormChanged, "registration form fields not found (%d controls detected)", len(detected))
	}
	filled := s.ApplyMappings(ctx, plan)
	s.Logger.Info("Generic form fill complete.",
		zap.Int("detected", len(detected)), zap.Int("mapped", len(plan)), zap.Int("filled", filled))
	return ctx.Err()
}

func (g *Generic) SubmitForm(ctx context.Context, s *Session) error {
	return s.ClickSubmit(ctx)
}

func (g *Generic) VerifySuccess(ctx context.Context, s *Session) (bool, error) {
	return s.VerifySubmission(ctx, VerifyOptions{})
}
