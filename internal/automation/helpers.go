// internal/automation/helpers.go
package automation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/fields"
)

// -- Cookie consent --

var cookieConsentSelectors = []string{
	"#onetrust-accept-btn-handler",
	"#truste-consent-button",
	"#accept-cookies",
	"button#acceptAll",
	".cookie-accept",
	".cookie-consent-accept",
	`[data-testid="cookie-accept"]`,
	`button[aria-label*="Accept"]`,
}

var cookieConsentText = regexp.MustCompile(`(?i)^\s*(accept( all)?( cookies)?|allow all( cookies)?|i agree|agree|got it|ok)\s*$`)

// DismissCookieConsent clicks the first cookie banner button it can find.
// Banners are optional, so nothing here is fatal.
func (s *Session) DismissCookieConsent(ctx context.Context) {
	doc, err := s.Document(ctx)
	if err != nil {
		s.Logger.Debug("Could not snapshot page for cookie consent.", zap.Error(err))
		return
	}
	sel := firstPresent(doc, cookieConsentSelectors)
	if sel == "" {
		sel = findByText(doc, "button, a[role=\"button\"], [role=\"button\"]", cookieConsentText)
	}
	if sel == "" {
		s.Logger.Debug("No cookie consent banner found.")
		return
	}
	if err := s.Page.Click(ctx, sel); err != nil {
		s.Logger.Debug("Cookie consent click failed.", zap.String("selector", sel), zap.Error(err))
		return
	}
	s.Logger.Debug("Cookie consent dismissed.", zap.String("selector", sel))
}

// -- Login walls --

var (
	signInText = regexp.MustCompile(`(?i)\b(sign in|log in|login)\b`)
	guestText  = regexp.MustCompile(`(?i)(continue|register|proceed|checkout)\s+(as\s+(a\s+)?)?guest|guest\s+registration|register without (an )?account|skip sign[- ]?in`)

	guestSelectors = []string{
		`a[href*="guest"]`,
		`button[id*="guest"]`,
		`button[name*="guest"]`,
		`[data-testid*="guest"]`,
	}
)

// BypassLoginWall takes the guest path when the page is a login wall. It
// returns ErrAccountRequired when there is a wall and no guest path.
func (s *Session) BypassLoginWall(ctx context.Context) error {
	doc, err := s.Document(ctx)
	if err != nil {
		return err
	}
	if !isLoginWall(doc) {
		return nil
	}
	sel := firstPresent(doc, guestSelectors)
	if sel == "" {
		sel = findByText(doc, "a, button, [role=\"button\"]", guestText)
	}
	if sel == "" {
		s.Logger.Warn("Login wall without guest path.")
		return ErrAccountRequired
	}
	s.Logger.Info("Login wall detected, continuing as guest.", zap.String("selector", sel))
	if err := s.Page.Click(ctx, sel); err != nil {
		return fmt.Errorf("guest path %s not clickable: %w", sel, err)
	}
	return s.Settle(ctx)
}

func isLoginWall(doc *goquery.Document) bool {
	if doc.Find(`input[type="password"]`).Length() == 0 {
		return false
	}
	return signInText.MatchString(doc.Find("body").Text())
}

// -- Submission --

// DefaultSubmitSelectors are tried in order before text matching.
var DefaultSubmitSelectors = []string{
	`button[type="submit"]`,
	`input[type="submit"]`,
	`button[id*="submit"]`,
	`button[name*="submit"]`,
	`[data-testid*="submit"]`,
	`button[class*="submit"]`,
}

var submitText = regexp.MustCompile(`(?i)^\s*(submit|register|register (my )?product|complete registration|finish|send|continue)\s*$`)

// FindSubmit returns a selector for the submit control, checking preferred
// first, then the default selectors, then buttons whose text reads like a
// submit action.
func (s *Session) FindSubmit(ctx context.Context, preferred ...string) (string, error) {
	doc, err := s.Document(ctx)
	if err != nil {
		return "", err
	}
	if sel := firstPresent(doc, preferred); sel != "" {
		return sel, nil
	}
	if sel := firstPresent(doc, DefaultSubmitSelectors); sel != "" {
		return sel, nil
	}
	if sel := findByText(doc, `button, a[role="button"], input[type="button"]`, submitText); sel != "" {
		return sel, nil
	}
	return "", Abort(schemas.ErrorKindFormChanged, "submit button not found")
}

// ClickSubmit finds and clicks the submit control, then waits for the page
// to settle.
func (s *Session) ClickSubmit(ctx context.Context, preferred ...string) error {
	sel, err := s.FindSubmit(ctx, preferred...)
	if err != nil {
		return err
	}
	s.Logger.Info("Submitting form.", zap.String("selector", sel))
	if err := s.Page.Click(ctx, sel); err != nil {
		return fmt.Errorf("failed to click submit %s: %w", sel, err)
	}
	return s.Settle(ctx)
}

// -- Verification --

// successURL matches post-submit locations.
var successURL = regexp.MustCompile(`(?i)thank-you|success|confirmation|complete|registered`)

// VerifyOptions extends the built-in verification signals with
// manufacturer-specific ones.
type VerifyOptions struct {
	SuccessSelectors []string
	ErrorSelectors   []string
}

var (
	defaultSuccessSelectors = []string{
		".success-message", ".registration-success", ".thank-you", ".confirmation-message",
		`[data-testid*="success"]`,
	}
	successText = regexp.MustCompile(`(?i)thank you for (registering|your registration)|registration (was )?(successful|complete)|successfully registered|product (has been|is now) registered`)
	alreadyText = regexp.MustCompile(`(?i)already (been )?registered|previously registered|duplicate registration`)

	defaultErrorSelectors = []string{
		".error-message", ".form-error", ".alert-danger", ".invalid-feedback", ".field-error",
		`[role="alert"]`,
	}
)

// VerifySubmission applies the three success signals in order: the URL, a
// success message, then an "already registered" notice. Without any of them
// it returns a validation error if the form shows an error message, and an
// ambiguous false otherwise.
func (s *Session) VerifySubmission(ctx context.Context, opts VerifyOptions) (bool, error) {
	url, err := s.Page.URL(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read page location: %w", err)
	}
	if successURL.MatchString(url) {
		s.Logger.Debug("Success URL matched.", zap.String("url", url))
		return true, nil
	}

	doc, err := s.Document(ctx)
	if err != nil {
		return false, err
	}
	if sel := firstWithText(doc, append(append([]string(nil), opts.SuccessSelectors...), defaultSuccessSelectors...)); sel != "" {
		s.Logger.Debug("Success message found.", zap.String("selector", sel))
		return true, nil
	}
	body := doc.Find("body").Text()
	if successText.MatchString(body) {
		return true, nil
	}
	if alreadyText.MatchString(body) {
		s.Logger.Info("Product already registered, treating as success.")
		return true, nil
	}

	errorSelectors := append(append([]string(nil), opts.ErrorSelectors...), defaultErrorSelectors...)
	if sel := firstWithText(doc, errorSelectors); sel != "" {
		msg := strings.Join(strings.Fields(doc.Find(sel).First().Text()), " ")
		return false, Abort(schemas.ErrorKindValidation, "validation error on submission: %s", msg)
	}
	return false, nil
}

// -- DOM helpers --

func firstPresent(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if doc.Find(sel).Length() > 0 {
			return sel
		}
	}
	return ""
}

func firstWithText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		found := false
		doc.Find(sel).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			found = strings.TrimSpace(el.Text()) != ""
			return !found
		})
		if found {
			return sel
		}
	}
	return ""
}

// findByText returns a re-locatable selector for the first candidate whose
// text (or value, for inputs) matches re.
func findByText(doc *goquery.Document, candidates string, re *regexp.Regexp) string {
	var sel string
	doc.Find(candidates).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		text := strings.TrimSpace(el.Text())
		if text == "" {
			text = el.AttrOr("value", "")
		}
		if re.MatchString(text) {
			sel = fields.SelectorFor(el)
			return false
		}
		return true
	})
	return sel
}
