// internal/manufacturers/site.go
package manufacturers

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/automation"
	"github.com/xkilldash9x/snapreg/internal/fields"
)

type fieldKind int

const (
	kindText fieldKind = iota
	kindSelect
	kindState
	kindCheckbox
)

// field is one control on a manufacturer form. Selectors are tried in order.
type field struct {
	attr schemas.Attribute
	// label names fields that have no attribute, such as the terms box.
	label     string
	selectors []string
	// inputs are text fallbacks for a state control rendered as a select.
	inputs   []string
	kind     fieldKind
	optional bool
	// format replaces the shared value formatting for sites that expect
	// their own layout.
	format func(string) string
}

func (f field) name() string {
	if f.label != "" {
		return f.label
	}
	return string(f.attr)
}

// advance moves a multi-step form to its next step.
type advance struct {
	buttons []string
	// await lists elements of the next step. Any one of them appearing
	// counts as success.
	await []string
	// rejected lists inline errors the step shows when it refuses the input.
	rejected []string
}

type section struct {
	name    string
	fields  []field
	advance *advance
}

// Site is a manufacturer strategy described by its selectors. The fill runs
// section by section (product, personal, address, purchase) and a missing
// optional control never stops it.
type Site struct {
	name     string
	url      string
	aliases  []string
	required []schemas.Attribute
	optional []schemas.Attribute

	formReady    []string
	sections     []section
	submit       []string
	verify       automation.VerifyOptions
	confirmation []string
}

var (
	_ automation.Strategy            = (*Site)(nil)
	_ automation.ConfirmationLocator = (*Site)(nil)
	_ automation.OptionalFielder     = (*Site)(nil)
)

func (st *Site) Name() string            { return st.name }
func (st *Site) RegistrationURL() string { return st.url }

// Aliases are other names the manufacturer is requested under, such as
// sub-brands sharing the same registration site.
func (st *Site) Aliases() []string { return append([]string(nil), st.aliases...) }

func (st *Site) RequiredFields() []schemas.Attribute {
	return append([]schemas.Attribute(nil), st.required...)
}

func (st *Site) OptionalFields() []schemas.Attribute {
	return append([]schemas.Attribute(nil), st.optional...)
}

func (st *Site) ConfirmationSelectors() []string {
	return append([]string(nil), st.confirmation...)
}

func (st *Site) FillForm(ctx context.Context, s *automation.Session) error {
	s.DismissCookieConsent(ctx)
	if err := s.BypassLoginWall(ctx); err != nil {
		return err
	}
	if err := st.awaitForm(ctx, s); err != nil {
		return err
	}

	filled := 0
	for _, sec := range st.sections {
		n := st.fillSection(ctx, s, sec)
		filled += n
		s.Logger.Debug("Section filled.", zap.String("section", sec.name), zap.Int("fields", n))
		if err := ctx.Err(); err != nil {
			return err
		}
		if sec.advance != nil {
			if err := st.nextStep(ctx, s, sec.name, sec.advance); err != nil {
				return err
			}
		}
	}
	s.Logger.Info("Form fill complete.", zap.Int("filled", filled))
	return nil
}

func (st *Site) SubmitForm(ctx context.Context, s *automation.Session) error {
	return s.ClickSubmit(ctx, st.submit...)
}

func (st *Site) VerifySuccess(ctx context.Context, s *automation.Session) (bool, error) {
	return s.VerifySubmission(ctx, st.verify)
}

func (st *Site) awaitForm(ctx context.Context, s *automation.Session) error {
	if len(st.formReady) == 0 {
		return nil
	}
	for _, sel := range st.formReady {
		if s.Visible(ctx, sel, s.Timeouts.Long) {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return automation.Abort(schemas.ErrorKindFormChanged, "%s registration form not found", st.name)
}

func (st *Site) fillSection(ctx context.Context, s *automation.Session, sec section) int {
	n := 0
	for _, f := range sec.fields {
		if st.fillField(ctx, s, f) {
			n++
		}
	}
	return n
}

func (st *Site) fillField(ctx context.Context, s *automation.Session, f field) bool {
	if f.kind == kindCheckbox {
		return s.CheckWithFallback(ctx, f.selectors, f.name(), f.optional)
	}

	raw := s.Data.Value(f.attr)
	switch f.kind {
	case kindState:
		return s.SelectState(ctx, f.selectors, f.inputs, raw, f.optional)
	case kindSelect:
		return s.SelectWithFallback(ctx, f.selectors, []string{raw}, f.name(), f.optional)
	}
	var value string
	if f.format != nil {
		value = f.format(raw)
	} else {
		value = fields.Transform(f.attr, schemas.DetectedField{Kind: schemas.InputText}, raw)
	}
	return s.FillWithFallback(ctx, f.selectors, value, f.name(), f.optional)
}

// dateAs formats a purchase date with layout. Unparseable dates are passed
// through trimmed.
func dateAs(layout string) func(string) string {
	return func(v string) string {
		t, err := fields.ParseDate(v)
		if err != nil {
			return strings.TrimSpace(v)
		}
		return t.Format(layout)
	}
}

// digitsOnly strips everything but digits from a phone number, dropping a
// leading US country code.
func digitsOnly(v string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, v)
	if len(digits) == 11 && digits[0] == '1' {
		return digits[1:]
	}
	return digits
}

// nextStep clicks the step's continue button and waits for the next step.
// A form without a visible continue button is treated as single-page.
func (st *Site) nextStep(ctx context.Context, s *automation.Session, step string, a *advance) error {
	button := ""
	for _, sel := range a.buttons {
		if s.Visible(ctx, sel, s.Timeouts.Short) {
			button = sel
			break
		}
	}
	if button == "" {
		s.Logger.Debug("No continue button, assuming single page form.", zap.String("step", step))
		return nil
	}
	if err := s.Page.Click(ctx, button); err != nil {
		return fmt.Errorf("failed to continue past %s step: %w", step, err)
	}

	for _, sel := range a.await {
		if s.Visible(ctx, sel, s.Timeouts.Element) {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if doc, err := s.Document(ctx); err == nil {
		for _, sel := range a.rejected {
			if msg := strings.Join(strings.Fields(doc.Find(sel).First().Text()), " "); msg != "" {
				return automation.Abort(schemas.ErrorKindValidation, "%s step rejected the input: %s", step, msg)
			}
		}
	}
	return automation.Abort(schemas.ErrorKindFormChanged, "next step not found after %s step", step)
}
