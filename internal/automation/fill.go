// internal/automation/fill.go
package automation

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/fields"
)

// FillWithFallback types value into the first selector that becomes visible
// within the short timeout. An empty value is skipped. When nothing can be
// filled the run continues: required fields log a warning, optional ones a
// debug line. A form that really needed the field will reject the
// submission, and that is reported then.
func (s *Session) FillWithFallback(ctx context.Context, selectors []string, value, fieldName string, optional bool) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	return s.tryEach(ctx, selectors, fieldName, optional, func(sel string) error {
		return s.Page.Type(ctx, sel, value)
	})
}

// SelectWithFallback picks the first candidate value accepted by the first
// visible select among selectors.
func (s *Session) SelectWithFallback(ctx context.Context, selectors, candidates []string, fieldName string, optional bool) bool {
	var values []string
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			values = append(values, c)
		}
	}
	if len(values) == 0 {
		return false
	}
	return s.tryEach(ctx, selectors, fieldName, optional, func(sel string) error {
		var lastErr error
		for _, v := range values {
			if lastErr = s.Page.SelectOption(ctx, sel, v); lastErr == nil {
				return nil
			}
		}
		return lastErr
	})
}

// SelectState fills a state control. Selects are tried with every spelling
// of the state; text inputs get fields.CanonicalState.
func (s *Session) SelectState(ctx context.Context, selectSelectors, inputSelectors []string, state string, optional bool) bool {
	if strings.TrimSpace(state) == "" {
		return false
	}
	if s.SelectWithFallback(ctx, selectSelectors, fields.StateRepresentations(state), "state", true) {
		return true
	}
	return s.FillWithFallback(ctx, inputSelectors, fields.CanonicalState(state), "state", optional)
}

// CheckWithFallback ticks the first visible checkbox among selectors.
func (s *Session) CheckWithFallback(ctx context.Context, selectors []string, fieldName string, optional bool) bool {
	return s.tryEach(ctx, selectors, fieldName, optional, func(sel string) error {
		return s.Page.SetChecked(ctx, sel, true)
	})
}

func (s *Session) tryEach(ctx context.Context, selectors []string, fieldName string, optional bool, act func(sel string) error) bool {
	for _, sel := range selectors {
		if ctx.Err() != nil {
			return false
		}
		if !s.Visible(ctx, sel, s.Timeouts.Short) {
			continue
		}
		if err := act(sel); err != nil {
			s.Logger.Debug("Selector visible but fill failed, trying next.",
				zap.String("field", fieldName), zap.String("selector", sel), zap.Error(err))
			continue
		}
		s.Logger.Debug("Field filled.", zap.String("field", fieldName), zap.String("selector", sel))
		return true
	}
	if optional {
		s.Logger.Debug("Optional field not filled.", zap.String("field", fieldName))
	} else {
		s.Logger.Warn("Required field could not be filled, continuing.",
			zap.String("field", fieldName), zap.Strings("selectors", selectors))
	}
	return false
}

// ApplyMappings writes a fill plan produced by the field mapper and returns
// how many fields were written. Failures follow the FillWithFallback policy.
func (s *Session) ApplyMappings(ctx context.Context, plan []schemas.FieldMapping) int {
	filled := 0
	for _, m := range plan {
		if ctx.Err() != nil {
			break
		}
		if err := s.applyMapping(ctx, m); err != nil {
			fieldLogger := s.Logger.With(zap.String("field", m.Field.Name), zap.String("attribute", string(m.Attribute)), zap.Error(err))
			if m.Field.Required {
				fieldLogger.Warn("Required field could not be filled, continuing.")
			} else {
				fieldLogger.Debug("Optional field not filled.")
			}
			continue
		}
		filled++
	}
	return filled
}

func (s *Session) applyMapping(ctx context.Context, m schemas.FieldMapping) error {
	sel := m.Field.Selector
	switch m.Field.Kind {
	case schemas.InputSelect:
		candidates := []string{m.Value}
		if m.Attribute == schemas.AttrState {
			candidates = fields.StateRepresentations(m.Value)
		}
		var err error
		for _, c := range candidates {
			if err = s.Page.SelectOption(ctx, sel, c); err == nil {
				return nil
			}
		}
		return err
	case schemas.InputCheckbox:
		return s.Page.SetChecked(ctx, sel, m.Value == "true")
	case schemas.InputRadio:
		return s.Page.Click(ctx, sel+`[value="`+strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(m.Value)+`"]`)
	default:
		return s.Page.Type(ctx, sel, m.Value)
	}
}
