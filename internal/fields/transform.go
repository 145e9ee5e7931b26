package fields

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/goodsign/monday"

	"github.com/xkilldash9x/snapreg/api/schemas"
)

// dateLayouts are tried in order when normalizing purchase dates.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"01/02/06",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"Monday, January 2, 2006",
}

// FormatEmail lowercases and trims an email address.
func FormatEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FormatPhone reformats US numbers: ten digits become (XXX) XXX-XXXX and
// eleven digits with a leading 1 become +1 (XXX) XXX-XXXX. Anything else is
// returned unchanged.
func FormatPhone(s string) string {
	digits := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	switch {
	case len(digits) == 10:
		return "(" + string(digits[0:3]) + ") " + string(digits[3:6]) + "-" + string(digits[6:10])
	case len(digits) == 11 && digits[0] == '1':
		return "+1 (" + string(digits[1:4]) + ") " + string(digits[4:7]) + "-" + string(digits[7:11])
	default:
		return s
	}
}

// ParseDate parses a purchase date written in any of the supported layouts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range dateLayouts {
		t, err := monday.Parse(layout, s, monday.LocaleEnUS)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// FormatDate rewrites a date as YYYY-MM-DD. Unparseable input is returned
// trimmed but otherwise unchanged.
func FormatDate(s string) string {
	t, err := ParseDate(s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return t.Format("2006-01-02")
}

// FormatNumber coerces currency-like strings ("$1,299.00") into a plain
// decimal. Non-numeric input is returned trimmed.
func FormatNumber(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == '.' || r == '-' {
			return r
		}
		if r == ',' || r == '$' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatBool coerces common truthy spellings to "true" and everything else
// to "false".
func FormatBool(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1", "on", "checked":
		return "true"
	}
	return "false"
}

// Transform converts a raw attribute value into the representation the field
// expects.
func Transform(attr schemas.Attribute, field schemas.DetectedField, value string) string {
	switch {
	case attr == schemas.AttrEmail || field.Kind == schemas.InputEmail:
		return FormatEmail(value)
	case attr == schemas.AttrPhone || field.Kind == schemas.InputTel:
		return FormatPhone(strings.TrimSpace(value))
	case attr == schemas.AttrPurchaseDate || field.Kind == schemas.InputDate:
		return FormatDate(value)
	case field.Kind == schemas.InputNumber || attr == schemas.AttrPurchasePrice:
		return FormatNumber(value)
	case field.Kind == schemas.InputCheckbox:
		return FormatBool(value)
	case field.Kind == schemas.InputSelect || field.Kind == schemas.InputRadio:
		return matchOption(attr, field.Options, strings.TrimSpace(value))
	}
	return strings.TrimSpace(value)
}

// matchOption picks the option value that represents value. States are tried
// as both abbreviation and full name. Without a match the value is returned
// as is and the fill decides what to do.
func matchOption(attr schemas.Attribute, options []schemas.SelectOption, value string) string {
	if len(options) == 0 {
		return value
	}
	candidates := []string{value}
	if attr == schemas.AttrState {
		candidates = StateRepresentations(value)
	}
	for _, c := range candidates {
		for _, o := range options {
			if strings.EqualFold(o.Value, c) || strings.EqualFold(o.Label, c) {
				if o.Value != "" {
					return o.Value
				}
				return o.Label
			}
		}
	}
	return value
}
