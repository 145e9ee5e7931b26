// internal/fields/detector.go
package fields

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/snapreg/api/schemas"
)

// controlSelector matches every element the detector considers.
const controlSelector = "input, select, textarea"

// ignoredInputTypes are never user-fillable registration fields.
var ignoredInputTypes = map[string]bool{
	"hidden": true, "submit": true, "button": true, "image": true,
	"reset": true, "file": true, "password": true, "search": true,
}

// HTMLSource is anything that can produce the current document markup.
// schemas.Page satisfies it.
type HTMLSource interface {
	HTML(ctx context.Context) (string, error)
}

// Detector enumerates the fillable controls of a page.
type Detector struct {
	logger *zap.Logger
}

// NewDetector creates a Detector.
func NewDetector(logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{logger: logger.Named("field_detector")}
}

// Detect snapshots the page and detects its fields.
func (d *Detector) Detect(ctx context.Context, src HTMLSource) ([]schemas.DetectedField, error) {
	markup, err := src.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot page for field detection: %w", err)
	}
	return d.DetectHTML(markup)
}

// DetectHTML detects fields in a markup string.
func (d *Detector) DetectHTML(markup string) ([]schemas.DetectedField, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page markup: %w", err)
	}
	fields := d.DetectDocument(doc)
	d.logger.Debug("Field detection complete.", zap.Int("fields", len(fields)))
	return fields, nil
}

// DetectDocument walks every control in doc. Controls with no name, label or
// placeholder are dropped since nothing can map them. Radio buttons sharing a
// name collapse into one field whose options are the buttons' values.
func (d *Detector) DetectDocument(doc *goquery.Document) []schemas.DetectedField {
	var fields []schemas.DetectedField
	radioIndex := make(map[string]int)

	doc.Find(controlSelector).Each(func(_ int, s *goquery.Selection) {
		kind, ok := inputKind(s)
		if !ok {
			return
		}
		if _, disabled := s.Attr("disabled"); disabled {
			return
		}

		name := fieldName(s)
		field := schemas.DetectedField{
			Name:        name,
			Selector:    fieldSelector(s),
			Kind:        kind,
			Label:       labelText(doc, s),
			Placeholder: cleanText(s.AttrOr("placeholder", "")),
			Required:    isRequired(s),
		}
		if field.Name == "" && field.Label == "" && field.Placeholder == "" {
			d.logger.Debug("Dropping unidentifiable control.", zap.String("selector", field.Selector))
			return
		}

		switch kind {
		case schemas.InputSelect:
			field.Options = selectOptions(s)
		case schemas.InputRadio:
			option := schemas.SelectOption{Value: s.AttrOr("value", "on"), Label: field.Label}
			if rawName, has := s.Attr("name"); has && rawName != "" {
				if idx, seen := radioIndex[rawName]; seen {
					fields[idx].Options = append(fields[idx].Options, option)
					fields[idx].Required = fields[idx].Required || field.Required
					return
				}
				radioIndex[rawName] = len(fields)
				field.Selector = "input[type=\"radio\"][name=\"" + cssQuote(rawName) + "\"]"
				// The group's label comes from a fieldset legend when present.
				if legend := cleanText(s.Closest("fieldset").Find("legend").First().Text()); legend != "" {
					field.Label = legend
				}
			}
			field.Options = []schemas.SelectOption{option}
		}
		fields = append(fields, field)
	})
	return fields
}

func inputKind(s *goquery.Selection) (schemas.InputKind, bool) {
	switch goquery.NodeName(s) {
	case "select":
		return schemas.InputSelect, true
	case "textarea":
		return schemas.InputTextarea, true
	case "input":
	default:
		return "", false
	}
	t := strings.ToLower(strings.TrimSpace(s.AttrOr("type", "text")))
	if ignoredInputTypes[t] {
		return "", false
	}
	switch t {
	case "email":
		return schemas.InputEmail, true
	case "tel":
		return schemas.InputTel, true
	case "date":
		return schemas.InputDate, true
	case "number":
		return schemas.InputNumber, true
	case "checkbox":
		return schemas.InputCheckbox, true
	case "radio":
		return schemas.InputRadio, true
	}
	return schemas.InputText, true
}

// fieldName prefers name, then id, then data-name.
func fieldName(s *goquery.Selection) string {
	for _, attr := range []string{"name", "id", "data-name"} {
		if v := strings.TrimSpace(s.AttrOr(attr, "")); v != "" {
			return v
		}
	}
	return ""
}

// SelectorFor returns a selector that re-locates the first element of s.
func SelectorFor(s *goquery.Selection) string {
	return fieldSelector(s.First())
}

// fieldSelector builds a selector that re-locates the control: by name, then
// by id, then by its structural nth-of-type path.
func fieldSelector(s *goquery.Selection) string {
	tag := goquery.NodeName(s)
	if name := strings.TrimSpace(s.AttrOr("name", "")); name != "" {
		return tag + "[name=\"" + cssQuote(name) + "\"]"
	}
	if id := strings.TrimSpace(s.AttrOr("id", "")); id != "" {
		if isSimpleIdent(id) {
			return "#" + id
		}
		return tag + "[id=\"" + cssQuote(id) + "\"]"
	}
	return structuralPath(s)
}

// structuralPath returns "html > body > form:nth-of-type(1) > input:nth-of-type(2)".
func structuralPath(s *goquery.Selection) string {
	var parts []string
	for n := s.Get(0); n != nil && n.Type == html.ElementNode; n = n.Parent {
		idx := 1
		for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
			if sib.Type == html.ElementNode && sib.Data == n.Data {
				idx++
			}
		}
		part := n.Data
		if n.Data != "html" && n.Data != "body" {
			part = fmt.Sprintf("%s:nth-of-type(%d)", n.Data, idx)
		}
		parts = append([]string{part}, parts...)
	}
	return strings.Join(parts, " > ")
}

// labelText resolves the human-visible label: <label for>, aria-label,
// aria-labelledby, an enclosing <label>, then the nearest preceding label.
func labelText(doc *goquery.Document, s *goquery.Selection) string {
	if id := strings.TrimSpace(s.AttrOr("id", "")); id != "" {
		if t := cleanText(doc.Find("label[for=\"" + cssQuote(id) + "\"]").First().Text()); t != "" {
			return t
		}
	}
	if t := cleanText(s.AttrOr("aria-label", "")); t != "" {
		return t
	}
	if ref := strings.TrimSpace(s.AttrOr("aria-labelledby", "")); ref != "" {
		var texts []string
		for _, id := range strings.Fields(ref) {
			if t := cleanText(doc.Find("[id=\"" + cssQuote(id) + "\"]").First().Text()); t != "" {
				texts = append(texts, t)
			}
		}
		if len(texts) > 0 {
			return strings.Join(texts, " ")
		}
	}
	if parent := s.Closest("label"); parent.Length() > 0 {
		clone := parent.Clone()
		clone.Find(controlSelector + ", option").Remove()
		if t := cleanText(clone.Text()); t != "" {
			return t
		}
	}
	return precedingLabel(s)
}

// precedingLabel finds the closest earlier sibling <label>, stopping at any
// sibling that is or holds another control, since that label belongs to it.
func precedingLabel(s *goquery.Selection) string {
	var text string
	s.PrevAll().EachWithBreak(func(_ int, prev *goquery.Selection) bool {
		if prev.Is(controlSelector) || prev.Find(controlSelector).Length() > 0 {
			return false
		}
		if goquery.NodeName(prev) == "label" {
			if _, hasFor := prev.Attr("for"); !hasFor {
				text = cleanText(prev.Text())
			}
			return false
		}
		return true
	})
	return text
}

func isRequired(s *goquery.Selection) bool {
	if _, ok := s.Attr("required"); ok {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(s.AttrOr("aria-required", "")), "true") {
		return true
	}
	return strings.Contains(strings.ToLower(s.AttrOr("class", "")), "required")
}

func selectOptions(s *goquery.Selection) []schemas.SelectOption {
	var opts []schemas.SelectOption
	s.Find("option").Each(func(_ int, o *goquery.Selection) {
		label := cleanText(o.Text())
		value, has := o.Attr("value")
		if !has {
			value = label
		}
		if value == "" && label == "" {
			return
		}
		opts = append(opts, schemas.SelectOption{Value: value, Label: label})
	})
	return opts
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cssQuote escapes a value for use inside a double-quoted attribute selector.
func cssQuote(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func isSimpleIdent(s string) bool {
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '-':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return s != ""
}
