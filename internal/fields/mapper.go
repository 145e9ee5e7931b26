// internal/fields/mapper.go
package fields

import (
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/xkilldash9x/snapreg/api/schemas"
)

// minSubstringLen guards substring matching against short tokens such as
// "sn" matching "businessname".
const minSubstringLen = 3

// Synonym binds a normalized form-field key to a registration attribute.
type Synonym struct {
	Key       string
	Attribute schemas.Attribute
}

// DefaultSynonyms is the dictionary of known form-field names.
var DefaultSynonyms = []Synonym{
	{"firstname", schemas.AttrFirstName}, {"fname", schemas.AttrFirstName},
	{"givenname", schemas.AttrFirstName}, {"forename", schemas.AttrFirstName},
	{"lastname", schemas.AttrLastName}, {"lname", schemas.AttrLastName},
	{"surname", schemas.AttrLastName}, {"familyname", schemas.AttrLastName},
	{"fullname", schemas.AttrFullName}, {"yourname", schemas.AttrFullName},
	{"customername", schemas.AttrFullName}, {"name", schemas.AttrFullName},
	{"email", schemas.AttrEmail}, {"emailaddress", schemas.AttrEmail},
	{"phone", schemas.AttrPhone}, {"phonenumber", schemas.AttrPhone},
	{"telephone", schemas.AttrPhone}, {"tel", schemas.AttrPhone},
	{"mobile", schemas.AttrPhone}, {"cellphone", schemas.AttrPhone},
	{"address", schemas.AttrStreet}, {"address1", schemas.AttrStreet},
	{"addressline1", schemas.AttrStreet}, {"street", schemas.AttrStreet},
	{"streetaddress", schemas.AttrStreet},
	{"address2", schemas.AttrStreet2}, {"addressline2", schemas.AttrStreet2},
	{"apartment", schemas.AttrStreet2}, {"suite", schemas.AttrStreet2},
	{"city", schemas.AttrCity}, {"town", schemas.AttrCity},
	{"state", schemas.AttrState}, {"province", schemas.AttrState},
	{"region", schemas.AttrState},
	{"zip", schemas.AttrZipCode}, {"zipcode", schemas.AttrZipCode},
	{"postalcode", schemas.AttrZipCode}, {"postcode", schemas.AttrZipCode},
	{"country", schemas.AttrCountry},
	{"productname", schemas.AttrProductName}, {"product", schemas.AttrProductName},
	{"brand", schemas.AttrManufacturer}, {"manufacturer", schemas.AttrManufacturer},
	{"model", schemas.AttrModelNumber}, {"modelnumber", schemas.AttrModelNumber},
	{"modelno", schemas.AttrModelNumber},
	{"serial", schemas.AttrSerialNumber}, {"serialnumber", schemas.AttrSerialNumber},
	{"serialno", schemas.AttrSerialNumber}, {"sn", schemas.AttrSerialNumber},
	{"sku", schemas.AttrSKU}, {"upc", schemas.AttrUPC}, {"barcode", schemas.AttrUPC},
	{"purchasedate", schemas.AttrPurchaseDate}, {"dateofpurchase", schemas.AttrPurchaseDate},
	{"datepurchased", schemas.AttrPurchaseDate},
	{"purchaseprice", schemas.AttrPurchasePrice}, {"price", schemas.AttrPurchasePrice},
	{"retailer", schemas.AttrRetailer}, {"dealer", schemas.AttrRetailer},
	{"purchasedfrom", schemas.AttrRetailer}, {"placeofpurchase", schemas.AttrRetailer},
	{"store", schemas.AttrRetailer},
}

// kindFallbacks is the last matching step: typed inputs with no other match.
var kindFallbacks = map[schemas.InputKind]schemas.Attribute{
	schemas.InputEmail: schemas.AttrEmail,
	schemas.InputTel:   schemas.AttrPhone,
	schemas.InputDate:  schemas.AttrPurchaseDate,
}

// MatchStep records which rule resolved a field.
type MatchStep string

const (
	StepExactName       MatchStep = "exact_name"
	StepNameSubstring   MatchStep = "name_substring"
	StepLabelSubstring  MatchStep = "label_substring"
	StepPlaceholderText MatchStep = "placeholder_substring"
	StepKindFallback    MatchStep = "kind_fallback"
)

// Mapper resolves detected fields to registration attributes.
type Mapper struct {
	logger *zap.Logger
	exact  map[string]schemas.Attribute
	// ordered holds the synonyms longest key first, so the most specific key
	// wins a substring match.
	ordered []Synonym
}

// NewMapper creates a Mapper over DefaultSynonyms plus any extras. Extras
// override defaults with the same key.
func NewMapper(logger *zap.Logger, extra ...Synonym) *Mapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Mapper{
		logger: logger.Named("field_mapper"),
		exact:  make(map[string]schemas.Attribute),
	}
	for _, list := range [][]Synonym{DefaultSynonyms, extra} {
		for _, s := range list {
			key := Normalize(s.Key)
			if key == "" {
				continue
			}
			if _, dup := m.exact[key]; !dup {
				m.ordered = append(m.ordered, Synonym{Key: key})
			}
			m.exact[key] = s.Attribute
		}
	}
	for i := range m.ordered {
		m.ordered[i].Attribute = m.exact[m.ordered[i].Key]
	}
	sort.SliceStable(m.ordered, func(i, j int) bool {
		return len(m.ordered[i].Key) > len(m.ordered[j].Key)
	})
	return m
}

// Normalize lowercases s and strips everything but letters and digits.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Resolve returns the attribute a field represents and the rule that found
// it. The rules run in priority order and the first match wins.
func (m *Mapper) Resolve(field schemas.DetectedField) (schemas.Attribute, MatchStep, bool) {
	name := Normalize(field.Name)
	if attr, ok := m.exact[name]; ok {
		return attr, StepExactName, true
	}
	if attr, ok := m.substring(name); ok {
		return attr, StepNameSubstring, true
	}
	if attr, ok := m.substring(Normalize(field.Label)); ok {
		return attr, StepLabelSubstring, true
	}
	if attr, ok := m.substring(Normalize(field.Placeholder)); ok {
		return attr, StepPlaceholderText, true
	}
	if attr, ok := kindFallbacks[field.Kind]; ok {
		return attr, StepKindFallback, true
	}
	return "", "", false
}

// substring matches text against the dictionary in either direction. An
// exact key wins, then the longest key contained in text, then the shortest
// key containing text.
func (m *Mapper) substring(text string) (schemas.Attribute, bool) {
	if attr, ok := m.exact[text]; ok && text != "" {
		return attr, true
	}
	if len(text) < minSubstringLen {
		return "", false
	}
	for _, s := range m.ordered {
		if len(s.Key) >= minSubstringLen && strings.Contains(text, s.Key) {
			return s.Attribute, true
		}
	}
	for i := len(m.ordered) - 1; i >= 0; i-- {
		s := m.ordered[i]
		if strings.Contains(s.Key, text) {
			return s.Attribute, true
		}
	}
	return "", false
}

type resolution struct {
	attr schemas.Attribute
	step MatchStep
	ok   bool
}

// Map produces the fill plan for data. Fields that resolve to nothing, or to
// an attribute with no value, are left out. The input-type fallback only
// applies to attributes no other field claimed.
func (m *Mapper) Map(fields []schemas.DetectedField, data *schemas.RegistrationData) []schemas.FieldMapping {
	resolved := make([]resolution, len(fields))
	assigned := make(map[schemas.Attribute]bool)
	for i, f := range fields {
		attr, step, ok := m.Resolve(f)
		resolved[i] = resolution{attr: attr, step: step, ok: ok}
		if ok && step != StepKindFallback {
			assigned[attr] = true
		}
	}

	var plan []schemas.FieldMapping
	for i, f := range fields {
		attr, step, ok := resolved[i].attr, resolved[i].step, resolved[i].ok
		if !ok {
			m.logger.Debug("No attribute for field.", zap.String("field", f.Name), zap.String("label", f.Label))
			continue
		}
		if step == StepKindFallback {
			if assigned[attr] {
				m.logger.Debug("Attribute already mapped; skipping typed fallback.",
					zap.String("field", f.Name), zap.String("attribute", string(attr)))
				continue
			}
			assigned[attr] = true
		}
		raw := data.Value(attr)
		if strings.TrimSpace(raw) == "" {
			m.logger.Debug("Attribute has no value; skipping field.",
				zap.String("field", f.Name), zap.String("attribute", string(attr)))
			continue
		}
		plan = append(plan, schemas.FieldMapping{
			Field:     f,
			Attribute: attr,
			Value:     Transform(attr, f, raw),
		})
		m.logger.Debug("Mapped field.",
			zap.String("field", f.Name),
			zap.String("attribute", string(attr)),
			zap.String("step", string(step)),
		)
	}
	return plan
}
