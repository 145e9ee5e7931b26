package fields

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// usStates lists the 50 US states as abbreviation/name pairs.
var usStates = [50][2]string{
	{"AL", "Alabama"}, {"AK", "Alaska"}, {"AZ", "Arizona"}, {"AR", "Arkansas"},
	{"CA", "California"}, {"CO", "Colorado"}, {"CT", "Connecticut"}, {"DE", "Delaware"},
	{"FL", "Florida"}, {"GA", "Georgia"}, {"HI", "Hawaii"}, {"ID", "Idaho"},
	{"IL", "Illinois"}, {"IN", "Indiana"}, {"IA", "Iowa"}, {"KS", "Kansas"},
	{"KY", "Kentucky"}, {"LA", "Louisiana"}, {"ME", "Maine"}, {"MD", "Maryland"},
	{"MA", "Massachusetts"}, {"MI", "Michigan"}, {"MN", "Minnesota"}, {"MS", "Mississippi"},
	{"MO", "Missouri"}, {"MT", "Montana"}, {"NE", "Nebraska"}, {"NV", "Nevada"},
	{"NH", "New Hampshire"}, {"NJ", "New Jersey"}, {"NM", "New Mexico"}, {"NY", "New York"},
	{"NC", "North Carolina"}, {"ND", "North Dakota"}, {"OH", "Ohio"}, {"OK", "Oklahoma"},
	{"OR", "Oregon"}, {"PA", "Pennsylvania"}, {"RI", "Rhode Island"}, {"SC", "South Carolina"},
	{"SD", "South Dakota"}, {"TN", "Tennessee"}, {"TX", "Texas"}, {"UT", "Utah"},
	{"VT", "Vermont"}, {"VA", "Virginia"}, {"WA", "Washington"}, {"WV", "West Virginia"},
	{"WI", "Wisconsin"}, {"WY", "Wyoming"},
}

var (
	stateByAbbr = make(map[string]string, len(usStates))
	abbrByName  = make(map[string]string, len(usStates))
	titleCaser  = cases.Title(language.AmericanEnglish)
)

func init() {
	for _, s := range usStates {
		stateByAbbr[s[0]] = s[1]
		abbrByName[normalizeStateName(s[1])] = s[0]
	}
}

func normalizeStateName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// StateAbbreviation returns the two-letter code for a state given either its
// full name (any case or spacing) or its code.
func StateAbbreviation(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	if abbr, ok := abbrByName[normalizeStateName(trimmed)]; ok {
		return abbr, true
	}
	upper := strings.ToUpper(trimmed)
	if _, ok := stateByAbbr[upper]; ok {
		return upper, true
	}
	return "", false
}

// StateName returns the canonical full name for a state given either its
// code or its full name.
func StateName(s string) (string, bool) {
	abbr, ok := StateAbbreviation(s)
	if !ok {
		return "", false
	}
	return stateByAbbr[abbr], true
}

// TitleCaseState canonicalizes the casing of a free-form state name, for
// sites that expect "New York" but were given "NEW YORK".
func TitleCaseState(s string) string {
	return titleCaser.String(strings.Join(strings.Fields(s), " "))
}

// CanonicalState returns the spelling a state is typed into a text input
// with. Codes stay codes and known names get their canonical spelling.
// Anything else is title-cased.
func CanonicalState(s string) string {
	trimmed := strings.TrimSpace(s)
	if abbr, ok := StateAbbreviation(trimmed); ok {
		if strings.EqualFold(abbr, trimmed) {
			return abbr
		}
		return stateByAbbr[abbr]
	}
	return TitleCaseState(trimmed)
}

// StateRepresentations returns the candidate spellings of a state in the
// order they should be tried: the value as given, then the abbreviation,
// then the full name.
func StateRepresentations(s string) []string {
	reps := []string{strings.TrimSpace(s)}
	if abbr, ok := StateAbbreviation(s); ok {
		name := stateByAbbr[abbr]
		for _, r := range []string{abbr, name} {
			if !strings.EqualFold(r, reps[0]) {
				reps = append(reps, r)
			}
		}
	}
	return reps
}
