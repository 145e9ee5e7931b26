package automation

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultConfirmationSelectors are elements that usually hold the code on a
// post-submit page.
var DefaultConfirmationSelectors = []string{
	".confirmation-number",
	".confirmation-code",
	"#confirmationNumber",
	"#confirmation-number",
	"#confirmation-code",
	".registration-number",
	"#registrationNumber",
	".reference-number",
	`[data-testid*="confirmation"]`,
}

// codeToken is a confirmation-code shaped token. Candidates must also carry
// at least one digit so that words like "PAGE" are not picked up.
var codeToken = regexp.MustCompile(`\b[A-Z0-9][A-Z0-9-]{3,}[A-Z0-9]\b`)

// confirmationPatterns run against the full page text when no selector
// yields a code. The label is case-insensitive, the code is not.
var confirmationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i:confirmation)\s*(?i:code|number|no\.?|#|id)?\s*(?i:is)?\s*[:#]?\s*([A-Z0-9][A-Z0-9-]{3,}[A-Z0-9])`),
	regexp.MustCompile(`(?i:registration)\s*(?i:code|number|no\.?|#|id)\s*(?i:is)?\s*[:#]?\s*([A-Z0-9][A-Z0-9-]{3,}[A-Z0-9])`),
	regexp.MustCompile(`(?i:reference)\s*(?i:code|number|no\.?|#|id)?\s*(?i:is)?\s*[:#]?\s*([A-Z0-9][A-Z0-9-]{3,}[A-Z0-9])`),
}

// ExtractConfirmation scans selectors (then the defaults) and finally the
// page text for a confirmation code. It returns "" when nothing matches.
func ExtractConfirmation(doc *goquery.Document, selectors []string) string {
	for _, sel := range append(append([]string(nil), selectors...), DefaultConfirmationSelectors...) {
		var code string
		doc.Find(sel).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			code = firstCodeToken(el.Text())
			return code == ""
		})
		if code != "" {
			return code
		}
	}

	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	for _, re := range confirmationPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if hasDigit(m[1]) {
				return m[1]
			}
		}
	}
	return ""
}

func firstCodeToken(text string) string {
	for _, tok := range codeToken.FindAllString(text, -1) {
		if hasDigit(tok) {
			return tok
		}
	}
	return ""
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' }) >= 0
}
