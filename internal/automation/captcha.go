package automation

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// captchaMarkers are DOM markers of the CAPTCHA widgets seen on
// registration forms.
var captchaMarkers = []string{
	".g-recaptcha",
	"#g-recaptcha",
	`iframe[src*="recaptcha"]`,
	`script[src*="recaptcha/api.js"]`,
	".h-captcha",
	`iframe[src*="hcaptcha.com"]`,
	".cf-turnstile",
	`iframe[src*="challenges.cloudflare.com"]`,
	"#captcha",
	`img[src*="captcha"]`,
	`input[name*="captcha"]`,
}

// DetectCaptcha returns the first CAPTCHA marker present in doc.
func DetectCaptcha(doc *goquery.Document) (string, bool) {
	for _, marker := range captchaMarkers {
		if doc.Find(marker).Length() > 0 {
			return marker, true
		}
	}
	return "", false
}

// HasCaptcha snapshots the page and reports whether a CAPTCHA is present.
func HasCaptcha(ctx context.Context, src interface {
	HTML(ctx context.Context) (string, error)
}) (bool, string, error) {
	markup, err := src.HTML(ctx)
	if err != nil {
		return false, "", fmt.Errorf("failed to snapshot page for captcha detection: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return false, "", fmt.Errorf("failed to parse page markup: %w", err)
	}
	marker, found := DetectCaptcha(doc)
	return found, marker, nil
}
