// internal/automation/classify.go
package automation

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/xkilldash9x/snapreg/api/schemas"
)

// ClassificationRule maps any of its substrings, matched case-insensitively
// against an error message, to Kind.
type ClassificationRule struct {
	Kind       schemas.ErrorKind
	Substrings []string
}

// defaultRules are evaluated in order; the first hit wins.
var defaultRules = []ClassificationRule{
	{Kind: schemas.ErrorKindCaptcha, Substrings: []string{
		"captcha", "are you a robot", "verify you are human", "bot detection",
	}},
	{Kind: schemas.ErrorKindTimeout, Substrings: []string{
		"timeout", "timed out", "deadline exceeded",
	}},
	{Kind: schemas.ErrorKindNetwork, Substrings: []string{
		"net::err", "network", "connection refused", "connection reset",
		"econnrefused", "econnreset", "no such host", "tls handshake", "circuit open",
	}},
	{Kind: schemas.ErrorKindFormChanged, Substrings: []string{
		"not found", "no element", "selector", "could not find", "not visible", "not interactable",
	}},
	{Kind: schemas.ErrorKindValidation, Substrings: []string{
		"validation", "invalid", "required", "unsupported", "rejected",
	}},
}

// Classifier is an ordered, extendable rule table. It is safe for
// concurrent use.
type Classifier struct {
	mu     sync.RWMutex
	custom []ClassificationRule
	rules  []ClassificationRule
}

// NewClassifier returns a classifier loaded with the built-in rules.
func NewClassifier() *Classifier {
	return &Classifier{rules: lowerRules(defaultRules)}
}

// RegisterRule adds a rule that is evaluated before the built-in rules.
// Rules registered later are evaluated after rules registered earlier.
func (c *Classifier) RegisterRule(rule ClassificationRule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.custom = append(c.custom, lowerRules([]ClassificationRule{rule})...)
}

// ClassifyMessage maps a message to exactly one kind, defaulting to unknown.
func (c *Classifier) ClassifyMessage(msg string) schemas.ErrorKind {
	lower := strings.ToLower(msg)
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, set := range [][]ClassificationRule{c.custom, c.rules} {
		for _, rule := range set {
			for _, sub := range rule.Substrings {
				if sub != "" && strings.Contains(lower, sub) {
					return rule.Kind
				}
			}
		}
	}
	return schemas.ErrorKindUnknown
}

// Classify maps an error to a kind. A nil error is ErrorKindNone. Context
// expiry is always a timeout. When no rule matches an AbortError, its kind
// hint is used.
func (c *Classifier) Classify(err error) schemas.ErrorKind {
	if err == nil {
		return schemas.ErrorKindNone
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return schemas.ErrorKindTimeout
	}
	kind := c.ClassifyMessage(err.Error())
	if kind == schemas.ErrorKindUnknown {
		var abort *AbortError
		if errors.As(err, &abort) && abort.Kind != schemas.ErrorKindNone {
			return abort.Kind
		}
	}
	return kind
}

func lowerRules(rules []ClassificationRule) []ClassificationRule {
	out := make([]ClassificationRule, len(rules))
	for i, r := range rules {
		subs := make([]string, len(r.Substrings))
		for j, s := range r.Substrings {
			subs[j] = strings.ToLower(s)
		}
		out[i] = ClassificationRule{Kind: r.Kind, Substrings: subs}
	}
	return out
}

var defaultClassifier = NewClassifier()

// ClassifyError classifies err with the process-wide classifier.
func ClassifyError(err error) schemas.ErrorKind {
	return defaultClassifier.Classify(err)
}

// ClassifyMessage classifies a bare message with the process-wide classifier.
func ClassifyMessage(msg string) schemas.ErrorKind {
	return defaultClassifier.ClassifyMessage(msg)
}

// RegisterRule extends the process-wide classifier.
func RegisterRule(rule ClassificationRule) {
	defaultClassifier.RegisterRule(rule)
}
