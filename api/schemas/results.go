package schemas

import "time"

// ErrorKind is the flat failure taxonomy used to decide whether a failed
// attempt is worth retrying.
type ErrorKind string

const (
	ErrorKindNone        ErrorKind = ""
	ErrorKindTimeout     ErrorKind = "timeout"
	ErrorKindCaptcha     ErrorKind = "captcha"
	ErrorKindFormChanged ErrorKind = "form_changed"
	ErrorKindNetwork     ErrorKind = "network"
	ErrorKindValidation  ErrorKind = "validation"
	ErrorKindUnknown     ErrorKind = "unknown"
)

// Retryable reports whether another attempt against the same form can
// plausibly succeed.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrorKindCaptcha, ErrorKindValidation, ErrorKindFormChanged:
		return false
	}
	return true
}

// Method records which path produced a result.
type Method string

const (
	MethodBrowser Method = "browser"
	MethodAPI     Method = "api"
)

// AutomationResult is the outcome of one execution. It is built once per run
// and not modified after it is returned.
type AutomationResult struct {
	Success          bool          `json:"success"`
	ConfirmationCode string        `json:"confirmationCode,omitempty"`
	ScreenshotPath   string        `json:"screenshotPath,omitempty"`
	HTMLSnapshot     string        `json:"htmlSnapshot,omitempty"`
	ErrorMessage     string        `json:"errorMessage,omitempty"`
	ErrorKind        ErrorKind     `json:"errorType,omitempty"`
	Duration         time.Duration `json:"duration"`
	Attempt          int           `json:"attempt"`

	Manufacturer string `json:"manufacturer,omitempty"`
	Strategy     string `json:"strategy,omitempty"`
	Method       Method `json:"method,omitempty"`
	// FallbackCode is true when ConfirmationCode was synthesized locally
	// rather than issued by the manufacturer.
	FallbackCode bool `json:"fallbackCode,omitempty"`
}

// AttemptRecord is the persisted form of one attempt.
type AttemptRecord struct {
	ID               string
	RunID            string
	RegistrationID   string
	Manufacturer     string
	Strategy         string
	Method           Method
	Attempt          int
	Success          bool
	ConfirmationCode string
	ErrorKind        ErrorKind
	ErrorMessage     string
	ScreenshotPath   string
	Duration         time.Duration
	CreatedAt        time.Time
}

// UnknownManufacturer summarizes how often a manufacturer without a dedicated
// strategy has been requested.
type UnknownManufacturer struct {
	Name      string    `json:"name"`
	Count     int       `json:"count"`
	FirstSeen time.Time `json:"firstSeen"`
	LastSeen  time.Time `json:"lastSeen"`
	URLs      []string  `json:"urls,omitempty"`
}
