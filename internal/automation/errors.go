// internal/automation/errors.go
package automation

import (
	"errors"
	"fmt"

	"github.com/xkilldash9x/snapreg/api/schemas"
)

// Sentinel errors for constructor and argument validation.
var (
	ErrNilStrategy = errors.New("strategy must not be nil")
	ErrNilBrowser  = errors.New("browser must not be nil")
	ErrNilData     = errors.New("registration data must not be nil")
)

// AbortError is returned by a strategy when it hits a structural blocker
// (no submit button, login wall without a guest path, rejected submission).
// Kind is only a hint: the final kind is derived from Message by the
// classifier, and the hint is used when no rule matches.
type AbortError struct {
	Kind    schemas.ErrorKind
	Message string
	Err     error
}

func (e *AbortError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AbortError) Unwrap() error { return e.Err }

// Abort builds an AbortError with a formatted message.
func Abort(kind schemas.ErrorKind, format string, args ...interface{}) error {
	return &AbortError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ErrAccountRequired is raised when a login wall offers no guest path.
var ErrAccountRequired = &AbortError{
	Kind:    schemas.ErrorKindValidation,
	Message: "account required, cannot automate",
}
