// internal/automation/strategy.go
package automation

import (
	"context"

	"github.com/xkilldash9x/snapreg/api/schemas"
)

// Strategy is one manufacturer's registration procedure. The Runner drives
// the lifecycle; a strategy only supplies the form-specific hooks.
// Implementations must be safe to share between concurrent runs: all per-run
// state lives in the Session.
type Strategy interface {
	// Name identifies the strategy in results and logs.
	Name() string
	RegistrationURL() string
	// RequiredFields are validated before any browser work starts.
	RequiredFields() []schemas.Attribute

	FillForm(ctx context.Context, s *Session) error
	SubmitForm(ctx context.Context, s *Session) error
	// VerifySuccess returns false without an error when the outcome is
	// ambiguous.
	VerifySuccess(ctx context.Context, s *Session) (bool, error)
}

// Navigator is implemented by strategies that need more than a single
// page load to reach the form.
type Navigator interface {
	Navigate(ctx context.Context, s *Session) error
}

// ConfirmationLocator is implemented by strategies that know where their
// post-submit page prints the confirmation code.
type ConfirmationLocator interface {
	ConfirmationSelectors() []string
}

// OptionalFielder is implemented by strategies that document the fields
// they fill when present.
type OptionalFielder interface {
	OptionalFields() []schemas.Attribute
}
