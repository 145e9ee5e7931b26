// internal/browser/humanoid/interface.go
package humanoid

import (
	"context"
	"time"
)

// Executor defines the low-level operations the Humanoid needs from a page.
type Executor interface {
	Sleep(ctx context.Context, d time.Duration) error
	// SendKeys dispatches key events for keys to the focused element.
	SendKeys(ctx context.Context, keys string) error
}

// Pacer is the subset of Humanoid used to space out UI actions.
type Pacer interface {
	// Pause sleeps for a random duration in [min, max].
	Pause(ctx context.Context, min, max time.Duration) error
	// ActionDelay sleeps for a random duration in the configured action range.
	ActionDelay(ctx context.Context) error
}
