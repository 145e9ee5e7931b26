// FILE: ./internal/browser/humanoid/mocks_test.go
package humanoid

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// mockExecutor implements Executor for testing. It records every key and
// sleep instead of touching a browser.
type mockExecutor struct {
	t              *testing.T
	mu             sync.Mutex
	sentKeys       []string
	sleepDurations []time.Duration

	// failOnKey makes SendKeys fail when it receives this key.
	failOnKey string
	returnErr error
}

func newMockExecutor(t *testing.T) *mockExecutor {
	return &mockExecutor{t: t}
}

func (m *mockExecutor) Sleep(ctx context.Context, d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sleepDurations = append(m.sleepDurations, d)
	return ctx.Err()
}

func (m *mockExecutor) SendKeys(ctx context.Context, keys string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOnKey != "" && keys == m.failOnKey {
		return m.returnErr
	}
	m.sentKeys = append(m.sentKeys, keys)
	return ctx.Err()
}

func (m *mockExecutor) typed() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.Join(m.sentKeys, "")
}

func (m *mockExecutor) totalSleep() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total time.Duration
	for _, d := range m.sleepDurations {
		total += d
	}
	return total
}
