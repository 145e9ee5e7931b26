package connector

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/automation"
	"github.com/xkilldash9x/snapreg/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errUpstream = errors.New("upstream unavailable")

func fails() (*APIResponse, error)    { return nil, errUpstream }
func succeeds() (*APIResponse, error) { return &APIResponse{StatusCode: 200}, nil }

func TestBreaker_Lifecycle(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.WarnLevel)
	b := NewBreaker("acme", config.BreakerConfig{Threshold: 2, SuccessThreshold: 2, Timeout: 30 * time.Millisecond}, zap.New(core))

	_, err := b.Execute(fails)
	require.ErrorIs(t, err, errUpstream)
	assert.Equal(t, "closed", b.State())
	_, err = b.Execute(fails)
	require.ErrorIs(t, err, errUpstream)
	assert.Equal(t, "open", b.State())

	calls := 0
	_, err = b.Execute(func() (*APIResponse, error) { calls++; return succeeds() })
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, calls, "an open breaker never calls through")
	assert.Equal(t, schemas.ErrorKindNetwork, automation.ClassifyError(err))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, "half-open", b.State())
	_, err = b.Execute(succeeds)
	require.NoError(t, err)
	assert.Equal(t, "half-open", b.State(), "one success is not enough")
	_, err = b.Execute(succeeds)
	require.NoError(t, err)
	assert.Equal(t, "closed", b.State())

	assert.GreaterOrEqual(t, logs.FilterMessage("Circuit breaker state change.").Len(), 3)
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	t.Parallel()
	b := NewBreaker("acme", config.BreakerConfig{Threshold: 1, SuccessThreshold: 3, Timeout: 20 * time.Millisecond}, zaptest.NewLogger(t))

	_, _ = b.Execute(fails)
	require.Equal(t, "open", b.State())
	time.Sleep(40 * time.Millisecond)
	require.Equal(t, "half-open", b.State())

	_, err := b.Execute(fails)
	require.ErrorIs(t, err, errUpstream)
	assert.Equal(t, "open", b.State())
}

func TestBreaker_HalfOpenAllowsOneProbe(t *testing.T) {
	t.Parallel()
	b := NewBreaker("acme", config.BreakerConfig{Threshold: 1, SuccessThreshold: 2, Timeout: 20 * time.Millisecond}, zaptest.NewLogger(t))

	_, _ = b.Execute(fails)
	time.Sleep(40 * time.Millisecond)
	require.Equal(t, "half-open", b.State())

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := b.Execute(func() (*APIResponse, error) {
			close(entered)
			<-release
			return succeeds()
		})
		done <- err
	}()
	<-entered

	var calls atomic.Int32
	_, err := b.Execute(func() (*APIResponse, error) { calls.Add(1); return succeeds() })
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, calls.Load(), "a second probe waits for the first")

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, "half-open", b.State())

	_, err = b.Execute(succeeds)
	require.NoError(t, err, "the next probe is admitted once the first returns")
	assert.Equal(t, "closed", b.State())
}

func TestBreaker_MetricsAndReset(t *testing.T) {
	t.Parallel()
	b := NewBreaker("acme", config.BreakerConfig{Threshold: 3, SuccessThreshold: 1, Timeout: time.Hour}, nil)

	_, _ = b.Execute(succeeds)
	_, _ = b.Execute(fails)
	_, _ = b.Execute(fails)
	m := b.Metrics()
	assert.Equal(t, Metrics{
		State:               "closed",
		Requests:            3,
		TotalSuccesses:      1,
		TotalFailures:       2,
		ConsecutiveFailures: 2,
	}, m)

	_, _ = b.Execute(fails)
	require.Equal(t, "open", b.State())

	b.Reset()
	assert.Equal(t, Metrics{State: "closed"}, b.Metrics())
	_, err := b.Execute(succeeds)
	assert.NoError(t, err)
}

func TestNewBreaker_Defaults(t *testing.T) {
	t.Parallel()
	b := NewBreaker("acme", config.BreakerConfig{}, nil)
	assert.Equal(t, config.DefaultBreakerThreshold, b.cfg.Threshold)
	assert.Equal(t, config.DefaultBreakerSuccessThreshold, b.cfg.SuccessThreshold)
	assert.Equal(t, config.DefaultBreakerTimeout, b.cfg.Timeout)
}
