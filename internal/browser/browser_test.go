package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/config"
)

func flagValue(flags []allocatorFlag, name string) (interface{}, bool) {
	var (
		v     interface{}
		found bool
	)
	for _, f := range flags {
		if f.Name == name {
			v, found = f.Value, true
		}
	}
	return v, found
}

func TestAllocatorFlags(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg := config.NewDefaultConfig().Browser()
		flags := allocatorFlags(cfg, "darwin")

		v, ok := flagValue(flags, "headless")
		require.True(t, ok)
		assert.Equal(t, true, v)

		v, _ = flagValue(flags, "enable-automation")
		assert.Equal(t, false, v)
		v, _ = flagValue(flags, "disable-blink-features")
		assert.Equal(t, "AutomationControlled", v)
		v, _ = flagValue(flags, "window-size")
		assert.Equal(t, "1920,1080", v)
		v, _ = flagValue(flags, "lang")
		assert.Equal(t, "en-US", v)

		_, ok = flagValue(flags, "no-sandbox")
		assert.False(t, ok, "sandbox flags are linux-only")
	})

	t.Run("Linux", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{}, "linux")
		v, ok := flagValue(flags, "no-sandbox")
		require.True(t, ok)
		assert.Equal(t, true, v)
		_, ok = flagValue(flags, "window-size")
		assert.False(t, ok)
	})

	t.Run("CustomArgs", func(t *testing.T) {
		cfg := config.BrowserConfig{Args: []string{"--proxy-server=http://127.0.0.1:8080", "--mute-audio", "--"}}
		flags := allocatorFlags(cfg, "darwin")
		v, _ := flagValue(flags, "proxy-server")
		assert.Equal(t, "http://127.0.0.1:8080", v)
		v, _ = flagValue(flags, "mute-audio")
		assert.Equal(t, true, v)
		_, ok := flagValue(flags, "")
		assert.False(t, ok)
	})

	t.Run("Options", func(t *testing.T) {
		opts := buildAllocatorOptions(config.BrowserConfig{Headless: true})
		assert.Greater(t, len(opts), len(allocatorFlags(config.BrowserConfig{Headless: true}, "darwin")))
	})
}

func TestCombineContext(t *testing.T) {
	t.Run("secondary cancel propagates", func(t *testing.T) {
		secondary, cancel := context.WithCancel(context.Background())
		combined, done := CombineContext(context.Background(), secondary)
		defer done()
		cancel()
		select {
		case <-combined.Done():
		case <-time.After(time.Second):
			t.Fatal("combined context was not cancelled")
		}
	})

	t.Run("deadline inherited", func(t *testing.T) {
		secondary, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()
		combined, done := CombineContext(context.Background(), secondary)
		defer done()
		want, _ := secondary.Deadline()
		got, ok := combined.Deadline()
		require.True(t, ok)
		assert.Equal(t, want, got)
	})

	t.Run("values from primary", func(t *testing.T) {
		type key struct{}
		primary := context.WithValue(context.Background(), key{}, "target")
		combined, done := CombineContext(primary, context.Background())
		defer done()
		assert.Equal(t, "target", combined.Value(key{}))
	})

	t.Run("detach", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		detached := Detach(ctx)
		assert.NoError(t, detached.Err())
		assert.Nil(t, detached.Done())
	})
}

func TestEmbeddedScripts(t *testing.T) {
	for name, script := range map[string]string{"select_option": selectOptionScript, "set_checked": setCheckedScript} {
		t.Run(name, func(t *testing.T) {
			assert.True(t, strings.HasPrefix(script, "(function ("), "scripts are function expressions")
			assert.Contains(t, script, "dispatchEvent(new Event(\"change\"")
			assert.Contains(t, script, "reason:")
		})
	}
}

func TestLauncher_RejectsUnknownEngine(t *testing.T) {
	l := NewLauncher(zaptest.NewLogger(t), config.BrowserConfig{})
	_, err := l.Launch(context.Background(), schemas.Options{Engine: "firefox"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation")
}

// TestManager_Integration drives a real Chrome. It is opt-in because it needs
// a local browser binary.
func TestManager_Integration(t *testing.T) {
	if os.Getenv("SNAPREG_BROWSER_TESTS") == "" {
		t.Skip("set SNAPREG_BROWSER_TESTS=1 to run browser-backed tests")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><form>
			<input id="email" name="email">
			<select id="state" name="state"><option value="">--</option><option value="CA">California</option></select>
			<input type="checkbox" id="terms" name="terms">
		</form></body></html>`)
	}))
	defer server.Close()

	cfg := config.NewDefaultConfig().Browser()
	cfg.Humanoid.Enabled = false
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	m, err := NewManager(ctx, zaptest.NewLogger(t), cfg)
	require.NoError(t, err)
	defer m.Close(context.Background())

	page, err := m.NewPage(ctx, schemas.DefaultPersona)
	require.NoError(t, err)
	defer page.Close(ctx)

	require.NoError(t, page.Navigate(ctx, server.URL))
	require.NoError(t, page.WaitVisible(ctx, "#email", 5*time.Second))
	require.NoError(t, page.Type(ctx, "#email", "a@b.com"))
	require.NoError(t, page.SelectOption(ctx, "#state", "california"))
	require.NoError(t, page.SetChecked(ctx, "#terms", true))

	err = page.SelectOption(ctx, "#state", "Oregon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no matching option")
	err = page.SetChecked(ctx, "#email", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a checkbox")

	var values []interface{}
	require.NoError(t, page.Evaluate(ctx, `[document.querySelector('#email').value, document.querySelector('#state').value, document.querySelector('#terms').checked]`, &values))
	assert.Equal(t, []interface{}{"a@b.com", "CA", true}, values)

	var webdriver bool
	require.NoError(t, page.Evaluate(ctx, `navigator.webdriver === true`, &webdriver))
	assert.False(t, webdriver)

	require.NoError(t, page.Close(ctx))
	require.NoError(t, page.Close(ctx), "close is idempotent")
}
