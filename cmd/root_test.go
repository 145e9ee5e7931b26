// File: cmd/root_test.go
package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/config"
	"github.com/xkilldash9x/snapreg/internal/mocks"
)

// executeCommand runs a fresh command tree and returns what it printed to
// stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(bytes.NewReader(nil))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// writeFile creates name under a test temp dir and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// useFakeLauncher makes every command launch b instead of Chrome.
func useFakeLauncher(t *testing.T, b schemas.Browser) *mocks.MockLauncher {
	t.Helper()
	launcher := new(mocks.MockLauncher)
	launcher.On("Launch", mock.Anything, mock.Anything).Return(b, nil).Maybe()
	original := newLauncher
	newLauncher = func(*zap.Logger, config.BrowserConfig) schemas.Launcher { return launcher }
	t.Cleanup(func() { newLauncher = original })
	return launcher
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "snapreg version "+Version)
}

func TestVersionCmd(t *testing.T) {
	t.Setenv("SNAPREG_DATABASE_URL", "")
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "snapreg version "+Version+"\n", out)
}

func TestRootCmd_NoArgsPrintsHelp(t *testing.T) {
	out, err := executeCommand(t)
	require.NoError(t, err)
	assert.Contains(t, out, "snapreg files product warranty registrations")
	for _, sub := range []string{"register", "batch", "manufacturers", "fields", "migrate"} {
		assert.Contains(t, out, sub)
	}
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	cfgPath := writeFile(t, "config.yaml", "orchestrator:\n  max_retries: 0\n")
	_, err := executeCommand(t, "version", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orchestrator.max_retries")
}

func TestInitializeConfig_Precedence(t *testing.T) {
	newCmd := func() *cobra.Command {
		c := &cobra.Command{Use: "test"}
		c.Flags().String("config", "", "")
		c.Flags().Int("concurrency", 3, "")
		c.Flags().Int("unbound", 9, "")
		bindFlag(c, "concurrency", "orchestrator.concurrency")
		return c
	}
	cfgPath := writeFile(t, "snapreg.yaml", "orchestrator:\n  concurrency: 4\n  max_retries: 6\n")

	t.Run("config file overrides defaults", func(t *testing.T) {
		c := newCmd()
		require.NoError(t, c.Flags().Set("config", cfgPath))
		v := viper.New()
		config.SetDefaults(v)
		require.NoError(t, initializeConfig(c, v))
		assert.Equal(t, 4, v.GetInt("orchestrator.concurrency"))
		assert.Equal(t, 6, v.GetInt("orchestrator.max_retries"))
	})

	t.Run("environment overrides config file", func(t *testing.T) {
		t.Setenv("SNAPREG_ORCHESTRATOR_CONCURRENCY", "7")
		c := newCmd()
		require.NoError(t, c.Flags().Set("config", cfgPath))
		v := viper.New()
		config.SetDefaults(v)
		require.NoError(t, initializeConfig(c, v))
		assert.Equal(t, 7, v.GetInt("orchestrator.concurrency"))
	})

	t.Run("changed flag overrides everything", func(t *testing.T) {
		t.Setenv("SNAPREG_ORCHESTRATOR_CONCURRENCY", "7")
		c := newCmd()
		require.NoError(t, c.Flags().Set("config", cfgPath))
		require.NoError(t, c.Flags().Set("concurrency", "2"))
		v := viper.New()
		config.SetDefaults(v)
		require.NoError(t, initializeConfig(c, v))
		assert.Equal(t, 2, v.GetInt("orchestrator.concurrency"))
		assert.False(t, v.IsSet("unbound"), "flags without a key annotation stay out of the config")
	})
}

func TestGetConfigFromContext(t *testing.T) {
	_, err := getConfigFromContext(context.Background())
	assert.Error(t, err)

	cfg := config.NewDefaultConfig()
	got, err := getConfigFromContext(context.WithValue(context.Background(), configKey, cfg))
	require.NoError(t, err)
	assert.Same(t, cfg, got)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	assert.Equal(t, filepath.Join(home, "reports", "out.json"), expandPath("~/reports/out.json"))
	assert.Equal(t, "/tmp/out.json", expandPath("/tmp/out.json"))
}

func TestManufacturersCmd(t *testing.T) {
	t.Setenv("SNAPREG_DATABASE_URL", "")
	out, err := executeCommand(t, "manufacturers")
	require.NoError(t, err)
	assert.Contains(t, out, "samsung")
	assert.Contains(t, out, "lg")
	assert.Contains(t, out, "LG Electronics")
	assert.Contains(t, out, "generic form strategy")
}

func TestMigrateCmd_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("SNAPREG_DATABASE_URL", "")
	_, err := executeCommand(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SNAPREG_DATABASE_URL")
}
