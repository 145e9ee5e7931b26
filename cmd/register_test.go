package cmd

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/automation"
	"github.com/xkilldash9x/snapreg/internal/mocks"
)

const acmeFormURL = "https://www.acme.com/product-registration"

const registrationJSON = `{
  "firstName": "Ada",
  "lastName": "Lovelace",
  "email": "ada@example.com",
  "manufacturer": "Acme",
  "modelNumber": "DW-100",
  "serialNumber": "SN-42"
}`

const acmeForm = `<form id="reg">
<label for="fn">First Name</label><input id="fn" name="first_name" required>
<label for="ln">Last Name</label><input id="ln" name="last_name" required>
<label for="em">Email</label><input id="em" type="email" name="email" required>
<label for="mn">Model Number</label><input id="mn" name="model_number">
<button type="submit">Register</button></form>`

// testConfigFile writes a config tuned for fake pages. extra is appended
// verbatim.
func testConfigFile(t *testing.T, extra string) string {
	t.Helper()
	return writeFile(t, "config.yaml", fmt.Sprintf(`logger:
  level: error
browser:
  short_element_timeout: 10ms
  element_timeout: 20ms
  long_element_timeout: 50ms
  artifacts_dir: %s
orchestrator:
  base_backoff: 1ms
  launch_rate: 0
%s`, t.TempDir(), extra))
}

func acmeBrowser() *mocks.FakeBrowser {
	return mocks.NewFakeBrowser(func() *mocks.FakePage {
		p := mocks.NewFakePage().Route(acmeFormURL, acmeForm)
		p.OnClick(`button[type="submit"]`, func(p *mocks.FakePage) {
			p.SetDocument(acmeFormURL+"/thank-you", `<h1>Thank you!</h1><p>Your confirmation number is <strong>AC-778812</strong>.</p>`)
		})
		return p
	})
}

func decodeResult(t *testing.T, out string) schemas.AutomationResult {
	t.Helper()
	var result schemas.AutomationResult
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)
	return result
}

func TestRegisterCmd_Browser(t *testing.T) {
	t.Setenv("SNAPREG_DATABASE_URL", "")
	launcher := useFakeLauncher(t, acmeBrowser())
	dataPath := writeFile(t, "data.json", registrationJSON)

	out, err := executeCommand(t, "register", "--config", testConfigFile(t, ""), "--data", dataPath, "--screenshots=false")
	require.NoError(t, err)

	result := decodeResult(t, out)
	assert.True(t, result.Success, result.ErrorMessage)
	assert.Equal(t, "AC-778812", result.ConfirmationCode)
	assert.Equal(t, "Acme", result.Manufacturer)
	assert.Equal(t, automation.GenericName, result.Strategy)
	assert.Equal(t, schemas.MethodBrowser, result.Method)
	assert.Empty(t, result.ScreenshotPath, "--screenshots=false skips the success screenshot")
	launcher.AssertCalled(t, "Launch", mock.Anything, mock.MatchedBy(func(o schemas.Options) bool { return schemas.BoolValue(o.Headless, false) }))
}

func TestRegisterCmd_ManufacturerFlagWins(t *testing.T) {
	t.Setenv("SNAPREG_DATABASE_URL", "")
	useFakeLauncher(t, acmeBrowser())
	dataPath := writeFile(t, "data.json", strings.Replace(registrationJSON, `"Acme"`, `"Globex"`, 1))

	out, err := executeCommand(t, "register", "--config", testConfigFile(t, ""), "--data", dataPath, "--manufacturer", "Acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme", decodeResult(t, out).Manufacturer)
}

func TestRegisterCmd_ViaConnector(t *testing.T) {
	t.Setenv("SNAPREG_DATABASE_URL", "")
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"confirmationCode":"API-31337"}`))
	}))
	defer srv.Close()

	launcher := useFakeLauncher(t, acmeBrowser())
	cfgPath := testConfigFile(t, fmt.Sprintf("connectors:\n  acme:\n    api_url: %s\n", srv.URL))
	dataPath := writeFile(t, "data.json", registrationJSON)

	out, err := executeCommand(t, "register", "--config", cfgPath, "--data", dataPath)
	require.NoError(t, err)

	result := decodeResult(t, out)
	assert.True(t, result.Success)
	assert.Equal(t, "API-31337", result.ConfirmationCode)
	assert.Equal(t, schemas.MethodAPI, result.Method)
	assert.Equal(t, int32(1), hits.Load())
	launcher.AssertNotCalled(t, "Launch", mock.Anything, mock.Anything)
}

func TestRegisterCmd_FailurePrintsResult(t *testing.T) {
	t.Setenv("SNAPREG_DATABASE_URL", "")
	launcher := useFakeLauncher(t, acmeBrowser())
	dataPath := writeFile(t, "data.json", registrationJSON)

	out, err := executeCommand(t, "register", "--config", testConfigFile(t, ""), "--data", dataPath, "--engine", "firefox")
	require.ErrorIs(t, err, ErrRegistrationFailed)

	result := decodeResult(t, out)
	assert.False(t, result.Success)
	assert.Equal(t, schemas.ErrorKindValidation, result.ErrorKind)
	launcher.AssertNotCalled(t, "Launch", mock.Anything, mock.Anything)
}

func TestRegisterCmd_InputErrors(t *testing.T) {
	t.Setenv("SNAPREG_DATABASE_URL", "")
	cfgPath := testConfigFile(t, "")

	t.Run("data flag is required", func(t *testing.T) {
		_, err := executeCommand(t, "register", "--config", cfgPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"data" not set`)
	})

	t.Run("no manufacturer anywhere", func(t *testing.T) {
		dataPath := writeFile(t, "data.json", `{"firstName":"Ada"}`)
		_, err := executeCommand(t, "register", "--config", cfgPath, "--data", dataPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no manufacturer given")
	})

	t.Run("malformed data file", func(t *testing.T) {
		dataPath := writeFile(t, "data.json", `{"firstName":`)
		_, err := executeCommand(t, "register", "--config", cfgPath, "--data", dataPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse")
	})

	t.Run("missing data file", func(t *testing.T) {
		_, err := executeCommand(t, "register", "--config", cfgPath, "--data", "/nonexistent/data.json")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read")
	})
}
