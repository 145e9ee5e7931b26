package cmd

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/mocks"
)

func TestBatchCmd(t *testing.T) {
	t.Setenv("SNAPREG_DATABASE_URL", "")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"confirmationCode":"API-1"}`))
	}))
	defer srv.Close()

	// Pages with no routes: every guessed URL fails to load.
	useFakeLauncher(t, mocks.NewFakeBrowser(mocks.NewFakePage))
	cfgPath := testConfigFile(t, fmt.Sprintf("connectors:\n  acme:\n    api_url: %s\n", srv.URL))

	unknown := strings.Replace(registrationJSON, `"Acme"`, `"Zzyzx Appliances"`, 1)
	input := writeFile(t, "requests.jsonl",
		`{"manufacturer":"acme","data":`+compact(t, registrationJSON)+"}\n\n"+
			`{"data":`+compact(t, unknown)+"}\n")
	output := filepath.Join(t.TempDir(), "report.json")

	out, err := executeCommand(t, "batch", "--config", cfgPath, "--input", input, "--output", output,
		"--max-retries", "1", "--concurrency", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 2 registrations succeeded")

	raw, err := os.ReadFile(output)
	require.NoError(t, err)
	var report BatchReport
	require.NoError(t, json.Unmarshal(raw, &report))

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Results, 2)
	assert.Equal(t, "API-1", report.Results[0].ConfirmationCode)
	assert.Equal(t, schemas.MethodAPI, report.Results[0].Method)
	assert.False(t, report.Results[1].Success)
	assert.Equal(t, "Zzyzx Appliances", report.Results[1].Manufacturer)
	assert.Equal(t, 1, report.Results[1].Attempt, "--max-retries 1 allows a single attempt")

	require.Len(t, report.UnknownManufacturers, 1)
	assert.Equal(t, "Zzyzx Appliances", report.UnknownManufacturers[0].Name)
	assert.Equal(t, 1, report.UnknownManufacturers[0].Count)
}

func TestBatchCmd_EmptyInput(t *testing.T) {
	t.Setenv("SNAPREG_DATABASE_URL", "")
	input := writeFile(t, "requests.jsonl", "\n\n")
	_, err := executeCommand(t, "batch", "--config", testConfigFile(t, ""), "--input", input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no requests found")
}

func TestReadRequests(t *testing.T) {
	t.Run("skips blank lines and defaults the manufacturer", func(t *testing.T) {
		reqs, err := readRequests(strings.NewReader(
			`{"manufacturer":"Samsung","data":{"serialNumber":"A1"}}` + "\n   \n" +
				`{"data":{"manufacturer":"LG","serialNumber":"B2"},"options":{"maxRetries":1}}`))
		require.NoError(t, err)
		require.Len(t, reqs, 2)
		assert.Equal(t, "Samsung", reqs[0].Manufacturer)
		assert.Nil(t, reqs[0].Options)
		assert.Equal(t, "LG", reqs[1].Manufacturer)
		require.NotNil(t, reqs[1].Options)
		assert.Equal(t, 1, reqs[1].Options.MaxRetries)
	})

	t.Run("reports the failing line", func(t *testing.T) {
		_, err := readRequests(strings.NewReader(`{"manufacturer":"Samsung"}` + "\n" + `{"manufacturer":`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 2")
	})
}

// compact strips the indentation from a JSON document so it fits on one line.
func compact(t *testing.T, doc string) string {
	t.Helper()
	var v map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(doc), &v))
	out, err := json.Marshal(v)
	require.NoError(t, err)
	return string(out)
}
