package connector

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andybalholm/brotli"
	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/config"
)

func testRegistration() *schemas.RegistrationData {
	return &schemas.RegistrationData{
		RegistrationID: "reg-9",
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Email:          "ada@example.com",
		Manufacturer:   "Acme",
		ModelNumber:    "DW-100",
		SerialNumber:   "SN-42",
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc, apiKey string) *APIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	c, err := NewAPIClient(config.ConnectorConfig{APIURL: srv.URL, APIKey: apiKey}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		c.http.CloseIdleConnections()
		srv.Close()
	})
	return c
}

func TestAPIClient_PostsJSON(t *testing.T) {
	t.Parallel()
	var got schemas.RegistrationData
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"confirmationCode":"AC-1001"}`))
	}, "secret")

	resp, err := c.Register(context.Background(), testRegistration())
	require.NoError(t, err)
	assert.Equal(t, "AC-1001", resp.ConfirmationCode)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "SN-42", got.SerialNumber)
	assert.Equal(t, "ada@example.com", got.Email)
}

func TestAPIClient_NoAuthorizationWithoutKey(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
	}, "")

	resp, err := c.Register(context.Background(), testRegistration())
	require.NoError(t, err)
	assert.Empty(t, resp.ConfirmationCode)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestAPIClient_ConfirmationKeys(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		contentType string
		body        string
		want        string
	}{
		{"snake case", "application/json", `{"confirmation_number":"CN-7"}`, "CN-7"},
		{"numeric registration id", "application/json", `{"registrationId":559201}`, "559201"},
		{"reference number", "application/json; charset=utf-8", `{"referenceNumber":" REF-3 "}`, "REF-3"},
		{"key order", "application/json", `{"referenceNumber":"R-2","confirmationCode":"C-1"}`, "C-1"},
		{"xml element", "application/xml", `<result><status><success>true</success></status><confirmationCode>X-88</confirmationCode></result>`, "X-88"},
		{"xml attribute", "text/xml", `<registration referenceNumber="X-99"/>`, "X-99"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				_, _ = w.Write([]byte(tt.body))
			}, "")
			resp, err := c.Register(context.Background(), testRegistration())
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.ConfirmationCode)
		})
	}
}

func TestAPIClient_Failures(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantStatus  int
		wantMessage string
	}{
		{"server error", http.StatusServiceUnavailable, "text/plain", "Service   Unavailable\n", 503, "Service Unavailable"},
		{"json error body", http.StatusBadRequest, "application/json", `{"error":"serial number invalid"}`, 400, "serial number invalid"},
		{"success false", http.StatusOK, "application/json", `{"success":false,"message":"already registered"}`, 200, "already registered"},
		{"success false as string", http.StatusOK, "application/json", `{"success":"false"}`, 200, ""},
		{"xml success false", http.StatusOK, "application/xml", `<r><success>false</success><message>bad model</message></r>`, 200, "bad model"},
		{"garbage on 200", http.StatusOK, "application/json", `{not json`, 200, "invalid JSON response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, "")
			_, err := c.Register(context.Background(), testRegistration())
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			assert.Contains(t, apiErr.Message, tt.wantMessage)
		})
	}
}

func TestAPIClient_DecodesCompressedBodies(t *testing.T) {
	t.Parallel()
	payload := []byte(`{"confirmationCode":"Z-5"}`)

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	_, _ = bw.Write(payload)
	require.NoError(t, bw.Close())

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write(payload)
	require.NoError(t, gw.Close())

	for encoding, body := range map[string][]byte{"br": br.Bytes(), "gzip": gz.Bytes()} {
		t.Run(encoding, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Contains(t, r.Header.Get("Accept-Encoding"), encoding)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Content-Encoding", encoding)
				_, _ = w.Write(body)
			}, "")
			resp, err := c.Register(context.Background(), testRegistration())
			require.NoError(t, err)
			assert.Equal(t, "Z-5", resp.ConfirmationCode)
		})
	}
}

func TestAPIClient_NetworkError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewAPIClient(config.ConnectorConfig{APIURL: url}, nil)
	require.NoError(t, err)
	_, err = c.Register(context.Background(), testRegistration())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network error")
}

func TestNewAPIClient_RequiresURL(t *testing.T) {
	t.Parallel()
	_, err := NewAPIClient(config.ConnectorConfig{}, nil)
	assert.ErrorIs(t, err, ErrNoAPIURL)
}
