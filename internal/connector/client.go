// internal/connector/client.go
package connector

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/beevik/etree"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/config"
)

const (
	userAgent       = "snapreg/1.0"
	maxResponseSize = 2 << 20
)

// ErrNoAPIURL is returned by NewAPIClient for an entry without api_url.
var ErrNoAPIURL = errors.New("connector api_url is not configured")

// confirmationKeys are checked in order, in both JSON and XML bodies.
var confirmationKeys = []string{"confirmationCode", "confirmation_number", "registrationId", "referenceNumber"}

// APIResponse is a successful manufacturer API reply.
type APIResponse struct {
	StatusCode       int
	ConfirmationCode string
	Message          string
}

// APIError is a reply the manufacturer API sent but that is not a success.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("registration api rejected the request (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("registration api rejected the request (status %d): %s", e.StatusCode, e.Message)
}

// APIClient posts registrations to a manufacturer HTTP endpoint.
type APIClient struct {
	url    string
	apiKey string
	http   *http.Client
	logger *zap.Logger
}

// NewAPIClient builds a client with its own cookie jar for cfg.APIURL.
func NewAPIClient(cfg config.ConnectorConfig, logger *zap.Logger) (*APIClient, error) {
	if cfg.APIURL == "" {
		return nil, ErrNoAPIURL
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultConnectorTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIClient{
		url:    cfg.APIURL,
		apiKey: cfg.APIKey,
		http:   &http.Client{Jar: jar, Timeout: timeout},
		logger: logger.Named("api_client"),
	}, nil
}

// Register submits data and returns the parsed reply. Non-2xx statuses and
// bodies carrying success=false come back as *APIError.
func (c *APIClient) Register(ctx context.Context, data *schemas.RegistrationData) (*APIResponse, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode registration: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build registration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, application/xml;q=0.9")
	// Setting Accept-Encoding disables the transport's transparent gzip, so
	// decodeBody handles both encodings.
	req.Header.Set("Accept-Encoding", "br, gzip")
	req.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error calling registration api: %w", err)
	}
	defer resp.Body.Close()

	body, err := decodeBody(resp)
	if err != nil {
		return nil, fmt.Errorf("network error reading registration api response: %w", err)
	}
	c.logger.Debug("Registration API responded.",
		zap.Int("status", resp.StatusCode), zap.Int("bytes", len(body)))

	rep, perr := parseReply(resp.Header.Get("Content-Type"), body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := rep.message
		if perr != nil {
			msg = snippet(body)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if perr != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: perr.Error()}
	}
	if !rep.success {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: rep.message}
	}
	return &APIResponse{StatusCode: resp.StatusCode, ConfirmationCode: rep.code, Message: rep.message}, nil
}

func decodeBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		r = brotli.NewReader(resp.Body)
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("invalid gzip body: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	return io.ReadAll(io.LimitReader(r, maxResponseSize))
}

type reply struct {
	success bool
	code    string
	message string
}

// parseReply reads a JSON or XML body. A body without an explicit success
// flag counts as successful; an empty body yields a zero reply that is
// successful too, so the status code decides.
func parseReply(contentType string, body []byte) (reply, error) {
	out := reply{success: true}
	if len(bytes.TrimSpace(body)) == 0 {
		return out, nil
	}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if strings.HasSuffix(mediaType, "xml") || bytes.HasPrefix(bytes.TrimSpace(body), []byte("<")) {
		return parseXMLReply(body)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return out, fmt.Errorf("invalid JSON response: %w", err)
	}
	if v, ok := doc["success"]; ok {
		out.success = truthy(v)
	}
	for _, k := range []string{"message", "error"} {
		if s := scalarString(doc[k]); s != "" {
			out.message = s
			break
		}
	}
	for _, k := range confirmationKeys {
		if s := scalarString(doc[k]); s != "" {
			out.code = s
			break
		}
	}
	return out, nil
}

func parseXMLReply(body []byte) (reply, error) {
	out := reply{success: true}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return out, fmt.Errorf("invalid XML response: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return out, fmt.Errorf("invalid XML response: no root element")
	}
	lookup := func(name string) string {
		if el := root.FindElement(".//" + name); el != nil {
			return strings.TrimSpace(el.Text())
		}
		if attr := root.SelectAttr(name); attr != nil {
			return strings.TrimSpace(attr.Value)
		}
		return ""
	}
	if s := lookup("success"); s != "" {
		out.success = truthy(s)
	}
	for _, k := range []string{"message", "error"} {
		if s := lookup(k); s != "" {
			out.message = s
			break
		}
	}
	for _, k := range confirmationKeys {
		if s := lookup(k); s != "" {
			out.code = s
			break
		}
	}
	return out, nil
}

func snippet(body []byte) string {
	s := strings.Join(strings.Fields(string(body)), " ")
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	case float64:
		return t != 0
	}
	return false
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}
