// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/config"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

var _ config.Interface = (*MockConfig)(nil)

// --- Getters ---

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Database() config.DatabaseConfig {
	args := m.Called()
	return args.Get(0).(config.DatabaseConfig)
}

func (m *MockConfig) Browser() config.BrowserConfig {
	args := m.Called()
	return args.Get(0).(config.BrowserConfig)
}

func (m *MockConfig) Orchestrator() config.OrchestratorConfig {
	args := m.Called()
	return args.Get(0).(config.OrchestratorConfig)
}

func (m *MockConfig) Registry() config.RegistryConfig {
	args := m.Called()
	return args.Get(0).(config.RegistryConfig)
}

func (m *MockConfig) Connectors() map[string]config.ConnectorConfig {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(map[string]config.ConnectorConfig)
}

func (m *MockConfig) Connector(manufacturer string) (config.ConnectorConfig, bool) {
	args := m.Called(manufacturer)
	return args.Get(0).(config.ConnectorConfig), args.Bool(1)
}

// --- Setters ---

func (m *MockConfig) SetBrowserHeadless(b bool)           { m.Called(b) }
func (m *MockConfig) SetBrowserCaptureScreenshots(b bool) { m.Called(b) }
func (m *MockConfig) SetOrchestratorMaxRetries(n int)     { m.Called(n) }
func (m *MockConfig) SetOrchestratorConcurrency(n int)    { m.Called(n) }

// -- Browser Mocks --

// MockLauncher mocks schemas.Launcher.
type MockLauncher struct {
	mock.Mock
}

func (m *MockLauncher) Launch(ctx context.Context, opts schemas.Options) (schemas.Browser, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(schemas.Browser), args.Error(1)
}

// MockBrowser mocks schemas.Browser.
type MockBrowser struct {
	mock.Mock
}

func (m *MockBrowser) NewPage(ctx context.Context, persona schemas.Persona) (schemas.Page, error) {
	args := m.Called(ctx, persona)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(schemas.Page), args.Error(1)
}

func (m *MockBrowser) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockPage mocks schemas.Page. Prefer FakePage when the test drives a form;
// MockPage is for asserting exact call sequences.
type MockPage struct {
	mock.Mock
}

func (m *MockPage) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}
func (m *MockPage) URL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
func (m *MockPage) HTML(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
func (m *MockPage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return m.Called(ctx, selector, timeout).Error(0)
}
func (m *MockPage) Type(ctx context.Context, selector, text string) error {
	return m.Called(ctx, selector, text).Error(0)
}
func (m *MockPage) Click(ctx context.Context, selector string) error {
	return m.Called(ctx, selector).Error(0)
}
func (m *MockPage) SelectOption(ctx context.Context, selector, value string) error {
	return m.Called(ctx, selector, value).Error(0)
}
func (m *MockPage) SetChecked(ctx context.Context, selector string, checked bool) error {
	return m.Called(ctx, selector, checked).Error(0)
}
func (m *MockPage) PressEnter(ctx context.Context, selector string) error {
	return m.Called(ctx, selector).Error(0)
}
func (m *MockPage) Evaluate(ctx context.Context, script string, res interface{}) error {
	return m.Called(ctx, script, res).Error(0)
}
func (m *MockPage) Screenshot(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
func (m *MockPage) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// -- Persistence Mock --

// MockAttemptRecorder records attempts handed to it by the orchestrator.
type MockAttemptRecorder struct {
	mock.Mock
}

func (m *MockAttemptRecorder) RecordAttempt(ctx context.Context, rec schemas.AttemptRecord) error {
	return m.Called(ctx, rec).Error(0)
}
