package stealth

import (
	"strings"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/config"
)

func TestAcceptLanguage(t *testing.T) {
	tests := []struct {
		name  string
		langs []string
		want  string
	}{
		{"default", nil, "en-US,en;q=0.9"},
		{"single", []string{"en-US"}, "en-US"},
		{"pair", []string{"en-US", "en"}, "en-US,en;q=0.9"},
		{"triple", []string{"en-US", "en", "es"}, "en-US,en;q=0.9,es;q=0.8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AcceptLanguage(tt.langs))
		})
	}
}

func TestBuildScript(t *testing.T) {
	script, err := BuildScript(schemas.DefaultPersona)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(script, "window.__snapregPersona = "))
	firstLine := strings.SplitN(script, "\n", 2)[0]
	payload := strings.TrimSuffix(strings.TrimPrefix(firstLine, "window.__snapregPersona = "), ";")

	var decoded struct {
		Platform  string   `json:"platform"`
		Languages []string `json:"languages"`
		Width     int64    `json:"width"`
	}
	require.NoError(t, json.Unmarshal([]byte(payload), &decoded))
	assert.Equal(t, "Win32", decoded.Platform)
	assert.Equal(t, []string{"en-US", "en"}, decoded.Languages)
	assert.Equal(t, int64(1920), decoded.Width)
	assert.Contains(t, script, "'webdriver'", "evasions body must follow the prelude")
}

func TestApply(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	full := Apply(schemas.DefaultPersona, zap.New(core))
	// UA, evasions, timezone, locale, device metrics, headers.
	assert.Len(t, full, 6)
	require.Equal(t, 1, logs.FilterMessage("Applying browser stealth persona").Len())

	bare := Apply(schemas.Persona{UserAgent: "UA"}, nil)
	assert.Len(t, bare, 3, "optional overrides are skipped for zero values")
}

func TestPersonaPool(t *testing.T) {
	agents := []string{
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	}
	pool := NewPersonaPool(schemas.DefaultPersona, agents)

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		p := pool.Next()
		assert.Contains(t, agents, p.UserAgent)
		assert.Equal(t, schemas.DefaultPersona.Timezone, p.Timezone)
		assert.Equal(t, schemas.DefaultPersona.Width, p.Width)
		if strings.Contains(p.UserAgent, "Macintosh") {
			assert.Equal(t, "MacIntel", p.Platform)
		} else {
			assert.Equal(t, "Linux x86_64", p.Platform)
		}
		seen[p.UserAgent] = true
	}
	assert.Len(t, seen, 2, "both user agents should be drawn over 200 samples")

	t.Run("empty pool keeps base", func(t *testing.T) {
		p := NewPersonaPool(schemas.DefaultPersona, nil).Next()
		assert.Equal(t, schemas.DefaultPersona.UserAgent, p.UserAgent)
	})

	t.Run("languages are copied", func(t *testing.T) {
		p := pool.Next()
		p.Languages[0] = "xx"
		assert.Equal(t, "en-US", schemas.DefaultPersona.Languages[0])
	})
}

func TestBasePersona(t *testing.T) {
	p := BasePersona(config.BrowserConfig{
		Viewport: config.ViewportConfig{Width: 1280, Height: 800},
		Locale:   "en-GB",
		Timezone: "Europe/London",
	})
	assert.Equal(t, int64(1280), p.Width)
	assert.Equal(t, int64(800), p.Height)
	assert.Equal(t, "Europe/London", p.Timezone)
	assert.Equal(t, []string{"en-GB", "en"}, p.Languages)
	assert.Equal(t, schemas.DefaultPersona.UserAgent, p.UserAgent)

	zero := BasePersona(config.BrowserConfig{})
	assert.Equal(t, schemas.DefaultPersona.Width, zero.Width)
	assert.Equal(t, schemas.DefaultPersona.Locale, zero.Locale)
}
