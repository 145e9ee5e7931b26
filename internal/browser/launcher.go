package browser

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/config"
)

var _ schemas.Launcher = (*Launcher)(nil)

// Launcher starts chromedp-backed browser processes.
type Launcher struct {
	logger *zap.Logger
	cfg    config.BrowserConfig
}

// NewLauncher creates a Launcher using cfg as the base browser configuration.
func NewLauncher(logger *zap.Logger, cfg config.BrowserConfig) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{logger: logger, cfg: cfg}
}

// Launch starts a browser. The per-call headless flag overrides the
// configured one; the engine must be chromium.
func (l *Launcher) Launch(ctx context.Context, opts schemas.Options) (schemas.Browser, error) {
	if opts.Engine != "" && opts.Engine != schemas.EngineChromium {
		return nil, fmt.Errorf("validation: unsupported browser engine %q", opts.Engine)
	}
	cfg := l.cfg
	cfg.Headless = schemas.BoolValue(opts.Headless, cfg.Headless)
	return NewManager(ctx, l.logger, cfg)
}
