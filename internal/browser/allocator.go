package browser

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/snapreg/internal/config"
)

// allocatorFlag is one Chrome command-line switch.
type allocatorFlag struct {
	Name  string
	Value interface{}
}

// allocatorFlags assembles the switches for a stealthy, configurable browser
// instance. Later entries override earlier ones with the same name.
func allocatorFlags(cfg config.BrowserConfig, goos string) []allocatorFlag {
	flags := []allocatorFlag{
		{"headless", cfg.Headless},
		// Chrome adds this switch by default; it exposes navigator.webdriver.
		{"enable-automation", false},
		{"disable-blink-features", "AutomationControlled"},
		{"disable-extensions", true},
		{"disable-gpu", cfg.Headless},
	}
	if cfg.Locale != "" {
		flags = append(flags, allocatorFlag{"lang", cfg.Locale})
	}
	if cfg.Viewport.Width > 0 && cfg.Viewport.Height > 0 {
		flags = append(flags, allocatorFlag{"window-size", windowSize(cfg.Viewport)})
	}

	// Flags required for running inside containers (e.g., Docker on Linux).
	if goos == "linux" {
		flags = append(flags,
			allocatorFlag{"no-sandbox", true},
			allocatorFlag{"disable-dev-shm-usage", true},
			allocatorFlag{"disable-setuid-sandbox", true},
		)
	}

	// Custom arguments from config.yaml.
	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if name == "" {
			continue
		}
		if len(parts) == 2 {
			flags = append(flags, allocatorFlag{name, parts[1]})
		} else {
			flags = append(flags, allocatorFlag{name, true})
		}
	}
	return flags
}

func windowSize(v config.ViewportConfig) string {
	return fmt.Sprintf("%d,%d", v.Width, v.Height)
}

// buildAllocatorOptions converts the flag list into chromedp options on top
// of chromedp's defaults.
func buildAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	for _, f := range allocatorFlags(cfg, runtime.GOOS) {
		opts = append(opts, chromedp.Flag(f.Name, f.Value))
	}
	return opts
}
