package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	json "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/browser"
	"github.com/xkilldash9x/snapreg/internal/config"
	"github.com/xkilldash9x/snapreg/internal/connector"
	"github.com/xkilldash9x/snapreg/internal/manufacturers"
	"github.com/xkilldash9x/snapreg/internal/orchestrator"
	"github.com/xkilldash9x/snapreg/internal/registry"
	"github.com/xkilldash9x/snapreg/internal/store"
)

// newLauncher is swapped out by tests that drive a fake browser.
var newLauncher = func(logger *zap.Logger, cfg config.BrowserConfig) schemas.Launcher {
	return browser.NewLauncher(logger, cfg)
}

// components holds everything a registration command needs. Shutdown must be
// called once the command is done.
type components struct {
	Registry     *registry.Registry
	Orchestrator *orchestrator.Orchestrator
	Connectors   *connector.Set
	Store        *store.Store
	logger       *zap.Logger
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*components, error) {
	c := &components{logger: logger}

	c.Registry = registry.New(logger, cfg.Registry())
	if err := manufacturers.RegisterAll(c.Registry); err != nil {
		return nil, err
	}

	var opts []orchestrator.Option
	if cfg.Database().URL != "" {
		st, err := store.Open(ctx, cfg.Database().URL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		c.Store = st
		opts = append(opts, orchestrator.WithRecorder(st))
	}

	orch, err := orchestrator.New(cfg, logger, c.Registry, newLauncher(logger, cfg.Browser()), opts...)
	if err != nil {
		c.Shutdown(ctx)
		return nil, err
	}
	c.Orchestrator = orch

	c.Connectors, err = connector.NewSet(cfg, logger, orch)
	if err != nil {
		c.Shutdown(ctx)
		return nil, err
	}
	return c, nil
}

// Register routes a registration through the manufacturer's API connector
// when one is configured, and straight to the browser otherwise.
func (c *components) Register(ctx context.Context, req schemas.Request) *schemas.AutomationResult {
	if conn, ok := c.Connectors.For(req.Manufacturer); ok {
		return conn.Register(ctx, &req.Data, req.Options)
	}
	return c.Orchestrator.ExecuteRegistration(ctx, req.Manufacturer, &req.Data, req.Options)
}

// RegisterMany runs reqs in batches of concurrency, like
// Orchestrator.ExecuteMultiple, but lets connectors take their manufacturers.
// Results keep the order of reqs.
func (c *components) RegisterMany(ctx context.Context, reqs []schemas.Request, concurrency int) []*schemas.AutomationResult {
	if c.Connectors.Len() == 0 {
		return c.Orchestrator.ExecuteMultiple(ctx, reqs, concurrency)
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([]*schemas.AutomationResult, len(reqs))
	for start := 0; start < len(reqs); start += concurrency {
		end := min(start+concurrency, len(reqs))
		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				results[i] = c.Register(ctx, reqs[i])
				return nil
			})
		}
		_ = g.Wait()
	}
	return results
}

// Shutdown releases the browser and the database pool.
func (c *components) Shutdown(ctx context.Context) {
	if c.Orchestrator != nil {
		if err := c.Orchestrator.Shutdown(ctx); err != nil {
			c.logger.Warn("Error during orchestrator shutdown.", zap.Error(err))
		}
	}
	if c.Store != nil {
		c.Store.Close()
	}
}

// expandPath resolves a leading ~ to the home directory.
func expandPath(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}

// readJSONFile decodes path into v. A path of "-" reads stdin.
func readJSONFile(path string, stdin io.Reader, v interface{}) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(expandPath(path))
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
