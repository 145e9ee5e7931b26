package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/config"
	"github.com/xkilldash9x/snapreg/internal/observability"
)

// ErrRegistrationFailed is returned after a failed result has been printed.
var ErrRegistrationFailed = errors.New("registration failed")

// newRegisterCmd creates and configures the `register` command.
func newRegisterCmd() *cobra.Command {
	var (
		manufacturer string
		dataPath     string
		timeout      time.Duration
		engine       string
	)

	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Registers one product with its manufacturer",
		Long: `Fills in the manufacturer's warranty registration form with the customer and
product details read from a JSON file, and prints the result as JSON.`,
		Example: `  snapreg register --data ./dishwasher.json
  snapreg register --manufacturer "LG Electronics" --data - --max-retries 1 < dryer.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			var data schemas.RegistrationData
			if err := readJSONFile(dataPath, cmd.InOrStdin(), &data); err != nil {
				return err
			}
			if strings.TrimSpace(manufacturer) == "" {
				manufacturer = data.Manufacturer
			}
			if strings.TrimSpace(manufacturer) == "" {
				return errors.New("no manufacturer given: pass --manufacturer or set \"manufacturer\" in the data file")
			}

			c, err := initializeComponents(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			defer c.Shutdown(ctx)

			result := c.Register(ctx, schemas.Request{
				Manufacturer: manufacturer,
				Data:         data,
				Options:      runOptions(cfg, timeout, engine),
			})
			if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.Success {
				logger.Warn("Registration did not succeed.",
					zap.String("manufacturer", manufacturer),
					zap.String("error_type", string(result.ErrorKind)))
				return fmt.Errorf("%w: %s: %s", ErrRegistrationFailed, result.ErrorKind, result.ErrorMessage)
			}
			return nil
		},
	}

	registerCmd.Flags().StringVarP(&manufacturer, "manufacturer", "m", "", "Manufacturer name (defaults to the data file's manufacturer)")
	registerCmd.Flags().StringVarP(&dataPath, "data", "d", "", "Registration data JSON file, or - for stdin (required)")
	_ = registerCmd.MarkFlagRequired("data")
	addRunFlags(registerCmd)
	registerCmd.Flags().DurationVar(&timeout, "timeout", 0, "Per-attempt time limit (default orchestrator.run_timeout)")
	registerCmd.Flags().StringVar(&engine, "engine", "", "Browser engine; only chromium is supported")

	return registerCmd
}

// addRunFlags adds the flags shared by register and batch.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("headless", true, "Run the browser without a window")
	cmd.Flags().Bool("screenshots", true, "Capture a screenshot of every outcome")
	cmd.Flags().Int("max-retries", 3, "Attempts per registration")
	bindFlag(cmd, "headless", "browser.headless")
	bindFlag(cmd, "screenshots", "browser.capture_screenshots")
	bindFlag(cmd, "max-retries", "orchestrator.max_retries")
}

func runOptions(cfg *config.Config, timeout time.Duration, engine string) *schemas.Options {
	return &schemas.Options{
		Headless:           schemas.Bool(cfg.Browser().Headless),
		CaptureScreenshots: schemas.Bool(cfg.Browser().CaptureScreenshots),
		MaxRetries:         cfg.Orchestrator().MaxRetries,
		Timeout:            timeout,
		Engine:             engine,
	}
}
