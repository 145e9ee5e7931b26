package cmd

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/observability"
)

// maxRequestLine bounds one JSONL request.
const maxRequestLine = 1 << 20

// BatchReport is what the batch command writes.
type BatchReport struct {
	Total                int                           `json:"total"`
	Succeeded            int                           `json:"succeeded"`
	Failed               int                           `json:"failed"`
	Results              []*schemas.AutomationResult   `json:"results"`
	UnknownManufacturers []schemas.UnknownManufacturer `json:"unknownManufacturers,omitempty"`
}

// newBatchCmd creates and configures the `batch` command.
func newBatchCmd() *cobra.Command {
	var (
		inputPath  string
		outputPath string
	)

	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Registers every request of a JSON Lines file",
		Long: `Reads one registration request per line ({"manufacturer": ..., "data": {...}})
and runs them in batches. The report lists each result in input order and the
manufacturers that had no dedicated strategy, most requested first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			var in io.Reader = cmd.InOrStdin()
			if inputPath != "-" {
				f, err := os.Open(expandPath(inputPath))
				if err != nil {
					return fmt.Errorf("failed to open input: %w", err)
				}
				defer f.Close()
				in = f
			}
			reqs, err := readRequests(in)
			if err != nil {
				return err
			}
			if len(reqs) == 0 {
				return fmt.Errorf("no requests found in %s", inputPath)
			}

			c, err := initializeComponents(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			defer c.Shutdown(ctx)

			defaults := runOptions(cfg, 0, "")
			for i := range reqs {
				if reqs[i].Options == nil {
					reqs[i].Options = defaults
				}
			}

			concurrency := cfg.Orchestrator().Concurrency
			logger.Info("Starting batch.", zap.Int("requests", len(reqs)), zap.Int("concurrency", concurrency))
			results := c.RegisterMany(ctx, reqs, concurrency)

			report := BatchReport{
				Total:                len(results),
				Results:              results,
				UnknownManufacturers: c.Registry.Detector().Ranking(),
			}
			for _, r := range results {
				if r != nil && r.Success {
					report.Succeeded++
				} else {
					report.Failed++
				}
			}
			logger.Info("Batch complete.", zap.Int("succeeded", report.Succeeded), zap.Int("failed", report.Failed))

			if outputPath == "" {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			f, err := os.Create(expandPath(outputPath))
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			if err := writeJSON(f, report); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d registrations succeeded. Report written to %s\n",
				report.Succeeded, report.Total, outputPath)
			return nil
		},
	}

	batchCmd.Flags().StringVarP(&inputPath, "input", "i", "", "JSON Lines file of requests, or - for stdin (required)")
	_ = batchCmd.MarkFlagRequired("input")
	batchCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Report file. If unset, the report is printed to stdout.")
	batchCmd.Flags().Int("concurrency", 3, "Registrations run at the same time")
	bindFlag(batchCmd, "concurrency", "orchestrator.concurrency")
	addRunFlags(batchCmd)

	return batchCmd
}

// readRequests decodes one request per non-blank line.
func readRequests(r io.Reader) ([]schemas.Request, error) {
	var reqs []schemas.Request
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRequestLine)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var req schemas.Request
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("line %d: invalid request: %w", line, err)
		}
		if req.Manufacturer == "" {
			req.Manufacturer = req.Data.Manufacturer
		}
		reqs = append(reqs, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read requests: %w", err)
	}
	return reqs, nil
}
