package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/fields"
	"github.com/xkilldash9x/snapreg/internal/observability"
)

// FieldPlan is the output of the fields command.
type FieldPlan struct {
	Detected []schemas.DetectedField `json:"detected"`
	Mappings []schemas.FieldMapping  `json:"mappings,omitempty"`
	Unmapped []string                `json:"unmapped,omitempty"`
}

// newFieldsCmd creates the `fields` command, which runs field detection and
// mapping against a saved page without launching a browser.
func newFieldsCmd() *cobra.Command {
	var (
		htmlPath string
		dataPath string
	)

	fieldsCmd := &cobra.Command{
		Use:   "fields",
		Short: "Shows how a saved registration page would be filled",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			markup, err := os.ReadFile(expandPath(htmlPath))
			if err != nil {
				return fmt.Errorf("failed to read page: %w", err)
			}
			detected, err := fields.NewDetector(logger).DetectHTML(string(markup))
			if err != nil {
				return err
			}
			plan := FieldPlan{Detected: detected}

			if dataPath != "" {
				var data schemas.RegistrationData
				if err := readJSONFile(dataPath, cmd.InOrStdin(), &data); err != nil {
					return err
				}
				plan.Mappings = fields.NewMapper(logger).Map(detected, &data)
				mapped := make(map[string]bool, len(plan.Mappings))
				for _, m := range plan.Mappings {
					mapped[m.Field.Selector] = true
				}
				for _, f := range detected {
					if mapped[f.Selector] {
						continue
					}
					name := f.Name
					if name == "" {
						name = f.Label
					}
					plan.Unmapped = append(plan.Unmapped, name)
				}
			}
			return writeJSON(cmd.OutOrStdout(), plan)
		},
	}

	fieldsCmd.Flags().StringVar(&htmlPath, "html", "", "Saved HTML of the registration page (required)")
	_ = fieldsCmd.MarkFlagRequired("html")
	fieldsCmd.Flags().StringVarP(&dataPath, "data", "d", "", "Registration data JSON file used to preview values")
	return fieldsCmd
}
