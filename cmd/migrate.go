package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/snapreg/internal/observability"
	"github.com/xkilldash9x/snapreg/internal/store"
)

// newMigrateCmd creates the `migrate` command, which creates the attempts
// table in the configured database.
func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Applies the attempt history schema to the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			st, err := store.Open(ctx, cfg.Database().URL, observability.GetLogger())
			if err != nil {
				return err
			}
			defer st.Close()
			return st.Migrate(ctx)
		},
	}
}
