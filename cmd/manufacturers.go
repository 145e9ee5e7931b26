package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/snapreg/internal/manufacturers"
)

func newManufacturersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manufacturers",
		Short: "Lists the manufacturers with a dedicated strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, build := range manufacturers.All() {
				site := build()
				fmt.Fprintf(out, "%-12s %s\n", site.Name(), site.RegistrationURL())
				if aliases := site.Aliases(); len(aliases) > 0 {
					fmt.Fprintf(out, "%-12s aliases: %s\n", "", strings.Join(aliases, ", "))
				}
			}
			fmt.Fprintln(out, "Any other manufacturer is attempted with the generic form strategy.")
			return nil
		},
	}
}
