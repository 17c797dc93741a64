package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pricetrail/internal/urlkey"
)

func newCanonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "canon <url>",
		Short: "Print the candidate key set for a product URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, c := range urlkey.Candidates(args[0]) {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
}
