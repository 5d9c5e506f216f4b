package cli

import (
	"fmt"

	"github.com/TwigBush/jwks-issuer/internal/version"
	"github.com/spf13/cobra"
)

func cmdVersion() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "json" {
				return printResult(cmd.OutOrStdout(), version.Get())
			}
			if verbose {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Verbose())
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed version information")

	return cmd
}
