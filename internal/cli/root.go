package cli

import (
	"fmt"

	"github.com/TwigBush/jwks-issuer/internal/config"
	"github.com/spf13/cobra"
)

var (
	output  string
	cfgPath string
)

var rootCmd = &cobra.Command{
	Use:   "jwks-issuer",
	Short: "ES256 JWT issuer publishing its key as a JWKS",
}

func Execute() error { return rootCmd.Execute() }

func init() {
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "text", "output format: text|json")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath, "config file path")

	// Wire top level groups
	rootCmd.AddCommand(cmdServe(), cmdInit(), cmdKeys(), cmdToken(), cmdVerify(), cmdPayload(), cmdVersion())

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:   "help",
		Short: "Show help",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Root().Help()
		},
	})
	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		fmt.Println("Use -h for help, for example: jwks-issuer serve --config jwks-issuer.yaml")
	}
}
