package cli

import (
	"fmt"

	"github.com/TwigBush/jwks-issuer/internal/config"
	"github.com/spf13/cobra"
)

type mintResult struct {
	Token string `json:"token"`
	KID   string `json:"kid"`
	Data  string `json:"data,omitempty"`
}

func cmdToken() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Mint one token with the configured key and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			if err := a.initKeys(cmd.Context()); err != nil {
				return err
			}
			m, _ := a.state.Get()

			var res mintResult
			res.KID = m.KID
			if a.payload != nil {
				if res.Data, err = a.payload.Digest(); err != nil {
					return err
				}
			}
			if res.Token, err = a.issuer.Issue(m.KID, m.PrivateKey, res.Data); err != nil {
				return err
			}

			lines := []string{res.Token}
			if res.Data != "" {
				lines = append(lines, fmt.Sprintf("data: %s", res.Data))
			}
			return printResult(cmd.OutOrStdout(), res, lines...)
		},
	}
}
