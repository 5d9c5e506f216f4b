package cli

import (
	"fmt"

	"github.com/TwigBush/jwks-issuer/internal/config"
	"github.com/TwigBush/jwks-issuer/internal/keys"
	"github.com/TwigBush/jwks-issuer/internal/token"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/spf13/cobra"
)

func cmdVerify() *cobra.Command {
	var jwksURL string

	c := &cobra.Command{
		Use:   "verify <token>",
		Short: "Verify a token against a JWKS URL or the local key files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			var set jwk.Set
			if jwksURL != "" {
				set, err = jwk.Fetch(cmd.Context(), jwksURL)
				if err != nil {
					return fmt.Errorf("fetch %s: %w", jwksURL, err)
				}
			} else {
				if cfg.Keys.Mode != keys.ModePersistent {
					return fmt.Errorf("--jwks is required when keys.mode is %q", cfg.Keys.Mode)
				}
				m, err := loadKeyFiles(cfg)
				if err != nil {
					return err
				}
				set = m.Set
			}

			claims, err := token.Verify(args[0], set, cfg.TokenConfig())
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), claims, "valid")
		},
	}
	c.Flags().StringVar(&jwksURL, "jwks", "", "JWKS URL, for example http://localhost:3000/.well-known/jwks.json")
	return c
}
