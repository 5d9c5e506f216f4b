package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/TwigBush/jwks-issuer/internal/config"
	"github.com/TwigBush/jwks-issuer/internal/keys"
	"github.com/spf13/cobra"
)

func cmdInit() *cobra.Command {
	var mode, profile string

	c := &cobra.Command{
		Use:   "init",
		Short: "Write a config file and, in persistent mode, a key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("%s already exists", cfgPath)
			} else if !errors.Is(err, os.ErrNotExist) {
				return err
			}

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if mode != "" {
				cfg.Keys.Mode = mode
			}
			if profile != "" {
				cfg.Token.Profile = profile
				cfg.Token.Issuer, cfg.Token.Subject, cfg.Token.Audience, cfg.Token.TTL = "", "", "", 0
			}
			if cfg.Keys.Mode == keys.ModeEphemeral {
				if cfg.Keys.KID == "" {
					cfg.Keys.KID = keys.DefaultEphemeralKID
				}
				if cfg.Keys.JWKSDump == "" {
					cfg.Keys.JWKSDump = keys.DefaultJWKSDump
				}
			}
			cfg.Token = cfg.Token.WithDefaults()
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote config: %s\n", cfgPath)

			if cfg.Keys.Mode != keys.ModePersistent {
				return nil
			}
			res, err := generateKeyFiles(cfg.Keys.Dir, cfg.Keys.PrivateFile, cfg.Keys.PublicFile, "", false)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Key ID: %s (thumbprint %s)\n", res.KID, res.Thumbprint)
			return nil
		},
	}
	c.Flags().StringVar(&mode, "mode", "", "key mode: persistent|ephemeral")
	c.Flags().StringVar(&profile, "profile", "", "token profile: payload|subject")
	return c
}
