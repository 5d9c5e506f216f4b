package cli

import (
	"github.com/TwigBush/jwks-issuer/internal/config"
	"github.com/TwigBush/jwks-issuer/internal/payload"
	"github.com/spf13/cobra"
)

type payloadResult struct {
	Canonical string `json:"canonical"`
	SHA256    string `json:"sha256"`
}

func cmdPayload() *cobra.Command {
	var file string

	c := &cobra.Command{
		Use:   "payload",
		Short: "Print the hashed payload string and its SHA-256",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if file == "" {
				file = cfg.Payload.File
			}
			h, err := payload.Load(file, cfg.Payload.Dump)
			if err != nil {
				return err
			}
			sum, err := h.Digest()
			if err != nil {
				return err
			}
			res := payloadResult{Canonical: string(h.Canonical()), SHA256: sum}
			return printResult(cmd.OutOrStdout(), res, res.Canonical, res.SHA256)
		},
	}
	c.Flags().StringVarP(&file, "file", "f", "", "payload JSON file (default payload.file from config)")
	return c
}
