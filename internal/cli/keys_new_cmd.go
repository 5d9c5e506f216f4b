package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/TwigBush/jwks-issuer/internal/config"
	"github.com/TwigBush/jwks-issuer/internal/keys"
	"github.com/spf13/cobra"
)

type keyFiles struct {
	KID         string `json:"kid"`
	Thumbprint  string `json:"thumbprint"`
	PrivatePath string `json:"private"`
	PublicPath  string `json:"public"`
}

// generateKeyFiles writes a fresh key pair into dir. Existing files are only
// replaced when force is set.
func generateKeyFiles(dir, privFile, pubFile, kid string, force bool) (keyFiles, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return keyFiles{}, err
	}
	p := &keys.Persistent{
		PrivatePath: filepath.Join(dir, privFile),
		PublicPath:  filepath.Join(dir, pubFile),
	}
	if !force {
		for _, path := range []string{p.PrivatePath, p.PublicPath} {
			if _, err := os.Stat(path); err == nil {
				return keyFiles{}, fmt.Errorf("%s already exists, use --force to replace it", path)
			} else if !errors.Is(err, os.ErrNotExist) {
				return keyFiles{}, err
			}
		}
	}

	m, err := keys.Generate(kid)
	if err != nil {
		return keyFiles{}, err
	}
	if err := p.Save(m); err != nil {
		return keyFiles{}, err
	}
	tp, err := keys.Thumbprint(m.Public)
	if err != nil {
		return keyFiles{}, err
	}
	return keyFiles{KID: m.KID, Thumbprint: tp, PrivatePath: p.PrivatePath, PublicPath: p.PublicPath}, nil
}

func cmdKeysNew() *cobra.Command {
	var dir, kid string
	var force bool

	c := &cobra.Command{
		Use:   "new",
		Short: "Generate private-jwk.json and public-jwk.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.Keys.Dir
			}
			res, err := generateKeyFiles(dir, cfg.Keys.PrivateFile, cfg.Keys.PublicFile, kid, force)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res,
				"Wrote "+res.PrivatePath,
				"Wrote "+res.PublicPath,
				"Key ID: "+res.KID,
				"Thumbprint: "+res.Thumbprint,
			)
		},
	}
	c.Flags().StringVar(&dir, "dir", "", "output directory (default keys.dir from config)")
	c.Flags().StringVar(&kid, "kid", "", "key ID (default random UUID)")
	c.Flags().BoolVar(&force, "force", false, "replace existing key files")
	return c
}

func cmdKeysShow() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the JWKS the server would publish",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if cfg.Keys.Mode != keys.ModePersistent {
				return fmt.Errorf("keys show needs keys.mode %q, got %q", keys.ModePersistent, cfg.Keys.Mode)
			}
			m, err := loadKeyFiles(cfg)
			if err != nil {
				return err
			}
			b, err := m.JWKSJSON()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		},
	}
}

// loadKeyFiles reads the configured persistent key files, never creating them.
func loadKeyFiles(cfg *config.Config) (*keys.Material, error) {
	provider, err := keys.NewProvider(cfg.KeyOptions())
	if err != nil {
		return nil, err
	}
	p, ok := provider.(*keys.Persistent)
	if !ok {
		return nil, fmt.Errorf("keys.mode %q has no key files", cfg.Keys.Mode)
	}
	return p.Load()
}
