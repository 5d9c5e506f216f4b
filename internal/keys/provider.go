package keys

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/lestrrat-go/jwx/v3/jwk"
)

const (
	ModeEphemeral  = "ephemeral"
	ModePersistent = "persistent"

	DefaultPrivateFile = "private-jwk.json"
	DefaultPublicFile  = "public-jwk.json"

	// Starter values for ephemeral mode.
	DefaultEphemeralKID = "988b13d8-64f2-4799-bc20-6448e6efa090"
	DefaultJWKSDump     = "jwks.json"
)

// Provider produces the signing key material at startup.
type Provider interface {
	Provide(ctx context.Context) (*Material, error)
}

// Options selects and configures a Provider.
type Options struct {
	Mode        string
	Dir         string
	PrivateFile string
	PublicFile  string
	KID         string // ephemeral only; empty means a random UUID
	JWKSDump    string // ephemeral only; empty disables the dump
}

func NewProvider(opts Options) (Provider, error) {
	switch opts.Mode {
	case ModeEphemeral:
		return &Ephemeral{KID: opts.KID, DumpPath: opts.JWKSDump}, nil
	case ModePersistent, "":
		dir := opts.Dir
		if dir == "" {
			dir = "."
		}
		priv := opts.PrivateFile
		if priv == "" {
			priv = DefaultPrivateFile
		}
		pub := opts.PublicFile
		if pub == "" {
			pub = DefaultPublicFile
		}
		return &Persistent{
			PrivatePath: filepath.Join(dir, priv),
			PublicPath:  filepath.Join(dir, pub),
		}, nil
	default:
		return nil, fmt.Errorf("unknown key mode %q", opts.Mode)
	}
}

// Ephemeral generates a new key pair on every start.
type Ephemeral struct {
	KID      string
	DumpPath string
}

func (e *Ephemeral) Provide(ctx context.Context) (*Material, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := Generate(e.KID)
	if err != nil {
		return nil, err
	}
	if e.DumpPath != "" {
		b, err := m.JWKSJSON()
		if err != nil {
			return nil, err
		}
		if err := osWriteFile(e.DumpPath, b, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", e.DumpPath, err)
		}
		slog.Info("jwks written", "path", e.DumpPath, "kid", m.KID)
	}
	return m, nil
}

// Persistent loads the key pair from disk, generating and saving one when
// either file is missing.
type Persistent struct {
	PrivatePath string
	PublicPath  string
}

func (p *Persistent) Provide(ctx context.Context) (*Material, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fileExists(p.PrivatePath) && fileExists(p.PublicPath) {
		m, err := p.load()
		if err != nil {
			return nil, err
		}
		slog.Info("keys loaded", "private", p.PrivatePath, "public", p.PublicPath, "kid", m.KID)
		return m, nil
	}

	m, err := Generate("")
	if err != nil {
		return nil, err
	}
	if err := p.Save(m); err != nil {
		return nil, err
	}
	slog.Info("keys generated", "private", p.PrivatePath, "public", p.PublicPath, "kid", m.KID)
	return m, nil
}

// Load reads the existing key files without generating missing ones.
func (p *Persistent) Load() (*Material, error) {
	for _, path := range []string{p.PrivatePath, p.PublicPath} {
		if !fileExists(path) {
			return nil, fmt.Errorf("%w: %s", ErrNoKeyFiles, path)
		}
	}
	return p.load()
}

func (p *Persistent) load() (*Material, error) {
	privJSON, err := osReadFile(p.PrivatePath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.PrivatePath, err)
	}
	priv, err := jwk.ParseKey(privJSON)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.PrivatePath, err)
	}

	pubJSON, err := osReadFile(p.PublicPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.PublicPath, err)
	}
	set, err := jwk.Parse(pubJSON)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.PublicPath, err)
	}

	m, err := fromJWKs(priv, set)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", p.PrivatePath, err)
	}
	return m, nil
}

// Save writes both key files pretty-printed, overwriting existing ones.
func (p *Persistent) Save(m *Material) error {
	pubJSON, err := m.JWKSJSON()
	if err != nil {
		return err
	}
	if err := osWriteFile(p.PublicPath, pubJSON, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", p.PublicPath, err)
	}

	privJSON, err := json.MarshalIndent(m.Private, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}
	if err := osWriteFile(p.PrivatePath, privJSON, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", p.PrivatePath, err)
	}
	return nil
}
