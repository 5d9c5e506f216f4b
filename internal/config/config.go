package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/TwigBush/jwks-issuer/internal/keys"
	"github.com/TwigBush/jwks-issuer/internal/token"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	DefaultPath = "jwks-issuer.yaml"
	EnvPrefix   = "JWKS_ISSUER"
)

type Config struct {
	Addr        string   `yaml:"addr"         mapstructure:"addr"`
	LogLevel    string   `yaml:"log_level"    mapstructure:"log_level"`
	LogJSON     bool     `yaml:"log_json"     mapstructure:"log_json"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	Keys        Keys     `yaml:"keys"         mapstructure:"keys"`
	Token       Token    `yaml:"token"        mapstructure:"token"`
	Payload     Payload  `yaml:"payload"      mapstructure:"payload"`
}

type Keys struct {
	Mode        string `mapstructure:"mode"`         // persistent | ephemeral
	Dir         string `mapstructure:"dir"`          // persistent key directory
	PrivateFile string `mapstructure:"private_file"` // relative to Dir
	PublicFile  string `mapstructure:"public_file"`  // relative to Dir
	KID         string `mapstructure:"kid"`          // ephemeral kid, empty for a random UUID
	JWKSDump    string `mapstructure:"jwks_dump"`    // ephemeral JWKS dump path
	WaitReady   bool   `mapstructure:"wait_ready"`   // initialize keys before the listener binds
}

type Token struct {
	Profile  string        `mapstructure:"profile"` // payload | subject
	Issuer   string        `mapstructure:"issuer"`
	Subject  string        `mapstructure:"subject"`
	Audience string        `mapstructure:"audience"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type Payload struct {
	File string `mapstructure:"file"` // raw JSON payload, empty for the built-in one
	Dump string `mapstructure:"dump"` // where each hashed string is written, empty disables
}

// Load reads path (a missing file is not an error), applies JWKS_ISSUER_*
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("addr", ":3000")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("keys.mode", keys.ModePersistent)
	v.SetDefault("keys.dir", ".")
	v.SetDefault("keys.private_file", keys.DefaultPrivateFile)
	v.SetDefault("keys.public_file", keys.DefaultPublicFile)
	v.SetDefault("keys.kid", "")
	v.SetDefault("keys.jwks_dump", "")
	v.SetDefault("keys.wait_ready", true)
	v.SetDefault("token.profile", string(token.ProfilePayload))
	v.SetDefault("token.issuer", "")
	v.SetDefault("token.subject", "")
	v.SetDefault("token.audience", "")
	v.SetDefault("token.ttl", "0s")
	v.SetDefault("payload.file", "")
	v.SetDefault("payload.dump", "payload.json")

	// Env overrides: JWKS_ISSUER_ADDR, JWKS_ISSUER_KEYS_MODE, JWKS_ISSUER_TOKEN_TTL, etc.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("problem reading config file: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	var c Config
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		secondsHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&c, hooks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	c.Token = c.Token.WithDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// secondsHookFunc reads bare numbers as seconds when decoding a duration,
// so "ttl: 180" and "180s" mean the same.
func secondsHookFunc() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(time.Duration(0))
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != durationType {
			return data, nil
		}
		switch n := data.(type) {
		case string:
			secs, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
			if err != nil {
				return data, nil
			}
			return time.Duration(secs) * time.Second, nil
		case int:
			return time.Duration(n) * time.Second, nil
		case int64:
			return time.Duration(n) * time.Second, nil
		case uint64:
			return time.Duration(n) * time.Second, nil
		case float64:
			return time.Duration(n * float64(time.Second)), nil
		}
		return data, nil
	}
}

func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	switch c.Keys.Mode {
	case keys.ModePersistent, keys.ModeEphemeral:
	default:
		return fmt.Errorf("invalid keys.mode %q", c.Keys.Mode)
	}
	if c.Keys.Mode == keys.ModePersistent && (c.Keys.PrivateFile == "" || c.Keys.PublicFile == "") {
		return errors.New("keys.private_file and keys.public_file are required in persistent mode")
	}
	if c.Keys.Mode == keys.ModePersistent && c.Keys.PrivateFile == c.Keys.PublicFile {
		return errors.New("keys.private_file and keys.public_file must differ")
	}
	if err := c.TokenConfig().Validate(); err != nil {
		return fmt.Errorf("token: %w", err)
	}
	return nil
}

func (c *Config) KeyOptions() keys.Options {
	return keys.Options{
		Mode:        c.Keys.Mode,
		Dir:         c.Keys.Dir,
		PrivateFile: c.Keys.PrivateFile,
		PublicFile:  c.Keys.PublicFile,
		KID:         c.Keys.KID,
		JWKSDump:    c.Keys.JWKSDump,
	}
}

func (c *Config) TokenConfig() token.Config {
	return token.Config{
		Profile:  token.Profile(c.Token.Profile),
		Issuer:   c.Token.Issuer,
		Subject:  c.Token.Subject,
		Audience: c.Token.Audience,
		TTL:      c.Token.TTL,
	}
}

// WithDefaults fills empty token settings from the profile defaults.
func (t Token) WithDefaults() Token {
	tc := token.Config{
		Profile:  token.Profile(t.Profile),
		Issuer:   t.Issuer,
		Subject:  t.Subject,
		Audience: t.Audience,
		TTL:      t.TTL,
	}.WithDefaults()
	return Token{
		Profile:  string(tc.Profile),
		Issuer:   tc.Issuer,
		Subject:  tc.Subject,
		Audience: tc.Audience,
		TTL:      tc.TTL,
	}
}

// Save writes c as YAML to path with owner-only permissions.
func Save(path string, c *Config) error {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("addr", c.Addr)
	v.Set("log_level", c.LogLevel)
	v.Set("log_json", c.LogJSON)
	v.Set("cors_origins", c.CORSOrigins)
	v.Set("keys.mode", c.Keys.Mode)
	v.Set("keys.dir", c.Keys.Dir)
	v.Set("keys.private_file", c.Keys.PrivateFile)
	v.Set("keys.public_file", c.Keys.PublicFile)
	v.Set("keys.kid", c.Keys.KID)
	v.Set("keys.jwks_dump", c.Keys.JWKSDump)
	v.Set("keys.wait_ready", c.Keys.WaitReady)
	v.Set("token.profile", c.Token.Profile)
	v.Set("token.issuer", c.Token.Issuer)
	v.Set("token.subject", c.Token.Subject)
	v.Set("token.audience", c.Token.Audience)
	v.Set("token.ttl", c.Token.TTL.String())
	v.Set("payload.file", c.Payload.File)
	v.Set("payload.dump", c.Payload.Dump)

	if err := v.WriteConfigAs(path); err != nil {
		return err
	}
	// Restrict perms to owner
	_ = os.Chmod(path, 0o600)
	return nil
}
