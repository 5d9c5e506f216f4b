// Package token mints the short-lived ES256 tokens served on /get-jwt.
package token

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Profile selects the claim shape of issued tokens.
type Profile string

const (
	// ProfileSubject issues sub/iss/aud tokens without a typ header.
	ProfileSubject Profile = "subject"
	// ProfilePayload issues tokens carrying a payload digest and a jti.
	ProfilePayload Profile = "payload"
)

const audience = "https://sandbox.api.gov.sg/mom/oed/jwt/lssp/ez/laboursurvey/prc/v2/Submission"

var (
	ErrMissingData    = errors.New("payload profile requires a data digest")
	ErrNoSigningKey   = errors.New("no signing key")
	ErrUnknownProfile = errors.New("unknown token profile")
)

type Config struct {
	Profile  Profile
	Issuer   string
	Subject  string
	Audience string
	TTL      time.Duration
}

// Defaults returns the built-in claim values for p.
func Defaults(p Profile) Config {
	switch p {
	case ProfileSubject:
		return Config{
			Profile:  ProfileSubject,
			Issuer:   "7368ddc6-1fd0-4456-8b2b-0c3fc39ba40f",
			Subject:  "7368ddc6-1fd0-4456-8b2b-0c3fc39ba40f",
			Audience: audience,
			TTL:      5 * time.Minute,
		}
	case ProfilePayload:
		return Config{
			Profile:  ProfilePayload,
			Issuer:   "c66446db-9221-4b84-9632-2abd5781a250",
			Subject:  "POST",
			Audience: audience,
			TTL:      180 * time.Second,
		}
	}
	return Config{Profile: p}
}

// WithDefaults fills zero fields from the profile defaults.
func (c Config) WithDefaults() Config {
	if c.Profile == "" {
		c.Profile = ProfilePayload
	}
	d := Defaults(c.Profile)
	if c.Issuer == "" {
		c.Issuer = d.Issuer
	}
	if c.Subject == "" {
		c.Subject = d.Subject
	}
	if c.Audience == "" {
		c.Audience = d.Audience
	}
	if c.TTL == 0 {
		c.TTL = d.TTL
	}
	return c
}

func (c Config) Validate() error {
	switch c.Profile {
	case ProfileSubject, ProfilePayload:
	default:
		return fmt.Errorf("%w %q", ErrUnknownProfile, c.Profile)
	}
	if c.Issuer == "" {
		return errors.New("token issuer is required")
	}
	if c.Audience == "" {
		return errors.New("token audience is required")
	}
	if c.TTL < time.Second || c.TTL%time.Second != 0 {
		return fmt.Errorf("token ttl must be a positive whole number of seconds, got %s", c.TTL)
	}
	return nil
}

type Issuer struct {
	cfg   Config
	now   func() time.Time
	newID func() string
}

func NewIssuer(cfg Config) (*Issuer, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Issuer{cfg: cfg, now: time.Now, newID: uuid.NewString}, nil
}

func (i *Issuer) Config() Config { return i.cfg }

// NeedsData reports whether Issue expects a payload digest.
func (i *Issuer) NeedsData() bool { return i.cfg.Profile == ProfilePayload }

// Issue signs a fresh claim set with key and returns the compact token.
// exp - iat is always exactly the configured TTL.
func (i *Issuer) Issue(kid string, key *ecdsa.PrivateKey, data string) (string, error) {
	if key == nil {
		return "", ErrNoSigningKey
	}
	if i.NeedsData() && data == "" {
		return "", ErrMissingData
	}

	iat := i.now().Unix()
	exp := iat + int64(i.cfg.TTL/time.Second)

	claims := jwt.MapClaims{
		"iat": iat,
		"exp": exp,
		"iss": i.cfg.Issuer,
		"aud": i.cfg.Audience,
	}
	if i.cfg.Subject != "" {
		claims["sub"] = i.cfg.Subject
	}
	if i.cfg.Profile == ProfilePayload {
		claims["data"] = data
		claims["jti"] = i.newID()
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	tok.Header["kid"] = kid
	if i.cfg.Profile != ProfilePayload {
		delete(tok.Header, "typ")
	}

	s, err := tok.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}
