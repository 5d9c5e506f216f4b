// Package keys produces the ES256 signing key and the public key set published
// to verifiers.
package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// Algorithm is the only signing algorithm the issuer supports.
const Algorithm = "ES256"

var (
	ErrNotECPrivateKey = errors.New("private JWK is not an ECDSA P-256 private key")
	ErrEmptyKeySet     = errors.New("public key set contains no keys")
	ErrKIDMismatch     = errors.New("private and public JWK disagree on kid")
	ErrKeyMismatch     = errors.New("public JWK does not belong to the private key")
	ErrNoKeyFiles      = errors.New("key file not found")
	ErrPrivateInSet    = errors.New("public key set contains private key material")
)

// Material is the key pair held by the process once initialization completes.
// It is never mutated after construction.
type Material struct {
	KID        string
	PrivateKey *ecdsa.PrivateKey
	Private    jwk.Key
	Public     jwk.Key
	Set        jwk.Set
}

// Generate creates a fresh P-256 key pair tagged with kid, alg and use.
// An empty kid is replaced by a random UUID.
func Generate(kid string) (*Material, error) {
	if kid == "" {
		kid = uuid.NewString()
	}

	raw, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	priv, err := jwk.Import(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to import private key: %w", err)
	}
	if err := tag(priv, kid); err != nil {
		return nil, err
	}

	pub, err := jwk.PublicKeyOf(priv)
	if err != nil {
		return nil, fmt.Errorf("failed to get public key: %w", err)
	}
	if err := tag(pub, kid); err != nil {
		return nil, err
	}

	return assemble(kid, raw, priv, pub)
}

// fromJWKs rebuilds Material from a parsed private key and public key set.
func fromJWKs(priv jwk.Key, set jwk.Set) (*Material, error) {
	pub, ok := set.Key(0)
	if !ok {
		return nil, ErrEmptyKeySet
	}
	for i := range set.Len() {
		k, _ := set.Key(i)
		private, err := jwk.IsPrivateKey(k)
		if err != nil {
			return nil, fmt.Errorf("inspect public key %d: %w", i, err)
		}
		if private {
			return nil, ErrPrivateInSet
		}
	}

	var rawAny any
	if err := jwk.Export(priv, &rawAny); err != nil {
		return nil, fmt.Errorf("failed to export private key: %w", err)
	}
	raw, ok := rawAny.(*ecdsa.PrivateKey)
	if !ok || raw.Curve != elliptic.P256() {
		return nil, ErrNotECPrivateKey
	}

	privKID, _ := priv.KeyID()
	pubKID, _ := pub.KeyID()
	if privKID != pubKID {
		return nil, fmt.Errorf("%w: %q != %q", ErrKIDMismatch, privKID, pubKID)
	}

	privTP, err := Thumbprint(priv)
	if err != nil {
		return nil, err
	}
	pubTP, err := Thumbprint(pub)
	if err != nil {
		return nil, err
	}
	if privTP != pubTP {
		return nil, ErrKeyMismatch
	}

	return assemble(pubKID, raw, priv, pub)
}

func assemble(kid string, raw *ecdsa.PrivateKey, priv, pub jwk.Key) (*Material, error) {
	set := jwk.NewSet()
	if err := set.AddKey(pub); err != nil {
		return nil, fmt.Errorf("failed to build key set: %w", err)
	}
	return &Material{KID: kid, PrivateKey: raw, Private: priv, Public: pub, Set: set}, nil
}

func tag(key jwk.Key, kid string) error {
	if err := key.Set(jwk.KeyIDKey, kid); err != nil {
		return fmt.Errorf("failed to set key ID: %w", err)
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.ES256()); err != nil {
		return fmt.Errorf("failed to set algorithm: %w", err)
	}
	if err := key.Set(jwk.KeyUsageKey, jwk.ForSignature); err != nil {
		return fmt.Errorf("failed to set key usage: %w", err)
	}
	return nil
}

// Thumbprint computes the RFC 7638 SHA-256 thumbprint, base64url without padding.
func Thumbprint(key jwk.Key) (string, error) {
	tp, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("failed to compute thumbprint: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(tp), nil
}

// JWKSJSON renders the public key set pretty-printed, as written to disk.
func (m *Material) JWKSJSON() ([]byte, error) {
	b, err := json.MarshalIndent(m.Set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key set: %w", err)
	}
	return b, nil
}
