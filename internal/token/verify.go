package token

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// Verification errors.
var (
	ErrUnknownKID = errors.New("token kid is not in the key set")
	ErrKeyType    = errors.New("key set entry is not an ECDSA public key")
)

// Verify checks tok the way a relying party would: the header kid must name a
// key in set, the signature must be ES256, and iss, aud and exp must match cfg.
func Verify(tok string, set jwk.Set, cfg Config) (jwt.MapClaims, error) {
	cfg = cfg.WithDefaults()

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if cfg.Subject != "" {
		opts = append(opts, jwt.WithSubject(cfg.Subject))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		k, ok := set.LookupKeyID(kid)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKID, kid)
		}
		var raw any
		if err := jwk.Export(k, &raw); err != nil {
			return nil, err
		}
		pub, ok := raw.(*ecdsa.PublicKey)
		if !ok {
			return nil, ErrKeyType
		}
		return pub, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	if cfg.Profile == ProfilePayload {
		if d, _ := claims["data"].(string); d == "" {
			return nil, ErrMissingData
		}
	}
	return claims, nil
}
