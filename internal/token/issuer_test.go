package token

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	k, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return k
}

func decodeSegment(t *testing.T, tok string, i int) map[string]any {
	t.Helper()
	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	b, err := base64.RawURLEncoding.DecodeString(parts[i])
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func fixedClock(i *Issuer, ts time.Time) {
	i.now = func() time.Time { return ts }
}

func TestDefaults_PerProfile(t *testing.T) {
	s := Defaults(ProfileSubject)
	assert.Equal(t, 5*time.Minute, s.TTL)
	assert.Equal(t, s.Issuer, s.Subject)

	p := Defaults(ProfilePayload)
	assert.Equal(t, 180*time.Second, p.TTL)
	assert.Equal(t, "POST", p.Subject)
	assert.Equal(t, "c66446db-9221-4b84-9632-2abd5781a250", p.Issuer)
	assert.Equal(t, s.Audience, p.Audience)
}

func TestWithDefaults_KeepsOverrides(t *testing.T) {
	c := Config{Profile: ProfileSubject, Issuer: "me", TTL: time.Minute}.WithDefaults()
	assert.Equal(t, "me", c.Issuer)
	assert.Equal(t, time.Minute, c.TTL)
	assert.Equal(t, Defaults(ProfileSubject).Subject, c.Subject)

	assert.Equal(t, ProfilePayload, Config{}.WithDefaults().Profile)
}

func TestNewIssuer_Validation(t *testing.T) {
	_, err := NewIssuer(Config{Profile: "other"})
	assert.ErrorIs(t, err, ErrUnknownProfile)

	_, err = NewIssuer(Config{Profile: ProfilePayload, TTL: 1500 * time.Millisecond})
	assert.Error(t, err)

	_, err = NewIssuer(Config{Profile: ProfilePayload, TTL: -time.Second})
	assert.Error(t, err)
}

func TestIssue_PayloadProfile(t *testing.T) {
	key := newKey(t)
	iss, err := NewIssuer(Config{Profile: ProfilePayload})
	require.NoError(t, err)
	iat := time.Unix(1_750_000_000, 0)
	fixedClock(iss, iat)
	iss.newID = func() string { return "jti-1" }

	tok, err := iss.Issue("kid-1", key, "abc123")
	require.NoError(t, err)

	hdr := decodeSegment(t, tok, 0)
	assert.Equal(t, map[string]any{"alg": "ES256", "kid": "kid-1", "typ": "JWT"}, hdr)

	claims := decodeSegment(t, tok, 1)
	assert.Equal(t, "abc123", claims["data"])
	assert.Equal(t, "jti-1", claims["jti"])
	assert.Equal(t, "POST", claims["sub"])
	assert.Equal(t, "c66446db-9221-4b84-9632-2abd5781a250", claims["iss"])
	assert.Equal(t, audience, claims["aud"])
	assert.EqualValues(t, 1_750_000_000, claims["iat"])
	assert.EqualValues(t, 1_750_000_180, claims["exp"])
}

func TestIssue_SubjectProfile(t *testing.T) {
	key := newKey(t)
	iss, err := NewIssuer(Config{Profile: ProfileSubject})
	require.NoError(t, err)
	fixedClock(iss, time.Unix(1_000, 0))

	tok, err := iss.Issue("988b13d8-64f2-4799-bc20-6448e6efa090", key, "")
	require.NoError(t, err)

	hdr := decodeSegment(t, tok, 0)
	assert.Equal(t, map[string]any{"alg": "ES256", "kid": "988b13d8-64f2-4799-bc20-6448e6efa090"}, hdr)

	claims := decodeSegment(t, tok, 1)
	assert.NotContains(t, claims, "data")
	assert.NotContains(t, claims, "jti")
	assert.Equal(t, claims["iss"], claims["sub"])
	exp := claims["exp"].(float64)
	iat := claims["iat"].(float64)
	assert.Equal(t, float64(300), exp-iat)
}

func TestIssue_LifetimeMatchesTTL(t *testing.T) {
	key := newKey(t)
	for _, ttl := range []time.Duration{time.Second, 180 * time.Second, 5 * time.Minute, time.Hour} {
		iss, err := NewIssuer(Config{Profile: ProfileSubject, TTL: ttl})
		require.NoError(t, err)
		// sub-second clock values must not skew the lifetime
		fixedClock(iss, time.Unix(1_700_000_000, 999_999_999))

		tok, err := iss.Issue("k", key, "")
		require.NoError(t, err)
		claims := decodeSegment(t, tok, 1)
		assert.Equal(t, ttl.Seconds(), claims["exp"].(float64)-claims["iat"].(float64), "ttl %s", ttl)
	}
}

func TestIssue_VerifiesWithPublicKey(t *testing.T) {
	key := newKey(t)
	iss, err := NewIssuer(Config{Profile: ProfilePayload})
	require.NoError(t, err)

	tok, err := iss.Issue("kid-1", key, "digest")
	require.NoError(t, err)

	cfg := iss.Config()
	parsed, err := jwt.Parse(tok, func(tk *jwt.Token) (any, error) {
		assert.Equal(t, "kid-1", tk.Header["kid"])
		return &key.PublicKey, nil
	},
		jwt.WithValidMethods([]string{"ES256"}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithSubject("POST"),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)
	require.NoError(t, err)
	assert.True(t, parsed.Valid)

	other := newKey(t)
	_, err = jwt.Parse(tok, func(*jwt.Token) (any, error) { return &other.PublicKey, nil })
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestIssue_UniqueJTI(t *testing.T) {
	key := newKey(t)
	iss, err := NewIssuer(Config{Profile: ProfilePayload})
	require.NoError(t, err)

	a, err := iss.Issue("k", key, "d")
	require.NoError(t, err)
	b, err := iss.Issue("k", key, "d")
	require.NoError(t, err)
	assert.NotEqual(t, decodeSegment(t, a, 1)["jti"], decodeSegment(t, b, 1)["jti"])
}

func TestIssue_Errors(t *testing.T) {
	iss, err := NewIssuer(Config{Profile: ProfilePayload})
	require.NoError(t, err)

	_, err = iss.Issue("k", nil, "d")
	assert.ErrorIs(t, err, ErrNoSigningKey)

	_, err = iss.Issue("k", newKey(t), "")
	assert.ErrorIs(t, err, ErrMissingData)
}
