package handlers

import (
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/TwigBush/jwks-issuer/internal/keys"
	"github.com/TwigBush/jwks-issuer/internal/payload"
	"github.com/TwigBush/jwks-issuer/internal/token"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingDigester struct{}

func (failingDigester) Digest() (string, error) { return "", errors.New("disk full") }

func readyState(t *testing.T) *keys.State {
	t.Helper()
	m, err := keys.Generate("")
	require.NoError(t, err)
	s := &keys.State{}
	s.Set(m)
	return s
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func decodeHeader(t *testing.T, tok string) map[string]any {
	t.Helper()
	b, err := base64.RawURLEncoding.DecodeString(strings.Split(tok, ".")[0])
	require.NoError(t, err)
	var hdr map[string]any
	require.NoError(t, json.Unmarshal(b, &hdr))
	return hdr
}

func TestJWKS_NotReady(t *testing.T) {
	rr := get(t, NewJWKSHandler(&keys.State{}), "/.well-known/jwks.json")

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.JSONEq(t, `{"error":"JWKS not ready yet"}`, rr.Body.String())
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
}

func TestJWKS_Ready(t *testing.T) {
	state := readyState(t)
	m, _ := state.Get()

	rr := get(t, NewJWKSHandler(state), "/.well-known/jwks.json")
	require.Equal(t, http.StatusOK, rr.Code)

	var doc struct {
		Keys []map[string]any `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
	require.Len(t, doc.Keys, 1)
	assert.Equal(t, m.KID, doc.Keys[0]["kid"])
	assert.Equal(t, "ES256", doc.Keys[0]["alg"])
	assert.Equal(t, "sig", doc.Keys[0]["use"])
	assert.NotContains(t, doc.Keys[0], "d")
}

func TestToken_NotReady(t *testing.T) {
	iss, err := token.NewIssuer(token.Config{Profile: token.ProfileSubject})
	require.NoError(t, err)

	rr := get(t, NewTokenHandler(&keys.State{}, iss, nil), "/get-jwt")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.JSONEq(t, `{"error":"signing key not ready yet"}`, rr.Body.String())
}

func TestToken_PayloadProfileMatchesJWKS(t *testing.T) {
	state := readyState(t)
	iss, err := token.NewIssuer(token.Config{Profile: token.ProfilePayload})
	require.NoError(t, err)
	hasher, err := payload.Load("", "")
	require.NoError(t, err)

	rr := get(t, NewTokenHandler(state, iss, hasher), "/get-jwt")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.NotEmpty(t, body.Token)

	// verify against the published JWKS, looked up by the header kid
	jwks := get(t, NewJWKSHandler(state), "/.well-known/jwks.json")
	set, err := jwk.Parse(jwks.Body.Bytes())
	require.NoError(t, err)

	hdr := decodeHeader(t, body.Token)
	assert.Equal(t, "ES256", hdr["alg"])
	assert.Equal(t, "JWT", hdr["typ"])

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(body.Token, claims, func(tk *jwt.Token) (any, error) {
		kid, _ := tk.Header["kid"].(string)
		k, ok := set.LookupKeyID(kid)
		if !ok {
			return nil, errors.New("kid not in JWKS")
		}
		var raw any
		if err := jwk.Export(k, &raw); err != nil {
			return nil, err
		}
		pub, ok := raw.(*ecdsa.PublicKey)
		if !ok {
			return nil, errors.New("not an ECDSA public key")
		}
		return pub, nil
	}, jwt.WithValidMethods([]string{"ES256"}))
	require.NoError(t, err)

	assert.Equal(t, payload.Sum(hasher.Canonical()), claims["data"])
	assert.Equal(t, "POST", claims["sub"])
	assert.NotEmpty(t, claims["jti"])
	assert.Equal(t, float64(180), claims["exp"].(float64)-claims["iat"].(float64))
}

func TestToken_SubjectProfileWithoutPayload(t *testing.T) {
	state := readyState(t)
	m, _ := state.Get()
	iss, err := token.NewIssuer(token.Config{Profile: token.ProfileSubject})
	require.NoError(t, err)

	rr := get(t, NewTokenHandler(state, iss, nil), "/get-jwt")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	hdr := decodeHeader(t, body["token"])
	assert.Equal(t, m.KID, hdr["kid"])
	assert.NotContains(t, hdr, "typ")
}

func TestToken_PayloadErrors(t *testing.T) {
	state := readyState(t)
	iss, err := token.NewIssuer(token.Config{Profile: token.ProfilePayload})
	require.NoError(t, err)

	rr := get(t, NewTokenHandler(state, iss, failingDigester{}), "/get-jwt")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"failed to hash payload"}`, rr.Body.String())

	rr = get(t, NewTokenHandler(state, iss, nil), "/get-jwt")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestReadyz(t *testing.T) {
	rr := get(t, Readyz(&keys.State{}), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.JSONEq(t, `{"error":"keys not ready yet"}`, rr.Body.String())

	state := readyState(t)
	m, _ := state.Get()
	rr = get(t, Readyz(state), "/readyz")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ready","kid":"`+m.KID+`"}`, rr.Body.String())
}

func TestHealthzAndVersion(t *testing.T) {
	rr := get(t, http.HandlerFunc(Healthz), "/healthz")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"healthy"`)

	rr = get(t, http.HandlerFunc(Version), "/version")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"goVersion"`)
}
