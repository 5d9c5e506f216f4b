package handlers

import (
	"log/slog"
	"net/http"

	"github.com/TwigBush/jwks-issuer/internal/httpx"
	"github.com/TwigBush/jwks-issuer/internal/keys"
	"github.com/TwigBush/jwks-issuer/internal/token"
	"github.com/TwigBush/jwks-issuer/internal/trace"
)

// Digester produces the value of the "data" claim.
type Digester interface {
	Digest() (string, error)
}

type TokenHandler struct {
	state   *keys.State
	issuer  *token.Issuer
	payload Digester
}

// NewTokenHandler wires the issuer. payload may be nil when the issuer's
// profile carries no data claim.
func NewTokenHandler(state *keys.State, issuer *token.Issuer, payload Digester) *TokenHandler {
	return &TokenHandler{state: state, issuer: issuer, payload: payload}
}

type tokenResponse struct {
	Token string `json:"token"`
}

// GET /get-jwt
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m, ok := h.state.Get()
	if !ok {
		httpx.WriteNotReady(w, "signing key not ready yet", retryAfter)
		return
	}

	var data string
	if h.issuer.NeedsData() {
		if h.payload == nil {
			slog.Error("token profile needs a payload but none is configured", "trace", trace.From(r.Context()))
			httpx.WriteError(w, http.StatusInternalServerError, "failed to hash payload")
			return
		}
		d, err := h.payload.Digest()
		if err != nil {
			slog.Error("hash payload", "trace", trace.From(r.Context()), "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "failed to hash payload")
			return
		}
		data = d
	}

	tok, err := h.issuer.Issue(m.KID, m.PrivateKey, data)
	if err != nil {
		slog.Error("issue token", "trace", trace.From(r.Context()), "kid", m.KID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	slog.Debug("token issued", "trace", trace.From(r.Context()), "kid", m.KID)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{Token: tok})
}
