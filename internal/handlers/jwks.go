package handlers

import (
	"net/http"

	"github.com/TwigBush/jwks-issuer/internal/httpx"
	"github.com/TwigBush/jwks-issuer/internal/keys"
)

// retryAfter is the Retry-After hint, in seconds, sent while keys initialize.
const retryAfter = 1

type JWKSHandler struct {
	state *keys.State
}

func NewJWKSHandler(state *keys.State) *JWKSHandler {
	return &JWKSHandler{state: state}
}

// GET /.well-known/jwks.json
func (h *JWKSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m, ok := h.state.Get()
	if !ok {
		httpx.WriteNotReady(w, "JWKS not ready yet", retryAfter)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, m.Set)
}
