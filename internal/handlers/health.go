package handlers

import (
	"net/http"

	"github.com/TwigBush/jwks-issuer/internal/httpx"
	"github.com/TwigBush/jwks-issuer/internal/keys"
	"github.com/TwigBush/jwks-issuer/internal/version"
)

// Healthz reports liveness; it does not depend on key readiness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": version.Version,
	})
}

// Readyz answers 200 once the signing key is available.
func Readyz(state *keys.State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, ok := state.Get()
		if !ok {
			httpx.WriteNotReady(w, "keys not ready yet", retryAfter)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "ready",
			"kid":    m.KID,
		})
	}
}

func Version(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, version.Get())
}
