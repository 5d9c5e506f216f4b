package server

import (
	"net/http"

	"github.com/TwigBush/jwks-issuer/internal/handlers"
	"github.com/TwigBush/jwks-issuer/internal/keys"
	"github.com/TwigBush/jwks-issuer/internal/mw"
	"github.com/TwigBush/jwks-issuer/internal/token"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const (
	JWKSPath  = "/.well-known/jwks.json"
	TokenPath = "/get-jwt"
)

type Options struct {
	CORSOrigins []string
}

type Deps struct {
	State   *keys.State
	Issuer  *token.Issuer
	Payload handlers.Digester // nil when the token profile has no data claim
}

func BuildRouter(d Deps, opts Options) http.Handler {
	r := chi.NewRouter()

	// baseline
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	// tracing + logger
	r.Use(mw.Trace())
	r.Use(mw.Logger(mw.LogOpts{
		SkipPaths:     []string{"/healthz", "/readyz", "/version"},
		RedactHeaders: []string{"Cookie"},
	}))

	r.Get("/healthz", handlers.Healthz)
	r.Get("/readyz", handlers.Readyz(d.State))
	r.Get("/version", handlers.Version)

	r.Method(http.MethodGet, JWKSPath, handlers.NewJWKSHandler(d.State))
	r.With(mw.NoStore).Method(http.MethodGet, TokenPath, handlers.NewTokenHandler(d.State, d.Issuer, d.Payload))

	return r
}
