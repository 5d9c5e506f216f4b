package mw

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/TwigBush/jwks-issuer/internal/httpx"
	"github.com/TwigBush/jwks-issuer/internal/trace"
)

type LogOpts struct {
	SkipPaths     []string // logged only when they fail
	RedactHeaders []string // in addition to Authorization and X-Api-Key*
}

func (o LogOpts) redacted(name string) bool {
	if strings.EqualFold(name, "Authorization") || strings.HasPrefix(strings.ToLower(name), "x-api-key") {
		return true
	}
	return slices.ContainsFunc(o.RedactHeaders, func(h string) bool { return strings.EqualFold(h, name) })
}

// Logger writes one summary line per request, plus a header dump for
// responses >= 400.
func Logger(opts LogOpts) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := httpx.NewRecorder(w)
			next.ServeHTTP(rec, r)
			dur := time.Since(start)

			if rec.Status < 400 && slices.Contains(opts.SkipPaths, r.URL.Path) {
				return
			}

			slog.Info("req",
				"trace", trace.From(r.Context()),
				"m", r.Method,
				"path", r.URL.Path,
				"status", rec.Status,
				"ms", dur.Milliseconds(),
				"bytes", rec.Bytes,
			)

			if rec.Status >= 400 {
				h := map[string]string{}
				for k, vv := range r.Header {
					if len(vv) == 0 {
						continue
					}
					vl := vv[0]
					if opts.redacted(k) {
						vl = "***redacted***"
					}
					h[k] = vl
				}
				slog.Error("req_detail",
					"trace", trace.From(r.Context()),
					"m", r.Method, "path", r.URL.Path,
					"status", rec.Status, "ms", dur.Milliseconds(),
					"headers", h,
				)
			}
		})
	}
}
