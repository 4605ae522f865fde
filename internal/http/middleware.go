package http

import (
	"net/http"
	"strings"

	"github.com/redmonkez12/accounts-api/internal/media"
)

const (
	apiCSP     = "default-src 'none'"
	swaggerCSP = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:"
)

// SecurityHeaders sets the response security headers for each area of the API.
// The looser swagger policy is only applied when the docs are mounted.
func SecurityHeaders(docsEnabled bool) func(http.Handler) http.Handler {
	uploads := "/" + media.PublicPrefix + "/"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

			path := r.URL.Path
			switch {
			case docsEnabled && strings.HasPrefix(path, "/swagger/"):
				h.Set("Content-Security-Policy", swaggerCSP)
			case strings.HasPrefix(path, uploads):
				// profile images are embedded by frontends on other origins
				h.Set("Content-Security-Policy", apiCSP)
				h.Set("Cross-Origin-Resource-Policy", "cross-origin")
			case strings.HasPrefix(path, "/api/"):
				// signup and login bodies carry bearer tokens
				h.Set("Content-Security-Policy", apiCSP)
				h.Set("Cache-Control", "no-store")
			default:
				h.Set("Content-Security-Policy", apiCSP)
			}

			next.ServeHTTP(w, r)
		})
	}
}
