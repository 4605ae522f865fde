package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecurityHeaders(t *testing.T) {
	noop := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	tests := []struct {
		name  string
		docs  bool
		path  string
		csp   string
		cache string
		corp  string
	}{
		{name: "api", docs: true, path: "/api/users/login", csp: apiCSP, cache: "no-store"},
		{name: "swagger with docs", docs: true, path: "/swagger/index.html", csp: swaggerCSP},
		{name: "swagger without docs", docs: false, path: "/swagger/index.html", csp: apiCSP},
		{name: "uploads", docs: false, path: "/uploads/images/a.png", csp: apiCSP, corp: "cross-origin"},
		{name: "health", docs: false, path: "/health", csp: apiCSP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			SecurityHeaders(tt.docs)(noop).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
			assert.Equal(t, tt.csp, rec.Header().Get("Content-Security-Policy"))
			assert.Equal(t, tt.cache, rec.Header().Get("Cache-Control"))
			assert.Equal(t, tt.corp, rec.Header().Get("Cross-Origin-Resource-Policy"))
		})
	}
}

func TestAllowsAnyOrigin(t *testing.T) {
	assert.True(t, allowsAnyOrigin([]string{"http://a", "*"}))
	assert.False(t, allowsAnyOrigin([]string{"http://a"}))
	assert.False(t, allowsAnyOrigin(nil))
}
