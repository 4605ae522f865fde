package http

import (
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/redmonkez12/accounts-api/internal/account"
	"github.com/redmonkez12/accounts-api/internal/auth"
	"github.com/redmonkez12/accounts-api/internal/config"
	"github.com/redmonkez12/accounts-api/internal/httputil"
	"github.com/redmonkez12/accounts-api/internal/logging"
	"github.com/redmonkez12/accounts-api/internal/media"
)

// NewRouter creates and configures the HTTP router.
// uploadsDir is served under /uploads/images when the local image backend is in use; pass "" otherwise.
func NewRouter(cfg *config.Config, accountHandler *account.Handler, authMiddleware *auth.Middleware, uploadsDir string, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Origin", "X-Requested-With", "Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: !allowsAnyOrigin(cfg.Server.TrustedOrigins),
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders(cfg.Server.IsDevelopment())) // Security headers on all responses
	r.Use(middleware.Recoverer)                        // Recover from panics
	r.Use(middleware.RequestID)                        // Add request ID
	r.Use(middleware.RealIP)                           // Set RemoteAddr to real IP
	r.Use(logging.RequestLogger(logger))               // Structured logging with request context
	r.Use(middleware.Compress(5))                      // Compress responses

	// Registered before any route so sub-routers inherit them
	r.NotFound(httputil.NotFound)
	r.MethodNotAllowed(httputil.NotFound)

	r.Get("/health", handleHealth)

	// Swagger UI - only in development
	if cfg.Server.IsDevelopment() {
		logger.Info("swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	if uploadsDir != "" {
		r.Get("/"+media.PublicPrefix+"/*", serveUploads(uploadsDir))
	}

	r.Route("/api/users", func(r chi.Router) {
		r.Get("/", accountHandler.ListUsers)
		r.Post("/signup", accountHandler.Signup)
		r.Post("/login", accountHandler.Login)

		// Everything below requires a bearer token
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Patch("/{id}", accountHandler.UpdateUser)
		})
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// serveUploads serves stored images without directory listings.
func serveUploads(dir string) http.HandlerFunc {
	prefix := "/" + media.PublicPrefix + "/"
	files := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))

	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, prefix)
		if name == "" || strings.HasSuffix(name, "/") || path.Base(name) != name {
			httputil.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	}
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
