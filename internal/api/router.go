package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/a1gen/internal/api/middleware"
	"github.com/kiranshivaraju/a1gen/internal/api/response"
	"github.com/rs/zerolog"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Logger    zerolog.Logger
	Auth      *mw.ProxyAuth
	RateLimit *mw.RateLimit

	// TrustProxyHeaders takes the client address from X-Real-IP / X-Forwarded-For.
	// Only enable behind a reverse proxy that overwrites those headers.
	TrustProxyHeaders bool

	HealthHandler   http.HandlerFunc
	ProfilesHandler http.HandlerFunc
	GenerateHandler http.HandlerFunc
	HistoryHandler  http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	if deps.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(mw.RequestID)
	r.Use(mw.Logger(deps.Logger))
	r.Use(mw.Recovery(deps.Logger))

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		if deps.Auth != nil {
			r.Use(deps.Auth.Authenticate)
		}
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Get("/api/v1/profiles", orNotImplemented(deps.ProfilesHandler))
		r.Post("/api/v1/generate", orNotImplemented(deps.GenerateHandler))
		r.Get("/api/v1/history/{userID}", orNotImplemented(deps.HistoryHandler))

		// Legacy path kept for existing clients.
		r.Post("/api/generate", orNotImplemented(deps.GenerateHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
