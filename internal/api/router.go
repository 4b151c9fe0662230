/**
 * @description
 * This file sets up the HTTP router for the user-service using the go-chi/chi router.
 * It applies logging, recovery, timeout and CORS middleware, and mounts the credit route
 * behind the optional authentication and rate limiting middleware.
 */
package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures the optional middleware on the credit route.
type RouterOptions struct {
	JWTSecret          string
	JWTAudience        string
	RateLimiter        RateLimiter
	RateLimitPerMinute int
	Logger             *slog.Logger
}

// NewRouter creates a new Chi router and registers the user-service routes.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Setup middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:         300, // Maximum value not ignored by any major browsers
	}))

	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)
	r.Get("/version", h.handleVersion)

	r.Group(func(r chi.Router) {
		r.Use(ServiceAuthMiddleware(opts.JWTSecret, opts.JWTAudience))
		r.Use(RateLimitMiddleware(opts.RateLimiter, opts.RateLimitPerMinute, logger))

		r.Get("/users/{userId}/credit", h.handleGetCredit)
	})

	return r
}
