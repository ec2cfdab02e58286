package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"ratelimit-service/internal/events"
	"ratelimit-service/internal/ratelimit"
)

// NewRouter wires the admission middleware in front of demo routes, one
// route group per traffic category. The handlers themselves are
// placeholders; the categories, headers and 429 behavior are the
// contract being demonstrated.
func NewRouter(limiter *ratelimit.Limiter, localStore *ratelimit.LocalStore, publisher *events.Publisher, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	// Middleware stack
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggerMiddleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	limited := func(category ratelimit.Category) func(http.Handler) http.Handler {
		return RateLimitMiddleware(limiter, category, publisher)
	}

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","service":"ratelimit-service","mode":%q,"local_counters":%d}`,
			limiter.Mode(), localStore.Len())
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limited(ratelimit.CategoryLogin))
			r.Post("/auth/login", acceptedHandler("login"))
		})

		r.Group(func(r chi.Router) {
			r.Use(limited(ratelimit.CategoryCredentialReset))
			r.Post("/auth/reset", acceptedHandler("credential_reset"))
		})

		r.Group(func(r chi.Router) {
			r.Use(limited(ratelimit.CategoryAdmin))
			r.Get("/admin/status", acceptedHandler("admin"))
		})

		r.Group(func(r chi.Router) {
			r.Use(limited(ratelimit.CategoryAPI))
			r.Get("/resources", acceptedHandler("api"))
			r.Post("/resources", acceptedHandler("api"))
		})
	})

	router.Group(func(r chi.Router) {
		r.Use(limited(ratelimit.CategoryPublic))
		r.Get("/public/status", acceptedHandler("public"))
	})

	// 404 handler
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	// Method not allowed handler
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		w.Write([]byte(`{"error":"method not allowed"}`))
	})

	return router
}

func acceptedHandler(category string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","category":%q}`, category)
	}
}
