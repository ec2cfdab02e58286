package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"ratelimit-service/internal/events"
	"ratelimit-service/internal/ratelimit"
	"ratelimit-service/internal/util"
)

// RateLimitMiddleware guards a route group with the policy for one
// category. The decision and its headers come entirely from the
// limiter; this layer only translates them to HTTP.
func RateLimitMiddleware(limiter *ratelimit.Limiter, category ratelimit.Category, publisher *events.Publisher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := ratelimit.ResolveIdentifier(r)
			decision := limiter.Check(r.Context(), identifier, category)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(decision.ResetSeconds))

			if !decision.Allowed {
				publisher.Denied(r.Context(), identifier, category, decision)
				util.Debug("request denied by rate limit",
					util.String("category", string(category)),
					util.String("identifier", identifier),
					util.Int("retry_after_seconds", decision.RetryAfterSeconds))

				w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfterSeconds))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprintf(w, `{"error":"rate limit exceeded","retry_after_seconds":%d}`, decision.RetryAfterSeconds)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// LoggerMiddleware creates a middleware that logs HTTP requests
func LoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Info("HTTP request",
					util.String("method", r.Method),
					util.String("path", r.URL.Path),
					util.String("remote_addr", r.RemoteAddr),
					util.Int("status", ww.Status()),
					util.Duration("duration", time.Since(start)),
					util.String("user_agent", r.UserAgent()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
