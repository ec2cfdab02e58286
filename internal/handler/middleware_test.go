package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ratelimit-service/internal/ratelimit"
)

func testLimiter(t *testing.T, limit int, window time.Duration) *ratelimit.Limiter {
	t.Helper()
	catalog, err := ratelimit.NewCatalog(map[ratelimit.Category]ratelimit.Policy{
		ratelimit.CategoryAPI: {Limit: limit, Window: window},
	})
	require.NoError(t, err)
	return ratelimit.NewLimiter(catalog, ratelimit.NewLocalStore(), zap.NewNop())
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(h http.Handler, identifier string) *httptest.ResponseRecorder {
	r := httptest.NewRequest("GET", "/api/v1/resources", nil)
	r.Header.Set("X-Forwarded-For", identifier)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestRateLimitMiddleware_SetsHeadersOnAdmission(t *testing.T) {
	limiter := testLimiter(t, 5, time.Minute)
	h := RateLimitMiddleware(limiter, ratelimit.CategoryAPI, nil)(okHandler())

	w := doRequest(h, "203.0.113.7")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", w.Header().Get("X-RateLimit-Reset"))
	assert.Empty(t, w.Header().Get("Retry-After"))
}

func TestRateLimitMiddleware_DeniesWith429(t *testing.T) {
	limiter := testLimiter(t, 2, time.Minute)
	h := RateLimitMiddleware(limiter, ratelimit.CategoryAPI, nil)(okHandler())

	doRequest(h, "203.0.113.7")
	doRequest(h, "203.0.113.7")
	w := doRequest(h, "203.0.113.7")

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body struct {
		Error             string `json:"error"`
		RetryAfterSeconds int    `json:"retry_after_seconds"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "rate limit exceeded", body.Error)
	assert.Greater(t, body.RetryAfterSeconds, 0)
	assert.LessOrEqual(t, body.RetryAfterSeconds, 60)
}

func TestRateLimitMiddleware_RemainingDecrementsPerClient(t *testing.T) {
	limiter := testLimiter(t, 5, time.Minute)
	h := RateLimitMiddleware(limiter, ratelimit.CategoryAPI, nil)(okHandler())

	for _, want := range []string{"4", "3", "2", "1", "0"} {
		w := doRequest(h, "203.0.113.7")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, want, w.Header().Get("X-RateLimit-Remaining"))
	}

	// A different client keeps its own quota.
	w := doRequest(h, "198.51.100.4")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
}
