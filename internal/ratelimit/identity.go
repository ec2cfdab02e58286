package ratelimit

import (
	"fmt"
	"hash"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"
)

// Pool of hash functions to avoid allocation overhead on the hot path.
var hasherPool = sync.Pool{
	New: func() interface{} {
		return murmur3.New64()
	},
}

// ResolveIdentifier derives a stable client identity from request
// metadata. It is total: some identity always comes back.
//
// Priority order:
//  1. first hop of X-Forwarded-For (the original client)
//  2. X-Real-IP
//  3. murmur3 hash of user-agent + accept-language
//  4. a time+random token
//
// The last resort is deliberately non-deterministic: two requests from a
// client with no identifying metadata at all will not share a quota.
// Accepted gap, not a bug.
func ResolveIdentifier(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	userAgent := r.Header.Get("User-Agent")
	acceptLanguage := r.Header.Get("Accept-Language")
	if userAgent != "" || acceptLanguage != "" {
		hasher := hasherPool.Get().(hash.Hash64)
		hasher.Reset()
		_, _ = hasher.Write([]byte(userAgent))
		_, _ = hasher.Write([]byte{0})
		_, _ = hasher.Write([]byte(acceptLanguage))
		sum := hasher.Sum64()
		hasherPool.Put(hasher)
		return fmt.Sprintf("fallback:%016x", sum)
	}

	return fmt.Sprintf("fallback:%d%s", time.Now().UnixNano(), uuid.NewString()[:8])
}
