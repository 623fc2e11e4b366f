package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/providers"
	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/observability"
)

// routeCacheTTL lists the GET routes whose responses are cached and for how
// long. Provider searches are deterministic for a given query string, so a
// short TTL only has to absorb repeated traffic, not staleness.
var routeCacheTTL = map[string]int{
	"/providers":    300,
	"/ask/examples": 3600,
}

// CacheMiddleware serves successful GET responses from the cache provider,
// keyed by path and query string.
type CacheMiddleware struct {
	cache   providers.CacheProvider
	metrics *observability.Metrics
}

func NewCacheMiddleware(cache providers.CacheProvider, metrics *observability.Metrics) *CacheMiddleware {
	return &CacheMiddleware{cache: cache, metrics: metrics}
}

// Middleware returns the cache middleware handler. With no cache provider
// configured it is a pass-through.
func (m *CacheMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.cache == nil || r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		ttl, ok := routeCacheTTL[r.URL.Path]
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		key := cacheKey(r)
		if cached, err := m.cache.Get(r.Context(), key); err == nil && len(cached) > 0 {
			observability.RecordCacheHit(r.Context(), m.metrics, r.URL.Path)
			w.Header().Set("X-Cache", "HIT")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(cached)
			return
		}
		observability.RecordCacheMiss(r.Context(), m.metrics, r.URL.Path)
		w.Header().Set("X-Cache", "MISS")

		recorder := &cachingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(recorder, r)

		// Only successful JSON responses are worth replaying.
		if recorder.statusCode == http.StatusOK && recorder.body.Len() > 0 {
			if err := m.cache.Set(r.Context(), key, recorder.body.Bytes(), ttl); err != nil {
				observability.LoggerFromContext(r.Context()).Debug().Err(err).Msg("response cache write failed")
			}
		}
	})
}

func cacheKey(r *http.Request) string {
	sum := sha256.Sum256([]byte(r.URL.Path + "?" + r.URL.RawQuery))
	return "http:" + hex.EncodeToString(sum[:])
}

// cachingResponseWriter tees the response body so it can be stored after the
// handler finishes.
type cachingResponseWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rw *cachingResponseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *cachingResponseWriter) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}
