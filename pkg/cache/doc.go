// Package cache stores blog API responses in Redis and revalidates them
// with conditional requests.
//
// Features:
//
// - TTL from Cache-Control max-age, then Expires, then DefaultTTL
// - Cache-Control no-store/no-cache responses are never stored
// - ETag support for conditional requests (If-None-Match)
// - Last-Modified support (If-Modified-Since)
// - Deterministic keys, per user for authenticated requests
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.Key{
//		Path:  "/api/articles",
//		Query: url.Values{"page": []string{"2"}, "tag": []string{"go"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the backend
//	}
//
// # Conditional Requests
//
//	if cache.ShouldRevalidate(entry) {
//		cache.AddConditionalHeaders(req, entry)
//		// a 304 reply means entry.Data is still current
//	}
//
// # Metrics
//
//   - blog_cache_hits_total{layer="redis"} - Cache hits
//   - blog_cache_misses_total - Cache misses
//   - blog_cache_size_bytes{layer="redis"} - Bytes written to the cache
//   - blog_cache_304_responses_total - Revalidations answered with 304
//   - blog_cache_conditional_requests_total - Conditional requests sent
//   - blog_cache_errors_total{operation} - Cache operation errors
package cache
