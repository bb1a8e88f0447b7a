// Package metrics exposes the Prometheus registry used by the blog client.
// Metrics are defined with promauto in the packages that own them (client,
// cache, ratelimit, listfetch, like, settings) to avoid import cycles; this
// package serves them and documents the catalogue.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all packages register with via promauto.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads the metrics registered with Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metric describes one entry of the catalogue.
type Metric struct {
	Name    string
	Type    string
	Package string
	Labels  []string
}

// Catalogue lists every metric the module registers.
var Catalogue = []Metric{
	{"blog_requests_total", "counter", "client", []string{"endpoint", "status"}},
	{"blog_request_duration_seconds", "histogram", "client", []string{"endpoint"}},
	{"blog_errors_total", "counter", "client", []string{"class"}},
	{"blog_retries_total", "counter", "client", []string{"error_class"}},
	{"blog_retry_backoff_seconds", "histogram", "client", []string{"error_class"}},
	{"blog_retry_exhausted_total", "counter", "client", []string{"error_class"}},

	{"blog_cache_hits_total", "counter", "cache", []string{"layer"}},
	{"blog_cache_misses_total", "counter", "cache", nil},
	{"blog_cache_size_bytes", "gauge", "cache", []string{"layer"}},
	{"blog_cache_304_responses_total", "counter", "cache", nil},
	{"blog_cache_conditional_requests_total", "counter", "cache", nil},
	{"blog_cache_errors_total", "counter", "cache", []string{"operation"}},

	{"blog_rate_limit_remaining", "gauge", "ratelimit", nil},
	{"blog_rate_limit_blocks_total", "counter", "ratelimit", nil},
	{"blog_rate_limit_throttles_total", "counter", "ratelimit", nil},

	{"blog_list_fetches_total", "counter", "listfetch", []string{"list", "outcome"}},
	{"blog_list_fetch_duration_seconds", "histogram", "listfetch", []string{"list"}},
	{"blog_list_fetch_errors_total", "counter", "listfetch", []string{"list", "kind"}},

	{"blog_like_toggles_total", "counter", "like", []string{"outcome"}},
	{"blog_settings_refresh_total", "counter", "settings", []string{"outcome"}},
	{"blog_proxy_requests_total", "counter", "cmd/beekeeper", []string{"route", "status"}},
}

// Example Prometheus Queries:
//
//	# Cache Hit Rate
//	sum(rate(blog_cache_hits_total[5m])) /
//	(sum(rate(blog_cache_hits_total[5m])) + sum(rate(blog_cache_misses_total[5m])))
//
//	# Backend budget running low
//	blog_rate_limit_remaining < 20
//
//	# Share of list responses discarded as stale
//	rate(blog_list_fetches_total{outcome="stale"}[5m]) / rate(blog_list_fetches_total[5m])
//
//	# P95 Request Latency
//	histogram_quantile(0.95, rate(blog_request_duration_seconds_bucket[5m]))
