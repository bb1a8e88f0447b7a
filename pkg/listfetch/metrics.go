package listfetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// listFetchesTotal counts settled fetches by list and outcome
	// ("success", "failed", "stale", "clamped").
	listFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_list_fetches_total",
		Help: "Total list page fetches by list and outcome",
	}, []string{"list", "outcome"})

	listFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blog_list_fetch_duration_seconds",
		Help:    "List page fetch duration in seconds by list",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"list"})

	listFetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_list_fetch_errors_total",
		Help: "Total failed list page fetches by list and error kind",
	}, []string{"list", "kind"})
)
