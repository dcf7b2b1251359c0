// Package metrics declares the Prometheus collectors shared by the
// repository, search service and front ends.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crmdesk_cache_lookups_total",
		Help: "Repository cache lookups by key and result (hit or miss).",
	}, []string{"key", "result"})

	SourceFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crmdesk_source_fetches_total",
		Help: "Fetches against the backing data source by key and outcome.",
	}, []string{"key", "outcome"})

	SourceFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crmdesk_source_fetch_duration_seconds",
		Help:    "Latency of data source fetches.",
		Buckets: prometheus.DefBuckets,
	})

	Requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crmdesk_requests_total",
		Help: "Lookup requests by front end, action and outcome.",
	}, []string{"frontend", "action", "outcome"})

	SearchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crmdesk_search_duration_seconds",
		Help:    "Latency of search and trip lookups.",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})

	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crmdesk_rate_limited_total",
		Help: "Requests refused by the rate limiter, by front end.",
	}, []string{"frontend"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
