package search

import "github.com/prometheus/client_golang/prometheus"

var (
	metricSearches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "discobridge_searches_total",
		Help: "Search queries by mode.",
	}, []string{"mode"})
	metricFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "discobridge_fetches_total",
		Help: "Fetch-by-id lookups by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(metricSearches, metricFetches)
}
