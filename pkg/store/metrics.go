package store

import "github.com/prometheus/client_golang/prometheus"

var (
	metricCached = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "discobridge_messages_cached",
		Help: "Number of messages currently held in the cache.",
	})
	metricUpserts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "discobridge_cache_inserts_total",
		Help: "Total messages inserted into the cache.",
	})
	metricEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "discobridge_cache_evictions_total",
		Help: "Total messages evicted from the cache.",
	})
)

func init() {
	prometheus.MustRegister(metricCached, metricUpserts, metricEvictions)
}
