package ingest

import "github.com/prometheus/client_golang/prometheus"

var metricEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "discobridge_ingest_events_total",
	Help: "Live message events by classification outcome.",
}, []string{"outcome"})

func init() {
	prometheus.MustRegister(metricEvents)
}
