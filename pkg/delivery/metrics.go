package delivery

import "github.com/prometheus/client_golang/prometheus"

var (
	metricQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "discobridge_dispatch_queue_depth",
		Help: "Tasks currently queued for the platform worker.",
	})
	metricDispatchTimeouts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "discobridge_dispatch_timeouts_total",
		Help: "Caller waits that expired before the worker reported a result.",
	})
	metricDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "discobridge_deliveries_total",
		Help: "Delivery outcomes by result.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(metricQueueDepth, metricDispatchTimeouts, metricDeliveries)
}
