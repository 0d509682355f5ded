package hub

import "github.com/prometheus/client_golang/prometheus"

var (
	subscribersGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "airmetrics",
		Subsystem: "hub",
		Name:      "subscribers",
		Help:      "Current number of live-stream subscribers",
	})

	droppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "airmetrics",
		Subsystem: "hub",
		Name:      "dropped_events_total",
		Help:      "Events dropped because a subscriber inbox was full",
	})

	encodeErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "airmetrics",
		Subsystem: "hub",
		Name:      "encode_errors_total",
		Help:      "Events skipped on a stream because their payload could not be encoded",
	})
)

func init() {
	prometheus.MustRegister(subscribersGauge, droppedTotal, encodeErrors)
}
