package pipeline

import "github.com/prometheus/client_golang/prometheus"

const namespace = "airmetrics"

// read results used as the "result" label
const (
	resultOK        = "ok"
	resultAbsent    = "absent"
	resultTransient = "transient"
	resultError     = "error"
	resultInvalid   = "invalid"
)

var (
	samplerReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "reads_total",
			Help:      "Driver reads by outcome",
		},
		[]string{"sensor", "result"},
	)

	samplerEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "emitted_total",
			Help:      "Readings accepted by the change filter",
		},
		[]string{"sensor"},
	)

	samplerSuppressed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "suppressed_total",
			Help:      "Readings dropped by the change filter",
		},
		[]string{"sensor"},
	)

	bufferEvicted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "buffer",
		Name:      "evicted_total",
		Help:      "Unflushed readings evicted because the staging buffer was full",
	})

	bufferLength = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "buffer",
		Name:      "length",
		Help:      "Readings waiting for the next flush",
	})

	flushBatches = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "flush",
		Name:      "batches_total",
		Help:      "Batches written to the store",
	})

	flushErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "flush",
		Name:      "errors_total",
		Help:      "Failed batch inserts",
	})

	flushLost = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "flush",
		Name:      "lost_readings_total",
		Help:      "Readings discarded because their batch insert failed",
	})

	retentionDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "retention",
		Name:      "deleted_total",
		Help:      "Rows removed by the retention sweeper",
	})

	retentionErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "retention",
		Name:      "errors_total",
		Help:      "Failed retention sweeps",
	})
)

func init() {
	prometheus.MustRegister(
		samplerReads, samplerEmitted, samplerSuppressed,
		bufferEvicted, bufferLength,
		flushBatches, flushErrors, flushLost,
		retentionDeleted, retentionErrors,
	)
}
