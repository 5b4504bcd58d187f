// Package metrics exposes Prometheus collectors for the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors the engine updates. A nil *Metrics is valid
// and records nothing, which keeps tests free of registry setup.
type Metrics struct {
	operations   *prometheus.CounterVec
	busyRejected prometheus.Counter
	inFlight     prometheus.Gauge
	scanDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netcube",
			Name:      "operations_total",
			Help:      "Completed operations by intent kind and outcome.",
		}, []string{"kind", "outcome"}),
		busyRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "netcube",
			Name:      "busy_rejections_total",
			Help:      "Intents rejected because the interface was already in flight.",
		}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "netcube",
			Name:      "operations_in_flight",
			Help:      "Operations currently holding an interface.",
		}),
		scanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "netcube",
			Name:      "scan_duration_seconds",
			Help:      "Wall time of WiFi scan passes.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) ObserveOperation(kind, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveBusy() {
	if m == nil {
		return
	}
	m.busyRejected.Inc()
}

func (m *Metrics) OperationStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) OperationFinished() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}

func (m *Metrics) ObserveScanDuration(seconds float64) {
	if m == nil {
		return
	}
	m.scanDuration.Observe(seconds)
}
