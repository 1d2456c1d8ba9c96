package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "editfixture"

// PrometheusRecorder counts store operations by outcome and tracks collection
// sizes from the latest snapshot. It satisfies memory.MetricsRecorder and
// memory.SnapshotRecorder.
type PrometheusRecorder struct {
	operations *prometheus.CounterVec
	entities   *prometheus.GaugeVec
	snapshots  prometheus.Counter
}

// NewPrometheusRecorder registers the store collectors with reg. Pass
// prometheus.DefaultRegisterer to expose them on the default registry.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Fixture store operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		entities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "entities",
			Help:      "Records per collection at the last snapshot.",
		}, []string{"kind"}),
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "snapshots_total",
			Help:      "Snapshots taken.",
		}),
	}
	for _, c := range []prometheus.Collector{r.operations, r.entities, r.snapshots} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe records one operation outcome.
func (r *PrometheusRecorder) Observe(operation string, success bool) {
	if operation == "" {
		return
	}
	outcome := "error"
	if success {
		outcome = "success"
	}
	r.operations.WithLabelValues(operation, outcome).Inc()
}

// RecordSnapshot sets the entity gauges from a snapshot's counts.
func (r *PrometheusRecorder) RecordSnapshot(counts map[string]int) {
	r.snapshots.Inc()
	for kind, n := range counts {
		r.entities.WithLabelValues(kind).Set(float64(n))
	}
}
