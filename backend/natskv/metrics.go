package natskv

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// storeMetrics holds Prometheus metrics for KV backend operations.
type storeMetrics struct {
	ops     *prometheus.CounterVec   // by operation
	errors  *prometheus.CounterVec   // by operation
	latency *prometheus.HistogramVec // by operation

	writeOutcomes *prometheus.CounterVec // by result: ok, conflict, not_found, other
}

// newStoreMetrics creates and registers backend metrics. A nil registerer
// disables metrics.
func newStoreMetrics(reg prometheus.Registerer, prefix string) (*storeMetrics, error) {
	if reg == nil {
		return nil, nil
	}

	labels := prometheus.Labels{"bucket_prefix": prefix}

	m := &storeMetrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "docstore",
			Subsystem:   "natskv",
			Name:        "operations_total",
			Help:        "Total number of store operations",
			ConstLabels: labels,
		}, []string{"operation"}),

		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "docstore",
			Subsystem:   "natskv",
			Name:        "errors_total",
			Help:        "Total number of failed store operations",
			ConstLabels: labels,
		}, []string{"operation"}),

		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "docstore",
			Subsystem:   "natskv",
			Name:        "operation_duration_seconds",
			Help:        "Store operation latency",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"operation"}),

		writeOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "docstore",
			Subsystem:   "natskv",
			Name:        "write_outcomes_total",
			Help:        "Per-document bulk write outcomes",
			ConstLabels: labels,
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{m.ops, m.errors, m.latency, m.writeOutcomes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// observe records one completed operation. Nil-safe so disabled metrics
// cost a single branch.
func (m *storeMetrics) observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.ops.WithLabelValues(op).Inc()
	m.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		m.errors.WithLabelValues(op).Inc()
	}
}

func (m *storeMetrics) writeOutcome(result string) {
	if m == nil {
		return
	}
	m.writeOutcomes.WithLabelValues(result).Inc()
}
