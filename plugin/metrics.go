package plugin

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// pluginMetrics holds Prometheus metrics for plugin operations.
type pluginMetrics struct {
	ops     *prometheus.CounterVec   // by operation
	errors  *prometheus.CounterVec   // by operation
	latency *prometheus.HistogramVec // by operation

	retries prometheus.Counter

	reconciled *prometheus.CounterVec // by result: success, error, unattributed
}

// newPluginMetrics creates and registers plugin metrics. A nil registerer
// disables metrics.
func newPluginMetrics(reg prometheus.Registerer, store string) (*pluginMetrics, error) {
	if reg == nil {
		return nil, nil
	}

	labels := prometheus.Labels{"store": store}

	m := &pluginMetrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "docstore",
			Subsystem:   "plugin",
			Name:        "operations_total",
			Help:        "Total number of plugin operations",
			ConstLabels: labels,
		}, []string{"operation"}),

		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "docstore",
			Subsystem:   "plugin",
			Name:        "errors_total",
			Help:        "Total number of failed plugin operations",
			ConstLabels: labels,
		}, []string{"operation"}),

		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "docstore",
			Subsystem:   "plugin",
			Name:        "operation_duration_seconds",
			Help:        "Plugin operation latency",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"operation"}),

		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "docstore",
			Subsystem:   "plugin",
			Name:        "transaction_retries_total",
			Help:        "Total number of transient-failure retries",
			ConstLabels: labels,
		}),

		reconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "docstore",
			Subsystem:   "plugin",
			Name:        "reconciled_outcomes_total",
			Help:        "Bulk write outcomes after reconciliation",
			ConstLabels: labels,
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{m.ops, m.errors, m.latency, m.retries, m.reconciled} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// observe records one completed operation. Nil-safe so disabled metrics
// cost a single branch.
func (m *pluginMetrics) observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.ops.WithLabelValues(op).Inc()
	m.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		m.errors.WithLabelValues(op).Inc()
	}
}

func (m *pluginMetrics) retry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *pluginMetrics) reconcileResult(resp Response) {
	if m == nil {
		return
	}
	m.reconciled.WithLabelValues("success").Add(float64(resp.SuccessCount))
	m.reconciled.WithLabelValues("error").Add(float64(resp.ErrorCount))
	m.reconciled.WithLabelValues("unattributed").Add(float64(len(resp.Unattributed)))
}
