package failwatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "failwatch"

// Capture results and observed-failure actions used as metric labels.
const (
	resultOK              = "ok"
	resultCollectionError = "collection_error"

	actionCaptured   = "captured"
	actionSuppressed = "suppressed"
	actionSkipped    = "skipped"
)

// Metrics holds the Prometheus collectors for captures. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	captures *prometheus.CounterVec
	duration prometheus.Histogram
	failures *prometheus.CounterVec
}

// NewMetrics creates the capture metrics and registers them on reg.
//
// Panics if reg is nil or the metrics are already registered on it.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		panic("failwatch: metrics registerer must not be nil")
	}
	factory := promauto.With(reg)
	return &Metrics{
		captures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "captures_total",
			Help:      "Count of diagnostic captures by result",
		}, []string{"result"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "capture_duration_seconds",
			Help:      "Duration of diagnostic captures, excluding time spent waiting for the gate",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "failures_observed_total",
			Help:      "Count of observed test failures by lifecycle point and action taken",
		}, []string{"point", "action"}),
	}
}

func (m *Metrics) observeCapture(err error, d time.Duration) {
	if m == nil {
		return
	}
	result := resultOK
	if err != nil {
		result = resultCollectionError
	}
	m.captures.WithLabelValues(result).Inc()
	m.duration.Observe(d.Seconds())
}

// observeLockFailure counts a capture that never reached the collector. No
// duration is recorded for it.
func (m *Metrics) observeLockFailure() {
	if m == nil {
		return
	}
	m.captures.WithLabelValues(resultCollectionError).Inc()
}

func (m *Metrics) observeFailure(point LifecyclePoint, action string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(point.String(), action).Inc()
}
