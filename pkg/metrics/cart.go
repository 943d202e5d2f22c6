package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels recorded for cart operations.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// CartMetrics records cart engine activity. A nil *CartMetrics is a no-op.
type CartMetrics struct {
	operations *prometheus.CounterVec
	remoteCall *prometheus.HistogramVec
	hydrations *prometheus.CounterVec
	sessions   prometheus.Gauge
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operations_total",
		Help: "Cart operations by name and outcome.",
	}, []string{"operation", "outcome"})
	remoteCall := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_remote_call_duration_seconds",
		Help:    "Latency of calls to the content service.",
		Buckets: prometheus.DefBuckets,
	}, []string{"call"})
	hydrations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_hydrations_total",
		Help: "Cart hydrations by outcome.",
	}, []string{"outcome"})
	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cart_sessions_active",
		Help: "Cart sessions currently held in memory.",
	})
	reg.MustRegister(operations, remoteCall, hydrations, sessions)
	return &CartMetrics{
		operations: operations,
		remoteCall: remoteCall,
		hydrations: hydrations,
		sessions:   sessions,
	}
}

// ObserveOperation counts one cart operation.
func (m *CartMetrics) ObserveOperation(operation string, err error) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.WithLabelValues(normalizeLabel(operation), outcomeFor(err)).Inc()
}

// ObserveRemoteCall records the latency of a content service call.
func (m *CartMetrics) ObserveRemoteCall(call string, duration time.Duration) {
	if m == nil || m.remoteCall == nil {
		return
	}
	m.remoteCall.WithLabelValues(normalizeLabel(call)).Observe(duration.Seconds())
}

// ObserveHydration counts one hydration attempt.
func (m *CartMetrics) ObserveHydration(err error) {
	if m == nil || m.hydrations == nil {
		return
	}
	m.hydrations.WithLabelValues(outcomeFor(err)).Inc()
}

// SetActiveSessions reports the number of live sessions.
func (m *CartMetrics) SetActiveSessions(n int) {
	if m == nil || m.sessions == nil {
		return
	}
	m.sessions.Set(float64(n))
}

func outcomeFor(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
