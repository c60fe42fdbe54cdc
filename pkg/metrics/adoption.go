package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AdoptionMetrics records outcomes of adoption and ledger operations.
type AdoptionMetrics struct {
	duration      *prometheus.HistogramVec
	success       *prometheus.CounterVec
	failure       *prometheus.CounterVec
	pointsAwarded prometheus.Counter
}

// NewAdoptionMetrics registers the adoption metrics on the provided registerer.
func NewAdoptionMetrics(reg prometheus.Registerer) *AdoptionMetrics {
	if reg == nil {
		return &AdoptionMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "adoption_op_duration_seconds",
		Help:    "Duration of adoption and ledger operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "adoption_op_success",
		Help: "Successful adoption and ledger operations.",
	}, []string{"op"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "adoption_op_failure",
		Help: "Failed adoption and ledger operations.",
	}, []string{"op"})
	pointsAwarded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "points_awarded_total",
		Help: "Total points credited through the ledger.",
	})
	reg.MustRegister(duration, success, failure, pointsAwarded)
	return &AdoptionMetrics{
		duration:      duration,
		success:       success,
		failure:       failure,
		pointsAwarded: pointsAwarded,
	}
}

// ObserveDuration records the duration for the named operation.
func (m *AdoptionMetrics) ObserveDuration(op string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named operation.
func (m *AdoptionMetrics) IncSuccess(op string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncFailure increments the failure counter for the named operation.
func (m *AdoptionMetrics) IncFailure(op string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(op)).Inc()
}

// AddPointsAwarded accumulates the award amount.
func (m *AdoptionMetrics) AddPointsAwarded(amount int64) {
	if m == nil || m.pointsAwarded == nil || amount <= 0 {
		return
	}
	m.pointsAwarded.Add(float64(amount))
}

func normalizeLabel(op string) string {
	if op == "" {
		return "unknown"
	}
	return op
}
