package metrics

import "github.com/prometheus/client_golang/prometheus"

// TransferMetrics mencatat hasil transfer booking ke SIMRS.
type TransferMetrics struct {
	transfersTotal    *prometheus.CounterVec
	transferLatency   *prometheus.HistogramVec
	reconcileRequired prometheus.Counter
	lockWait          prometheus.Histogram
}

func NewTransferMetrics(reg prometheus.Registerer) *TransferMetrics {
	m := &TransferMetrics{
		transfersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "klinik",
			Subsystem: "transfer",
			Name:      "total",
			Help:      "Booking transfers to the registry by outcome",
		}, []string{"outcome"}),
		transferLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "klinik",
			Subsystem: "transfer",
			Name:      "duration_seconds",
			Help:      "Duration of booking transfers",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		reconcileRequired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "klinik",
			Subsystem: "transfer",
			Name:      "reconcile_required_total",
			Help:      "Registrations written whose booking update failed",
		}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "klinik",
			Subsystem: "transfer",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for the per-day allocation lock",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transfersTotal, m.transferLatency, m.reconcileRequired, m.lockWait)
	return m
}

func (m *TransferMetrics) ObserveTransfer(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.transfersTotal.WithLabelValues(outcome).Inc()
	m.transferLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *TransferMetrics) ObserveReconcileRequired() {
	if m == nil {
		return
	}
	m.reconcileRequired.Inc()
}

func (m *TransferMetrics) ObserveLockWait(seconds float64) {
	if m == nil {
		return
	}
	m.lockWait.Observe(seconds)
}
