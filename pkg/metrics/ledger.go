package metrics

import "github.com/prometheus/client_golang/prometheus"

// Stock batch execution modes.
const (
	ModeTransactional = "transactional"
	ModeCompensating  = "compensating"
)

// LedgerMetrics counts stock mutations and the execution mode they ran in.
type LedgerMetrics struct {
	batches       *prometheus.CounterVec
	compensations *prometheus.CounterVec
	restocks      prometheus.Counter
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	batches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_batches_total",
		Help: "Stock deduction batches by execution mode and outcome.",
	}, []string{"mode", "outcome"})
	compensations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_batch_compensations_total",
		Help: "Deduction batches undone by compensating increments.",
	}, []string{"reason"})
	restocks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_restocks_total",
		Help: "Restock batches applied for rejected orders.",
	})
	reg.MustRegister(batches, compensations, restocks)
	return &LedgerMetrics{
		batches:       batches,
		compensations: compensations,
		restocks:      restocks,
	}
}

// IncBatch records a deduction batch outcome for mode.
func (l *LedgerMetrics) IncBatch(mode, outcome string) {
	if l == nil || l.batches == nil {
		return
	}
	l.batches.WithLabelValues(normalizeLabel(mode), normalizeLabel(outcome)).Inc()
}

// IncCompensation records a compensated batch.
func (l *LedgerMetrics) IncCompensation(reason string) {
	if l == nil || l.compensations == nil {
		return
	}
	l.compensations.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncRestock records an applied restock batch.
func (l *LedgerMetrics) IncRestock() {
	if l == nil || l.restocks == nil {
		return
	}
	l.restocks.Inc()
}
