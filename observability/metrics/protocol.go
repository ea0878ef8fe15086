package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ProtocolMetrics tracks the financial state machine's operation flow and
// headline aggregates.
type ProtocolMetrics struct {
	operations       *prometheus.CounterVec
	totalDeposits    prometheus.Gauge
	totalBorrowed    prometheus.Gauge
	liquidationQueue prometheus.Gauge
	proposalsOpened  prometheus.Counter
	proposalsApplied prometheus.Counter
}

var (
	protocolOnce     sync.Once
	protocolRegistry *ProtocolMetrics
)

// Protocol returns the process-wide protocol metrics, registering them on
// first use.
func Protocol() *ProtocolMetrics {
	protocolOnce.Do(func() {
		protocolRegistry = &ProtocolMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lendfi_operations_total",
				Help: "Count of dispatched operations by name and result.",
			}, []string{"op", "result"}),
			totalDeposits: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "lendfi_total_deposits",
				Help: "Outstanding deposit total across all accounts.",
			}),
			totalBorrowed: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "lendfi_total_borrowed",
				Help: "Outstanding borrowed principal across all loans.",
			}),
			liquidationQueue: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "lendfi_liquidation_queue_depth",
				Help: "Number of positions pending in the liquidation queue.",
			}),
			proposalsOpened: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lendfi_proposals_opened_total",
				Help: "Count of governance proposals opened.",
			}),
			proposalsApplied: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lendfi_proposals_applied_total",
				Help: "Count of governance proposals executed successfully.",
			}),
		}
		prometheus.MustRegister(
			protocolRegistry.operations,
			protocolRegistry.totalDeposits,
			protocolRegistry.totalBorrowed,
			protocolRegistry.liquidationQueue,
			protocolRegistry.proposalsOpened,
			protocolRegistry.proposalsApplied,
		)
	})
	return protocolRegistry
}

// ObserveOperation records a dispatched operation outcome.
func (m *ProtocolMetrics) ObserveOperation(op string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.operations.WithLabelValues(op, result).Inc()
}

// SetTotalDeposits updates the outstanding deposit gauge.
func (m *ProtocolMetrics) SetTotalDeposits(v float64) {
	if m == nil {
		return
	}
	m.totalDeposits.Set(v)
}

// SetTotalBorrowed updates the outstanding principal gauge.
func (m *ProtocolMetrics) SetTotalBorrowed(v float64) {
	if m == nil {
		return
	}
	m.totalBorrowed.Set(v)
}

// SetLiquidationQueueDepth updates the pending queue gauge.
func (m *ProtocolMetrics) SetLiquidationQueueDepth(v float64) {
	if m == nil {
		return
	}
	m.liquidationQueue.Set(v)
}

// ObserveProposalOpened counts a newly created proposal.
func (m *ProtocolMetrics) ObserveProposalOpened() {
	if m == nil {
		return
	}
	m.proposalsOpened.Inc()
}

// ObserveProposalApplied counts an executed proposal.
func (m *ProtocolMetrics) ObserveProposalApplied() {
	if m == nil {
		return
	}
	m.proposalsApplied.Inc()
}
