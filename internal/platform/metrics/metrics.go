package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the ledger write paths. Balance reads are deliberately not
// counted here; gin request logging already covers the read surface.
var (
	BatchesCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_batches_committed_total",
		Help: "Posting batches committed to the ledger, by event type.",
	}, []string{"event_type"})

	BatchesReplayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_batches_replayed_total",
		Help: "Batch submissions that hit an existing idempotency key.",
	})

	BatchesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_batches_rejected_total",
		Help: "Posting batches rejected by validation.",
	})

	ReconciliationConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_reconciliation_conflicts_total",
		Help: "Order events that contradicted previously posted amounts.",
	})

	SettlementsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_settlements_created_total",
		Help: "Settlements created by the batch engine.",
	})

	SettlementsPaid = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_settlements_paid_total",
		Help: "Settlements confirmed paid by the payout rail.",
	})
)
