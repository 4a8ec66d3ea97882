// Package metrics exposes Prometheus instrumentation for the commission
// engine. Counters are incremented by the ledger, settlement, and tier
// services; the /metrics endpoint serves them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CommissionsCreated counts commission rows written by the ledger.
var CommissionsCreated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "atelier",
	Subsystem: "ledger",
	Name:      "commissions_created_total",
	Help:      "Commission rows created from sold lines.",
})

// CommissionsCredited counts pending commissions promoted to credited.
var CommissionsCredited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "atelier",
	Subsystem: "settlement",
	Name:      "commissions_credited_total",
	Help:      "Commissions credited to artist wallets.",
})

// CommissionsPaid counts credited commissions drained by payouts.
var CommissionsPaid = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "atelier",
	Subsystem: "settlement",
	Name:      "commissions_paid_total",
	Help:      "Commissions transitioned to paid during artist payouts.",
})

// CommissionsCancelled counts pending commissions cancelled on line returns.
var CommissionsCancelled = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "atelier",
	Subsystem: "ledger",
	Name:      "commissions_cancelled_total",
	Help:      "Pending commissions cancelled after a line return.",
})

// SweepDuration observes settlement sweep wall time.
var SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "atelier",
	Subsystem: "settlement",
	Name:      "sweep_duration_seconds",
	Help:      "Duration of settlement sweep runs.",
	Buckets:   prometheus.DefBuckets,
})

// TierChanges counts tier reassignments by direction.
var TierChanges = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "atelier",
	Subsystem: "tier",
	Name:      "changes_total",
	Help:      "Tier reassignments applied by the classifier batch.",
}, []string{"direction"})
