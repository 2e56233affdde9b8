// Package metrics exposes prometheus collectors for the ledger-backed
// account engine. Authored fresh against the teacher's declared
// prometheus/client_golang dependency (no call-site shape for the
// teacher's own pkg/metrics survived retrieval to reconstruct from).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors bundles every metric the fund engine, gate, and
// reconciliation/invariant jobs emit.
type Collectors struct {
	GateAdmissions        *prometheus.CounterVec
	LedgerImbalances      prometheus.Counter
	ReconciliationDrift    *prometheus.HistogramVec
	ReconciliationExceptions prometheus.Counter
	FundEngineOperations  *prometheus.CounterVec
}

// New registers and returns the collector bundle on the given registerer.
// Pass prometheus.DefaultRegisterer in production, or a fresh
// prometheus.NewRegistry() in tests to avoid collisions.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		GateAdmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger_core",
			Name:      "gate_admissions_total",
			Help:      "Transaction gate admission decisions by verdict.",
		}, []string{"verdict", "error_code"}),
		LedgerImbalances: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger_core",
			Name:      "ledger_imbalances_total",
			Help:      "Count of ledger imbalance integrity violations detected.",
		}),
		ReconciliationDrift: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ledger_core",
			Name:      "reconciliation_drift_amount",
			Help:      "Absolute drift between cached and ledger-derived account balances.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"account_type"}),
		ReconciliationExceptions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger_core",
			Name:      "reconciliation_exceptions_total",
			Help:      "Count of reconciliation drift events exceeding tolerance.",
		}),
		FundEngineOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger_core",
			Name:      "fund_engine_operations_total",
			Help:      "Fund engine operations by kind and outcome.",
		}, []string{"operation", "outcome"}),
	}

	reg.MustRegister(
		c.GateAdmissions,
		c.LedgerImbalances,
		c.ReconciliationDrift,
		c.ReconciliationExceptions,
		c.FundEngineOperations,
	)
	return c
}
