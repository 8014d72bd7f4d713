package observability

import "github.com/prometheus/client_golang/prometheus"

// Ledger holds collectors for account store activity. A nil *Ledger is a no-op.
type Ledger struct {
	mutations     *prometheus.CounterVec
	invalidations *prometheus.CounterVec
	systemLookups *prometheus.CounterVec
}

// NewLedger registers the ledger collectors against registerer.
func NewLedger(registerer prometheus.Registerer) *Ledger {
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_ledger_mutations_total",
		Help: "Account store mutations partitioned by operation and outcome.",
	}, []string{"op", "outcome"})
	invalidations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_ledger_cache_invalidations_total",
		Help: "Account cache invalidations partitioned by outcome.",
	}, []string{"outcome"})
	systemLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_ledger_system_accounts_total",
		Help: "Find-or-create calls for system accounts by type and result (found, created, conflict).",
	}, []string{"type", "result"})
	registerer.MustRegister(mutations, invalidations, systemLookups)
	return &Ledger{mutations: mutations, invalidations: invalidations, systemLookups: systemLookups}
}

// Mutation records one store mutation.
func (l *Ledger) Mutation(op string, err error) {
	if l == nil {
		return
	}
	l.mutations.WithLabelValues(op, outcome(err)).Inc()
}

// Invalidation records one cache invalidation attempt.
func (l *Ledger) Invalidation(err error) {
	if l == nil {
		return
	}
	l.invalidations.WithLabelValues(outcome(err)).Inc()
}

// SystemAccount records the result of a find-or-create call.
func (l *Ledger) SystemAccount(accountType, result string) {
	if l == nil {
		return
	}
	l.systemLookups.WithLabelValues(accountType, result).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
