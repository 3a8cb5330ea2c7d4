package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// VotingMetrics contains metrics for the vote ledger.
type VotingMetrics struct {
	VotesCast        *prometheus.CounterVec
	VotesRejected    *prometheus.CounterVec
	Transitions      *prometheus.CounterVec
	CastLatency      *prometheus.HistogramVec
	SealFailures     prometheus.Counter
	ChallengesRaised prometheus.Counter
}

// NewVotingMetrics creates vote ledger metrics. Election IDs are hashed before
// use as labels.
func NewVotingMetrics() *VotingMetrics {
	reg := GetRegistry()

	m := &VotingMetrics{
		VotesCast: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "votesecure",
				Subsystem: "voting",
				Name:      "votes_cast_total",
				Help:      "Total ballots accepted into the ledger",
			},
			[]string{"election_hash"},
		),
		VotesRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "votesecure",
				Subsystem: "voting",
				Name:      "votes_rejected_total",
				Help:      "Total cast attempts rejected by validation",
			},
			[]string{"reason"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "votesecure",
				Subsystem: "voting",
				Name:      "transitions_total",
				Help:      "Vote status transitions",
			},
			[]string{"to_status", "result"},
		),
		CastLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "votesecure",
				Subsystem: "voting",
				Name:      "cast_duration_seconds",
				Help:      "Ballot admission duration including sealing",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{},
		),
		SealFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "votesecure",
				Subsystem: "voting",
				Name:      "seal_failures_total",
				Help:      "Ballot sealing or unsealing failures",
			},
		),
		ChallengesRaised: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "votesecure",
				Subsystem: "voting",
				Name:      "challenges_raised_total",
				Help:      "Challenges raised against votes",
			},
		),
	}

	reg.MustRegister(m.VotesCast, m.VotesRejected, m.Transitions, m.CastLatency, m.SealFailures, m.ChallengesRaised)
	return m
}

// TallyMetrics contains metrics for result aggregation.
type TallyMetrics struct {
	RecomputesTotal  *prometheus.CounterVec
	RecomputeLatency *prometheus.HistogramVec
	CountedVotes     *prometheus.GaugeVec
}

// NewTallyMetrics creates tally aggregation metrics.
func NewTallyMetrics() *TallyMetrics {
	reg := GetRegistry()

	m := &TallyMetrics{
		RecomputesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "votesecure",
				Subsystem: "tally",
				Name:      "recomputes_total",
				Help:      "Total result recomputations",
			},
			[]string{"result"},
		),
		RecomputeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "votesecure",
				Subsystem: "tally",
				Name:      "recompute_duration_seconds",
				Help:      "Result recomputation duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{},
		),
		CountedVotes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "votesecure",
				Subsystem: "tally",
				Name:      "counted_votes",
				Help:      "Counted votes at the last recompute (election hashed)",
			},
			[]string{"election_hash"},
		),
	}

	reg.MustRegister(m.RecomputesTotal, m.RecomputeLatency, m.CountedVotes)
	return m
}

// AuditMetrics contains metrics for the audit log.
type AuditMetrics struct {
	EntriesTotal   *prometheus.CounterVec
	WriteLatency   *prometheus.HistogramVec
	SuspiciousHits prometheus.Counter
	PurgedTotal    prometheus.Counter
}

// NewAuditMetrics creates audit log metrics.
func NewAuditMetrics() *AuditMetrics {
	reg := GetRegistry()

	m := &AuditMetrics{
		EntriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "votesecure",
				Subsystem: "audit",
				Name:      "entries_total",
				Help:      "Audit log entries recorded",
			},
			[]string{"category", "risk_level"},
		),
		WriteLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "votesecure",
				Subsystem: "audit",
				Name:      "write_duration_seconds",
				Help:      "Audit write duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{},
		),
		SuspiciousHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "votesecure",
				Subsystem: "audit",
				Name:      "suspicious_total",
				Help:      "Entries flagged suspicious by the classifier",
			},
		),
		PurgedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "votesecure",
				Subsystem: "audit",
				Name:      "purged_total",
				Help:      "Entries soft-deleted by retention sweeps",
			},
		),
	}

	reg.MustRegister(m.EntriesTotal, m.WriteLatency, m.SuspiciousHits, m.PurgedTotal)
	return m
}

// VaultMetrics contains metrics for Vault operations.
type VaultMetrics struct {
	OperationsTotal  *prometheus.CounterVec
	OperationLatency *prometheus.HistogramVec
	ConnectionStatus prometheus.Gauge
}

// NewVaultMetrics creates Vault client metrics.
func NewVaultMetrics() *VaultMetrics {
	reg := GetRegistry()

	m := &VaultMetrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "votesecure",
				Subsystem: "vault",
				Name:      "operations_total",
				Help:      "Vault operations",
			},
			[]string{"operation", "result"},
		),
		OperationLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "votesecure",
				Subsystem: "vault",
				Name:      "operation_duration_seconds",
				Help:      "Vault operation duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ConnectionStatus: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "votesecure",
				Subsystem: "vault",
				Name:      "connection_up",
				Help:      "Vault connection status (1=up, 0=down)",
			},
		),
	}

	reg.MustRegister(m.OperationsTotal, m.OperationLatency, m.ConnectionStatus)
	return m
}

// DatabaseMetrics contains metrics for database operations.
type DatabaseMetrics struct {
	QueriesTotal      *prometheus.CounterVec
	QueryLatency      *prometheus.HistogramVec
	ConnectionsActive prometheus.Gauge
	ConnectionsIdle   prometheus.Gauge
}

// NewDatabaseMetrics creates database metrics.
func NewDatabaseMetrics() *DatabaseMetrics {
	reg := GetRegistry()

	m := &DatabaseMetrics{
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "votesecure",
				Subsystem: "db",
				Name:      "queries_total",
				Help:      "Database queries",
			},
			[]string{"operation", "result"},
		),
		QueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "votesecure",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "Database query duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "votesecure",
				Subsystem: "db",
				Name:      "connections_active",
				Help:      "Active database connections",
			},
		),
		ConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "votesecure",
				Subsystem: "db",
				Name:      "connections_idle",
				Help:      "Idle database connections",
			},
		),
	}

	reg.MustRegister(m.QueriesTotal, m.QueryLatency, m.ConnectionsActive, m.ConnectionsIdle)
	return m
}
