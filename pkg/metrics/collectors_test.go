// Package metrics tests Prometheus metrics collectors.
package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Om7972/votesecure-online-sub000/pkg/metrics"
)

func TestVotingMetrics_Usage(t *testing.T) {
	metrics.ResetRegistry()
	m := metrics.NewVotingMetrics()

	// Test counter increment
	m.VotesCast.WithLabelValues(metrics.HashID("election-1")).Inc()
	m.VotesRejected.WithLabelValues("duplicate_vote").Inc()
	m.Transitions.WithLabelValues("counted", "success").Inc()

	// Test histogram observation
	m.CastLatency.WithLabelValues().Observe(0.05)

	m.SealFailures.Inc()
	m.ChallengesRaised.Inc()
}

func TestTallyMetrics_Usage(t *testing.T) {
	metrics.ResetRegistry()
	m := metrics.NewTallyMetrics()

	m.RecomputesTotal.WithLabelValues("success").Inc()
	m.RecomputeLatency.WithLabelValues().Observe(0.2)
	m.CountedVotes.WithLabelValues(metrics.HashID("election-1")).Set(42)
}

func TestAuditMetrics_Usage(t *testing.T) {
	metrics.ResetRegistry()
	m := metrics.NewAuditMetrics()

	m.EntriesTotal.WithLabelValues("voting", "high").Inc()
	m.WriteLatency.WithLabelValues().Observe(0.02)
	m.SuspiciousHits.Inc()
	m.PurgedTotal.Inc()
}

func TestVaultMetrics_Usage(t *testing.T) {
	metrics.ResetRegistry()
	m := metrics.NewVaultMetrics()

	m.OperationsTotal.WithLabelValues("datakey", "success").Inc()
	m.OperationLatency.WithLabelValues("datakey").Observe(0.01)
	m.ConnectionStatus.Set(1)
}

func TestDatabaseMetrics_Usage(t *testing.T) {
	metrics.ResetRegistry()
	m := metrics.NewDatabaseMetrics()

	m.QueriesTotal.WithLabelValues("select", "success").Inc()
	m.QueryLatency.WithLabelValues("select").Observe(0.005)
	m.ConnectionsActive.Set(10)
	m.ConnectionsIdle.Set(5)
	assert.NotNil(t, m)
}
