package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRegistry(t *testing.T) {
	reg := GetRegistry()
	require.NotNil(t, reg)

	// Should return same instance
	reg2 := GetRegistry()
	assert.Same(t, reg, reg2)
}

func TestNewServiceMetrics(t *testing.T) {
	ResetRegistry()
	m := NewServiceMetrics("test-service", "1.0.0")
	require.NotNil(t, m)
	assert.Equal(t, "test-service", m.ServiceName)
	assert.NotNil(t, m.RequestsTotal)
	assert.NotNil(t, m.RequestDuration)
	assert.NotNil(t, m.ActiveRequests)
	assert.NotNil(t, m.ServiceInfo)
	assert.NotNil(t, m.ErrorsTotal)
}

func TestServiceMetrics_Usage(t *testing.T) {
	ResetRegistry()
	m := NewServiceMetrics("test", "1.0")

	// Use the metrics directly
	m.RequestsTotal.WithLabelValues("GET", "/test", "200").Inc()
	m.RequestDuration.WithLabelValues("GET", "/test").Observe(0.1)
	// Should not panic
}

func TestHashID(t *testing.T) {
	hash1 := HashID("election-123")
	hash2 := HashID("election-123")
	hash3 := HashID("election-456")

	assert.Equal(t, hash1, hash2)
	assert.NotEqual(t, hash1, hash3)
	assert.Len(t, hash1, 16) // 8 bytes hex encoded
	assert.Equal(t, "unknown", HashID(""))
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/api/v1/elections/abc123", "/api/v1/elections/{election_id}"},
		{"/api/v1/votes/vote-456", "/api/v1/votes/{vote_id}"},
		{"/api/v1/voters/voter-789/votes", "/api/v1/voters/{voter_id}/votes"},
		{"/api/v1/elections/el-1/results", "/api/v1/elections/{election_id}/results"},
		{"/health", "/health"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := SanitizePath(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestHandler(t *testing.T) {
	ResetRegistry()
	handler := Handler()
	require.NotNil(t, handler)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
}

func TestNewVotingMetrics(t *testing.T) {
	ResetRegistry()
	m := NewVotingMetrics()
	require.NotNil(t, m)
	assert.NotNil(t, m.VotesCast)
	assert.NotNil(t, m.VotesRejected)
	assert.NotNil(t, m.Transitions)
	assert.NotNil(t, m.CastLatency)
}

func TestNewTallyMetrics(t *testing.T) {
	ResetRegistry()
	m := NewTallyMetrics()
	require.NotNil(t, m)
	assert.NotNil(t, m.RecomputesTotal)
	assert.NotNil(t, m.CountedVotes)
}

func TestNewAuditMetrics(t *testing.T) {
	ResetRegistry()
	m := NewAuditMetrics()
	require.NotNil(t, m)
	assert.NotNil(t, m.EntriesTotal)
	assert.NotNil(t, m.SuspiciousHits)
}

func TestNewVaultMetrics(t *testing.T) {
	ResetRegistry()
	m := NewVaultMetrics()
	require.NotNil(t, m)
	assert.NotNil(t, m.OperationsTotal)
	assert.NotNil(t, m.ConnectionStatus)
}

func TestNewDatabaseMetrics(t *testing.T) {
	ResetRegistry()
	m := NewDatabaseMetrics()
	require.NotNil(t, m)
	assert.NotNil(t, m.QueriesTotal)
	assert.NotNil(t, m.ConnectionsActive)
}
