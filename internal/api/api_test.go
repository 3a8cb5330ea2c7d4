// Package api contains end-to-end tests for the HTTP API surface.
package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Om7972/votesecure-online-sub000/internal/api"
	"github.com/Om7972/votesecure-online-sub000/internal/audit"
	"github.com/Om7972/votesecure-online-sub000/internal/eligibility"
	"github.com/Om7972/votesecure-online-sub000/internal/ledger"
	"github.com/Om7972/votesecure-online-sub000/internal/seal"
	"github.com/Om7972/votesecure-online-sub000/internal/tally"
	"github.com/Om7972/votesecure-online-sub000/pkg/models"
	"github.com/Om7972/votesecure-online-sub000/tests/testutil"
	"github.com/Om7972/votesecure-online-sub000/tests/testutil/inmemory"
)

// apiFixture wires the full router against in-memory storage so tests
// exercise the same request paths production traffic takes.
type apiFixture struct {
	router    http.Handler
	votes     *inmemory.VoteRepository
	elections *inmemory.ElectionStore
	auditRepo *inmemory.AuditRepository
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	votes := inmemory.NewVoteRepository()
	elections := inmemory.NewElectionStore(
		testutil.TestElection("election-1", "candidate-1", "candidate-2"),
	)
	voters := inmemory.NewVoterReader(
		testutil.TestVoter("voter-1"),
		testutil.TestVoter("voter-2"),
		testutil.TestVoter("voter-3"),
	)
	candidates := inmemory.NewCandidateReader(
		testutil.TestCandidate("candidate-1", "Alice Johnson", "election-1"),
		testutil.TestCandidate("candidate-2", "Bob Williams", "election-1"),
	)
	auditRepo := inmemory.NewAuditRepository()
	auditSvc := audit.NewService(auditRepo, nil)

	keys, err := seal.NewLocalKeyProvider(nil)
	require.NoError(t, err)

	ledgerSvc := ledger.NewService(
		votes, elections, voters,
		eligibility.NewValidator(votes),
		seal.New(keys),
		auditSvc,
		logger,
	)
	aggregator := tally.NewAggregator(votes, elections, candidates)

	config := &api.RouterConfig{
		Logger:           logger,
		RateLimiter:      api.NewInMemoryRateLimiter(1000, time.Minute),
		Classifier:       audit.NewClassifier(),
		MiddlewareConfig: api.DefaultMiddlewareConfig(),
	}
	router := api.NewRouter(config, &api.Services{
		Ledger:    ledgerSvc,
		Tally:     aggregator,
		Elections: elections,
		Audit:     auditSvc,
	})

	return &apiFixture{
		router:    router,
		votes:     votes,
		elections: elections,
		auditRepo: auditRepo,
	}
}

// do sends a request through the router as an authenticated admin actor.
func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", "election-admin")
	req.Header.Set("X-Actor-Role", "admin")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

// castBallot drives a ballot through the API and returns the accepted vote.
func (f *apiFixture) castBallot(t *testing.T, voterID, candidateID string) *models.Vote {
	t.Helper()
	w := f.do(t, "POST", "/api/v1/elections/election-1/votes", map[string]any{
		"voter_id":     voterID,
		"candidate_id": candidateID,
	})
	require.Equal(t, http.StatusCreated, w.Code, "cast failed: %s", w.Body.String())
	resp := decode[api.CastVoteResponse](t, w)
	require.NotNil(t, resp.Vote)
	return resp.Vote
}

func TestHealthEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	for _, path := range []string{"/health", "/ready", "/live"} {
		w := f.do(t, "GET", path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestCastVoteEndpoint(t *testing.T) {
	t.Run("accepts a valid ballot with receipt", func(t *testing.T) {
		f := newAPIFixture(t)

		w := f.do(t, "POST", "/api/v1/elections/election-1/votes", map[string]any{
			"voter_id":     "voter-1",
			"candidate_id": "candidate-1",
		})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		resp := decode[api.CastVoteResponse](t, w)
		assert.Equal(t, models.VoteStatusCast, resp.Vote.Status)
		assert.Equal(t, "voter-1", resp.Vote.VoterID)
		assert.NotEmpty(t, resp.ReceiptHash)
		assert.Len(t, resp.Checks, 5)
		for _, check := range resp.Checks {
			assert.True(t, check.Passed, string(check.CheckType))
		}
	})

	t.Run("accepts a write-in ballot", func(t *testing.T) {
		f := newAPIFixture(t)

		w := f.do(t, "POST", "/api/v1/elections/election-1/votes", map[string]any{
			"voter_id": "voter-2",
			"write_in": map[string]any{"name": "Alex Smith"},
		})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		resp := decode[api.CastVoteResponse](t, w)
		require.NotNil(t, resp.Vote.WriteIn)
		assert.Equal(t, "Alex Smith", resp.Vote.WriteIn.Name)
	})

	t.Run("rejects duplicate ballot with validation report", func(t *testing.T) {
		f := newAPIFixture(t)
		f.castBallot(t, "voter-1", "candidate-1")

		w := f.do(t, "POST", "/api/v1/elections/election-1/votes", map[string]any{
			"voter_id":     "voter-1",
			"candidate_id": "candidate-2",
		})

		require.Equal(t, http.StatusConflict, w.Code)
		body := decode[map[string]json.RawMessage](t, w)
		var detail api.ErrorDetail
		require.NoError(t, json.Unmarshal(body["error"], &detail))
		assert.Equal(t, "DUPLICATE_VOTE", detail.Code)
		assert.Contains(t, string(body["validation_checks"]), "duplicate_vote")
	})

	t.Run("rejects ballot for a closed election with 400", func(t *testing.T) {
		f := newAPIFixture(t)
		closed := testutil.TestElection("election-closed", "candidate-1")
		closed.Status = models.ElectionStatusCompleted
		f.elections.Put(closed)

		w := f.do(t, "POST", "/api/v1/elections/election-closed/votes", map[string]any{
			"voter_id":     "voter-1",
			"candidate_id": "candidate-1",
		})

		require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), "ELECTION_NOT_ACTIVE")
		assert.Contains(t, w.Body.String(), "election_active")
	})

	t.Run("rejects ballot for unknown election", func(t *testing.T) {
		f := newAPIFixture(t)

		w := f.do(t, "POST", "/api/v1/elections/missing/votes", map[string]any{
			"voter_id":     "voter-1",
			"candidate_id": "candidate-1",
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("rejects off-ballot candidate with 400 and failed check", func(t *testing.T) {
		f := newAPIFixture(t)

		w := f.do(t, "POST", "/api/v1/elections/election-1/votes", map[string]any{
			"voter_id":     "voter-1",
			"candidate_id": "candidate-99",
		})

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "candidate_valid")
	})

	t.Run("rejects missing voter_id", func(t *testing.T) {
		f := newAPIFixture(t)

		w := f.do(t, "POST", "/api/v1/elections/election-1/votes", map[string]any{
			"candidate_id": "candidate-1",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		f := newAPIFixture(t)

		req := httptest.NewRequest("POST", "/api/v1/elections/election-1/votes", bytes.NewReader([]byte("{not json")))
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_JSON")
	})
}

func TestVoteLifecycleEndpoints(t *testing.T) {
	t.Run("get returns the stored vote", func(t *testing.T) {
		f := newAPIFixture(t)
		vote := f.castBallot(t, "voter-1", "candidate-1")

		w := f.do(t, "GET", "/api/v1/votes/"+vote.ID, nil)

		require.Equal(t, http.StatusOK, w.Code)
		got := decode[models.Vote](t, w)
		assert.Equal(t, vote.ID, got.ID)
		assert.Equal(t, models.VoteStatusCast, got.Status)
	})

	t.Run("get unknown vote returns 404", func(t *testing.T) {
		f := newAPIFixture(t)

		w := f.do(t, "GET", "/api/v1/votes/00000000-0000-0000-0000-000000000000", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "NOT_FOUND")
	})

	t.Run("verify then count walks the state machine", func(t *testing.T) {
		f := newAPIFixture(t)
		vote := f.castBallot(t, "voter-1", "candidate-1")

		w := f.do(t, "POST", fmt.Sprintf("/api/v1/votes/%s/verify", vote.ID), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		verified := decode[models.Vote](t, w)
		assert.Equal(t, models.VoteStatusVerified, verified.Status)

		w = f.do(t, "POST", fmt.Sprintf("/api/v1/votes/%s/count", vote.ID), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		counted := decode[models.Vote](t, w)
		assert.Equal(t, models.VoteStatusCounted, counted.Status)
	})

	t.Run("counting an unverified vote returns 409", func(t *testing.T) {
		f := newAPIFixture(t)
		vote := f.castBallot(t, "voter-1", "candidate-1")

		w := f.do(t, "POST", fmt.Sprintf("/api/v1/votes/%s/count", vote.ID), nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_TRANSITION")
	})

	t.Run("invalidation requires a reason", func(t *testing.T) {
		f := newAPIFixture(t)
		vote := f.castBallot(t, "voter-1", "candidate-1")

		w := f.do(t, "POST", fmt.Sprintf("/api/v1/votes/%s/invalidate", vote.ID), map[string]any{})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = f.do(t, "POST", fmt.Sprintf("/api/v1/votes/%s/invalidate", vote.ID), map[string]any{
			"reason": "voter registration revoked",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		invalidated := decode[models.Vote](t, w)
		assert.Equal(t, models.VoteStatusInvalidated, invalidated.Status)
	})

	t.Run("challenge and review flow", func(t *testing.T) {
		f := newAPIFixture(t)
		vote := f.castBallot(t, "voter-1", "candidate-1")

		w := f.do(t, "POST", fmt.Sprintf("/api/v1/votes/%s/challenges", vote.ID), map[string]any{
			"reason": "observer reported irregularity",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		challenged := decode[models.Vote](t, w)
		require.Len(t, challenged.Challenges, 1)
		challengeID := challenged.Challenges[0].ID

		w = f.do(t, "POST", fmt.Sprintf("/api/v1/votes/%s/challenges/%s/review", vote.ID, challengeID), map[string]any{
			"approve":    false,
			"resolution": "no irregularity found",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		reviewed := decode[models.Vote](t, w)
		assert.Equal(t, models.VoteStatusCast, reviewed.Status)
	})

	t.Run("anonymize strips voter identity", func(t *testing.T) {
		f := newAPIFixture(t)
		vote := f.castBallot(t, "voter-1", "candidate-1")

		w := f.do(t, "POST", fmt.Sprintf("/api/v1/votes/%s/anonymize", vote.ID), nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		anon := decode[models.Vote](t, w)
		assert.NotEqual(t, "voter-1", anon.VoterID)
		assert.True(t, anon.Anonymized)
	})

	t.Run("unseal recovers the ballot choice", func(t *testing.T) {
		f := newAPIFixture(t)
		vote := f.castBallot(t, "voter-1", "candidate-1")

		w := f.do(t, "POST", fmt.Sprintf("/api/v1/votes/%s/unseal", vote.ID), nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), "candidate-1")
	})

	t.Run("lists votes by election and voter", func(t *testing.T) {
		f := newAPIFixture(t)
		f.castBallot(t, "voter-1", "candidate-1")
		f.castBallot(t, "voter-2", "candidate-2")

		w := f.do(t, "GET", "/api/v1/elections/election-1/votes", nil)
		require.Equal(t, http.StatusOK, w.Code)
		byElection := decode[map[string]json.RawMessage](t, w)
		assert.JSONEq(t, "2", string(byElection["count"]))

		w = f.do(t, "GET", "/api/v1/voters/voter-1/votes", nil)
		require.Equal(t, http.StatusOK, w.Code)
		byVoter := decode[map[string]json.RawMessage](t, w)
		assert.JSONEq(t, "1", string(byVoter["count"]))
	})
}

func TestResultsEndpoints(t *testing.T) {
	// countBallot walks a fresh ballot through verify and count.
	countBallot := func(t *testing.T, f *apiFixture, voterID, candidateID string) {
		vote := f.castBallot(t, voterID, candidateID)
		w := f.do(t, "POST", fmt.Sprintf("/api/v1/votes/%s/verify", vote.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)
		w = f.do(t, "POST", fmt.Sprintf("/api/v1/votes/%s/count", vote.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	t.Run("results are 404 until computed", func(t *testing.T) {
		f := newAPIFixture(t)

		w := f.do(t, "GET", "/api/v1/elections/election-1/results", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "RESULTS_NOT_COMPUTED")
	})

	t.Run("recompute tallies counted votes and persists results", func(t *testing.T) {
		f := newAPIFixture(t)
		countBallot(t, f, "voter-1", "candidate-1")
		countBallot(t, f, "voter-2", "candidate-1")
		countBallot(t, f, "voter-3", "candidate-2")

		w := f.do(t, "POST", "/api/v1/elections/election-1/results/recompute", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		results := decode[models.ElectionResults](t, w)
		assert.Equal(t, 3, results.TotalValidVotes)

		winner := results.CandidateResults[0]
		assert.Equal(t, "candidate-1", winner.CandidateID)
		assert.Equal(t, 2, winner.Votes)
		assert.True(t, winner.IsWinner)
		assert.Equal(t, "Alice Johnson", winner.Name)

		// Results are now served from the election record.
		w = f.do(t, "GET", "/api/v1/elections/election-1/results", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("recompute for unknown election returns 404", func(t *testing.T) {
		f := newAPIFixture(t)

		w := f.do(t, "POST", "/api/v1/elections/missing/results/recompute", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("counts turnout and stats endpoints", func(t *testing.T) {
		f := newAPIFixture(t)
		countBallot(t, f, "voter-1", "candidate-1")
		f.castBallot(t, "voter-2", "candidate-2") // cast but never counted

		w := f.do(t, "GET", "/api/v1/elections/election-1/counts", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"candidate-1":1`)

		w = f.do(t, "GET", "/api/v1/elections/election-1/turnout", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"turnout":1`)

		w = f.do(t, "GET", "/api/v1/elections/election-1/stats", nil)
		require.Equal(t, http.StatusOK, w.Code)
		stats := decode[tally.VotingStats](t, w)
		assert.Equal(t, 2, stats.TotalVotes)
		assert.Equal(t, 1, stats.CountedVotes)
	})
}

func TestAuditEndpoints(t *testing.T) {
	t.Run("query returns recorded entries", func(t *testing.T) {
		f := newAPIFixture(t)
		f.castBallot(t, "voter-1", "candidate-1")

		w := f.do(t, "GET", "/api/v1/audit?action=vote_cast", nil)

		require.Equal(t, http.StatusOK, w.Code)
		body := decode[map[string]json.RawMessage](t, w)
		assert.JSONEq(t, "1", string(body["count"]))
	})

	t.Run("get and verify a single entry", func(t *testing.T) {
		f := newAPIFixture(t)
		f.castBallot(t, "voter-1", "candidate-1")

		w := f.do(t, "GET", "/api/v1/audit?action=vote_cast", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Entries []*models.AuditLogEntry `json:"entries"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Entries, 1)
		entryID := body.Entries[0].ID

		w = f.do(t, "GET", "/api/v1/audit/"+entryID, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = f.do(t, "POST", "/api/v1/audit/"+entryID+"/verify", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"valid":true`)
	})

	t.Run("suspicious worklist and stats", func(t *testing.T) {
		f := newAPIFixture(t)
		f.castBallot(t, "voter-1", "candidate-1")

		w := f.do(t, "GET", "/api/v1/audit/suspicious?hours=48", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"hours":48`)

		w = f.do(t, "GET", "/api/v1/audit/stats", nil)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("purge flags nothing when retention has not expired", func(t *testing.T) {
		f := newAPIFixture(t)
		f.castBallot(t, "voter-1", "candidate-1")

		w := f.do(t, "POST", "/api/v1/audit/purge", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"soft_deleted":0`)
	})
}
