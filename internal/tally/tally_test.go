// Package tally contains unit tests for result aggregation.
package tally_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Om7972/votesecure-online-sub000/internal/tally"
	"github.com/Om7972/votesecure-online-sub000/pkg/errors"
	"github.com/Om7972/votesecure-online-sub000/pkg/models"
	"github.com/Om7972/votesecure-online-sub000/tests/testutil"
	"github.com/Om7972/votesecure-online-sub000/tests/testutil/inmemory"
)

func result(results *models.ElectionResults, candidateID string) *models.CandidateResult {
	for i := range results.CandidateResults {
		if results.CandidateResults[i].CandidateID == candidateID {
			return &results.CandidateResults[i]
		}
	}
	return nil
}

func TestRecompute(t *testing.T) {
	ctx := testutil.TestContext(t)

	t.Run("tallies counted votes only", func(t *testing.T) {
		votes := inmemory.NewVoteRepository()
		elections := inmemory.NewElectionStore(testutil.TestElection("election-1", "candidate-1", "candidate-2"))

		require.NoError(t, votes.Create(ctx, testutil.TestVote("election-1", "voter-1", "candidate-1", models.VoteStatusCounted)))
		require.NoError(t, votes.Create(ctx, testutil.TestVote("election-1", "voter-2", "candidate-1", models.VoteStatusCounted)))
		require.NoError(t, votes.Create(ctx, testutil.TestVote("election-1", "voter-3", "candidate-2", models.VoteStatusCounted)))
		// Not yet counted or invalidated: excluded from the tally
		require.NoError(t, votes.Create(ctx, testutil.TestVote("election-1", "voter-4", "candidate-2", models.VoteStatusCast)))
		require.NoError(t, votes.Create(ctx, testutil.TestVote("election-1", "voter-5", "candidate-2", models.VoteStatusInvalidated)))

		agg := tally.NewAggregator(votes, elections, nil)
		results, err := agg.Recompute(ctx, "election-1")

		require.NoError(t, err)
		assert.Equal(t, 3, results.TotalValidVotes)

		winner := result(results, "candidate-1")
		require.NotNil(t, winner)
		assert.Equal(t, 2, winner.Votes)
		assert.InDelta(t, 66.67, winner.Percentage, 0.001)
		assert.True(t, winner.IsWinner)

		runnerUp := result(results, "candidate-2")
		require.NotNil(t, runnerUp)
		assert.Equal(t, 1, runnerUp.Votes)
		assert.False(t, runnerUp.IsWinner)

		// Turnout against 100 registered voters
		assert.InDelta(t, 3.0, results.Turnout, 0.001)
	})

	t.Run("persists results on the election", func(t *testing.T) {
		votes := inmemory.NewVoteRepository()
		elections := inmemory.NewElectionStore(testutil.TestElection("election-1", "candidate-1"))
		require.NoError(t, votes.Create(ctx, testutil.TestVote("election-1", "voter-1", "candidate-1", models.VoteStatusCounted)))

		agg := tally.NewAggregator(votes, elections, nil)
		_, err := agg.Recompute(ctx, "election-1")
		require.NoError(t, err)

		election, err := elections.Get(ctx, "election-1")
		require.NoError(t, err)
		require.NotNil(t, election.Results)
		assert.Equal(t, 1, election.Results.TotalValidVotes)
	})

	t.Run("reconciles a stale cast counter", func(t *testing.T) {
		votes := inmemory.NewVoteRepository()
		// The running counter missed an increment (storage error at count
		// time); recompute heals it from the ledger.
		stale := testutil.TestElection("election-1", "candidate-1")
		stale.VotesCast = 1
		elections := inmemory.NewElectionStore(stale)
		require.NoError(t, votes.Create(ctx, testutil.TestVote("election-1", "voter-1", "candidate-1", models.VoteStatusCounted)))
		require.NoError(t, votes.Create(ctx, testutil.TestVote("election-1", "voter-2", "candidate-1", models.VoteStatusCounted)))

		agg := tally.NewAggregator(votes, elections, nil)
		_, err := agg.Recompute(ctx, "election-1")
		require.NoError(t, err)

		election, err := elections.Get(ctx, "election-1")
		require.NoError(t, err)
		assert.Equal(t, 2, election.VotesCast)
	})

	t.Run("is idempotent", func(t *testing.T) {
		votes := inmemory.NewVoteRepository()
		elections := inmemory.NewElectionStore(testutil.TestElection("election-1", "candidate-1", "candidate-2"))
		require.NoError(t, votes.Create(ctx, testutil.TestVote("election-1", "voter-1", "candidate-1", models.VoteStatusCounted)))

		agg := tally.NewAggregator(votes, elections, nil)

		first, err := agg.Recompute(ctx, "election-1")
		require.NoError(t, err)
		second, err := agg.Recompute(ctx, "election-1")
		require.NoError(t, err)

		assert.Equal(t, first.TotalValidVotes, second.TotalValidVotes)
		assert.Equal(t, first.CandidateResults, second.CandidateResults)
	})

	t.Run("zero votes means no winner", func(t *testing.T) {
		votes := inmemory.NewVoteRepository()
		elections := inmemory.NewElectionStore(testutil.TestElection("election-1", "candidate-1", "candidate-2"))

		agg := tally.NewAggregator(votes, elections, nil)
		results, err := agg.Recompute(ctx, "election-1")

		require.NoError(t, err)
		assert.Equal(t, 0, results.TotalValidVotes)
		assert.Zero(t, results.Turnout)
		require.Len(t, results.CandidateResults, 2)
		for _, cr := range results.CandidateResults {
			assert.Zero(t, cr.Votes)
			assert.False(t, cr.IsWinner)
		}
	})

	t.Run("zero-vote candidates still appear in the results", func(t *testing.T) {
		votes := inmemory.NewVoteRepository()
		elections := inmemory.NewElectionStore(testutil.TestElection("election-1", "candidate-1", "candidate-2"))
		require.NoError(t, votes.Create(ctx, testutil.TestVote("election-1", "voter-1", "candidate-1", models.VoteStatusCounted)))

		agg := tally.NewAggregator(votes, elections, nil)
		results, err := agg.Recompute(ctx, "election-1")

		require.NoError(t, err)
		loser := result(results, "candidate-2")
		require.NotNil(t, loser)
		assert.Zero(t, loser.Votes)
	})

	t.Run("a tie crowns multiple winners", func(t *testing.T) {
		votes := inmemory.NewVoteRepository()
		elections := inmemory.NewElectionStore(testutil.TestElection("election-1", "candidate-1", "candidate-2"))
		require.NoError(t, votes.Create(ctx, testutil.TestVote("election-1", "voter-1", "candidate-1", models.VoteStatusCounted)))
		require.NoError(t, votes.Create(ctx, testutil.TestVote("election-1", "voter-2", "candidate-2", models.VoteStatusCounted)))

		agg := tally.NewAggregator(votes, elections, nil)
		results, err := agg.Recompute(ctx, "election-1")

		require.NoError(t, err)
		assert.True(t, result(results, "candidate-1").IsWinner)
		assert.True(t, result(results, "candidate-2").IsWinner)
	})

	t.Run("write-ins are tallied by name after ballot candidates", func(t *testing.T) {
		votes := inmemory.NewVoteRepository()
		elections := inmemory.NewElectionStore(testutil.TestElection("election-1", "candidate-1"))
		require.NoError(t, votes.Create(ctx, testutil.TestWriteInVote("election-1", "voter-1", "Jane Doe")))
		require.NoError(t, votes.Create(ctx, testutil.TestWriteInVote("election-1", "voter-2", "Jane Doe")))

		agg := tally.NewAggregator(votes, elections, nil)
		results, err := agg.Recompute(ctx, "election-1")

		require.NoError(t, err)
		require.Len(t, results.CandidateResults, 2)
		assert.Equal(t, "candidate-1", results.CandidateResults[0].CandidateID)

		writeIn := results.CandidateResults[1]
		assert.Equal(t, "Jane Doe", writeIn.CandidateID)
		assert.Equal(t, "Jane Doe", writeIn.Name)
		assert.True(t, writeIn.WriteIn)
		assert.Equal(t, 2, writeIn.Votes)
		assert.True(t, writeIn.IsWinner)
	})

	t.Run("resolves candidate names when a reader is wired", func(t *testing.T) {
		votes := inmemory.NewVoteRepository()
		elections := inmemory.NewElectionStore(testutil.TestElection("election-1", "candidate-1"))
		candidates := inmemory.NewCandidateReader(testutil.TestCandidate("candidate-1", "Alex Smith", "election-1"))
		require.NoError(t, votes.Create(ctx, testutil.TestVote("election-1", "voter-1", "candidate-1", models.VoteStatusCounted)))

		agg := tally.NewAggregator(votes, elections, candidates)
		results, err := agg.Recompute(ctx, "election-1")

		require.NoError(t, err)
		assert.Equal(t, "Alex Smith", result(results, "candidate-1").Name)
	})

	t.Run("unknown election fails", func(t *testing.T) {
		agg := tally.NewAggregator(inmemory.NewVoteRepository(), inmemory.NewElectionStore(), nil)

		_, err := agg.Recompute(ctx, "election-99")
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrNotFound)
	})
}

func TestGetVoteCounts(t *testing.T) {
	ctx := testutil.TestContext(t)

	votes := inmemory.NewVoteRepository()
	elections := inmemory.NewElectionStore(testutil.TestElection("election-1", "candidate-1", "candidate-2"))
	require.NoError(t, votes.Create(ctx, testutil.TestVote("election-1", "voter-1", "candidate-1", models.VoteStatusCounted)))
	require.NoError(t, votes.Create(ctx, testutil.TestVote("election-1", "voter-2", "candidate-1", models.VoteStatusCounted)))
	require.NoError(t, votes.Create(ctx, testutil.TestVote("election-1", "voter-3", "candidate-2", models.VoteStatusVerified)))

	agg := tally.NewAggregator(votes, elections, nil)
	counts, err := agg.GetVoteCounts(ctx, "election-1")

	require.NoError(t, err)
	assert.Equal(t, map[string]int{"candidate-1": 2}, counts)
}

func TestGetVoterTurnout(t *testing.T) {
	ctx := testutil.TestContext(t)

	t.Run("computes a percentage of registered voters", func(t *testing.T) {
		votes := inmemory.NewVoteRepository()
		election := testutil.TestElection("election-1", "candidate-1")
		election.TotalRegisteredVoters = 8
		elections := inmemory.NewElectionStore(election)
		require.NoError(t, votes.Create(ctx, testutil.TestVote("election-1", "voter-1", "candidate-1", models.VoteStatusCounted)))
		require.NoError(t, votes.Create(ctx, testutil.TestVote("election-1", "voter-2", "candidate-1", models.VoteStatusCounted)))

		agg := tally.NewAggregator(votes, elections, nil)
		turnout, err := agg.GetVoterTurnout(ctx, "election-1")

		require.NoError(t, err)
		assert.InDelta(t, 25.0, turnout, 0.001)
	})

	t.Run("zero registered voters yields zero turnout", func(t *testing.T) {
		election := testutil.TestElection("election-1", "candidate-1")
		election.TotalRegisteredVoters = 0
		agg := tally.NewAggregator(inmemory.NewVoteRepository(), inmemory.NewElectionStore(election), nil)

		turnout, err := agg.GetVoterTurnout(ctx, "election-1")
		require.NoError(t, err)
		assert.Zero(t, turnout)
	})
}

func TestGetVotingStats(t *testing.T) {
	ctx := testutil.TestContext(t)

	votes := inmemory.NewVoteRepository()
	elections := inmemory.NewElectionStore(testutil.TestElection("election-1", "candidate-1", "candidate-2"))

	require.NoError(t, votes.Create(ctx, testutil.TestVote("election-1", "voter-1", "candidate-1", models.VoteStatusCast)))
	require.NoError(t, votes.Create(ctx, testutil.TestVote("election-1", "voter-2", "candidate-1", models.VoteStatusVerified)))
	require.NoError(t, votes.Create(ctx, testutil.TestVote("election-1", "voter-3", "candidate-2", models.VoteStatusCounted)))
	require.NoError(t, votes.Create(ctx, testutil.TestVote("election-1", "voter-4", "candidate-2", models.VoteStatusInvalidated)))
	require.NoError(t, votes.Create(ctx, testutil.TestWriteInVote("election-1", "voter-5", "Jane Doe")))

	challenged := testutil.TestVote("election-1", "voter-6", "candidate-1", models.VoteStatusCast)
	challenged.Challenges = []models.Challenge{{ID: "challenge-1", Status: models.ChallengeStatusPending}}
	require.NoError(t, votes.Create(ctx, challenged))

	agg := tally.NewAggregator(votes, elections, nil)
	stats, err := agg.GetVotingStats(ctx, "election-1")

	require.NoError(t, err)
	assert.Equal(t, 6, stats.TotalVotes)
	assert.Equal(t, 2, stats.CastVotes)
	assert.Equal(t, 1, stats.VerifiedVotes)
	assert.Equal(t, 2, stats.CountedVotes)
	assert.Equal(t, 1, stats.InvalidatedVotes)
	assert.Equal(t, 1, stats.ChallengedVotes)
	assert.Equal(t, 1, stats.WriteInVotes)
	assert.InDelta(t, 2.0, stats.Turnout, 0.001)
	assert.False(t, stats.ComputedAt.IsZero())
}
