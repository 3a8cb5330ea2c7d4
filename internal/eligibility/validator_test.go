// Package eligibility contains unit tests for vote admission checks.
package eligibility_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Om7972/votesecure-online-sub000/internal/eligibility"
	"github.com/Om7972/votesecure-online-sub000/pkg/models"
	"github.com/Om7972/votesecure-online-sub000/tests/testutil"
	"github.com/Om7972/votesecure-online-sub000/tests/testutil/inmemory"
)

func newValidator(votes *inmemory.VoteRepository, now time.Time) *eligibility.Validator {
	return eligibility.NewValidator(votes, eligibility.WithClock(func() time.Time { return now }))
}

func validAttempt(now time.Time) eligibility.Attempt {
	election := testutil.TestElection("election-1", "candidate-1", "candidate-2")
	election.StartDate = now.Add(-time.Hour)
	election.EndDate = now.Add(time.Hour)
	return eligibility.Attempt{
		Election:    election,
		Voter:       testutil.TestVoter("voter-1"),
		CandidateID: "candidate-1",
		CastAt:      now,
	}
}

func TestValidate(t *testing.T) {
	ctx := testutil.TestContext(t)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("passes all checks for a valid attempt", func(t *testing.T) {
		v := newValidator(inmemory.NewVoteRepository(), now)

		report, err := v.Validate(ctx, validAttempt(now))

		require.NoError(t, err)
		assert.True(t, report.IsValid)
		require.Len(t, report.Checks, 5)
		for _, check := range report.Checks {
			assert.True(t, check.Passed, string(check.CheckType))
			assert.False(t, check.Timestamp.IsZero())
		}
	})

	t.Run("all checks run even after an early failure", func(t *testing.T) {
		v := newValidator(inmemory.NewVoteRepository(), now)
		attempt := validAttempt(now)
		attempt.Election.Status = models.ElectionStatusCompleted
		attempt.Voter.Eligible = false

		report, err := v.Validate(ctx, attempt)

		require.NoError(t, err)
		assert.False(t, report.IsValid)
		assert.Len(t, report.Checks, 5)
		assert.ElementsMatch(t, []string{
			string(models.CheckElectionActive),
			string(models.CheckVoterEligible),
		}, report.FailedChecks())
	})
}

func TestElectionActiveCheck(t *testing.T) {
	ctx := testutil.TestContext(t)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(*models.Election)
		detail string
	}{
		{
			name:   "inactive status",
			mutate: func(e *models.Election) { e.Status = models.ElectionStatusDraft },
			detail: "election status is draft",
		},
		{
			name:   "before start date",
			mutate: func(e *models.Election) { e.StartDate = now.Add(time.Hour); e.EndDate = now.Add(2 * time.Hour) },
			detail: "voting period has not started",
		},
		{
			name:   "after end date",
			mutate: func(e *models.Election) { e.StartDate = now.Add(-2 * time.Hour); e.EndDate = now.Add(-time.Hour) },
			detail: "voting period has ended",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newValidator(inmemory.NewVoteRepository(), now)
			attempt := validAttempt(now)
			tt.mutate(attempt.Election)

			report, err := v.Validate(ctx, attempt)

			require.NoError(t, err)
			assert.False(t, report.IsValid)
			check := report.Check(models.CheckElectionActive)
			require.NotNil(t, check)
			assert.False(t, check.Passed)
			assert.Equal(t, tt.detail, check.Detail)
		})
	}
}

func TestVoterEligibleCheck(t *testing.T) {
	ctx := testutil.TestContext(t)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("ineligible voter fails", func(t *testing.T) {
		v := newValidator(inmemory.NewVoteRepository(), now)
		attempt := validAttempt(now)
		attempt.Voter.Eligible = false

		report, err := v.Validate(ctx, attempt)
		require.NoError(t, err)
		assert.False(t, report.Check(models.CheckVoterEligible).Passed)
	})

	t.Run("underage voter fails", func(t *testing.T) {
		v := newValidator(inmemory.NewVoteRepository(), now)
		attempt := validAttempt(now)
		attempt.Voter.Age = 17

		report, err := v.Validate(ctx, attempt)
		require.NoError(t, err)
		check := report.Check(models.CheckVoterEligible)
		assert.False(t, check.Passed)
		assert.Contains(t, check.Detail, "minimum age of 18")
	})

	t.Run("custom minimum age", func(t *testing.T) {
		v := eligibility.NewValidator(inmemory.NewVoteRepository(),
			eligibility.WithClock(func() time.Time { return now }),
			eligibility.WithMinVotingAge(16))
		attempt := validAttempt(now)
		attempt.Voter.Age = 16

		report, err := v.Validate(ctx, attempt)
		require.NoError(t, err)
		assert.True(t, report.Check(models.CheckVoterEligible).Passed)
	})

	t.Run("unregistered voter fails", func(t *testing.T) {
		v := newValidator(inmemory.NewVoteRepository(), now)
		attempt := validAttempt(now)
		attempt.Voter.Registered = false

		report, err := v.Validate(ctx, attempt)
		require.NoError(t, err)
		assert.False(t, report.Check(models.CheckVoterEligible).Passed)
	})
}

func TestCandidateValidCheck(t *testing.T) {
	ctx := testutil.TestContext(t)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("candidate off the ballot fails", func(t *testing.T) {
		v := newValidator(inmemory.NewVoteRepository(), now)
		attempt := validAttempt(now)
		attempt.CandidateID = "candidate-99"

		report, err := v.Validate(ctx, attempt)
		require.NoError(t, err)
		check := report.Check(models.CheckCandidateValid)
		assert.False(t, check.Passed)
		assert.Contains(t, check.Detail, "not on the ballot")
	})

	t.Run("no choice at all fails", func(t *testing.T) {
		v := newValidator(inmemory.NewVoteRepository(), now)
		attempt := validAttempt(now)
		attempt.CandidateID = ""

		report, err := v.Validate(ctx, attempt)
		require.NoError(t, err)
		assert.False(t, report.Check(models.CheckCandidateValid).Passed)
	})

	t.Run("write-in passes when allowed", func(t *testing.T) {
		v := newValidator(inmemory.NewVoteRepository(), now)
		attempt := validAttempt(now)
		attempt.CandidateID = ""
		attempt.WriteIn = &models.WriteIn{Name: "Jane Doe"}

		report, err := v.Validate(ctx, attempt)
		require.NoError(t, err)
		assert.True(t, report.Check(models.CheckCandidateValid).Passed)
	})

	t.Run("write-in fails when the election forbids it", func(t *testing.T) {
		v := newValidator(inmemory.NewVoteRepository(), now)
		attempt := validAttempt(now)
		attempt.Election.AllowWriteIn = false
		attempt.CandidateID = ""
		attempt.WriteIn = &models.WriteIn{Name: "Jane Doe"}

		report, err := v.Validate(ctx, attempt)
		require.NoError(t, err)
		assert.False(t, report.Check(models.CheckCandidateValid).Passed)
	})
}

func TestDuplicateVoteCheck(t *testing.T) {
	ctx := testutil.TestContext(t)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("existing vote blocks the attempt", func(t *testing.T) {
		votes := inmemory.NewVoteRepository()
		require.NoError(t, votes.Create(ctx,
			testutil.TestVote("election-1", "voter-1", "candidate-1", models.VoteStatusCast)))
		v := newValidator(votes, now)

		report, err := v.Validate(ctx, validAttempt(now))
		require.NoError(t, err)
		assert.False(t, report.Check(models.CheckDuplicateVote).Passed)
	})

	t.Run("invalidated vote does not block when re-voting is allowed", func(t *testing.T) {
		votes := inmemory.NewVoteRepository()
		votes.AllowRevote = true
		require.NoError(t, votes.Create(ctx,
			testutil.TestVote("election-1", "voter-1", "candidate-1", models.VoteStatusInvalidated)))
		v := newValidator(votes, now)

		report, err := v.Validate(ctx, validAttempt(now))
		require.NoError(t, err)
		assert.True(t, report.Check(models.CheckDuplicateVote).Passed)
	})

	t.Run("storage failure aborts validation", func(t *testing.T) {
		v := eligibility.NewValidator(&failingDuplicateChecker{},
			eligibility.WithClock(func() time.Time { return now }))

		report, err := v.Validate(ctx, validAttempt(now))
		require.Error(t, err)
		assert.Nil(t, report)
	})
}

func TestTimeWindowCheck(t *testing.T) {
	ctx := testutil.TestContext(t)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("backdated ballot fails even while the election is active", func(t *testing.T) {
		v := newValidator(inmemory.NewVoteRepository(), now)
		attempt := validAttempt(now)
		attempt.CastAt = attempt.Election.StartDate.Add(-time.Minute)

		report, err := v.Validate(ctx, attempt)
		require.NoError(t, err)
		assert.False(t, report.IsValid)
		assert.True(t, report.Check(models.CheckElectionActive).Passed)
		assert.False(t, report.Check(models.CheckTimeWindow).Passed)
	})
}

type failingDuplicateChecker struct{}

func (f *failingDuplicateChecker) HasBlockingVote(ctx context.Context, electionID, voterID string) (bool, error) {
	return false, fmt.Errorf("connection refused")
}
