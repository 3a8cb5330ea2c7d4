// Package tally recomputes election results from the vote ledger. The
// recomputation is the source of truth: it is idempotent, safe to re-run at
// any time, and never trusts denormalized counters.
package tally

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Om7972/votesecure-online-sub000/pkg/models"
)

// VoteSource provides the ledger reads the aggregator needs.
type VoteSource interface {
	// CountedByElection returns a consistent snapshot of counted votes.
	CountedByElection(ctx context.Context, electionID string) ([]*models.Vote, error)
	// FindByElection returns all votes for an election regardless of status.
	FindByElection(ctx context.Context, electionID string) ([]*models.Vote, error)
}

// ElectionStore provides election reads and the results write-back.
type ElectionStore interface {
	Get(ctx context.Context, id string) (*models.Election, error)
	UpdateResults(ctx context.Context, electionID string, results *models.ElectionResults) error
}

// CandidateReader resolves candidate display names for the results. Optional.
type CandidateReader interface {
	Get(ctx context.Context, id string) (*models.Candidate, error)
}

// VotingStats is the per-election activity summary exposed to reporting.
type VotingStats struct {
	ElectionID       string    `json:"election_id"`
	TotalVotes       int       `json:"total_votes"`
	CastVotes        int       `json:"cast_votes"`
	VerifiedVotes    int       `json:"verified_votes"`
	CountedVotes     int       `json:"counted_votes"`
	InvalidatedVotes int       `json:"invalidated_votes"`
	ChallengedVotes  int       `json:"challenged_votes"`
	WriteInVotes     int       `json:"write_in_votes"`
	Turnout          float64   `json:"turnout"`
	ComputedAt       time.Time `json:"computed_at"`
}

// Aggregator recomputes and reads election tallies.
type Aggregator interface {
	// Recompute rebuilds the election's results from counted votes and
	// persists them. Calling it twice with no intervening writes yields
	// identical results.
	Recompute(ctx context.Context, electionID string) (*models.ElectionResults, error)
	// GetVoteCounts returns per-choice counted totals without persisting.
	GetVoteCounts(ctx context.Context, electionID string) (map[string]int, error)
	// GetVoterTurnout returns the turnout percentage.
	GetVoterTurnout(ctx context.Context, electionID string) (float64, error)
	// GetVotingStats returns the activity summary across all vote statuses.
	GetVotingStats(ctx context.Context, electionID string) (*VotingStats, error)
}

// NewAggregator creates a tally aggregator. candidates may be nil; results
// then carry IDs without display names.
func NewAggregator(votes VoteSource, elections ElectionStore, candidates CandidateReader) Aggregator {
	return &aggregatorImpl{votes: votes, elections: elections, candidates: candidates, now: time.Now}
}

type aggregatorImpl struct {
	votes      VoteSource
	elections  ElectionStore
	candidates CandidateReader
	now        func() time.Time
}

func (a *aggregatorImpl) Recompute(ctx context.Context, electionID string) (*models.ElectionResults, error) {
	election, err := a.elections.Get(ctx, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get election: %w", err)
	}

	counted, err := a.votes.CountedByElection(ctx, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load counted votes: %w", err)
	}

	byChoice := make(map[string]int)
	writeIns := make(map[string]bool)
	for _, vote := range counted {
		key := vote.ChoiceKey()
		if key == "" {
			continue
		}
		byChoice[key]++
		if vote.IsWriteIn() {
			writeIns[key] = true
		}
	}

	totalValid := len(counted)
	results := &models.ElectionResults{
		ElectionID:      electionID,
		TotalVotesCast:  totalValid,
		TotalValidVotes: totalValid,
		ComputedAt:      a.now().UTC(),
	}

	// Every ballot candidate appears in the results, including zero-vote
	// ones; write-ins are appended after them.
	choices := make([]string, 0, len(election.CandidateIDs)+len(byChoice))
	seen := make(map[string]bool)
	for _, id := range election.CandidateIDs {
		choices = append(choices, id)
		seen[id] = true
	}
	var extra []string
	for key := range byChoice {
		if !seen[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	choices = append(choices, extra...)

	maxVotes := 0
	for _, key := range choices {
		if byChoice[key] > maxVotes {
			maxVotes = byChoice[key]
		}
	}

	for _, key := range choices {
		votes := byChoice[key]
		cr := models.CandidateResult{
			CandidateID: key,
			WriteIn:     writeIns[key],
			Votes:       votes,
			Percentage:  percentage(votes, totalValid),
			// A zero-vote election has no winner, never an all-tied-at-zero
			// result.
			IsWinner: maxVotes > 0 && votes == maxVotes,
		}
		if a.candidates != nil && !cr.WriteIn {
			if cand, err := a.candidates.Get(ctx, key); err == nil {
				cr.Name = cand.Name
			}
		}
		if cr.WriteIn {
			cr.Name = key
		}
		results.CandidateResults = append(results.CandidateResults, cr)
	}

	results.Turnout = percentage(totalValid, election.TotalRegisteredVoters)

	if err := a.elections.UpdateResults(ctx, electionID, results); err != nil {
		return nil, fmt.Errorf("failed to persist results: %w", err)
	}

	return results, nil
}

func (a *aggregatorImpl) GetVoteCounts(ctx context.Context, electionID string) (map[string]int, error) {
	counted, err := a.votes.CountedByElection(ctx, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load counted votes: %w", err)
	}
	counts := make(map[string]int)
	for _, vote := range counted {
		if key := vote.ChoiceKey(); key != "" {
			counts[key]++
		}
	}
	return counts, nil
}

func (a *aggregatorImpl) GetVoterTurnout(ctx context.Context, electionID string) (float64, error) {
	election, err := a.elections.Get(ctx, electionID)
	if err != nil {
		return 0, fmt.Errorf("failed to get election: %w", err)
	}
	counted, err := a.votes.CountedByElection(ctx, electionID)
	if err != nil {
		return 0, fmt.Errorf("failed to load counted votes: %w", err)
	}
	return percentage(len(counted), election.TotalRegisteredVoters), nil
}

func (a *aggregatorImpl) GetVotingStats(ctx context.Context, electionID string) (*VotingStats, error) {
	election, err := a.elections.Get(ctx, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get election: %w", err)
	}
	votes, err := a.votes.FindByElection(ctx, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load votes: %w", err)
	}

	stats := &VotingStats{ElectionID: electionID, ComputedAt: a.now().UTC()}
	for _, vote := range votes {
		stats.TotalVotes++
		switch vote.Status {
		case models.VoteStatusCast:
			stats.CastVotes++
		case models.VoteStatusVerified:
			stats.VerifiedVotes++
		case models.VoteStatusCounted:
			stats.CountedVotes++
		case models.VoteStatusInvalidated:
			stats.InvalidatedVotes++
		}
		if vote.WasChallenged() {
			stats.ChallengedVotes++
		}
		if vote.IsWriteIn() {
			stats.WriteInVotes++
		}
	}
	stats.Turnout = percentage(stats.CountedVotes, election.TotalRegisteredVoters)

	return stats, nil
}

// percentage computes part/whole*100 rounded to 2 decimals, 0 when the whole
// is 0.
func percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*100*100) / 100
}
