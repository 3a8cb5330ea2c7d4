// Package testutil provides test utilities and helpers.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Om7972/votesecure-online-sub000/pkg/models"
)

// =============================================================================
// Test Fixtures
// =============================================================================

// TestElection creates an active election open for voting right now.
func TestElection(id string, candidateIDs ...string) *models.Election {
	now := time.Now()
	return &models.Election{
		ID:                    id,
		Title:                 "Test Election " + id,
		Status:                models.ElectionStatusActive,
		StartDate:             now.Add(-time.Hour),
		EndDate:               now.Add(time.Hour),
		CandidateIDs:          candidateIDs,
		AllowWriteIn:          true,
		TotalRegisteredVoters: 100,
		CreatedAt:             now.Add(-24 * time.Hour),
		UpdatedAt:             now.Add(-24 * time.Hour),
	}
}

// TestVoter creates an eligible registered voter.
func TestVoter(id string) *models.Voter {
	return &models.Voter{
		ID:         id,
		Eligible:   true,
		Age:        30,
		Registered: true,
		Role:       "voter",
	}
}

// TestCandidate creates a candidate for the given elections.
func TestCandidate(id, name string, electionIDs ...string) *models.Candidate {
	return &models.Candidate{
		ID:          id,
		Name:        name,
		ElectionIDs: electionIDs,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

// TestVote creates a vote in the given status.
func TestVote(electionID, voterID, candidateID string, status models.VoteStatus) *models.Vote {
	now := time.Now()
	vote := &models.Vote{
		ID:          uuid.New().String(),
		ElectionID:  electionID,
		VoterID:     voterID,
		CandidateID: candidateID,
		Status:      status,
		VotedAt:     now,
		UpdatedAt:   now,
		Version:     1,
	}
	if status == models.VoteStatusCounted {
		countedAt := now
		vote.CountedAt = &countedAt
	}
	return vote
}

// TestWriteInVote creates a counted write-in vote.
func TestWriteInVote(electionID, voterID, name string) *models.Vote {
	vote := TestVote(electionID, voterID, "", models.VoteStatusCounted)
	vote.WriteIn = &models.WriteIn{Name: name}
	return vote
}

// TestAuditEntry creates a minimal unclassified audit entry.
func TestAuditEntry(action models.AuditAction, actorID string) *models.AuditLogEntry {
	return &models.AuditLogEntry{
		Action: action,
		Actor: models.ActorInfo{
			ID:   actorID,
			Role: "admin",
		},
		EntityType: "vote",
		EntityID:   uuid.New().String(),
	}
}

// =============================================================================
// Context Helpers
// =============================================================================

// TestContext creates a context with a test timeout.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestContextWithTimeout creates a context with a custom timeout.
func TestContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}
