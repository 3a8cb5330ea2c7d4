// Package ledger owns the vote record lifecycle: admission, sealing,
// transitions, challenges, and the dual audit logging around all of them.
package ledger

import (
	"context"

	"github.com/Om7972/votesecure-online-sub000/internal/eligibility"
	"github.com/Om7972/votesecure-online-sub000/pkg/models"
)

// VoteRepository defines vote persistence operations.
type VoteRepository interface {
	// Create inserts a new vote. A storage-level uniqueness violation on
	// (election_id, voter_id) is translated to errors.ErrDuplicateVote; that
	// translation is what makes the check-then-insert sequence safe under
	// concurrent double submission.
	Create(ctx context.Context, vote *models.Vote) error
	// Get retrieves a vote by ID.
	Get(ctx context.Context, id string) (*models.Vote, error)
	// Update persists the vote's mutable state guarded by the status and
	// version it was read at. Zero rows affected surfaces as
	// errors.ErrStorageConflict.
	Update(ctx context.Context, vote *models.Vote, expectedStatus models.VoteStatus, expectedVersion int) error
	// HasBlockingVote reports whether an existing vote blocks a new cast for
	// the pair, honoring the configured re-vote policy.
	HasBlockingVote(ctx context.Context, electionID, voterID string) (bool, error)
	// FindByElection returns all votes for an election.
	FindByElection(ctx context.Context, electionID string) ([]*models.Vote, error)
	// FindByVoter returns all votes cast by a voter.
	FindByVoter(ctx context.Context, voterID string) ([]*models.Vote, error)
	// CountedByElection returns a consistent snapshot of the election's
	// counted votes for tallying.
	CountedByElection(ctx context.Context, electionID string) ([]*models.Vote, error)
}

// ElectionStore exposes the election reads the core needs plus the only two
// mutations it is allowed: the running cast counter and the recomputed
// results.
type ElectionStore interface {
	Get(ctx context.Context, id string) (*models.Election, error)
	IncrementVotesCast(ctx context.Context, electionID string) error
	UpdateResults(ctx context.Context, electionID string, results *models.ElectionResults) error
}

// VoterReader resolves verified voter identities. Owned by the identity
// subsystem; the core only reads.
type VoterReader interface {
	Get(ctx context.Context, id string) (*models.Voter, error)
}

// AuditRecorder receives the system-wide audit log entry each ledger
// operation emits, in addition to the vote's own trail.
type AuditRecorder interface {
	Record(ctx context.Context, entry *models.AuditLogEntry) error
}

// CastRequest is a ballot submission (spec'd external input shape).
type CastRequest struct {
	ElectionID         string
	VoterID            string
	CandidateID        string
	WriteInName        string
	WriteInDescription string
	Session            models.SessionMetadata
}

// CastOutcome carries the created vote on success, and always the full
// validation report so rejections can be explained.
type CastOutcome struct {
	Vote   *models.Vote
	Report *eligibility.Report
}

// Service handles vote ledger business logic.
type Service interface {
	// CastVote validates, seals, and persists a ballot. On rejection the
	// returned error identifies the kind and the outcome still carries the
	// validation report.
	CastVote(ctx context.Context, req CastRequest) (*CastOutcome, error)
	// Get retrieves a single vote.
	Get(ctx context.Context, voteID string) (*models.Vote, error)
	// FindByElection returns all votes for an election.
	FindByElection(ctx context.Context, electionID string) ([]*models.Vote, error)
	// FindByVoter returns all votes cast by a voter.
	FindByVoter(ctx context.Context, voterID string) ([]*models.Vote, error)
	// Verify transitions a cast vote to verified.
	Verify(ctx context.Context, voteID, actor string) (*models.Vote, error)
	// Count transitions a verified vote to counted and bumps the election's
	// running cast counter exactly once.
	Count(ctx context.Context, voteID, actor string) (*models.Vote, error)
	// Invalidate transitions a vote to the terminal invalidated status.
	Invalidate(ctx context.Context, voteID, actor, reason string) (*models.Vote, error)
	// Challenge raises a dispute against a vote without changing its status.
	Challenge(ctx context.Context, voteID, raisedBy, reason string) (*models.Vote, error)
	// ReviewChallenge moves a challenge through its review flow.
	ReviewChallenge(ctx context.Context, voteID, challengeID, reviewer string, approve bool, resolution string) (*models.Vote, error)
	// AnonymizeVoter replaces the vote's voter reference with a random token
	// while preserving the vote for tallying.
	AnonymizeVoter(ctx context.Context, voteID, actor string) (*models.Vote, error)
	// Unseal opens a sealed vote payload for authorized review.
	Unseal(ctx context.Context, voteID string) (*UnsealedVote, error)
}

// UnsealedVote is a decrypted ballot returned to authorized reviewers.
type UnsealedVote struct {
	VoteID             string `json:"vote_id"`
	ElectionID         string `json:"election_id"`
	CandidateID        string `json:"candidate_id,omitempty"`
	WriteInName        string `json:"write_in_name,omitempty"`
	WriteInDescription string `json:"write_in_description,omitempty"`
}
