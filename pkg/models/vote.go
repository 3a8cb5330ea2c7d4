package models

import (
	"time"
)

// VoteStatus is the single tagged state of a vote record. Challenges are
// tracked as sub-records, not as an alternate status: a challenged vote keeps
// its status while the challenge runs its own review flow.
type VoteStatus string

const (
	VoteStatusCast        VoteStatus = "cast"
	VoteStatusVerified    VoteStatus = "verified"
	VoteStatusCounted     VoteStatus = "counted"
	VoteStatusInvalidated VoteStatus = "invalidated"
)

// CheckType identifies one eligibility check in a validation report.
type CheckType string

const (
	CheckElectionActive CheckType = "election_active"
	CheckVoterEligible  CheckType = "voter_eligible"
	CheckCandidateValid CheckType = "candidate_valid"
	CheckDuplicateVote  CheckType = "duplicate_vote"
	CheckTimeWindow     CheckType = "time_window"
)

// ValidationCheck is one entry in a vote's structured validation report.
// The full report is preserved for audit even when the vote is rejected.
type ValidationCheck struct {
	CheckType CheckType `json:"check_type"`
	Passed    bool      `json:"passed"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TrailEntry is an append-only entry in a vote's own audit trail. Entries are
// never deleted or rewritten.
type TrailEntry struct {
	Action      string    `json:"action"`
	PerformedBy string    `json:"performed_by"`
	Timestamp   time.Time `json:"timestamp"`
	Reason      string    `json:"reason,omitempty"`
}

// ChallengeStatus is the review state of a vote challenge.
type ChallengeStatus string

const (
	ChallengeStatusPending     ChallengeStatus = "pending"
	ChallengeStatusUnderReview ChallengeStatus = "under_review"
	ChallengeStatusApproved    ChallengeStatus = "approved"
	ChallengeStatusRejected    ChallengeStatus = "rejected"
)

// Challenge is a dispute raised against a vote after it was cast.
type Challenge struct {
	ID         string          `json:"id"`
	Reason     string          `json:"reason"`
	RaisedBy   string          `json:"raised_by"`
	Status     ChallengeStatus `json:"status"`
	RaisedAt   time.Time       `json:"raised_at"`
	ReviewedBy string          `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time      `json:"reviewed_at,omitempty"`
	Resolution string          `json:"resolution,omitempty"`
}

// SealedBallot is the encrypted vote payload at rest. The wrapped key is
// stored alongside the ciphertext because the vote record itself is
// access-controlled; this is confidentiality at rest, not secrecy from
// operators.
type SealedBallot struct {
	Ciphertext []byte `json:"ciphertext"`
	WrappedKey []byte `json:"wrapped_key"`
	Hash       string `json:"hash"`
}

// WriteIn is a free-text vote for a candidate not on the official ballot.
type WriteIn struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Vote is the core ledger entity. Identity is the (ElectionID, VoterID) pair,
// which must be unique; the storage layer enforces that constraint. A vote is
// never physically deleted: invalidation and anonymization are status/field
// changes that preserve the record.
type Vote struct {
	ID          string   `json:"id"`
	ElectionID  string   `json:"election_id"`
	VoterID     string   `json:"voter_id"`
	Anonymized  bool     `json:"anonymized"`
	CandidateID string   `json:"candidate_id,omitempty"`
	WriteIn     *WriteIn `json:"write_in,omitempty"`

	Sealed      *SealedBallot `json:"sealed,omitempty"`
	ReceiptHash string        `json:"receipt_hash"`

	Status           VoteStatus        `json:"status"`
	ValidationChecks []ValidationCheck `json:"validation_checks"`
	AuditTrail       []TrailEntry      `json:"audit_trail"`
	Challenges       []Challenge       `json:"challenges,omitempty"`

	Session SessionMetadata `json:"session"`

	VotedAt   time.Time  `json:"voted_at"`
	CountedAt *time.Time `json:"counted_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Version guards optimistic-concurrency transitions.
	Version int `json:"version"`
}

// IsWriteIn reports whether the vote is for a write-in candidate.
func (v *Vote) IsWriteIn() bool {
	return v.WriteIn != nil && v.WriteIn.Name != ""
}

// ChoiceKey returns the tally grouping key for the vote: the candidate ID for
// ballot candidates, or the write-in name.
func (v *Vote) ChoiceKey() string {
	if v.IsWriteIn() {
		return v.WriteIn.Name
	}
	return v.CandidateID
}

// HasOpenChallenge reports whether any challenge is still pending or under
// review.
func (v *Vote) HasOpenChallenge() bool {
	for _, c := range v.Challenges {
		if c.Status == ChallengeStatusPending || c.Status == ChallengeStatusUnderReview {
			return true
		}
	}
	return false
}

// WasChallenged reports whether a challenge was ever raised. This is a fact
// about history, not an alternate current state.
func (v *Vote) WasChallenged() bool {
	return len(v.Challenges) > 0
}

// AppendTrail appends an audit-trail entry to the vote.
func (v *Vote) AppendTrail(action, performedBy, reason string, at time.Time) {
	v.AuditTrail = append(v.AuditTrail, TrailEntry{
		Action:      action,
		PerformedBy: performedBy,
		Timestamp:   at,
		Reason:      reason,
	})
}
