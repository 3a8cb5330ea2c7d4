// Package models defines the core domain types for VoteSecure.
package models

import (
	"time"
)

// ElectionStatus represents the lifecycle state of an election.
type ElectionStatus string

const (
	ElectionStatusDraft     ElectionStatus = "draft"
	ElectionStatusPublished ElectionStatus = "published"
	ElectionStatusActive    ElectionStatus = "active"
	ElectionStatusCompleted ElectionStatus = "completed"
	ElectionStatusCancelled ElectionStatus = "cancelled"
)

// Election identifies a voting contest. The election lifecycle is owned by
// the election-management subsystem; the voting core only reads the election
// and mutates Results.
type Election struct {
	ID                    string         `json:"id"`
	Title                 string         `json:"title"`
	Status                ElectionStatus `json:"status"`
	StartDate             time.Time      `json:"start_date"`
	EndDate               time.Time      `json:"end_date"`
	CandidateIDs          []string       `json:"candidate_ids"`
	AllowWriteIn          bool           `json:"allow_write_in"`
	TotalRegisteredVoters int            `json:"total_registered_voters"`
	// VotesCast is the running counter bumped as votes reach counted. The
	// authoritative number is Results.TotalValidVotes after a recompute.
	VotesCast int              `json:"votes_cast"`
	Results   *ElectionResults `json:"results,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// IsVotingOpen reports whether the election accepts ballots at the given time.
// Active status implies startDate <= now <= endDate; both are checked because
// the status is admin-driven and the window is wall-clock derived.
func (e *Election) IsVotingOpen(now time.Time) bool {
	return e.Status == ElectionStatusActive &&
		!now.Before(e.StartDate) && !now.After(e.EndDate)
}

// HasCandidate reports whether the candidate is on the official ballot.
func (e *Election) HasCandidate(candidateID string) bool {
	for _, id := range e.CandidateIDs {
		if id == candidateID {
			return true
		}
	}
	return false
}

// CandidateResult is one candidate's line in the published election results.
type CandidateResult struct {
	CandidateID string  `json:"candidate_id"`
	Name        string  `json:"name,omitempty"`
	WriteIn     bool    `json:"write_in,omitempty"`
	Votes       int     `json:"votes"`
	Percentage  float64 `json:"percentage"`
	IsWinner    bool    `json:"is_winner"`
}

// ElectionResults holds the aggregated tally for an election. It is always
// recomputed from the vote ledger, never maintained incrementally.
type ElectionResults struct {
	ElectionID       string            `json:"election_id"`
	TotalVotesCast   int               `json:"total_votes_cast"`
	TotalValidVotes  int               `json:"total_valid_votes"`
	Turnout          float64           `json:"turnout"`
	CandidateResults []CandidateResult `json:"candidate_results"`
	ComputedAt       time.Time         `json:"computed_at"`
}

// Candidate belongs to one or more elections. TotalVotes is a derived
// convenience counter; the election's CandidateResults is authoritative.
type Candidate struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ElectionIDs []string  `json:"election_ids"`
	TotalVotes  int       `json:"total_votes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Voter is the verified voter identity produced by the identity subsystem.
// The voting core only reads it.
type Voter struct {
	ID             string   `json:"id"`
	Eligible       bool     `json:"eligible"`
	Age            int      `json:"age"`
	Registered     bool     `json:"registered"`
	Role           string   `json:"role"`
	VotedElections []string `json:"voted_elections"`
}

// SessionMetadata carries the request context a ballot was submitted from.
type SessionMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	SessionID string `json:"session_id"`
}
