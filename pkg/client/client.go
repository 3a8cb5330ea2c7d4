// Package client provides an HTTP client for the VoteSecure API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Om7972/votesecure-online-sub000/pkg/models"
)

// Client is the VoteSecure API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	actorID    string
	actorRole  string
}

// Config holds client configuration. ActorID and ActorRole are forwarded as
// the gateway identity headers; in production these are set by the gateway
// itself, the client fields exist for direct access and tooling.
type Config struct {
	BaseURL   string
	ActorID   string
	ActorRole string
	Timeout   time.Duration
}

// New creates a new VoteSecure API client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		actorID:   cfg.ActorID,
		actorRole: cfg.ActorRole,
	}
}

// SetActor sets the acting identity for subsequent requests.
func (c *Client) SetActor(id, role string) {
	c.actorID = id
	c.actorRole = role
}

// request makes an HTTP request to the API.
func (c *Client) request(ctx context.Context, method, path string, body, result any) error {
	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("build URL: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.actorID != "" {
		req.Header.Set("X-Actor-ID", c.actorID)
	}
	if c.actorRole != "" {
		req.Header.Set("X-Actor-Role", c.actorRole)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return fmt.Errorf("API error (%d) %s: %s", resp.StatusCode, errResp.Error.Code, errResp.Error.Message)
		}
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Vote API

// WriteInRequest names a write-in candidate on a ballot.
type WriteInRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CastVoteRequest represents a ballot submission.
type CastVoteRequest struct {
	VoterID     string          `json:"voter_id"`
	CandidateID string          `json:"candidate_id,omitempty"`
	WriteIn     *WriteInRequest `json:"write_in,omitempty"`
}

// CastVoteResponse carries the accepted vote and its receipt.
type CastVoteResponse struct {
	Vote        *models.Vote             `json:"vote"`
	ReceiptHash string                   `json:"receipt_hash"`
	Checks      []models.ValidationCheck `json:"validation_checks"`
}

// CastVote submits a ballot for an election.
func (c *Client) CastVote(ctx context.Context, electionID string, req CastVoteRequest) (*CastVoteResponse, error) {
	var result CastVoteResponse
	if err := c.request(ctx, http.MethodPost, "/api/v1/elections/"+electionID+"/votes", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetVote retrieves a vote by ID.
func (c *Client) GetVote(ctx context.Context, id string) (*models.Vote, error) {
	var result models.Vote
	if err := c.request(ctx, http.MethodGet, "/api/v1/votes/"+id, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// votesPage is the list envelope the API wraps vote collections in.
type votesPage struct {
	Votes []*models.Vote `json:"votes"`
	Count int            `json:"count"`
}

// ListVotesByElection lists all votes for an election.
func (c *Client) ListVotesByElection(ctx context.Context, electionID string) ([]*models.Vote, error) {
	var result votesPage
	if err := c.request(ctx, http.MethodGet, "/api/v1/elections/"+electionID+"/votes", nil, &result); err != nil {
		return nil, err
	}
	return result.Votes, nil
}

// ListVotesByVoter lists all votes a voter has cast.
func (c *Client) ListVotesByVoter(ctx context.Context, voterID string) ([]*models.Vote, error) {
	var result votesPage
	if err := c.request(ctx, http.MethodGet, "/api/v1/voters/"+voterID+"/votes", nil, &result); err != nil {
		return nil, err
	}
	return result.Votes, nil
}

// VerifyVote transitions a cast vote to verified.
func (c *Client) VerifyVote(ctx context.Context, id string) (*models.Vote, error) {
	var result models.Vote
	if err := c.request(ctx, http.MethodPost, "/api/v1/votes/"+id+"/verify", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CountVote transitions a verified vote to counted.
func (c *Client) CountVote(ctx context.Context, id string) (*models.Vote, error) {
	var result models.Vote
	if err := c.request(ctx, http.MethodPost, "/api/v1/votes/"+id+"/count", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// InvalidateRequest carries the mandatory invalidation reason.
type InvalidateRequest struct {
	Reason string `json:"reason"`
}

// InvalidateVote invalidates a vote. The reason is mandatory.
func (c *Client) InvalidateVote(ctx context.Context, id, reason string) (*models.Vote, error) {
	var result models.Vote
	if err := c.request(ctx, http.MethodPost, "/api/v1/votes/"+id+"/invalidate", InvalidateRequest{Reason: reason}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ChallengeRequest carries the challenge reason.
type ChallengeRequest struct {
	Reason string `json:"reason"`
}

// ChallengeVote raises a dispute against a vote.
func (c *Client) ChallengeVote(ctx context.Context, id, reason string) (*models.Vote, error) {
	var result models.Vote
	if err := c.request(ctx, http.MethodPost, "/api/v1/votes/"+id+"/challenges", ChallengeRequest{Reason: reason}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ReviewChallengeRequest carries a challenge review decision.
type ReviewChallengeRequest struct {
	Approve    bool   `json:"approve"`
	Resolution string `json:"resolution"`
}

// ReviewChallenge resolves an open challenge. Approving it invalidates the
// vote.
func (c *Client) ReviewChallenge(ctx context.Context, voteID, challengeID string, approve bool, resolution string) (*models.Vote, error) {
	var result models.Vote
	path := "/api/v1/votes/" + voteID + "/challenges/" + challengeID + "/review"
	if err := c.request(ctx, http.MethodPost, path, ReviewChallengeRequest{Approve: approve, Resolution: resolution}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AnonymizeVote replaces the voter identity with an anonymous token.
func (c *Client) AnonymizeVote(ctx context.Context, id string) (*models.Vote, error) {
	var result models.Vote
	if err := c.request(ctx, http.MethodPost, "/api/v1/votes/"+id+"/anonymize", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UnsealedVote is a decrypted ballot returned to authorized reviewers.
type UnsealedVote struct {
	VoteID             string `json:"vote_id"`
	ElectionID         string `json:"election_id"`
	CandidateID        string `json:"candidate_id,omitempty"`
	WriteInName        string `json:"write_in_name,omitempty"`
	WriteInDescription string `json:"write_in_description,omitempty"`
}

// UnsealVote decrypts a sealed ballot after verifying its integrity.
func (c *Client) UnsealVote(ctx context.Context, id string) (*UnsealedVote, error) {
	var result UnsealedVote
	if err := c.request(ctx, http.MethodPost, "/api/v1/votes/"+id+"/unseal", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Results API

// GetResults retrieves the last computed results for an election.
func (c *Client) GetResults(ctx context.Context, electionID string) (*models.ElectionResults, error) {
	var result models.ElectionResults
	if err := c.request(ctx, http.MethodGet, "/api/v1/elections/"+electionID+"/results", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RecomputeResults re-tallies an election from the vote ledger.
func (c *Client) RecomputeResults(ctx context.Context, electionID string) (*models.ElectionResults, error) {
	var result models.ElectionResults
	if err := c.request(ctx, http.MethodPost, "/api/v1/elections/"+electionID+"/results/recompute", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// VoteCountsResponse maps candidate IDs to counted votes.
type VoteCountsResponse struct {
	ElectionID string         `json:"election_id"`
	Counts     map[string]int `json:"counts"`
}

// GetVoteCounts returns per-candidate counted vote totals.
func (c *Client) GetVoteCounts(ctx context.Context, electionID string) (*VoteCountsResponse, error) {
	var result VoteCountsResponse
	if err := c.request(ctx, http.MethodGet, "/api/v1/elections/"+electionID+"/counts", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TurnoutResponse carries the turnout percentage for an election.
type TurnoutResponse struct {
	ElectionID string  `json:"election_id"`
	Turnout    float64 `json:"turnout"`
}

// GetTurnout returns voter turnout as a percentage of registered voters.
func (c *Client) GetTurnout(ctx context.Context, electionID string) (*TurnoutResponse, error) {
	var result TurnoutResponse
	if err := c.request(ctx, http.MethodGet, "/api/v1/elections/"+electionID+"/turnout", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// VotingStats is the per-election activity summary.
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

// GetVotingStats returns the vote activity summary for an election.
func (c *Client) GetVotingStats(ctx context.Context, electionID string) (*VotingStats, error) {
	var result VotingStats
	if err := c.request(ctx, http.MethodGet, "/api/v1/elections/"+electionID+"/stats", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Audit API

// AuditQueryParams represents audit query parameters.
type AuditQueryParams struct {
	Action    string
	Category  string
	ActorID   string
	RiskLevel string
	Since     string
	Until     string
	Limit     int
	Offset    int
}

// auditPage is the list envelope the API wraps audit collections in.
type auditPage struct {
	Entries []*models.AuditLogEntry `json:"entries"`
	Count   int                     `json:"count"`
}

// QueryAudit queries audit log entries.
func (c *Client) QueryAudit(ctx context.Context, params AuditQueryParams) ([]*models.AuditLogEntry, error) {
	q := url.Values{}
	if params.Action != "" {
		q.Set("action", params.Action)
	}
	if params.Category != "" {
		q.Set("category", params.Category)
	}
	if params.ActorID != "" {
		q.Set("actor_id", params.ActorID)
	}
	if params.RiskLevel != "" {
		q.Set("risk_level", params.RiskLevel)
	}
	if params.Since != "" {
		q.Set("since", params.Since)
	}
	if params.Until != "" {
		q.Set("until", params.Until)
	}
	if params.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", params.Limit))
	}
	if params.Offset > 0 {
		q.Set("offset", fmt.Sprintf("%d", params.Offset))
	}

	path := "/api/v1/audit"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var result auditPage
	if err := c.request(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Entries, nil
}

// GetAuditEntry retrieves a single audit entry.
func (c *Client) GetAuditEntry(ctx context.Context, id string) (*models.AuditLogEntry, error) {
	var result models.AuditLogEntry
	if err := c.request(ctx, http.MethodGet, "/api/v1/audit/"+id, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FindSuspiciousActivity returns flagged entries from the recent window.
func (c *Client) FindSuspiciousActivity(ctx context.Context, hours int) ([]*models.AuditLogEntry, error) {
	path := fmt.Sprintf("/api/v1/audit/suspicious?hours=%d", hours)
	var result auditPage
	if err := c.request(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Entries, nil
}

// VerifyAuditEntryResponse reports an entry's integrity check outcome.
type VerifyAuditEntryResponse struct {
	ID    string `json:"id"`
	Valid bool   `json:"valid"`
}

// VerifyAuditEntry recomputes an entry's checksum and reports tampering.
func (c *Client) VerifyAuditEntry(ctx context.Context, id string) (*VerifyAuditEntryResponse, error) {
	var result VerifyAuditEntryResponse
	if err := c.request(ctx, http.MethodPost, "/api/v1/audit/"+id+"/verify", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PurgeResponse reports how many expired entries were soft-deleted.
type PurgeResponse struct {
	SoftDeleted int64 `json:"soft_deleted"`
}

// PurgeExpiredAudit soft-deletes entries past their retention period.
func (c *Client) PurgeExpiredAudit(ctx context.Context) (*PurgeResponse, error) {
	var result PurgeResponse
	if err := c.request(ctx, http.MethodPost, "/api/v1/audit/purge", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health checks

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Health checks API health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var result HealthResponse
	if err := c.request(ctx, http.MethodGet, "/health", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
