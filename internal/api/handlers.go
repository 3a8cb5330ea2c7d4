package api

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Om7972/votesecure-online-sub000/internal/audit"
	"github.com/Om7972/votesecure-online-sub000/internal/ledger"
	"github.com/Om7972/votesecure-online-sub000/internal/tally"
	apierrors "github.com/Om7972/votesecure-online-sub000/pkg/errors"
	"github.com/Om7972/votesecure-online-sub000/pkg/models"
)

// =============================================================================
// Common Helpers
// =============================================================================

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// readJSON reads and validates JSON request body.
func readJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		return err
	}
	defer func() { _ = r.Body.Close() }()
	return json.Unmarshal(body, v)
}

// handleError writes appropriate error response based on error type. Internal
// failures never leak their cause to the client.
func handleError(w http.ResponseWriter, err error) {
	switch {
	case apierrors.Is(err, apierrors.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case apierrors.Is(err, apierrors.ErrDuplicateVote):
		writeJSONError(w, http.StatusConflict, "DUPLICATE_VOTE", err.Error())
	case apierrors.Is(err, apierrors.ErrElectionNotActive):
		writeJSONError(w, http.StatusBadRequest, "ELECTION_NOT_ACTIVE", err.Error())
	case apierrors.Is(err, apierrors.ErrInvalidTransition):
		writeJSONError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case apierrors.Is(err, apierrors.ErrStorageConflict):
		writeJSONError(w, http.StatusConflict, "CONCURRENT_UPDATE", err.Error())
	case apierrors.Is(err, apierrors.ErrConflict):
		writeJSONError(w, http.StatusConflict, "CONFLICT", err.Error())
	case apierrors.Is(err, apierrors.ErrValidationFailed):
		writeJSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
	case apierrors.Is(err, apierrors.ErrInvalidInput):
		writeJSONError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	case apierrors.Is(err, apierrors.ErrKeyUnavailable):
		writeJSONError(w, http.StatusServiceUnavailable, "KEY_UNAVAILABLE", "encryption backend unavailable")
	case apierrors.Is(err, apierrors.ErrIntegrity):
		writeJSONError(w, http.StatusInternalServerError, "INTEGRITY_FAILURE", "vote record failed integrity verification")
	default:
		writeJSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// getActor extracts the acting user from context.
func getActor(r *http.Request) Actor {
	if actor, ok := r.Context().Value(ContextKeyActor).(Actor); ok {
		return actor
	}
	return Actor{ID: "anonymous"}
}

// clientIP strips the port RemoteAddr carries when no proxy middleware has
// already rewritten it.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// getPaginationParams extracts limit and offset from query params.
func getPaginationParams(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return
}

// =============================================================================
// Vote Handler
// =============================================================================

// VoteHandler handles vote ledger API requests.
type VoteHandler struct {
	service ledger.Service
}

// NewVoteHandler creates a new vote handler.
func NewVoteHandler(service ledger.Service) *VoteHandler {
	return &VoteHandler{service: service}
}

// CastVoteRequest represents a ballot submission.
type CastVoteRequest struct {
	VoterID     string `json:"voter_id"`
	CandidateID string `json:"candidate_id,omitempty"`
	WriteIn     *struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	} `json:"write_in,omitempty"`
}

// CastVoteResponse carries the accepted vote plus its receipt.
type CastVoteResponse struct {
	Vote        *models.Vote             `json:"vote"`
	ReceiptHash string                   `json:"receipt_hash"`
	Checks      []models.ValidationCheck `json:"validation_checks"`
}

// Cast handles POST /api/v1/elections/{electionID}/votes.
func (h *VoteHandler) Cast(w http.ResponseWriter, r *http.Request) {
	electionID := chi.URLParam(r, "electionID")
	if electionID == "" {
		writeJSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "election id is required")
		return
	}

	var req CastVoteRequest
	if err := readJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	if req.VoterID == "" {
		writeJSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "voter_id is required")
		return
	}

	castReq := ledger.CastRequest{
		ElectionID:  electionID,
		VoterID:     req.VoterID,
		CandidateID: req.CandidateID,
		Session: models.SessionMetadata{
			IPAddress: clientIP(r),
			UserAgent: r.UserAgent(),
			SessionID: r.Header.Get("X-Session-ID"),
		},
	}
	if req.WriteIn != nil {
		castReq.WriteInName = req.WriteIn.Name
		castReq.WriteInDescription = req.WriteIn.Description
	}

	outcome, err := h.service.CastVote(r.Context(), castReq)
	if err != nil {
		// A rejection still carries the validation report; return it so
		// callers can see which checks failed.
		if outcome != nil && outcome.Report != nil {
			status := http.StatusBadRequest
			code := "VALIDATION_FAILED"
			switch {
			case apierrors.Is(err, apierrors.ErrDuplicateVote):
				status, code = http.StatusConflict, "DUPLICATE_VOTE"
			case apierrors.Is(err, apierrors.ErrElectionNotActive):
				code = "ELECTION_NOT_ACTIVE"
			}
			writeJSON(w, status, map[string]any{
				"error":             ErrorDetail{Code: code, Message: err.Error()},
				"validation_checks": outcome.Report.Checks,
			})
			return
		}
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CastVoteResponse{
		Vote:        outcome.Vote,
		ReceiptHash: outcome.Vote.ReceiptHash,
		Checks:      outcome.Report.Checks,
	})
}

// Get handles GET /api/v1/votes/{id}.
func (h *VoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "vote id is required")
		return
	}

	vote, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, vote)
}

// ListByElection handles GET /api/v1/elections/{electionID}/votes.
func (h *VoteHandler) ListByElection(w http.ResponseWriter, r *http.Request) {
	electionID := chi.URLParam(r, "electionID")
	if electionID == "" {
		writeJSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "election id is required")
		return
	}

	votes, err := h.service.FindByElection(r.Context(), electionID)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"votes": votes,
		"count": len(votes),
	})
}

// ListByVoter handles GET /api/v1/voters/{voterID}/votes.
func (h *VoteHandler) ListByVoter(w http.ResponseWriter, r *http.Request) {
	voterID := chi.URLParam(r, "voterID")
	if voterID == "" {
		writeJSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "voter id is required")
		return
	}

	votes, err := h.service.FindByVoter(r.Context(), voterID)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"votes": votes,
		"count": len(votes),
	})
}

// Verify handles POST /api/v1/votes/{id}/verify.
func (h *VoteHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	vote, err := h.service.Verify(r.Context(), id, getActor(r).ID)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vote)
}

// Count handles POST /api/v1/votes/{id}/count.
func (h *VoteHandler) Count(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	vote, err := h.service.Count(r.Context(), id, getActor(r).ID)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vote)
}

// InvalidateRequest carries the mandatory invalidation reason.
type InvalidateRequest struct {
	Reason string `json:"reason"`
}

// Invalidate handles POST /api/v1/votes/{id}/invalidate.
func (h *VoteHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req InvalidateRequest
	if err := readJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	vote, err := h.service.Invalidate(r.Context(), id, getActor(r).ID, req.Reason)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vote)
}

// ChallengeRequest carries the challenge reason.
type ChallengeRequest struct {
	Reason string `json:"reason"`
}

// Challenge handles POST /api/v1/votes/{id}/challenges.
func (h *VoteHandler) Challenge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ChallengeRequest
	if err := readJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	vote, err := h.service.Challenge(r.Context(), id, getActor(r).ID, req.Reason)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, vote)
}

// ReviewChallengeRequest carries a challenge review decision.
type ReviewChallengeRequest struct {
	Approve    bool   `json:"approve"`
	Resolution string `json:"resolution"`
}

// ReviewChallenge handles POST /api/v1/votes/{id}/challenges/{challengeID}/review.
func (h *VoteHandler) ReviewChallenge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	challengeID := chi.URLParam(r, "challengeID")

	var req ReviewChallengeRequest
	if err := readJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	vote, err := h.service.ReviewChallenge(r.Context(), id, challengeID, getActor(r).ID, req.Approve, req.Resolution)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vote)
}

// Anonymize handles POST /api/v1/votes/{id}/anonymize.
func (h *VoteHandler) Anonymize(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	vote, err := h.service.AnonymizeVoter(r.Context(), id, getActor(r).ID)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vote)
}

// Unseal handles POST /api/v1/votes/{id}/unseal.
func (h *VoteHandler) Unseal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	unsealed, err := h.service.Unseal(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, unsealed)
}

// =============================================================================
// Results Handler
// =============================================================================

// ResultsHandler handles tally and reporting API requests.
type ResultsHandler struct {
	aggregator tally.Aggregator
	elections  tally.ElectionStore
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(aggregator tally.Aggregator, elections tally.ElectionStore) *ResultsHandler {
	return &ResultsHandler{aggregator: aggregator, elections: elections}
}

// Get handles GET /api/v1/elections/{electionID}/results. It returns the last
// computed results without recomputing.
func (h *ResultsHandler) Get(w http.ResponseWriter, r *http.Request) {
	electionID := chi.URLParam(r, "electionID")

	election, err := h.elections.Get(r.Context(), electionID)
	if err != nil {
		handleError(w, err)
		return
	}
	if election.Results == nil {
		writeJSONError(w, http.StatusNotFound, "RESULTS_NOT_COMPUTED", "results have not been computed for this election")
		return
	}

	writeJSON(w, http.StatusOK, election.Results)
}

// Recompute handles POST /api/v1/elections/{electionID}/results/recompute.
func (h *ResultsHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	electionID := chi.URLParam(r, "electionID")

	results, err := h.aggregator.Recompute(r.Context(), electionID)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

// Counts handles GET /api/v1/elections/{electionID}/counts.
func (h *ResultsHandler) Counts(w http.ResponseWriter, r *http.Request) {
	electionID := chi.URLParam(r, "electionID")

	counts, err := h.aggregator.GetVoteCounts(r.Context(), electionID)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"election_id": electionID, "counts": counts})
}

// Turnout handles GET /api/v1/elections/{electionID}/turnout.
func (h *ResultsHandler) Turnout(w http.ResponseWriter, r *http.Request) {
	electionID := chi.URLParam(r, "electionID")

	turnout, err := h.aggregator.GetVoterTurnout(r.Context(), electionID)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"election_id": electionID, "turnout": turnout})
}

// Stats handles GET /api/v1/elections/{electionID}/stats.
func (h *ResultsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	electionID := chi.URLParam(r, "electionID")

	stats, err := h.aggregator.GetVotingStats(r.Context(), electionID)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// =============================================================================
// Audit Handler
// =============================================================================

// AuditHandler handles audit log API requests.
type AuditHandler struct {
	service audit.Service
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(service audit.Service) *AuditHandler {
	return &AuditHandler{service: service}
}

// Query handles GET /api/v1/audit.
func (h *AuditHandler) Query(w http.ResponseWriter, r *http.Request) {
	limit, offset := getPaginationParams(r)
	q := audit.QueryParams{
		Action:     models.AuditAction(r.URL.Query().Get("action")),
		Category:   models.AuditCategory(r.URL.Query().Get("category")),
		EntityType: r.URL.Query().Get("entity_type"),
		EntityID:   r.URL.Query().Get("entity_id"),
		ActorID:    r.URL.Query().Get("actor_id"),
		RiskLevel:  models.RiskLevel(r.URL.Query().Get("risk_level")),
		Limit:      limit,
		Offset:     offset,
	}
	if since := r.URL.Query().Get("since"); since != "" {
		if t, err := time.Parse(time.RFC3339, since); err == nil {
			q.Since = t
		}
	}
	if until := r.URL.Query().Get("until"); until != "" {
		if t, err := time.Parse(time.RFC3339, until); err == nil {
			q.Until = t
		}
	}

	entries, err := h.service.Query(r.Context(), q)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// Get handles GET /api/v1/audit/{id}.
func (h *AuditHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Suspicious handles GET /api/v1/audit/suspicious.
func (h *AuditHandler) Suspicious(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if hs := r.URL.Query().Get("hours"); hs != "" {
		if parsed, err := strconv.Atoi(hs); err == nil && parsed > 0 {
			hours = parsed
		}
	}

	entries, err := h.service.FindSuspiciousActivity(r.Context(), hours)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
		"hours":   hours,
	})
}

// Stats handles GET /api/v1/audit/stats.
func (h *AuditHandler) Stats(w http.ResponseWriter, r *http.Request) {
	since := time.Now().AddDate(0, 0, -7)
	if s := r.URL.Query().Get("since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			since = t
		}
	}

	stats, err := h.service.GetStats(r.Context(), since)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Verify handles POST /api/v1/audit/{id}/verify.
func (h *AuditHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ok, err := h.service.VerifyEntry(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "valid": ok})
}

// Purge handles POST /api/v1/audit/purge.
func (h *AuditHandler) Purge(w http.ResponseWriter, r *http.Request) {
	flagged, err := h.service.PurgeExpired(r.Context(), time.Now())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"soft_deleted": flagged})
}
