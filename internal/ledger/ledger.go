package ledger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Om7972/votesecure-online-sub000/internal/eligibility"
	"github.com/Om7972/votesecure-online-sub000/internal/seal"
	"github.com/Om7972/votesecure-online-sub000/pkg/errors"
	"github.com/Om7972/votesecure-online-sub000/pkg/models"
)

// NewService creates a new vote ledger service.
func NewService(
	votes VoteRepository,
	elections ElectionStore,
	voters VoterReader,
	validator *eligibility.Validator,
	sealer seal.Sealer,
	audit AuditRecorder,
	logger *slog.Logger,
) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &serviceImpl{
		votes:     votes,
		elections: elections,
		voters:    voters,
		validator: validator,
		sealer:    sealer,
		audit:     audit,
		logger:    logger,
		now:       time.Now,
	}
}

type serviceImpl struct {
	votes     VoteRepository
	elections ElectionStore
	voters    VoterReader
	validator *eligibility.Validator
	sealer    seal.Sealer
	audit     AuditRecorder
	logger    *slog.Logger
	now       func() time.Time
}

func (s *serviceImpl) CastVote(ctx context.Context, req CastRequest) (*CastOutcome, error) {
	election, err := s.elections.Get(ctx, req.ElectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve election %s: %w", req.ElectionID, err)
	}
	voter, err := s.voters.Get(ctx, req.VoterID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve voter: %w", err)
	}

	castAt := s.now().UTC()
	var writeIn *models.WriteIn
	if req.WriteInName != "" {
		writeIn = &models.WriteIn{Name: req.WriteInName, Description: req.WriteInDescription}
	}

	report, err := s.validator.Validate(ctx, eligibility.Attempt{
		Election:    election,
		Voter:       voter,
		CandidateID: req.CandidateID,
		WriteIn:     writeIn,
		CastAt:      castAt,
	})
	if err != nil {
		return nil, err
	}

	if !report.IsValid {
		rejErr := rejectionError(report)
		s.recordVoteEvent(ctx, models.ActionVoteRejected, "", req, report, rejErr.Error())
		return &CastOutcome{Report: report}, rejErr
	}

	sealed, err := s.sealer.Seal(ctx, seal.Ballot{
		ElectionID:         req.ElectionID,
		VoterID:            req.VoterID,
		CandidateID:        req.CandidateID,
		WriteInName:        req.WriteInName,
		WriteInDescription: req.WriteInDescription,
		CastAt:             castAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to seal ballot: %w", err)
	}

	vote := &models.Vote{
		ID:               uuid.New().String(),
		ElectionID:       req.ElectionID,
		VoterID:          req.VoterID,
		CandidateID:      req.CandidateID,
		WriteIn:          writeIn,
		Sealed:           sealed,
		ReceiptHash:      sealed.Hash,
		Status:           models.VoteStatusCast,
		ValidationChecks: report.Checks,
		Session:          req.Session,
		VotedAt:          castAt,
		UpdatedAt:        castAt,
		Version:          1,
	}
	vote.AppendTrail("cast", req.VoterID, "", castAt)

	if err := s.votes.Create(ctx, vote); err != nil {
		if errors.Is(err, errors.ErrDuplicateVote) {
			// Lost the race: another request inserted first. Same outcome as
			// the pre-check catching it.
			s.recordVoteEvent(ctx, models.ActionVoteRejected, "", req, report, "duplicate vote (storage constraint)")
			return &CastOutcome{Report: report}, fmt.Errorf("vote already exists for this voter and election: %w", errors.ErrDuplicateVote)
		}
		return nil, fmt.Errorf("failed to persist vote: %w", err)
	}

	s.recordVoteEvent(ctx, models.ActionVoteCast, vote.ID, req, report, "")

	return &CastOutcome{Vote: vote, Report: report}, nil
}

// rejectionError maps a failed report to the dominant error kind: duplicate
// beats inactive election beats the generic validation failure.
func rejectionError(report *eligibility.Report) error {
	duplicate := false
	inactive := false
	for _, c := range report.Checks {
		if c.Passed {
			continue
		}
		switch c.CheckType {
		case models.CheckDuplicateVote:
			duplicate = true
		case models.CheckElectionActive:
			inactive = true
		}
	}
	if duplicate {
		return fmt.Errorf("vote already exists for this voter and election: %w", errors.ErrDuplicateVote)
	}
	if inactive {
		return fmt.Errorf("ballots are not being accepted: %w", errors.ErrElectionNotActive)
	}
	return errors.NewValidationFailedError(report.FailedChecks())
}

func (s *serviceImpl) Get(ctx context.Context, voteID string) (*models.Vote, error) {
	vote, err := s.votes.Get(ctx, voteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	return vote, nil
}

func (s *serviceImpl) FindByElection(ctx context.Context, electionID string) ([]*models.Vote, error) {
	votes, err := s.votes.FindByElection(ctx, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find votes by election: %w", err)
	}
	return votes, nil
}

func (s *serviceImpl) FindByVoter(ctx context.Context, voterID string) ([]*models.Vote, error) {
	votes, err := s.votes.FindByVoter(ctx, voterID)
	if err != nil {
		return nil, fmt.Errorf("failed to find votes by voter: %w", err)
	}
	return votes, nil
}

func (s *serviceImpl) Verify(ctx context.Context, voteID, actor string) (*models.Vote, error) {
	return s.transition(ctx, voteID, actor, "", models.VoteStatusCast, models.VoteStatusVerified, models.ActionVoteVerify)
}

func (s *serviceImpl) Count(ctx context.Context, voteID, actor string) (*models.Vote, error) {
	vote, err := s.transition(ctx, voteID, actor, "", models.VoteStatusVerified, models.VoteStatusCounted, models.ActionVoteCount)
	if err != nil {
		return nil, err
	}

	// The verified->counted precondition above is the idempotency guard: a
	// retry of Count on an already-counted vote fails the transition and
	// never reaches this increment.
	// A missed increment is healed by the next recompute, which rewrites the
	// counter from the ledger.
	if err := s.elections.IncrementVotesCast(ctx, vote.ElectionID); err != nil {
		s.logger.WarnContext(ctx, "failed to increment election cast counter, recompute will reconcile",
			"election_id", vote.ElectionID, "vote_id", vote.ID, "error", err)
	}
	return vote, nil
}

func (s *serviceImpl) Invalidate(ctx context.Context, voteID, actor, reason string) (*models.Vote, error) {
	if reason == "" {
		return nil, errors.NewValidationError("reason", "invalidation requires a reason")
	}

	vote, err := s.votes.Get(ctx, voteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	if vote.Status == models.VoteStatusInvalidated {
		return nil, errors.NewTransitionError(voteID, string(vote.Status), string(models.VoteStatusInvalidated))
	}

	from := vote.Status
	now := s.now().UTC()
	vote.Status = models.VoteStatusInvalidated
	vote.UpdatedAt = now
	vote.AppendTrail("invalidate", actor, reason, now)

	if err := s.votes.Update(ctx, vote, from, vote.Version); err != nil {
		return nil, fmt.Errorf("failed to invalidate vote: %w", err)
	}
	vote.Version++

	s.recordTransition(ctx, models.ActionVoteInvalidate, vote, actor, reason)
	return vote, nil
}

// transition performs a status-guarded optimistic move between two states.
func (s *serviceImpl) transition(ctx context.Context, voteID, actor, reason string, from, to models.VoteStatus, action models.AuditAction) (*models.Vote, error) {
	vote, err := s.votes.Get(ctx, voteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	if vote.Status != from {
		return nil, errors.NewTransitionError(voteID, string(vote.Status), string(to))
	}

	now := s.now().UTC()
	vote.Status = to
	vote.UpdatedAt = now
	if to == models.VoteStatusCounted {
		vote.CountedAt = &now
	}
	vote.AppendTrail(string(action), actor, reason, now)

	if err := s.votes.Update(ctx, vote, from, vote.Version); err != nil {
		return nil, fmt.Errorf("failed to transition vote %s to %s: %w", voteID, to, err)
	}
	vote.Version++

	s.recordTransition(ctx, action, vote, actor, reason)
	return vote, nil
}

func (s *serviceImpl) Challenge(ctx context.Context, voteID, raisedBy, reason string) (*models.Vote, error) {
	if reason == "" {
		return nil, errors.NewValidationError("reason", "a challenge requires a reason")
	}

	vote, err := s.votes.Get(ctx, voteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	if vote.Status == models.VoteStatusInvalidated {
		return nil, fmt.Errorf("invalidated votes cannot be challenged: %w", errors.ErrInvalidTransition)
	}

	now := s.now().UTC()
	vote.Challenges = append(vote.Challenges, models.Challenge{
		ID:       uuid.New().String(),
		Reason:   reason,
		RaisedBy: raisedBy,
		Status:   models.ChallengeStatusPending,
		RaisedAt: now,
	})
	vote.UpdatedAt = now
	vote.AppendTrail("challenge", raisedBy, reason, now)

	if err := s.votes.Update(ctx, vote, vote.Status, vote.Version); err != nil {
		return nil, fmt.Errorf("failed to record challenge: %w", err)
	}
	vote.Version++

	s.recordTransition(ctx, models.ActionVoteChallenge, vote, raisedBy, reason)
	return vote, nil
}

func (s *serviceImpl) ReviewChallenge(ctx context.Context, voteID, challengeID, reviewer string, approve bool, resolution string) (*models.Vote, error) {
	vote, err := s.votes.Get(ctx, voteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}

	now := s.now().UTC()
	found := false
	for i := range vote.Challenges {
		c := &vote.Challenges[i]
		if c.ID != challengeID {
			continue
		}
		found = true
		if c.Status != models.ChallengeStatusPending && c.Status != models.ChallengeStatusUnderReview {
			return nil, fmt.Errorf("challenge %s already resolved as %s: %w", challengeID, c.Status, errors.ErrConflict)
		}
		if approve {
			c.Status = models.ChallengeStatusApproved
		} else {
			c.Status = models.ChallengeStatusRejected
		}
		c.ReviewedBy = reviewer
		c.ReviewedAt = &now
		c.Resolution = resolution
	}
	if !found {
		return nil, fmt.Errorf("challenge %s: %w", challengeID, errors.ErrNotFound)
	}

	vote.UpdatedAt = now
	vote.AppendTrail("challenge_review", reviewer, resolution, now)

	if err := s.votes.Update(ctx, vote, vote.Status, vote.Version); err != nil {
		return nil, fmt.Errorf("failed to record challenge review: %w", err)
	}
	vote.Version++

	s.recordTransition(ctx, models.ActionVoteChallengeReview, vote, reviewer, resolution)
	return vote, nil
}

func (s *serviceImpl) AnonymizeVoter(ctx context.Context, voteID, actor string) (*models.Vote, error) {
	vote, err := s.votes.Get(ctx, voteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	if vote.Anonymized {
		return vote, nil
	}

	token := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, token); err != nil {
		return nil, fmt.Errorf("failed to generate anonymization token: %w", err)
	}

	now := s.now().UTC()
	vote.VoterID = "anon-" + hex.EncodeToString(token)
	vote.Anonymized = true
	vote.UpdatedAt = now
	vote.AppendTrail("anonymize", actor, "voter reference replaced", now)

	if err := s.votes.Update(ctx, vote, vote.Status, vote.Version); err != nil {
		return nil, fmt.Errorf("failed to anonymize vote: %w", err)
	}
	vote.Version++

	s.recordTransition(ctx, models.ActionVoterAnonymize, vote, actor, "")
	return vote, nil
}

func (s *serviceImpl) Unseal(ctx context.Context, voteID string) (*UnsealedVote, error) {
	vote, err := s.votes.Get(ctx, voteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	if vote.Sealed == nil {
		return nil, errors.NewIntegrityError(voteID, "vote has no sealed payload", nil)
	}

	ballot, err := s.sealer.Unseal(ctx, voteID, vote.Sealed)
	if err != nil {
		// Corrupted record: surface loudly, never return partial data.
		s.logger.ErrorContext(ctx, "vote integrity violation on unseal",
			"vote_id", voteID, "error", err)
		s.recordIntegrityFailure(ctx, vote)
		return nil, err
	}

	return &UnsealedVote{
		VoteID:             voteID,
		ElectionID:         ballot.ElectionID,
		CandidateID:        ballot.CandidateID,
		WriteInName:        ballot.WriteInName,
		WriteInDescription: ballot.WriteInDescription,
	}, nil
}

// recordVoteEvent emits the system-wide audit entry for a cast attempt,
// successful or rejected. Rejection is not silence.
func (s *serviceImpl) recordVoteEvent(ctx context.Context, action models.AuditAction, voteID string, req CastRequest, report *eligibility.Report, detail string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLogEntry{
		Action:     action,
		EntityType: "vote",
		EntityID:   voteID,
		Actor: models.ActorInfo{
			ID:        req.VoterID,
			Role:      "voter",
			IPAddress: req.Session.IPAddress,
			UserAgent: req.Session.UserAgent,
			SessionID: req.Session.SessionID,
		},
		Detail: detail,
		Metadata: map[string]any{
			"election_id":       req.ElectionID,
			"validation_checks": report.Checks,
			"is_valid":          report.IsValid,
		},
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to record audit entry",
			"action", action, "vote_id", voteID, "error", err)
	}
}

func (s *serviceImpl) recordTransition(ctx context.Context, action models.AuditAction, vote *models.Vote, actor, reason string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLogEntry{
		Action:     action,
		EntityType: "vote",
		EntityID:   vote.ID,
		Actor:      models.ActorInfo{ID: actor},
		Detail:     reason,
		Metadata: map[string]any{
			"election_id": vote.ElectionID,
			"status":      vote.Status,
		},
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to record audit entry",
			"action", action, "vote_id", vote.ID, "error", err)
	}
}

func (s *serviceImpl) recordIntegrityFailure(ctx context.Context, vote *models.Vote) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLogEntry{
		Action:     models.ActionIntegrityFailure,
		EntityType: "vote",
		EntityID:   vote.ID,
		Actor:      models.ActorInfo{ID: "system"},
		Detail:     "sealed ballot failed integrity verification",
		Metadata:   map[string]any{"election_id": vote.ElectionID},
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to record audit entry",
			"action", models.ActionIntegrityFailure, "vote_id", vote.ID, "error", err)
	}
}
