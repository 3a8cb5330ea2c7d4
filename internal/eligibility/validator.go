// Package eligibility runs the ordered vote-admission checks and produces the
// structured validation report that is preserved for audit even when a ballot
// is rejected.
package eligibility

import (
	"context"
	"fmt"
	"time"

	"github.com/Om7972/votesecure-online-sub000/pkg/models"
)

// Attempt is a ballot submission under validation, with its collaborating
// records already resolved.
type Attempt struct {
	Election    *models.Election
	Voter       *models.Voter
	CandidateID string
	WriteIn     *models.WriteIn
	CastAt      time.Time
}

// DuplicateChecker answers whether an existing vote blocks a new cast for the
// pair. The answer honors the configured re-vote policy. This pre-check is an
// optimization only; the storage-layer uniqueness constraint is the actual
// guarantee under concurrency.
type DuplicateChecker interface {
	HasBlockingVote(ctx context.Context, electionID, voterID string) (bool, error)
}

// Report is the outcome of validation: the ordered checks that ran and the
// overall verdict. Checks can only flip IsValid to false, never back to true.
type Report struct {
	IsValid bool
	Checks  []models.ValidationCheck
}

// FailedChecks returns the check types that did not pass.
func (r *Report) FailedChecks() []string {
	var failed []string
	for _, c := range r.Checks {
		if !c.Passed {
			failed = append(failed, string(c.CheckType))
		}
	}
	return failed
}

// Check returns the named check entry, or nil if it did not run.
func (r *Report) Check(checkType models.CheckType) *models.ValidationCheck {
	for i := range r.Checks {
		if r.Checks[i].CheckType == checkType {
			return &r.Checks[i]
		}
	}
	return nil
}

// Validator runs the eligibility state machine. The machine is linear: every
// check runs even after an earlier failure, so operators can audit why a vote
// was rejected, not just that it was.
type Validator struct {
	dup    DuplicateChecker
	minAge int
	now    func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

// WithMinVotingAge overrides the minimum voter age (default 18).
func WithMinVotingAge(age int) Option {
	return func(v *Validator) { v.minAge = age }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// NewValidator creates a validator backed by the given duplicate checker.
func NewValidator(dup DuplicateChecker, opts ...Option) *Validator {
	v := &Validator{dup: dup, minAge: 18, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate runs all checks in order and returns the full report. A storage
// failure during the duplicate check aborts validation with an error; check
// outcomes themselves never short-circuit.
func (v *Validator) Validate(ctx context.Context, attempt Attempt) (*Report, error) {
	report := &Report{IsValid: true}

	v.checkElectionActive(report, attempt)
	v.checkVoterEligible(report, attempt)
	v.checkCandidateValid(report, attempt)
	if err := v.checkDuplicateVote(ctx, report, attempt); err != nil {
		return nil, err
	}
	v.checkTimeWindow(report, attempt)

	return report, nil
}

func (v *Validator) record(report *Report, checkType models.CheckType, passed bool, detail string) {
	report.Checks = append(report.Checks, models.ValidationCheck{
		CheckType: checkType,
		Passed:    passed,
		Detail:    detail,
		Timestamp: v.now().UTC(),
	})
	if !passed {
		report.IsValid = false
	}
}

func (v *Validator) checkElectionActive(report *Report, attempt Attempt) {
	e := attempt.Election
	now := v.now()
	switch {
	case e.Status != models.ElectionStatusActive:
		v.record(report, models.CheckElectionActive, false,
			fmt.Sprintf("election status is %s", e.Status))
	case now.Before(e.StartDate):
		v.record(report, models.CheckElectionActive, false, "voting period has not started")
	case now.After(e.EndDate):
		v.record(report, models.CheckElectionActive, false, "voting period has ended")
	default:
		v.record(report, models.CheckElectionActive, true, "")
	}
}

func (v *Validator) checkVoterEligible(report *Report, attempt Attempt) {
	voter := attempt.Voter
	switch {
	case !voter.Eligible:
		v.record(report, models.CheckVoterEligible, false, "voter is not eligible")
	case voter.Age < v.minAge:
		v.record(report, models.CheckVoterEligible, false,
			fmt.Sprintf("voter is under the minimum age of %d", v.minAge))
	case !voter.Registered:
		v.record(report, models.CheckVoterEligible, false, "voter is not registered")
	default:
		v.record(report, models.CheckVoterEligible, true, "")
	}
}

func (v *Validator) checkCandidateValid(report *Report, attempt Attempt) {
	if attempt.WriteIn != nil && attempt.WriteIn.Name != "" {
		// Write-ins bypass the candidate list but require the election to
		// accept them.
		if attempt.Election.AllowWriteIn {
			v.record(report, models.CheckCandidateValid, true, "write-in accepted")
		} else {
			v.record(report, models.CheckCandidateValid, false, "election does not allow write-ins")
		}
		return
	}

	switch {
	case attempt.CandidateID == "":
		v.record(report, models.CheckCandidateValid, false, "no candidate selected")
	case !attempt.Election.HasCandidate(attempt.CandidateID):
		v.record(report, models.CheckCandidateValid, false,
			fmt.Sprintf("candidate %s is not on the ballot", attempt.CandidateID))
	default:
		v.record(report, models.CheckCandidateValid, true, "")
	}
}

func (v *Validator) checkDuplicateVote(ctx context.Context, report *Report, attempt Attempt) error {
	exists, err := v.dup.HasBlockingVote(ctx, attempt.Election.ID, attempt.Voter.ID)
	if err != nil {
		return fmt.Errorf("duplicate pre-check failed: %w", err)
	}
	if exists {
		v.record(report, models.CheckDuplicateVote, false, "voter already voted in this election")
	} else {
		v.record(report, models.CheckDuplicateVote, true, "")
	}
	return nil
}

// checkTimeWindow guards against backdated or skewed ballot timestamps,
// independently of the wall-clock election_active check.
func (v *Validator) checkTimeWindow(report *Report, attempt Attempt) {
	e := attempt.Election
	if attempt.CastAt.Before(e.StartDate) || attempt.CastAt.After(e.EndDate) {
		v.record(report, models.CheckTimeWindow, false,
			"ballot timestamp falls outside the voting period")
		return
	}
	v.record(report, models.CheckTimeWindow, true, "")
}
