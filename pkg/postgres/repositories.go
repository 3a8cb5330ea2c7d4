// Package postgres provides PostgreSQL repository implementations.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Om7972/votesecure-online-sub000/internal/audit"
	"github.com/Om7972/votesecure-online-sub000/internal/ledger"
	"github.com/Om7972/votesecure-online-sub000/pkg/errors"
	"github.com/Om7972/votesecure-online-sub000/pkg/models"
)

// pq error code for unique constraint violations.
const pqUniqueViolation = "23505"

// =============================================================================
// Vote Repository
// =============================================================================

// VoteRepository implements ledger.VoteRepository.
type VoteRepository struct {
	db *DB
	// allowRevote mirrors the index shape chosen at migration time so
	// HasBlockingVote asks the matching question.
	allowRevote bool
}

// NewVoteRepository creates a new vote repository.
func NewVoteRepository(db *DB, allowRevoteAfterInvalidation bool) *VoteRepository {
	return &VoteRepository{db: db, allowRevote: allowRevoteAfterInvalidation}
}

var _ ledger.VoteRepository = (*VoteRepository)(nil)

// Create persists a new vote. A unique violation on (election_id, voter_id)
// surfaces as errors.ErrDuplicateVote.
func (r *VoteRepository) Create(ctx context.Context, vote *models.Vote) error {
	id, err := uuid.Parse(vote.ID)
	if err != nil {
		return fmt.Errorf("invalid vote ID: %w", err)
	}
	electionID, err := uuid.Parse(vote.ElectionID)
	if err != nil {
		return fmt.Errorf("invalid election ID: %w", err)
	}

	writeIn, err := marshalNullable(vote.WriteIn)
	if err != nil {
		return fmt.Errorf("failed to marshal write-in: %w", err)
	}
	sealed, err := marshalNullable(vote.Sealed)
	if err != nil {
		return fmt.Errorf("failed to marshal sealed ballot: %w", err)
	}
	checks, _ := json.Marshal(vote.ValidationChecks)
	trail, _ := json.Marshal(vote.AuditTrail)
	challenges, _ := json.Marshal(vote.Challenges)
	session, _ := json.Marshal(vote.Session)

	var candidateID *string
	if vote.CandidateID != "" {
		candidateID = &vote.CandidateID
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO votes (id, election_id, voter_id, anonymized, candidate_id, write_in, sealed, receipt_hash,
			status, validation_checks, audit_trail, challenges, session, voted_at, counted_at, updated_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		id, electionID, vote.VoterID, vote.Anonymized, candidateID, writeIn, sealed, vote.ReceiptHash,
		vote.Status, checks, trail, challenges, session, vote.VotedAt, vote.CountedAt, vote.UpdatedAt, vote.Version,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return fmt.Errorf("vote for election %s already exists: %w", vote.ElectionID, errors.ErrDuplicateVote)
		}
		return fmt.Errorf("failed to create vote: %w", err)
	}
	return nil
}

// Get retrieves a vote by ID.
func (r *VoteRepository) Get(ctx context.Context, id string) (*models.Vote, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid vote ID: %w", err)
	}

	return scanVote(r.db.QueryRowContext(ctx,
		`SELECT id, election_id, voter_id, anonymized, candidate_id, write_in, sealed, receipt_hash,
			status, validation_checks, audit_trail, challenges, session, voted_at, counted_at, updated_at, version
		 FROM votes WHERE id = $1`,
		uid,
	))
}

// Update persists the vote's mutable state guarded by the status and version
// it was read at. Zero rows affected on an existing vote surfaces as
// errors.ErrStorageConflict.
func (r *VoteRepository) Update(ctx context.Context, vote *models.Vote, expectedStatus models.VoteStatus, expectedVersion int) error {
	id, err := uuid.Parse(vote.ID)
	if err != nil {
		return fmt.Errorf("invalid vote ID: %w", err)
	}

	writeIn, err := marshalNullable(vote.WriteIn)
	if err != nil {
		return fmt.Errorf("failed to marshal write-in: %w", err)
	}
	checks, _ := json.Marshal(vote.ValidationChecks)
	trail, _ := json.Marshal(vote.AuditTrail)
	challenges, _ := json.Marshal(vote.Challenges)

	result, err := r.db.ExecContext(ctx,
		`UPDATE votes SET voter_id = $4, anonymized = $5, write_in = $6, status = $7,
			validation_checks = $8, audit_trail = $9, challenges = $10,
			counted_at = $11, updated_at = $12, version = version + 1
		 WHERE id = $1 AND status = $2 AND version = $3`,
		id, expectedStatus, expectedVersion,
		vote.VoterID, vote.Anonymized, writeIn, vote.Status,
		checks, trail, challenges, vote.CountedAt, vote.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update vote: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM votes WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check vote existence: %w", err)
		}
		if !exists {
			return errors.ErrNotFound
		}
		return fmt.Errorf("vote %s changed concurrently: %w", vote.ID, errors.ErrStorageConflict)
	}
	return nil
}

// HasBlockingVote reports whether an existing vote blocks a new cast for the
// (election, voter) pair under the configured re-vote policy.
func (r *VoteRepository) HasBlockingVote(ctx context.Context, electionID, voterID string) (bool, error) {
	eid, err := uuid.Parse(electionID)
	if err != nil {
		return false, fmt.Errorf("invalid election ID: %w", err)
	}

	query := `SELECT EXISTS(SELECT 1 FROM votes WHERE election_id = $1 AND voter_id = $2)`
	if r.allowRevote {
		query = `SELECT EXISTS(SELECT 1 FROM votes WHERE election_id = $1 AND voter_id = $2 AND status <> 'invalidated')`
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, eid, voterID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check for existing vote: %w", err)
	}
	return exists, nil
}

// FindByElection returns all votes for an election.
func (r *VoteRepository) FindByElection(ctx context.Context, electionID string) ([]*models.Vote, error) {
	eid, err := uuid.Parse(electionID)
	if err != nil {
		return nil, fmt.Errorf("invalid election ID: %w", err)
	}
	return r.findVotes(ctx,
		`SELECT id, election_id, voter_id, anonymized, candidate_id, write_in, sealed, receipt_hash,
			status, validation_checks, audit_trail, challenges, session, voted_at, counted_at, updated_at, version
		 FROM votes WHERE election_id = $1 ORDER BY voted_at`,
		eid,
	)
}

// FindByVoter returns all votes cast by a voter.
func (r *VoteRepository) FindByVoter(ctx context.Context, voterID string) ([]*models.Vote, error) {
	return r.findVotes(ctx,
		`SELECT id, election_id, voter_id, anonymized, candidate_id, write_in, sealed, receipt_hash,
			status, validation_checks, audit_trail, challenges, session, voted_at, counted_at, updated_at, version
		 FROM votes WHERE voter_id = $1 ORDER BY voted_at`,
		voterID,
	)
}

// CountedByElection returns the election's counted votes for tallying.
func (r *VoteRepository) CountedByElection(ctx context.Context, electionID string) ([]*models.Vote, error) {
	eid, err := uuid.Parse(electionID)
	if err != nil {
		return nil, fmt.Errorf("invalid election ID: %w", err)
	}
	return r.findVotes(ctx,
		`SELECT id, election_id, voter_id, anonymized, candidate_id, write_in, sealed, receipt_hash,
			status, validation_checks, audit_trail, challenges, session, voted_at, counted_at, updated_at, version
		 FROM votes WHERE election_id = $1 AND status = 'counted' ORDER BY voted_at`,
		eid,
	)
}

func (r *VoteRepository) findVotes(ctx context.Context, query string, args ...any) ([]*models.Vote, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var votes []*models.Vote
	for rows.Next() {
		vote, err := scanVote(rows)
		if err != nil {
			return nil, err
		}
		votes = append(votes, vote)
	}
	return votes, rows.Err()
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanVote(row rowScanner) (*models.Vote, error) {
	vote := &models.Vote{}
	var candidateID sql.NullString
	var countedAt sql.NullTime
	var writeIn, sealed, checks, trail, challenges, session []byte

	err := row.Scan(&vote.ID, &vote.ElectionID, &vote.VoterID, &vote.Anonymized, &candidateID,
		&writeIn, &sealed, &vote.ReceiptHash, &vote.Status, &checks, &trail, &challenges,
		&session, &vote.VotedAt, &countedAt, &vote.UpdatedAt, &vote.Version)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan vote: %w", err)
	}

	if candidateID.Valid {
		vote.CandidateID = candidateID.String
	}
	if countedAt.Valid {
		vote.CountedAt = &countedAt.Time
	}
	if len(writeIn) > 0 {
		_ = json.Unmarshal(writeIn, &vote.WriteIn)
	}
	if len(sealed) > 0 {
		_ = json.Unmarshal(sealed, &vote.Sealed)
	}
	if len(checks) > 0 {
		_ = json.Unmarshal(checks, &vote.ValidationChecks)
	}
	if len(trail) > 0 {
		_ = json.Unmarshal(trail, &vote.AuditTrail)
	}
	if len(challenges) > 0 {
		_ = json.Unmarshal(challenges, &vote.Challenges)
	}
	if len(session) > 0 {
		_ = json.Unmarshal(session, &vote.Session)
	}
	return vote, nil
}

func marshalNullable(v any) ([]byte, error) {
	switch t := v.(type) {
	case *models.WriteIn:
		if t == nil {
			return nil, nil
		}
	case *models.SealedBallot:
		if t == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

// =============================================================================
// Election Repository
// =============================================================================

// ElectionRepository implements ledger.ElectionStore.
type ElectionRepository struct {
	db *DB
}

// NewElectionRepository creates a new election repository.
func NewElectionRepository(db *DB) *ElectionRepository {
	return &ElectionRepository{db: db}
}

var _ ledger.ElectionStore = (*ElectionRepository)(nil)

// Create persists a new election.
func (r *ElectionRepository) Create(ctx context.Context, election *models.Election) error {
	id, err := uuid.Parse(election.ID)
	if err != nil {
		return fmt.Errorf("invalid election ID: %w", err)
	}

	candidateIDs, _ := json.Marshal(election.CandidateIDs)
	var results []byte
	if election.Results != nil {
		results, _ = json.Marshal(election.Results)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO elections (id, title, status, start_date, end_date, candidate_ids, allow_write_in,
			total_registered_voters, votes_cast, results, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, election.Title, election.Status, election.StartDate, election.EndDate, candidateIDs,
		election.AllowWriteIn, election.TotalRegisteredVoters, election.VotesCast, results,
		election.CreatedAt, election.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create election: %w", err)
	}
	return nil
}

// Get retrieves an election by ID.
func (r *ElectionRepository) Get(ctx context.Context, id string) (*models.Election, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid election ID: %w", err)
	}

	election := &models.Election{}
	var candidateIDs, results []byte
	err = r.db.QueryRowContext(ctx,
		`SELECT id, title, status, start_date, end_date, candidate_ids, allow_write_in,
			total_registered_voters, votes_cast, results, created_at, updated_at
		 FROM elections WHERE id = $1`,
		uid,
	).Scan(&election.ID, &election.Title, &election.Status, &election.StartDate, &election.EndDate,
		&candidateIDs, &election.AllowWriteIn, &election.TotalRegisteredVoters, &election.VotesCast,
		&results, &election.CreatedAt, &election.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get election: %w", err)
	}

	if len(candidateIDs) > 0 {
		_ = json.Unmarshal(candidateIDs, &election.CandidateIDs)
	}
	if len(results) > 0 {
		_ = json.Unmarshal(results, &election.Results)
	}
	return election, nil
}

// Update updates an existing election's lifecycle fields.
func (r *ElectionRepository) Update(ctx context.Context, election *models.Election) error {
	id, err := uuid.Parse(election.ID)
	if err != nil {
		return fmt.Errorf("invalid election ID: %w", err)
	}

	candidateIDs, _ := json.Marshal(election.CandidateIDs)
	result, err := r.db.ExecContext(ctx,
		`UPDATE elections SET title = $2, status = $3, start_date = $4, end_date = $5,
			candidate_ids = $6, allow_write_in = $7, total_registered_voters = $8, updated_at = $9
		 WHERE id = $1`,
		id, election.Title, election.Status, election.StartDate, election.EndDate,
		candidateIDs, election.AllowWriteIn, election.TotalRegisteredVoters, election.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update election: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// IncrementVotesCast bumps the election's running cast counter atomically.
func (r *ElectionRepository) IncrementVotesCast(ctx context.Context, electionID string) error {
	uid, err := uuid.Parse(electionID)
	if err != nil {
		return fmt.Errorf("invalid election ID: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE elections SET votes_cast = votes_cast + 1, updated_at = NOW() WHERE id = $1`,
		uid,
	)
	if err != nil {
		return fmt.Errorf("failed to increment votes cast: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// UpdateResults stores the recomputed results for an election and reconciles
// the running cast counter with them, healing any increment lost to a
// storage error at count time.
func (r *ElectionRepository) UpdateResults(ctx context.Context, electionID string, results *models.ElectionResults) error {
	uid, err := uuid.Parse(electionID)
	if err != nil {
		return fmt.Errorf("invalid election ID: %w", err)
	}

	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE elections SET results = $2, votes_cast = $3, updated_at = NOW() WHERE id = $1`,
		uid, payload, results.TotalValidVotes,
	)
	if err != nil {
		return fmt.Errorf("failed to update results: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// =============================================================================
// Candidate Repository
// =============================================================================

// CandidateRepository implements candidate persistence.
type CandidateRepository struct {
	db *DB
}

// NewCandidateRepository creates a new candidate repository.
func NewCandidateRepository(db *DB) *CandidateRepository {
	return &CandidateRepository{db: db}
}

// Create persists a new candidate.
func (r *CandidateRepository) Create(ctx context.Context, candidate *models.Candidate) error {
	id, err := uuid.Parse(candidate.ID)
	if err != nil {
		return fmt.Errorf("invalid candidate ID: %w", err)
	}

	electionIDs, _ := json.Marshal(candidate.ElectionIDs)
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO candidates (id, name, election_ids, total_votes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, candidate.Name, electionIDs, candidate.TotalVotes, candidate.CreatedAt, candidate.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create candidate: %w", err)
	}
	return nil
}

// Get retrieves a candidate by ID.
func (r *CandidateRepository) Get(ctx context.Context, id string) (*models.Candidate, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid candidate ID: %w", err)
	}

	candidate := &models.Candidate{}
	var electionIDs []byte
	err = r.db.QueryRowContext(ctx,
		`SELECT id, name, election_ids, total_votes, created_at, updated_at FROM candidates WHERE id = $1`,
		uid,
	).Scan(&candidate.ID, &candidate.Name, &electionIDs, &candidate.TotalVotes, &candidate.CreatedAt, &candidate.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	if len(electionIDs) > 0 {
		_ = json.Unmarshal(electionIDs, &candidate.ElectionIDs)
	}
	return candidate, nil
}

// =============================================================================
// Voter Repository
// =============================================================================

// VoterRepository implements ledger.VoterReader.
type VoterRepository struct {
	db *DB
}

// NewVoterRepository creates a new voter repository.
func NewVoterRepository(db *DB) *VoterRepository {
	return &VoterRepository{db: db}
}

var _ ledger.VoterReader = (*VoterRepository)(nil)

// Create persists a new voter record.
func (r *VoterRepository) Create(ctx context.Context, voter *models.Voter) error {
	votedElections, _ := json.Marshal(voter.VotedElections)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO voters (id, eligible, age, registered, role, voted_elections)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		voter.ID, voter.Eligible, voter.Age, voter.Registered, voter.Role, votedElections,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return fmt.Errorf("voter %s already exists: %w", voter.ID, errors.ErrConflict)
		}
		return fmt.Errorf("failed to create voter: %w", err)
	}
	return nil
}

// Get retrieves a voter by ID.
func (r *VoterRepository) Get(ctx context.Context, id string) (*models.Voter, error) {
	voter := &models.Voter{}
	var votedElections []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT id, eligible, age, registered, role, voted_elections FROM voters WHERE id = $1`,
		id,
	).Scan(&voter.ID, &voter.Eligible, &voter.Age, &voter.Registered, &voter.Role, &votedElections)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get voter: %w", err)
	}
	if len(votedElections) > 0 {
		_ = json.Unmarshal(votedElections, &voter.VotedElections)
	}
	return voter, nil
}

// Update updates an existing voter record.
func (r *VoterRepository) Update(ctx context.Context, voter *models.Voter) error {
	votedElections, _ := json.Marshal(voter.VotedElections)
	result, err := r.db.ExecContext(ctx,
		`UPDATE voters SET eligible = $2, age = $3, registered = $4, role = $5, voted_elections = $6, updated_at = NOW()
		 WHERE id = $1`,
		voter.ID, voter.Eligible, voter.Age, voter.Registered, voter.Role, votedElections,
	)
	if err != nil {
		return fmt.Errorf("failed to update voter: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// =============================================================================
// Audit Log Repository
// =============================================================================

// AuditLogRepository implements audit.Repository.
type AuditLogRepository struct {
	db *DB
}

// NewAuditLogRepository creates a new audit log repository.
func NewAuditLogRepository(db *DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

var _ audit.Repository = (*AuditLogRepository)(nil)

// Create persists a new audit log entry.
func (r *AuditLogRepository) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	id, err := uuid.Parse(entry.ID)
	if err != nil {
		return fmt.Errorf("invalid audit log entry ID: %w", err)
	}

	actor, _ := json.Marshal(entry.Actor)
	security, _ := json.Marshal(entry.Security)
	compliance, _ := json.Marshal(entry.Compliance)
	var request, metadata []byte
	if entry.Request != nil {
		request, _ = json.Marshal(entry.Request)
	}
	if entry.Metadata != nil {
		metadata, _ = json.Marshal(entry.Metadata)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, timestamp, action, category, entity_type, entity_id, actor_id, actor,
			request, detail, risk_level, requires_review, is_suspicious, security, compliance,
			scheduled_for_deletion, checksum, metadata, deleted)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		id, entry.Timestamp, entry.Action, entry.Category, entry.EntityType, entry.EntityID,
		entry.Actor.ID, actor, request, entry.Detail,
		entry.Security.RiskLevel, entry.Security.RequiresReview, entry.Security.IsSuspicious,
		security, compliance, entry.Compliance.ScheduledForDeletion, entry.Integrity.Checksum,
		metadata, entry.Deleted,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log entry: %w", err)
	}
	return nil
}

// Get retrieves an audit log entry by ID.
func (r *AuditLogRepository) Get(ctx context.Context, id string) (*models.AuditLogEntry, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid audit log entry ID: %w", err)
	}

	entry := &models.AuditLogEntry{}
	var entityType, entityID, detail sql.NullString
	var actor, request, security, compliance, metadata []byte
	err = r.db.QueryRowContext(ctx,
		`SELECT id, timestamp, action, category, entity_type, entity_id, actor, request, detail,
			security, compliance, checksum, metadata, deleted
		 FROM audit_log WHERE id = $1`,
		uid,
	).Scan(&entry.ID, &entry.Timestamp, &entry.Action, &entry.Category, &entityType, &entityID,
		&actor, &request, &detail, &security, &compliance, &entry.Integrity.Checksum, &metadata, &entry.Deleted)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log entry: %w", err)
	}

	if entityType.Valid {
		entry.EntityType = entityType.String
	}
	if entityID.Valid {
		entry.EntityID = entityID.String
	}
	if detail.Valid {
		entry.Detail = detail.String
	}
	if len(actor) > 0 {
		_ = json.Unmarshal(actor, &entry.Actor)
	}
	if len(request) > 0 {
		_ = json.Unmarshal(request, &entry.Request)
	}
	if len(security) > 0 {
		_ = json.Unmarshal(security, &entry.Security)
	}
	if len(compliance) > 0 {
		_ = json.Unmarshal(compliance, &entry.Compliance)
	}
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &entry.Metadata)
	}
	return entry, nil
}

// Query retrieves audit log entries matching criteria.
func (r *AuditLogRepository) Query(ctx context.Context, query audit.QueryParams) ([]*models.AuditLogEntry, error) {
	baseQuery := `SELECT id FROM audit_log WHERE 1=1`
	args, baseQuery := appendFilters(baseQuery, query)

	baseQuery += " ORDER BY timestamp DESC"
	argIdx := len(args) + 1
	if query.Limit > 0 {
		baseQuery += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, query.Limit)
		argIdx++
	}
	if query.Offset > 0 {
		baseQuery += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, query.Offset)
	}

	rows, err := r.db.QueryContext(ctx, baseQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*models.AuditLogEntry
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan audit log entry ID: %w", err)
		}
		entry, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Count returns the count of entries matching criteria.
func (r *AuditLogRepository) Count(ctx context.Context, query audit.QueryParams) (int64, error) {
	baseQuery := `SELECT COUNT(*) FROM audit_log WHERE 1=1`
	args, baseQuery := appendFilters(baseQuery, query)

	var count int64
	if err := r.db.QueryRowContext(ctx, baseQuery, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audit log entries: %w", err)
	}
	return count, nil
}

// MarkDeleted soft-deletes entries past their retention cutoff and returns
// how many were flagged.
func (r *AuditLogRepository) MarkDeleted(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE audit_log SET deleted = TRUE WHERE NOT deleted AND scheduled_for_deletion <= $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark expired entries: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count marked entries: %w", err)
	}
	return rows, nil
}

func appendFilters(baseQuery string, query audit.QueryParams) ([]any, string) {
	args := []any{}
	argIdx := 1

	if query.Action != "" {
		baseQuery += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, query.Action)
		argIdx++
	}
	if query.Category != "" {
		baseQuery += fmt.Sprintf(" AND category = $%d", argIdx)
		args = append(args, query.Category)
		argIdx++
	}
	if query.EntityType != "" {
		baseQuery += fmt.Sprintf(" AND entity_type = $%d", argIdx)
		args = append(args, query.EntityType)
		argIdx++
	}
	if query.EntityID != "" {
		baseQuery += fmt.Sprintf(" AND entity_id = $%d", argIdx)
		args = append(args, query.EntityID)
		argIdx++
	}
	if query.ActorID != "" {
		baseQuery += fmt.Sprintf(" AND actor_id = $%d", argIdx)
		args = append(args, query.ActorID)
		argIdx++
	}
	if query.RiskLevel != "" {
		baseQuery += fmt.Sprintf(" AND risk_level = $%d", argIdx)
		args = append(args, query.RiskLevel)
		argIdx++
	}
	if query.RequiresReview != nil {
		baseQuery += fmt.Sprintf(" AND requires_review = $%d", argIdx)
		args = append(args, *query.RequiresReview)
		argIdx++
	}
	if query.IsSuspicious != nil {
		baseQuery += fmt.Sprintf(" AND is_suspicious = $%d", argIdx)
		args = append(args, *query.IsSuspicious)
		argIdx++
	}
	if !query.Since.IsZero() {
		baseQuery += fmt.Sprintf(" AND timestamp >= $%d", argIdx)
		args = append(args, query.Since)
		argIdx++
	}
	if !query.Until.IsZero() {
		baseQuery += fmt.Sprintf(" AND timestamp <= $%d", argIdx)
		args = append(args, query.Until)
		argIdx++
	}
	if !query.IncludeDeleted {
		baseQuery += " AND NOT deleted"
	}
	return args, baseQuery
}
