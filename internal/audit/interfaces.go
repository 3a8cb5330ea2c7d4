// Package audit handles immutable audit logging with risk classification and
// retention metadata.
package audit

import (
	"context"
	"time"

	"github.com/Om7972/votesecure-online-sub000/pkg/models"
)

// Repository defines audit log persistence operations.
type Repository interface {
	// Create persists a new audit log entry.
	Create(ctx context.Context, entry *models.AuditLogEntry) error
	// Get retrieves an audit log entry by ID.
	Get(ctx context.Context, id string) (*models.AuditLogEntry, error)
	// Query retrieves entries matching criteria.
	Query(ctx context.Context, query QueryParams) ([]*models.AuditLogEntry, error)
	// Count returns the count of entries matching criteria.
	Count(ctx context.Context, query QueryParams) (int64, error)
	// MarkDeleted soft-deletes entries whose scheduled deletion is at or
	// before the cutoff; it returns how many were flagged. Entries are never
	// physically removed.
	MarkDeleted(ctx context.Context, cutoff time.Time) (int64, error)
}

// QueryParams defines audit log query parameters.
type QueryParams struct {
	Action         models.AuditAction
	Category       models.AuditCategory
	EntityType     string
	EntityID       string
	ActorID        string
	RiskLevel      models.RiskLevel
	RequiresReview *bool
	IsSuspicious   *bool
	Since          time.Time
	Until          time.Time
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// Event is the classifier's view of a security-relevant occurrence: the
// action plus whatever request surface it arrived on.
type Event struct {
	Action     models.AuditAction
	ActorRole  string
	Method     string
	Path       string
	Query      string
	Body       string
	StatusCode int
}

// Classifier assigns severity and review flags to events.
type Classifier interface {
	// Classify produces the security block for an event.
	Classify(event Event) models.SecurityInfo
}

// Stats summarizes recorded audit activity.
type Stats struct {
	TotalEntries    int64
	ByCategory      map[models.AuditCategory]int64
	ByRiskLevel     map[models.RiskLevel]int64
	RequiringReview int64
	SuspiciousCount int64
	UniqueActors    int64
	TimeRange       time.Duration
}

// Service records, queries, and maintains the system-wide audit log.
type Service interface {
	// Record classifies, enriches, and persists an audit log entry. It fills
	// ID, timestamp, category, security, compliance, and integrity blocks.
	Record(ctx context.Context, entry *models.AuditLogEntry) error
	// Get retrieves a single entry.
	Get(ctx context.Context, id string) (*models.AuditLogEntry, error)
	// Query retrieves entries.
	Query(ctx context.Context, query QueryParams) ([]*models.AuditLogEntry, error)
	// FindSuspiciousActivity returns the standing review worklist for the
	// trailing window.
	FindSuspiciousActivity(ctx context.Context, hours int) ([]*models.AuditLogEntry, error)
	// VerifyEntry recomputes an entry's checksum and reports whether it
	// still matches.
	VerifyEntry(ctx context.Context, id string) (bool, error)
	// PurgeExpired soft-deletes entries past their retention period.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
	// GetStats summarizes activity since the given time.
	GetStats(ctx context.Context, since time.Time) (*Stats, error)
}
