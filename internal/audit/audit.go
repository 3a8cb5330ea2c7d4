package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Om7972/votesecure-online-sub000/pkg/errors"
	"github.com/Om7972/votesecure-online-sub000/pkg/models"
)

// retentionDays maps data sensitivity to the number of days an entry must be
// preserved before it may be soft-deleted.
var retentionDays = map[models.Sensitivity]int{
	models.SensitivityPublic:       365,
	models.SensitivityInternal:     1095,
	models.SensitivityConfidential: 1825,
	models.SensitivityRestricted:   2555,
}

// categorySensitivity classifies the data each event category touches.
var categorySensitivity = map[models.AuditCategory]models.Sensitivity{
	models.CategorySystem:    models.SensitivityPublic,
	models.CategoryAuth:      models.SensitivityInternal,
	models.CategoryUser:      models.SensitivityInternal,
	models.CategoryElection:  models.SensitivityInternal,
	models.CategoryCandidate: models.SensitivityInternal,
	models.CategoryAdmin:     models.SensitivityConfidential,
	models.CategoryVoting:    models.SensitivityRestricted,
	models.CategorySecurity:  models.SensitivityRestricted,
}

const maxUserAgentLen = 256

// NewService creates a new audit service.
func NewService(repo Repository, classifier Classifier) Service {
	if classifier == nil {
		classifier = NewClassifier()
	}
	return &serviceImpl{repo: repo, classifier: classifier, now: time.Now}
}

type serviceImpl struct {
	repo       Repository
	classifier Classifier
	now        func() time.Time
}

func (s *serviceImpl) Record(ctx context.Context, entry *models.AuditLogEntry) error {
	if entry.Action == "" {
		return fmt.Errorf("action is required: %w", errors.ErrInvalidInput)
	}
	if entry.Actor.ID == "" {
		return fmt.Errorf("actor is required: %w", errors.ErrInvalidInput)
	}

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now().UTC()
	}
	// Postgres stores timestamps at microsecond resolution; checksum the
	// value as it will read back so verification survives the round trip.
	entry.Timestamp = entry.Timestamp.UTC().Truncate(time.Microsecond)
	entry.Category = models.ActionCategory(entry.Action)

	entry.Actor.IPAddress = RedactIP(entry.Actor.IPAddress)
	entry.Actor.UserAgent = redactUserAgent(entry.Actor.UserAgent)

	event := Event{Action: entry.Action, ActorRole: entry.Actor.Role}
	if entry.Request != nil {
		event.Method = entry.Request.Method
		event.Path = entry.Request.Path
		event.Query = entry.Request.Query
		event.StatusCode = entry.Request.StatusCode
	}
	entry.Security = s.classifier.Classify(event)

	sensitivity := categorySensitivity[entry.Category]
	if sensitivity == "" {
		sensitivity = models.SensitivityRestricted
	}
	days := retentionDays[sensitivity]
	entry.Compliance = models.ComplianceInfo{
		Sensitivity:          sensitivity,
		RetentionDays:        days,
		ScheduledForDeletion: entry.Timestamp.AddDate(0, 0, days),
	}

	entry.Integrity = models.IntegrityInfo{Checksum: Checksum(entry)}

	if err := s.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to create audit log entry: %w", err)
	}
	return nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (*models.AuditLogEntry, error) {
	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log entry: %w", err)
	}
	return entry, nil
}

func (s *serviceImpl) Query(ctx context.Context, query QueryParams) ([]*models.AuditLogEntry, error) {
	entries, err := s.repo.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	return entries, nil
}

func (s *serviceImpl) FindSuspiciousActivity(ctx context.Context, hours int) ([]*models.AuditLogEntry, error) {
	if hours <= 0 {
		hours = 24
	}
	review := true
	entries, err := s.repo.Query(ctx, QueryParams{
		RequiresReview: &review,
		Since:          s.now().UTC().Add(-time.Duration(hours) * time.Hour),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query suspicious activity: %w", err)
	}
	return entries, nil
}

func (s *serviceImpl) VerifyEntry(ctx context.Context, id string) (bool, error) {
	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to get audit log entry: %w", err)
	}
	return entry.Integrity.Checksum == Checksum(entry), nil
}

func (s *serviceImpl) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	flagged, err := s.repo.MarkDeleted(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to mark expired entries: %w", err)
	}
	if flagged > 0 {
		sweep := &models.AuditLogEntry{
			Action: models.ActionRetentionSweep,
			Actor:  models.ActorInfo{ID: "system"},
			Detail: fmt.Sprintf("%d entries soft-deleted", flagged),
		}
		if err := s.Record(ctx, sweep); err != nil {
			return flagged, fmt.Errorf("failed to record retention sweep: %w", err)
		}
	}
	return flagged, nil
}

func (s *serviceImpl) GetStats(ctx context.Context, since time.Time) (*Stats, error) {
	entries, err := s.repo.Query(ctx, QueryParams{Since: since, Limit: 10000})
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}

	stats := &Stats{
		TotalEntries: int64(len(entries)),
		ByCategory:   make(map[models.AuditCategory]int64),
		ByRiskLevel:  make(map[models.RiskLevel]int64),
		TimeRange:    time.Since(since),
	}

	actorSet := make(map[string]struct{})
	for _, e := range entries {
		stats.ByCategory[e.Category]++
		stats.ByRiskLevel[e.Security.RiskLevel]++
		if e.Security.RequiresReview {
			stats.RequiringReview++
		}
		if e.Security.IsSuspicious {
			stats.SuspiciousCount++
		}
		actorSet[e.Actor.ID] = struct{}{}
	}
	stats.UniqueActors = int64(len(actorSet))

	return stats, nil
}

// Checksum computes the SHA-256 digest of the entry's own content. The
// security and compliance blocks are included so post-hoc reclassification
// is detectable; the integrity block itself is not.
func Checksum(entry *models.AuditLogEntry) string {
	h := sha256.New()
	h.Write([]byte(entry.ID))
	h.Write([]byte(entry.Timestamp.UTC().Format(time.RFC3339Nano)))
	h.Write([]byte(entry.Action))
	h.Write([]byte(entry.Category))
	h.Write([]byte(entry.EntityType))
	h.Write([]byte(entry.EntityID))
	h.Write([]byte(entry.Actor.ID))
	h.Write([]byte(entry.Actor.Role))
	h.Write([]byte(entry.Actor.IPAddress))
	h.Write([]byte(entry.Detail))
	h.Write([]byte(entry.Security.RiskLevel))
	h.Write([]byte(fmt.Sprintf("%t|%t", entry.Security.RequiresReview, entry.Security.IsSuspicious)))
	h.Write([]byte(entry.Compliance.Sensitivity))
	return hex.EncodeToString(h.Sum(nil))
}

// RedactIP masks the host portion of an address: the last octet for IPv4,
// everything past the second group for IPv6.
func RedactIP(ip string) string {
	if ip == "" {
		return ""
	}
	if strings.Contains(ip, ":") {
		groups := strings.Split(ip, ":")
		if len(groups) > 2 {
			return groups[0] + ":" + groups[1] + "::xxxx"
		}
		return ip
	}
	octets := strings.Split(ip, ".")
	if len(octets) == 4 {
		return strings.Join(octets[:3], ".") + ".xxx"
	}
	return ip
}

func redactUserAgent(ua string) string {
	if len(ua) > maxUserAgentLen {
		return ua[:maxUserAgentLen]
	}
	return ua
}
