package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Om7972/votesecure-online-sub000/internal/audit"
	"github.com/Om7972/votesecure-online-sub000/pkg/errors"
	"github.com/Om7972/votesecure-online-sub000/pkg/models"
)

// AuditRepository is an in-memory audit log honoring the soft-delete and
// filter semantics of the postgres repository.
type AuditRepository struct {
	mu      sync.Mutex
	entries []*models.AuditLogEntry
	deleted map[string]bool
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{deleted: make(map[string]bool)}
}

func (m *AuditRepository) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *entry
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *AuditRepository) Get(ctx context.Context, id string) (*models.AuditLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("audit entry %s: %w", id, errors.ErrNotFound)
}

func (m *AuditRepository) Query(ctx context.Context, query audit.QueryParams) ([]*models.AuditLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := m.filter(query)

	// Newest first, like the SQL ORDER BY timestamp DESC
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}

	if query.Offset > 0 {
		if query.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[query.Offset:]
	}
	if query.Limit > 0 && len(matched) > query.Limit {
		matched = matched[:query.Limit]
	}

	result := make([]*models.AuditLogEntry, len(matched))
	for i, e := range matched {
		cp := *e
		result[i] = &cp
	}
	return result, nil
}

func (m *AuditRepository) Count(ctx context.Context, query audit.QueryParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.filter(query))), nil
}

func (m *AuditRepository) MarkDeleted(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var flagged int64
	for _, e := range m.entries {
		if m.deleted[e.ID] {
			continue
		}
		if !e.Compliance.ScheduledForDeletion.After(cutoff) {
			m.deleted[e.ID] = true
			flagged++
		}
	}
	return flagged, nil
}

func (m *AuditRepository) filter(query audit.QueryParams) []*models.AuditLogEntry {
	var matched []*models.AuditLogEntry
	for _, e := range m.entries {
		if m.deleted[e.ID] && !query.IncludeDeleted {
			continue
		}
		if query.Action != "" && e.Action != query.Action {
			continue
		}
		if query.Category != "" && e.Category != query.Category {
			continue
		}
		if query.EntityType != "" && e.EntityType != query.EntityType {
			continue
		}
		if query.EntityID != "" && e.EntityID != query.EntityID {
			continue
		}
		if query.ActorID != "" && e.Actor.ID != query.ActorID {
			continue
		}
		if query.RiskLevel != "" && e.Security.RiskLevel != query.RiskLevel {
			continue
		}
		if query.RequiresReview != nil && e.Security.RequiresReview != *query.RequiresReview {
			continue
		}
		if query.IsSuspicious != nil && e.Security.IsSuspicious != *query.IsSuspicious {
			continue
		}
		if !query.Since.IsZero() && e.Timestamp.Before(query.Since) {
			continue
		}
		if !query.Until.IsZero() && e.Timestamp.After(query.Until) {
			continue
		}
		matched = append(matched, e)
	}
	return matched
}

// IsDeleted reports whether the entry was soft-deleted.
func (m *AuditRepository) IsDeleted(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleted[id]
}

// AuditRecorder captures system audit entries emitted by ledger operations.
type AuditRecorder struct {
	mu      sync.Mutex
	Entries []*models.AuditLogEntry
}

func NewAuditRecorder() *AuditRecorder {
	return &AuditRecorder{}
}

func (m *AuditRecorder) Record(ctx context.Context, entry *models.AuditLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.Entries = append(m.Entries, &cp)
	return nil
}

// Actions returns the recorded actions in order.
func (m *AuditRecorder) Actions() []models.AuditAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	actions := make([]models.AuditAction, len(m.Entries))
	for i, e := range m.Entries {
		actions[i] = e.Action
	}
	return actions
}
