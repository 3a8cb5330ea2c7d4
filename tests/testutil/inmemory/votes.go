// Package inmemory provides in-memory repository implementations for testing.
package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Om7972/votesecure-online-sub000/pkg/errors"
	"github.com/Om7972/votesecure-online-sub000/pkg/models"
)

// VoteRepository is an in-memory vote store mirroring the postgres
// repository's uniqueness and optimistic-concurrency semantics.
type VoteRepository struct {
	mu sync.Mutex
	// AllowRevote mirrors the re-vote-after-invalidation storage policy.
	AllowRevote bool
	// FailNext makes the next write return this error once.
	FailNext error
	votes    map[string]*models.Vote
	order    []string
}

func NewVoteRepository() *VoteRepository {
	return &VoteRepository{votes: make(map[string]*models.Vote)}
}

func (m *VoteRepository) takeFailure() error {
	err := m.FailNext
	m.FailNext = nil
	return err
}

func (m *VoteRepository) Create(ctx context.Context, vote *models.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return err
	}

	for _, existing := range m.votes {
		if existing.ElectionID != vote.ElectionID || existing.VoterID != vote.VoterID {
			continue
		}
		if m.AllowRevote && existing.Status == models.VoteStatusInvalidated {
			continue
		}
		return fmt.Errorf("vote for election %s by voter already recorded: %w",
			vote.ElectionID, errors.ErrDuplicateVote)
	}

	cp := *vote
	m.votes[vote.ID] = &cp
	m.order = append(m.order, vote.ID)
	return nil
}

func (m *VoteRepository) Get(ctx context.Context, id string) (*models.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	vote, ok := m.votes[id]
	if !ok {
		return nil, fmt.Errorf("vote %s: %w", id, errors.ErrNotFound)
	}
	cp := *vote
	return &cp, nil
}

func (m *VoteRepository) Update(ctx context.Context, vote *models.Vote, expectedStatus models.VoteStatus, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return err
	}

	existing, ok := m.votes[vote.ID]
	if !ok {
		return fmt.Errorf("vote %s: %w", vote.ID, errors.ErrNotFound)
	}
	if existing.Status != expectedStatus || existing.Version != expectedVersion {
		return fmt.Errorf("vote %s changed concurrently: %w", vote.ID, errors.ErrStorageConflict)
	}

	cp := *vote
	cp.Version = expectedVersion + 1
	m.votes[vote.ID] = &cp
	return nil
}

func (m *VoteRepository) HasBlockingVote(ctx context.Context, electionID, voterID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, v := range m.votes {
		if v.ElectionID != electionID || v.VoterID != voterID {
			continue
		}
		if m.AllowRevote && v.Status == models.VoteStatusInvalidated {
			continue
		}
		return true, nil
	}
	return false, nil
}

func (m *VoteRepository) FindByElection(ctx context.Context, electionID string) ([]*models.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*models.Vote
	for _, id := range m.order {
		if v := m.votes[id]; v.ElectionID == electionID {
			cp := *v
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *VoteRepository) FindByVoter(ctx context.Context, voterID string) ([]*models.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*models.Vote
	for _, id := range m.order {
		if v := m.votes[id]; v.VoterID == voterID {
			cp := *v
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *VoteRepository) CountedByElection(ctx context.Context, electionID string) ([]*models.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*models.Vote
	for _, id := range m.order {
		if v := m.votes[id]; v.ElectionID == electionID && v.Status == models.VoteStatusCounted {
			cp := *v
			result = append(result, &cp)
		}
	}
	return result, nil
}
