package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Om7972/votesecure-online-sub000/pkg/errors"
	"github.com/Om7972/votesecure-online-sub000/pkg/models"
)

// ElectionStore is an in-memory election store.
type ElectionStore struct {
	mu        sync.Mutex
	elections map[string]*models.Election
}

func NewElectionStore(elections ...*models.Election) *ElectionStore {
	store := &ElectionStore{elections: make(map[string]*models.Election)}
	for _, e := range elections {
		cp := *e
		store.elections[e.ID] = &cp
	}
	return store
}

// Put seeds or replaces an election.
func (m *ElectionStore) Put(election *models.Election) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *election
	m.elections[election.ID] = &cp
}

func (m *ElectionStore) Get(ctx context.Context, id string) (*models.Election, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	election, ok := m.elections[id]
	if !ok {
		return nil, fmt.Errorf("election %s: %w", id, errors.ErrNotFound)
	}
	cp := *election
	return &cp, nil
}

func (m *ElectionStore) IncrementVotesCast(ctx context.Context, electionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	election, ok := m.elections[electionID]
	if !ok {
		return fmt.Errorf("election %s: %w", electionID, errors.ErrNotFound)
	}
	election.VotesCast++
	return nil
}

func (m *ElectionStore) UpdateResults(ctx context.Context, electionID string, results *models.ElectionResults) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	election, ok := m.elections[electionID]
	if !ok {
		return fmt.Errorf("election %s: %w", electionID, errors.ErrNotFound)
	}
	election.Results = results
	// Matches the postgres repository: recompute reconciles the counter.
	election.VotesCast = results.TotalValidVotes
	return nil
}

// VoterReader is an in-memory voter directory.
type VoterReader struct {
	mu     sync.Mutex
	voters map[string]*models.Voter
}

func NewVoterReader(voters ...*models.Voter) *VoterReader {
	reader := &VoterReader{voters: make(map[string]*models.Voter)}
	for _, v := range voters {
		cp := *v
		reader.voters[v.ID] = &cp
	}
	return reader
}

// Put seeds or replaces a voter.
func (m *VoterReader) Put(voter *models.Voter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *voter
	m.voters[voter.ID] = &cp
}

func (m *VoterReader) Get(ctx context.Context, id string) (*models.Voter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	voter, ok := m.voters[id]
	if !ok {
		return nil, fmt.Errorf("voter %s: %w", id, errors.ErrNotFound)
	}
	cp := *voter
	return &cp, nil
}

// CandidateReader is an in-memory candidate directory.
type CandidateReader struct {
	mu         sync.Mutex
	candidates map[string]*models.Candidate
}

func NewCandidateReader(candidates ...*models.Candidate) *CandidateReader {
	reader := &CandidateReader{candidates: make(map[string]*models.Candidate)}
	for _, c := range candidates {
		cp := *c
		reader.candidates[c.ID] = &cp
	}
	return reader
}

func (m *CandidateReader) Get(ctx context.Context, id string) (*models.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidate, ok := m.candidates[id]
	if !ok {
		return nil, fmt.Errorf("candidate %s: %w", id, errors.ErrNotFound)
	}
	cp := *candidate
	return &cp, nil
}
