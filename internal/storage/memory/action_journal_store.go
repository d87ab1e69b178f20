package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-desk/internal/domain"
	"solana-token-desk/internal/storage"
)

// ActionJournalStore is an in-memory implementation of storage.ActionJournalStore.
type ActionJournalStore struct {
	mu    sync.RWMutex
	data  map[string]*domain.JournalEntry // keyed by entry_id
	bySig map[string]string               // signature -> entry_id
}

// NewActionJournalStore creates a new in-memory action journal store.
func NewActionJournalStore() *ActionJournalStore {
	return &ActionJournalStore{
		data:  make(map[string]*domain.JournalEntry),
		bySig: make(map[string]string),
	}
}

// Insert adds a new entry. Returns ErrDuplicateKey if entry_id exists.
func (s *ActionJournalStore) Insert(_ context.Context, e *domain.JournalEntry) error {
	if e == nil || e.EntryID == "" || e.Kind == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.EntryID]; exists {
		return storage.ErrDuplicateKey
	}

	entryCopy := *e
	s.data[e.EntryID] = &entryCopy
	if e.Signature != nil {
		s.bySig[*e.Signature] = e.EntryID
	}
	return nil
}

// GetByID retrieves an entry by its ID. Returns ErrNotFound if not exists.
func (s *ActionJournalStore) GetByID(_ context.Context, entryID string) (*domain.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[entryID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	entryCopy := *e
	return &entryCopy, nil
}

// GetBySignature retrieves an entry by transaction signature. Returns ErrNotFound if not exists.
func (s *ActionJournalStore) GetBySignature(_ context.Context, signature string) (*domain.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.bySig[signature]
	if !exists {
		return nil, storage.ErrNotFound
	}

	entryCopy := *s.data[id]
	return &entryCopy, nil
}

// ListRecent retrieves up to limit entries, ordered by started_at DESC.
func (s *ActionJournalStore) ListRecent(_ context.Context, limit int) ([]*domain.JournalEntry, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.JournalEntry, 0, len(s.data))
	for _, e := range s.data {
		entryCopy := *e
		result = append(result, &entryCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAt != result[j].StartedAt {
			return result[i].StartedAt > result[j].StartedAt
		}
		return result[i].EntryID < result[j].EntryID
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// ListPending retrieves entries in INDETERMINATE state, ordered by started_at ASC.
func (s *ActionJournalStore) ListPending(_ context.Context) ([]*domain.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.JournalEntry
	for _, e := range s.data {
		if e.Pending() {
			entryCopy := *e
			result = append(result, &entryCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt < result[j].StartedAt
	})

	return result, nil
}

// Resolve moves an INDETERMINATE entry to a final state.
func (s *ActionJournalStore) Resolve(_ context.Context, entryID string, state domain.ActionState, finishedAt int64) error {
	if state == domain.ActionStateIndeterminate || state == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.data[entryID]
	if !exists || !e.Pending() {
		return storage.ErrNotFound
	}

	e.State = state
	e.FinishedAt = finishedAt
	return nil
}

var _ storage.ActionJournalStore = (*ActionJournalStore)(nil)
