package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-desk/internal/domain"
	"solana-token-desk/internal/storage"
)

// DefaultAttemptCapacity is the number of attempts kept by NewEndpointAttemptStore.
const DefaultAttemptCapacity = 10000

// EndpointAttemptStore is an in-memory implementation of storage.EndpointAttemptStore.
// It keeps the most recent attempts in a fixed-size ring; older ones are overwritten.
type EndpointAttemptStore struct {
	mu   sync.RWMutex
	ring []*domain.EndpointAttempt
	next int
	full bool
}

// NewEndpointAttemptStore creates a store holding DefaultAttemptCapacity attempts.
func NewEndpointAttemptStore() *EndpointAttemptStore {
	return NewEndpointAttemptStoreWithCapacity(DefaultAttemptCapacity)
}

// NewEndpointAttemptStoreWithCapacity creates a store holding at most capacity attempts.
// A non-positive capacity falls back to DefaultAttemptCapacity.
func NewEndpointAttemptStoreWithCapacity(capacity int) *EndpointAttemptStore {
	if capacity <= 0 {
		capacity = DefaultAttemptCapacity
	}
	return &EndpointAttemptStore{ring: make([]*domain.EndpointAttempt, capacity)}
}

// InsertBulk adds multiple attempts, evicting the oldest when full.
func (s *EndpointAttemptStore) InsertBulk(_ context.Context, attempts []*domain.EndpointAttempt) error {
	if len(attempts) == 0 {
		return nil
	}

	for _, a := range attempts {
		if a == nil || a.Endpoint == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range attempts {
		attemptCopy := *a
		s.ring[s.next] = &attemptCopy
		s.next++
		if s.next == len(s.ring) {
			s.next = 0
			s.full = true
		}
	}
	return nil
}

// Len returns the number of retained attempts.
func (s *EndpointAttemptStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.full {
		return len(s.ring)
	}
	return s.next
}

// GetByTimeRange retrieves attempts within [start, end] (inclusive), ordered by timestamp ASC.
func (s *EndpointAttemptStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.EndpointAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EndpointAttempt
	for _, a := range s.ring {
		if a != nil && a.TimestampMs >= start && a.TimestampMs <= end {
			attemptCopy := *a
			result = append(result, &attemptCopy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

// StatsByEndpoint aggregates attempts within [start, end] per endpoint, ordered by endpoint.
func (s *EndpointAttemptStore) StatsByEndpoint(ctx context.Context, start, end int64) ([]storage.EndpointStats, error) {
	attempts, err := s.GetByTimeRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	byEndpoint := make(map[string]*storage.EndpointStats)
	latency := make(map[string]int64)
	for _, a := range attempts {
		st, ok := byEndpoint[a.Endpoint]
		if !ok {
			st = &storage.EndpointStats{Endpoint: a.Endpoint}
			byEndpoint[a.Endpoint] = st
		}
		st.Attempts++
		if !a.Success {
			st.Failures++
		}
		latency[a.Endpoint] += a.LatencyMs
	}

	result := make([]storage.EndpointStats, 0, len(byEndpoint))
	for ep, st := range byEndpoint {
		st.AvgLatencyMs = float64(latency[ep]) / float64(st.Attempts)
		result = append(result, *st)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Endpoint < result[j].Endpoint
	})

	return result, nil
}

var _ storage.EndpointAttemptStore = (*EndpointAttemptStore)(nil)
