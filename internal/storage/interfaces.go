package storage

import (
	"context"

	"solana-token-desk/internal/domain"
)

// ActionJournalStore provides access to action_journal storage.
// Entries are append-only except for resolving an indeterminate outcome.
type ActionJournalStore interface {
	// Insert adds a new entry. Returns ErrDuplicateKey if entry_id exists.
	Insert(ctx context.Context, e *domain.JournalEntry) error

	// GetByID retrieves an entry by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, entryID string) (*domain.JournalEntry, error)

	// GetBySignature retrieves an entry by transaction signature. Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, signature string) (*domain.JournalEntry, error)

	// ListRecent retrieves up to limit entries, ordered by started_at DESC.
	ListRecent(ctx context.Context, limit int) ([]*domain.JournalEntry, error)

	// ListPending retrieves entries in INDETERMINATE state, ordered by started_at ASC.
	ListPending(ctx context.Context) ([]*domain.JournalEntry, error)

	// Resolve moves an INDETERMINATE entry to a final state.
	// Returns ErrNotFound if no pending entry has entryID.
	Resolve(ctx context.Context, entryID string, state domain.ActionState, finishedAt int64) error
}

// TokenMetadataStore provides access to token_metadata storage.
type TokenMetadataStore interface {
	// Insert adds new metadata. Returns ErrDuplicateKey if mint exists.
	Insert(ctx context.Context, m *domain.TokenMetadata) error

	// GetByMint retrieves metadata by mint address. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.TokenMetadata, error)

	// ListByCreator retrieves metadata created by creator, ordered by created_at DESC.
	ListByCreator(ctx context.Context, creator string) ([]*domain.TokenMetadata, error)
}

// EndpointStats aggregates attempts made against one endpoint.
type EndpointStats struct {
	Endpoint     string
	Attempts     int64
	Failures     int64
	AvgLatencyMs float64
}

// EndpointAttemptStore provides access to endpoint_attempts storage.
type EndpointAttemptStore interface {
	// InsertBulk adds multiple attempts.
	InsertBulk(ctx context.Context, attempts []*domain.EndpointAttempt) error

	// GetByTimeRange retrieves attempts within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.EndpointAttempt, error)

	// StatsByEndpoint aggregates attempts within [start, end] per endpoint, ordered by endpoint.
	StatsByEndpoint(ctx context.Context, start, end int64) ([]EndpointStats, error)
}
