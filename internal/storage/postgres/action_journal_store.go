package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-token-desk/internal/domain"
	"solana-token-desk/internal/storage"
)

// ActionJournalStore implements storage.ActionJournalStore using PostgreSQL.
type ActionJournalStore struct {
	pool *Pool
}

// NewActionJournalStore creates a new ActionJournalStore.
func NewActionJournalStore(pool *Pool) *ActionJournalStore {
	return &ActionJournalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ActionJournalStore = (*ActionJournalStore)(nil)

const journalColumns = `
	entry_id, kind, state, owner, mint, recipient, amount,
	signature, error_kind, error_msg, started_at, finished_at`

// Insert adds a new entry. Returns ErrDuplicateKey if entry_id exists.
func (s *ActionJournalStore) Insert(ctx context.Context, e *domain.JournalEntry) error {
	if e == nil || e.EntryID == "" || e.Kind == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO action_journal (`+journalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		e.EntryID, e.Kind, string(e.State), e.Owner, e.Mint, e.Recipient, e.Amount,
		e.Signature, e.ErrorKind, e.ErrorMsg, e.StartedAt, e.FinishedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// GetByID retrieves an entry by its ID. Returns ErrNotFound if not exists.
func (s *ActionJournalStore) GetByID(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+journalColumns+`
		FROM action_journal
		WHERE entry_id = $1
	`, entryID)

	e, err := scanJournalEntry(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get journal entry: %w", err)
	}
	return e, nil
}

// GetBySignature retrieves an entry by transaction signature. Returns ErrNotFound if not exists.
func (s *ActionJournalStore) GetBySignature(ctx context.Context, signature string) (*domain.JournalEntry, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+journalColumns+`
		FROM action_journal
		WHERE signature = $1
		LIMIT 1
	`, signature)

	e, err := scanJournalEntry(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get journal entry by signature: %w", err)
	}
	return e, nil
}

// ListRecent retrieves up to limit entries, ordered by started_at DESC.
func (s *ActionJournalStore) ListRecent(ctx context.Context, limit int) ([]*domain.JournalEntry, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+journalColumns+`
		FROM action_journal
		ORDER BY started_at DESC, entry_id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	return scanJournalEntries(rows)
}

// ListPending retrieves entries in INDETERMINATE state, ordered by started_at ASC.
func (s *ActionJournalStore) ListPending(ctx context.Context) ([]*domain.JournalEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+journalColumns+`
		FROM action_journal
		WHERE state = $1
		ORDER BY started_at ASC
	`, string(domain.ActionStateIndeterminate))
	if err != nil {
		return nil, fmt.Errorf("list pending journal entries: %w", err)
	}
	defer rows.Close()

	return scanJournalEntries(rows)
}

// Resolve moves an INDETERMINATE entry to a final state.
func (s *ActionJournalStore) Resolve(ctx context.Context, entryID string, state domain.ActionState, finishedAt int64) error {
	if state == domain.ActionStateIndeterminate || state == "" {
		return storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE action_journal
		SET state = $2, finished_at = $3
		WHERE entry_id = $1 AND state = $4
	`, entryID, string(state), finishedAt, string(domain.ActionStateIndeterminate))
	if err != nil {
		return fmt.Errorf("resolve journal entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanJournalEntry(row pgx.Row) (*domain.JournalEntry, error) {
	var e domain.JournalEntry
	var state string
	err := row.Scan(
		&e.EntryID, &e.Kind, &state, &e.Owner, &e.Mint, &e.Recipient, &e.Amount,
		&e.Signature, &e.ErrorKind, &e.ErrorMsg, &e.StartedAt, &e.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	e.State = domain.ActionState(state)
	return &e, nil
}

func scanJournalEntries(rows pgx.Rows) ([]*domain.JournalEntry, error) {
	var result []*domain.JournalEntry
	for rows.Next() {
		e, err := scanJournalEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
