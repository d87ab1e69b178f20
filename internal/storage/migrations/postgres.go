package migrations

import (
	"context"
	"fmt"

	"solana-token-desk/internal/storage/postgres"
)

// RunPostgresMigrations applies the journal and token registry schema.
// Every file uses IF NOT EXISTS, so running it on each start is safe.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := sqlFiles(PostgresFS, "postgres")
	if err != nil {
		return err
	}
	for _, m := range files {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
	}
	return nil
}
