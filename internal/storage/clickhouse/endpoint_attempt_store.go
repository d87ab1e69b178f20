package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"solana-token-desk/internal/domain"
	"solana-token-desk/internal/storage"
)

// EndpointAttemptStore implements storage.EndpointAttemptStore using ClickHouse.
type EndpointAttemptStore struct {
	conn *Conn
}

// NewEndpointAttemptStore creates a new EndpointAttemptStore.
func NewEndpointAttemptStore(conn *Conn) *EndpointAttemptStore {
	return &EndpointAttemptStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EndpointAttemptStore = (*EndpointAttemptStore)(nil)

// InsertBulk adds multiple attempts in one batch.
// Attempts are an append-only log, so there is no duplicate check.
func (s *EndpointAttemptStore) InsertBulk(ctx context.Context, attempts []*domain.EndpointAttempt) error {
	if len(attempts) == 0 {
		return nil
	}
	for _, a := range attempts {
		if a == nil || a.Endpoint == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO endpoint_attempts (
			endpoint, method, endpoint_idx, success, latency_ms, error, timestamp_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, a := range attempts {
		var success uint8
		if a.Success {
			success = 1
		}
		latency := a.LatencyMs
		if latency < 0 {
			latency = 0
		}
		err = batch.Append(
			a.Endpoint, a.Method, uint16(a.Index), success,
			uint32(latency), a.Error, uint64(a.TimestampMs),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves attempts within [start, end] (inclusive), ordered by timestamp ASC.
func (s *EndpointAttemptStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.EndpointAttempt, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT endpoint, method, endpoint_idx, success, latency_ms, error, timestamp_ms
		FROM endpoint_attempts
		WHERE timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanEndpointAttempts(rows)
}

// StatsByEndpoint aggregates attempts within [start, end] per endpoint, ordered by endpoint.
func (s *EndpointAttemptStore) StatsByEndpoint(ctx context.Context, start, end int64) ([]storage.EndpointStats, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT endpoint, count() AS attempts, countIf(success = 0) AS failures, avg(latency_ms) AS avg_latency
		FROM endpoint_attempts
		WHERE timestamp_ms >= ? AND timestamp_ms <= ?
		GROUP BY endpoint
		ORDER BY endpoint ASC
	`, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query endpoint stats: %w", err)
	}
	defer rows.Close()

	var result []storage.EndpointStats
	for rows.Next() {
		var (
			st                 storage.EndpointStats
			attempts, failures uint64
		)
		if err := rows.Scan(&st.Endpoint, &attempts, &failures, &st.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan endpoint stats: %w", err)
		}
		st.Attempts = int64(attempts)
		st.Failures = int64(failures)
		result = append(result, st)
	}
	return result, rows.Err()
}

func scanEndpointAttempts(rows driver.Rows) ([]*domain.EndpointAttempt, error) {
	var result []*domain.EndpointAttempt
	for rows.Next() {
		var (
			a           domain.EndpointAttempt
			idx         uint16
			success     uint8
			latency     uint32
			timestampMs uint64
		)
		if err := rows.Scan(&a.Endpoint, &a.Method, &idx, &success, &latency, &a.Error, &timestampMs); err != nil {
			return nil, fmt.Errorf("scan endpoint attempt: %w", err)
		}
		a.Index = int(idx)
		a.Success = success == 1
		a.LatencyMs = int64(latency)
		a.TimestampMs = int64(timestampMs)
		result = append(result, &a)
	}
	return result, rows.Err()
}
