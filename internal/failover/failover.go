// Package failover runs read operations against an ordered list of RPC
// endpoints, moving to the next endpoint when one fails.
package failover

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoEndpoints is returned when the endpoint list is empty.
	ErrNoEndpoints = errors.New("failover: endpoint list is empty")

	// ErrExhausted is matched by errors.Is when every endpoint failed.
	ErrExhausted = errors.New("failover: all endpoints exhausted")
)

// ExhaustedError carries the last underlying error after every endpoint failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d endpoints exhausted: %v", e.Attempts, e.Last)
}

// Unwrap exposes both ErrExhausted and the last underlying error.
func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrExhausted, e.Last}
}

// Operation performs one read against a single endpoint.
type Operation[T any] func(ctx context.Context, index int, endpoint string) (T, error)

// FetchWithFailover tries op against endpoints starting at start and wrapping
// around, at most once per endpoint. It returns the first successful result
// and the index of the endpoint that produced it. The caller decides whether
// to remember that index as the next start.
//
// An out-of-range start is reduced modulo len(endpoints).
func FetchWithFailover[T any](ctx context.Context, endpoints []string, start int, op Operation[T]) (T, int, error) {
	var zero T
	n := len(endpoints)
	if n == 0 {
		return zero, 0, ErrNoEndpoints
	}

	start %= n
	if start < 0 {
		start += n
	}

	var lastErr error
	attempts := 0
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return zero, start, err
		}

		idx := (start + i) % n
		attempts++
		result, err := op(ctx, idx, endpoints[idx])
		if err == nil {
			return result, idx, nil
		}
		lastErr = err

		// Cancellation is not an endpoint failure.
		if ctx.Err() != nil {
			return zero, idx, ctx.Err()
		}
	}

	return zero, start, &ExhaustedError{Attempts: attempts, Last: lastErr}
}
