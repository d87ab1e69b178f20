package action

import (
	"context"
	"errors"
	"sync/atomic"

	"solana-token-desk/internal/observability"
)

// ErrBusy is returned when an action is already in flight on a surface.
var ErrBusy = errors.New("another action is in progress")

// Surface allows one Execute at a time. A second call made while one is
// pending is rejected with ErrBusy rather than queued.
type Surface struct {
	exec Executor
	busy atomic.Bool
}

// Compile-time interface check.
var _ Executor = (*Surface)(nil)

// NewSurface guards exec.
func NewSurface(exec Executor) *Surface {
	return &Surface{exec: exec}
}

// Busy reports whether an action is in flight.
func (s *Surface) Busy() bool {
	return s.busy.Load()
}

// Execute runs req unless another action is in flight.
func (s *Surface) Execute(ctx context.Context, req Request) (*Result, error) {
	if !s.busy.CompareAndSwap(false, true) {
		observability.RecordActionBusy()
		return nil, ErrBusy
	}
	defer s.busy.Store(false)

	return s.exec.Execute(ctx, req)
}
