package action

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type blockingExecutor struct {
	started chan struct{}
	release chan struct{}
	calls   int
	mu      sync.Mutex
}

func (b *blockingExecutor) Execute(ctx context.Context, req Request) (*Result, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	b.started <- struct{}{}
	<-b.release
	return &Result{Kind: req.Kind(), Signature: "sig"}, nil
}

func TestSurface_RejectsConcurrentExecute(t *testing.T) {
	exec := &blockingExecutor{started: make(chan struct{}, 1), release: make(chan struct{})}
	s := NewSurface(exec)

	done := make(chan error, 1)
	go func() {
		_, err := s.Execute(context.Background(), MintMore{})
		done <- err
	}()

	select {
	case <-exec.started:
	case <-time.After(time.Second):
		t.Fatal("first execute did not start")
	}

	if !s.Busy() {
		t.Error("surface should be busy")
	}
	if _, err := s.Execute(context.Background(), MintMore{}); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}

	close(exec.release)
	if err := <-done; err != nil {
		t.Fatalf("first execute: %v", err)
	}

	if s.Busy() {
		t.Error("surface should be idle after completion")
	}

	// Idle again: the next call goes through.
	res, err := s.Execute(context.Background(), Transfer{})
	if err != nil {
		t.Fatalf("execute after release: %v", err)
	}
	<-exec.started
	if res.Kind != KindTransfer {
		t.Errorf("unexpected result kind %s", res.Kind)
	}
	if exec.calls != 2 {
		t.Errorf("expected 2 executions, got %d", exec.calls)
	}
}
