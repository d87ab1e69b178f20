package failover

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"solana-token-desk/internal/domain"
	"solana-token-desk/internal/observability"
	"solana-token-desk/internal/solana"
	"solana-token-desk/internal/storage"
)

// ClientFactory creates the RPC client for one endpoint.
type ClientFactory func(endpoint string) solana.RPCClient

// Pool is an RPC client that spreads reads over an ordered endpoint list.
// It remembers the last endpoint that served a read and starts there next time.
type Pool struct {
	endpoints []string
	clients   []solana.RPCClient
	hint      atomic.Int64

	logger   *zap.Logger
	attempts storage.EndpointAttemptStore
	now      func() time.Time
}

// Compile-time interface check.
var _ solana.RPCClient = (*Pool)(nil)

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithLogger sets the pool logger.
func WithLogger(l *zap.Logger) PoolOption {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithAttemptStore records every attempt into s.
func WithAttemptStore(s storage.EndpointAttemptStore) PoolOption {
	return func(p *Pool) {
		p.attempts = s
	}
}

// WithClock overrides the time source used for attempt latency.
func WithClock(now func() time.Time) PoolOption {
	return func(p *Pool) {
		p.now = now
	}
}

// NewPool creates a pool with one client per endpoint.
// Returns ErrNoEndpoints if endpoints is empty.
func NewPool(endpoints []string, factory ClientFactory, opts ...PoolOption) (*Pool, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}

	p := &Pool{
		endpoints: append([]string(nil), endpoints...),
		clients:   make([]solana.RPCClient, len(endpoints)),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for i, ep := range p.endpoints {
		p.clients[i] = factory(ep)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Endpoints returns a copy of the endpoint list.
func (p *Pool) Endpoints() []string {
	return append([]string(nil), p.endpoints...)
}

// Hint returns the index of the last endpoint that served a read.
func (p *Pool) Hint() int {
	return int(p.hint.Load())
}

// Current returns the endpoint at the hint index.
func (p *Pool) Current() string {
	return p.endpoints[p.Hint()]
}

func fetch[T any](ctx context.Context, p *Pool, method string, fn func(context.Context, solana.RPCClient) (T, error)) (T, error) {
	var recorded []*domain.EndpointAttempt

	result, idx, err := FetchWithFailover(ctx, p.endpoints, p.Hint(), func(ctx context.Context, i int, endpoint string) (T, error) {
		started := p.now()
		r, err := fn(ctx, p.clients[i])
		recorded = append(recorded, p.attempt(method, i, started, err))
		observability.RecordFailoverAttempt(endpoint, err == nil)
		if err != nil {
			p.logger.Warn("endpoint failed",
				zap.String("method", method),
				zap.String("endpoint", endpoint),
				zap.Int("index", i),
				zap.Error(err))
		}
		return r, err
	})
	p.record(ctx, recorded)

	if err != nil {
		if errors.Is(err, ErrExhausted) {
			observability.RecordEndpointsExhausted()
			p.logger.Error("all endpoints exhausted", zap.String("method", method), zap.Error(err))
		}
		var zero T
		return zero, err
	}

	if idx != p.Hint() {
		p.logger.Info("switched endpoint", zap.String("endpoint", p.endpoints[idx]), zap.Int("index", idx))
	}
	p.hint.Store(int64(idx))
	observability.UpdateEndpointHint(idx)
	return result, nil
}

func (p *Pool) attempt(method string, index int, started time.Time, err error) *domain.EndpointAttempt {
	a := &domain.EndpointAttempt{
		Endpoint:    p.endpoints[index],
		Method:      method,
		Index:       index,
		Success:     err == nil,
		LatencyMs:   p.now().Sub(started).Milliseconds(),
		TimestampMs: started.UnixMilli(),
	}
	if err != nil {
		a.Error = err.Error()
	}
	return a
}

func (p *Pool) record(ctx context.Context, attempts []*domain.EndpointAttempt) {
	if p.attempts == nil || len(attempts) == 0 {
		return
	}
	// Attempt analytics must outlive a cancelled read.
	if err := p.attempts.InsertBulk(context.WithoutCancel(ctx), attempts); err != nil {
		observability.RecordStoreError("endpoint_attempts")
		p.logger.Warn("record endpoint attempts", zap.Error(err))
	}
}

// GetBalance returns the lamport balance of an account.
func (p *Pool) GetBalance(ctx context.Context, address string) (uint64, error) {
	return fetch(ctx, p, "getBalance", func(ctx context.Context, c solana.RPCClient) (uint64, error) {
		return c.GetBalance(ctx, address)
	})
}

// GetAccountInfo retrieves account data, nil if the account does not exist.
func (p *Pool) GetAccountInfo(ctx context.Context, address string) (*solana.AccountInfo, error) {
	return fetch(ctx, p, "getAccountInfo", func(ctx context.Context, c solana.RPCClient) (*solana.AccountInfo, error) {
		return c.GetAccountInfo(ctx, address)
	})
}

// GetSignaturesForAddress retrieves signatures for an address.
func (p *Pool) GetSignaturesForAddress(ctx context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	return fetch(ctx, p, "getSignaturesForAddress", func(ctx context.Context, c solana.RPCClient) ([]solana.SignatureInfo, error) {
		return c.GetSignaturesForAddress(ctx, address, opts)
	})
}

// GetTransaction retrieves a transaction by signature.
func (p *Pool) GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	return fetch(ctx, p, "getTransaction", func(ctx context.Context, c solana.RPCClient) (*solana.Transaction, error) {
		return c.GetTransaction(ctx, signature)
	})
}

// GetLatestBlockhash retrieves a recent blockhash.
func (p *Pool) GetLatestBlockhash(ctx context.Context) (*solana.Blockhash, error) {
	return fetch(ctx, p, "getLatestBlockhash", func(ctx context.Context, c solana.RPCClient) (*solana.Blockhash, error) {
		return c.GetLatestBlockhash(ctx)
	})
}

// GetMinimumBalanceForRentExemption returns the rent-exempt minimum for size bytes.
func (p *Pool) GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error) {
	return fetch(ctx, p, "getMinimumBalanceForRentExemption", func(ctx context.Context, c solana.RPCClient) (uint64, error) {
		return c.GetMinimumBalanceForRentExemption(ctx, size)
	})
}

// GetSignatureStatuses retrieves statuses for signatures.
func (p *Pool) GetSignatureStatuses(ctx context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	return fetch(ctx, p, "getSignatureStatuses", func(ctx context.Context, c solana.RPCClient) ([]*solana.SignatureStatus, error) {
		return c.GetSignatureStatuses(ctx, signatures)
	})
}

// SendTransaction submits through the current endpoint only.
// A failed submission may still have reached the cluster, so it is never
// replayed against another endpoint.
func (p *Pool) SendTransaction(ctx context.Context, rawTx []byte) (string, error) {
	idx := p.Hint()
	started := p.now()
	sig, err := p.clients[idx].SendTransaction(ctx, rawTx)
	p.record(ctx, []*domain.EndpointAttempt{p.attempt("sendTransaction", idx, started, err)})
	observability.RecordFailoverAttempt(p.endpoints[idx], err == nil)
	return sig, err
}
