// Package ledger is the read path: balances and recent transaction history
// for an address.
package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-token-desk/internal/observability"
	"solana-token-desk/internal/solana"
	"solana-token-desk/internal/token"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

const solDecimals = 9

const (
	// DefaultHistoryLimit is used when ListRecentTransactions gets a non-positive limit.
	DefaultHistoryLimit = 10
	// DefaultConcurrency bounds parallel getTransaction calls.
	DefaultConcurrency = 4
)

// MintSource resolves mint accounts.
type MintSource interface {
	GetMint(ctx context.Context, address string) (*token.MintInfo, error)
}

// SOLBalance is the native balance of an address.
type SOLBalance struct {
	Address  string
	Lamports uint64
}

// SOL returns the balance in SOL.
func (b SOLBalance) SOL() decimal.Decimal {
	return token.DisplayAmount(b.Lamports, solDecimals)
}

// TokenBalance is the balance of one mint held by an owner.
type TokenBalance struct {
	Owner    string
	Mint     string
	Account  string // associated token account address
	Exists   bool
	Raw      uint64
	Decimals uint8
}

// Amount returns the balance in display units.
func (b TokenBalance) Amount() decimal.Decimal {
	return token.DisplayAmount(b.Raw, b.Decimals)
}

// Reader serves balance and history queries.
type Reader struct {
	rpc         solana.RPCClient
	mints       MintSource
	concurrency int
	logger      *zap.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithMintSource sets where decimals are read from. Defaults to a MintCache.
func WithMintSource(m MintSource) Option {
	return func(r *Reader) {
		r.mints = m
	}
}

// WithConcurrency bounds parallel transaction lookups.
func WithConcurrency(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the reader logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reader) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewReader creates a reader over rpc.
func NewReader(rpc solana.RPCClient, opts ...Option) *Reader {
	r := &Reader{
		rpc:         rpc,
		concurrency: DefaultConcurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.mints == nil {
		r.mints = NewMintCache(rpc, DefaultMintTTL)
	}
	return r
}

// GetSOLBalance returns the native balance of owner.
func (r *Reader) GetSOLBalance(ctx context.Context, owner string) (*SOLBalance, error) {
	if _, err := token.ParsePublicKey(owner); err != nil {
		return nil, err
	}
	lamports, err := r.rpc.GetBalance(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("get balance %s: %w", owner, err)
	}
	return &SOLBalance{Address: owner, Lamports: lamports}, nil
}

// GetTokenBalance returns the balance of mint held in owner's associated
// token account. A missing account is a zero balance, not an error.
func (r *Reader) GetTokenBalance(ctx context.Context, owner, mint string) (*TokenBalance, error) {
	ownerKey, err := token.ParsePublicKey(owner)
	if err != nil {
		return nil, err
	}
	mintKey, err := token.ParsePublicKey(mint)
	if err != nil {
		return nil, err
	}
	ata, err := token.AssociatedAddress(ownerKey, mintKey)
	if err != nil {
		return nil, err
	}

	bal := &TokenBalance{Owner: owner, Mint: mint, Account: ata.ToBase58()}

	info, err := r.rpc.GetAccountInfo(ctx, bal.Account)
	if err != nil {
		return nil, fmt.Errorf("get token account %s: %w", bal.Account, err)
	}
	if info == nil {
		return bal, nil
	}

	holder, err := token.DecodeHolder(bal.Account, info)
	if err != nil {
		return nil, err
	}
	m, err := r.mints.GetMint(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("get mint %s: %w", mint, err)
	}

	bal.Exists = true
	bal.Raw = holder.Amount
	bal.Decimals = m.Decimals
	return bal, nil
}

// GetMint returns mint details.
func (r *Reader) GetMint(ctx context.Context, mint string) (*token.MintInfo, error) {
	if _, err := token.ParsePublicKey(mint); err != nil {
		return nil, err
	}
	return r.mints.GetMint(ctx, mint)
}

// ListRecentTransactions returns up to limit recent transactions touching
// address, newest block time first. Transactions whose details cannot be
// fetched are left out. Records without a block time sort last.
func (r *Reader) ListRecentTransactions(ctx context.Context, address string, limit int) ([]TransactionRecord, error) {
	if _, err := token.ParsePublicKey(address); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	sigs, err := r.rpc.GetSignaturesForAddress(ctx, address, &solana.SignaturesOpts{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("get signatures %s: %w", address, err)
	}
	if len(sigs) > limit {
		sigs = sigs[:limit]
	}

	found := make([]*TransactionRecord, len(sigs))
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, s := range sigs {
		i, s := i, s
		g.Go(func() error {
			tx, err := r.rpc.GetTransaction(ctx, s.Signature)
			if err != nil {
				r.logger.Debug("drop transaction", zap.String("signature", s.Signature), zap.Error(err))
				return nil
			}
			if tx == nil {
				return nil
			}
			found[i] = newRecord(s, tx)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]TransactionRecord, 0, len(found))
	for _, rec := range found {
		if rec != nil {
			records = append(records, *rec)
		}
	}
	SortByBlockTime(records)

	observability.RecordHistory(len(records), len(sigs)-len(records))
	return records, nil
}

// SortByBlockTime orders records newest first. A missing block time counts as zero.
func SortByBlockTime(records []TransactionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].blockTime() > records[j].blockTime()
	})
}
