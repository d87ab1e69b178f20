package ledger

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"solana-token-desk/internal/observability"
	"solana-token-desk/internal/solana"
	"solana-token-desk/internal/token"
)

// DefaultMintTTL is how long a decoded mint stays cached.
const DefaultMintTTL = 5 * time.Minute

// MintCache reads mint accounts through rpc and keeps the decoded result.
// Decimals never change for a mint; supply may lag by up to the TTL.
type MintCache struct {
	rpc   solana.RPCClient
	cache *gocache.Cache
}

// NewMintCache creates a cache. A non-positive ttl uses DefaultMintTTL.
func NewMintCache(rpc solana.RPCClient, ttl time.Duration) *MintCache {
	if ttl <= 0 {
		ttl = DefaultMintTTL
	}
	return &MintCache{
		rpc:   rpc,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// GetMint returns the decoded mint at address.
// Lookup failures are not cached.
func (m *MintCache) GetMint(ctx context.Context, address string) (*token.MintInfo, error) {
	if v, ok := m.cache.Get(address); ok {
		observability.RecordMintCache(true)
		info := *v.(*token.MintInfo)
		return &info, nil
	}
	observability.RecordMintCache(false)

	acc, err := m.rpc.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, err
	}
	info, err := token.DecodeMint(address, acc)
	if err != nil {
		return nil, err
	}
	m.cache.SetDefault(address, info)

	out := *info
	return &out, nil
}

// Invalidate drops address from the cache, e.g. after minting changed its supply.
func (m *MintCache) Invalidate(address string) {
	m.cache.Delete(address)
}

// Len returns the number of cached mints.
func (m *MintCache) Len() int {
	return m.cache.ItemCount()
}
