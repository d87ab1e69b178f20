package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-desk/internal/solana/stub"
	"solana-token-desk/internal/token"
	"solana-token-desk/internal/token/tokentest"
)

func TestMintCache_CachesDecodedMint(t *testing.T) {
	rpc := stub.NewRPCClient()
	mint, auth := newKey(), newKey()
	rpc.SetAccount(mint.ToBase58(), tokentest.MintAccount(9, 42, auth))

	c := NewMintCache(rpc, time.Minute)
	first, err := c.GetMint(context.Background(), mint.ToBase58())
	require.NoError(t, err)
	assert.Equal(t, uint8(9), first.Decimals)
	assert.Equal(t, auth.ToBase58(), first.MintAuthority)

	second, err := c.GetMint(context.Background(), mint.ToBase58())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, rpc.CallsTo("getAccountInfo"))
	assert.Equal(t, 1, c.Len())

	// callers get copies
	second.Supply = 0
	third, _ := c.GetMint(context.Background(), mint.ToBase58())
	assert.Equal(t, uint64(42), third.Supply)
}

func TestMintCache_Invalidate(t *testing.T) {
	rpc := stub.NewRPCClient()
	mint := newKey()
	rpc.SetAccount(mint.ToBase58(), tokentest.MintAccount(2, 1, newKey()))

	c := NewMintCache(rpc, 0)
	_, err := c.GetMint(context.Background(), mint.ToBase58())
	require.NoError(t, err)
	c.Invalidate(mint.ToBase58())
	_, err = c.GetMint(context.Background(), mint.ToBase58())
	require.NoError(t, err)
	assert.Equal(t, 2, rpc.CallsTo("getAccountInfo"))
}

func TestMintCache_MissingMintNotCached(t *testing.T) {
	rpc := stub.NewRPCClient()
	mint := newKey()

	c := NewMintCache(rpc, time.Minute)
	_, err := c.GetMint(context.Background(), mint.ToBase58())
	assert.ErrorIs(t, err, token.ErrAccountNotFound)
	assert.Zero(t, c.Len())
}
