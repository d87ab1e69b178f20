package failover

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-desk/internal/solana"
	"solana-token-desk/internal/solana/stub"
	"solana-token-desk/internal/storage/memory"
)

func newStubPool(t *testing.T, n int, opts ...PoolOption) (*Pool, []*stub.RPCClient) {
	t.Helper()
	eps := endpointsN(n)
	stubs := make(map[string]*stub.RPCClient, n)
	ordered := make([]*stub.RPCClient, n)
	for i, ep := range eps {
		s := stub.NewRPCClient()
		stubs[ep] = s
		ordered[i] = s
	}

	pool, err := NewPool(eps, func(endpoint string) solana.RPCClient {
		return stubs[endpoint]
	}, opts...)
	require.NoError(t, err)
	return pool, ordered
}

func TestNewPool_Empty(t *testing.T) {
	_, err := NewPool(nil, func(string) solana.RPCClient { return stub.NewRPCClient() })
	assert.ErrorIs(t, err, ErrNoEndpoints)
}

func TestPool_RemembersHint(t *testing.T) {
	pool, stubs := newStubPool(t, 3)
	stubs[0].Err = errDown
	stubs[1].SetBalance("owner", 42)

	bal, err := pool.GetBalance(context.Background(), "owner")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), bal)
	assert.Equal(t, 1, pool.Hint())
	assert.Equal(t, pool.Endpoints()[1], pool.Current())

	// Next read starts at the remembered endpoint and skips the failed one.
	_, err = pool.GetBalance(context.Background(), "owner")
	require.NoError(t, err)
	assert.Equal(t, 1, stubs[0].CallCount())
	assert.Equal(t, 2, stubs[1].CallCount())
}

func TestPool_Exhausted(t *testing.T) {
	pool, stubs := newStubPool(t, 2)
	for _, s := range stubs {
		s.Err = errDown
	}

	_, err := pool.GetAccountInfo(context.Background(), "acct")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, 0, pool.Hint())
}

func TestPool_RecordsAttempts(t *testing.T) {
	store := memory.NewEndpointAttemptStore()
	pool, stubs := newStubPool(t, 3, WithAttemptStore(store))
	stubs[0].Err = errDown
	stubs[1].Err = errDown

	_, err := pool.GetSignaturesForAddress(context.Background(), "owner", &solana.SignaturesOpts{Limit: 10})
	require.NoError(t, err)

	attempts, err := store.GetByTimeRange(context.Background(), 0, 1<<62)
	require.NoError(t, err)
	require.Len(t, attempts, 3)

	assert.False(t, attempts[0].Success)
	assert.Equal(t, "getSignaturesForAddress", attempts[0].Method)
	assert.Equal(t, errDown.Error(), attempts[0].Error)
	assert.True(t, attempts[2].Success)
	assert.Equal(t, 2, attempts[2].Index)
}

func TestPool_SendTransactionNoFailover(t *testing.T) {
	pool, stubs := newStubPool(t, 2)
	stubs[0].SendErr = errors.New("node rejected")

	_, err := pool.SendTransaction(context.Background(), []byte{1, 2, 3})
	require.Error(t, err)
	assert.Equal(t, 0, stubs[1].CallsTo("sendTransaction"))
}
