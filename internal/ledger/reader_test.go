package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-desk/internal/solana"
	"solana-token-desk/internal/solana/stub"
	"solana-token-desk/internal/token"
	"solana-token-desk/internal/token/tokentest"
)

func int64Ptr(v int64) *int64 { return &v }

func newKey() common.PublicKey {
	return types.NewAccount().PublicKey
}

func TestGetSOLBalance(t *testing.T) {
	rpc := stub.NewRPCClient()
	owner := newKey().ToBase58()
	rpc.SetBalance(owner, 2_500_000_000)

	r := NewReader(rpc)
	bal, err := r.GetSOLBalance(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_500_000_000), bal.Lamports)
	assert.Equal(t, "2.5", bal.SOL().String())
}

func TestGetSOLBalance_InvalidAddress(t *testing.T) {
	rpc := stub.NewRPCClient()
	r := NewReader(rpc)

	_, err := r.GetSOLBalance(context.Background(), "not-an-address")
	assert.ErrorIs(t, err, token.ErrInvalidAddress)
	assert.Zero(t, rpc.CallCount())
}

func TestGetTokenBalance(t *testing.T) {
	rpc := stub.NewRPCClient()
	owner, mint := newKey(), newKey()
	ata, err := token.AssociatedAddress(owner, mint)
	require.NoError(t, err)

	rpc.SetAccount(mint.ToBase58(), tokentest.MintAccount(6, 10_000_000, owner))
	rpc.SetAccount(ata.ToBase58(), tokentest.HolderAccount(mint, owner, 1_234_500))

	r := NewReader(rpc)
	bal, err := r.GetTokenBalance(context.Background(), owner.ToBase58(), mint.ToBase58())
	require.NoError(t, err)
	assert.True(t, bal.Exists)
	assert.Equal(t, ata.ToBase58(), bal.Account)
	assert.Equal(t, uint64(1_234_500), bal.Raw)
	assert.Equal(t, uint8(6), bal.Decimals)
	assert.Equal(t, "1.2345", bal.Amount().String())
}

func TestGetTokenBalance_MissingAccountIsZero(t *testing.T) {
	rpc := stub.NewRPCClient()
	owner, mint := newKey(), newKey()

	r := NewReader(rpc)
	bal, err := r.GetTokenBalance(context.Background(), owner.ToBase58(), mint.ToBase58())
	require.NoError(t, err)
	assert.False(t, bal.Exists)
	assert.True(t, bal.Amount().IsZero())
	// no mint lookup for an empty balance
	assert.Equal(t, 1, rpc.CallsTo("getAccountInfo"))
}

func TestGetTokenBalance_RPCError(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.Err = errors.New("connection refused")

	r := NewReader(rpc)
	_, err := r.GetTokenBalance(context.Background(), newKey().ToBase58(), newKey().ToBase58())
	assert.ErrorIs(t, err, rpc.Err)
}

func TestGetTokenBalance_NotTokenAccount(t *testing.T) {
	rpc := stub.NewRPCClient()
	owner, mint := newKey(), newKey()
	ata, err := token.AssociatedAddress(owner, mint)
	require.NoError(t, err)
	rpc.SetAccount(ata.ToBase58(), tokentest.SystemAccount(1))

	r := NewReader(rpc)
	_, err = r.GetTokenBalance(context.Background(), owner.ToBase58(), mint.ToBase58())
	assert.ErrorIs(t, err, token.ErrNotTokenAccount)
}

func TestListRecentTransactions_SortsAndDrops(t *testing.T) {
	rpc := stub.NewRPCClient()
	addr := newKey().ToBase58()

	rpc.AddSignatures(addr, []solana.SignatureInfo{
		{Signature: "sigA", Slot: 10},
		{Signature: "sigB", Slot: 11},
		{Signature: "sigC", Slot: 12},
		{Signature: "sigD", Slot: 13},
		{Signature: "sigE", Slot: 14},
	})
	rpc.AddTransaction(&solana.Transaction{Signature: "sigA", Slot: 10, BlockTime: int64Ptr(100), Meta: &solana.TransactionMeta{Fee: 5000}})
	rpc.AddTransaction(&solana.Transaction{Signature: "sigB", Slot: 11, BlockTime: nil})
	rpc.AddTransaction(&solana.Transaction{Signature: "sigC", Slot: 12, BlockTime: int64Ptr(300),
		Meta: &solana.TransactionMeta{Fee: 5000, Err: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}}})
	rpc.TxErrs["sigD"] = errors.New("timeout")
	// sigE has no transaction at all

	r := NewReader(rpc, WithConcurrency(2))
	records, err := r.ListRecentTransactions(context.Background(), addr, 5)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "sigC", records[0].Signature)
	assert.False(t, records[0].Success)
	assert.NotEmpty(t, records[0].Error)
	assert.Equal(t, "sigA", records[1].Signature)
	assert.True(t, records[1].Success)
	assert.Equal(t, uint64(5000), records[1].Fee)
	assert.Equal(t, "sigB", records[2].Signature)
	assert.Nil(t, records[2].BlockTime)
}

func TestListRecentTransactions_Limit(t *testing.T) {
	rpc := stub.NewRPCClient()
	addr := newKey().ToBase58()
	sigs := make([]solana.SignatureInfo, 20)
	for i := range sigs {
		sig := string(rune('a'+i)) + "-sig"
		sigs[i] = solana.SignatureInfo{Signature: sig}
		rpc.AddTransaction(&solana.Transaction{Signature: sig, BlockTime: int64Ptr(int64(1000 - i))})
	}
	rpc.AddSignatures(addr, sigs)

	r := NewReader(rpc)
	records, err := r.ListRecentTransactions(context.Background(), addr, 0)
	require.NoError(t, err)
	assert.Len(t, records, DefaultHistoryLimit)
	assert.Equal(t, DefaultHistoryLimit, rpc.CallsTo("getTransaction"))
}

func TestListRecentTransactions_Empty(t *testing.T) {
	rpc := stub.NewRPCClient()
	r := NewReader(rpc)

	records, err := r.ListRecentTransactions(context.Background(), newKey().ToBase58(), 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestListRecentTransactions_SignatureError(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.Err = errors.New("unavailable")
	r := NewReader(rpc)

	_, err := r.ListRecentTransactions(context.Background(), newKey().ToBase58(), 10)
	assert.ErrorIs(t, err, rpc.Err)
}

func TestListRecentTransactions_Cancelled(t *testing.T) {
	rpc := stub.NewRPCClient()
	addr := newKey().ToBase58()
	rpc.AddSignatures(addr, []solana.SignatureInfo{{Signature: "sigA"}})
	rpc.AddTransaction(&solana.Transaction{Signature: "sigA"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewReader(rpc)
	_, err := r.ListRecentTransactions(ctx, addr, 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSortByBlockTime_NilLast(t *testing.T) {
	records := []TransactionRecord{
		{Signature: "none"},
		{Signature: "old", BlockTime: int64Ptr(1)},
		{Signature: "new", BlockTime: int64Ptr(9)},
	}
	SortByBlockTime(records)
	assert.Equal(t, []string{"new", "old", "none"},
		[]string{records[0].Signature, records[1].Signature, records[2].Signature})
}

func TestExplorerURL(t *testing.T) {
	rec := TransactionRecord{Signature: "5abc"}
	assert.Equal(t, "https://explorer.solana.com/tx/5abc?cluster=devnet", rec.ExplorerURL("devnet"))
	assert.Equal(t, "https://explorer.solana.com/tx/5abc", rec.ExplorerURL("mainnet-beta"))
	assert.Equal(t, "https://explorer.solana.com/tx/5abc", rec.ExplorerURL(""))
}
