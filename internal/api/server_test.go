package api

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"solana-token-desk/internal/action"
	"solana-token-desk/internal/domain"
	"solana-token-desk/internal/ledger"
	"solana-token-desk/internal/solana"
	"solana-token-desk/internal/solana/stub"
	"solana-token-desk/internal/storage/memory"
	"solana-token-desk/internal/token"
	"solana-token-desk/internal/token/tokentest"
	"solana-token-desk/internal/wallet"
)

type confirmingRPC struct {
	*stub.RPCClient
}

func (r *confirmingRPC) SendTransaction(ctx context.Context, raw []byte) (string, error) {
	sig, err := r.RPCClient.SendTransaction(ctx, raw)
	if err == nil {
		r.SetStatus(sig, &solana.SignatureStatus{Slot: 7, ConfirmationStatus: solana.CommitmentConfirmed})
	}
	return sig, err
}

type fixture struct {
	rpc      *confirmingRPC
	owner    types.Account
	wallet   *wallet.KeypairWallet
	journal  *memory.ActionJournalStore
	metadata *memory.TokenMetadataStore
	handler  fasthttp.RequestHandler
}

func newFixture(t *testing.T, exec func(action.Executor) action.Executor) *fixture {
	t.Helper()
	f := &fixture{
		rpc:      &confirmingRPC{RPCClient: stub.NewRPCClient()},
		owner:    types.NewAccount(),
		journal:  memory.NewActionJournalStore(),
		metadata: memory.NewTokenMetadataStore(),
	}
	f.wallet = wallet.NewAccountWallet(f.owner, wallet.AutoApprove)
	require.NoError(t, f.wallet.Connect(context.Background()))

	coord := action.NewCoordinator(f.rpc, f.wallet,
		action.WithJournal(f.journal),
		action.WithMetadataStore(f.metadata),
		action.WithConfirmer(action.NewConfirmer(f.rpc, nil, time.Second, 5*time.Millisecond, solana.CommitmentConfirmed, nil)),
	)
	var executor action.Executor = action.NewSurface(coord)
	if exec != nil {
		executor = exec(executor)
	}

	srv := NewServer(Deps{
		Wallet:   f.wallet,
		Reader:   ledger.NewReader(f.rpc),
		Actions:  executor,
		Status:   coord,
		Journal:  f.journal,
		Metadata: f.metadata,
		Attempts: memory.NewEndpointAttemptStore(),
		Cluster:  "devnet",
	}, nil)
	f.handler = srv.Handler()
	return f
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *errorBody      `json:"error"`
}

func (f *fixture) do(t *testing.T, method, uri, body string) (int, response) {
	t.Helper()
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != "" {
		ctx.Request.Header.SetContentType("application/json")
		ctx.Request.SetBodyString(body)
	}
	f.handler(&ctx)

	var resp response
	if ct := string(ctx.Response.Header.ContentType()); ct == "application/json" {
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	}
	return ctx.Response.StatusCode(), resp
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod("GET")
	ctx.Request.SetRequestURI("/health")
	f.handler(&ctx)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "OK", string(ctx.Response.Body()))
}

func TestWallet(t *testing.T) {
	f := newFixture(t, nil)
	status, resp := f.do(t, "GET", "/wallet", "")
	require.Equal(t, fasthttp.StatusOK, status)

	var v walletView
	require.NoError(t, json.Unmarshal(resp.Result, &v))
	assert.True(t, v.Connected)
	assert.Equal(t, f.owner.PublicKey.ToBase58(), v.Address)
}

func TestSOLBalance(t *testing.T) {
	f := newFixture(t, nil)
	f.rpc.SetBalance(f.owner.PublicKey.ToBase58(), 1_500_000_000)

	status, resp := f.do(t, "GET", "/balance", "")
	require.Equal(t, fasthttp.StatusOK, status)

	var v solBalanceView
	require.NoError(t, json.Unmarshal(resp.Result, &v))
	assert.Equal(t, "1.5", v.SOL)
}

func TestSOLBalance_Disconnected(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.wallet.Disconnect())

	status, resp := f.do(t, "GET", "/balance", "")
	assert.Equal(t, fasthttp.StatusUnauthorized, status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SignerUnavailable", resp.Error.Kind)
}

func TestTokenBalance(t *testing.T) {
	f := newFixture(t, nil)
	mint := types.NewAccount().PublicKey
	ata, err := token.AssociatedAddress(f.owner.PublicKey, mint)
	require.NoError(t, err)
	f.rpc.SetAccount(mint.ToBase58(), tokentest.MintAccount(2, 1000, f.owner.PublicKey))
	f.rpc.SetAccount(ata.ToBase58(), tokentest.HolderAccount(mint, f.owner.PublicKey, 1234))

	status, resp := f.do(t, "GET", "/balance/"+mint.ToBase58(), "")
	require.Equal(t, fasthttp.StatusOK, status)

	var v tokenBalanceView
	require.NoError(t, json.Unmarshal(resp.Result, &v))
	assert.Equal(t, "12.34", v.Amount)
	assert.True(t, v.Exists)
}

func TestTokenBalance_InvalidMint(t *testing.T) {
	f := newFixture(t, nil)
	status, resp := f.do(t, "GET", "/balance/nope", "")
	assert.Equal(t, fasthttp.StatusBadRequest, status)
	assert.Equal(t, "ValidationError", resp.Error.Kind)
}

func TestHistory(t *testing.T) {
	f := newFixture(t, nil)
	addr := f.owner.PublicKey.ToBase58()
	bt := int64(1_700_000_000)
	f.rpc.AddSignatures(addr, []solana.SignatureInfo{{Signature: "sig1"}, {Signature: "sig2"}})
	f.rpc.AddTransaction(&solana.Transaction{Signature: "sig1", BlockTime: &bt})

	status, resp := f.do(t, "GET", "/history?limit=5", "")
	require.Equal(t, fasthttp.StatusOK, status)

	var v []transactionView
	require.NoError(t, json.Unmarshal(resp.Result, &v))
	require.Len(t, v, 1)
	assert.Equal(t, "sig1", v[0].Signature)
	assert.Equal(t, "https://explorer.solana.com/tx/sig1?cluster=devnet", v[0].ExplorerURL)
}

func TestHistory_BadLimit(t *testing.T) {
	f := newFixture(t, nil)
	status, resp := f.do(t, "GET", "/history?limit=0", "")
	assert.Equal(t, fasthttp.StatusBadRequest, status)
	assert.Equal(t, "limit", resp.Error.Field)
}

func TestCreateMint_RecordsJournalAndTokens(t *testing.T) {
	f := newFixture(t, nil)

	status, resp := f.do(t, "POST", "/actions/create-mint",
		`{"name":"Desk","symbol":"DSK","decimals":6,"initial_supply":"100"}`)
	require.Equal(t, fasthttp.StatusOK, status, "%+v", resp.Error)

	var v resultView
	require.NoError(t, json.Unmarshal(resp.Result, &v))
	assert.Equal(t, "create_mint", v.Kind)
	assert.Equal(t, v.Address, v.Value)
	assert.NotEmpty(t, v.Signature)

	status, resp = f.do(t, "GET", "/tokens", "")
	require.Equal(t, fasthttp.StatusOK, status)
	var tokens []domain.TokenMetadata
	require.NoError(t, json.Unmarshal(resp.Result, &tokens))
	require.Len(t, tokens, 1)
	assert.Equal(t, "DSK", tokens[0].Symbol)

	status, resp = f.do(t, "GET", "/journal", "")
	require.Equal(t, fasthttp.StatusOK, status)
	var entries []domain.JournalEntry
	require.NoError(t, json.Unmarshal(resp.Result, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionStateSucceeded, entries[0].State)
}

func TestCreateMint_Validation(t *testing.T) {
	f := newFixture(t, nil)

	status, resp := f.do(t, "POST", "/actions/create-mint",
		`{"name":"Desk","symbol":"DSK","decimals":19,"initial_supply":"1"}`)
	assert.Equal(t, fasthttp.StatusBadRequest, status)
	assert.Equal(t, "decimals", resp.Error.Field)
	assert.Zero(t, f.rpc.CallCount())
}

func TestAction_MalformedBody(t *testing.T) {
	f := newFixture(t, nil)
	status, resp := f.do(t, "POST", "/actions/transfer", `{"mint":`)
	assert.Equal(t, fasthttp.StatusBadRequest, status)
	assert.Equal(t, "ValidationError", resp.Error.Kind)
}

type blockingExecutor struct {
	release chan struct{}
	started chan struct{}
}

func (b *blockingExecutor) Execute(ctx context.Context, req action.Request) (*action.Result, error) {
	close(b.started)
	<-b.release
	return &action.Result{Kind: req.Kind(), Signature: "sig"}, nil
}

func TestAction_BusyReturnsConflict(t *testing.T) {
	blocker := &blockingExecutor{release: make(chan struct{}), started: make(chan struct{})}
	surface := action.NewSurface(blocker)
	f := newFixture(t, func(action.Executor) action.Executor { return surface })

	first := `{"mint":"` + types.NewAccount().PublicKey.ToBase58() + `","amount":"1"}`
	done := make(chan int)
	go func() {
		var ctx fasthttp.RequestCtx
		ctx.Request.Header.SetMethod("POST")
		ctx.Request.SetRequestURI("/actions/mint")
		ctx.Request.SetBodyString(first)
		f.handler(&ctx)
		done <- ctx.Response.StatusCode()
	}()
	<-blocker.started

	status, resp := f.do(t, "POST", "/actions/mint", `{"mint":"`+types.NewAccount().PublicKey.ToBase58()+`","amount":"1"}`)
	assert.Equal(t, fasthttp.StatusConflict, status)
	assert.Equal(t, "Busy", resp.Error.Kind)

	close(blocker.release)
	assert.Equal(t, fasthttp.StatusOK, <-done)
}

func TestStatus_Unknown(t *testing.T) {
	f := newFixture(t, nil)
	status, resp := f.do(t, "GET", "/status/unknownsig", "")
	require.Equal(t, fasthttp.StatusOK, status)

	var v statusView
	require.NoError(t, json.Unmarshal(resp.Result, &v))
	assert.Equal(t, "unknownsig", v.Signature)
}

func TestEndpoints_NoPool(t *testing.T) {
	f := newFixture(t, nil)
	status, _ := f.do(t, "GET", "/endpoints", "")
	assert.Equal(t, fasthttp.StatusOK, status)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t, nil)
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod("GET")
	ctx.Request.SetRequestURI("/metrics")
	f.handler(&ctx)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "solana_token_desk_")
}
