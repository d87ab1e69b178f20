package action

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"go.uber.org/zap"

	"solana-token-desk/internal/domain"
	"solana-token-desk/internal/idhash"
	"solana-token-desk/internal/observability"
	"solana-token-desk/internal/solana"
	"solana-token-desk/internal/storage"
	"solana-token-desk/internal/token"
	"solana-token-desk/internal/wallet"
)

// State is a lifecycle state of one Execute call.
type State int

const (
	StateValidating State = iota
	StateBuilding
	StateAwaitingSignature
	StateSubmitted
	StateConfirming
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "Validating"
	case StateBuilding:
		return "Building"
	case StateAwaitingSignature:
		return "AwaitingSignature"
	case StateSubmitted:
		return "Submitted"
	case StateConfirming:
		return "Confirming"
	case StateSucceeded:
		return "Succeeded"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MintSource resolves mint accounts.
type MintSource interface {
	GetMint(ctx context.Context, address string) (*token.MintInfo, error)
}

type rpcMintSource struct {
	rpc solana.RPCClient
}

func (m rpcMintSource) GetMint(ctx context.Context, address string) (*token.MintInfo, error) {
	info, err := m.rpc.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, err
	}
	return token.DecodeMint(address, info)
}

// Result is the outcome of a successful action.
// On ConfirmationTimeout or an on-chain failure the result is still
// returned alongside the error so the signature can be checked later.
type Result struct {
	Kind         RequestKind
	Address      string // created mint, CreateMint only
	Signature    string
	Slot         int64
	Instructions []string
}

// Value is the mint address for CreateMint and the signature otherwise.
func (r *Result) Value() string {
	if r.Kind == KindCreateMint {
		return r.Address
	}
	return r.Signature
}

// Executor runs token actions.
type Executor interface {
	Execute(ctx context.Context, req Request) (*Result, error)
}

// Coordinator drives a request through
// Validating, Building, AwaitingSignature, Submitted and Confirming.
type Coordinator struct {
	rpc        solana.RPCClient
	wallet     wallet.Wallet
	confirmer  *Confirmer
	mints      MintSource
	journal    storage.ActionJournalStore
	metadata   storage.TokenMetadataStore
	logger     *zap.Logger
	newAccount func() types.Account
	now        func() time.Time
	observe    func(State)
}

// Compile-time interface check.
var _ Executor = (*Coordinator)(nil)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithConfirmer replaces the default polling confirmer.
func WithConfirmer(cf *Confirmer) Option {
	return func(c *Coordinator) {
		c.confirmer = cf
	}
}

// WithMintSource sets where mint accounts are read from, e.g. a cache.
func WithMintSource(m MintSource) Option {
	return func(c *Coordinator) {
		c.mints = m
	}
}

// WithJournal records every action outcome into j.
func WithJournal(j storage.ActionJournalStore) Option {
	return func(c *Coordinator) {
		c.journal = j
	}
}

// WithMetadataStore records name and symbol of every created mint into m.
func WithMetadataStore(m storage.TokenMetadataStore) Option {
	return func(c *Coordinator) {
		c.metadata = m
	}
}

// WithAccountFactory sets how new mint keypairs are generated.
func WithAccountFactory(f func() types.Account) Option {
	return func(c *Coordinator) {
		c.newAccount = f
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// WithObserver calls fn on every state transition.
func WithObserver(fn func(State)) Option {
	return func(c *Coordinator) {
		c.observe = fn
	}
}

// NewCoordinator creates a coordinator that reads and submits through rpc
// and signs with w.
func NewCoordinator(rpc solana.RPCClient, w wallet.Wallet, opts ...Option) *Coordinator {
	c := &Coordinator{
		rpc:        rpc,
		wallet:     w,
		logger:     zap.NewNop(),
		newAccount: types.NewAccount,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.mints == nil {
		c.mints = rpcMintSource{rpc: rpc}
	}
	if c.confirmer == nil {
		c.confirmer = NewConfirmer(rpc, nil, DefaultConfirmTimeout, DefaultPollInterval, solana.CommitmentConfirmed, c.logger)
	}
	return c
}

type execution struct {
	req     Request
	state   State
	owner   common.PublicKey
	result  *Result
	started time.Time
	logger  *zap.Logger
}

// Execute runs req to completion. It is not reentrant: callers serialize
// calls that share a wallet, see Surface.
func (c *Coordinator) Execute(ctx context.Context, req Request) (*Result, error) {
	ex := &execution{
		req:     req,
		result:  &Result{Kind: req.Kind()},
		started: c.now(),
		logger:  c.logger.With(zap.String("action", string(req.Kind()))),
	}

	err := c.run(ctx, ex)
	c.complete(ctx, ex, err)

	if err != nil {
		if ex.result.Signature != "" {
			return ex.result, err
		}
		return nil, err
	}
	return ex.result, nil
}

func (c *Coordinator) transition(ex *execution, s State) {
	ex.state = s
	ex.logger.Debug("action state", zap.Stringer("state", s))
	if c.observe != nil {
		c.observe(s)
	}
}

func (c *Coordinator) run(ctx context.Context, ex *execution) error {
	c.transition(ex, StateValidating)
	if err := ex.req.Validate(); err != nil {
		return Classify(err, KindValidation)
	}

	c.transition(ex, StateBuilding)
	owner, ok := c.wallet.PublicKey()
	if !ok {
		return &Error{Kind: KindSignerUnavailable, Err: wallet.ErrNotConnected}
	}
	ex.owner = owner

	tx, err := c.build(ctx, ex)
	if err != nil {
		if ctx.Err() != nil {
			return &Error{Kind: KindSignatureRejected, Msg: "cancelled before signing", Err: ctx.Err()}
		}
		return Classify(err, KindEndpointsExhausted)
	}

	c.transition(ex, StateAwaitingSignature)
	approval := wallet.Approval{
		Action:       string(ex.req.Kind()),
		Summary:      ex.req.Summary(),
		Instructions: ex.result.Instructions,
	}
	if err := c.wallet.SignTransaction(ctx, tx, approval); err != nil {
		return Classify(err, KindSignatureRejected)
	}

	c.transition(ex, StateSubmitted)
	raw, err := tx.Serialize()
	if err != nil {
		return &Error{Kind: KindSubmission, Msg: "serialize transaction", Err: err}
	}
	sig, err := c.rpc.SendTransaction(ctx, raw)
	if err != nil {
		return &Error{Kind: KindSubmission, Err: err}
	}
	ex.result.Signature = sig
	ex.logger.Info("transaction submitted", zap.String("signature", sig))

	c.transition(ex, StateConfirming)
	status, err := c.confirmer.Await(ctx, sig)
	switch {
	case err == nil:
		ex.result.Slot = status.Slot
		return nil
	case errors.Is(err, ErrTransactionFailed):
		return &Error{Kind: KindSubmission, Err: err}
	default:
		// Timed out or abandoned: the transaction may still land.
		observability.RecordConfirmationTimeout()
		return &Error{Kind: KindConfirmationTimeout, Msg: "signature " + sig, Err: err}
	}
}

func (c *Coordinator) build(ctx context.Context, ex *execution) (*types.Transaction, error) {
	switch r := ex.req.(type) {
	case CreateMint:
		return c.buildCreateMint(ctx, ex, r)
	case MintMore:
		return c.buildMintMore(ctx, ex, r)
	case Transfer:
		return c.buildTransfer(ctx, ex, r)
	default:
		return nil, validationError("", fmt.Sprintf("unsupported request %T", r))
	}
}

func (c *Coordinator) buildCreateMint(ctx context.Context, ex *execution, r CreateMint) (*types.Transaction, error) {
	supply, err := token.ScaleAmount(r.InitialSupply, uint8(r.Decimals))
	if err != nil {
		return nil, &Error{Kind: KindValidation, Field: "initial_supply", Err: err}
	}

	rent, err := c.rpc.GetMinimumBalanceForRentExemption(ctx, token.MintAccountSize)
	if err != nil {
		return nil, fmt.Errorf("rent exemption: %w", err)
	}

	mint := c.newAccount()
	ins, err := token.CreateMintInstructions(token.CreateMintParams{
		Payer:         ex.owner,
		Mint:          mint.PublicKey,
		Decimals:      uint8(r.Decimals),
		RentLamports:  rent,
		InitialSupply: supply,
	})
	if err != nil {
		return nil, &Error{Kind: KindValidation, Err: err}
	}

	ex.result.Address = mint.PublicKey.ToBase58()
	ex.logger = ex.logger.With(zap.String("mint", ex.result.Address))
	// The new mint account co-signs its own allocation.
	return c.assemble(ctx, ex, ins, mint)
}

func (c *Coordinator) buildMintMore(ctx context.Context, ex *execution, r MintMore) (*types.Transaction, error) {
	mintKey, err := token.ParsePublicKey(r.Mint)
	if err != nil {
		return nil, err
	}

	info, err := c.mints.GetMint(ctx, r.Mint)
	if err != nil {
		return nil, err
	}
	if info.MintAuthority != ex.owner.ToBase58() {
		return nil, validationError("mint", "wallet is not the mint authority")
	}

	raw, err := token.ScaleAmount(r.Amount, info.Decimals)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Field: "amount", Err: err}
	}

	exists, err := c.accountExists(ctx, ex.owner, mintKey)
	if err != nil {
		return nil, err
	}

	ins, err := token.MintToInstructions(token.MintToParams{
		Authority:   ex.owner,
		Mint:        mintKey,
		Owner:       ex.owner,
		Amount:      raw,
		CreateOwner: !exists,
	})
	if err != nil {
		return nil, &Error{Kind: KindValidation, Err: err}
	}
	return c.assemble(ctx, ex, ins)
}

func (c *Coordinator) buildTransfer(ctx context.Context, ex *execution, r Transfer) (*types.Transaction, error) {
	mintKey, err := token.ParsePublicKey(r.Mint)
	if err != nil {
		return nil, err
	}
	recipient, err := token.ParsePublicKey(r.Recipient)
	if err != nil {
		return nil, err
	}

	info, err := c.mints.GetMint(ctx, r.Mint)
	if err != nil {
		return nil, err
	}
	if r.Decimals != nil && *r.Decimals != int(info.Decimals) {
		return nil, validationError("decimals", fmt.Sprintf("mint has %d decimals", info.Decimals))
	}

	raw, err := token.ScaleAmount(r.Amount, info.Decimals)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Field: "amount", Err: err}
	}

	source, err := token.AssociatedAddress(ex.owner, mintKey)
	if err != nil {
		return nil, err
	}
	sourceInfo, err := c.rpc.GetAccountInfo(ctx, source.ToBase58())
	if err != nil {
		return nil, err
	}
	if sourceInfo == nil {
		return nil, validationError("mint", "wallet holds no tokens of this mint")
	}
	holder, err := token.DecodeHolder(source.ToBase58(), sourceInfo)
	if err != nil {
		return nil, err
	}
	if holder.Amount < raw {
		return nil, validationError("amount", "insufficient balance: have "+token.FormatAmount(holder.Amount, info.Decimals))
	}

	exists, err := c.accountExists(ctx, recipient, mintKey)
	if err != nil {
		return nil, err
	}

	ins, err := token.TransferInstructions(token.TransferParams{
		Owner:           ex.owner,
		Mint:            mintKey,
		Recipient:       recipient,
		Amount:          raw,
		Decimals:        info.Decimals,
		CreateRecipient: !exists,
	})
	if err != nil {
		return nil, &Error{Kind: KindValidation, Err: err}
	}
	return c.assemble(ctx, ex, ins)
}

func (c *Coordinator) accountExists(ctx context.Context, owner, mint common.PublicKey) (bool, error) {
	ata, err := token.AssociatedAddress(owner, mint)
	if err != nil {
		return false, err
	}
	info, err := c.rpc.GetAccountInfo(ctx, ata.ToBase58())
	if err != nil {
		return false, err
	}
	return info != nil, nil
}

func (c *Coordinator) assemble(ctx context.Context, ex *execution, ins []types.Instruction, signers ...types.Account) (*types.Transaction, error) {
	bh, err := c.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest blockhash: %w", err)
	}

	ex.result.Instructions = token.Names(ins)
	tx, err := types.NewTransaction(types.NewTransactionParam{
		Message: types.NewMessage(types.NewMessageParam{
			FeePayer:        ex.owner,
			RecentBlockhash: bh.Blockhash,
			Instructions:    ins,
		}),
		Signers: signers,
	})
	if err != nil {
		return nil, &Error{Kind: KindValidation, Msg: "assemble transaction", Err: err}
	}
	return &tx, nil
}

func (c *Coordinator) complete(ctx context.Context, ex *execution, err error) {
	elapsed := c.now().Sub(ex.started)
	kind := string(ex.req.Kind())

	state := domain.ActionStateSucceeded
	outcome := "succeeded"
	if err != nil {
		c.transition(ex, StateFailed)
		k := KindOf(err)
		outcome = k.String()
		state = domain.ActionStateFailed
		if k == KindConfirmationTimeout {
			state = domain.ActionStateIndeterminate
		}
		ex.logger.Warn("action failed",
			zap.String("kind", outcome),
			zap.String("signature", ex.result.Signature),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
	} else {
		c.transition(ex, StateSucceeded)
		ex.logger.Info("action succeeded",
			zap.String("result", ex.result.Value()),
			zap.Int64("slot", ex.result.Slot),
			zap.Duration("elapsed", elapsed))
	}
	observability.RecordAction(kind, outcome, elapsed.Seconds())

	if err == nil {
		c.afterSuccess(ctx, ex)
	}

	// Requests that never left validation have no owner to attribute.
	if c.journal == nil || ex.owner == (common.PublicKey{}) {
		return
	}
	c.record(ctx, ex, state, err)
}

func (c *Coordinator) record(ctx context.Context, ex *execution, state domain.ActionState, err error) {
	mint, recipient, amount := describe(ex.req)
	if ex.result.Address != "" {
		mint = ex.result.Address
	}

	entry := &domain.JournalEntry{
		Kind:       string(ex.req.Kind()),
		State:      state,
		Owner:      ex.owner.ToBase58(),
		Mint:       mint,
		Amount:     amount,
		StartedAt:  ex.started.UnixMilli(),
		FinishedAt: c.now().UnixMilli(),
	}
	entry.EntryID = idhash.ComputeEntryID(entry.Kind, entry.Owner, entry.Mint, entry.Amount, entry.StartedAt)
	if recipient != "" {
		entry.Recipient = &recipient
	}
	if sig := ex.result.Signature; sig != "" {
		entry.Signature = &sig
	}
	if err != nil {
		kind := KindOf(err).String()
		msg := err.Error()
		entry.ErrorKind = &kind
		entry.ErrorMsg = &msg
	}

	if err := c.journal.Insert(context.WithoutCancel(ctx), entry); err != nil {
		observability.RecordStoreError("action_journal")
		ex.logger.Error("journal action", zap.String("entry_id", entry.EntryID), zap.Error(err))
	}
}

// invalidator is implemented by caching mint sources.
type invalidator interface {
	Invalidate(address string)
}

func (c *Coordinator) afterSuccess(ctx context.Context, ex *execution) {
	switch r := ex.req.(type) {
	case MintMore:
		if inv, ok := c.mints.(invalidator); ok {
			inv.Invalidate(r.Mint)
		}
	case CreateMint:
		if c.metadata == nil {
			return
		}
		sig := ex.result.Signature
		meta := &domain.TokenMetadata{
			Mint:      ex.result.Address,
			Name:      r.Name,
			Symbol:    r.Symbol,
			Decimals:  r.Decimals,
			Creator:   ex.owner.ToBase58(),
			Signature: &sig,
			CreatedAt: c.now().UnixMilli(),
		}
		if err := c.metadata.Insert(context.WithoutCancel(ctx), meta); err != nil {
			observability.RecordStoreError("token_metadata")
			ex.logger.Error("record token metadata", zap.String("mint", meta.Mint), zap.Error(err))
		}
	}
}

func describe(req Request) (mint, recipient, amount string) {
	switch r := req.(type) {
	case CreateMint:
		return "", "", r.InitialSupply.String()
	case MintMore:
		return r.Mint, "", r.Amount.String()
	case Transfer:
		return r.Mint, r.Recipient, r.Amount.String()
	}
	return "", "", ""
}

// StatusReport is the on-chain state of a submitted signature.
type StatusReport struct {
	Signature          string
	State              domain.ActionState
	Slot               int64
	ConfirmationStatus string
	Err                interface{}
}

// CheckStatus looks up a signature on chain. A journaled action still
// pending is resolved once the signature reaches a final state.
func (c *Coordinator) CheckStatus(ctx context.Context, signature string) (*StatusReport, error) {
	statuses, err := c.rpc.GetSignatureStatuses(ctx, []string{signature})
	if err != nil {
		return nil, Classify(err, KindEndpointsExhausted)
	}

	report := &StatusReport{Signature: signature, State: domain.ActionStateIndeterminate}
	if len(statuses) > 0 && statuses[0] != nil {
		st := statuses[0]
		report.Slot = st.Slot
		report.ConfirmationStatus = st.ConfirmationStatus
		report.Err = st.Err
		switch {
		case st.Err != nil:
			report.State = domain.ActionStateFailed
		case st.Reached(c.confirmer.commitment):
			report.State = domain.ActionStateSucceeded
		}
	}

	if report.State != domain.ActionStateIndeterminate && c.journal != nil {
		c.resolve(ctx, signature, report.State)
	}
	return report, nil
}

func (c *Coordinator) resolve(ctx context.Context, signature string, state domain.ActionState) {
	entry, err := c.journal.GetBySignature(ctx, signature)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logger.Warn("journal lookup", zap.String("signature", signature), zap.Error(err))
		}
		return
	}
	if !entry.Pending() {
		return
	}
	if err := c.journal.Resolve(ctx, entry.EntryID, state, c.now().UnixMilli()); err != nil {
		c.logger.Warn("journal resolve", zap.String("entry_id", entry.EntryID), zap.Error(err))
		return
	}
	c.logger.Info("resolved pending action",
		zap.String("signature", signature),
		zap.String("state", string(state)))
}

// ResolvePending re-checks every journaled action whose confirmation timed out.
func (c *Coordinator) ResolvePending(ctx context.Context) ([]*StatusReport, error) {
	if c.journal == nil {
		return nil, nil
	}
	pending, err := c.journal.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]*StatusReport, 0, len(pending))
	for _, e := range pending {
		if e.Signature == nil {
			continue
		}
		r, err := c.CheckStatus(ctx, *e.Signature)
		if err != nil {
			return reports, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}
