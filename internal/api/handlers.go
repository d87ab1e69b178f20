package api

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"

	"solana-token-desk/internal/action"
	"solana-token-desk/internal/domain"
	"solana-token-desk/internal/ledger"
	"solana-token-desk/internal/storage"
	"solana-token-desk/internal/token"
)

const maxListLimit = 100

type walletView struct {
	Connected bool   `json:"connected"`
	Address   string `json:"address,omitempty"`
}

type solBalanceView struct {
	Address  string `json:"address"`
	Lamports uint64 `json:"lamports"`
	SOL      string `json:"sol"`
}

type tokenBalanceView struct {
	Owner    string `json:"owner"`
	Mint     string `json:"mint"`
	Account  string `json:"account"`
	Exists   bool   `json:"exists"`
	Raw      uint64 `json:"raw"`
	Decimals uint8  `json:"decimals"`
	Amount   string `json:"amount"`
	Symbol   string `json:"symbol,omitempty"`
}

type mintView struct {
	Address         string `json:"address"`
	Decimals        uint8  `json:"decimals"`
	Supply          string `json:"supply"`
	MintAuthority   string `json:"mint_authority,omitempty"`
	FreezeAuthority string `json:"freeze_authority,omitempty"`
	Name            string `json:"name,omitempty"`
	Symbol          string `json:"symbol,omitempty"`
}

type transactionView struct {
	Signature   string     `json:"signature"`
	Slot        int64      `json:"slot"`
	BlockTime   *time.Time `json:"block_time"`
	Success     bool       `json:"success"`
	Fee         uint64     `json:"fee"`
	Error       string     `json:"error,omitempty"`
	ExplorerURL string     `json:"explorer_url"`
}

type resultView struct {
	Kind         string   `json:"kind"`
	Value        string   `json:"value"`
	Address      string   `json:"address,omitempty"`
	Signature    string   `json:"signature,omitempty"`
	Slot         int64    `json:"slot,omitempty"`
	Instructions []string `json:"instructions"`
	ExplorerURL  string   `json:"explorer_url,omitempty"`
}

type statusView struct {
	Signature          string      `json:"signature"`
	State              string      `json:"state"`
	Slot               int64       `json:"slot,omitempty"`
	ConfirmationStatus string      `json:"confirmation_status,omitempty"`
	Err                interface{} `json:"err,omitempty"`
}

type endpointsView struct {
	Endpoints []string                `json:"endpoints"`
	Current   string                  `json:"current"`
	Stats     []storage.EndpointStats `json:"stats,omitempty"`
}

func (s *Server) owner(ctx *fasthttp.RequestCtx) (string, bool) {
	pk, ok := s.deps.Wallet.PublicKey()
	if !ok {
		s.fail(ctx, action.ErrSignerUnavailable, action.KindSignerUnavailable)
		return "", false
	}
	return pk.ToBase58(), true
}

func (s *Server) getWallet(ctx *fasthttp.RequestCtx) {
	v := walletView{}
	if pk, ok := s.deps.Wallet.PublicKey(); ok {
		v.Connected = true
		v.Address = pk.ToBase58()
	}
	s.ok(ctx, v)
}

func (s *Server) getSOLBalance(ctx *fasthttp.RequestCtx) {
	addr := string(ctx.QueryArgs().Peek("address"))
	if addr == "" {
		var ok bool
		if addr, ok = s.owner(ctx); !ok {
			return
		}
	}

	bal, err := s.deps.Reader.GetSOLBalance(ctx, addr)
	if err != nil {
		s.fail(ctx, err, action.KindUnknown)
		return
	}
	s.ok(ctx, solBalanceView{Address: bal.Address, Lamports: bal.Lamports, SOL: bal.SOL().String()})
}

func (s *Server) getTokenBalance(ctx *fasthttp.RequestCtx) {
	owner, ok := s.owner(ctx)
	if !ok {
		return
	}
	mint, _ := ctx.UserValue("mint").(string)

	bal, err := s.deps.Reader.GetTokenBalance(ctx, owner, mint)
	if err != nil {
		s.fail(ctx, err, action.KindUnknown)
		return
	}
	v := tokenBalanceView{
		Owner:    bal.Owner,
		Mint:     bal.Mint,
		Account:  bal.Account,
		Exists:   bal.Exists,
		Raw:      bal.Raw,
		Decimals: bal.Decimals,
		Amount:   bal.Amount().String(),
	}
	if meta := s.metadata(ctx, mint); meta != nil {
		v.Symbol = meta.Symbol
	}
	s.ok(ctx, v)
}

func (s *Server) getMint(ctx *fasthttp.RequestCtx) {
	mint, _ := ctx.UserValue("mint").(string)
	info, err := s.deps.Reader.GetMint(ctx, mint)
	if err != nil {
		s.fail(ctx, err, action.KindUnknown)
		return
	}
	v := mintView{
		Address:         info.Address,
		Decimals:        info.Decimals,
		Supply:          token.FormatAmount(info.Supply, info.Decimals),
		MintAuthority:   info.MintAuthority,
		FreezeAuthority: info.FreezeAuthority,
	}
	if meta := s.metadata(ctx, mint); meta != nil {
		v.Name = meta.Name
		v.Symbol = meta.Symbol
	}
	s.ok(ctx, v)
}

func (s *Server) metadata(ctx *fasthttp.RequestCtx, mint string) *domain.TokenMetadata {
	if s.deps.Metadata == nil {
		return nil
	}
	meta, err := s.deps.Metadata.GetByMint(ctx, mint)
	if err != nil {
		return nil
	}
	return meta
}

func (s *Server) getHistory(ctx *fasthttp.RequestCtx) {
	limit, ok := s.limit(ctx, ledger.DefaultHistoryLimit)
	if !ok {
		return
	}
	addr := string(ctx.QueryArgs().Peek("address"))
	if addr == "" {
		if addr, ok = s.owner(ctx); !ok {
			return
		}
	}

	records, err := s.deps.Reader.ListRecentTransactions(ctx, addr, limit)
	if err != nil {
		s.fail(ctx, err, action.KindUnknown)
		return
	}

	out := make([]transactionView, 0, len(records))
	for _, r := range records {
		v := transactionView{
			Signature:   r.Signature,
			Slot:        r.Slot,
			Success:     r.Success,
			Fee:         r.Fee,
			Error:       r.Error,
			ExplorerURL: r.ExplorerURL(s.deps.Cluster),
		}
		if r.BlockTime != nil {
			t := r.Time()
			v.BlockTime = &t
		}
		out = append(out, v)
	}
	s.ok(ctx, out)
}

func (s *Server) getTokens(ctx *fasthttp.RequestCtx) {
	if s.deps.Metadata == nil {
		s.ok(ctx, []*domain.TokenMetadata{})
		return
	}
	owner, ok := s.owner(ctx)
	if !ok {
		return
	}
	list, err := s.deps.Metadata.ListByCreator(ctx, owner)
	if err != nil {
		s.fail(ctx, err, action.KindUnknown)
		return
	}
	if list == nil {
		list = []*domain.TokenMetadata{}
	}
	s.ok(ctx, list)
}

func (s *Server) getJournal(ctx *fasthttp.RequestCtx) {
	if s.deps.Journal == nil {
		s.ok(ctx, []*domain.JournalEntry{})
		return
	}
	limit, ok := s.limit(ctx, 20)
	if !ok {
		return
	}
	entries, err := s.deps.Journal.ListRecent(ctx, limit)
	if err != nil {
		s.fail(ctx, err, action.KindUnknown)
		return
	}
	s.ok(ctx, entries)
}

func (s *Server) getPending(ctx *fasthttp.RequestCtx) {
	if s.deps.Journal == nil {
		s.ok(ctx, []*domain.JournalEntry{})
		return
	}
	entries, err := s.deps.Journal.ListPending(ctx)
	if err != nil {
		s.fail(ctx, err, action.KindUnknown)
		return
	}
	if entries == nil {
		entries = []*domain.JournalEntry{}
	}
	s.ok(ctx, entries)
}

func (s *Server) getStatus(ctx *fasthttp.RequestCtx) {
	sig, _ := ctx.UserValue("signature").(string)
	report, err := s.deps.Status.CheckStatus(ctx, sig)
	if err != nil {
		s.fail(ctx, err, action.KindUnknown)
		return
	}
	s.ok(ctx, statusView{
		Signature:          report.Signature,
		State:              string(report.State),
		Slot:               report.Slot,
		ConfirmationStatus: report.ConfirmationStatus,
		Err:                report.Err,
	})
}

func (s *Server) getEndpoints(ctx *fasthttp.RequestCtx) {
	if s.deps.Endpoints == nil {
		s.ok(ctx, endpointsView{Endpoints: []string{}})
		return
	}
	v := endpointsView{
		Endpoints: s.deps.Endpoints.Endpoints(),
		Current:   s.deps.Endpoints.Current(),
	}
	if s.deps.Attempts != nil {
		end := s.now().UnixMilli()
		stats, err := s.deps.Attempts.StatsByEndpoint(ctx, end-time.Hour.Milliseconds(), end)
		if err != nil {
			s.fail(ctx, err, action.KindUnknown)
			return
		}
		v.Stats = stats
	}
	s.ok(ctx, v)
}

func (s *Server) limit(ctx *fasthttp.RequestCtx, def int) (int, bool) {
	raw := ctx.QueryArgs().Peek("limit")
	if len(raw) == 0 {
		return def, true
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil || n <= 0 || n > maxListLimit {
		s.fail(ctx, &action.Error{
			Kind:  action.KindValidation,
			Field: "limit",
			Msg:   "must be between 1 and " + strconv.Itoa(maxListLimit),
		}, action.KindValidation)
		return 0, false
	}
	return n, true
}

type createMintBody struct {
	Name          string          `json:"name"`
	Symbol        string          `json:"symbol"`
	Decimals      int             `json:"decimals"`
	InitialSupply decimal.Decimal `json:"initial_supply"`
}

type mintMoreBody struct {
	Mint   string          `json:"mint"`
	Amount decimal.Decimal `json:"amount"`
}

type transferBody struct {
	Mint      string          `json:"mint"`
	Recipient string          `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
	Decimals  *int            `json:"decimals,omitempty"`
}

func (s *Server) decode(ctx *fasthttp.RequestCtx, v interface{}) bool {
	if err := json.Unmarshal(ctx.PostBody(), v); err != nil {
		s.fail(ctx, &action.Error{Kind: action.KindValidation, Msg: "malformed JSON body", Err: err}, action.KindValidation)
		return false
	}
	return true
}

func (s *Server) postCreateMint(ctx *fasthttp.RequestCtx) {
	var b createMintBody
	if !s.decode(ctx, &b) {
		return
	}
	s.execute(ctx, action.CreateMint{
		Name:          b.Name,
		Symbol:        b.Symbol,
		Decimals:      b.Decimals,
		InitialSupply: b.InitialSupply,
	})
}

func (s *Server) postMintMore(ctx *fasthttp.RequestCtx) {
	var b mintMoreBody
	if !s.decode(ctx, &b) {
		return
	}
	s.execute(ctx, action.MintMore{Mint: b.Mint, Amount: b.Amount})
}

func (s *Server) postTransfer(ctx *fasthttp.RequestCtx) {
	var b transferBody
	if !s.decode(ctx, &b) {
		return
	}
	s.execute(ctx, action.Transfer{
		Mint:      b.Mint,
		Recipient: b.Recipient,
		Amount:    b.Amount,
		Decimals:  b.Decimals,
	})
}

func (s *Server) execute(ctx *fasthttp.RequestCtx, req action.Request) {
	res, err := s.deps.Actions.Execute(ctx, req)

	var view *resultView
	if res != nil {
		view = &resultView{
			Kind:         string(res.Kind),
			Value:        res.Value(),
			Address:      res.Address,
			Signature:    res.Signature,
			Slot:         res.Slot,
			Instructions: res.Instructions,
		}
		if res.Signature != "" {
			view.ExplorerURL = ledger.TransactionRecord{Signature: res.Signature}.ExplorerURL(s.deps.Cluster)
		}
	}

	if err != nil {
		if view != nil {
			s.failWith(ctx, err, action.KindUnknown, view)
		} else {
			s.fail(ctx, err, action.KindUnknown)
		}
		return
	}
	s.ok(ctx, view)
}
