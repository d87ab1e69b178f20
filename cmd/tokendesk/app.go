package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"solana-token-desk/internal/action"
	"solana-token-desk/internal/config"
	"solana-token-desk/internal/failover"
	"solana-token-desk/internal/ledger"
	"solana-token-desk/internal/solana"
	"solana-token-desk/internal/storage"
	chstore "solana-token-desk/internal/storage/clickhouse"
	"solana-token-desk/internal/storage/memory"
	"solana-token-desk/internal/storage/migrations"
	pgstore "solana-token-desk/internal/storage/postgres"
	"solana-token-desk/internal/wallet"
)

// stores holds all storage implementations.
type stores struct {
	journal  storage.ActionJournalStore
	metadata storage.TokenMetadataStore
	attempts storage.EndpointAttemptStore
}

// app wires every component from configuration.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	stores  *stores
	pool    *failover.Pool
	ws      solana.WSClient
	wallet  *wallet.KeypairWallet
	reader  *ledger.Reader
	coord   *action.Coordinator
	surface *action.Surface
	cleanup []func()
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, approver wallet.Approver) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, action.Classify(err, action.KindConfiguration)
	}

	a := &app{cfg: cfg, logger: logger}

	st, err := a.createStores(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.stores = st

	a.pool, err = failover.NewPool(cfg.RPC.Endpoints, a.clientFactory(),
		failover.WithLogger(logger.Named("failover")),
		failover.WithAttemptStore(st.attempts))
	if err != nil {
		a.Close()
		return nil, action.Classify(err, action.KindConfiguration)
	}

	if cfg.RPC.WSEndpoint != "" {
		wsCfg := solana.DefaultWSConfig()
		wsCfg.Logger = logger
		ws, err := solana.NewWSClient(ctx, cfg.RPC.WSEndpoint, &wsCfg)
		if err != nil {
			// polling alone still confirms
			logger.Warn("websocket unavailable, confirming by polling", zap.String("endpoint", cfg.RPC.WSEndpoint), zap.Error(err))
		} else {
			a.ws = ws
			a.cleanup = append(a.cleanup, func() { ws.Close() })
		}
	}

	a.wallet = wallet.NewKeypairWallet(expandHome(cfg.Wallet.KeypairPath), approver)
	if err := a.wallet.Connect(ctx); err != nil {
		logger.Warn("wallet not connected", zap.String("keypair", cfg.Wallet.KeypairPath), zap.Error(err))
	}

	mints := ledger.NewMintCache(a.pool, cfg.Cache.MintTTL)
	a.reader = ledger.NewReader(a.pool,
		ledger.WithMintSource(mints),
		ledger.WithConcurrency(cfg.History.Concurrency),
		ledger.WithLogger(logger.Named("ledger")))

	confirmer := action.NewConfirmer(a.pool, a.ws,
		cfg.Action.ConfirmTimeout, cfg.Action.PollInterval, cfg.Action.Commitment,
		logger.Named("confirm"))
	a.coord = action.NewCoordinator(a.pool, a.wallet,
		action.WithLogger(logger.Named("coordinator")),
		action.WithConfirmer(confirmer),
		action.WithMintSource(mints),
		action.WithJournal(st.journal),
		action.WithMetadataStore(st.metadata))
	a.surface = action.NewSurface(a.coord)

	return a, nil
}

func (a *app) clientFactory() failover.ClientFactory {
	cfg := a.cfg
	return func(endpoint string) solana.RPCClient {
		opts := []solana.ClientOption{
			solana.WithTimeout(cfg.RPC.Timeout),
			solana.WithMaxRetries(cfg.RPC.MaxRetries),
			solana.WithCommitment(cfg.Action.Commitment),
		}
		if cfg.RPC.RateLimitRPS > 0 {
			opts = append(opts, solana.WithRateLimit(cfg.RPC.RateLimitRPS, cfg.RPC.RateLimitBurst))
		}
		return solana.NewHTTPClient(endpoint, opts...)
	}
}

// createStores creates the journal, metadata and attempt stores.
func (a *app) createStores(ctx context.Context) (*stores, error) {
	st := &stores{
		journal:  memory.NewActionJournalStore(),
		metadata: memory.NewTokenMetadataStore(),
		attempts: memory.NewEndpointAttemptStoreWithCapacity(a.cfg.Storage.AttemptCapacity),
	}

	if a.cfg.Storage.Backend == "postgres" {
		pool, err := pgstore.NewPool(ctx, a.cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.cleanup = append(a.cleanup, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		st.journal = pgstore.NewActionJournalStore(pool)
		st.metadata = pgstore.NewTokenMetadataStore(pool)
	}

	if a.cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, a.cfg.Storage.ClickhouseDSN)
		if err != nil {
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		a.cleanup = append(a.cleanup, func() { conn.Close() })
		st.attempts = chstore.NewEndpointAttemptStore(conn)
	}

	return st, nil
}

// Close releases connections in reverse order of creation.
func (a *app) Close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
