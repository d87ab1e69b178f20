// Package api exposes the desk over HTTP.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"solana-token-desk/internal/action"
	"solana-token-desk/internal/ledger"
	"solana-token-desk/internal/observability"
	"solana-token-desk/internal/storage"
	"solana-token-desk/internal/wallet"
)

// StatusChecker looks up submitted signatures.
type StatusChecker interface {
	CheckStatus(ctx context.Context, signature string) (*action.StatusReport, error)
}

// EndpointView reports the failover pool state.
type EndpointView interface {
	Endpoints() []string
	Current() string
}

// Deps are the collaborators served over HTTP. Journal, Metadata,
// Attempts and Endpoints are optional.
type Deps struct {
	Wallet    wallet.Wallet
	Reader    *ledger.Reader
	Actions   action.Executor
	Status    StatusChecker
	Journal   storage.ActionJournalStore
	Metadata  storage.TokenMetadataStore
	Attempts  storage.EndpointAttemptStore
	Endpoints EndpointView
	Cluster   string
}

// Server is the HTTP surface.
type Server struct {
	deps   Deps
	logger *zap.Logger
	now    func() time.Time
}

// NewServer creates a server.
func NewServer(deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		deps:   deps,
		logger: logger.Named("api"),
		now:    time.Now,
	}
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() fasthttp.RequestHandler {
	r := router.New()

	r.GET("/health", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("OK")
	})
	r.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(observability.Handler()))

	r.GET("/wallet", s.getWallet)
	r.GET("/balance", s.getSOLBalance)
	r.GET("/balance/{mint}", s.getTokenBalance)
	r.GET("/mints/{mint}", s.getMint)
	r.GET("/history", s.getHistory)
	r.GET("/tokens", s.getTokens)
	r.GET("/journal", s.getJournal)
	r.GET("/journal/pending", s.getPending)
	r.GET("/status/{signature}", s.getStatus)
	r.GET("/endpoints", s.getEndpoints)

	r.POST("/actions/create-mint", s.postCreateMint)
	r.POST("/actions/mint", s.postMintMore)
	r.POST("/actions/transfer", s.postTransfer)

	return s.logRequests(r.Handler)
}

func (s *Server) logRequests(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		started := s.now()
		next(ctx)
		s.logger.Debug("request",
			zap.ByteString("method", ctx.Method()),
			zap.ByteString("uri", ctx.RequestURI()),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.Duration("elapsed", s.now().Sub(started)))
	}
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &fasthttp.Server{
		Handler:      s.Handler(),
		Name:         "tokendesk",
		ReadTimeout:  10 * time.Second,
		// actions wait for confirmation
		WriteTimeout: 2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", zap.String("address", addr))
		errCh <- srv.ListenAndServe(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		if err := srv.Shutdown(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}
