package action

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-token-desk/internal/solana"
)

const (
	DefaultConfirmTimeout = 60 * time.Second
	DefaultPollInterval   = 2 * time.Second
)

var (
	// errConfirmTimeout is returned by Await when the wait expires.
	errConfirmTimeout = errors.New("confirmation wait expired")

	// ErrTransactionFailed is returned when the transaction landed with an error.
	ErrTransactionFailed = errors.New("transaction failed on chain")
)

// Confirmer waits for a submitted signature to reach a commitment level.
// It polls getSignatureStatuses and, when a WebSocket client is set, also
// listens for a signature notification.
type Confirmer struct {
	rpc        solana.RPCClient
	ws         solana.WSClient
	timeout    time.Duration
	interval   time.Duration
	commitment string
	logger     *zap.Logger
}

// NewConfirmer creates a confirmer. ws may be nil.
func NewConfirmer(rpc solana.RPCClient, ws solana.WSClient, timeout, interval time.Duration, commitment string, logger *zap.Logger) *Confirmer {
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if commitment == "" {
		commitment = solana.CommitmentConfirmed
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Confirmer{
		rpc:        rpc,
		ws:         ws,
		timeout:    timeout,
		interval:   interval,
		commitment: commitment,
		logger:     logger,
	}
}

// Await blocks until signature reaches the configured commitment.
// It returns errConfirmTimeout when the bounded wait expires and
// ErrTransactionFailed when the transaction landed with an error.
// Cancellation of ctx is returned as ctx.Err().
func (c *Confirmer) Await(ctx context.Context, signature string) (*solana.SignatureStatus, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var notifications <-chan solana.SignatureNotification
	if c.ws != nil {
		ch, unsubscribe, err := c.ws.SubscribeSignature(waitCtx, signature, c.commitment)
		if err != nil {
			c.logger.Warn("signature subscription failed, polling only",
				zap.String("signature", signature), zap.Error(err))
		} else {
			defer unsubscribe()
			notifications = ch
		}
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		status, err := c.poll(waitCtx, signature)
		if err != nil {
			c.logger.Debug("signature status poll failed", zap.String("signature", signature), zap.Error(err))
		} else if status != nil {
			if status.Err != nil {
				return status, fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err)
			}
			if status.Reached(c.commitment) {
				return status, nil
			}
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w after %s", errConfirmTimeout, c.timeout)
		case n, ok := <-notifications:
			if !ok {
				notifications = nil
				continue
			}
			status := &solana.SignatureStatus{
				Slot:               n.Slot,
				Err:                n.Err,
				ConfirmationStatus: c.commitment,
			}
			if n.Err != nil {
				return status, fmt.Errorf("%w: %v", ErrTransactionFailed, n.Err)
			}
			return status, nil
		case <-ticker.C:
		}
	}
}

func (c *Confirmer) poll(ctx context.Context, signature string) (*solana.SignatureStatus, error) {
	statuses, err := c.rpc.GetSignatureStatuses(ctx, []string{signature})
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return nil, nil
	}
	return statuses[0], nil
}
