package solana

import "context"

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeSignature subscribes to the confirmation of a single transaction signature.
	// The returned channel yields at most one notification and is closed afterwards.
	// The returned cancel func drops the subscription; it is safe to call more than once.
	SubscribeSignature(ctx context.Context, signature, commitment string) (<-chan SignatureNotification, func(), error)

	// Close closes the WebSocket connection.
	Close() error
}

// SignatureNotification represents a signatureNotification message.
type SignatureNotification struct {
	Signature string
	Slot      int64
	Err       interface{}
}
