package wallet

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
)

// KeypairWallet signs with a local ed25519 keypair.
type KeypairWallet struct {
	mu       sync.RWMutex
	path     string
	account  *types.Account
	loaded   *types.Account
	approver Approver
}

// Compile-time interface check.
var _ Wallet = (*KeypairWallet)(nil)

// NewKeypairWallet creates a wallet that loads a Solana CLI keypair file on Connect.
// A nil approver approves every request.
func NewKeypairWallet(path string, approver Approver) *KeypairWallet {
	if approver == nil {
		approver = AutoApprove
	}
	return &KeypairWallet{path: path, approver: approver}
}

// NewAccountWallet creates a wallet around an in-memory account.
func NewAccountWallet(account types.Account, approver Approver) *KeypairWallet {
	w := NewKeypairWallet("", approver)
	w.loaded = &account
	return w
}

// Connect loads the keypair.
func (w *KeypairWallet) Connect(_ context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.account != nil {
		return nil
	}
	if w.loaded == nil {
		acc, err := LoadKeypair(w.path)
		if err != nil {
			return err
		}
		w.loaded = &acc
	}
	w.account = w.loaded
	return nil
}

// Disconnect forgets the active account.
func (w *KeypairWallet) Disconnect() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.account = nil
	return nil
}

// Connected reports whether the wallet can sign.
func (w *KeypairWallet) Connected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.account != nil
}

// PublicKey returns the wallet key, false when disconnected.
func (w *KeypairWallet) PublicKey() (common.PublicKey, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.account == nil {
		return common.PublicKey{}, false
	}
	return w.account.PublicKey, true
}

// SignTransaction asks the approver, then signs tx.
// When ctx ends first the approver's eventual answer is discarded.
func (w *KeypairWallet) SignTransaction(ctx context.Context, tx *types.Transaction, approval Approval) error {
	w.mu.RLock()
	acc := w.account
	w.mu.RUnlock()
	if acc == nil {
		return ErrNotConnected
	}

	done := make(chan error, 1)
	go func() {
		done <- w.approver.Approve(ctx, approval)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return err
		}
	}

	return Sign(tx, *acc)
}

// LoadKeypair reads a Solana CLI keypair file (a JSON array of 64 bytes).
func LoadKeypair(path string) (types.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Account{}, fmt.Errorf("read keypair: %w", err)
	}

	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return types.Account{}, fmt.Errorf("parse keypair %s: %w", path, err)
	}
	if len(ints) != ed25519.PrivateKeySize {
		return types.Account{}, fmt.Errorf("keypair %s: got %d bytes, want %d", path, len(ints), ed25519.PrivateKeySize)
	}

	key := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return types.Account{}, fmt.Errorf("keypair %s: byte %d out of range", path, i)
		}
		key[i] = byte(v)
	}

	acc, err := types.AccountFromBytes(key)
	if err != nil {
		return types.Account{}, fmt.Errorf("keypair %s: %w", path, err)
	}
	return acc, nil
}

// SaveKeypair writes account in Solana CLI keypair format.
func SaveKeypair(path string, account types.Account) error {
	ints := make([]int, len(account.PrivateKey))
	for i, b := range account.PrivateKey {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
