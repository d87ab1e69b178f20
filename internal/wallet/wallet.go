// Package wallet provides the signing collaborator used by token actions.
package wallet

import (
	"context"
	"errors"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
)

var (
	// ErrNotConnected is returned when signing is requested without a connected wallet.
	ErrNotConnected = errors.New("wallet not connected")

	// ErrRejected is returned when the signature request was declined.
	ErrRejected = errors.New("signature request rejected")

	// ErrNotSigner is returned when the wallet key is not a required signer of the transaction.
	ErrNotSigner = errors.New("wallet is not a required signer")
)

// Approval describes a pending signature request shown to the user.
type Approval struct {
	Action       string   // create_mint | mint_more | transfer
	Summary      string   // one-line human description
	Instructions []string // instruction names in execution order
}

// Wallet holds the user's identity and signs transactions on their behalf.
type Wallet interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Connected() bool

	// PublicKey returns the wallet key, false when disconnected.
	PublicKey() (common.PublicKey, bool)

	// SignTransaction adds the wallet signature to tx after approval.
	// It blocks until the request is approved, rejected or ctx is done.
	SignTransaction(ctx context.Context, tx *types.Transaction, approval Approval) error
}

// Sign places account's signature into tx at the account's signer slot.
func Sign(tx *types.Transaction, account types.Account) error {
	msg, err := tx.Message.Serialize()
	if err != nil {
		return err
	}

	n := int(tx.Message.Header.NumRequireSignatures)
	for i := 0; i < n && i < len(tx.Message.Accounts); i++ {
		if tx.Message.Accounts[i] != account.PublicKey {
			continue
		}
		for len(tx.Signatures) < n {
			tx.Signatures = append(tx.Signatures, make([]byte, 64))
		}
		tx.Signatures[i] = account.Sign(msg)
		return nil
	}
	return ErrNotSigner
}
