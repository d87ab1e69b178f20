// Package token wraps the SPL Token program: address parsing, instruction
// building, account decoding and amount conversion.
package token

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/mr-tron/base58"
)

// ErrInvalidAddress is returned for strings that are not base58 32-byte keys.
var ErrInvalidAddress = errors.New("invalid address")

// ParsePublicKey decodes a base58 address.
func ParsePublicKey(s string) (common.PublicKey, error) {
	if s == "" {
		return common.PublicKey{}, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	b, err := base58.Decode(s)
	if err != nil {
		return common.PublicKey{}, fmt.Errorf("%w: %s: %v", ErrInvalidAddress, s, err)
	}
	if len(b) != common.PublicKeyLength {
		return common.PublicKey{}, fmt.Errorf("%w: %s: %d bytes", ErrInvalidAddress, s, len(b))
	}
	return common.PublicKeyFromBytes(b), nil
}

// IsOnCurve reports whether key is a valid ed25519 point.
// Wallet owners are on the curve; program derived addresses are not.
func IsOnCurve(key common.PublicKey) bool {
	_, err := new(edwards25519.Point).SetBytes(key[:])
	return err == nil
}

// AssociatedAddress derives the associated token account of owner for mint.
func AssociatedAddress(owner, mint common.PublicKey) (common.PublicKey, error) {
	key, _, err := common.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return common.PublicKey{}, fmt.Errorf("derive associated address: %w", err)
	}
	return key, nil
}
