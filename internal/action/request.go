// Package action executes token actions: creating a mint, minting more
// supply and transferring tokens.
package action

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"solana-token-desk/internal/token"
)

// RequestKind names an action variant.
type RequestKind string

const (
	KindCreateMint RequestKind = "create_mint"
	KindMintMore   RequestKind = "mint_more"
	KindTransfer   RequestKind = "transfer"
)

const (
	maxNameLength   = 32
	maxSymbolLength = 10
)

// Request is one of CreateMint, MintMore or Transfer.
type Request interface {
	Kind() RequestKind
	// Validate checks the request without touching the network.
	Validate() error
	// Summary describes the request for approval prompts.
	Summary() string
}

// CreateMint creates a new token and mints its initial supply to the caller.
type CreateMint struct {
	Name          string
	Symbol        string
	Decimals      int
	InitialSupply decimal.Decimal // display units
}

// MintMore mints additional supply of an existing token to the caller.
type MintMore struct {
	Mint   string
	Amount decimal.Decimal // display units
}

// Transfer sends tokens from the caller to a recipient wallet.
type Transfer struct {
	Mint      string
	Recipient string
	Amount    decimal.Decimal // display units
	// Decimals, when set, is the precision the caller expects the mint to have.
	// It lets precision errors surface before any network call. Zero is rejected.
	Decimals *int
}

var (
	_ Request = CreateMint{}
	_ Request = MintMore{}
	_ Request = Transfer{}
)

func (CreateMint) Kind() RequestKind { return KindCreateMint }
func (MintMore) Kind() RequestKind   { return KindMintMore }
func (Transfer) Kind() RequestKind   { return KindTransfer }

// Validate implements Request.
func (r CreateMint) Validate() error {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return validationError("name", "must not be empty")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return validationError("name", fmt.Sprintf("must be at most %d characters", maxNameLength))
	}
	symbol := strings.TrimSpace(r.Symbol)
	if symbol == "" {
		return validationError("symbol", "must not be empty")
	}
	if utf8.RuneCountInString(symbol) > maxSymbolLength {
		return validationError("symbol", fmt.Sprintf("must be at most %d characters", maxSymbolLength))
	}
	if err := validateDecimals(r.Decimals); err != nil {
		return err
	}
	return validateAmount("initial_supply", r.InitialSupply, r.Decimals)
}

// Summary implements Request.
func (r CreateMint) Summary() string {
	return fmt.Sprintf("Create token %s (%s) with %d decimals and mint %s", r.Name, r.Symbol, r.Decimals, r.InitialSupply.String())
}

// Validate implements Request.
func (r MintMore) Validate() error {
	if err := validateAddress("mint", r.Mint); err != nil {
		return err
	}
	return validateAmount("amount", r.Amount, -1)
}

// Summary implements Request.
func (r MintMore) Summary() string {
	return fmt.Sprintf("Mint %s of %s", r.Amount.String(), r.Mint)
}

// Validate implements Request.
func (r Transfer) Validate() error {
	if err := validateAddress("mint", r.Mint); err != nil {
		return err
	}
	if err := validateAddress("recipient", r.Recipient); err != nil {
		return err
	}
	if key, _ := token.ParsePublicKey(r.Recipient); !token.IsOnCurve(key) {
		return validationError("recipient", "must be a wallet address, not a token or program account")
	}
	decimals := -1
	if r.Decimals != nil {
		decimals = *r.Decimals
		if decimals == 0 {
			return validationError("decimals", "must be positive for a transfer")
		}
		if err := validateDecimals(decimals); err != nil {
			return err
		}
	}
	return validateAmount("amount", r.Amount, decimals)
}

// Summary implements Request.
func (r Transfer) Summary() string {
	return fmt.Sprintf("Transfer %s of %s to %s", r.Amount.String(), r.Mint, r.Recipient)
}

func validateDecimals(d int) error {
	if d < 0 || d > token.MaxDecimals {
		return validationError("decimals", fmt.Sprintf("must be between 0 and %d", token.MaxDecimals))
	}
	return nil
}

func validateAddress(field, s string) error {
	if strings.TrimSpace(s) == "" {
		return validationError(field, "must not be empty")
	}
	if _, err := token.ParsePublicKey(s); err != nil {
		return validationError(field, "not a valid address")
	}
	return nil
}

// validateAmount checks positivity, and precision when decimals >= 0.
func validateAmount(field string, amount decimal.Decimal, decimals int) error {
	if !amount.IsPositive() {
		return validationError(field, "must be positive")
	}
	if decimals < 0 {
		return nil
	}
	if _, err := token.ScaleAmount(amount, uint8(decimals)); err != nil {
		return &Error{Kind: KindValidation, Field: field, Msg: err.Error(), Err: err}
	}
	return nil
}

// ParseAmount parses a display amount supplied by a user.
func ParseAmount(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, validationError(field, "not a number")
	}
	return d, nil
}
