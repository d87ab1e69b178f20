package token

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// MaxDecimals is the largest decimals value accepted for a mint.
const MaxDecimals = 18

var (
	// ErrInvalidAmount is returned for amounts that are not positive decimals.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrTooPrecise is returned when an amount has more fractional digits than the mint allows.
	ErrTooPrecise = errors.New("amount exceeds mint precision")

	// ErrAmountOverflow is returned when the raw amount does not fit in u64.
	ErrAmountOverflow = errors.New("amount overflows u64")
)

// ScaleAmount converts a display amount into raw base units.
func ScaleAmount(d decimal.Decimal, decimals uint8) (uint64, error) {
	if !d.IsPositive() {
		return 0, fmt.Errorf("%w: %s must be positive", ErrInvalidAmount, d.String())
	}
	if decimals > MaxDecimals {
		return 0, fmt.Errorf("decimals %d out of range [0,%d]", decimals, MaxDecimals)
	}

	raw := d.Shift(int32(decimals))
	if !raw.IsInteger() {
		return 0, fmt.Errorf("%w: %s with %d decimals", ErrTooPrecise, d.String(), decimals)
	}

	bi := raw.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("%w: %s", ErrAmountOverflow, d.String())
	}
	return bi.Uint64(), nil
}

// DisplayAmount converts raw base units into a display decimal.
func DisplayAmount(raw uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals))
}

// FormatAmount renders raw base units with exactly decimals fractional digits.
func FormatAmount(raw uint64, decimals uint8) string {
	return DisplayAmount(raw, decimals).StringFixed(int32(decimals))
}
