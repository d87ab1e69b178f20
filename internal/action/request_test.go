package action

import (
	"errors"
	"strings"
	"testing"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/shopspring/decimal"
)

func TestCreateMint_Validate(t *testing.T) {
	good := CreateMint{Name: "Test", Symbol: "TST", Decimals: 9, InitialSupply: decimal.NewFromInt(1000)}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	tests := []struct {
		name  string
		mod   func(r *CreateMint)
		field string
	}{
		{"empty name", func(r *CreateMint) { r.Name = "  " }, "name"},
		{"long name", func(r *CreateMint) { r.Name = strings.Repeat("n", 33) }, "name"},
		{"empty symbol", func(r *CreateMint) { r.Symbol = "" }, "symbol"},
		{"long symbol", func(r *CreateMint) { r.Symbol = "ABCDEFGHIJK" }, "symbol"},
		{"negative decimals", func(r *CreateMint) { r.Decimals = -1 }, "decimals"},
		{"decimals too large", func(r *CreateMint) { r.Decimals = 19 }, "decimals"},
		{"zero supply", func(r *CreateMint) { r.InitialSupply = decimal.Zero }, "initial_supply"},
		{"supply too precise", func(r *CreateMint) { r.Decimals = 0; r.InitialSupply = decimal.RequireFromString("0.5") }, "initial_supply"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := good
			tt.mod(&r)
			err := r.Validate()

			var aerr *Error
			if !errors.As(err, &aerr) || aerr.Kind != KindValidation {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if aerr.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, aerr.Field)
			}
		})
	}
}

func TestMintMore_Validate(t *testing.T) {
	mint := types.NewAccount().PublicKey.ToBase58()

	if err := (MintMore{Mint: mint, Amount: decimal.NewFromInt(1)}).Validate(); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}
	if err := (MintMore{Mint: "", Amount: decimal.NewFromInt(1)}).Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ValidationError for empty mint, got %v", err)
	}
	if err := (MintMore{Mint: mint, Amount: decimal.NewFromInt(-1)}).Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ValidationError for negative amount, got %v", err)
	}
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount("amount", " 12.50 ")
	if err != nil {
		t.Fatalf("ParseAmount: %v", err)
	}
	if !d.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("got %s", d)
	}

	if _, err := ParseAmount("amount", "twelve"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestRequest_Summary(t *testing.T) {
	r := CreateMint{Name: "Test", Symbol: "TST", Decimals: 9, InitialSupply: decimal.NewFromInt(1000)}
	if got := r.Summary(); got != "Create token Test (TST) with 9 decimals and mint 1000" {
		t.Errorf("Summary() = %q", got)
	}
}
