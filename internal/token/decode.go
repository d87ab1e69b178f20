package token

import (
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/shopspring/decimal"

	"solana-token-desk/internal/solana"
)

var (
	// ErrNotTokenAccount is returned when an account is not owned by the SPL Token program.
	ErrNotTokenAccount = errors.New("account is not owned by the token program")

	// ErrAccountNotFound is returned when the account does not exist.
	ErrAccountNotFound = errors.New("account does not exist")

	// ErrMintNotInitialized is returned for mint accounts that were allocated but never initialized.
	ErrMintNotInitialized = errors.New("mint is not initialized")
)

// MintInfo is the decoded state of a mint account.
type MintInfo struct {
	Address         string
	Decimals        uint8
	Supply          uint64
	MintAuthority   string // empty when minting is disabled
	FreezeAuthority string // empty when freezing is disabled
}

// DisplaySupply returns the supply in display units.
func (m *MintInfo) DisplaySupply() decimal.Decimal {
	return DisplayAmount(m.Supply, m.Decimals)
}

// HolderInfo is the decoded state of a token account.
type HolderInfo struct {
	Address string
	Mint    string
	Owner   string
	Amount  uint64
}

// DecodeMint decodes a mint account fetched via getAccountInfo.
func DecodeMint(address string, info *solana.AccountInfo) (*MintInfo, error) {
	data, err := tokenAccountData(info)
	if err != nil {
		return nil, err
	}

	mint, err := token.MintAccountFromData(data)
	if err != nil {
		return nil, fmt.Errorf("decode mint %s: %w", address, err)
	}
	if !mint.IsInitialized {
		return nil, fmt.Errorf("%w: %s", ErrMintNotInitialized, address)
	}

	out := &MintInfo{
		Address:  address,
		Decimals: mint.Decimals,
		Supply:   mint.Supply,
	}
	if mint.MintAuthority != nil {
		out.MintAuthority = mint.MintAuthority.ToBase58()
	}
	if mint.FreezeAuthority != nil {
		out.FreezeAuthority = mint.FreezeAuthority.ToBase58()
	}
	return out, nil
}

// DecodeHolder decodes a token account fetched via getAccountInfo.
func DecodeHolder(address string, info *solana.AccountInfo) (*HolderInfo, error) {
	data, err := tokenAccountData(info)
	if err != nil {
		return nil, err
	}

	acct, err := token.TokenAccountFromData(data)
	if err != nil {
		return nil, fmt.Errorf("decode token account %s: %w", address, err)
	}

	return &HolderInfo{
		Address: address,
		Mint:    acct.Mint.ToBase58(),
		Owner:   acct.Owner.ToBase58(),
		Amount:  acct.Amount,
	}, nil
}

func tokenAccountData(info *solana.AccountInfo) ([]byte, error) {
	if info == nil {
		return nil, ErrAccountNotFound
	}
	if info.Owner != common.TokenProgramID.ToBase58() {
		return nil, fmt.Errorf("%w: owner %s", ErrNotTokenAccount, info.Owner)
	}
	return info.DecodeData()
}
