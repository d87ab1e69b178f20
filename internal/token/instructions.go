package token

import (
	"encoding/binary"
	"errors"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/associated_token_account"
	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/blocto/solana-go-sdk/types"
)

// MintAccountSize is the size in bytes of an SPL mint account.
const MintAccountSize = token.MintAccountSize

// Instruction names returned by Name.
const (
	NameCreateAccount           = "create-account"
	NameInitializeMint          = "initialize-mint"
	NameCreateAssociatedAccount = "create-associated-account"
	NameMintTo                  = "mint-to"
	NameTransfer                = "transfer"
	NameTransferChecked         = "transfer-checked"
	NameUnknown                 = "unknown"
)

var errZeroAmount = errors.New("amount must be positive")

// CreateMintParams describes a new mint and its initial supply.
type CreateMintParams struct {
	Payer         common.PublicKey // fee payer, mint and freeze authority, initial holder
	Mint          common.PublicKey // freshly generated mint account
	Decimals      uint8
	RentLamports  uint64 // rent-exempt minimum for MintAccountSize
	InitialSupply uint64 // raw base units
}

// CreateMintInstructions returns the four instructions that create a mint,
// in the order they must execute:
// allocate the mint account, initialize it, create the payer's associated
// account, mint the initial supply into it.
func CreateMintInstructions(p CreateMintParams) ([]types.Instruction, error) {
	if p.InitialSupply == 0 {
		return nil, errZeroAmount
	}
	if p.Decimals > MaxDecimals {
		return nil, errors.New("decimals out of range")
	}

	ata, err := AssociatedAddress(p.Payer, p.Mint)
	if err != nil {
		return nil, err
	}

	freeze := p.Payer
	return []types.Instruction{
		system.CreateAccount(system.CreateAccountParam{
			From:     p.Payer,
			New:      p.Mint,
			Owner:    common.TokenProgramID,
			Lamports: p.RentLamports,
			Space:    MintAccountSize,
		}),
		token.InitializeMint(token.InitializeMintParam{
			Decimals:   p.Decimals,
			Mint:       p.Mint,
			MintAuth:   p.Payer,
			FreezeAuth: &freeze,
		}),
		associated_token_account.CreateAssociatedTokenAccount(associated_token_account.CreateAssociatedTokenAccountParam{
			Funder:                 p.Payer,
			Owner:                  p.Payer,
			Mint:                   p.Mint,
			AssociatedTokenAccount: ata,
		}),
		token.MintTo(token.MintToParam{
			Mint:   p.Mint,
			To:     ata,
			Auth:   p.Payer,
			Amount: p.InitialSupply,
		}),
	}, nil
}

// MintToParams describes minting more supply of an existing mint.
type MintToParams struct {
	Authority   common.PublicKey // mint authority and fee payer
	Mint        common.PublicKey
	Owner       common.PublicKey // holder of the destination associated account
	Amount      uint64           // raw base units
	CreateOwner bool             // create the destination associated account first
}

// MintToInstructions mints Amount into Owner's associated account.
func MintToInstructions(p MintToParams) ([]types.Instruction, error) {
	if p.Amount == 0 {
		return nil, errZeroAmount
	}

	ata, err := AssociatedAddress(p.Owner, p.Mint)
	if err != nil {
		return nil, err
	}

	ins := make([]types.Instruction, 0, 2)
	if p.CreateOwner {
		ins = append(ins, associated_token_account.CreateAssociatedTokenAccount(associated_token_account.CreateAssociatedTokenAccountParam{
			Funder:                 p.Authority,
			Owner:                  p.Owner,
			Mint:                   p.Mint,
			AssociatedTokenAccount: ata,
		}))
	}
	ins = append(ins, token.MintTo(token.MintToParam{
		Mint:   p.Mint,
		To:     ata,
		Auth:   p.Authority,
		Amount: p.Amount,
	}))
	return ins, nil
}

// TransferParams describes a token transfer between two owners.
type TransferParams struct {
	Owner           common.PublicKey // sender and fee payer
	Mint            common.PublicKey
	Recipient       common.PublicKey // recipient wallet, not its token account
	Amount          uint64           // raw base units
	Decimals        uint8
	CreateRecipient bool // create the recipient's associated account first
}

// TransferInstructions moves Amount from Owner's associated account to
// Recipient's, checking the mint decimals on chain.
func TransferInstructions(p TransferParams) ([]types.Instruction, error) {
	if p.Amount == 0 {
		return nil, errZeroAmount
	}

	from, err := AssociatedAddress(p.Owner, p.Mint)
	if err != nil {
		return nil, err
	}
	to, err := AssociatedAddress(p.Recipient, p.Mint)
	if err != nil {
		return nil, err
	}

	ins := make([]types.Instruction, 0, 2)
	if p.CreateRecipient {
		ins = append(ins, associated_token_account.CreateAssociatedTokenAccount(associated_token_account.CreateAssociatedTokenAccountParam{
			Funder:                 p.Owner,
			Owner:                  p.Recipient,
			Mint:                   p.Mint,
			AssociatedTokenAccount: to,
		}))
	}
	ins = append(ins, token.TransferChecked(token.TransferCheckedParam{
		From:     from,
		To:       to,
		Mint:     p.Mint,
		Auth:     p.Owner,
		Amount:   p.Amount,
		Decimals: p.Decimals,
	}))
	return ins, nil
}

// Name identifies an instruction built by this package.
func Name(ix types.Instruction) string {
	switch ix.ProgramID {
	case common.SystemProgramID:
		if len(ix.Data) >= 4 && binary.LittleEndian.Uint32(ix.Data) == 0 {
			return NameCreateAccount
		}
	case common.SPLAssociatedTokenAccountProgramID:
		return NameCreateAssociatedAccount
	case common.TokenProgramID:
		if len(ix.Data) == 0 {
			return NameUnknown
		}
		switch ix.Data[0] {
		case 0:
			return NameInitializeMint
		case 3:
			return NameTransfer
		case 7:
			return NameMintTo
		case 12:
			return NameTransferChecked
		}
	}
	return NameUnknown
}

// Names maps Name over ins.
func Names(ins []types.Instruction) []string {
	out := make([]string, len(ins))
	for i, ix := range ins {
		out[i] = Name(ix)
	}
	return out
}
