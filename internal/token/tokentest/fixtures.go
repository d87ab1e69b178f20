// Package tokentest builds SPL account fixtures for tests.
package tokentest

import (
	"encoding/base64"
	"encoding/binary"

	"github.com/blocto/solana-go-sdk/common"

	"solana-token-desk/internal/solana"
)

const tokenAccountSize = 165

// MintAccount returns an initialized mint account owned by the token program.
func MintAccount(decimals uint8, supply uint64, authority common.PublicKey) *solana.AccountInfo {
	data := make([]byte, 82)
	binary.LittleEndian.PutUint32(data[0:4], 1)
	copy(data[4:36], authority[:])
	binary.LittleEndian.PutUint64(data[36:44], supply)
	data[44] = decimals
	data[45] = 1 // initialized
	binary.LittleEndian.PutUint32(data[46:50], 1)
	copy(data[50:82], authority[:])

	return &solana.AccountInfo{
		Lamports: 1461600,
		Owner:    common.TokenProgramID.ToBase58(),
		Data:     base64.StdEncoding.EncodeToString(data),
	}
}

// HolderAccount returns an initialized token account holding amount of mint.
func HolderAccount(mint, owner common.PublicKey, amount uint64) *solana.AccountInfo {
	data := make([]byte, tokenAccountSize)
	copy(data[0:32], mint[:])
	copy(data[32:64], owner[:])
	binary.LittleEndian.PutUint64(data[64:72], amount)
	data[108] = 1 // initialized

	return &solana.AccountInfo{
		Lamports: 2039280,
		Owner:    common.TokenProgramID.ToBase58(),
		Data:     base64.StdEncoding.EncodeToString(data),
	}
}

// SystemAccount returns an account owned by the system program.
func SystemAccount(lamports uint64) *solana.AccountInfo {
	return &solana.AccountInfo{
		Lamports: lamports,
		Owner:    common.SystemProgramID.ToBase58(),
	}
}
