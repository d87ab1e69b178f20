package memory

import (
	"context"
	"errors"
	"testing"

	"solana-token-desk/internal/domain"
	"solana-token-desk/internal/storage"
)

func TestTokenMetadataStore_InsertAndGetByMint(t *testing.T) {
	store := NewTokenMetadataStore()
	ctx := context.Background()

	sig := "5sig"
	meta := &domain.TokenMetadata{
		Mint:      "mint1",
		Name:      "TestToken",
		Symbol:    "TT",
		Decimals:  9,
		Creator:   "owner1",
		Signature: &sig,
		CreatedAt: 1704067200000,
	}

	if err := store.Insert(ctx, meta); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	result, err := store.GetByMint(ctx, "mint1")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}

	if result.Name != "TestToken" {
		t.Errorf("Name mismatch: got %s, want TestToken", result.Name)
	}
	if result.Symbol != "TT" {
		t.Errorf("Symbol mismatch: got %s, want TT", result.Symbol)
	}

	// Mutating the result must not affect the store
	result.Name = "Changed"
	again, _ := store.GetByMint(ctx, "mint1")
	if again.Name != "TestToken" {
		t.Errorf("store was mutated through returned copy")
	}
}

func TestTokenMetadataStore_DuplicateMint(t *testing.T) {
	store := NewTokenMetadataStore()
	ctx := context.Background()

	meta := &domain.TokenMetadata{Mint: "mint1", Name: "A"}
	if err := store.Insert(ctx, meta); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	err := store.Insert(ctx, &domain.TokenMetadata{Mint: "mint1", Name: "B"})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTokenMetadataStore_NotFound(t *testing.T) {
	store := NewTokenMetadataStore()

	_, err := store.GetByMint(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTokenMetadataStore_InvalidInput(t *testing.T) {
	store := NewTokenMetadataStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.TokenMetadata{Name: "no mint"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty mint, got %v", err)
	}
}

func TestTokenMetadataStore_ListByCreator(t *testing.T) {
	store := NewTokenMetadataStore()
	ctx := context.Background()

	for _, m := range []*domain.TokenMetadata{
		{Mint: "m1", Creator: "alice", CreatedAt: 100},
		{Mint: "m2", Creator: "bob", CreatedAt: 200},
		{Mint: "m3", Creator: "alice", CreatedAt: 300},
	} {
		if err := store.Insert(ctx, m); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	result, err := store.ListByCreator(ctx, "alice")
	if err != nil {
		t.Fatalf("ListByCreator failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(result))
	}
	if result[0].Mint != "m3" || result[1].Mint != "m1" {
		t.Errorf("Wrong order: got %s, %s", result[0].Mint, result[1].Mint)
	}

	none, err := store.ListByCreator(ctx, "carol")
	if err != nil {
		t.Fatalf("ListByCreator failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected no entries, got %d", len(none))
	}
}
