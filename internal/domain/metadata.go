package domain

// TokenMetadata describes a mint created through the desk.
// Name and symbol live only here; no on-chain metadata account is written.
// Corresponds to token_metadata table in PostgreSQL.
type TokenMetadata struct {
	Mint      string  // PRIMARY KEY, mint address
	Name      string  // token name
	Symbol    string  // token symbol
	Decimals  int     // token decimals
	Creator   string  // wallet that paid for and owns the mint authority
	Signature *string // creating transaction (nullable)
	CreatedAt int64   // Unix timestamp in milliseconds
}
