package domain

// ActionState is the lifecycle state a token action ended in.
type ActionState string

const (
	ActionStateSucceeded     ActionState = "SUCCEEDED"
	ActionStateFailed        ActionState = "FAILED"
	ActionStateIndeterminate ActionState = "INDETERMINATE" // confirmation timed out
)

// JournalEntry records the outcome of one executed token action.
// Corresponds to action_journal table in PostgreSQL.
type JournalEntry struct {
	EntryID    string      // PRIMARY KEY, deterministic hash
	Kind       string      // create_mint | mint_more | transfer
	State      ActionState // final lifecycle state
	Owner      string      // wallet public key
	Mint       string      // mint address (created or targeted)
	Recipient  *string     // transfer recipient (nullable)
	Amount     string      // requested amount in display units
	Signature  *string     // transaction signature, nil when never submitted
	ErrorKind  *string     // classified error kind (nullable)
	ErrorMsg   *string     // error message (nullable)
	StartedAt  int64       // Unix timestamp in milliseconds
	FinishedAt int64       // Unix timestamp in milliseconds
}

// Pending reports whether the action may still land on chain.
func (e *JournalEntry) Pending() bool {
	return e.State == ActionStateIndeterminate
}
