package ledger

import (
	"fmt"
	"time"

	"solana-token-desk/internal/solana"
)

// TransactionRecord is one entry of an address history.
type TransactionRecord struct {
	Signature string
	Slot      int64
	BlockTime *int64 // unix seconds, nil when the node does not know it
	Success   bool
	Fee       uint64
	Error     string
}

func newRecord(sig solana.SignatureInfo, tx *solana.Transaction) *TransactionRecord {
	rec := &TransactionRecord{
		Signature: sig.Signature,
		Slot:      tx.Slot,
		BlockTime: tx.BlockTime,
		Success:   tx.Succeeded(),
	}
	if rec.Slot == 0 {
		rec.Slot = sig.Slot
	}
	if rec.BlockTime == nil {
		rec.BlockTime = sig.BlockTime
	}
	if tx.Meta != nil {
		rec.Fee = tx.Meta.Fee
		if tx.Meta.Err != nil {
			rec.Error = fmt.Sprint(tx.Meta.Err)
		}
	}
	return rec
}

func (r TransactionRecord) blockTime() int64 {
	if r.BlockTime == nil {
		return 0
	}
	return *r.BlockTime
}

// Time returns the block time, or the zero time when unknown.
func (r TransactionRecord) Time() time.Time {
	if r.BlockTime == nil {
		return time.Time{}
	}
	return time.Unix(*r.BlockTime, 0).UTC()
}

// ExplorerURL links the transaction on the Solana explorer.
// mainnet-beta and an empty cluster produce a link without a cluster parameter.
func (r TransactionRecord) ExplorerURL(cluster string) string {
	u := "https://explorer.solana.com/tx/" + r.Signature
	if cluster != "" && cluster != "mainnet-beta" {
		u += "?cluster=" + cluster
	}
	return u
}
