package stub

import (
	"context"
	"crypto/sha256"
	"errors"
	"sync"

	"github.com/mr-tron/base58"

	"solana-token-desk/internal/solana"
)

// ErrNotFound is returned when a transaction is not found.
var ErrNotFound = errors.New("not found")

// DefaultBlockhash is returned by GetLatestBlockhash unless overridden.
const DefaultBlockhash = "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N"

// RPCClient implements solana.RPCClient for testing.
// It records every call so tests can assert on network traffic.
type RPCClient struct {
	mu sync.Mutex

	Balances     map[string]uint64
	Accounts     map[string]*solana.AccountInfo
	Transactions map[string]*solana.Transaction
	Signatures   map[string][]solana.SignatureInfo
	Statuses     map[string]*solana.SignatureStatus
	Rent         uint64

	// Err, when set, is returned by every call.
	Err error
	// SendErr, when set, is returned by SendTransaction only.
	SendErr error
	// TxErrs makes GetTransaction fail for specific signatures.
	TxErrs map[string]error

	// Sent holds every raw transaction passed to SendTransaction.
	Sent  [][]byte
	Calls []string
}

// Compile-time interface check.
var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Balances:     make(map[string]uint64),
		Accounts:     make(map[string]*solana.AccountInfo),
		Transactions: make(map[string]*solana.Transaction),
		Signatures:   make(map[string][]solana.SignatureInfo),
		Statuses:     make(map[string]*solana.SignatureStatus),
		TxErrs:       make(map[string]error),
		Rent:         1461600,
	}
}

func (c *RPCClient) record(method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, method)
	return c.Err
}

// CallCount returns the number of calls made so far.
func (c *RPCClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}

// CallsTo returns how many times method was called.
func (c *RPCClient) CallsTo(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.Calls {
		if m == method {
			n++
		}
	}
	return n
}

// GetBalance returns the stubbed lamport balance.
func (c *RPCClient) GetBalance(_ context.Context, address string) (uint64, error) {
	if err := c.record("getBalance"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Balances[address], nil
}

// GetAccountInfo returns the stubbed account or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, address string) (*solana.AccountInfo, error) {
	if err := c.record("getAccountInfo"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Accounts[address], nil
}

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	if err := c.record("getTransaction"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.TxErrs[signature]; ok {
		return nil, err
	}
	tx, ok := c.Transactions[signature]
	if !ok {
		return nil, ErrNotFound
	}
	return tx, nil
}

// GetSignaturesForAddress retrieves signatures for an address from the stub store.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	if err := c.record("getSignaturesForAddress"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	sigs, ok := c.Signatures[address]
	if !ok {
		return nil, nil
	}

	// Apply limit if specified
	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		return sigs[:opts.Limit], nil
	}

	return sigs, nil
}

// GetLatestBlockhash returns DefaultBlockhash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (*solana.Blockhash, error) {
	if err := c.record("getLatestBlockhash"); err != nil {
		return nil, err
	}
	return &solana.Blockhash{Blockhash: DefaultBlockhash, LastValidBlockHeight: 1000}, nil
}

// GetMinimumBalanceForRentExemption returns the stubbed rent.
func (c *RPCClient) GetMinimumBalanceForRentExemption(_ context.Context, _ uint64) (uint64, error) {
	if err := c.record("getMinimumBalanceForRentExemption"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Rent, nil
}

// SendTransaction stores the payload and returns the first signature of the transaction.
// Payloads too short to carry a signature get a hash-derived one.
func (c *RPCClient) SendTransaction(_ context.Context, rawTx []byte) (string, error) {
	if err := c.record("sendTransaction"); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return "", c.SendErr
	}
	c.Sent = append(c.Sent, append([]byte(nil), rawTx...))
	// wire layout: compact-u16 signature count, then 64-byte signatures
	if len(rawTx) >= 65 && rawTx[0] > 0 && rawTx[0] < 0x80 {
		return base58.Encode(rawTx[1:65]), nil
	}
	sum := sha256.Sum256(rawTx)
	return base58.Encode(append(sum[:], sum[:]...)), nil
}

// GetSignatureStatuses returns stubbed statuses, nil for unknown signatures.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	if err := c.record("getSignatureStatuses"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		out[i] = c.Statuses[sig]
	}
	return out, nil
}

// SetBalance sets the lamport balance of an address.
func (c *RPCClient) SetBalance(address string, lamports uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Balances[address] = lamports
}

// SetAccount stores account info for an address.
func (c *RPCClient) SetAccount(address string, info *solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[address] = info
}

// SetStatus stores a signature status.
func (c *RPCClient) SetStatus(signature string, status *solana.SignatureStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Statuses[signature] = status
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Transactions[tx.Signature] = tx
}

// AddSignatures adds signatures for an address to the stub store.
func (c *RPCClient) AddSignatures(address string, sigs []solana.SignatureInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Signatures[address] = sigs
}

// LastSent returns the most recent payload passed to SendTransaction.
func (c *RPCClient) LastSent() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Sent) == 0 {
		return nil
	}
	return c.Sent[len(c.Sent)-1]
}
