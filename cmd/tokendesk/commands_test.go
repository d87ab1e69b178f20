package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-desk/internal/action"
)

// rpcNode answers JSON-RPC calls from fixed per-method results.
type rpcNode struct {
	t      *testing.T
	mu     sync.Mutex
	calls  []string
	answer func(method string, params []json.RawMessage) interface{}
}

func (n *rpcNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     uint64            `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		n.t.Errorf("decode request: %v", err)
		return
	}
	n.mu.Lock()
	n.calls = append(n.calls, req.Method)
	n.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      req.ID,
		"result":  n.answer(req.Method, req.Params),
	})
}

func (n *rpcNode) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func startNode(t *testing.T, answer func(method string, params []json.RawMessage) interface{}) (*rpcNode, string) {
	t.Helper()
	node := &rpcNode{t: t, answer: answer}
	server := httptest.NewServer(node)
	t.Cleanup(server.Close)
	return node, server.URL
}

func writeConfig(t *testing.T, endpoint string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "tokendesk.yaml")
	cfg := fmt.Sprintf(`network: devnet
rpc:
  endpoints:
    - %s
  ws_endpoint: ""
  max_retries: 0
wallet:
  keypair_path: %s
logger:
  level: error
`, endpoint, filepath.Join(dir, "absent.json"))
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&globalFlags{})
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestHistoryCmd(t *testing.T) {
	owner := types.NewAccount().PublicKey.ToBase58()
	blockTimes := map[string]int64{"sigOld": 1700000000, "sigNew": 1700000100}

	node, url := startNode(t, func(method string, params []json.RawMessage) interface{} {
		switch method {
		case "getSignaturesForAddress":
			var addr string
			json.Unmarshal(params[0], &addr)
			assert.Equal(t, owner, addr)
			return []map[string]interface{}{
				{"signature": "sigOld", "slot": 10, "blockTime": blockTimes["sigOld"]},
				{"signature": "sigNew", "slot": 11, "blockTime": blockTimes["sigNew"]},
				{"signature": "sigGone", "slot": 12},
			}
		case "getTransaction":
			var sig string
			json.Unmarshal(params[0], &sig)
			bt, ok := blockTimes[sig]
			if !ok {
				return nil
			}
			meta := map[string]interface{}{"fee": 5000, "err": nil}
			if sig == "sigNew" {
				meta["err"] = map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}
			}
			return map[string]interface{}{"slot": 0, "blockTime": bt, "meta": meta}
		}
		t.Errorf("unexpected method %s", method)
		return nil
	})

	out, err := runCmd(t, "--config", writeConfig(t, url), "history", "--address", owner, "--limit", "3")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2, "the unresolved transaction is dropped: %q", out)
	assert.True(t, strings.HasPrefix(lines[0], "2023-11-14T22:15:00Z  failed"), lines[0])
	assert.Contains(t, lines[0], "slot 11")
	assert.True(t, strings.HasSuffix(lines[0], "sigNew"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2023-11-14T22:13:20Z  ok"), lines[1])
	assert.Contains(t, lines[1], "fee 5000")
	assert.Equal(t, 4, node.callCount())
}

func TestBalanceCmd_SOL(t *testing.T) {
	_, url := startNode(t, func(method string, _ []json.RawMessage) interface{} {
		assert.Equal(t, "getBalance", method)
		return map[string]interface{}{"context": map[string]interface{}{"slot": 1}, "value": 1_500_000_000}
	})

	out, err := runCmd(t, "--config", writeConfig(t, url), "balance", "--address", types.NewAccount().PublicKey.ToBase58())
	require.NoError(t, err)
	assert.Equal(t, "1.5 SOL\n", out)
}

func TestActionCmds_InvalidFlagsMakeNoCalls(t *testing.T) {
	mint := types.NewAccount().PublicKey.ToBase58()
	to := types.NewAccount().PublicKey.ToBase58()

	tests := []struct {
		name  string
		args  []string
		field string
	}{
		{"decimals out of range", []string{"create-mint", "--name", "Test", "--symbol", "TST", "--decimals", "19", "--supply", "10"}, "decimals"},
		{"missing symbol", []string{"create-mint", "--name", "Test", "--supply", "10"}, "symbol"},
		{"zero mint amount", []string{"mint", "--mint", mint, "--amount", "0"}, "amount"},
		{"transfer with zero decimals", []string{"transfer", "--mint", mint, "--to", to, "--amount", "5", "--decimals", "0"}, "decimals"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, url := startNode(t, func(method string, _ []json.RawMessage) interface{} {
				t.Errorf("unexpected call %s", method)
				return nil
			})

			args := append([]string{"--config", writeConfig(t, url), "--yes"}, tt.args...)
			out, err := runCmd(t, args...)
			require.Error(t, err)
			assert.Empty(t, out)

			var aerr *action.Error
			require.True(t, errors.As(err, &aerr), "got %v", err)
			assert.Equal(t, action.KindValidation, aerr.Kind)
			assert.Equal(t, tt.field, aerr.Field)
			assert.Equal(t, 0, node.callCount())
		})
	}
}

func TestAmountFlag_NotANumber(t *testing.T) {
	_, err := runCmd(t, "mint", "--mint", types.NewAccount().PublicKey.ToBase58(), "--amount", "lots")
	require.Error(t, err)
	assert.ErrorIs(t, err, action.ErrValidation)
}
