package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 60*time.Second, cfg.Action.ConfirmTimeout)
	assert.Equal(t, "confirmed", cfg.Action.Commitment)
	assert.Equal(t, 10, cfg.History.Limit)
	assert.Equal(t, "devnet", cfg.Cluster())
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tokendesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
network: testnet
rpc:
  endpoints:
    - https://primary.example
    - https://backup.example
  timeout: 5s
action:
  confirm_timeout: 90s
storage:
  backend: postgres
  postgres_dsn: postgres://desk@localhost/desk
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://primary.example", "https://backup.example"}, cfg.RPC.Endpoints)
	assert.Equal(t, 5*time.Second, cfg.RPC.Timeout)
	assert.Equal(t, 90*time.Second, cfg.Action.ConfirmTimeout)
	// untouched fields keep defaults
	assert.Equal(t, 2*time.Second, cfg.Action.PollInterval)
	assert.Equal(t, "testnet", cfg.Cluster())
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envMap(map[string]string{
		"TOKENDESK_RPC_ENDPOINTS":            "https://a.example, https://b.example,,",
		"TOKENDESK_ACTION_POLL_INTERVAL":     "500ms",
		"TOKENDESK_HISTORY_LIMIT":            "25",
		"TOKENDESK_RPC_RATE_LIMIT_RPS":       "7.5",
		"TOKENDESK_LOGGER_LEVEL":             "debug",
		"TOKENDESK_STORAGE_ATTEMPT_CAPACITY": "500",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.RPC.Endpoints)
	assert.Equal(t, 500*time.Millisecond, cfg.Action.PollInterval)
	assert.Equal(t, 25, cfg.History.Limit)
	assert.Equal(t, 7.5, cfg.RPC.RateLimitRPS)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, 500, cfg.Storage.AttemptCapacity)
}

func TestApplyEnv_BadValues(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envMap(map[string]string{
		"TOKENDESK_HISTORY_LIMIT":          "ten",
		"TOKENDESK_ACTION_CONFIRM_TIMEOUT": "soon",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOKENDESK_HISTORY_LIMIT")
	assert.Contains(t, err.Error(), "TOKENDESK_ACTION_CONFIRM_TIMEOUT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errIs  error
	}{
		{"no endpoints", func(c *Config) { c.RPC.Endpoints = nil }, ErrNoEndpoints},
		{"bad scheme", func(c *Config) { c.RPC.Endpoints = []string{"ftp://x"} }, nil},
		{"bad commitment", func(c *Config) { c.Action.Commitment = "max" }, nil},
		{"zero timeout", func(c *Config) { c.Action.ConfirmTimeout = 0 }, nil},
		{"postgres without dsn", func(c *Config) { c.Storage.Backend = "postgres" }, nil},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "sqlite" }, nil},
		{"attempt capacity zero", func(c *Config) { c.Storage.AttemptCapacity = 0 }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
			}
		})
	}
}
