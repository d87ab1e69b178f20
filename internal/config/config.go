// Package config loads the desk configuration from defaults, an optional
// YAML file, a .env file and TOKENDESK_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TOKENDESK_"

// ErrNoEndpoints is returned by Validate when no RPC endpoint is configured.
var ErrNoEndpoints = errors.New("rpc.endpoints must not be empty")

// Config holds all configuration for the desk.
type Config struct {
	Network string        `yaml:"network"`
	RPC     RPCConfig     `yaml:"rpc"`
	Wallet  WalletConfig  `yaml:"wallet"`
	Action  ActionConfig  `yaml:"action"`
	History HistoryConfig `yaml:"history"`
	Cache   CacheConfig   `yaml:"cache"`
	Storage StorageConfig `yaml:"storage"`
	Logger  LoggerConfig  `yaml:"logger"`
	Server  ServerConfig  `yaml:"server"`
}

// RPCConfig lists the endpoints in failover order.
type RPCConfig struct {
	Endpoints      []string      `yaml:"endpoints"`
	WSEndpoint     string        `yaml:"ws_endpoint"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"`
	RateLimitBurst int           `yaml:"rate_limit_burst"`
}

// WalletConfig locates the signing keypair.
type WalletConfig struct {
	KeypairPath string `yaml:"keypair_path"`
}

// ActionConfig tunes transaction confirmation.
type ActionConfig struct {
	ConfirmTimeout time.Duration `yaml:"confirm_timeout"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	Commitment     string        `yaml:"commitment"`
}

// HistoryConfig tunes recent transaction listing.
type HistoryConfig struct {
	Limit       int `yaml:"limit"`
	Concurrency int `yaml:"concurrency"`
}

// CacheConfig holds settings for the mint cache.
type CacheConfig struct {
	MintTTL time.Duration `yaml:"mint_ttl"`
}

// StorageConfig selects journal and analytics backends.
type StorageConfig struct {
	Backend       string `yaml:"backend"` // memory | postgres
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"` // optional, endpoint attempt analytics

	// AttemptCapacity bounds the in-memory attempt store used without ClickHouse.
	AttemptCapacity int `yaml:"attempt_capacity"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the devnet configuration.
func Default() *Config {
	return &Config{
		Network: "devnet",
		RPC: RPCConfig{
			Endpoints:      []string{"https://api.devnet.solana.com"},
			WSEndpoint:     "wss://api.devnet.solana.com",
			Timeout:        30 * time.Second,
			MaxRetries:     3,
			RateLimitRPS:   0,
			RateLimitBurst: 1,
		},
		Wallet: WalletConfig{KeypairPath: "~/.config/solana/id.json"},
		Action: ActionConfig{
			ConfirmTimeout: 60 * time.Second,
			PollInterval:   2 * time.Second,
			Commitment:     "confirmed",
		},
		History: HistoryConfig{Limit: 10, Concurrency: 4},
		Cache:   CacheConfig{MintTTL: 5 * time.Minute},
		Storage: StorageConfig{Backend: "memory", AttemptCapacity: 10000},
		Logger:  LoggerConfig{Level: "info", Encoding: "console"},
		Server:  ServerConfig{Addr: ":8080"},
	}
}

// Load builds a Config. An empty path skips the YAML file; a missing .env is ignored.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// Existing environment variables win over .env entries.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	str("NETWORK", &c.Network)
	if v, ok := lookup(EnvPrefix + "RPC_ENDPOINTS"); ok && v != "" {
		c.RPC.Endpoints = splitList(v)
	}
	str("RPC_WS_ENDPOINT", &c.RPC.WSEndpoint)
	dur("RPC_TIMEOUT", &c.RPC.Timeout)
	num("RPC_MAX_RETRIES", &c.RPC.MaxRetries)
	if v, ok := lookup(EnvPrefix + "RPC_RATE_LIMIT_RPS"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sRPC_RATE_LIMIT_RPS: %w", EnvPrefix, err))
		} else {
			c.RPC.RateLimitRPS = f
		}
	}
	num("RPC_RATE_LIMIT_BURST", &c.RPC.RateLimitBurst)
	str("WALLET_KEYPAIR_PATH", &c.Wallet.KeypairPath)
	dur("ACTION_CONFIRM_TIMEOUT", &c.Action.ConfirmTimeout)
	dur("ACTION_POLL_INTERVAL", &c.Action.PollInterval)
	str("ACTION_COMMITMENT", &c.Action.Commitment)
	num("HISTORY_LIMIT", &c.History.Limit)
	num("HISTORY_CONCURRENCY", &c.History.Concurrency)
	dur("CACHE_MINT_TTL", &c.Cache.MintTTL)
	str("STORAGE_BACKEND", &c.Storage.Backend)
	str("STORAGE_POSTGRES_DSN", &c.Storage.PostgresDSN)
	str("STORAGE_CLICKHOUSE_DSN", &c.Storage.ClickhouseDSN)
	num("STORAGE_ATTEMPT_CAPACITY", &c.Storage.AttemptCapacity)
	str("LOGGER_LEVEL", &c.Logger.Level)
	str("LOGGER_ENCODING", &c.Logger.Encoding)
	str("SERVER_ADDR", &c.Server.Addr)

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if len(c.RPC.Endpoints) == 0 {
		return ErrNoEndpoints
	}
	for i, ep := range c.RPC.Endpoints {
		if !strings.HasPrefix(ep, "http://") && !strings.HasPrefix(ep, "https://") {
			return fmt.Errorf("rpc.endpoints[%d]: %q is not an http(s) URL", i, ep)
		}
	}
	switch c.Action.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("action.commitment: unknown level %q", c.Action.Commitment)
	}
	if c.Action.ConfirmTimeout <= 0 {
		return errors.New("action.confirm_timeout must be positive")
	}
	if c.Action.PollInterval <= 0 {
		return errors.New("action.poll_interval must be positive")
	}
	if c.History.Limit <= 0 {
		return errors.New("history.limit must be positive")
	}
	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}
	if c.Storage.AttemptCapacity <= 0 {
		return errors.New("storage.attempt_capacity must be positive")
	}
	return nil
}

// Cluster returns the explorer cluster name for Network.
func (c *Config) Cluster() string {
	if c.Network == "" || c.Network == "mainnet" {
		return "mainnet-beta"
	}
	return c.Network
}
