// Package config defines the top-level configuration for the DEX router
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by DEXROUTER_* environment
// variables.
type Config struct {
	Wallet    WalletConfig    `toml:"wallet"`
	Router    RouterConfig    `toml:"router"`
	Arbitrage ArbitrageConfig `toml:"arbitrage"`
	Venues    VenuesConfig    `toml:"venues"`
	Tokens    TokensConfig    `toml:"tokens"`
	Redis     RedisConfig     `toml:"redis"`
	Postgres  PostgresConfig  `toml:"postgres"`
	S3        S3Config        `toml:"s3"`
	Feed      FeedConfig      `toml:"feed"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// WalletConfig holds the trading key used by every execution-capable venue
// adapter.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// RouterConfig holds quote aggregation, scoring, and split parameters.
type RouterConfig struct {
	// Scoring weights. They should sum to 1.
	OutputWeight float64 `toml:"output_weight"`
	ImpactWeight float64 `toml:"impact_weight"`
	FeeWeight    float64 `toml:"fee_weight"`

	// ImpactSaturation is the price impact percentage at which the impact
	// score component bottoms out.
	ImpactSaturation float64 `toml:"impact_saturation"`

	QuoteTimeout duration `toml:"quote_timeout"`
	ExecTimeout  duration `toml:"exec_timeout"`

	// SlippageBps is the default slippage tolerance. Zero defers to each
	// venue's own default.
	SlippageBps int `toml:"slippage_bps"`

	// MaxSplits caps how many venues a split plan may span.
	MaxSplits int `toml:"max_splits"`
}

// ArbitrageConfig holds scanner parameters.
type ArbitrageConfig struct {
	Enabled      bool     `toml:"enabled"`
	Tokens       []string `toml:"tokens"`
	MinProfitBps float64  `toml:"min_profit_bps"`
	ProbeAmount  float64  `toml:"probe_amount"`
	Interval     duration `toml:"interval"`
	AutoExecute  bool     `toml:"auto_execute"`
	// ExecuteThresholdBps gates auto-execution. Zero means MinProfitBps.
	ExecuteThresholdBps float64 `toml:"execute_threshold_bps"`
}

// VenuesConfig enables and configures the individual venue adapters.
type VenuesConfig struct {
	Jupiter VenueConfig        `toml:"jupiter"`
	Raydium VenueConfig        `toml:"raydium"`
	Orca    VenueConfig        `toml:"orca"`
	Uniswap UniswapVenueConfig `toml:"uniswap"`
}

// VenueConfig holds the parameters shared by the Solana venue adapters.
type VenueConfig struct {
	Enabled     bool   `toml:"enabled"`
	BaseURL     string `toml:"base_url"`
	RPCURL      string `toml:"rpc_url"`
	SlippageBps int    `toml:"slippage_bps"`
}

// UniswapVenueConfig holds the EVM venue parameters.
type UniswapVenueConfig struct {
	Enabled     bool   `toml:"enabled"`
	RPCURL      string `toml:"rpc_url"`
	ChainID     int64  `toml:"chain_id"`
	Router      string `toml:"router"`
	Factory     string `toml:"factory"`
	InitCodeHex string `toml:"init_code_hex"`
	SlippageBps int    `toml:"slippage_bps"`
}

// TokensConfig maps mint/token addresses to decimal places for amount
// conversion. Unknown tokens fall back to each chain's default.
type TokensConfig struct {
	Decimals map[string]int `toml:"decimals"`
}

// RedisConfig holds price cache connection parameters.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	PriceTTL   duration `toml:"price_ttl"`
}

// PostgresConfig holds trade journal connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds journal archive parameters.
type S3Config struct {
	Enabled         bool     `toml:"enabled"`
	Endpoint        string   `toml:"endpoint"`
	Region          string   `toml:"region"`
	Bucket          string   `toml:"bucket"`
	AccessKey       string   `toml:"access_key"`
	SecretKey       string   `toml:"secret_key"`
	ForcePathStyle  bool     `toml:"force_path_style"`
	ArchiveInterval duration `toml:"archive_interval"`
	RetentionDays   int      `toml:"retention_days"`
}

// FeedConfig holds the WebSocket price stream parameters.
type FeedConfig struct {
	Enabled bool     `toml:"enabled"`
	URL     string   `toml:"url"`
	Pairs   []string `toml:"pairs"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Router: RouterConfig{
			OutputWeight:     0.5,
			ImpactWeight:     0.3,
			FeeWeight:        0.2,
			ImpactSaturation: 10.0,
			QuoteTimeout:     duration{3 * time.Second},
			ExecTimeout:      duration{60 * time.Second},
			SlippageBps:      50,
			MaxSplits:        3,
		},
		Arbitrage: ArbitrageConfig{
			Enabled:      false,
			Tokens:       []string{},
			MinProfitBps: 50,
			ProbeAmount:  1.0,
			Interval:     duration{30 * time.Second},
			AutoExecute:  false,
		},
		Venues: VenuesConfig{
			Jupiter: VenueConfig{
				Enabled: true,
				BaseURL: "https://quote-api.jup.ag/v6",
				RPCURL:  "https://api.mainnet-beta.solana.com",
			},
			Raydium: VenueConfig{
				Enabled: true,
				BaseURL: "https://transaction-v1.raydium.io",
				RPCURL:  "https://api.mainnet-beta.solana.com",
			},
			Orca: VenueConfig{
				Enabled: true,
				BaseURL: "https://api.orca.so",
				RPCURL:  "https://api.mainnet-beta.solana.com",
			},
			Uniswap: UniswapVenueConfig{
				Enabled: false,
				ChainID: 1,
			},
		},
		Tokens: TokensConfig{
			Decimals: map[string]int{},
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
			PriceTTL:   duration{30 * time.Second},
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "dexrouter",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		S3: S3Config{
			Enabled:         false,
			Endpoint:        "http://localhost:9000",
			Region:          "us-east-1",
			Bucket:          "dexrouter-archive",
			ForcePathStyle:  true,
			ArchiveInterval: duration{1 * time.Hour},
			RetentionDays:   30,
		},
		Feed: FeedConfig{
			Enabled: false,
			Pairs:   []string{},
		},
		Notify: NotifyConfig{
			Events: []string{"arb_detected", "arb_executed", "swap_executed", "error"},
		},
		Mode:     "scan",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"quote": true,
	"swap":  true,
	"split": true,
	"scan":  true,
	"full":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: quote, swap, split, scan, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet is required whenever a mode can execute trades.
	needsWallet := c.Mode == "swap" || c.Mode == "split" || c.Mode == "full" ||
		(c.Mode == "scan" && c.Arbitrage.AutoExecute)
	if needsWallet {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set for mode "+c.Mode)
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
	}

	// Router
	weightSum := c.Router.OutputWeight + c.Router.ImpactWeight + c.Router.FeeWeight
	if weightSum < 0.999 || weightSum > 1.001 {
		errs = append(errs, fmt.Sprintf("router: scoring weights must sum to 1, got %.3f", weightSum))
	}
	if c.Router.OutputWeight < 0 || c.Router.ImpactWeight < 0 || c.Router.FeeWeight < 0 {
		errs = append(errs, "router: scoring weights must not be negative")
	}
	if c.Router.ImpactSaturation <= 0 {
		errs = append(errs, "router: impact_saturation must be > 0")
	}
	if c.Router.QuoteTimeout.Duration <= 0 {
		errs = append(errs, "router: quote_timeout must be > 0")
	}
	if c.Router.MaxSplits < 1 {
		errs = append(errs, "router: max_splits must be >= 1")
	}
	if c.Router.SlippageBps < 0 {
		errs = append(errs, "router: slippage_bps must not be negative")
	}

	// At least one venue must be enabled.
	if !c.Venues.Jupiter.Enabled && !c.Venues.Raydium.Enabled &&
		!c.Venues.Orca.Enabled && !c.Venues.Uniswap.Enabled {
		errs = append(errs, "venues: at least one venue must be enabled")
	}
	if c.Venues.Uniswap.Enabled && c.Venues.Uniswap.RPCURL == "" {
		errs = append(errs, "venues.uniswap: rpc_url is required when enabled")
	}

	// Arbitrage
	if c.Arbitrage.Enabled || c.Mode == "scan" || c.Mode == "full" {
		if len(c.Arbitrage.Tokens) < 2 {
			errs = append(errs, "arbitrage: at least two tokens are required to scan pairs")
		}
		if c.Arbitrage.MinProfitBps <= 0 {
			errs = append(errs, "arbitrage: min_profit_bps must be > 0")
		}
		if c.Arbitrage.ProbeAmount <= 0 {
			errs = append(errs, "arbitrage: probe_amount must be > 0")
		}
		if c.Arbitrage.Interval.Duration <= 0 {
			errs = append(errs, "arbitrage: interval must be > 0")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// S3 archiving depends on the journal.
	if c.S3.Enabled {
		if !c.Postgres.Enabled {
			errs = append(errs, "s3: archiving requires postgres to be enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
		if c.S3.RetentionDays < 1 {
			errs = append(errs, "s3: retention_days must be >= 1")
		}
	}

	// Feed
	if c.Feed.Enabled {
		if !c.Redis.Enabled {
			errs = append(errs, "feed: the price feed requires redis to be enabled")
		}
		if c.Feed.URL == "" {
			errs = append(errs, "feed: url must not be empty when enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
