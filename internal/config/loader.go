package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies DEXROUTER_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		// A missing file is fine: defaults plus env overrides still make a
		// usable config. Anything else (bad TOML, unreadable file) is fatal.
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known DEXROUTER_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "DEXROUTER_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "DEXROUTER_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "DEXROUTER_WALLET_KEY_PASSWORD")

	// ── Router ──
	setFloat64(&cfg.Router.OutputWeight, "DEXROUTER_ROUTER_OUTPUT_WEIGHT")
	setFloat64(&cfg.Router.ImpactWeight, "DEXROUTER_ROUTER_IMPACT_WEIGHT")
	setFloat64(&cfg.Router.FeeWeight, "DEXROUTER_ROUTER_FEE_WEIGHT")
	setFloat64(&cfg.Router.ImpactSaturation, "DEXROUTER_ROUTER_IMPACT_SATURATION")
	setDuration(&cfg.Router.QuoteTimeout, "DEXROUTER_ROUTER_QUOTE_TIMEOUT")
	setDuration(&cfg.Router.ExecTimeout, "DEXROUTER_ROUTER_EXEC_TIMEOUT")
	setInt(&cfg.Router.SlippageBps, "DEXROUTER_ROUTER_SLIPPAGE_BPS")
	setInt(&cfg.Router.MaxSplits, "DEXROUTER_ROUTER_MAX_SPLITS")

	// ── Arbitrage ──
	setBool(&cfg.Arbitrage.Enabled, "DEXROUTER_ARBITRAGE_ENABLED")
	setStringSlice(&cfg.Arbitrage.Tokens, "DEXROUTER_ARBITRAGE_TOKENS")
	setFloat64(&cfg.Arbitrage.MinProfitBps, "DEXROUTER_ARBITRAGE_MIN_PROFIT_BPS")
	setFloat64(&cfg.Arbitrage.ProbeAmount, "DEXROUTER_ARBITRAGE_PROBE_AMOUNT")
	setDuration(&cfg.Arbitrage.Interval, "DEXROUTER_ARBITRAGE_INTERVAL")
	setBool(&cfg.Arbitrage.AutoExecute, "DEXROUTER_ARBITRAGE_AUTO_EXECUTE")
	setFloat64(&cfg.Arbitrage.ExecuteThresholdBps, "DEXROUTER_ARBITRAGE_EXECUTE_THRESHOLD_BPS")

	// ── Venues ──
	setBool(&cfg.Venues.Jupiter.Enabled, "DEXROUTER_VENUES_JUPITER_ENABLED")
	setStr(&cfg.Venues.Jupiter.BaseURL, "DEXROUTER_VENUES_JUPITER_BASE_URL")
	setStr(&cfg.Venues.Jupiter.RPCURL, "DEXROUTER_VENUES_JUPITER_RPC_URL")
	setInt(&cfg.Venues.Jupiter.SlippageBps, "DEXROUTER_VENUES_JUPITER_SLIPPAGE_BPS")
	setBool(&cfg.Venues.Raydium.Enabled, "DEXROUTER_VENUES_RAYDIUM_ENABLED")
	setStr(&cfg.Venues.Raydium.BaseURL, "DEXROUTER_VENUES_RAYDIUM_BASE_URL")
	setStr(&cfg.Venues.Raydium.RPCURL, "DEXROUTER_VENUES_RAYDIUM_RPC_URL")
	setInt(&cfg.Venues.Raydium.SlippageBps, "DEXROUTER_VENUES_RAYDIUM_SLIPPAGE_BPS")
	setBool(&cfg.Venues.Orca.Enabled, "DEXROUTER_VENUES_ORCA_ENABLED")
	setStr(&cfg.Venues.Orca.BaseURL, "DEXROUTER_VENUES_ORCA_BASE_URL")
	setStr(&cfg.Venues.Orca.RPCURL, "DEXROUTER_VENUES_ORCA_RPC_URL")
	setInt(&cfg.Venues.Orca.SlippageBps, "DEXROUTER_VENUES_ORCA_SLIPPAGE_BPS")
	setBool(&cfg.Venues.Uniswap.Enabled, "DEXROUTER_VENUES_UNISWAP_ENABLED")
	setStr(&cfg.Venues.Uniswap.RPCURL, "DEXROUTER_VENUES_UNISWAP_RPC_URL")
	setInt64(&cfg.Venues.Uniswap.ChainID, "DEXROUTER_VENUES_UNISWAP_CHAIN_ID")
	setStr(&cfg.Venues.Uniswap.Router, "DEXROUTER_VENUES_UNISWAP_ROUTER")
	setStr(&cfg.Venues.Uniswap.Factory, "DEXROUTER_VENUES_UNISWAP_FACTORY")
	setStr(&cfg.Venues.Uniswap.InitCodeHex, "DEXROUTER_VENUES_UNISWAP_INIT_CODE_HEX")
	setInt(&cfg.Venues.Uniswap.SlippageBps, "DEXROUTER_VENUES_UNISWAP_SLIPPAGE_BPS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "DEXROUTER_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "DEXROUTER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "DEXROUTER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "DEXROUTER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "DEXROUTER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "DEXROUTER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "DEXROUTER_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.PriceTTL, "DEXROUTER_REDIS_PRICE_TTL")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "DEXROUTER_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "DEXROUTER_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "DEXROUTER_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "DEXROUTER_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "DEXROUTER_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "DEXROUTER_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "DEXROUTER_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "DEXROUTER_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "DEXROUTER_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "DEXROUTER_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "DEXROUTER_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "DEXROUTER_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "DEXROUTER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "DEXROUTER_S3_REGION")
	setStr(&cfg.S3.Bucket, "DEXROUTER_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "DEXROUTER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "DEXROUTER_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "DEXROUTER_S3_FORCE_PATH_STYLE")
	setDuration(&cfg.S3.ArchiveInterval, "DEXROUTER_S3_ARCHIVE_INTERVAL")
	setInt(&cfg.S3.RetentionDays, "DEXROUTER_S3_RETENTION_DAYS")

	// ── Feed ──
	setBool(&cfg.Feed.Enabled, "DEXROUTER_FEED_ENABLED")
	setStr(&cfg.Feed.URL, "DEXROUTER_FEED_URL")
	setStringSlice(&cfg.Feed.Pairs, "DEXROUTER_FEED_PAIRS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "DEXROUTER_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "DEXROUTER_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "DEXROUTER_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "DEXROUTER_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "DEXROUTER_MODE")
	setStr(&cfg.LogLevel, "DEXROUTER_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
