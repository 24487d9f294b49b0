package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "quote"
log_level = "debug"

[router]
quote_timeout = "5s"
max_splits = 4

[venues.raydium]
enabled = false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "quote", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.Router.QuoteTimeout.Duration)
	assert.Equal(t, 4, cfg.Router.MaxSplits)
	assert.False(t, cfg.Venues.Raydium.Enabled)

	// Untouched sections keep their defaults.
	assert.True(t, cfg.Venues.Jupiter.Enabled)
	assert.InDelta(t, 0.5, cfg.Router.OutputWeight, 1e-9)
	assert.Equal(t, 60*time.Second, cfg.Router.ExecTimeout.Duration)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "scan", cfg.Mode)
}

func TestLoadRejectsBadTOML(t *testing.T) {
	path := writeConfig(t, "mode = [broken")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `mode = "quote"`)

	t.Setenv("DEXROUTER_MODE", "swap")
	t.Setenv("DEXROUTER_WALLET_PRIVATE_KEY", "deadbeef")
	t.Setenv("DEXROUTER_ROUTER_SLIPPAGE_BPS", "75")
	t.Setenv("DEXROUTER_ROUTER_QUOTE_TIMEOUT", "10s")
	t.Setenv("DEXROUTER_ARBITRAGE_TOKENS", "SOL, USDC ,BONK")
	t.Setenv("DEXROUTER_REDIS_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "swap", cfg.Mode)
	assert.Equal(t, "deadbeef", cfg.Wallet.PrivateKey)
	assert.Equal(t, 75, cfg.Router.SlippageBps)
	assert.Equal(t, 10*time.Second, cfg.Router.QuoteTimeout.Duration)
	assert.Equal(t, []string{"SOL", "USDC", "BONK"}, cfg.Arbitrage.Tokens)
	assert.True(t, cfg.Redis.Enabled)
}

func validQuoteConfig() Config {
	cfg := Defaults()
	cfg.Mode = "quote"
	return cfg
}

func TestValidateQuoteMode(t *testing.T) {
	cfg := validQuoteConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateScanModeNeedsTokens(t *testing.T) {
	cfg := Defaults() // mode "scan", no tokens configured
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least two tokens")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validQuoteConfig()
	cfg.Mode = "bogus"
	cfg.LogLevel = "loud"
	cfg.Router.OutputWeight = 0.9 // weights no longer sum to 1
	cfg.Router.MaxSplits = 0

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "unknown mode")
	assert.Contains(t, msg, "unknown log_level")
	assert.Contains(t, msg, "weights must sum to 1")
	assert.Contains(t, msg, "max_splits")
}

func TestValidateSwapModeNeedsWallet(t *testing.T) {
	cfg := validQuoteConfig()
	cfg.Mode = "swap"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet")

	cfg.Wallet.PrivateKey = "deadbeef"
	assert.NoError(t, cfg.Validate())
}

func TestValidateCrossSectionDependencies(t *testing.T) {
	cfg := validQuoteConfig()
	cfg.S3.Enabled = true // without postgres
	cfg.Feed.Enabled = true
	cfg.Feed.URL = "wss://feed.example.com/ws" // without redis

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires postgres")
	assert.Contains(t, err.Error(), "requires redis")
}

func TestValidateUniswapNeedsRPC(t *testing.T) {
	cfg := validQuoteConfig()
	cfg.Venues.Uniswap.Enabled = true
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpc_url")
}

func TestRedactedConfig(t *testing.T) {
	cfg := validQuoteConfig()
	cfg.Wallet.PrivateKey = "supersecret"
	cfg.Redis.Password = "redispass"
	cfg.S3.SecretKey = "s3secret"
	cfg.Notify.TelegramToken = "tg-token"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Wallet.PrivateKey)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.S3.SecretKey)
	assert.Equal(t, "***", red.Notify.TelegramToken)

	// The original is untouched.
	assert.Equal(t, "supersecret", cfg.Wallet.PrivateKey)
}
