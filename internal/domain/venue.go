package domain

import "context"

// VenueAdapter is the single interface the router depends on for every
// liquidity venue. One implementation exists per venue (Jupiter, Raydium,
// Orca, Uniswap, ...); the aggregator and executor never see concrete venue
// types.
type VenueAdapter interface {
	// Name returns the venue identifier, e.g. "jupiter". It must be unique
	// across the configured adapter set and stable across restarts.
	Name() string

	// Initialize performs any one-time setup (connectivity checks, key
	// loading, contract binding). Called once before the adapter is used.
	Initialize(ctx context.Context) error

	// GetSwapQuote returns a priced offer for converting amount units of
	// inputMint into outputMint. slippageBps <= 0 means the venue default.
	// The returned quote's Valid flag must be false when the venue cannot
	// honour the swap (no route, insufficient liquidity).
	GetSwapQuote(ctx context.Context, inputMint, outputMint string, amount float64, slippageBps int) (Quote, error)

	// ExecuteSwap submits the swap on-chain and blocks until the venue
	// reports an outcome. minOut <= 0 disables the minimum-received check on
	// the venue side; slippageBps <= 0 means the venue default.
	ExecuteSwap(ctx context.Context, inputMint, outputMint string, amount float64, minOut float64, slippageBps int) (Trade, error)
}

// Balance is a token holding reported by a venue-side wallet.
type Balance struct {
	Mint   string
	Symbol string
	Amount float64
}

// BalanceProvider is implemented by adapters that can report wallet balances.
// Checked with a type assertion at startup to log the funded state.
type BalanceProvider interface {
	GetBalances(ctx context.Context) ([]Balance, error)
}
