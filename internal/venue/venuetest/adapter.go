// Package venuetest provides a configurable in-memory VenueAdapter for
// tests. It is not imported by production code.
package venuetest

import (
	"context"
	"sync"
	"time"

	"github.com/InsideOutbtc/dexrouter/internal/domain"
)

// Adapter is a fake venue. Configure QuoteFn/ExecuteFn for custom behaviour;
// by default it echoes a valid quote at the configured Price with the
// configured FeeAmount and ImpactPct, and executes swaps successfully.
type Adapter struct {
	VenueName string

	// Price is the base-to-quote execution price used by the default quote
	// and execute behaviour. When PairBase/PairQuote are set, a swap whose
	// input is PairQuote runs at the reciprocal; otherwise Price applies to
	// every direction as-is.
	Price     float64
	PairBase  string
	PairQuote string
	FeeAmount float64
	ImpactPct float64

	// QuoteErr / ExecuteErr force the corresponding call to fail.
	QuoteErr   error
	ExecuteErr error

	// QuoteDelay simulates a slow venue.
	QuoteDelay time.Duration

	// QuoteFn, when set, overrides the default quote behaviour entirely.
	QuoteFn func(ctx context.Context, inputMint, outputMint string, amount float64, slippageBps int) (domain.Quote, error)
	// ExecuteFn, when set, overrides the default execute behaviour entirely.
	ExecuteFn func(ctx context.Context, inputMint, outputMint string, amount float64, minOut float64, slippageBps int) (domain.Trade, error)

	mu           sync.Mutex
	quoteCalls   int
	executeCalls int
}

var _ domain.VenueAdapter = (*Adapter)(nil)

func (a *Adapter) Name() string { return a.VenueName }

func (a *Adapter) Initialize(context.Context) error { return nil }

func (a *Adapter) GetSwapQuote(ctx context.Context, inputMint, outputMint string, amount float64, slippageBps int) (domain.Quote, error) {
	a.mu.Lock()
	a.quoteCalls++
	a.mu.Unlock()

	if a.QuoteDelay > 0 {
		select {
		case <-ctx.Done():
			return domain.Quote{}, ctx.Err()
		case <-time.After(a.QuoteDelay):
		}
	}
	if a.QuoteFn != nil {
		return a.QuoteFn(ctx, inputMint, outputMint, amount, slippageBps)
	}
	if a.QuoteErr != nil {
		return domain.Quote{}, a.QuoteErr
	}

	rate := a.rate(inputMint)
	out := amount * rate
	return domain.Quote{
		Venue:          a.VenueName,
		InputMint:      inputMint,
		OutputMint:     outputMint,
		InAmount:       amount,
		OutAmount:      out,
		MinReceived:    out,
		PriceImpactPct: a.ImpactPct,
		FeeAmount:      a.FeeAmount,
		Price:          rate,
		Hops:           1,
		Route:          a.VenueName + " direct",
		Valid:          true,
		FetchedAt:      time.Now().UTC(),
	}, nil
}

func (a *Adapter) ExecuteSwap(ctx context.Context, inputMint, outputMint string, amount float64, minOut float64, slippageBps int) (domain.Trade, error) {
	a.mu.Lock()
	a.executeCalls++
	a.mu.Unlock()

	if a.ExecuteFn != nil {
		return a.ExecuteFn(ctx, inputMint, outputMint, amount, minOut, slippageBps)
	}
	if a.ExecuteErr != nil {
		return domain.Trade{}, a.ExecuteErr
	}

	return domain.Trade{
		Venue:          a.VenueName,
		Signature:      "sig-" + a.VenueName,
		InputMint:      inputMint,
		OutputMint:     outputMint,
		InAmount:       amount,
		OutAmount:      amount * a.rate(inputMint),
		FeeAmount:      a.FeeAmount,
		LatencyMs:      5,
		PriceImpactPct: a.ImpactPct,
		Success:        true,
		ExecutedAt:     time.Now().UTC(),
	}, nil
}

// rate returns the execution price for the given swap direction.
func (a *Adapter) rate(inputMint string) float64 {
	if a.PairQuote != "" && inputMint == a.PairQuote {
		return 1 / a.Price
	}
	return a.Price
}

// QuoteCalls returns how many times GetSwapQuote was invoked.
func (a *Adapter) QuoteCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.quoteCalls
}

// ExecuteCalls returns how many times ExecuteSwap was invoked.
func (a *Adapter) ExecuteCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.executeCalls
}
