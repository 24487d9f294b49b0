// Package router implements multi-venue quote aggregation, composite quote
// scoring, and proportional split planning. It depends on venues only through
// domain.VenueAdapter.
package router

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/InsideOutbtc/dexrouter/internal/domain"
)

// defaultQuoteTimeout bounds a single adapter's quote call. A slow venue
// counts as a failed venue rather than stalling the whole fan-out.
const defaultQuoteTimeout = 3 * time.Second

// Aggregator fans a quote request out to every configured adapter in
// parallel and fans the valid results back in. A single adapter's failure
// (error, timeout, invalid quote) is logged and excluded; it never aborts the
// other calls.
type Aggregator struct {
	adapters []domain.VenueAdapter
	timeout  time.Duration
	logger   *slog.Logger
}

// NewAggregator creates an Aggregator over the given adapters. quoteTimeout
// bounds each adapter call; <= 0 uses the default.
func NewAggregator(adapters []domain.VenueAdapter, quoteTimeout time.Duration, logger *slog.Logger) *Aggregator {
	if quoteTimeout <= 0 {
		quoteTimeout = defaultQuoteTimeout
	}
	return &Aggregator{
		adapters: adapters,
		timeout:  quoteTimeout,
		logger:   logger.With(slog.String("component", "quote_aggregator")),
	}
}

// Venues returns the configured venue names in adapter order.
func (a *Aggregator) Venues() []string {
	names := make([]string, len(a.adapters))
	for i, ad := range a.adapters {
		names[i] = ad.Name()
	}
	return names
}

// GetAllQuotes requests one quote per adapter concurrently and returns every
// valid quote, preserving adapter configuration order (not score order). The
// result may be empty; the caller decides whether that is fatal.
func (a *Aggregator) GetAllQuotes(ctx context.Context, inputMint, outputMint string, amount float64, slippageBps int) []domain.Quote {
	slots := make([]*domain.Quote, len(a.adapters))

	g, ctx := errgroup.WithContext(ctx)
	for i, adapter := range a.adapters {
		g.Go(func() error {
			qctx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			start := time.Now()
			q, err := adapter.GetSwapQuote(qctx, inputMint, outputMint, amount, slippageBps)
			if err != nil {
				a.logger.Warn("venue quote failed",
					slog.String("venue", adapter.Name()),
					slog.String("input", inputMint),
					slog.String("output", outputMint),
					slog.Duration("elapsed", time.Since(start)),
					slog.String("error", err.Error()),
				)
				return nil // partial success: never propagate a single venue's failure
			}
			if !q.Valid {
				a.logger.Debug("venue returned invalid quote, skipping",
					slog.String("venue", adapter.Name()),
					slog.String("route", q.Route),
				)
				return nil
			}
			slots[i] = &q
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	quotes := make([]domain.Quote, 0, len(slots))
	for _, q := range slots {
		if q != nil {
			quotes = append(quotes, *q)
		}
	}
	return quotes
}
