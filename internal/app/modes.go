package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/InsideOutbtc/dexrouter/internal/arbitrage"
	"github.com/InsideOutbtc/dexrouter/internal/feed"
)

// metricsLogInterval is how often full mode logs a routing-stats snapshot.
const metricsLogInterval = 5 * time.Minute

// QuoteMode fetches quotes from every venue for the requested swap and
// prints the winning quote without executing anything.
func (a *App) QuoteMode(ctx context.Context, deps *Dependencies) error {
	if err := a.requireSwapArgs(); err != nil {
		return err
	}

	best, err := deps.Service.GetBestQuote(ctx,
		a.args.InputMint, a.args.OutputMint, a.args.Amount, a.cfg.Router.SlippageBps)
	if err != nil {
		return err
	}
	return printJSON(best)
}

// SwapMode executes the swap on the venue with the best quote.
func (a *App) SwapMode(ctx context.Context, deps *Dependencies) error {
	if err := a.requireSwapArgs(); err != nil {
		return err
	}

	trade, err := deps.Service.ExecuteOptimalSwap(ctx,
		a.args.InputMint, a.args.OutputMint, a.args.Amount, a.cfg.Router.SlippageBps)
	if err != nil {
		return err
	}
	return printJSON(trade)
}

// SplitMode plans a split across the best venues and executes the legs
// sequentially. Completed legs are printed even when a later leg failed.
func (a *App) SplitMode(ctx context.Context, deps *Dependencies) error {
	if err := a.requireSwapArgs(); err != nil {
		return err
	}

	trades, execErr := deps.Service.ExecuteSplitSwap(ctx,
		a.args.InputMint, a.args.OutputMint, a.args.Amount,
		a.cfg.Router.SlippageBps, a.cfg.Router.MaxSplits)
	if len(trades) > 0 {
		if err := printJSON(trades); err != nil {
			return err
		}
	}
	return execErr
}

// ScanMode runs the arbitrage scanner (and the price feed when enabled)
// until the context is cancelled.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startScanning(ctx, g, deps)
	return g.Wait()
}

// FullMode runs everything: the scanner, the price feed, the journal
// archiver, and a periodic metrics snapshot log.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startScanning(ctx, g, deps)

	if deps.Archiver != nil {
		retention := time.Duration(a.cfg.S3.RetentionDays) * 24 * time.Hour
		g.Go(func() error {
			return deps.Archiver.Run(ctx, a.cfg.S3.ArchiveInterval.Duration, retention)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(metricsLogInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				stats, venues, _ := deps.Service.Metrics()
				a.logger.Info("routing stats",
					slog.Int64("quote_requests", stats.TotalQuotes),
					slog.Int64("successful_routes", stats.SuccessfulRoutes),
					slog.Float64("avg_response_ms", stats.AvgResponseMs),
					slog.Int("venues", len(venues)),
				)
			}
		}
	})

	return g.Wait()
}

// startScanning registers the scanner and optional price feed goroutines.
func (a *App) startScanning(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	var exec arbitrage.ArbExecutor
	if a.cfg.Arbitrage.AutoExecute {
		exec = deps.Coord
	}
	scanner := arbitrage.NewScanner(deps.Detector, exec, deps.Notifier, arbitrage.ScannerConfig{
		Tokens:              a.cfg.Arbitrage.Tokens,
		MinProfitBps:        a.cfg.Arbitrage.MinProfitBps,
		Interval:            a.cfg.Arbitrage.Interval.Duration,
		AutoExecute:         a.cfg.Arbitrage.AutoExecute,
		ExecuteThresholdBps: a.cfg.Arbitrage.ExecuteThresholdBps,
	}, a.logger)
	g.Go(func() error {
		return scanner.Run(ctx)
	})

	if a.cfg.Feed.Enabled && deps.PriceCache != nil {
		priceFeed := feed.NewPriceFeed(a.cfg.Feed.URL, a.cfg.Feed.Pairs, deps.PriceCache, a.logger)
		g.Go(func() error {
			return priceFeed.Run(ctx)
		})
	}
}

// requireSwapArgs validates the one-shot swap arguments passed on the
// command line.
func (a *App) requireSwapArgs() error {
	if a.args.InputMint == "" || a.args.OutputMint == "" {
		return fmt.Errorf("app: mode %q requires -in and -out token addresses", a.cfg.Mode)
	}
	if a.args.Amount <= 0 {
		return fmt.Errorf("app: mode %q requires a positive -amount", a.cfg.Mode)
	}
	return nil
}

// printJSON writes the one-shot mode result to stdout for the operator.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
