// Package service exposes the router facade consumed by entrypoints (CLI,
// schedulers). It composes the aggregator, scorer, split planner, arbitrage
// detector, and execution coordinator, and owns the routing-stat updates.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/InsideOutbtc/dexrouter/internal/arbitrage"
	"github.com/InsideOutbtc/dexrouter/internal/domain"
	"github.com/InsideOutbtc/dexrouter/internal/executor"
	"github.com/InsideOutbtc/dexrouter/internal/metrics"
	"github.com/InsideOutbtc/dexrouter/internal/router"
)

// RouterService is the caller-facing surface of the routing subsystem. All
// state it touches lives in the metrics tracker; the service itself is
// stateless and safe for concurrent use.
type RouterService struct {
	agg      *router.Aggregator
	scorer   *router.Scorer
	splitter *router.SplitPlanner
	detector *arbitrage.Detector
	coord    *executor.Coordinator
	tracker  *metrics.Tracker
	logger   *slog.Logger
}

// Config bundles the components a RouterService needs.
type Config struct {
	Aggregator *router.Aggregator
	Scorer     *router.Scorer
	Splitter   *router.SplitPlanner
	Detector   *arbitrage.Detector
	Coord      *executor.Coordinator
	Tracker    *metrics.Tracker
	Logger     *slog.Logger
}

// New creates a RouterService.
func New(cfg Config) *RouterService {
	return &RouterService{
		agg:      cfg.Aggregator,
		scorer:   cfg.Scorer,
		splitter: cfg.Splitter,
		detector: cfg.Detector,
		coord:    cfg.Coord,
		tracker:  cfg.Tracker,
		logger:   cfg.Logger.With(slog.String("component", "router_service")),
	}
}

// GetBestQuote aggregates quotes from every venue and returns the
// highest-scoring one. Counts one quote request and, on success, records the
// winning venue and the aggregation response time. Returns
// domain.ErrNoQuotes when every adapter failed or returned invalid quotes.
func (s *RouterService) GetBestQuote(ctx context.Context, inputMint, outputMint string, amount float64, slippageBps int) (domain.RankedQuote, error) {
	s.tracker.RecordQuoteRequest()

	start := time.Now()
	quotes := s.agg.GetAllQuotes(ctx, inputMint, outputMint, amount, slippageBps)
	elapsed := time.Since(start)

	best, err := s.scorer.Best(quotes)
	if err != nil {
		s.logger.Warn("no quotes available",
			slog.String("input", inputMint),
			slog.String("output", outputMint),
			slog.Float64("amount", amount),
		)
		return domain.RankedQuote{}, fmt.Errorf("router: %s -> %s: %w", inputMint, outputMint, err)
	}

	s.tracker.RecordSelection(best.Quote.Venue, float64(elapsed.Milliseconds()))
	s.logger.Info("best quote selected",
		slog.String("venue", best.Quote.Venue),
		slog.Float64("score", best.Score),
		slog.Float64("out", best.Quote.OutAmount),
		slog.Int("candidates", len(quotes)),
	)
	return best, nil
}

// ExecuteOptimalSwap selects the best quote and executes it on the winning
// venue.
func (s *RouterService) ExecuteOptimalSwap(ctx context.Context, inputMint, outputMint string, amount float64, slippageBps int) (domain.Trade, error) {
	best, err := s.GetBestQuote(ctx, inputMint, outputMint, amount, slippageBps)
	if err != nil {
		return domain.Trade{}, err
	}
	return s.coord.ExecuteQuote(ctx, best.Quote, slippageBps)
}

// ExecuteSplitSwap plans a split across up to maxSplits venues and executes
// the legs sequentially. On a mid-plan failure the returned error is a
// *domain.PartialExecutionError carrying the trades that did complete.
func (s *RouterService) ExecuteSplitSwap(ctx context.Context, inputMint, outputMint string, amount float64, slippageBps, maxSplits int) ([]domain.Trade, error) {
	plan, err := s.splitter.Plan(ctx, inputMint, outputMint, amount, maxSplits, slippageBps)
	if err != nil {
		return nil, fmt.Errorf("router: split plan: %w", err)
	}
	return s.coord.ExecuteSplit(ctx, plan, slippageBps)
}

// PlanSplitSwap returns the split plan without executing it.
func (s *RouterService) PlanSplitSwap(ctx context.Context, inputMint, outputMint string, amount float64, slippageBps, maxSplits int) (domain.ExecutionPlan, error) {
	return s.splitter.Plan(ctx, inputMint, outputMint, amount, maxSplits, slippageBps)
}

// FindArbitrageOpportunities scans the given tokens across every venue pair.
func (s *RouterService) FindArbitrageOpportunities(ctx context.Context, tokens []string, minProfitBps float64) []domain.ArbitrageOpportunity {
	return s.detector.FindOpportunities(ctx, tokens, minProfitBps)
}

// ExecuteArbitrage executes a previously detected opportunity. The
// opportunity is re-validated before any trade is attempted.
func (s *RouterService) ExecuteArbitrage(ctx context.Context, opp domain.ArbitrageOpportunity) (domain.ArbitrageResult, error) {
	return s.coord.ExecuteArbitrage(ctx, opp)
}

// Metrics returns point-in-time copies of the routing stats, per-venue
// metrics, and the arbitrage-opportunity history.
func (s *RouterService) Metrics() (domain.RoutingStats, []domain.DexMetrics, []domain.ArbitrageOpportunity) {
	return s.tracker.RoutingStats(), s.tracker.VenueMetrics(), s.tracker.History()
}
