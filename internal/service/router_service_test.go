package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InsideOutbtc/dexrouter/internal/arbitrage"
	"github.com/InsideOutbtc/dexrouter/internal/domain"
	"github.com/InsideOutbtc/dexrouter/internal/executor"
	"github.com/InsideOutbtc/dexrouter/internal/metrics"
	"github.com/InsideOutbtc/dexrouter/internal/router"
	"github.com/InsideOutbtc/dexrouter/internal/venue/venuetest"
)

func newService(adapters ...domain.VenueAdapter) (*RouterService, *metrics.Tracker) {
	logger := slog.New(slog.DiscardHandler)
	tracker := metrics.NewTracker()
	agg := router.NewAggregator(adapters, time.Second, logger)
	scorer := router.NewScorer(router.DefaultScorerConfig())
	svc := New(Config{
		Aggregator: agg,
		Scorer:     scorer,
		Splitter:   router.NewSplitPlanner(agg, scorer, logger),
		Detector: arbitrage.NewDetector(arbitrage.DetectorConfig{
			Quotes:  agg,
			Tracker: tracker,
			Logger:  logger,
		}),
		Coord: executor.New(executor.Config{
			Adapters: adapters,
			Tracker:  tracker,
			Logger:   logger,
		}),
		Tracker: tracker,
		Logger:  logger,
	})
	return svc, tracker
}

func TestGetBestQuote(t *testing.T) {
	svc, tracker := newService(
		&venuetest.Adapter{VenueName: "jupiter", Price: 1.005, ImpactPct: 0.1, FeeAmount: 0.05},
		&venuetest.Adapter{VenueName: "orca", Price: 1.002, ImpactPct: 0.3, FeeAmount: 0.1},
		&venuetest.Adapter{VenueName: "raydium", Price: 0.998, ImpactPct: 0.8, FeeAmount: 0.2},
	)

	best, err := svc.GetBestQuote(context.Background(), "SOL", "USDC", 100, 50)
	require.NoError(t, err)
	assert.Equal(t, "jupiter", best.Quote.Venue)
	assert.Greater(t, best.Score, 0.0)

	stats := tracker.RoutingStats()
	assert.Equal(t, int64(1), stats.TotalQuotes)
	assert.Equal(t, int64(1), stats.SuccessfulRoutes)
	assert.Equal(t, int64(1), stats.VenueSelections["jupiter"])
}

func TestGetBestQuoteNoQuotes(t *testing.T) {
	svc, tracker := newService(
		&venuetest.Adapter{VenueName: "jupiter", QuoteErr: errors.New("down")},
	)

	_, err := svc.GetBestQuote(context.Background(), "SOL", "USDC", 100, 50)
	assert.ErrorIs(t, err, domain.ErrNoQuotes)

	// The request counts even though routing failed.
	stats := tracker.RoutingStats()
	assert.Equal(t, int64(1), stats.TotalQuotes)
	assert.Equal(t, int64(0), stats.SuccessfulRoutes)
}

func TestExecuteOptimalSwap(t *testing.T) {
	jup := &venuetest.Adapter{VenueName: "jupiter", Price: 1.005}
	orca := &venuetest.Adapter{VenueName: "orca", Price: 0.95}
	svc, _ := newService(jup, orca)

	trade, err := svc.ExecuteOptimalSwap(context.Background(), "SOL", "USDC", 100, 50)
	require.NoError(t, err)
	assert.Equal(t, "jupiter", trade.Venue)
	assert.Equal(t, 1, jup.ExecuteCalls())
	assert.Equal(t, 0, orca.ExecuteCalls())
}

func TestExecuteSplitSwap(t *testing.T) {
	svc, _ := newService(
		&venuetest.Adapter{VenueName: "jupiter", Price: 1.005},
		&venuetest.Adapter{VenueName: "orca", Price: 1.002},
	)

	trades, err := svc.ExecuteSplitSwap(context.Background(), "SOL", "USDC", 100, 50, 2)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.InDelta(t, 50, trades[0].InAmount, 1e-9)
	assert.InDelta(t, 50, trades[1].InAmount, 1e-9)
}

func TestPlanSplitSwap(t *testing.T) {
	jup := &venuetest.Adapter{VenueName: "jupiter", Price: 1.005}
	svc, _ := newService(jup)

	plan, err := svc.PlanSplitSwap(context.Background(), "SOL", "USDC", 100, 50, 3)
	require.NoError(t, err)
	require.Len(t, plan.Legs, 1)
	// Planning never executes.
	assert.Equal(t, 0, jup.ExecuteCalls())
}

func TestFindArbitrageOpportunities(t *testing.T) {
	svc, tracker := newService(
		&venuetest.Adapter{VenueName: "orca", Price: 100, PairBase: "SOL", PairQuote: "USDC"},
		&venuetest.Adapter{VenueName: "jupiter", Price: 101, PairBase: "SOL", PairQuote: "USDC"},
	)

	opps := svc.FindArbitrageOpportunities(context.Background(), []string{"SOL", "USDC"}, 50)
	require.Len(t, opps, 1)
	assert.Len(t, tracker.History(), 1)

	res, err := svc.ExecuteArbitrage(context.Background(), opps[0])
	require.NoError(t, err)
	assert.Equal(t, opps[0].ID, res.OpportunityID)
	assert.True(t, res.Success)
	assert.Greater(t, res.Profit, 0.0)
}

func TestMetricsSnapshot(t *testing.T) {
	svc, _ := newService(&venuetest.Adapter{VenueName: "jupiter", Price: 1})

	_, err := svc.ExecuteOptimalSwap(context.Background(), "SOL", "USDC", 100, 50)
	require.NoError(t, err)

	stats, venues, history := svc.Metrics()
	assert.Equal(t, int64(1), stats.TotalQuotes)
	require.Len(t, venues, 1)
	assert.Equal(t, int64(1), venues[0].Trades)
	assert.Empty(t, history)
}
