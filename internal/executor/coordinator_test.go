package executor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InsideOutbtc/dexrouter/internal/arbitrage"
	"github.com/InsideOutbtc/dexrouter/internal/domain"
	"github.com/InsideOutbtc/dexrouter/internal/metrics"
	"github.com/InsideOutbtc/dexrouter/internal/router"
	"github.com/InsideOutbtc/dexrouter/internal/venue/venuetest"
)

type fakeAlerter struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeAlerter) Notify(_ context.Context, event, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeAlerter) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func newCoordinator(t *testing.T, alerter Alerter, adapters ...domain.VenueAdapter) (*Coordinator, *metrics.Tracker) {
	t.Helper()
	tracker := metrics.NewTracker()
	c := New(Config{
		Adapters:    adapters,
		Tracker:     tracker,
		Alerter:     alerter,
		ExecTimeout: 5 * time.Second,
		Logger:      slog.New(slog.DiscardHandler),
	})
	return c, tracker
}

func validQuote(venue string, in float64) domain.Quote {
	return domain.Quote{
		Venue:       venue,
		InputMint:   "SOL",
		OutputMint:  "USDC",
		InAmount:    in,
		OutAmount:   in,
		MinReceived: in * 0.995,
		Valid:       true,
	}
}

func TestExecuteQuote(t *testing.T) {
	jup := &venuetest.Adapter{VenueName: "jupiter", Price: 1.005}
	c, tracker := newCoordinator(t, nil, jup)

	trade, err := c.ExecuteQuote(context.Background(), validQuote("jupiter", 100), 50)
	require.NoError(t, err)
	assert.True(t, trade.Success)
	assert.Equal(t, "jupiter", trade.Venue)
	assert.Equal(t, 1, jup.ExecuteCalls())

	ms := tracker.VenueMetrics()
	require.Len(t, ms, 1)
	assert.Equal(t, int64(1), ms[0].Trades)
}

func TestExecuteQuoteInvalid(t *testing.T) {
	c, _ := newCoordinator(t, nil, &venuetest.Adapter{VenueName: "jupiter", Price: 1})

	q := validQuote("jupiter", 100)
	q.Valid = false
	_, err := c.ExecuteQuote(context.Background(), q, 50)
	assert.ErrorIs(t, err, domain.ErrInvalidQuote)
}

func TestExecuteQuoteUnknownVenue(t *testing.T) {
	c, _ := newCoordinator(t, nil, &venuetest.Adapter{VenueName: "jupiter", Price: 1})

	_, err := c.ExecuteQuote(context.Background(), validQuote("uniswap", 100), 50)
	assert.ErrorIs(t, err, domain.ErrVenueUnknown)
}

func threeLegPlan(total float64) domain.ExecutionPlan {
	return domain.ExecutionPlan{
		InputMint:   "SOL",
		OutputMint:  "USDC",
		TotalAmount: total,
		Legs: []domain.PlanLeg{
			{Venue: "jupiter", Percent: 33},
			{Venue: "orca", Percent: 33},
			{Venue: "raydium", Percent: 34},
		},
	}
}

func TestExecuteSplit(t *testing.T) {
	jup := &venuetest.Adapter{VenueName: "jupiter", Price: 1}
	orca := &venuetest.Adapter{VenueName: "orca", Price: 1}
	ray := &venuetest.Adapter{VenueName: "raydium", Price: 1}
	c, _ := newCoordinator(t, nil, jup, orca, ray)

	trades, err := c.ExecuteSplit(context.Background(), threeLegPlan(300), 50)
	require.NoError(t, err)
	require.Len(t, trades, 3)

	// Each leg spends its percentage of the total.
	assert.InDelta(t, 99, trades[0].InAmount, 1e-9)
	assert.InDelta(t, 99, trades[1].InAmount, 1e-9)
	assert.InDelta(t, 102, trades[2].InAmount, 1e-9)
}

func TestExecuteSplitPartialFailure(t *testing.T) {
	jup := &venuetest.Adapter{VenueName: "jupiter", Price: 1}
	orca := &venuetest.Adapter{VenueName: "orca", ExecuteErr: errors.New("venue down")}
	ray := &venuetest.Adapter{VenueName: "raydium", Price: 1}
	alerter := &fakeAlerter{}
	c, _ := newCoordinator(t, alerter, jup, orca, ray)

	trades, err := c.ExecuteSplit(context.Background(), threeLegPlan(300), 50)
	require.Error(t, err)

	var perr *domain.PartialExecutionError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.FailedLeg)
	assert.Equal(t, "orca", perr.Venue)
	require.Len(t, perr.Completed, 1)
	assert.Equal(t, "jupiter", perr.Completed[0].Venue)

	// Completed trades are also returned directly.
	require.Len(t, trades, 1)
	// The remaining leg is never attempted.
	assert.Equal(t, 0, ray.ExecuteCalls())
	assert.Contains(t, alerter.Events(), "split_partial")
}

func TestExecuteSplitRejectsBadPercentSum(t *testing.T) {
	c, _ := newCoordinator(t, nil, &venuetest.Adapter{VenueName: "jupiter", Price: 1})

	plan := domain.ExecutionPlan{
		TotalAmount: 100,
		Legs:        []domain.PlanLeg{{Venue: "jupiter", Percent: 60}},
	}
	_, err := c.ExecuteSplit(context.Background(), plan, 50)
	assert.Error(t, err)
}

func opportunity(buyVenue, sellVenue string) domain.ArbitrageOpportunity {
	return domain.ArbitrageOpportunity{
		ID:        "opp-1",
		BaseMint:  "SOL",
		QuoteMint: "USDC",
		BuyVenue:  buyVenue,
		SellVenue: sellVenue,
		BuyPrice:  100,
		SellPrice: 101,
		ProfitBps: 100,
		MaxAmount: 1,
		Valid:     true,
	}
}

func TestExecuteArbitrage(t *testing.T) {
	buy := &venuetest.Adapter{VenueName: "orca", Price: 100, PairBase: "SOL", PairQuote: "USDC"}
	sell := &venuetest.Adapter{VenueName: "jupiter", Price: 101, PairBase: "SOL", PairQuote: "USDC"}
	c, _ := newCoordinator(t, nil, buy, sell)

	res, err := c.ExecuteArbitrage(context.Background(), opportunity("orca", "jupiter"))
	require.NoError(t, err)
	assert.True(t, res.Success)

	// The buy leg spends 100 USDC on orca, where SOL trades at 100, for
	// 1 SOL; the sell leg sells that realized output (not the original
	// probe amount) on jupiter at 101.
	assert.Equal(t, "USDC", res.BuyTrade.InputMint)
	assert.InDelta(t, 100, res.BuyTrade.InAmount, 1e-9)
	assert.InDelta(t, 1, res.BuyTrade.OutAmount, 1e-9)
	assert.Equal(t, "SOL", res.SellTrade.InputMint)
	assert.InDelta(t, 1, res.SellTrade.InAmount, 1e-9)
	assert.InDelta(t, 101, res.SellTrade.OutAmount, 1e-9)
	assert.InDelta(t, 1, res.Profit, 1e-9)
}

func TestExecuteArbitrageDetectedOpportunityProfits(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	orca := &venuetest.Adapter{VenueName: "orca", Price: 100, PairBase: "SOL", PairQuote: "USDC"}
	jup := &venuetest.Adapter{VenueName: "jupiter", Price: 101, PairBase: "SOL", PairQuote: "USDC"}

	agg := router.NewAggregator([]domain.VenueAdapter{orca, jup}, time.Second, logger)
	det := arbitrage.NewDetector(arbitrage.DetectorConfig{
		Quotes: agg,
		Logger: logger,
	})
	opps := det.FindOpportunities(context.Background(), []string{"SOL", "USDC"}, 50)
	require.Len(t, opps, 1)
	assert.Equal(t, "orca", opps[0].BuyVenue)
	assert.Equal(t, "jupiter", opps[0].SellVenue)

	// Executing exactly what the detector emitted realizes the spread.
	c, _ := newCoordinator(t, nil, orca, jup)
	res, err := c.ExecuteArbitrage(context.Background(), opps[0])
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Greater(t, res.Profit, 0.0)
	assert.InDelta(t, res.SellTrade.OutAmount-res.BuyTrade.InAmount, res.Profit, 1e-9)
}

func TestExecuteArbitrageStale(t *testing.T) {
	c, _ := newCoordinator(t, nil, &venuetest.Adapter{VenueName: "orca", Price: 1})

	opp := opportunity("orca", "jupiter")
	opp.Valid = false
	_, err := c.ExecuteArbitrage(context.Background(), opp)
	assert.ErrorIs(t, err, domain.ErrStaleOpportunity)
}

func TestExecuteArbitrageUnknownVenue(t *testing.T) {
	c, _ := newCoordinator(t, nil, &venuetest.Adapter{VenueName: "orca", Price: 1})

	_, err := c.ExecuteArbitrage(context.Background(), opportunity("orca", "jupiter"))
	assert.ErrorIs(t, err, domain.ErrVenueUnknown)
}

func TestExecuteArbitrageSellLegFailure(t *testing.T) {
	buy := &venuetest.Adapter{VenueName: "orca", Price: 100, PairBase: "SOL", PairQuote: "USDC"}
	sell := &venuetest.Adapter{VenueName: "jupiter", ExecuteErr: errors.New("rpc timeout")}
	alerter := &fakeAlerter{}
	c, _ := newCoordinator(t, alerter, buy, sell)

	res, err := c.ExecuteArbitrage(context.Background(), opportunity("orca", "jupiter"))
	require.Error(t, err)

	var legErr *domain.ArbitrageLegError
	require.ErrorAs(t, err, &legErr)
	assert.Equal(t, "opp-1", legErr.OpportunityID)
	assert.Equal(t, "orca", legErr.BuyTrade.Venue)

	// The partial result still carries the executed buy leg, and the
	// unhedged position raises a critical alert.
	assert.True(t, res.BuyTrade.Success)
	assert.False(t, res.Success)
	assert.Contains(t, alerter.Events(), "arb_leg_failure")
}

type fakePriceCache struct {
	marks map[string]float64 // venue -> price
	err   error
}

func (f *fakePriceCache) SetPrice(context.Context, string, string, float64, time.Time) error {
	return nil
}

func (f *fakePriceCache) GetPrice(context.Context, string, string) (float64, time.Time, error) {
	return 0, time.Time{}, domain.ErrNotFound
}

func (f *fakePriceCache) GetVenuePrices(_ context.Context, venues []string, _ string) (map[string]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]float64)
	for _, v := range venues {
		if p, ok := f.marks[v]; ok {
			out[v] = p
		}
	}
	return out, nil
}

func cachedCoordinator(cache domain.PriceCache, adapters ...domain.VenueAdapter) *Coordinator {
	return New(Config{
		Adapters:    adapters,
		Tracker:     metrics.NewTracker(),
		Prices:      cache,
		ExecTimeout: 5 * time.Second,
		Logger:      slog.New(slog.DiscardHandler),
	})
}

func TestExecuteArbitrageCollapsedSpread(t *testing.T) {
	buy := &venuetest.Adapter{VenueName: "orca", Price: 100, PairBase: "SOL", PairQuote: "USDC"}
	sell := &venuetest.Adapter{VenueName: "jupiter", Price: 101, PairBase: "SOL", PairQuote: "USDC"}

	// Fresh marks show jupiter no longer above orca.
	cache := &fakePriceCache{marks: map[string]float64{"orca": 101, "jupiter": 100}}
	c := cachedCoordinator(cache, buy, sell)

	_, err := c.ExecuteArbitrage(context.Background(), opportunity("orca", "jupiter"))
	assert.ErrorIs(t, err, domain.ErrStaleOpportunity)
	assert.Equal(t, 0, buy.ExecuteCalls())
	assert.Equal(t, 0, sell.ExecuteCalls())
}

func TestExecuteArbitrageMissingMarkProceeds(t *testing.T) {
	buy := &venuetest.Adapter{VenueName: "orca", Price: 100, PairBase: "SOL", PairQuote: "USDC"}
	sell := &venuetest.Adapter{VenueName: "jupiter", Price: 101, PairBase: "SOL", PairQuote: "USDC"}

	// Only one venue has a fresh mark: the cache is advisory, so the
	// opportunity stands.
	cache := &fakePriceCache{marks: map[string]float64{"orca": 100}}
	c := cachedCoordinator(cache, buy, sell)

	res, err := c.ExecuteArbitrage(context.Background(), opportunity("orca", "jupiter"))
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestExecuteArbitrageCacheFailureProceeds(t *testing.T) {
	buy := &venuetest.Adapter{VenueName: "orca", Price: 100, PairBase: "SOL", PairQuote: "USDC"}
	sell := &venuetest.Adapter{VenueName: "jupiter", Price: 101, PairBase: "SOL", PairQuote: "USDC"}

	cache := &fakePriceCache{err: errors.New("redis down")}
	c := cachedCoordinator(cache, buy, sell)

	res, err := c.ExecuteArbitrage(context.Background(), opportunity("orca", "jupiter"))
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestExecuteArbitrageBuyLegFailure(t *testing.T) {
	buy := &venuetest.Adapter{VenueName: "orca", ExecuteErr: errors.New("venue down")}
	sell := &venuetest.Adapter{VenueName: "jupiter", Price: 1}
	c, _ := newCoordinator(t, nil, buy, sell)

	_, err := c.ExecuteArbitrage(context.Background(), opportunity("orca", "jupiter"))
	require.Error(t, err)

	var legErr *domain.ArbitrageLegError
	assert.False(t, errors.As(err, &legErr))
	// No buy, no sell.
	assert.Equal(t, 0, sell.ExecuteCalls())
}
