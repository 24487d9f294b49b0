package router

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InsideOutbtc/dexrouter/internal/domain"
	"github.com/InsideOutbtc/dexrouter/internal/venue/venuetest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestGetAllQuotesAllHealthy(t *testing.T) {
	adapters := []domain.VenueAdapter{
		&venuetest.Adapter{VenueName: "jupiter", Price: 1.005},
		&venuetest.Adapter{VenueName: "raydium", Price: 0.998},
		&venuetest.Adapter{VenueName: "orca", Price: 1.002},
	}
	agg := NewAggregator(adapters, time.Second, discardLogger())

	quotes := agg.GetAllQuotes(context.Background(), "SOL", "USDC", 100, 50)
	require.Len(t, quotes, 3)

	// Results come back in adapter configuration order.
	assert.Equal(t, "jupiter", quotes[0].Venue)
	assert.Equal(t, "raydium", quotes[1].Venue)
	assert.Equal(t, "orca", quotes[2].Venue)
	assert.InDelta(t, 100.5, quotes[0].OutAmount, 1e-9)
}

func TestGetAllQuotesPartialFailure(t *testing.T) {
	adapters := []domain.VenueAdapter{
		&venuetest.Adapter{VenueName: "jupiter", Price: 1.005},
		&venuetest.Adapter{VenueName: "raydium", QuoteErr: errors.New("boom")},
		&venuetest.Adapter{VenueName: "orca", Price: 1.002},
	}
	agg := NewAggregator(adapters, time.Second, discardLogger())

	quotes := agg.GetAllQuotes(context.Background(), "SOL", "USDC", 100, 50)
	require.Len(t, quotes, 2)
	assert.Equal(t, "jupiter", quotes[0].Venue)
	assert.Equal(t, "orca", quotes[1].Venue)
}

func TestGetAllQuotesAllFail(t *testing.T) {
	adapters := []domain.VenueAdapter{
		&venuetest.Adapter{VenueName: "jupiter", QuoteErr: errors.New("boom")},
		&venuetest.Adapter{VenueName: "orca", QuoteErr: errors.New("boom")},
	}
	agg := NewAggregator(adapters, time.Second, discardLogger())

	quotes := agg.GetAllQuotes(context.Background(), "SOL", "USDC", 100, 50)
	assert.Empty(t, quotes)
}

func TestGetAllQuotesSlowVenueTimesOut(t *testing.T) {
	adapters := []domain.VenueAdapter{
		&venuetest.Adapter{VenueName: "jupiter", Price: 1.005},
		&venuetest.Adapter{VenueName: "raydium", Price: 0.998, QuoteDelay: 500 * time.Millisecond},
	}
	agg := NewAggregator(adapters, 50*time.Millisecond, discardLogger())

	start := time.Now()
	quotes := agg.GetAllQuotes(context.Background(), "SOL", "USDC", 100, 50)
	elapsed := time.Since(start)

	require.Len(t, quotes, 1)
	assert.Equal(t, "jupiter", quotes[0].Venue)
	assert.Less(t, elapsed, 400*time.Millisecond)
}

func TestGetAllQuotesSkipsInvalid(t *testing.T) {
	invalid := &venuetest.Adapter{VenueName: "raydium"}
	invalid.QuoteFn = func(ctx context.Context, in, out string, amount float64, bps int) (domain.Quote, error) {
		return domain.Quote{Venue: "raydium", Valid: false}, nil
	}
	adapters := []domain.VenueAdapter{
		&venuetest.Adapter{VenueName: "jupiter", Price: 1.005},
		invalid,
	}
	agg := NewAggregator(adapters, time.Second, discardLogger())

	quotes := agg.GetAllQuotes(context.Background(), "SOL", "USDC", 100, 50)
	require.Len(t, quotes, 1)
	assert.Equal(t, "jupiter", quotes[0].Venue)
}

func TestVenues(t *testing.T) {
	adapters := []domain.VenueAdapter{
		&venuetest.Adapter{VenueName: "jupiter"},
		&venuetest.Adapter{VenueName: "orca"},
	}
	agg := NewAggregator(adapters, 0, discardLogger())
	assert.Equal(t, []string{"jupiter", "orca"}, agg.Venues())
}
