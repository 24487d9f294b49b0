package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InsideOutbtc/dexrouter/internal/domain"
)

func TestRecordTradeIncrementalMeans(t *testing.T) {
	tr := NewTracker()

	tr.RecordTrade(domain.Trade{Venue: "jupiter", InAmount: 100, FeeAmount: 0.1, LatencyMs: 10, PriceImpactPct: 0.2, Success: true})
	tr.RecordTrade(domain.Trade{Venue: "jupiter", InAmount: 50, FeeAmount: 0.3, LatencyMs: 30, PriceImpactPct: 0.6, Success: true})
	tr.RecordTrade(domain.Trade{Venue: "jupiter", InAmount: 25, FeeAmount: 0.2, LatencyMs: 20, PriceImpactPct: 0.4, Success: false})

	ms := tr.VenueMetrics()
	require.Len(t, ms, 1)
	m := ms[0]
	assert.Equal(t, "jupiter", m.Venue)
	assert.Equal(t, int64(3), m.Trades)
	assert.Equal(t, int64(2), m.Successes)
	assert.InDelta(t, 175, m.Volume, 1e-9)
	assert.InDelta(t, 0.6, m.Fees, 1e-9)
	assert.InDelta(t, 20, m.AvgLatencyMs, 1e-9)
	assert.InDelta(t, 0.4, m.AvgImpactPct, 1e-9)
}

func TestVenueMetricsSorted(t *testing.T) {
	tr := NewTracker()
	tr.RecordTrade(domain.Trade{Venue: "raydium", Success: true})
	tr.RecordTrade(domain.Trade{Venue: "jupiter", Success: true})
	tr.RecordTrade(domain.Trade{Venue: "orca", Success: true})

	ms := tr.VenueMetrics()
	require.Len(t, ms, 3)
	assert.Equal(t, "jupiter", ms[0].Venue)
	assert.Equal(t, "orca", ms[1].Venue)
	assert.Equal(t, "raydium", ms[2].Venue)
}

func TestRoutingStats(t *testing.T) {
	tr := NewTracker()

	tr.RecordQuoteRequest()
	tr.RecordQuoteRequest()
	tr.RecordSelection("jupiter", 100)
	tr.RecordSelection("orca", 200)

	stats := tr.RoutingStats()
	assert.Equal(t, int64(2), stats.TotalQuotes)
	assert.Equal(t, int64(2), stats.SuccessfulRoutes)
	assert.InDelta(t, 150, stats.AvgResponseMs, 1e-9)
	assert.Equal(t, int64(1), stats.VenueSelections["jupiter"])
	assert.Equal(t, int64(1), stats.VenueSelections["orca"])
}

func TestRoutingStatsReturnsCopy(t *testing.T) {
	tr := NewTracker()
	tr.RecordSelection("jupiter", 100)

	stats := tr.RoutingStats()
	stats.VenueSelections["jupiter"] = 999

	assert.Equal(t, int64(1), tr.RoutingStats().VenueSelections["jupiter"])
}

func TestHistoryEvictsOldest(t *testing.T) {
	tr := NewTracker()

	opps := make([]domain.ArbitrageOpportunity, 0, HistoryCap+1)
	for i := 0; i < HistoryCap+1; i++ {
		opps = append(opps, domain.ArbitrageOpportunity{
			ID:         fmt.Sprintf("opp-%d", i),
			DetectedAt: time.Now().UTC(),
		})
	}
	tr.RecordOpportunities(opps)

	history := tr.History()
	require.Len(t, history, HistoryCap)
	// Oldest entry dropped, insertion order preserved.
	assert.Equal(t, "opp-1", history[0].ID)
	assert.Equal(t, fmt.Sprintf("opp-%d", HistoryCap), history[len(history)-1].ID)
}

func TestHistoryAppendsAcrossCalls(t *testing.T) {
	tr := NewTracker()
	tr.RecordOpportunities([]domain.ArbitrageOpportunity{{ID: "a"}})
	tr.RecordOpportunities([]domain.ArbitrageOpportunity{{ID: "b"}, {ID: "c"}})

	history := tr.History()
	require.Len(t, history, 3)
	assert.Equal(t, "a", history[0].ID)
	assert.Equal(t, "c", history[2].ID)
}
