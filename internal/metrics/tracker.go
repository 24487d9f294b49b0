// Package metrics owns all mutable routing state: global routing stats,
// per-venue execution metrics, and the capped arbitrage-opportunity history.
// No other component mutates these; readers get snapshots.
package metrics

import (
	"sync"

	"github.com/InsideOutbtc/dexrouter/internal/domain"
)

// HistoryCap bounds the arbitrage-opportunity history. Oldest entries are
// evicted first once the cap is reached.
const HistoryCap = 1000

// Tracker is the sole owner of RoutingStats, DexMetrics, and the opportunity
// history. All methods are safe for concurrent use; read accessors return
// copies, never live references.
type Tracker struct {
	mu      sync.Mutex
	stats   domain.RoutingStats
	venues  map[string]*domain.DexMetrics
	history []domain.ArbitrageOpportunity
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		stats: domain.RoutingStats{
			VenueSelections: make(map[string]int64),
		},
		venues: make(map[string]*domain.DexMetrics),
	}
}

// RecordQuoteRequest counts one caller-facing quote request (once per
// GetBestQuote, not per adapter).
func (t *Tracker) RecordQuoteRequest() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.TotalQuotes++
}

// RecordSelection records that venue won a route, along with the observed
// response time for the aggregation round.
func (t *Tracker) RecordSelection(venue string, responseMs float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.SuccessfulRoutes++
	t.stats.VenueSelections[venue]++
	n := float64(t.stats.SuccessfulRoutes)
	t.stats.AvgResponseMs = (t.stats.AvgResponseMs*(n-1) + responseMs) / n
}

// RecordTrade folds a completed trade into the owning venue's cumulative
// metrics using incremental-mean updates. Never blocks on I/O.
func (t *Tracker) RecordTrade(trade domain.Trade) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.venues[trade.Venue]
	if !ok {
		m = &domain.DexMetrics{Venue: trade.Venue}
		t.venues[trade.Venue] = m
	}

	m.Trades++
	if trade.Success {
		m.Successes++
	}
	m.Volume += trade.InAmount
	m.Fees += trade.FeeAmount

	n := float64(m.Trades)
	m.AvgLatencyMs = (m.AvgLatencyMs*(n-1) + float64(trade.LatencyMs)) / n
	m.AvgImpactPct = (m.AvgImpactPct*(n-1) + trade.PriceImpactPct) / n
}

// RecordOpportunities appends detected opportunities to the history, evicting
// the oldest entries once HistoryCap is reached (FIFO).
func (t *Tracker) RecordOpportunities(opps []domain.ArbitrageOpportunity) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.history = append(t.history, opps...)
	if excess := len(t.history) - HistoryCap; excess > 0 {
		t.history = append(t.history[:0:0], t.history[excess:]...)
	}
}

// RoutingStats returns a copy of the global routing counters.
func (t *Tracker) RoutingStats() domain.RoutingStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := t.stats
	out.VenueSelections = make(map[string]int64, len(t.stats.VenueSelections))
	for k, v := range t.stats.VenueSelections {
		out.VenueSelections[k] = v
	}
	return out
}

// VenueMetrics returns a copy of every venue's cumulative metrics, sorted by
// venue name for stable output.
func (t *Tracker) VenueMetrics() []domain.DexMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]domain.DexMetrics, 0, len(t.venues))
	for _, m := range t.venues {
		out = append(out, *m)
	}
	// Small set; insertion sort keeps the output deterministic.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Venue < out[j-1].Venue; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// History returns a copy of the opportunity history in insertion order
// (oldest first).
func (t *Tracker) History() []domain.ArbitrageOpportunity {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.ArbitrageOpportunity(nil), t.history...)
}
