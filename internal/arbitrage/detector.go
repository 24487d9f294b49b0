// Package arbitrage detects and periodically scans for cross-venue price
// discrepancies exceeding a profit threshold.
package arbitrage

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/InsideOutbtc/dexrouter/internal/domain"
	"github.com/InsideOutbtc/dexrouter/internal/metrics"
)

// QuoteSource provides per-venue quotes for the detector's probes. Satisfied
// by router.Aggregator.
type QuoteSource interface {
	GetAllQuotes(ctx context.Context, inputMint, outputMint string, amount float64, slippageBps int) []domain.Quote
	Venues() []string
}

// DefaultProbeAmount is the probe size when the config leaves it unset: one
// unit of the base token.
const DefaultProbeAmount = 1.0

// Detector probes every token pair across every venue pair for exploitable
// spreads. Found opportunities are appended to the tracker's capped history
// and journaled when a journal is configured; probe prices are mirrored into
// the price cache when one is configured.
type Detector struct {
	quotes  QuoteSource
	tracker *metrics.Tracker
	cache   domain.PriceCache         // optional
	journal domain.OpportunityJournal // optional, write-behind
	probe   float64
	logger  *slog.Logger
}

// DetectorConfig configures a Detector. Cache and Journal may be nil.
type DetectorConfig struct {
	Quotes      QuoteSource
	Tracker     *metrics.Tracker
	Cache       domain.PriceCache
	Journal     domain.OpportunityJournal
	ProbeAmount float64
	Logger      *slog.Logger
}

// NewDetector creates a Detector.
func NewDetector(cfg DetectorConfig) *Detector {
	probe := cfg.ProbeAmount
	if probe <= 0 {
		probe = DefaultProbeAmount
	}
	return &Detector{
		quotes:  cfg.Quotes,
		tracker: cfg.Tracker,
		cache:   cfg.Cache,
		journal: cfg.Journal,
		probe:   probe,
		logger:  cfg.Logger.With(slog.String("component", "arb_detector")),
	}
}

// FindOpportunities scans every unordered pair of tokens. For each pair it
// obtains a per-venue probe quote converting base into quote token, derives
// each venue's execution price, and emits an opportunity for every ordered
// venue pair whose spread meets minProfitBps:
//
//	profitBps = (sellPrice - buyPrice) / buyPrice * 10000
//
// Results are sorted by profit descending and appended to the history. The
// opportunity's MaxAmount is the probe size, not a liquidity-derived figure.
func (d *Detector) FindOpportunities(ctx context.Context, tokens []string, minProfitBps float64) []domain.ArbitrageOpportunity {
	var opps []domain.ArbitrageOpportunity

	for i := 0; i < len(tokens); i++ {
		for j := i + 1; j < len(tokens); j++ {
			select {
			case <-ctx.Done():
				return opps
			default:
			}
			opps = append(opps, d.scanPair(ctx, tokens[i], tokens[j], minProfitBps)...)
		}
	}

	sort.Slice(opps, func(a, b int) bool {
		return opps[a].ProfitBps > opps[b].ProfitBps
	})

	if d.tracker != nil && len(opps) > 0 {
		d.tracker.RecordOpportunities(opps)
	}
	if d.journal != nil && len(opps) > 0 {
		// Write-behind: a journal failure never fails the scan.
		if err := d.journal.InsertBatch(ctx, opps); err != nil {
			d.logger.Warn("opportunity journal write failed",
				slog.Int("count", len(opps)),
				slog.String("error", err.Error()),
			)
		}
	}
	return opps
}

// scanPair probes one token pair across all venues and compares every ordered
// venue pair.
func (d *Detector) scanPair(ctx context.Context, base, quote string, minProfitBps float64) []domain.ArbitrageOpportunity {
	quotes := d.quotes.GetAllQuotes(ctx, base, quote, d.probe, 0)
	if len(quotes) < 2 {
		return nil
	}

	now := time.Now().UTC()
	pair := base + "/" + quote

	type venuePrice struct {
		venue string
		price float64
	}
	prices := make([]venuePrice, 0, len(quotes))
	for _, q := range quotes {
		if q.InAmount <= 0 || q.OutAmount <= 0 {
			continue
		}
		price := q.OutAmount / q.InAmount
		prices = append(prices, venuePrice{venue: q.Venue, price: price})

		if d.cache != nil {
			if err := d.cache.SetPrice(ctx, q.Venue, pair, price, now); err != nil {
				d.logger.Debug("price cache update failed",
					slog.String("venue", q.Venue),
					slog.String("pair", pair),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	var opps []domain.ArbitrageOpportunity
	for _, buy := range prices {
		for _, sell := range prices {
			if buy.venue == sell.venue || buy.price <= 0 {
				continue
			}
			profitBps := (sell.price - buy.price) / buy.price * 10000
			if profitBps < minProfitBps {
				continue
			}
			opps = append(opps, domain.ArbitrageOpportunity{
				ID:         uuid.New().String(),
				BaseMint:   base,
				QuoteMint:  quote,
				BuyVenue:   buy.venue,
				SellVenue:  sell.venue,
				BuyPrice:   buy.price,
				SellPrice:  sell.price,
				ProfitBps:  profitBps,
				MaxAmount:  d.probe,
				DetectedAt: now,
				Valid:      true,
			})
		}
	}

	if len(opps) > 0 {
		d.logger.Info("arbitrage opportunities found",
			slog.String("pair", pair),
			slog.Int("count", len(opps)),
			slog.Float64("min_profit_bps", minProfitBps),
		)
	}
	return opps
}
