package domain

import (
	"context"
	"time"
)

// PriceCache stores the latest observed execution price per (venue, pair).
// Written by the detector's probes and the price feed; read by the execution
// coordinator when it re-validates an opportunity before trading. Implemented
// in internal/cache/redis. ErrNotFound is returned for missing entries.
type PriceCache interface {
	SetPrice(ctx context.Context, venue, pair string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, venue, pair string) (float64, time.Time, error)
	// GetVenuePrices returns the cached price for each requested venue for
	// one pair. Venues without a cached price are omitted.
	GetVenuePrices(ctx context.Context, venues []string, pair string) (map[string]float64, error)
}
