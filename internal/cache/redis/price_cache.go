package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/InsideOutbtc/dexrouter/internal/domain"
)

// PriceCache implements domain.PriceCache using Redis hashes. Each venue's
// latest price for a pair is stored at key "price:{venue}:{pair}" with fields
// "price" and "ts" (Unix nanoseconds). Entries expire after ttl so stale
// venue prices age out instead of feeding the arbitrage detector forever.
type PriceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPriceCache creates a PriceCache. ttl <= 0 disables expiry.
func NewPriceCache(c *Client, ttl time.Duration) *PriceCache {
	return &PriceCache{rdb: c.Underlying(), ttl: ttl}
}

func priceKey(venue, pair string) string {
	return "price:" + venue + ":" + pair
}

// SetPrice stores the latest observed execution price for (venue, pair).
func (pc *PriceCache) SetPrice(ctx context.Context, venue, pair string, price float64, ts time.Time) error {
	key := priceKey(venue, pair)
	fields := map[string]interface{}{
		"price": strconv.FormatFloat(price, 'f', -1, 64),
		"ts":    strconv.FormatInt(ts.UnixNano(), 10),
	}
	if err := pc.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("redis: set price %s: %w", key, err)
	}
	if pc.ttl > 0 {
		if err := pc.rdb.Expire(ctx, key, pc.ttl).Err(); err != nil {
			return fmt.Errorf("redis: expire %s: %w", key, err)
		}
	}
	return nil
}

// GetPrice returns the latest price and timestamp for (venue, pair), or
// domain.ErrNotFound when no entry exists.
func (pc *PriceCache) GetPrice(ctx context.Context, venue, pair string) (float64, time.Time, error) {
	vals, err := pc.rdb.HGetAll(ctx, priceKey(venue, pair)).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get price %s/%s: %w", venue, pair, err)
	}
	if len(vals) == 0 {
		return 0, time.Time{}, domain.ErrNotFound
	}

	price, err := strconv.ParseFloat(vals["price"], 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse price %s/%s: %w", venue, pair, err)
	}
	tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse ts %s/%s: %w", venue, pair, err)
	}
	return price, time.Unix(0, tsNano), nil
}

// GetVenuePrices fetches one pair's cached price for several venues using a
// pipeline. Venues without a cached entry are omitted from the result.
func (pc *PriceCache) GetVenuePrices(ctx context.Context, venues []string, pair string) (map[string]float64, error) {
	if len(venues) == 0 {
		return map[string]float64{}, nil
	}

	pipe := pc.rdb.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(venues))
	for _, v := range venues {
		cmds[v] = pipe.HGetAll(ctx, priceKey(v, pair))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: venue prices pipeline: %w", err)
	}

	result := make(map[string]float64, len(venues))
	for v, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil || len(vals) == 0 {
			continue
		}
		price, err := strconv.ParseFloat(vals["price"], 64)
		if err != nil {
			continue
		}
		result[v] = price
	}
	return result, nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
