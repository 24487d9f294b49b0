// Package feed streams venue price ticks over WebSocket into the price
// cache, giving the execution coordinator fresher marks than the detection
// probes when it re-validates an opportunity.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/InsideOutbtc/dexrouter/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// tick is the wire format of a price update.
type tick struct {
	Venue     string  `json:"venue"`
	Pair      string  `json:"pair"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"ts"` // unix milliseconds
}

// subscribeCommand requests price updates for a set of pairs.
type subscribeCommand struct {
	Op    string   `json:"op"`
	Pairs []string `json:"pairs"`
}

// PriceFeed maintains a WebSocket subscription to a venue price stream and
// mirrors every tick into the price cache.
type PriceFeed struct {
	wsURL  string
	pairs  []string
	cache  domain.PriceCache
	logger *slog.Logger
}

// NewPriceFeed builds a feed for the given stream URL and pair list.
func NewPriceFeed(wsURL string, pairs []string, cache domain.PriceCache, logger *slog.Logger) *PriceFeed {
	return &PriceFeed{
		wsURL:  wsURL,
		pairs:  pairs,
		cache:  cache,
		logger: logger.With(slog.String("component", "price_feed")),
	}
}

// Run connects, subscribes, and pumps ticks into the cache until the
// context is cancelled. Connection failures trigger reconnection with
// exponential backoff.
func (f *PriceFeed) Run(ctx context.Context) error {
	delay := reconnectDelay

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := f.connectAndPump(ctx)
		if err == nil || ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("price stream disconnected",
			slog.String("url", f.wsURL),
			slog.String("error", err.Error()),
			slog.Duration("retry_in", delay))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// connectAndPump runs one connection lifetime: dial, subscribe, read until
// the connection drops or the context is cancelled.
func (f *PriceFeed) connectAndPump(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return fmt.Errorf("feed: connect: %w", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	sub := subscribeCommand{Op: "subscribe", Pairs: f.pairs}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("feed: subscribe: %w", err)
	}
	f.logger.Info("price stream connected",
		slog.String("url", f.wsURL),
		slog.Int("pairs", len(f.pairs)))

	// Close the connection when the context ends so the blocked read
	// returns, and keep the connection alive with pings.
	pingDone := make(chan struct{})
	defer close(pingDone)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-pingDone:
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("feed: read: %w", err)
		}

		var t tick
		if err := json.Unmarshal(message, &t); err != nil {
			f.logger.Debug("skipping malformed tick", slog.String("error", err.Error()))
			continue
		}
		if t.Venue == "" || t.Pair == "" || t.Price <= 0 {
			continue
		}

		ts := time.UnixMilli(t.Timestamp)
		if t.Timestamp == 0 {
			ts = time.Now()
		}
		if err := f.cache.SetPrice(ctx, t.Venue, t.Pair, t.Price, ts); err != nil {
			f.logger.Warn("cache price update failed",
				slog.String("venue", t.Venue),
				slog.String("pair", t.Pair),
				slog.String("error", err.Error()))
		}
	}
}
