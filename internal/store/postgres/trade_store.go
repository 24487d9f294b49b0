package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/InsideOutbtc/dexrouter/internal/domain"
)

// TradeStore journals executed trades.
type TradeStore struct {
	client *Client
}

// NewTradeStore returns a trade journal backed by the given client.
func NewTradeStore(client *Client) *TradeStore {
	return &TradeStore{client: client}
}

var _ domain.TradeJournal = (*TradeStore)(nil)

// Insert records a single executed trade.
func (s *TradeStore) Insert(ctx context.Context, trade domain.Trade) error {
	const q = `
		INSERT INTO trades (
			venue, signature, input_mint, output_mint,
			in_amount, out_amount, fee_amount,
			latency_ms, price_impact_pct, success, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.client.pool.Exec(ctx, q,
		trade.Venue, trade.Signature, trade.InputMint, trade.OutputMint,
		trade.InAmount, trade.OutAmount, trade.FeeAmount,
		trade.LatencyMs, trade.PriceImpactPct, trade.Success, trade.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade: %w", err)
	}
	return nil
}

// ListBefore returns trades executed strictly before the cutoff, oldest first.
func (s *TradeStore) ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Trade, error) {
	const q = `
		SELECT venue, signature, input_mint, output_mint,
		       in_amount, out_amount, fee_amount,
		       latency_ms, price_impact_pct, success, executed_at
		FROM trades
		WHERE executed_at < $1
		ORDER BY executed_at ASC
		LIMIT $2`

	rows, err := s.client.pool.Query(ctx, q, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		if err := rows.Scan(
			&t.Venue, &t.Signature, &t.InputMint, &t.OutputMint,
			&t.InAmount, &t.OutAmount, &t.FeeAmount,
			&t.LatencyMs, &t.PriceImpactPct, &t.Success, &t.ExecutedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list trades: %w", err)
	}
	return trades, nil
}

// DeleteBefore removes trades executed strictly before the cutoff and returns
// the number deleted.
func (s *TradeStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.client.pool.Exec(ctx, `DELETE FROM trades WHERE executed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trades: %w", err)
	}
	return tag.RowsAffected(), nil
}
