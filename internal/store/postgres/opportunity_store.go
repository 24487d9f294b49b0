package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/InsideOutbtc/dexrouter/internal/domain"
)

// OpportunityStore journals detected arbitrage opportunities.
type OpportunityStore struct {
	client *Client
}

// NewOpportunityStore returns an opportunity journal backed by the given client.
func NewOpportunityStore(client *Client) *OpportunityStore {
	return &OpportunityStore{client: client}
}

var _ domain.OpportunityJournal = (*OpportunityStore)(nil)

// InsertBatch writes a scan's worth of opportunities in one round trip.
// Re-detections of the same opportunity ID are ignored.
func (s *OpportunityStore) InsertBatch(ctx context.Context, opps []domain.ArbitrageOpportunity) error {
	if len(opps) == 0 {
		return nil
	}

	const q = `
		INSERT INTO arb_opportunities (
			id, base_mint, quote_mint, buy_venue, sell_venue,
			buy_price, sell_price, profit_bps, max_amount, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`

	batch := &pgx.Batch{}
	for _, opp := range opps {
		batch.Queue(q,
			opp.ID, opp.BaseMint, opp.QuoteMint, opp.BuyVenue, opp.SellVenue,
			opp.BuyPrice, opp.SellPrice, opp.ProfitBps, opp.MaxAmount, opp.DetectedAt,
		)
	}

	results := s.client.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range opps {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("postgres: insert opportunities: %w", err)
		}
	}
	return nil
}

// ListBefore returns opportunities detected strictly before the cutoff,
// oldest first.
func (s *OpportunityStore) ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.ArbitrageOpportunity, error) {
	const q = `
		SELECT id, base_mint, quote_mint, buy_venue, sell_venue,
		       buy_price, sell_price, profit_bps, max_amount, detected_at
		FROM arb_opportunities
		WHERE detected_at < $1
		ORDER BY detected_at ASC
		LIMIT $2`

	rows, err := s.client.pool.Query(ctx, q, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities: %w", err)
	}
	defer rows.Close()

	var opps []domain.ArbitrageOpportunity
	for rows.Next() {
		var o domain.ArbitrageOpportunity
		if err := rows.Scan(
			&o.ID, &o.BaseMint, &o.QuoteMint, &o.BuyVenue, &o.SellVenue,
			&o.BuyPrice, &o.SellPrice, &o.ProfitBps, &o.MaxAmount, &o.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		opps = append(opps, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list opportunities: %w", err)
	}
	return opps, nil
}

// DeleteBefore removes opportunities detected strictly before the cutoff and
// returns the number deleted.
func (s *OpportunityStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.client.pool.Exec(ctx, `DELETE FROM arb_opportunities WHERE detected_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete opportunities: %w", err)
	}
	return tag.RowsAffected(), nil
}
