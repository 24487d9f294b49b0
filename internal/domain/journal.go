package domain

import (
	"context"
	"time"
)

// TradeJournal is a write-behind record of executed trades. Journaling is
// optional: in-memory metrics remain authoritative, and journal failures must
// never fail the trade that triggered them.
type TradeJournal interface {
	Insert(ctx context.Context, t Trade) error
	// ListBefore returns up to limit trades executed strictly before the
	// cutoff, oldest first, for archival.
	ListBefore(ctx context.Context, before time.Time, limit int) ([]Trade, error)
	// DeleteBefore removes journaled trades older than the cutoff after they
	// have been archived. Returns the number of rows removed.
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// OpportunityJournal records detected arbitrage opportunities.
type OpportunityJournal interface {
	InsertBatch(ctx context.Context, opps []ArbitrageOpportunity) error
	ListBefore(ctx context.Context, before time.Time, limit int) ([]ArbitrageOpportunity, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// BlobWriter uploads an object to blob storage. Implemented in
// internal/blob/s3.
type BlobWriter interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
}
