package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/InsideOutbtc/dexrouter/internal/domain"
)

// listBatchSize bounds each journal page pulled during an archive pass.
const listBatchSize = 1000

// Archiver drains journaled history older than a retention window into
// JSONL archive objects, then prunes the archived rows from the journal.
// Pruning only happens after the upload succeeded.
type Archiver struct {
	writer domain.BlobWriter
	trades domain.TradeJournal
	opps   domain.OpportunityJournal
	logger *slog.Logger
}

// NewArchiver builds an Archiver. Either journal may be nil, in which case
// the corresponding archive pass is skipped.
func NewArchiver(writer domain.BlobWriter, trades domain.TradeJournal, opps domain.OpportunityJournal, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer: writer,
		trades: trades,
		opps:   opps,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveTrades uploads all trades executed before the cutoff as a JSONL
// object and deletes them from the journal. Returns the archived count.
func (a *Archiver) ArchiveTrades(ctx context.Context, before time.Time) (int64, error) {
	if a.trades == nil {
		return 0, nil
	}

	var all []domain.Trade
	for {
		page, err := a.trades.ListBefore(ctx, before, listBatchSize)
		if err != nil {
			return 0, fmt.Errorf("s3blob: archive trades list: %w", err)
		}
		all = append(all, page...)
		if len(page) < listBatchSize {
			break
		}
		before = page[len(page)-1].ExecutedAt
	}
	if len(all) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(all)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades marshal: %w", err)
	}

	path := archivePath("trades", all[len(all)-1].ExecutedAt)
	if err := a.writer.Put(ctx, path, buf, "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive trades upload: %w", err)
	}

	deleted, err := a.trades.DeleteBefore(ctx, all[len(all)-1].ExecutedAt.Add(time.Nanosecond))
	if err != nil {
		return int64(len(all)), fmt.Errorf("s3blob: archive trades prune: %w", err)
	}

	a.logger.Info("archived trades",
		slog.String("path", path),
		slog.Int("count", len(all)),
		slog.Int64("pruned", deleted))
	return int64(len(all)), nil
}

// ArchiveOpportunities uploads all opportunities detected before the cutoff
// as a JSONL object and deletes them from the journal. Returns the archived
// count.
func (a *Archiver) ArchiveOpportunities(ctx context.Context, before time.Time) (int64, error) {
	if a.opps == nil {
		return 0, nil
	}

	var all []domain.ArbitrageOpportunity
	for {
		page, err := a.opps.ListBefore(ctx, before, listBatchSize)
		if err != nil {
			return 0, fmt.Errorf("s3blob: archive opportunities list: %w", err)
		}
		all = append(all, page...)
		if len(page) < listBatchSize {
			break
		}
		before = page[len(page)-1].DetectedAt
	}
	if len(all) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(all)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities marshal: %w", err)
	}

	path := archivePath("opportunities", all[len(all)-1].DetectedAt)
	if err := a.writer.Put(ctx, path, buf, "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities upload: %w", err)
	}

	deleted, err := a.opps.DeleteBefore(ctx, all[len(all)-1].DetectedAt.Add(time.Nanosecond))
	if err != nil {
		return int64(len(all)), fmt.Errorf("s3blob: archive opportunities prune: %w", err)
	}

	a.logger.Info("archived opportunities",
		slog.String("path", path),
		slog.Int("count", len(all)),
		slog.Int64("pruned", deleted))
	return int64(len(all)), nil
}

// Run archives both journals on every tick, keeping rows younger than the
// retention window. It blocks until the context is cancelled.
func (a *Archiver) Run(ctx context.Context, interval, retention time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().Add(-retention)
			if _, err := a.ArchiveTrades(ctx, cutoff); err != nil {
				a.logger.Error("trade archive pass failed", slog.String("error", err.Error()))
			}
			if _, err := a.ArchiveOpportunities(ctx, cutoff); err != nil {
				a.logger.Error("opportunity archive pass failed", slog.String("error", err.Error()))
			}
		}
	}
}

// archivePath partitions archive objects by day with a time suffix so
// multiple passes in one day never clobber each other.
//
//	archive/trades/2026-08-29/153000.jsonl
func archivePath(kind string, last time.Time) string {
	return fmt.Sprintf("archive/%s/%s/%s.jsonl",
		kind, last.UTC().Format("2006-01-02"), last.UTC().Format("150405"))
}

// marshalJSONL serialises records as newline-delimited JSON, one compact
// object per line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
