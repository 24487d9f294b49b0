package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by caches and journals for missing entries.
	ErrNotFound = errors.New("not found")

	// ErrNoQuotes indicates every configured adapter failed or returned an
	// invalid quote. Fatal for the call that needed them.
	ErrNoQuotes = errors.New("no quotes available")

	// ErrAdapterUnavailable marks a single venue's quote/execute failure.
	// Contained at the aggregation boundary; surfaced only when it leads to
	// ErrNoQuotes.
	ErrAdapterUnavailable = errors.New("venue adapter unavailable")

	// ErrStaleOpportunity rejects an arbitrage opportunity whose prices have
	// moved since detection. Checked before any trade is attempted.
	ErrStaleOpportunity = errors.New("arbitrage opportunity is stale")

	// ErrVenueUnknown means a quote or plan references a venue with no
	// configured adapter.
	ErrVenueUnknown = errors.New("unknown venue")

	// ErrInvalidQuote means a quote with Valid == false reached scoring or
	// execution.
	ErrInvalidQuote = errors.New("invalid quote")
)

// PartialExecutionError reports a split plan that aborted after some legs had
// already executed. Executed legs are NOT rolled back; the caller must
// reconcile already-moved funds using Completed.
type PartialExecutionError struct {
	Completed []Trade // trades that executed before the failure, in leg order
	FailedLeg int     // zero-based index of the leg that failed
	Venue     string
	Err       error
}

func (e *PartialExecutionError) Error() string {
	return fmt.Sprintf("split execution aborted at leg %d (venue %s) after %d completed leg(s): %v",
		e.FailedLeg, e.Venue, len(e.Completed), e.Err)
}

func (e *PartialExecutionError) Unwrap() error { return e.Err }

// ArbitrageLegError reports a sell leg that failed after the buy leg
// succeeded, leaving an open unhedged position. Critical: callers must alert
// an operator rather than retry blindly.
type ArbitrageLegError struct {
	OpportunityID string
	BuyTrade      Trade // the successful, now-unhedged buy leg
	Err           error
}

func (e *ArbitrageLegError) Error() string {
	return fmt.Sprintf("arbitrage sell leg failed after buy leg %s on %s succeeded: %v",
		e.BuyTrade.Signature, e.BuyTrade.Venue, e.Err)
}

func (e *ArbitrageLegError) Unwrap() error { return e.Err }
