package domain

import "time"

// ArbitrageOpportunity is a price discrepancy for the same token pair across
// two venues. Created by the detector on each scan; consumed at most once by
// the executor, which re-checks Valid since venue prices move.
type ArbitrageOpportunity struct {
	ID         string
	// BaseMint is the probe token. The buy leg purchases it with QuoteMint
	// on BuyVenue, where it trades at the lower BuyPrice; the sell leg
	// sells it back on SellVenue at the higher SellPrice. Both prices are
	// base prices denominated in the quote token.
	BaseMint   string
	QuoteMint  string
	BuyVenue   string
	SellVenue  string
	BuyPrice   float64
	SellPrice  float64
	ProfitBps  float64
	// MaxAmount is the probe size used during detection, not a
	// liquidity-derived figure. Do not use it for position sizing.
	MaxAmount  float64
	DetectedAt time.Time
	Valid      bool
}
