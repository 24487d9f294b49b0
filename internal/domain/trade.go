package domain

import "time"

// Trade is the result of an executed swap. Created only by venue adapters;
// immutable once produced.
type Trade struct {
	Venue          string
	Signature      string // transaction signature or hash
	InputMint      string
	OutputMint     string
	InAmount       float64
	OutAmount      float64
	FeeAmount      float64
	LatencyMs      int64
	PriceImpactPct float64
	Success        bool
	ExecutedAt     time.Time
}

// ArbitrageResult is the outcome of a two-leg arbitrage execution. Success is
// true only when both legs filled and the realized profit was positive.
type ArbitrageResult struct {
	OpportunityID string
	BuyTrade      Trade
	SellTrade     Trade
	Profit        float64 // sell output minus buy input, in the quote token
	Success       bool
}
