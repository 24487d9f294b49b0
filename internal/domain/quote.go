package domain

import "time"

// Quote is a venue's priced offer to convert InAmount of InputMint into
// OutAmount of OutputMint. Quotes are immutable once produced; a quote with
// Valid == false must never be scored or executed.
type Quote struct {
	Venue          string
	InputMint      string
	OutputMint     string
	InAmount       float64
	OutAmount      float64
	MinReceived    float64 // OutAmount after the slippage tolerance
	PriceImpactPct float64 // percent, e.g. 0.3 for 0.3%
	FeeAmount      float64 // in input-token units
	Price          float64 // execution price, OutAmount / InAmount
	Hops           int
	Route          string // human-readable route description
	Valid          bool
	FetchedAt      time.Time
}

// RankedQuote is a quote together with the composite score the router
// assigned to it when it won the route.
type RankedQuote struct {
	Quote Quote
	Score float64
}
