package domain

// RoutingStats are global routing counters. Owned and mutated exclusively by
// the metrics tracker; accessors return copies.
type RoutingStats struct {
	TotalQuotes      int64
	SuccessfulRoutes int64
	VenueSelections  map[string]int64 // venue -> times it won the route
	AvgResponseMs    float64
}

// DexMetrics are cumulative per-venue execution counters. Averages use the
// incremental-mean update avg' = (avg*(n-1)+x)/n and are never reset except
// on process restart.
type DexMetrics struct {
	Venue        string
	Trades       int64
	Successes    int64
	Volume       float64 // cumulative input-token volume
	Fees         float64
	AvgLatencyMs float64
	AvgImpactPct float64
}
