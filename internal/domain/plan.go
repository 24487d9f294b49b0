package domain

// PlanLeg is one slice of a split execution plan. The quote was obtained for
// the full requested amount; Percent is applied at execution time.
type PlanLeg struct {
	Venue   string
	Quote   Quote
	Percent int
}

// ExecutionPlan divides one logical order across several venues. Invariant:
// leg percentages sum to exactly 100.
type ExecutionPlan struct {
	InputMint      string
	OutputMint     string
	TotalAmount    float64
	Legs           []PlanLeg
	ExpectedOutput float64 // percentage-weighted sum over the full-amount quotes
	TotalFees      float64
	AvgImpactPct   float64 // percentage-weighted average price impact
}

// PercentSum returns the sum of leg percentages. Useful for invariant checks.
func (p ExecutionPlan) PercentSum() int {
	sum := 0
	for _, leg := range p.Legs {
		sum += leg.Percent
	}
	return sum
}
