package router

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/InsideOutbtc/dexrouter/internal/domain"
)

// SplitPlanner builds multi-venue execution plans dividing one order across
// up to maxSplits venues. Quotes are ranked by composite score before
// slicing, so the plan always uses the best available venues.
type SplitPlanner struct {
	agg    *Aggregator
	scorer *Scorer
	logger *slog.Logger
}

// NewSplitPlanner creates a SplitPlanner using the given aggregator and
// scorer.
func NewSplitPlanner(agg *Aggregator, scorer *Scorer, logger *slog.Logger) *SplitPlanner {
	return &SplitPlanner{
		agg:    agg,
		scorer: scorer,
		logger: logger.With(slog.String("component", "split_planner")),
	}
}

// Plan requests quotes for the full amount from every venue, ranks them, and
// divides the order equally across the top min(len(quotes), maxSplits)
// venues. Integer percentages; the last leg absorbs the rounding remainder so
// the sum is exactly 100. Returns ErrNoQuotes when no venue can quote.
func (p *SplitPlanner) Plan(ctx context.Context, inputMint, outputMint string, amount float64, maxSplits int, slippageBps int) (domain.ExecutionPlan, error) {
	if maxSplits < 1 {
		return domain.ExecutionPlan{}, fmt.Errorf("split planner: max splits must be >= 1, got %d", maxSplits)
	}

	quotes := p.agg.GetAllQuotes(ctx, inputMint, outputMint, amount, slippageBps)
	if len(quotes) == 0 {
		return domain.ExecutionPlan{}, domain.ErrNoQuotes
	}

	ranked := p.scorer.Rank(quotes)
	n := len(ranked)
	if n > maxSplits {
		n = maxSplits
	}

	base := 100 / n
	plan := domain.ExecutionPlan{
		InputMint:   inputMint,
		OutputMint:  outputMint,
		TotalAmount: amount,
		Legs:        make([]domain.PlanLeg, 0, n),
	}
	for i := 0; i < n; i++ {
		pct := base
		if i == n-1 {
			pct = 100 - base*(n-1) // last leg absorbs the remainder
		}
		q := ranked[i].Quote
		plan.Legs = append(plan.Legs, domain.PlanLeg{
			Venue:   q.Venue,
			Quote:   q,
			Percent: pct,
		})

		w := float64(pct) / 100
		plan.ExpectedOutput += q.OutAmount * w
		plan.TotalFees += q.FeeAmount * w
		plan.AvgImpactPct += q.PriceImpactPct * w
	}

	p.logger.Debug("split plan built",
		slog.Int("legs", len(plan.Legs)),
		slog.Float64("expected_output", plan.ExpectedOutput),
		slog.Float64("total_fees", plan.TotalFees),
	)
	return plan, nil
}
