package router

import (
	"github.com/InsideOutbtc/dexrouter/internal/domain"
)

// ScorerConfig holds the composite-score weights and the price-impact
// saturation point. The defaults are tunables, not established optima.
type ScorerConfig struct {
	OutputWeight     float64 // weight of output/input ratio
	ImpactWeight     float64 // weight of the price-impact score
	FeeWeight        float64 // weight of the fee score
	ImpactSaturation float64 // impact percent at which the impact score hits 0
}

// DefaultScorerConfig returns the standard 0.5/0.3/0.2 weighting with a 10%
// impact saturation point.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		OutputWeight:     0.5,
		ImpactWeight:     0.3,
		FeeWeight:        0.2,
		ImpactSaturation: 10.0,
	}
}

// Scorer assigns a composite score to quotes. Pure: no side effects, no
// state beyond the configured weights.
type Scorer struct {
	cfg ScorerConfig
}

// NewScorer creates a Scorer. Zero-valued fields in cfg fall back to the
// defaults.
func NewScorer(cfg ScorerConfig) *Scorer {
	def := DefaultScorerConfig()
	if cfg.OutputWeight <= 0 && cfg.ImpactWeight <= 0 && cfg.FeeWeight <= 0 {
		cfg.OutputWeight = def.OutputWeight
		cfg.ImpactWeight = def.ImpactWeight
		cfg.FeeWeight = def.FeeWeight
	}
	if cfg.ImpactSaturation <= 0 {
		cfg.ImpactSaturation = def.ImpactSaturation
	}
	return &Scorer{cfg: cfg}
}

// Score computes the composite score for a single quote:
//
//	outputRatio = out/in
//	impactScore = max(0, saturation - impact) / saturation
//	feeScore    = max(0, 1 - fee/in)
//	score       = wOut*outputRatio + wImpact*impactScore + wFee*feeScore
//
// Quotes with InAmount <= 0 or Valid == false score 0.
func (s *Scorer) Score(q domain.Quote) float64 {
	if !q.Valid || q.InAmount <= 0 {
		return 0
	}
	outputRatio := q.OutAmount / q.InAmount

	impactScore := (s.cfg.ImpactSaturation - q.PriceImpactPct) / s.cfg.ImpactSaturation
	if impactScore < 0 {
		impactScore = 0
	}

	feeScore := 1 - q.FeeAmount/q.InAmount
	if feeScore < 0 {
		feeScore = 0
	}

	return s.cfg.OutputWeight*outputRatio + s.cfg.ImpactWeight*impactScore + s.cfg.FeeWeight*feeScore
}

// Best returns the highest-scoring quote from the set. Ties are broken by
// lowest price impact, then lowest fee, then venue name, so selection is
// deterministic regardless of quote order. Returns ErrNoQuotes for an empty
// set.
func (s *Scorer) Best(quotes []domain.Quote) (domain.RankedQuote, error) {
	var best domain.RankedQuote
	found := false
	for _, q := range quotes {
		if !q.Valid {
			continue
		}
		score := s.Score(q)
		if !found || better(score, q, best) {
			best = domain.RankedQuote{Quote: q, Score: score}
			found = true
		}
	}
	if !found {
		return domain.RankedQuote{}, domain.ErrNoQuotes
	}
	return best, nil
}

// Rank returns the quotes ordered best-first using the same comparison as
// Best. The input slice is not modified.
func (s *Scorer) Rank(quotes []domain.Quote) []domain.RankedQuote {
	ranked := make([]domain.RankedQuote, 0, len(quotes))
	for _, q := range quotes {
		if !q.Valid {
			continue
		}
		ranked = append(ranked, domain.RankedQuote{Quote: q, Score: s.Score(q)})
	}
	// Insertion sort: quote sets are small (one per venue).
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && better(ranked[j].Score, ranked[j].Quote, ranked[j-1]); j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}
	return ranked
}

// better reports whether (score, q) beats the current champion.
func better(score float64, q domain.Quote, champ domain.RankedQuote) bool {
	if score != champ.Score {
		return score > champ.Score
	}
	if q.PriceImpactPct != champ.Quote.PriceImpactPct {
		return q.PriceImpactPct < champ.Quote.PriceImpactPct
	}
	if q.FeeAmount != champ.Quote.FeeAmount {
		return q.FeeAmount < champ.Quote.FeeAmount
	}
	return q.Venue < champ.Quote.Venue
}
