package usecase

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/elecmate/backend/internal/domain"
)

// MaxAlternatives is the largest number of alternatives offered per item
const MaxAlternatives = 3

// RankedCandidate is a candidate together with its parsed price and score
type RankedCandidate struct {
	Product domain.CandidateProduct
	Price   PriceParseResult
	Score   float64
}

// Rank scores every candidate under the strategy and returns them best first.
// Equal scores are ordered by supplier name, then product name, then input position.
// The input slice is not modified.
func (s *Scorer) Rank(candidates []domain.CandidateProduct, strategy domain.Strategy) []RankedCandidate {
	ranked := make([]RankedCandidate, len(candidates))
	for i, c := range candidates {
		price := ParsePrice(c.Price)
		ranked[i] = RankedCandidate{
			Product: c,
			Price:   price,
			Score:   s.score(c, price, strategy),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Product.Supplier != b.Product.Supplier {
			return a.Product.Supplier < b.Product.Supplier
		}
		return a.Product.Name < b.Product.Name
	})

	if s.cfg.EnableDebugLogging {
		for _, r := range ranked {
			log.Debug().
				Str("strategy", string(strategy)).
				Str("product", r.Product.Name).
				Str("supplier", r.Product.Supplier).
				Bool("price_ok", r.Price.OK).
				Float64("score", r.Score).
				Msg("ranked candidate")
		}
	}

	return ranked
}

// StrategySelector picks the winning candidate and alternatives for one item
type StrategySelector struct {
	scorer          *Scorer
	maxAlternatives int
}

// NewStrategySelector creates a selector. maxAlternatives is clamped to [0, MaxAlternatives];
// a negative value selects the maximum.
func NewStrategySelector(scorer *Scorer, maxAlternatives int) *StrategySelector {
	if maxAlternatives < 0 || maxAlternatives > MaxAlternatives {
		maxAlternatives = MaxAlternatives
	}
	return &StrategySelector{scorer: scorer, maxAlternatives: maxAlternatives}
}

// Select ranks the candidates for an item and returns the top match. It returns
// false when there are no candidates, which callers report as a warning.
func (s *StrategySelector) Select(
	item domain.RequestedItem,
	candidates []domain.CandidateProduct,
	strategy domain.Strategy,
	includeAlternatives bool,
) (*domain.SelectedItem, bool) {
	if len(candidates) == 0 {
		return nil, false
	}

	ranked := s.scorer.Rank(candidates, strategy)
	top := ranked[0]

	alternatives := []domain.CandidateProduct{}
	if includeAlternatives {
		for _, r := range ranked[1:] {
			if len(alternatives) == s.maxAlternatives {
				break
			}
			alternatives = append(alternatives, r.Product)
		}
	}

	return &domain.SelectedItem{
		RequestedItem:   item,
		SelectedProduct: top.Product,
		Alternatives:    alternatives,
		UnitPrice:       top.Price.Float(),
		Quantity:        ParseQuantity(item.Quantity).InexactFloat64(),
		Score:           top.Score,
	}, true
}
