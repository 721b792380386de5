package usecase

import (
	"github.com/elecmate/backend/internal/domain"
)

// ComposeOptions controls how baskets are built from search results
type ComposeOptions struct {
	IncludeAlternatives bool
	MaxBudget           *float64
}

// OptionComposer builds one basket per strategy from the same search results
type OptionComposer struct {
	selector          *StrategySelector
	estimatedDelivery string
}

// NewOptionComposer creates a composer using the given selector
func NewOptionComposer(selector *StrategySelector, estimatedDelivery string) *OptionComposer {
	return &OptionComposer{selector: selector, estimatedDelivery: estimatedDelivery}
}

// Compose builds the cheapest, best-quality and balanced options. Each basket is
// built from scratch so a selection under one strategy never affects another.
func (c *OptionComposer) Compose(results []domain.ItemCandidates, opts ComposeOptions) domain.Options {
	return domain.Options{
		Cheapest:    c.ComposeOne(domain.StrategyCheapest, results, opts),
		BestQuality: c.ComposeOne(domain.StrategyBestQuality, results, opts),
		Balanced:    c.ComposeOne(domain.StrategyBalanced, results, opts),
	}
}

// ComposeOne builds the basket for a single strategy, keeping input order.
// Items without candidates are skipped.
func (c *OptionComposer) ComposeOne(
	strategy domain.Strategy,
	results []domain.ItemCandidates,
	opts ComposeOptions,
) domain.Option {
	items := make([]domain.SelectedItem, 0, len(results))
	for _, r := range results {
		if selected, ok := c.selector.Select(r.Item, r.Candidates, strategy, opts.IncludeAlternatives); ok {
			items = append(items, *selected)
		}
	}
	return Aggregate(strategy, items, opts.MaxBudget, c.estimatedDelivery)
}
