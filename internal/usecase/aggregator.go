package usecase

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/elecmate/backend/internal/domain"
)

// DefaultEstimatedDelivery is quoted when no delivery estimate is configured
const DefaultEstimatedDelivery = "1-3 working days"

// Aggregate totals a fully selected basket for one strategy.
// Line totals are summed exactly and rounded to pence once, at the end.
func Aggregate(
	strategy domain.Strategy,
	items []domain.SelectedItem,
	maxBudget *float64,
	estimatedDelivery string,
) domain.Option {
	total := basketTotal(items)

	if estimatedDelivery == "" {
		estimatedDelivery = DefaultEstimatedDelivery
	}

	if items == nil {
		items = []domain.SelectedItem{}
	}

	return domain.Option{
		Name:              strategy,
		TotalCost:         total.InexactFloat64(),
		Items:             items,
		Suppliers:         distinctSuppliers(items),
		EstimatedDelivery: estimatedDelivery,
		WithinBudget:      maxBudget == nil || total.LessThanOrEqual(decimal.NewFromFloat(*maxBudget)),
		UnpricedItems:     unpricedItems(items),
	}
}

// basketTotal sums price × quantity over the selected items and rounds to pence.
// Quantities are read from the requested item so no float conversion is involved.
// Items without a readable price contribute nothing.
func basketTotal(items []domain.SelectedItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		price := ParsePrice(item.SelectedProduct.Price)
		if !price.OK {
			continue
		}
		total = total.Add(price.Value.Mul(ParseQuantity(item.RequestedItem.Quantity)))
	}
	return total.Round(2)
}

// unpricedItems lists selected products without a readable price, or nil when all are priced
func unpricedItems(items []domain.SelectedItem) []string {
	var unpriced []string
	for _, item := range items {
		if ParsePrice(item.SelectedProduct.Price).OK {
			continue
		}
		name := item.SelectedProduct.Name
		if item.SelectedProduct.Supplier != "" {
			name = fmt.Sprintf("%s (%s)", name, item.SelectedProduct.Supplier)
		}
		unpriced = append(unpriced, name)
	}
	return unpriced
}

// distinctSuppliers lists suppliers in order of first appearance
func distinctSuppliers(items []domain.SelectedItem) []string {
	seen := make(map[string]bool, len(items))
	suppliers := make([]string, 0, len(items))
	for _, item := range items {
		name := item.SelectedProduct.Supplier
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		suppliers = append(suppliers, name)
	}
	return suppliers
}
