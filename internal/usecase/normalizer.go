package usecase

import (
	"regexp"

	"github.com/shopspring/decimal"
)

// nonNumericRegex matches everything that is not part of a plain decimal number
var nonNumericRegex = regexp.MustCompile(`[^0-9.]`)

var (
	// defaultQuantity is used when a requested quantity cannot be read
	defaultQuantity = decimal.NewFromInt(1)

	// maxAmount bounds prices and quantities; larger values are treated as unreadable
	// so totals stay finite when reported as float64.
	maxAmount = decimal.New(1, 12)
)

// PriceParseResult is the outcome of reading a currency formatted price.
// OK is false when the price could not be read; Value is zero in that case.
type PriceParseResult struct {
	Value decimal.Decimal
	OK    bool
}

// Float returns the parsed price, or 0 for a failed parse.
func (p PriceParseResult) Float() float64 {
	if !p.OK {
		return 0
	}
	return p.Value.InexactFloat64()
}

// ParsePrice reads a currency formatted price such as "£1,245.00".
// A zero price is reported as failed so it can never look like a bargain.
func ParsePrice(raw string) PriceParseResult {
	value, ok := parseAmount(raw)
	if !ok {
		return PriceParseResult{}
	}
	return PriceParseResult{Value: value, OK: true}
}

// ParseQuantity reads a free-text amount such as "100m" or "20 units".
// Unreadable, empty, zero or implausibly large amounts resolve to one unit.
func ParseQuantity(raw string) decimal.Decimal {
	value, ok := parseAmount(raw)
	if !ok {
		return defaultQuantity
	}
	return value
}

// parseAmount strips everything but digits and the decimal point and reads the
// rest as a positive number no larger than maxAmount.
func parseAmount(raw string) (decimal.Decimal, bool) {
	digits := nonNumericRegex.ReplaceAllString(raw, "")
	if digits == "" {
		return decimal.Zero, false
	}

	value, err := decimal.NewFromString(digits)
	if err != nil || !value.IsPositive() || value.GreaterThan(maxAmount) {
		return decimal.Zero, false
	}
	return value, true
}
