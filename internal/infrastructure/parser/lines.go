package parser

import (
	"context"
	"regexp"
	"strings"

	"github.com/elecmate/backend/internal/domain"
)

var (
	lineMarkerPattern = regexp.MustCompile(`^\s*(?:[-*•]+|\d+[.)])\s+`)

	// "100m of", "20 x", "5 rolls", "x10" at the start or end of a line
	leadingQuantityPattern  = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?\s*(?:m|metres?|meters?|units?|pcs|pieces?|rolls?|boxes?|packs?|reels?|lengths?|no\.?|off)?)\b\s*(?:x\s+|of\s+)?`)
	trailingQuantityPattern = regexp.MustCompile(`(?i)\s*(?:\bx\s*(\d+(?:\.\d+)?)|[-,]\s*(\d+(?:\.\d+)?\s*(?:m|metres?|units?|pcs|rolls?|boxes?|packs?|off)?))\s*$`)

	// Ratings and sizes that describe the product, e.g. "2.5mm²", "32A", "2 gang", "10-way"
	specPattern = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*mm²|\b\d+(?:\.\d+)?[\s-]*(?:mm2|mm|amps?|a|kw|w|v|ma|way|gang|core)\b`)
)

// LineParser is a local, rule based list parser: one item per non-empty line.
// It is used when no extraction service is configured.
type LineParser struct{}

// NewLineParser creates a line based parser
func NewLineParser() *LineParser {
	return &LineParser{}
}

// Parse splits rawText into lines and reads a quantity, specs and product from each.
// Confidence is the share of lines with an explicit quantity, scaled into [0.5, 1].
func (p *LineParser) Parse(ctx context.Context, rawText string) (*domain.ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var items []domain.RequestedItem
	withQuantity := 0
	for _, line := range strings.Split(rawText, "\n") {
		item, hasQuantity, ok := parseLine(line)
		if !ok {
			continue
		}
		if hasQuantity {
			withQuantity++
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, domain.ErrNoItems
	}

	confidence := 0.5 + 0.5*float64(withQuantity)/float64(len(items))
	return &domain.ParseResult{Items: items, Confidence: confidence}, nil
}

func parseLine(line string) (domain.RequestedItem, bool, bool) {
	raw := strings.TrimSpace(line)
	text := lineMarkerPattern.ReplaceAllString(raw, "")
	if text == "" {
		return domain.RequestedItem{}, false, false
	}

	quantity := ""
	if m := leadingQuantityPattern.FindStringSubmatch(text); m != nil && !startsWithSpec(text) {
		quantity = strings.TrimSpace(m[1])
		text = text[len(m[0]):]
	} else if m := trailingQuantityPattern.FindStringSubmatchIndex(text); m != nil {
		sub := trailingQuantityPattern.FindStringSubmatch(text)
		quantity = strings.TrimSpace(sub[1] + sub[2])
		text = text[:m[0]]
	}

	specs := specPattern.FindAllString(text, -1)
	product := specPattern.ReplaceAllString(text, " ")
	product = strings.Join(strings.Fields(strings.Trim(product, " ,-*•")), " ")
	if product == "" {
		product = strings.Join(specs, " ")
		specs = nil
	}
	if product == "" {
		return domain.RequestedItem{}, false, false
	}

	return domain.RequestedItem{
		Product:  product,
		Specs:    strings.Join(specs, " "),
		Quantity: quantity,
		RawLine:  raw,
	}, quantity != "", true
}

// startsWithSpec reports whether text opens with a rating or size rather than a quantity
func startsWithSpec(text string) bool {
	loc := specPattern.FindStringIndex(text)
	return loc != nil && loc[0] == 0
}
