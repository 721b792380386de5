package catalogue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/elecmate/backend/internal/domain"
)

// minQueryCoverage is the share of query tokens a product must contain to match
const minQueryCoverage = 0.5

var tokenRegex = regexp.MustCompile(`[\p{L}\p{N}.²]+`)

// StaticCatalogue searches a fixed product list held in memory.
// It backs the offline CLI and tests.
type StaticCatalogue struct {
	products []domain.CandidateProduct
	tokens   [][]string
}

// NewStaticCatalogue creates a catalogue over the given products
func NewStaticCatalogue(products []domain.CandidateProduct) *StaticCatalogue {
	tokens := make([][]string, len(products))
	for i, p := range products {
		tokens[i] = tokenize(p.Name + " " + p.Brand + " " + p.Supplier)
	}
	return &StaticCatalogue{products: products, tokens: tokens}
}

// LoadStaticCatalogue reads a JSON fixture of the form {"products": [...]}
// using the same product shape as the search service.
func LoadStaticCatalogue(path string) (*StaticCatalogue, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalogue fixture: %w", err)
	}

	var fixture searchResponse
	if err := json.Unmarshal(raw, &fixture); err != nil {
		return nil, fmt.Errorf("failed to decode catalogue fixture %s: %w", path, err)
	}

	return NewStaticCatalogue(mapProducts(fixture.Products)), nil
}

// Search returns products containing at least half of the query tokens, best
// coverage first, limited to matchCount.
func (s *StaticCatalogue) Search(ctx context.Context, query string, matchCount int) ([]domain.CandidateProduct, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return []domain.CandidateProduct{}, nil
	}

	type hit struct {
		index    int
		coverage float64
	}
	var hits []hit
	for i, productTokens := range s.tokens {
		shared, distinct := countShared(queryTokens, productTokens)
		coverage := float64(shared) / float64(distinct)
		if coverage >= minQueryCoverage {
			hits = append(hits, hit{index: i, coverage: coverage})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].coverage > hits[j].coverage
	})

	if matchCount > 0 && len(hits) > matchCount {
		hits = hits[:matchCount]
	}

	results := make([]domain.CandidateProduct, 0, len(hits))
	for _, h := range hits {
		results = append(results, s.products[h.index])
	}
	return results, nil
}

// Len returns the number of products in the catalogue
func (s *StaticCatalogue) Len() int {
	return len(s.products)
}

// tokenize lowercases s and splits it into word tokens, normalising "mm2" to "mm²"
func tokenize(s string) []string {
	s = strings.ToLower(strings.ReplaceAll(s, "&", " and "))
	words := tokenRegex.FindAllString(s, -1)

	tokens := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Trim(w, ".")
		if strings.HasSuffix(w, "mm2") {
			w = strings.TrimSuffix(w, "2") + "²"
		}
		if w != "" {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// countShared returns how many distinct query tokens appear in the product tokens,
// and how many distinct query tokens there are
func countShared(query, product []string) (int, int) {
	set := make(map[string]bool, len(product))
	for _, t := range product {
		set[t] = true
	}

	seen := make(map[string]bool, len(query))
	shared := 0
	for _, t := range query {
		if set[t] && !seen[t] {
			shared++
		}
		seen[t] = true
	}
	return shared, len(seen)
}
