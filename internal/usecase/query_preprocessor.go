package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/elecmate/backend/internal/domain"
)

// maxQueryLength keeps catalogue queries short enough for the search service
const maxQueryLength = 100

// QueryPreprocessor turns requested items into catalogue search queries
type QueryPreprocessor struct {
	enableDebugLogging bool
}

// Compiled regex patterns for query preprocessing
var (
	// Matches quantity phrases like "100m", "x 10", "20 units", "5 boxes", "qty 4"
	quantityPhrasePattern = regexp.MustCompile(`(?i)\b(?:x\s*\d+|qty\s*:?\s*\d+|\d+\s*(?:x|off|units?|pcs|pieces?|packs?|boxes?|rolls?|reels?|lengths?|drums?|coils?|m|metres?|meters?)\b)`)

	// Matches square millimetre notations like "2.5mm2", "2.5 mm sq", "2.5mm²"
	squareMillimetrePattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*mm\s*(?:2|²|sq(?:uared)?)\b|(\d+(?:\.\d+)?)\s*mm²`)

	// Leading list markers such as "-", "*", "1.", "2)"
	listMarkerPattern = regexp.MustCompile(`^\s*(?:[-*•]+|\d+[.)])\s*`)

	// Characters that the search service does not index
	querySpecialChars = regexp.MustCompile(`[#%+@!^*()=\[\]{}<>|\\~;` + "`" + `"]`)

	// Multiple spaces cleanup
	multiSpacePattern = regexp.MustCompile(`\s+`)

)

// queryNoiseWords are filler words buyers add to lists that do not narrow a search
var queryNoiseWords = map[string]bool{
	"please":  true,
	"need":    true,
	"needed":  true,
	"approx":  true,
	"approx.": true,
	"about":   true,
	"some":    true,
	"of":      true,
	"the":     true,
	"a":       true,
	"an":      true,
	"for":     true,
	"new":     true,
	"good":    true,
	"quality": true,
	"cheap":   true,
}

// NewQueryPreprocessor creates a new query preprocessor
func NewQueryPreprocessor(enableDebugLogging bool) *QueryPreprocessor {
	return &QueryPreprocessor{
		enableDebugLogging: enableDebugLogging,
	}
}

// BuildQuery cleans the product and specs of an item into one catalogue query
func (p *QueryPreprocessor) BuildQuery(item domain.RequestedItem) string {
	product := p.PreprocessQuery(item.Product)
	specs := normalizeSpecs(item.Specs)

	query := product
	if specs != "" && !strings.Contains(strings.ToLower(product), strings.ToLower(specs)) {
		query = strings.TrimSpace(product + " " + specs)
	}

	query = truncateAtWord(query, maxQueryLength)

	if p.enableDebugLogging {
		log.Debug().Str("product", item.Product).Str("specs", item.Specs).Str("query", query).Msg("built catalogue query")
	}

	return query
}

// PreprocessQuery removes list markers, quantity phrases and filler words from a product name
func (p *QueryPreprocessor) PreprocessQuery(productName string) string {
	if productName == "" {
		return ""
	}

	// Step 1: Drop list markers ("- ", "3) ")
	cleaned := listMarkerPattern.ReplaceAllString(productName, "")

	// Step 2: Normalise cable sizes so "2.5mm2" and "2.5 mm²" search alike
	cleaned = normalizeSpecs(cleaned)

	// Step 3: Remove quantity phrases that belong in the quantity field
	cleaned = quantityPhrasePattern.ReplaceAllString(cleaned, " ")

	// Step 4: Sanitize characters the search service rejects
	cleaned = strings.ReplaceAll(cleaned, "&", " and ")
	cleaned = querySpecialChars.ReplaceAllString(cleaned, " ")

	// Step 5: Remove noise words
	cleaned = p.removeNoiseWords(cleaned)

	// Step 6: Normalize whitespace
	cleaned = multiSpacePattern.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// removeNoiseWords removes filler terms from the query, keeping original casing
func (p *QueryPreprocessor) removeNoiseWords(s string) string {
	words := strings.Fields(s)
	kept := make([]string, 0, len(words))

	for _, word := range words {
		cleanWord := strings.Trim(strings.ToLower(word), ",.!?;:-'\"")
		if cleanWord == "" || queryNoiseWords[cleanWord] {
			continue
		}
		kept = append(kept, word)
	}

	return strings.Join(kept, " ")
}

// normalizeSpecs rewrites square millimetre sizes to the "2.5mm²" form and collapses whitespace
func normalizeSpecs(specs string) string {
	specs = squareMillimetrePattern.ReplaceAllStringFunc(specs, func(m string) string {
		sub := squareMillimetrePattern.FindStringSubmatch(m)
		size := sub[1]
		if size == "" {
			size = sub[2]
		}
		return size + "mm²"
	})
	specs = multiSpacePattern.ReplaceAllString(specs, " ")
	return strings.TrimSpace(specs)
}

// truncateAtWord limits s to max bytes, cutting at the last space when one is near the end.
// The cut never splits a multi-byte character.
func truncateAtWord(s string, max int) string {
	if len(s) <= max {
		return s
	}
	end := max
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	cut := s[:end]
	if lastSpace := strings.LastIndex(cut, " "); lastSpace > max/2 {
		cut = cut[:lastSpace]
	}
	return strings.TrimSpace(cut)
}

// normalizeForCacheKey normalizes a query for use as cache key component.
// Only case and whitespace are folded; every other character is kept so that
// distinct queries never share a key.
func normalizeForCacheKey(s string) string {
	if s == "" {
		return ""
	}
	result := strings.ToLower(s)
	result = multiSpacePattern.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}
