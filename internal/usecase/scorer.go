package usecase

import (
	"regexp"
	"strings"

	"github.com/elecmate/backend/internal/domain"
)

// Brand and stock signal values
const (
	preferredBrandScore = 1.0
	otherBrandScore     = 0.7
	inStockScore        = 1.0
	notInStockScore     = 0.5
	inStockStatus       = "in stock"
)

// brandPunctuationRegex splits brand phrases on anything but letters and digits
var brandPunctuationRegex = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// DefaultPreferredBrands are the trade brands treated as a quality signal
var DefaultPreferredBrands = []string{"MK", "Hager", "Schneider", "Wago", "Crabtree", "Legrand"}

// ScoringConfig holds the weights and thresholds used by the candidate scorer
type ScoringConfig struct {
	PreferredBrands     []string
	PriceEpsilon        float64
	QualityBrandWeight  float64
	QualityStockWeight  float64
	BalancedPriceWeight float64
	BalancedStockWeight float64
	BalancedBrandWeight float64
	EnableDebugLogging  bool
}

// DefaultScoringConfig returns the standard weights.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		PreferredBrands:     DefaultPreferredBrands,
		PriceEpsilon:        0.01,
		QualityBrandWeight:  0.6,
		QualityStockWeight:  0.4,
		BalancedPriceWeight: 0.35,
		BalancedStockWeight: 0.30,
		BalancedBrandWeight: 0.35,
	}
}

// scoreFunc scores one candidate whose price has already been parsed
type scoreFunc func(s *Scorer, c domain.CandidateProduct, price PriceParseResult) float64

// strategyScorers holds one pure scoring function per strategy
var strategyScorers = map[domain.Strategy]scoreFunc{
	domain.StrategyCheapest: func(s *Scorer, _ domain.CandidateProduct, price PriceParseResult) float64 {
		return s.priceScore(price)
	},
	domain.StrategyBestQuality: func(s *Scorer, c domain.CandidateProduct, _ PriceParseResult) float64 {
		return s.cfg.QualityBrandWeight*s.brandScore(c) + s.cfg.QualityStockWeight*stockScore(c)
	},
	domain.StrategyBalanced: func(s *Scorer, c domain.CandidateProduct, price PriceParseResult) float64 {
		return s.cfg.BalancedPriceWeight*s.priceScore(price) +
			s.cfg.BalancedStockWeight*stockScore(c) +
			s.cfg.BalancedBrandWeight*s.brandScore(c)
	},
}

// Scorer computes strategy specific scores for catalogue candidates.
// It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	cfg    ScoringConfig
	brands [][]string // preferred brands, tokenized
}

// NewScorer creates a scorer, filling unset values from DefaultScoringConfig
func NewScorer(config ScoringConfig) *Scorer {
	def := DefaultScoringConfig()

	if config.PreferredBrands == nil {
		config.PreferredBrands = def.PreferredBrands
	}
	if config.PriceEpsilon <= 0 {
		config.PriceEpsilon = def.PriceEpsilon
	}
	if config.QualityBrandWeight <= 0 && config.QualityStockWeight <= 0 {
		config.QualityBrandWeight = def.QualityBrandWeight
		config.QualityStockWeight = def.QualityStockWeight
	}
	if config.BalancedPriceWeight <= 0 && config.BalancedStockWeight <= 0 && config.BalancedBrandWeight <= 0 {
		config.BalancedPriceWeight = def.BalancedPriceWeight
		config.BalancedStockWeight = def.BalancedStockWeight
		config.BalancedBrandWeight = def.BalancedBrandWeight
	}

	brands := make([][]string, 0, len(config.PreferredBrands))
	for _, b := range config.PreferredBrands {
		if words := brandWords(b); len(words) > 0 {
			brands = append(brands, words)
		}
	}

	return &Scorer{cfg: config, brands: brands}
}

// Score returns the score of a candidate under a strategy. Higher is better; only
// the ordering between candidates of the same item and strategy is meaningful.
func (s *Scorer) Score(c domain.CandidateProduct, strategy domain.Strategy) float64 {
	return s.score(c, ParsePrice(c.Price), strategy)
}

func (s *Scorer) score(c domain.CandidateProduct, price PriceParseResult, strategy domain.Strategy) float64 {
	fn, ok := strategyScorers[strategy]
	if !ok {
		return 0
	}
	return fn(s, c, price)
}

// priceScore is 1/max(price, epsilon); an unreadable price scores 0, the worst value.
func (s *Scorer) priceScore(price PriceParseResult) float64 {
	if !price.OK {
		return 0
	}
	p := price.Float()
	if p < s.cfg.PriceEpsilon {
		p = s.cfg.PriceEpsilon
	}
	return 1 / p
}

// brandScore rewards candidates whose name, brand or supplier carries a preferred brand
func (s *Scorer) brandScore(c domain.CandidateProduct) float64 {
	for _, field := range []string{c.Name, c.Brand, c.Supplier} {
		words := brandWords(field)
		for _, brand := range s.brands {
			if containsWords(words, brand) {
				return preferredBrandScore
			}
		}
	}
	return otherBrandScore
}

func stockScore(c domain.CandidateProduct) float64 {
	if strings.EqualFold(strings.TrimSpace(c.StockStatus), inStockStatus) {
		return inStockScore
	}
	return notInStockScore
}

// brandWords lowercases and splits a string into alphanumeric words
func brandWords(s string) []string {
	return strings.Fields(brandPunctuationRegex.ReplaceAllString(strings.ToLower(s), " "))
}

// containsWords reports whether phrase appears as a contiguous run of whole words
func containsWords(words, phrase []string) bool {
	if len(phrase) == 0 || len(phrase) > len(words) {
		return false
	}
outer:
	for i := 0; i+len(phrase) <= len(words); i++ {
		for j, p := range phrase {
			if words[i+j] != p {
				continue outer
			}
		}
		return true
	}
	return false
}
