package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/elecmate/backend/internal/domain"
)

// QuoteServiceConfig holds configuration for the quote service
type QuoteServiceConfig struct {
	CacheTTL           time.Duration
	MatchCount         int
	SearchConcurrency  int
	MaxAlternatives    int
	EstimatedDelivery  string
	Scoring            ScoringConfig
	EnableDebugLogging bool
}

// QuoteService turns a materials list into three priced baskets.
// Flow: parse -> search each item (bounded parallel, cached) -> compose options -> warnings
type QuoteService struct {
	parser       domain.ListParser
	catalogue    domain.CatalogueSearcher
	cache        domain.CacheRepository
	preprocessor *QueryPreprocessor
	composer     *OptionComposer
	cacheTTL     time.Duration
	matchCount   int
	concurrency  int
}

// NewQuoteService creates a new quote service with dependencies.
// parser may be nil when only pre-structured items are matched; cache may be nil.
func NewQuoteService(
	parser domain.ListParser,
	catalogue domain.CatalogueSearcher,
	cache domain.CacheRepository,
	config QuoteServiceConfig,
) *QuoteService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 15 * time.Minute
	}

	matchCount := config.MatchCount
	if matchCount <= 0 {
		matchCount = 10
	}

	concurrency := config.SearchConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	maxAlternatives := config.MaxAlternatives
	if maxAlternatives <= 0 {
		maxAlternatives = MaxAlternatives
	}

	scoring := config.Scoring
	scoring.EnableDebugLogging = scoring.EnableDebugLogging || config.EnableDebugLogging
	selector := NewStrategySelector(NewScorer(scoring), maxAlternatives)

	return &QuoteService{
		parser:       parser,
		catalogue:    catalogue,
		cache:        cache,
		preprocessor: NewQueryPreprocessor(config.EnableDebugLogging),
		composer:     NewOptionComposer(selector, config.EstimatedDelivery),
		cacheTTL:     cacheTTL,
		matchCount:   matchCount,
		concurrency:  concurrency,
	}
}

// Quote parses a free-text materials list and prices it. A parser failure or an
// empty parse is fatal and no partial response is returned.
func (s *QuoteService) Quote(ctx context.Context, request *domain.QuoteRequest) (*domain.QuoteResponse, error) {
	if request == nil || strings.TrimSpace(request.RawText) == "" {
		return nil, domain.ErrInvalidRequest
	}
	if _, err := domain.ParsePreference(request.Preference); err != nil {
		return nil, err
	}
	if s.parser == nil {
		return nil, fmt.Errorf("%w: no list parser configured", domain.ErrParseFailed)
	}

	parsed, err := s.parser.Parse(ctx, request.RawText)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Error().Err(err).Msg("materials list parse failed")
		if errors.Is(err, domain.ErrParseFailed) || errors.Is(err, domain.ErrNoItems) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrParseFailed, err)
	}
	if parsed == nil || len(parsed.Items) == 0 {
		return nil, domain.ErrNoItems
	}

	return s.Match(ctx, &domain.MatchRequest{
		Items:               parsed.Items,
		Preference:          request.Preference,
		MaxBudget:           request.MaxBudget,
		IncludeAlternatives: request.IncludeAlternatives,
		ParseConfidence:     parsed.Confidence,
	})
}

// Match prices an already structured list of items. Items whose search fails or
// comes back empty are reported as warnings; cancellation aborts the whole request.
func (s *QuoteService) Match(ctx context.Context, request *domain.MatchRequest) (*domain.QuoteResponse, error) {
	if request == nil || len(request.Items) == 0 {
		return nil, domain.ErrNoItems
	}
	for i, item := range request.Items {
		if strings.TrimSpace(item.Product) == "" {
			return nil, fmt.Errorf("%w: item %d has no product", domain.ErrInvalidRequest, i+1)
		}
	}
	if request.MaxBudget != nil && *request.MaxBudget < 0 {
		return nil, fmt.Errorf("%w: maxBudget must not be negative", domain.ErrInvalidRequest)
	}

	recommended, err := domain.ParsePreference(request.Preference)
	if err != nil {
		return nil, err
	}

	results, err := s.searchAll(ctx, request.Items)
	if err != nil {
		return nil, err
	}

	options := s.composer.Compose(results, ComposeOptions{
		IncludeAlternatives: request.IncludeAlternatives,
		MaxBudget:           request.MaxBudget,
	})

	return &domain.QuoteResponse{
		Success:     true,
		ParsedItems: request.Items,
		Options:     options,
		Recommended: recommended,
		Warnings:    CollectWarnings(results),
		Summary: domain.Summary{
			TotalItemsRequested: len(request.Items),
			TotalItemsFound:     CountFound(results),
			ParseConfidence:     request.ParseConfidence,
			Savings:             savings(options),
		},
	}, nil
}

// searchAll runs one catalogue search per item with bounded parallelism.
// Results keep input order regardless of completion order.
func (s *QuoteService) searchAll(ctx context.Context, items []domain.RequestedItem) ([]domain.ItemCandidates, error) {
	results := make([]domain.ItemCandidates, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			candidates, err := s.searchItem(gctx, item)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Warn().Err(err).Str("item", item.Product).Str("specs", item.Specs).Msg("catalogue search failed, item counted as not found")
			}
			results[i] = domain.ItemCandidates{Item: item, Candidates: candidates, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// searchItem searches the catalogue for one item, consulting the cache first
func (s *QuoteService) searchItem(ctx context.Context, item domain.RequestedItem) ([]domain.CandidateProduct, error) {
	query := s.preprocessor.BuildQuery(item)
	if query == "" {
		return nil, nil
	}

	cacheKey := s.generateCacheKey(query)
	if cached, err := s.getFromCache(ctx, cacheKey); err == nil {
		return cached, nil
	}

	candidates, err := s.catalogue.Search(ctx, query, s.matchCount)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if len(candidates) > 0 {
		if err := s.setInCache(ctx, cacheKey, candidates); err != nil {
			log.Warn().Err(err).Str("key", cacheKey).Msg("failed to cache catalogue results")
		}
	}

	return candidates, nil
}

// generateCacheKey creates a normalized cache key for a catalogue query.
// Format: "catalogue:{normalized_query}:{match_count}"
func (s *QuoteService) generateCacheKey(query string) string {
	return fmt.Sprintf("catalogue:%s:%d", normalizeForCacheKey(query), s.matchCount)
}

// getFromCache retrieves a candidate list stored as JSON
func (s *QuoteService) getFromCache(ctx context.Context, key string) ([]domain.CandidateProduct, error) {
	if s.cache == nil {
		return nil, domain.ErrCacheMiss
	}

	value, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	raw, ok := value.([]byte)
	if !ok {
		return nil, domain.ErrCacheMiss
	}

	var candidates []domain.CandidateProduct
	if err := json.Unmarshal(raw, &candidates); err != nil {
		return nil, domain.ErrCacheMiss
	}
	return candidates, nil
}

// setInCache stores a candidate list as JSON so cached entries cannot be mutated by callers
func (s *QuoteService) setInCache(ctx context.Context, key string, candidates []domain.CandidateProduct) error {
	if s.cache == nil {
		return nil
	}
	raw, err := json.Marshal(candidates)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, key, raw, s.cacheTTL)
}

// savings is the spread between the most and least expensive option totals
func savings(options domain.Options) float64 {
	lowest, highest := decimal.Zero, decimal.Zero
	for i, s := range domain.Strategies {
		total := basketTotal(options.Get(s).Items)
		if i == 0 || total.LessThan(lowest) {
			lowest = total
		}
		if i == 0 || total.GreaterThan(highest) {
			highest = total
		}
	}
	return highest.Sub(lowest).InexactFloat64()
}
