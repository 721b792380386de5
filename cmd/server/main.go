package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/elecmate/backend/config"
	httpDelivery "github.com/elecmate/backend/internal/delivery/http"
	"github.com/elecmate/backend/internal/domain"
	"github.com/elecmate/backend/internal/infrastructure/cache"
	"github.com/elecmate/backend/internal/infrastructure/catalogue"
	"github.com/elecmate/backend/internal/infrastructure/parser"
	"github.com/elecmate/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogging(cfg)

	log.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("cache", cfg.Cache.Type).
		Msg("Starting ElecMate materials service v1.0.0")

	// Initialize infrastructure dependencies
	var candidateCache domain.CacheRepository
	var memoryCache *cache.MemoryCache
	if cfg.Cache.Type == "memory" {
		memoryCache = cache.NewMemoryCache(0)
		defer memoryCache.Close()
		candidateCache = memoryCache
		log.Info().Dur("ttl", cfg.Cache.TTL).Msg("Candidate cache enabled")
	}

	catalogueClient := catalogue.NewClient(catalogue.Config{
		APIKey:            cfg.Catalogue.APIKey,
		BaseURL:           cfg.Catalogue.BaseURL,
		Timeout:           cfg.Catalogue.Timeout,
		RequestsPerSecond: cfg.Catalogue.RequestsPerSecond,
		Burst:             cfg.Catalogue.Burst,
		MaxRetries:        cfg.Catalogue.MaxRetries,
	})
	if cfg.Server.Environment == "development" {
		catalogueClient.SetDebug(true)
	}
	log.Info().
		Str("base_url", cfg.Catalogue.BaseURL).
		Int("match_count", cfg.Catalogue.MatchCount).
		Int("max_retries", cfg.Catalogue.MaxRetries).
		Msg("Catalogue search configured")

	var listParser domain.ListParser
	if cfg.Parser.BaseURL != "" {
		listParser = parser.NewClient(parser.Config{
			APIKey:  cfg.Parser.APIKey,
			BaseURL: cfg.Parser.BaseURL,
			Model:   cfg.Parser.Model,
			Timeout: cfg.Parser.Timeout,
		})
		log.Info().Str("base_url", cfg.Parser.BaseURL).Msg("List extraction service configured")
	} else {
		listParser = parser.NewLineParser()
		log.Warn().Msg("No list extraction service configured, using line parser")
	}

	// Initialize usecase layer
	quoteService := usecase.NewQuoteService(
		listParser,
		catalogueClient,
		candidateCache,
		usecase.QuoteServiceConfig{
			CacheTTL:          cfg.Cache.TTL,
			MatchCount:        cfg.Catalogue.MatchCount,
			SearchConcurrency: cfg.Matching.SearchConcurrency,
			MaxAlternatives:   cfg.Matching.MaxAlternatives,
			EstimatedDelivery: cfg.Matching.EstimatedDelivery,
			Scoring: usecase.ScoringConfig{
				PreferredBrands:     cfg.Matching.PreferredBrands,
				PriceEpsilon:        cfg.Matching.PriceEpsilon,
				QualityBrandWeight:  cfg.Matching.QualityBrandWeight,
				QualityStockWeight:  cfg.Matching.QualityStockWeight,
				BalancedPriceWeight: cfg.Matching.BalancedPriceWeight,
				BalancedStockWeight: cfg.Matching.BalancedStockWeight,
				BalancedBrandWeight: cfg.Matching.BalancedBrandWeight,
			},
			EnableDebugLogging: cfg.Matching.EnableDebugLogging,
		},
	)

	log.Info().
		Strs("preferred_brands", cfg.Matching.PreferredBrands).
		Int("concurrency", cfg.Matching.SearchConcurrency).
		Bool("debug", cfg.Matching.EnableDebugLogging).
		Msg("Matching configured")

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(quoteService)
	if memoryCache != nil {
		handler.WithCacheStats(memoryCache)
	}

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info().Str("addr", addr).Msg("Server listening")

	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}

// setupLogging uses a console writer in development and JSON elsewhere
func setupLogging(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Matching.EnableDebugLogging {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if cfg.Server.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
