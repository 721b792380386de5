package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Catalogue CatalogueConfig
	Parser    ParserConfig
	Matching  MatchingConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CatalogueConfig holds catalogue search service configuration
type CatalogueConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	MatchCount        int           `mapstructure:"match_count"`
	MaxRetries        int           `mapstructure:"max_retries"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// ParserConfig holds list extraction service configuration.
// An empty BaseURL selects the built-in line parser.
type ParserConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MatchingConfig holds scoring weights and basket settings
type MatchingConfig struct {
	PreferredBrands     []string `mapstructure:"preferred_brands"`
	PriceEpsilon        float64  `mapstructure:"price_epsilon"`
	MaxAlternatives     int      `mapstructure:"max_alternatives"`
	EstimatedDelivery   string   `mapstructure:"estimated_delivery"`
	SearchConcurrency   int      `mapstructure:"search_concurrency"`
	QualityBrandWeight  float64  `mapstructure:"quality_brand_weight"`
	QualityStockWeight  float64  `mapstructure:"quality_stock_weight"`
	BalancedPriceWeight float64  `mapstructure:"balanced_price_weight"`
	BalancedStockWeight float64  `mapstructure:"balanced_stock_weight"`
	BalancedBrandWeight float64  `mapstructure:"balanced_brand_weight"`
	EnableDebugLogging  bool     `mapstructure:"debug"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type string        `mapstructure:"type"` // "memory" or "none"
	TTL  time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds inbound rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute, 0 disables
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/elecmate/")

	// Environment variable settings
	v.SetEnvPrefix("ELECMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Catalogue defaults
	v.SetDefault("catalogue.base_url", "")
	v.SetDefault("catalogue.api_key", "")
	v.SetDefault("catalogue.match_count", 10)
	v.SetDefault("catalogue.max_retries", 1)
	v.SetDefault("catalogue.timeout", "15s")
	v.SetDefault("catalogue.requests_per_second", 5.0)
	v.SetDefault("catalogue.burst", 10)

	// Parser defaults
	v.SetDefault("parser.base_url", "")
	v.SetDefault("parser.api_key", "")
	v.SetDefault("parser.model", "")
	v.SetDefault("parser.timeout", "60s")

	// Matching defaults
	v.SetDefault("matching.preferred_brands", []string{"MK", "Hager", "Schneider", "Wago", "Crabtree", "Legrand"})
	v.SetDefault("matching.price_epsilon", 0.01)
	v.SetDefault("matching.max_alternatives", 3)
	v.SetDefault("matching.estimated_delivery", "1-3 working days")
	v.SetDefault("matching.search_concurrency", 4)
	v.SetDefault("matching.quality_brand_weight", 0.6)
	v.SetDefault("matching.quality_stock_weight", 0.4)
	v.SetDefault("matching.balanced_price_weight", 0.35)
	v.SetDefault("matching.balanced_stock_weight", 0.30)
	v.SetDefault("matching.balanced_brand_weight", 0.35)
	v.SetDefault("matching.debug", false)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "15m")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Catalogue.BaseURL == "" {
		return fmt.Errorf("catalogue base URL is required (set ELECMATE_CATALOGUE_BASE_URL)")
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "none" {
		return fmt.Errorf("cache type must be 'memory' or 'none', got: %s", config.Cache.Type)
	}

	if config.Matching.MaxAlternatives < 1 || config.Matching.MaxAlternatives > 3 {
		return fmt.Errorf("matching max_alternatives must be between 1 and 3, got: %d", config.Matching.MaxAlternatives)
	}

	if config.Matching.SearchConcurrency < 1 {
		return fmt.Errorf("matching search_concurrency must be at least 1, got: %d", config.Matching.SearchConcurrency)
	}

	if config.Matching.PriceEpsilon <= 0 {
		return fmt.Errorf("matching price_epsilon must be positive, got: %v", config.Matching.PriceEpsilon)
	}

	if config.Catalogue.MaxRetries < 0 {
		return fmt.Errorf("catalogue max_retries must not be negative, got: %d", config.Catalogue.MaxRetries)
	}

	return nil
}
