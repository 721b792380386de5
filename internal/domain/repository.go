package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// CatalogueSearcher finds candidate products for a text query.
// Implementations return an empty slice, not an error, when nothing matches.
type CatalogueSearcher interface {
	Search(ctx context.Context, query string, matchCount int) ([]CandidateProduct, error)
}

// ListParser turns free text (or OCR text from a photo) into structured items.
type ListParser interface {
	Parse(ctx context.Context, rawText string) (*ParseResult, error)
}
