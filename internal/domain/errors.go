package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrParseFailed is returned when the list parser fails or returns malformed output
	ErrParseFailed = errors.New("materials list could not be parsed")

	// ErrNoItems is returned when the list parser produced no items
	ErrNoItems = errors.New("no items found in materials list")

	// ErrNotFound is returned when the catalogue has no products for a query
	ErrNotFound = errors.New("no catalogue products found")

	// ErrCatalogueFailure is returned when a catalogue search request fails
	ErrCatalogueFailure = errors.New("catalogue search failed")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)
