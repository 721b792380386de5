package catalogue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/elecmate/backend/internal/domain"
)

// maxErrorBody limits how much of an error response is logged
const maxErrorBody = 512

// Config holds connection settings for the catalogue search service
type Config struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
}

// Client handles communication with the catalogue search service
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	maxRetries  int
	backoff     func(attempt int) time.Duration
	debug       bool
}

// NewClient creates a new catalogue search client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = 10
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), burst),
		maxRetries:  maxRetries,
		backoff:     exponentialBackoff,
	}
}

// SetDebug enables per-request logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// exponentialBackoff returns the wait before retry number attempt (1-based): 500ms, 1s, 2s, ...
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// Search finds candidate products for a query. A query with no matches returns an
// empty slice. Transient failures (network, 429, 5xx) are retried maxRetries times.
func (c *Client) Search(ctx context.Context, query string, matchCount int) ([]domain.CandidateProduct, error) {
	if matchCount <= 0 {
		matchCount = 10
	}

	params := url.Values{}
	params.Add("query", query)
	params.Add("match_count", strconv.Itoa(matchCount))
	reqURL := fmt.Sprintf("%s/v1/products/search?%s", c.baseURL, params.Encode())

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, c.backoff(attempt)); err != nil {
				return nil, err
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
		}

		products, retry, err := c.searchOnce(ctx, reqURL)
		if err == nil {
			if c.debug {
				log.Debug().Str("query", query).Int("products", len(products)).Msg("catalogue search")
			}
			return products, nil
		}

		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
		log.Warn().Err(err).Str("query", query).Int("attempt", attempt+1).Msg("catalogue search attempt failed")
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return nil, lastErr
}

// searchOnce performs one HTTP round trip. retry reports whether the failure is transient.
func (c *Client) searchOnce(ctx context.Context, reqURL string) (products []domain.CandidateProduct, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "ElecMate/1.0")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", domain.ErrCatalogueFailure, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return []domain.CandidateProduct{}, false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, true, fmt.Errorf("%w: status %d: %s", domain.ErrCatalogueFailure, resp.StatusCode, string(body))
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, false, fmt.Errorf("%w: status %d: %s", domain.ErrCatalogueFailure, resp.StatusCode, string(body))
	}

	var searchResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, false, fmt.Errorf("%w: failed to decode response: %v", domain.ErrCatalogueFailure, err)
	}

	return mapProducts(searchResp.Products), false, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
