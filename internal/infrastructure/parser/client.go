package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/elecmate/backend/internal/domain"
)

// maxResponseBody caps how much of the parser response is read
const maxResponseBody = 1 << 20

// Config holds connection settings for the list extraction service
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client sends free-text materials lists to the extraction service
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
}

type parseRequest struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

type parseResponse struct {
	Items      []domain.RequestedItem `json:"items"`
	Confidence float64                `json:"confidence"`
}

// NewClient creates a new extraction service client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
	}
}

// Parse extracts structured items from rawText. Any transport error, non-200
// status or malformed body is reported as domain.ErrParseFailed; a well formed
// response without items is domain.ErrNoItems.
func (c *Client) Parse(ctx context.Context, rawText string) (*domain.ParseResult, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, domain.ErrNoItems
	}

	body, err := json.Marshal(parseRequest{Text: rawText, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParseFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/parse", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", domain.ErrParseFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrParseFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", domain.ErrParseFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrParseFailed, resp.StatusCode, truncate(string(raw), 256))
	}

	var parsed parseResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON output: %v", domain.ErrParseFailed, err)
	}

	items := make([]domain.RequestedItem, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		item.Product = strings.TrimSpace(item.Product)
		if item.Product == "" {
			continue
		}
		item.Specs = strings.TrimSpace(item.Specs)
		item.Quantity = strings.TrimSpace(item.Quantity)
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, domain.ErrNoItems
	}

	log.Debug().Int("items", len(items)).Float64("confidence", parsed.Confidence).Msg("materials list parsed")

	return &domain.ParseResult{Items: items, Confidence: parsed.Confidence}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
