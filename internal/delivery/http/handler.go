package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/elecmate/backend/internal/domain"
	"github.com/elecmate/backend/internal/infrastructure/cache"
)

// statusClientClosedRequest is reported when the caller goes away mid-request
const statusClientClosedRequest = 499

// QuoteUsecase is the quote pipeline as seen by the HTTP layer
type QuoteUsecase interface {
	Quote(ctx context.Context, request *domain.QuoteRequest) (*domain.QuoteResponse, error)
	Match(ctx context.Context, request *domain.MatchRequest) (*domain.QuoteResponse, error)
}

// CacheStatsProvider reports candidate cache counters for the health check
type CacheStatsProvider interface {
	Stats() cache.Stats
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	quotes     QuoteUsecase
	cacheStats CacheStatsProvider
}

// NewHandler creates a new HTTP handler
func NewHandler(quotes QuoteUsecase) *Handler {
	return &Handler{quotes: quotes}
}

// WithCacheStats adds the candidate cache counters to the health check response
func (h *Handler) WithCacheStats(stats CacheStatsProvider) *Handler {
	h.cacheStats = stats
	return h
}

// errorResponse is the body returned for every failed request
type errorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	body := gin.H{
		"status":  "healthy",
		"service": "elecmate-materials",
		"version": "1.0.0",
	}
	if h.cacheStats != nil {
		body["cache"] = h.cacheStats.Stats()
	}
	c.JSON(http.StatusOK, body)
}

// CreateQuote parses a free-text materials list and returns three priced options
func (h *Handler) CreateQuote(c *gin.Context) {
	if h.quotes == nil {
		h.writeError(c, http.StatusServiceUnavailable, errors.New("quote service not configured"))
		return
	}

	var request domain.QuoteRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.writeError(c, http.StatusBadRequest, err)
		return
	}

	response, err := h.quotes.Quote(c.Request.Context(), &request)
	if err != nil {
		h.writeError(c, statusForError(err), err)
		return
	}

	h.writeQuote(c, response)
}

// MatchItems prices a list of already structured items
func (h *Handler) MatchItems(c *gin.Context) {
	if h.quotes == nil {
		h.writeError(c, http.StatusServiceUnavailable, errors.New("quote service not configured"))
		return
	}

	var request domain.MatchRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.writeError(c, http.StatusBadRequest, err)
		return
	}

	response, err := h.quotes.Match(c.Request.Context(), &request)
	if err != nil {
		h.writeError(c, statusForError(err), err)
		return
	}

	h.writeQuote(c, response)
}

func (h *Handler) writeQuote(c *gin.Context, response *domain.QuoteResponse) {
	response.RequestID = requestID(c)

	log.Info().
		Str("request_id", response.RequestID).
		Int("requested", response.Summary.TotalItemsRequested).
		Int("found", response.Summary.TotalItemsFound).
		Int("warnings", len(response.Warnings)).
		Msg("quote completed")

	c.JSON(http.StatusOK, response)
}

func (h *Handler) writeError(c *gin.Context, status int, err error) {
	id := requestID(c)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("request_id", id).Int("status", status).Msg("quote request failed")
	} else {
		log.Warn().Err(err).Str("request_id", id).Int("status", status).Msg("quote request rejected")
	}

	c.JSON(status, errorResponse{
		Success:   false,
		Error:     err.Error(),
		RequestID: id,
	})
}

// statusForError maps pipeline errors onto HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrParseFailed), errors.Is(err, domain.ErrNoItems):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}
