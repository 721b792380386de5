package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elecmate/backend/internal/domain"
)

// mockParser returns a fixed parse result
type mockParser struct {
	result *domain.ParseResult
	err    error
	calls  int32
}

func (m *mockParser) Parse(_ context.Context, _ string) (*domain.ParseResult, error) {
	atomic.AddInt32(&m.calls, 1)
	return m.result, m.err
}

// mockCatalogue answers searches from a map keyed by query
type mockCatalogue struct {
	mu      sync.Mutex
	results map[string][]domain.CandidateProduct
	errs    map[string]error
	delays  map[string]time.Duration
	delay   time.Duration
	calls   map[string]int

	inFlight    int32
	maxInFlight int32
}

func newMockCatalogue() *mockCatalogue {
	return &mockCatalogue{
		results: map[string][]domain.CandidateProduct{},
		errs:    map[string]error{},
		delays:  map[string]time.Duration{},
		calls:   map[string]int{},
	}
}

func (m *mockCatalogue) Search(ctx context.Context, query string, _ int) ([]domain.CandidateProduct, error) {
	n := atomic.AddInt32(&m.inFlight, 1)
	defer atomic.AddInt32(&m.inFlight, -1)
	for {
		cur := atomic.LoadInt32(&m.maxInFlight)
		if n <= cur || atomic.CompareAndSwapInt32(&m.maxInFlight, cur, n) {
			break
		}
	}

	m.mu.Lock()
	m.calls[query]++
	delay, ok := m.delays[query]
	if !ok {
		delay = m.delay
	}
	results, err := m.results[query], m.errs[query]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	// Hand out a copy like a real client decoding a fresh response
	return append([]domain.CandidateProduct(nil), results...), nil
}

func (m *mockCatalogue) callCount(query string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[query]
}

func (m *mockCatalogue) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// mockCache is a map backed CacheRepository without expiry
type mockCache struct {
	mu   sync.Mutex
	data map[string]interface{}
}

func newMockCache() *mockCache {
	return &mockCache{data: map[string]interface{}{}}
}

func (m *mockCache) Get(_ context.Context, key string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return v, nil
}

func (m *mockCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mockCache) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

const (
	cableQuery     = "twin and earth cable 2.5mm²"
	mcbQuery       = "MCB 32A"
	downlightQuery = "fire rated downlight"
)

func exampleItems() []domain.RequestedItem {
	results := exampleResults()
	items := make([]domain.RequestedItem, len(results))
	for i, r := range results {
		items[i] = r.Item
	}
	return items
}

func exampleCatalogue() *mockCatalogue {
	m := newMockCatalogue()
	for _, r := range exampleResults() {
		m.results[NewQueryPreprocessor(false).BuildQuery(r.Item)] = r.Candidates
	}
	return m
}

func TestExampleQueries(t *testing.T) {
	p := NewQueryPreprocessor(false)
	items := exampleItems()
	assert.Equal(t, cableQuery, p.BuildQuery(items[0]))
	assert.Equal(t, mcbQuery, p.BuildQuery(items[1]))
	assert.Equal(t, downlightQuery, p.BuildQuery(items[2]))
}

func TestQuote_Success(t *testing.T) {
	parser := &mockParser{result: &domain.ParseResult{Items: exampleItems(), Confidence: 0.9}}
	catalogue := exampleCatalogue()
	service := NewQuoteService(parser, catalogue, nil, QuoteServiceConfig{})

	resp, err := service.Quote(context.Background(), &domain.QuoteRequest{
		RawText:             "100m 2.5mm T&E, 6 x 32A MCB, 12 fire rated downlights",
		IncludeAlternatives: true,
	})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Empty(t, resp.RequestID)
	assert.Equal(t, exampleItems(), resp.ParsedItems)
	assert.Equal(t, domain.StrategyBalanced, resp.Recommended)
	assert.Equal(t, []string{"Could not find: fire rated downlight"}, resp.Warnings)

	assert.Equal(t, 3, resp.Summary.TotalItemsRequested)
	assert.Equal(t, 2, resp.Summary.TotalItemsFound)
	assert.Equal(t, 0.9, resp.Summary.ParseConfidence)
	assert.Equal(t, 607.32, resp.Summary.Savings)

	assert.Equal(t, 3929.88, resp.Options.Cheapest.TotalCost)
	assert.Equal(t, 4537.2, resp.Options.BestQuality.TotalCost)
	assert.Equal(t, 4537.2, resp.Options.Balanced.TotalCost)
	assert.Equal(t, genericCable, resp.Options.Cheapest.Items[0].SelectedProduct)
	assert.Equal(t, hagerCable, resp.Options.BestQuality.Items[0].SelectedProduct)
	assert.Equal(t, hagerCable, resp.Options.Balanced.Items[0].SelectedProduct)

	// Each item is searched once, no matter how many strategies use it
	assert.Equal(t, 1, catalogue.callCount(cableQuery))
	assert.Equal(t, 1, catalogue.callCount(mcbQuery))
	assert.Equal(t, 1, catalogue.callCount(downlightQuery))
}

func TestQuote_Preference(t *testing.T) {
	parser := &mockParser{result: &domain.ParseResult{Items: exampleItems()}}
	service := NewQuoteService(parser, exampleCatalogue(), nil, QuoteServiceConfig{})

	tests := []struct {
		preference string
		want       domain.Strategy
	}{
		{"", domain.StrategyBalanced},
		{"all", domain.StrategyBalanced},
		{"cheapest", domain.StrategyCheapest},
		{"best-quality", domain.StrategyBestQuality},
		{"balanced", domain.StrategyBalanced},
	}

	for _, tt := range tests {
		t.Run(tt.preference, func(t *testing.T) {
			resp, err := service.Quote(context.Background(), &domain.QuoteRequest{RawText: "list", Preference: tt.preference})
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Recommended)
			// All three options are always computed
			assert.NotEmpty(t, resp.Options.Cheapest.Items)
			assert.NotEmpty(t, resp.Options.BestQuality.Items)
			assert.NotEmpty(t, resp.Options.Balanced.Items)
		})
	}
}

func TestQuote_InvalidRequest(t *testing.T) {
	parser := &mockParser{result: &domain.ParseResult{Items: exampleItems()}}
	service := NewQuoteService(parser, exampleCatalogue(), nil, QuoteServiceConfig{})

	tests := []struct {
		name    string
		request *domain.QuoteRequest
	}{
		{name: "nil request", request: nil},
		{name: "blank text", request: &domain.QuoteRequest{RawText: "   "}},
		{name: "unknown preference", request: &domain.QuoteRequest{RawText: "cable", Preference: "fastest"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := service.Quote(context.Background(), tt.request)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)
			assert.Nil(t, resp)
		})
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&parser.calls))
}

func TestQuote_ParserFailureIsFatal(t *testing.T) {
	tests := []struct {
		name    string
		parser  *mockParser
		wantErr error
	}{
		{name: "parser error", parser: &mockParser{err: errors.New("upstream 500")}, wantErr: domain.ErrParseFailed},
		{name: "malformed output", parser: &mockParser{err: fmt.Errorf("%w: bad json", domain.ErrParseFailed)}, wantErr: domain.ErrParseFailed},
		{name: "no items from parser", parser: &mockParser{err: domain.ErrNoItems}, wantErr: domain.ErrNoItems},
		{name: "empty result", parser: &mockParser{result: &domain.ParseResult{}}, wantErr: domain.ErrNoItems},
		{name: "nil result", parser: &mockParser{}, wantErr: domain.ErrNoItems},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalogue := exampleCatalogue()
			service := NewQuoteService(tt.parser, catalogue, nil, QuoteServiceConfig{})

			resp, err := service.Quote(context.Background(), &domain.QuoteRequest{RawText: "cable"})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, resp)
			assert.Equal(t, 0, catalogue.totalCalls())
		})
	}
}

func TestQuote_NoParserConfigured(t *testing.T) {
	service := NewQuoteService(nil, exampleCatalogue(), nil, QuoteServiceConfig{})

	_, err := service.Quote(context.Background(), &domain.QuoteRequest{RawText: "cable"})
	assert.ErrorIs(t, err, domain.ErrParseFailed)
}

func TestMatch_Validation(t *testing.T) {
	service := NewQuoteService(nil, exampleCatalogue(), nil, QuoteServiceConfig{})

	tests := []struct {
		name    string
		request *domain.MatchRequest
		wantErr error
	}{
		{name: "nil request", request: nil, wantErr: domain.ErrNoItems},
		{name: "no items", request: &domain.MatchRequest{}, wantErr: domain.ErrNoItems},
		{
			name:    "blank product",
			request: &domain.MatchRequest{Items: []domain.RequestedItem{{Product: " "}}},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name:    "negative budget",
			request: &domain.MatchRequest{Items: exampleItems(), MaxBudget: budget(-1)},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name:    "unknown preference",
			request: &domain.MatchRequest{Items: exampleItems(), Preference: "luxury"},
			wantErr: domain.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := service.Match(context.Background(), tt.request)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, resp)
		})
	}
}

func TestMatch_SearchFailureBecomesWarning(t *testing.T) {
	catalogue := exampleCatalogue()
	catalogue.errs[mcbQuery] = fmt.Errorf("%w: status 503", domain.ErrCatalogueFailure)
	catalogue.errs[downlightQuery] = domain.ErrNotFound
	service := NewQuoteService(nil, catalogue, nil, QuoteServiceConfig{})

	resp, err := service.Match(context.Background(), &domain.MatchRequest{Items: exampleItems()})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Could not find: MCB 32A",
		"Could not find: fire rated downlight",
	}, resp.Warnings)
	assert.Equal(t, 1, resp.Summary.TotalItemsFound)
	require.Len(t, resp.Options.Cheapest.Items, 1)
	assert.Equal(t, 3900.0, resp.Options.Cheapest.TotalCost)
}

func TestMatch_BudgetFlags(t *testing.T) {
	service := NewQuoteService(nil, exampleCatalogue(), nil, QuoteServiceConfig{})

	resp, err := service.Match(context.Background(), &domain.MatchRequest{Items: exampleItems(), MaxBudget: budget(4000)})
	require.NoError(t, err)

	assert.True(t, resp.Options.Cheapest.WithinBudget)
	assert.False(t, resp.Options.BestQuality.WithinBudget)
	assert.False(t, resp.Options.Balanced.WithinBudget)
}

func TestMatch_PreservesInputOrder(t *testing.T) {
	catalogue := exampleCatalogue()
	catalogue.delays[cableQuery] = 60 * time.Millisecond
	catalogue.delays[mcbQuery] = 5 * time.Millisecond
	service := NewQuoteService(nil, catalogue, nil, QuoteServiceConfig{SearchConcurrency: 3})

	resp, err := service.Match(context.Background(), &domain.MatchRequest{Items: exampleItems()})
	require.NoError(t, err)

	for _, s := range domain.Strategies {
		items := resp.Options.Get(s).Items
		require.Len(t, items, 2)
		assert.Equal(t, "twin and earth cable", items[0].RequestedItem.Product)
		assert.Equal(t, "MCB", items[1].RequestedItem.Product)
	}
}

func TestMatch_BoundedConcurrency(t *testing.T) {
	catalogue := newMockCatalogue()
	catalogue.delay = 15 * time.Millisecond

	items := make([]domain.RequestedItem, 8)
	for i := range items {
		items[i] = domain.RequestedItem{Product: fmt.Sprintf("back box %d", i+1)}
	}

	service := NewQuoteService(nil, catalogue, nil, QuoteServiceConfig{SearchConcurrency: 2})

	resp, err := service.Match(context.Background(), &domain.MatchRequest{Items: items})
	require.NoError(t, err)

	assert.Len(t, resp.Warnings, 8)
	assert.Equal(t, 8, catalogue.totalCalls())
	assert.LessOrEqual(t, atomic.LoadInt32(&catalogue.maxInFlight), int32(2))
}

func TestMatch_Cancellation(t *testing.T) {
	catalogue := exampleCatalogue()
	catalogue.delay = time.Second
	service := NewQuoteService(nil, catalogue, nil, QuoteServiceConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	resp, err := service.Match(ctx, &domain.MatchRequest{Items: exampleItems()})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, resp)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestMatch_DeadlineExceeded(t *testing.T) {
	catalogue := exampleCatalogue()
	catalogue.delay = time.Second
	service := NewQuoteService(nil, catalogue, nil, QuoteServiceConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	resp, err := service.Match(ctx, &domain.MatchRequest{Items: exampleItems()})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, resp)
}

func TestMatch_UsesCache(t *testing.T) {
	catalogue := exampleCatalogue()
	cache := newMockCache()
	service := NewQuoteService(nil, catalogue, cache, QuoteServiceConfig{})
	request := &domain.MatchRequest{Items: exampleItems()}

	first, err := service.Match(context.Background(), request)
	require.NoError(t, err)
	second, err := service.Match(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, catalogue.callCount(cableQuery))
	assert.Equal(t, 1, catalogue.callCount(mcbQuery))
	// Empty results are not cached
	assert.Equal(t, 2, catalogue.callCount(downlightQuery))

	exists, err := cache.Exists(context.Background(), "catalogue:twin and earth cable 2.5mm²:10")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMatch_CacheKeepsNonASCIIQueriesApart(t *testing.T) {
	catalogue := newMockCatalogue()
	catalogue.results["20 gland"] = []domain.CandidateProduct{
		{Name: "Box 20", Supplier: "CEF", Price: "£1.20", StockStatus: "In Stock"},
	}
	catalogue.results["Ø20 gland"] = []domain.CandidateProduct{
		{Name: "Ø20 gland", Supplier: "Toolstation", Price: "£0.80", StockStatus: "In Stock"},
	}
	catalogue.results["кабель"] = []domain.CandidateProduct{
		{Name: "Кабель ВВГ", Supplier: "CEF", Price: "£2.00", StockStatus: "In Stock"},
	}
	catalogue.results["провод"] = []domain.CandidateProduct{
		{Name: "Провод ПВ", Supplier: "Screwfix", Price: "£3.00", StockStatus: "In Stock"},
	}
	cache := newMockCache()
	service := NewQuoteService(nil, catalogue, cache, QuoteServiceConfig{})

	match := func(product string) string {
		resp, err := service.Match(context.Background(), &domain.MatchRequest{
			Items: []domain.RequestedItem{{Product: product}},
		})
		require.NoError(t, err)
		require.Len(t, resp.Options.Cheapest.Items, 1)
		return resp.Options.Cheapest.Items[0].SelectedProduct.Name
	}

	assert.Equal(t, "Box 20", match("20 gland"))
	assert.Equal(t, "Ø20 gland", match("Ø20 gland"))
	assert.Equal(t, "Кабель ВВГ", match("кабель"))
	assert.Equal(t, "Провод ПВ", match("провод"))

	// Repeats are served from the cache
	assert.Equal(t, "Ø20 gland", match("Ø20 gland"))
	assert.Equal(t, 1, catalogue.callCount("Ø20 gland"))
	assert.Equal(t, 4, catalogue.totalCalls())
}

func TestMatch_IgnoresUnreadableCacheEntries(t *testing.T) {
	catalogue := exampleCatalogue()
	cache := newMockCache()
	service := NewQuoteService(nil, catalogue, cache, QuoteServiceConfig{})

	require.NoError(t, cache.Set(context.Background(), "catalogue:twin and earth cable 2.5mm²:10", "not json bytes", time.Minute))

	resp, err := service.Match(context.Background(), &domain.MatchRequest{Items: exampleItems()})
	require.NoError(t, err)
	assert.Equal(t, 1, catalogue.callCount(cableQuery))
	assert.Equal(t, hagerCable, resp.Options.Balanced.Items[0].SelectedProduct)
}

func TestMatch_Deterministic(t *testing.T) {
	catalogue := exampleCatalogue()
	catalogue.delays[cableQuery] = 10 * time.Millisecond
	service := NewQuoteService(nil, catalogue, nil, QuoteServiceConfig{})
	request := &domain.MatchRequest{Items: exampleItems(), IncludeAlternatives: true, MaxBudget: budget(5000)}

	first, err := service.Match(context.Background(), request)
	require.NoError(t, err)
	want, err := json.Marshal(first)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		resp, err := service.Match(context.Background(), request)
		require.NoError(t, err)
		got, err := json.Marshal(resp)
		require.NoError(t, err)
		assert.JSONEq(t, string(want), string(got))
	}
}

func TestMatch_MaxAlternativesConfig(t *testing.T) {
	service := NewQuoteService(nil, exampleCatalogue(), nil, QuoteServiceConfig{MaxAlternatives: 1})

	resp, err := service.Match(context.Background(), &domain.MatchRequest{Items: exampleItems(), IncludeAlternatives: true})
	require.NoError(t, err)
	assert.Len(t, resp.Options.Balanced.Items[0].Alternatives, 1)
}

func TestSavings(t *testing.T) {
	basket := func(price string) domain.Option {
		return domain.Option{Items: []domain.SelectedItem{selectedItem("Cable", "A", price, 1)}}
	}
	options := domain.Options{
		Cheapest:    basket("£10.10"),
		BestQuality: basket("£30.30"),
		Balanced:    basket("£20.20"),
	}
	assert.Equal(t, 20.2, savings(options))
	assert.Equal(t, 0.0, savings(domain.Options{}))
}

func TestMatch_OversizedAmounts(t *testing.T) {
	huge := strings.Repeat("9", 400)
	catalogue := newMockCatalogue()
	catalogue.results["MCB 32A"] = []domain.CandidateProduct{
		{Name: "32A Type B MCB", Supplier: "Toolstation", Price: "£4.98", StockStatus: "In Stock"},
		{Name: "Hager 32A Type B MCB", Supplier: "CEF", Price: "£" + huge, StockStatus: "In Stock", Brand: "Hager"},
	}
	service := NewQuoteService(nil, catalogue, nil, QuoteServiceConfig{})

	tests := []struct {
		name         string
		quantity     string
		wantCheapest float64
	}{
		{name: "readable quantity", quantity: "6", wantCheapest: 29.88},
		{name: "400 digit quantity", quantity: huge, wantCheapest: 4.98},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp *domain.QuoteResponse
			require.NotPanics(t, func() {
				var err error
				resp, err = service.Match(context.Background(), &domain.MatchRequest{
					Items: []domain.RequestedItem{{Product: "MCB", Specs: "32A", Quantity: tt.quantity}},
				})
				require.NoError(t, err)
			})

			assert.Equal(t, tt.wantCheapest, resp.Options.Cheapest.TotalCost)
			assert.Equal(t, "Toolstation", resp.Options.Cheapest.Items[0].SelectedProduct.Supplier)
			// The oversized price cannot be read, so the branded MCB adds nothing
			assert.Equal(t, "CEF", resp.Options.BestQuality.Items[0].SelectedProduct.Supplier)
			assert.Equal(t, 0.0, resp.Options.BestQuality.TotalCost)
			assert.Equal(t, []string{"Hager 32A Type B MCB (CEF)"}, resp.Options.BestQuality.UnpricedItems)
			assert.Nil(t, resp.Options.Cheapest.UnpricedItems)
			assert.Empty(t, resp.Warnings)
			assert.Equal(t, tt.wantCheapest, resp.Summary.Savings)

			_, err := json.Marshal(resp)
			assert.NoError(t, err)
		})
	}
}
