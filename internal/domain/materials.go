package domain

// RequestedItem is one line of a buyer's materials list as produced by the list parser.
type RequestedItem struct {
	Product  string `json:"product" binding:"required"`
	Specs    string `json:"specs,omitempty"`
	Quantity string `json:"quantity,omitempty"`
	RawLine  string `json:"rawLine,omitempty"`
}

// CandidateProduct is a catalogue product returned by the search service for one item.
type CandidateProduct struct {
	Name        string `json:"name"`
	Supplier    string `json:"supplier"`
	Price       string `json:"price"`       // currency formatted, e.g. "£45.00"
	StockStatus string `json:"stockStatus"` // "In Stock", "Out of Stock", "Low Stock", ...
	Brand       string `json:"brand,omitempty"`
	SKU         string `json:"sku,omitempty"`
	URL         string `json:"url,omitempty"`
}

// SelectedItem is the product chosen for one requested item under one strategy.
type SelectedItem struct {
	RequestedItem   RequestedItem      `json:"requestedItem"`
	SelectedProduct CandidateProduct   `json:"selectedProduct"`
	Alternatives    []CandidateProduct `json:"alternatives"`
	UnitPrice       float64            `json:"unitPrice"`
	Quantity        float64            `json:"quantity"`
	Score           float64            `json:"score"`
}

// Option is one complete basket for a single strategy.
type Option struct {
	Name              Strategy       `json:"name"`
	TotalCost         float64        `json:"totalCost"`
	Items             []SelectedItem `json:"items"`
	Suppliers         []string       `json:"suppliers"`
	EstimatedDelivery string         `json:"estimatedDelivery"`
	WithinBudget      bool           `json:"withinBudget"`
	// UnpricedItems names selected products whose price could not be read; they
	// add nothing to TotalCost.
	UnpricedItems     []string       `json:"unpricedItems,omitempty"`
}

// Options groups the three baskets of a quote.
type Options struct {
	Cheapest    Option `json:"cheapest"`
	BestQuality Option `json:"bestQuality"`
	Balanced    Option `json:"balanced"`
}

// Get returns the option computed for the given strategy.
func (o Options) Get(s Strategy) Option {
	switch s {
	case StrategyCheapest:
		return o.Cheapest
	case StrategyBestQuality:
		return o.BestQuality
	default:
		return o.Balanced
	}
}

// Summary reports match coverage for a quote.
type Summary struct {
	TotalItemsRequested int     `json:"totalItemsRequested"`
	TotalItemsFound     int     `json:"totalItemsFound"`
	ParseConfidence     float64 `json:"parseConfidence"`
	Savings             float64 `json:"savings"` // most expensive option total minus cheapest
}

// QuoteResponse is the complete result of one pipeline run.
type QuoteResponse struct {
	Success     bool            `json:"success"`
	RequestID   string          `json:"requestId,omitempty"`
	ParsedItems []RequestedItem `json:"parsedItems"`
	Options     Options         `json:"options"`
	Recommended Strategy        `json:"recommended"`
	Warnings    []string        `json:"warnings"`
	Summary     Summary         `json:"summary"`
}

// QuoteRequest asks for a quote from a free-text materials list.
type QuoteRequest struct {
	RawText             string   `json:"rawText" binding:"required"`
	Preference          string   `json:"preference,omitempty"`
	MaxBudget           *float64 `json:"maxBudget,omitempty"`
	IncludeAlternatives bool     `json:"includeAlternatives"`
}

// MatchRequest asks for a quote from an already structured list of items.
type MatchRequest struct {
	Items               []RequestedItem `json:"items" binding:"required,dive"`
	Preference          string          `json:"preference,omitempty"`
	MaxBudget           *float64        `json:"maxBudget,omitempty"`
	IncludeAlternatives bool            `json:"includeAlternatives"`
	ParseConfidence     float64         `json:"parseConfidence,omitempty"`
}

// ParseResult is the output of the list parser collaborator.
type ParseResult struct {
	Items      []RequestedItem `json:"items"`
	Confidence float64         `json:"confidence"`
}

// ItemCandidates pairs a requested item with the candidates found for it.
// Err is set when the search failed; the item is then treated as not found.
type ItemCandidates struct {
	Item       RequestedItem
	Candidates []CandidateProduct
	Err        error
}
