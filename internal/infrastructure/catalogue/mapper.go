package catalogue

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/elecmate/backend/internal/domain"
)

// searchResponse is the body returned by the catalogue search endpoint
type searchResponse struct {
	Products []catalogueProduct `json:"products"`
	Total    int                `json:"total"`
}

// catalogueProduct is one product as the search service reports it
type catalogueProduct struct {
	Name        string    `json:"name"`
	Supplier    string    `json:"supplier"`
	Price       wirePrice `json:"price"`
	StockStatus string    `json:"stock_status"`
	Brand       string    `json:"brand,omitempty"`
	SKU         string    `json:"sku,omitempty"`
	URL         string    `json:"url,omitempty"`
}

// wirePrice accepts a price sent either as a string ("£45.00") or as a bare number (45)
type wirePrice string

// UnmarshalJSON keeps the price text exactly as sent so it is parsed in one place
func (p *wirePrice) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = wirePrice(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = wirePrice(n.String())
	return nil
}

// mapProducts converts search service products to domain candidates, dropping unnamed entries
func mapProducts(products []catalogueProduct) []domain.CandidateProduct {
	candidates := make([]domain.CandidateProduct, 0, len(products))
	for _, p := range products {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		candidates = append(candidates, domain.CandidateProduct{
			Name:        name,
			Supplier:    strings.TrimSpace(p.Supplier),
			Price:       strings.TrimSpace(string(p.Price)),
			StockStatus: normalizeStockStatus(p.StockStatus),
			Brand:       strings.TrimSpace(p.Brand),
			SKU:         p.SKU,
			URL:         p.URL,
		})
	}
	return candidates
}

// normalizeStockStatus maps common supplier spellings onto canonical stock values
func normalizeStockStatus(status string) string {
	switch strings.ToLower(strings.Join(strings.Fields(strings.ReplaceAll(status, "_", " ")), " ")) {
	case "in stock", "instock", "available":
		return "In Stock"
	case "out of stock", "outofstock", "unavailable":
		return "Out of Stock"
	case "low stock", "limited stock":
		return "Low Stock"
	case "":
		return "Unknown"
	}
	return strings.TrimSpace(status)
}
