package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elecmate/backend/internal/domain"
	"github.com/elecmate/backend/internal/infrastructure/catalogue"
	"github.com/elecmate/backend/internal/infrastructure/parser"
	"github.com/elecmate/backend/internal/usecase"
)

func newFixtureService(t *testing.T) *usecase.QuoteService {
	t.Helper()
	fixture, err := catalogue.LoadStaticCatalogue("testdata/catalogue.json")
	require.NoError(t, err)
	return usecase.NewQuoteService(parser.NewLineParser(), fixture, nil, usecase.QuoteServiceConfig{})
}

func TestDoPrice_List(t *testing.T) {
	svc := newFixtureService(t)

	resp, err := doPrice(context.Background(), svc, "testdata/list.txt", "", "all", nil, true)
	require.NoError(t, err)

	assert.Equal(t, 4, resp.Summary.TotalItemsRequested)
	assert.Equal(t, 3, resp.Summary.TotalItemsFound)
	assert.Equal(t, 1.0, resp.Summary.ParseConfidence)
	assert.Equal(t, []string{"Could not find: Fire rated downlights"}, resp.Warnings)

	assert.Equal(t, 3959.68, resp.Options.Cheapest.TotalCost)
	assert.Equal(t, []string{"Toolstation"}, resp.Options.Cheapest.Suppliers)

	assert.Equal(t, 4612.1, resp.Options.BestQuality.TotalCost)
	assert.Equal(t, []string{"CEF", "Screwfix"}, resp.Options.BestQuality.Suppliers)

	assert.Equal(t, 4612.1, resp.Options.Balanced.TotalCost)
	assert.Equal(t, 652.42, resp.Summary.Savings)
	assert.Equal(t, domain.StrategyBalanced, resp.Recommended)
}

func TestDoPrice_Items(t *testing.T) {
	svc := newFixtureService(t)

	items := []domain.RequestedItem{
		{Product: "MCB", Specs: "32A", Quantity: "6"},
	}
	raw, err := json.Marshal(items)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	budget := 30.0
	resp, err := doPrice(context.Background(), svc, "", path, "cheapest", &budget, false)
	require.NoError(t, err)

	assert.Equal(t, domain.StrategyCheapest, resp.Recommended)
	assert.Equal(t, 29.88, resp.Options.Cheapest.TotalCost)
	assert.True(t, resp.Options.Cheapest.WithinBudget)
	assert.False(t, resp.Options.BestQuality.WithinBudget)
	assert.Empty(t, resp.Options.Cheapest.Items[0].Alternatives)
}

func TestDoPrice_BadItemsFile(t *testing.T) {
	svc := newFixtureService(t)
	path := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := doPrice(context.Background(), svc, "", path, "all", nil, false)
	assert.Error(t, err)
}

func TestPriceCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "quote.json")

	err := newApp().Run([]string{
		"quote", "price",
		"--catalogue", "testdata/catalogue.json",
		"--list", "testdata/list.txt",
		"--preference", "best-quality",
		"--brand", "Hager",
		"--out", out,
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)

	var resp domain.QuoteResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, domain.StrategyBestQuality, resp.Recommended)
	require.Len(t, resp.Options.BestQuality.Items, 3)
	// With only Hager preferred the two sockets tie and Screwfix sorts first
	assert.Equal(t, "Screwfix", resp.Options.BestQuality.Items[2].SelectedProduct.Supplier)
	assert.Equal(t, "CEF", resp.Options.BestQuality.Items[1].SelectedProduct.Supplier)
}

func TestPriceCommand_RequiresOneInput(t *testing.T) {
	err := newApp().Run([]string{
		"quote", "price",
		"--catalogue", "testdata/catalogue.json",
		"--list", "testdata/list.txt",
		"--items", "testdata/list.txt",
	})
	assert.Error(t, err)
}
