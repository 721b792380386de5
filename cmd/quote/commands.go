package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/elecmate/backend/internal/domain"
	"github.com/elecmate/backend/internal/infrastructure/catalogue"
	"github.com/elecmate/backend/internal/infrastructure/parser"
	"github.com/elecmate/backend/internal/usecase"
)

var priceCmd = &cli.Command{
	Name:    "price",
	Usage:   "Build cheapest, best-quality and balanced baskets for a list",
	Aliases: []string{"p"},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "catalogue",
			Required: true,
			Usage:    "specify the catalogue fixture (catalogue.json)",
		},
		&cli.StringFlag{
			Name:  "list",
			Usage: "specify a free-text materials list, one item per line",
		},
		&cli.StringFlag{
			Name:  "items",
			Usage: "specify a JSON array of structured items instead of --list",
		},
		&cli.StringFlag{
			Name:  "preference",
			Value: domain.PreferenceAll,
			Usage: "cheapest, best-quality, balanced or all",
		},
		&cli.Float64Flag{
			Name:  "budget",
			Usage: "maximum budget; 0 means no budget",
		},
		&cli.BoolFlag{
			Name:  "alternatives",
			Usage: "include up to three alternatives per item",
		},
		&cli.StringSliceFlag{
			Name:  "brand",
			Usage: "preferred brand (repeatable); defaults to the built-in list",
		},
		&cli.StringFlag{
			Name:  "out",
			Usage: "write the JSON response to a file instead of stdout",
		},
	},
	Action: func(ctx *cli.Context) error {
		var (
			listFile  = ctx.String("list")
			itemsFile = ctx.String("items")
		)
		if (listFile == "") == (itemsFile == "") {
			return errors.New("exactly one of --list or --items is required")
		}
		if ctx.Float64("budget") < 0 {
			return errors.New("invalid budget")
		}

		fixture, err := catalogue.LoadStaticCatalogue(ctx.String("catalogue"))
		if err != nil {
			return err
		}
		log.Info().Int("products", fixture.Len()).Msg("catalogue fixture loaded")

		scoring := usecase.ScoringConfig{}
		if brands := ctx.StringSlice("brand"); len(brands) > 0 {
			scoring.PreferredBrands = brands
		}

		svc := usecase.NewQuoteService(parser.NewLineParser(), fixture, nil, usecase.QuoteServiceConfig{
			Scoring:            scoring,
			EnableDebugLogging: ctx.Bool("debug"),
		})

		var budget *float64
		if b := ctx.Float64("budget"); b > 0 {
			budget = &b
		}

		response, err := doPrice(ctx.Context, svc, listFile, itemsFile, ctx.String("preference"), budget, ctx.Bool("alternatives"))
		if err != nil {
			return err
		}

		for _, w := range response.Warnings {
			log.Warn().Msg(w)
		}
		return writeJSON(ctx.String("out"), response)
	},
}

var parseCmd = &cli.Command{
	Name:  "parse",
	Usage: "Show how a free-text list is split into items",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "list",
			Required: true,
			Usage:    "specify a free-text materials list, one item per line",
		},
	},
	Action: func(ctx *cli.Context) error {
		raw, err := os.ReadFile(ctx.String("list"))
		if err != nil {
			return err
		}
		result, err := parser.NewLineParser().Parse(ctx.Context, string(raw))
		if err != nil {
			return err
		}
		return writeJSON("", result)
	},
}

func doPrice(
	ctx context.Context,
	svc *usecase.QuoteService,
	listFile, itemsFile, preference string,
	budget *float64,
	alternatives bool,
) (*domain.QuoteResponse, error) {
	if listFile != "" {
		raw, err := os.ReadFile(listFile)
		if err != nil {
			return nil, err
		}
		return svc.Quote(ctx, &domain.QuoteRequest{
			RawText:             string(raw),
			Preference:          preference,
			MaxBudget:           budget,
			IncludeAlternatives: alternatives,
		})
	}

	raw, err := os.ReadFile(itemsFile)
	if err != nil {
		return nil, err
	}
	var items []domain.RequestedItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode items %s: %w", itemsFile, err)
	}
	return svc.Match(ctx, &domain.MatchRequest{
		Items:               items,
		Preference:          preference,
		MaxBudget:           budget,
		IncludeAlternatives: alternatives,
		ParseConfidence:     1,
	})
}

func writeJSON(path string, v interface{}) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
