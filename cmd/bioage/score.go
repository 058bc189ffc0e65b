package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/bioage-mcp-server/internal/config"
	"github.com/bioage-mcp-server/internal/domain"
	"github.com/bioage-mcp-server/internal/history"
	"github.com/bioage-mcp-server/internal/logging"
	"github.com/bioage-mcp-server/internal/service"
)

func scoreCommand() *cli.Command {
	return &cli.Command{
		Name:  "score",
		Usage: "Score an assessment from a JSON file of observations",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "age",
				Usage: "chronological age in years; overrides chronological_age in the input",
			},
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "JSON file with bloodwork, lifestyle and vitals objects, or - for stdin",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "engine",
				Value: domain.EngineDeterministic,
				Usage: "scoring engine: deterministic, ai or ai_with_fallback",
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "fail on metrics outside the catalog",
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "record the result in the local history",
			},
		},
		Action: score,
	}
}

func catalogCommand() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Print the metric catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "category",
				Usage: "bloodwork, lifestyle or vitals",
			},
		},
		Action: printCatalog,
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List saved assessments, most recent first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "maximum number of assessments"},
			&cli.IntFlag{Name: "offset", Usage: "number of assessments to skip"},
		},
		Action: listHistory,
	}
}

func trendCommand() *cli.Command {
	return &cli.Command{
		Name:  "trend",
		Usage: "Summarize biological age over a range of saved assessments",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "range", Value: string(domain.TrendRange6M), Usage: "3m, 6m, 1y or all"},
		},
		Action: showTrend,
	}
}

// localEnv is the lite configuration adjusted by global flags.
func localEnv(cmd *cli.Command) *config.LiteConfig {
	cfg := config.LoadLiteConfig()
	if dir := cmd.String("data-dir"); dir != "" {
		cfg.DataDir = dir
	}
	if owner := cmd.String("owner"); owner != "" {
		cfg.OwnerID = owner
	}
	if cmd.IsSet("engine") {
		cfg.Engine = cmd.String("engine")
	}
	if cmd.Bool("strict") {
		cfg.StrictCatalog = true
	}
	return cfg
}

// newLocalService opens the local history and builds the assessment service.
// Unless record is set, calculations are not appended to the history.
func newLocalService(cmd *cli.Command, cfg *config.LiteConfig, record bool) (*service.AssessmentService, history.Store, error) {
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := history.NewSQLiteStore(cfg.HistoryDBPath())
	if err != nil {
		return nil, nil, err
	}

	logger := logging.NewLoggerWithOutput(cfg.LoggingConfig(), cmd.Root().ErrWriter)
	engine, err := service.BuildEngine(cfg.AssessmentConfig(), cfg.AIConfig(), nil, nil, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	var target history.Store = store
	if !record {
		target = discardStore{store}
	}
	return service.NewAssessmentService(engine, nil, target, cfg.AssessmentConfig(), logger), store, nil
}

// discardStore drops appends and reads through otherwise.
type discardStore struct{ history.Store }

func (discardStore) Append(context.Context, *domain.AssessmentResult) error { return nil }

func score(ctx context.Context, cmd *cli.Command) error {
	req, err := readRequest(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("age") {
		age := int(cmd.Int("age"))
		req.ChronologicalAge = &age
	}

	cfg := localEnv(cmd)
	req.OwnerID = cfg.OwnerID

	svc, store, err := newLocalService(cmd, cfg, cmd.Bool("save"))
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := svc.Calculate(ctx, req)
	if err != nil {
		return err
	}
	return writeJSON(cmd, result)
}

func readRequest(cmd *cli.Command) (service.CalculateRequest, error) {
	var req service.CalculateRequest

	var r io.Reader
	path := cmd.String("input")
	if path == "-" {
		r = cmd.Root().Reader
	} else {
		f, err := os.Open(path)
		if err != nil {
			return req, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return req, fmt.Errorf("failed to parse input: %w", err)
	}
	return req, nil
}

func printCatalog(_ context.Context, cmd *cli.Command) error {
	catalog := domain.DefaultCatalog()

	categories := domain.Categories
	if name := cmd.String("category"); name != "" {
		category := domain.Category(strings.ToLower(name))
		if !category.IsValid() {
			return fmt.Errorf("%w: %s", domain.ErrInvalidCategory, name)
		}
		categories = []domain.Category{category}
	}

	out := make(map[domain.Category][]domain.MetricDefinition, len(categories))
	for _, category := range categories {
		out[category] = catalog.Metrics(category)
	}
	return writeJSON(cmd, out)
}

func listHistory(ctx context.Context, cmd *cli.Command) error {
	cfg := localEnv(cmd)
	svc, store, err := newLocalService(cmd, cfg, true)
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := svc.History(ctx, cfg.OwnerID, int(cmd.Int("limit")), int(cmd.Int("offset")))
	if err != nil {
		return err
	}
	return writeJSON(cmd, results)
}

func showTrend(ctx context.Context, cmd *cli.Command) error {
	cfg := localEnv(cmd)
	_, store, err := newLocalService(cmd, cfg, true)
	if err != nil {
		return err
	}
	defer store.Close()

	rng := domain.TrendRange(strings.ToLower(cmd.String("range")))
	trend, err := service.NewTrendService(store).Trend(ctx, cfg.OwnerID, rng, time.Now().UTC())
	if err != nil {
		return err
	}
	return writeJSON(cmd, trend)
}

func writeJSON(cmd *cli.Command, v any) error {
	enc := json.NewEncoder(cmd.Root().Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
