// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/hkexingest/config"
	"github.com/poiesic/hkexingest/core"
	"github.com/poiesic/hkexingest/fetch"
	"github.com/poiesic/hkexingest/graph"
	"github.com/poiesic/hkexingest/ingest"
	"github.com/poiesic/hkexingest/scrape"
	"github.com/poiesic/hkexingest/storage/badger"
)

const dateLayout = "02/01/2006"

func main() {
	rangeFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "from",
			Usage: "Start of the date range (DD/MM/YYYY)",
		},
		&cli.StringFlag{
			Name:  "to",
			Usage: "End of the date range (DD/MM/YYYY), defaults to today",
		},
		&cli.BoolFlag{
			Name:  "full-history",
			Usage: "Scrape from the earliest available filing date to today",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Stop after this many filings (0 = no limit)",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Report what would be written without writing anything",
		},
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "Filings per storage batch (overrides HKEX_BATCH_SIZE)",
		},
		&cli.IntFlag{
			Name:  "concurrency",
			Usage: "Parallel document downloads (overrides HKEX_MAX_DOWNLOAD_WORKERS)",
		},
	}

	app := &cli.App{
		Name:  "hkexingest",
		Usage: "Ingest HKEX regulatory filings into a local store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Scrape metadata, fetch documents, and link companies",
				Action: modeCommand(ingest.ModeFull),
				Flags:  rangeFlags,
			},
			{
				Name:   "metadata",
				Usage:  "Scrape and store filing metadata only",
				Action: modeCommand(ingest.ModeMetadataOnly),
				Flags:  rangeFlags,
			},
			{
				Name:   "backfill",
				Usage:  "Fetch documents for pending or previously failed filings",
				Action: modeCommand(ingest.ModeBackfillDocs),
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Process at most this many pending filings (0 = all)",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Report what would be fetched without fetching",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Filings per batch (overrides HKEX_BATCH_SIZE)",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Parallel document downloads (overrides HKEX_MAX_DOWNLOAD_WORKERS)",
					},
				},
			},
			{
				Name:   "link",
				Usage:  "Rebuild company-filing graph edges over the whole store",
				Action: modeCommand(ingest.ModeLinkOnly),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// modeCommand wires the pipeline for one mode and runs it.
func modeCommand(mode ingest.Mode) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		params := ingest.Params{
			Mode:        mode,
			Limit:       c.Int("limit"),
			BatchSize:   cfg.BatchSize,
			Concurrency: cfg.Concurrency,
			DryRun:      c.Bool("dry-run"),
		}
		if c.Int("batch-size") > 0 {
			params.BatchSize = c.Int("batch-size")
		}
		if c.Int("concurrency") > 0 {
			params.Concurrency = c.Int("concurrency")
		}

		if mode == ingest.ModeFull || mode == ingest.ModeMetadataOnly {
			params.From, params.To, err = dateRange(c)
			if err != nil {
				return err
			}
		}

		backend, err := badger.OpenBackend(cfg.DBPath, false)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer backend.Close()

		engine, err := buildEngine(cfg, backend)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		summary, runErr := engine.Run(ctx, params)
		printSummary(summary)
		return runErr
	}
}

// buildEngine assembles the engine from config: repositories, scrape
// source, document fetcher, and the linker when a company table is
// configured.
func buildEngine(cfg *config.Config, backend *badger.Backend) (*ingest.Engine, error) {
	repo := badger.NewFilingRepository(backend)

	client, err := scrape.NewClient(cfg.BaseURL, cfg.HTTPTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create exchange client: %w", err)
	}
	sourceFactory := func(from, to time.Time, limit int) ingest.FilingSource {
		return scrape.New(client, from, to,
			scrape.WithLimit(limit),
			scrape.WithRetry(cfg.MaxAttempts, cfg.RetryBaseDelay))
	}

	fetcher := fetch.NewFetcher(
		fetch.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		fetch.WithMaxDownloadSize(cfg.MaxDownloadSize),
		fetch.WithMaxTextLen(cfg.MaxTextLen),
		fetch.WithRetry(cfg.MaxAttempts, cfg.RetryBaseDelay))

	opts := []ingest.Option{
		ingest.WithSourceFactory(sourceFactory),
		ingest.WithFetcher(fetcher),
	}

	if cfg.LinkingEnabled() {
		edges := badger.NewEdgeRepository(backend)
		companies, err := badger.NewCompanyDirectory(backend, cfg.CompanyTable)
		if err != nil {
			return nil, fmt.Errorf("failed to open company directory: %w", err)
		}
		linker, err := graph.NewLinker(repo, edges, companies, cfg.CompanyIDPattern)
		if err != nil {
			return nil, fmt.Errorf("failed to create linker: %w", err)
		}
		opts = append(opts, ingest.WithLinker(linker))
	} else {
		slog.Info("no company table configured, graph linking disabled")
	}

	return ingest.NewEngine(repo, opts...)
}

// dateRange resolves --from/--to/--full-history into a concrete range.
func dateRange(c *cli.Context) (time.Time, time.Time, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	if c.Bool("full-history") {
		if c.String("from") != "" || c.String("to") != "" {
			return time.Time{}, time.Time{}, fmt.Errorf("--full-history cannot be combined with --from/--to")
		}
		return scrape.EarliestFilingDate, today, nil
	}

	fromStr := c.String("from")
	if fromStr == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("either --from or --full-history is required")
	}
	from, err := time.ParseInLocation(dateLayout, fromStr, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --from date %q: use DD/MM/YYYY", fromStr)
	}

	to := today
	if toStr := c.String("to"); toStr != "" {
		to, err = time.ParseInLocation(dateLayout, toStr, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to date %q: use DD/MM/YYYY", toStr)
		}
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to is before --from")
	}
	return from, to, nil
}

func printSummary(summary *core.RunSummary) {
	if summary == nil {
		return
	}
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return
	}
	fmt.Println(string(out))
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
