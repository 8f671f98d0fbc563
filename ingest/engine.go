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


package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/hkexingest/core"
	"github.com/poiesic/hkexingest/storage"
)

// Mode selects which stages of the pipeline a run executes.
type Mode string

const (
	// ModeFull scrapes metadata and fetches documents.
	ModeFull Mode = "full"
	// ModeMetadataOnly scrapes and upserts metadata; documents stay
	// pending for a later backfill.
	ModeMetadataOnly Mode = "metadataOnly"
	// ModeBackfillDocs fetches documents for filings whose document is
	// missing or previously failed. No scraping.
	ModeBackfillDocs Mode = "backfillDocs"
	// ModeLinkOnly runs the graph linker over the whole store.
	ModeLinkOnly Mode = "linkOnly"
)

// FilingSource yields filings one at a time. Next returns (nil, nil)
// when the source is exhausted.
type FilingSource interface {
	Next(ctx context.Context) (*core.Filing, error)
	Warnings() []string
}

// DocumentFetcher resolves one filing's document to a result.
type DocumentFetcher interface {
	Fetch(ctx context.Context, filingID, docURL string) (*core.DocumentResult, error)
}

// Linker derives graph edges. A nil ticker set means a full pass.
type Linker interface {
	Link(ctx context.Context, tickers map[string]struct{}) (*core.LinkSummary, error)
}

// SourceFactory builds a filing source for one run's date range.
type SourceFactory func(from, to time.Time, limit int) FilingSource

// Params configures a single run.
type Params struct {
	Mode        Mode
	From        time.Time
	To          time.Time
	Limit       int
	BatchSize   int
	Concurrency int
	DryRun      bool
}

// Engine drives the pipeline: scrape, upsert, fetch, link. Metadata is
// always persisted before its documents are fetched, so an interrupted
// run leaves complete metadata with pending documents rather than
// partial records.
type Engine struct {
	repo      storage.FilingRepository
	newSource SourceFactory
	fetcher   DocumentFetcher
	linker    Linker
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithSourceFactory sets the scrape source for full and metadata runs.
func WithSourceFactory(factory SourceFactory) Option {
	return func(e *Engine) error {
		e.newSource = factory
		return nil
	}
}

// WithFetcher sets the document fetcher.
func WithFetcher(fetcher DocumentFetcher) Option {
	return func(e *Engine) error {
		e.fetcher = fetcher
		return nil
	}
}

// WithLinker enables graph linking after full runs and in link-only
// runs. Without it, linking stages are skipped.
func WithLinker(linker Linker) Option {
	return func(e *Engine) error {
		e.linker = linker
		return nil
	}
}

// NewEngine creates an engine over a filing repository.
func NewEngine(repo storage.FilingRepository, opts ...Option) (*Engine, error) {
	e := &Engine{
		repo:   repo,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Run executes one pipeline run. The summary is returned even when the
// run ends early; the error then says why.
func (e *Engine) Run(ctx context.Context, params Params) (*core.RunSummary, error) {
	if params.BatchSize <= 0 {
		params.BatchSize = 50
	}
	if params.Concurrency <= 0 {
		params.Concurrency = 8
	}

	summary := &core.RunSummary{Reasons: make(map[string]int)}

	var err error
	switch params.Mode {
	case ModeFull, ModeMetadataOnly:
		err = e.runScrape(ctx, params, summary)
	case ModeBackfillDocs:
		err = e.runBackfill(ctx, params, summary)
	case ModeLinkOnly:
		err = e.runLink(ctx, nil, summary)
	default:
		return summary, fmt.Errorf("unknown mode %q", params.Mode)
	}
	return summary, err
}

// runScrape walks the source, upserting metadata batch by batch. In
// full mode each batch's documents are fetched right after its
// metadata lands, and a linking pass over the run's tickers follows.
func (e *Engine) runScrape(ctx context.Context, params Params, summary *core.RunSummary) error {
	if e.newSource == nil {
		return fmt.Errorf("no filing source configured")
	}

	source := e.newSource(params.From, params.To, params.Limit)
	runTickers := make(map[string]struct{})
	batch := make([]*core.Filing, 0, params.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := e.processBatch(ctx, batch, params, summary); err != nil {
			return err
		}
		batch = batch[:0]
		return ctx.Err()
	}

	for {
		f, err := source.Next(ctx)
		if err != nil {
			summary.Warnings = append(summary.Warnings, source.Warnings()...)
			return err
		}
		if f == nil {
			break
		}
		summary.Scraped++
		runTickers[f.CompanyTicker] = struct{}{}
		batch = append(batch, f)
		if len(batch) >= params.BatchSize {
			if err := flush(); err != nil {
				summary.Warnings = append(summary.Warnings, source.Warnings()...)
				return err
			}
		}
	}
	if err := flush(); err != nil {
		summary.Warnings = append(summary.Warnings, source.Warnings()...)
		return err
	}
	summary.Warnings = append(summary.Warnings, source.Warnings()...)

	e.logger.Info("scrape complete",
		"scraped", summary.Scraped,
		"upserted", summary.Upserted,
		"warnings", len(summary.Warnings))

	if params.Mode == ModeFull && !params.DryRun {
		return e.runLink(ctx, runTickers, summary)
	}
	return nil
}

// processBatch persists one batch's metadata and, in full mode,
// fetches its documents. A dry run still performs the fetches but
// suppresses every store write.
func (e *Engine) processBatch(ctx context.Context, batch []*core.Filing, params Params, summary *core.RunSummary) error {
	if params.DryRun {
		e.logger.Info("dry run: would upsert filings", "count", len(batch))
		summary.Upserted += len(batch)
	} else {
		written, err := e.repo.UpsertMetadata(ctx, batch...)
		if err != nil {
			return fmt.Errorf("upserting metadata: %w", err)
		}
		summary.Upserted += written
	}

	if params.Mode != ModeFull {
		return nil
	}
	return e.fetchBatch(ctx, batch, params.Concurrency, params.DryRun, summary)
}

// runBackfill snapshots the pending set once and works through it in
// batches. Every fetch writes a status, so a filing never reappears in
// the next run's snapshot unless it failed again.
func (e *Engine) runBackfill(ctx context.Context, params Params, summary *core.RunSummary) error {
	pending, err := e.repo.PendingDocuments(ctx, params.Limit)
	if err != nil {
		return fmt.Errorf("querying pending documents: %w", err)
	}
	e.logger.Info("backfill starting", "pending", len(pending), "batchSize", params.BatchSize)

	for start := 0; start < len(pending); start += params.BatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + params.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		if err := e.fetchBatch(ctx, pending[start:end], params.Concurrency, params.DryRun, summary); err != nil {
			return err
		}
		e.logger.Info("backfill progress", "done", end, "total", len(pending))
	}
	return nil
}

// fetchBatch downloads and stores one batch's documents with bounded
// parallelism. Individual failures are recorded on the filing and in
// the summary; they never abort the batch. With dryRun the documents
// are still fetched and tallied, but nothing is written.
func (e *Engine) fetchBatch(ctx context.Context, batch []*core.Filing, concurrency int, dryRun bool, summary *core.RunSummary) error {
	pool, err := ants.NewPool(concurrency)
	if err != nil {
		return err
	}
	defer pool.Release()

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, f := range batch {
		f := f
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()

			result, err := e.fetcher.Fetch(ctx, f.FilingID, f.DocumentURL)
			if err != nil {
				// Context cancellation; the batch loop notices via ctx.
				return
			}
			if !dryRun {
				if err := e.repo.SetDocument(ctx, f.FilingID, result); err != nil {
					e.logger.Error("storing document result failed",
						"filing", f.FilingID, "err", err)
					mu.Lock()
					summary.Failed++
					summary.Reasons["store_error"]++
					mu.Unlock()
					return
				}
			}

			mu.Lock()
			switch result.Status {
			case core.DocStatusProcessed:
				summary.Processed++
			case core.DocStatusSkipped:
				summary.Skipped++
				summary.Reasons[result.StatusReason]++
			case core.DocStatusFailed:
				summary.Failed++
				summary.Reasons[result.StatusReason]++
			}
			mu.Unlock()
		})
		if err != nil {
			wg.Done()
			return err
		}
	}
	wg.Wait()
	return ctx.Err()
}

// runLink executes the graph linking stage.
func (e *Engine) runLink(ctx context.Context, tickers map[string]struct{}, summary *core.RunSummary) error {
	if e.linker == nil {
		e.logger.Debug("graph linking disabled")
		return nil
	}
	link, err := e.linker.Link(ctx, tickers)
	if err != nil {
		return fmt.Errorf("linking: %w", err)
	}
	summary.Link = link
	return nil
}
