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


package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/hkexingest/backoff"
	"github.com/poiesic/hkexingest/core"
)

// Scraper walks a date range window by window (newest first) and emits
// deduplicated filings. A window that keeps failing after retries is
// recorded as a warning and skipped; the scrape continues with the
// next window so one bad month never aborts a long backfill.
type Scraper struct {
	client      *Client
	windows     []Window
	limit       int
	maxAttempts int
	baseDelay   time.Duration

	windowIdx int
	emitted   int
	seen      map[string]struct{}
	queue     []*core.Filing
	warnings  []string
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithLimit caps the number of filings emitted (0 = unlimited).
func WithLimit(n int) Option {
	return func(s *Scraper) { s.limit = n }
}

// WithRetry sets the per-window retry policy.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(s *Scraper) {
		s.maxAttempts = maxAttempts
		s.baseDelay = baseDelay
	}
}

// New creates a scraper over [from, to].
func New(client *Client, from, to time.Time, opts ...Option) *Scraper {
	s := &Scraper{
		client:      client,
		windows:     MonthlyWindows(from, to),
		maxAttempts: 4,
		baseDelay:   time.Second,
		seen:        make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next returns the next filing, or (nil, nil) when the range is
// exhausted or the limit is reached. Duplicate filing IDs across
// overlapping windows are emitted once.
func (s *Scraper) Next(ctx context.Context) (*core.Filing, error) {
	for {
		if s.limit > 0 && s.emitted >= s.limit {
			return nil, nil
		}
		if len(s.queue) > 0 {
			f := s.queue[0]
			s.queue = s.queue[1:]
			s.emitted++
			return f, nil
		}
		if s.windowIdx >= len(s.windows) {
			return nil, nil
		}

		window := s.windows[s.windowIdx]
		s.windowIdx++

		remaining := 0
		if s.limit > 0 {
			remaining = s.limit - s.emitted
		}

		var records []Record
		err := backoff.Retry(ctx, func() error {
			var err error
			records, err = s.client.FetchWindow(ctx, window, remaining)
			return err
		}, s.maxAttempts, s.baseDelay)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			warning := fmt.Sprintf("window %s to %s failed: %v",
				window.From.Format("2006-01-02"), window.To.Format("2006-01-02"), err)
			s.warnings = append(s.warnings, warning)
			slog.Warn("skipping window after retries",
				"from", window.From.Format("2006-01-02"),
				"to", window.To.Format("2006-01-02"),
				"error", err)
			continue
		}

		for _, r := range records {
			f := BuildFiling(r)
			if _, dup := s.seen[f.FilingID]; dup {
				continue
			}
			s.seen[f.FilingID] = struct{}{}
			s.queue = append(s.queue, f)
		}
		slog.Debug("window scraped",
			"from", window.From.Format("2006-01-02"),
			"to", window.To.Format("2006-01-02"),
			"records", len(records),
			"new", len(s.queue))
	}
}

// Warnings returns the windows that were skipped after retry
// exhaustion, in scrape order.
func (s *Scraper) Warnings() []string {
	return s.warnings
}

// WindowCount returns the number of monthly windows in the range.
func (s *Scraper) WindowCount() int {
	return len(s.windows)
}
