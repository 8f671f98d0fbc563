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


package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/hkexingest/core"
	"github.com/poiesic/hkexingest/storage"
)

// DefaultIDPattern converts a ticker like "0451.HK" into the company
// record ID "451_HK".
const DefaultIDPattern = "{code}_{exchange}"

// referenceSource tags edges derived from title text rather than the
// filing's own company field.
const referenceSource = "title_extraction"

// Linker derives graph edges between filings and an externally
// maintained company directory. Filings whose company is absent from
// the directory are counted and skipped, never invented.
type Linker struct {
	filings   storage.FilingRepository
	edges     storage.EdgeRepository
	companies storage.CompanyDirectory
	idPattern string
}

// NewLinker creates a linker. The ID pattern must contain both the
// {code} and {exchange} placeholders.
func NewLinker(filings storage.FilingRepository, edges storage.EdgeRepository,
	companies storage.CompanyDirectory, idPattern string) (*Linker, error) {
	if idPattern == "" {
		idPattern = DefaultIDPattern
	}
	if !strings.Contains(idPattern, "{code}") || !strings.Contains(idPattern, "{exchange}") {
		return nil, fmt.Errorf("company ID pattern %q must contain {code} and {exchange}", idPattern)
	}
	return &Linker{
		filings:   filings,
		edges:     edges,
		companies: companies,
		idPattern: idPattern,
	}, nil
}

// CompanyID converts a ticker into a company record ID using the
// configured pattern. "0451.HK" with the default pattern gives
// "451_HK".
func (l *Linker) CompanyID(ticker string) string {
	parts := strings.SplitN(ticker, ".", 2)
	code := strings.TrimLeft(parts[0], "0")
	if code == "" {
		code = "0"
	}
	exchange := core.Exchange
	if len(parts) > 1 && parts[1] != "" {
		exchange = parts[1]
	}
	id := strings.ReplaceAll(l.idPattern, "{code}", code)
	return strings.ReplaceAll(id, "{exchange}", exchange)
}

// Link walks the filing table and ensures has_filing edges (company to
// filing) and references_filing edges (filing to mentioned company).
// When tickers is non-nil only filings of those tickers are scanned,
// which keeps incremental runs proportional to what they ingested.
// Re-running over the same filings creates nothing new.
func (l *Linker) Link(ctx context.Context, tickers map[string]struct{}) (*core.LinkSummary, error) {
	summary := &core.LinkSummary{}

	companyIDs, err := l.companies.CompanyIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading company directory: %w", err)
	}
	slog.Info("linking filings to companies", "companies", len(companyIDs))

	now := time.Now().UTC()
	err = l.filings.ForEachFiling(ctx, func(f *core.Filing) error {
		if tickers != nil {
			if _, ok := tickers[f.CompanyTicker]; !ok {
				return nil
			}
		}
		summary.Filings++

		if f.CompanyTicker != "" {
			companyID := l.CompanyID(f.CompanyTicker)
			if _, ok := companyIDs[companyID]; ok {
				created, err := l.edges.Ensure(ctx, &storage.Edge{
					Relation:  storage.RelationHasFiling,
					From:      companyID,
					To:        f.FilingID,
					CreatedAt: now,
				})
				if err != nil {
					return err
				}
				if created {
					summary.HasFiling++
				}
			} else {
				summary.SkippedMissing++
			}
		}

		for _, ref := range f.ReferencedTickers {
			companyID := l.CompanyID(ref)
			if _, ok := companyIDs[companyID]; !ok {
				summary.SkippedMissing++
				continue
			}
			created, err := l.edges.Ensure(ctx, &storage.Edge{
				Relation:  storage.RelationReferencesFiling,
				From:      f.FilingID,
				To:        companyID,
				CreatedAt: now,
				Source:    referenceSource,
			})
			if err != nil {
				return err
			}
			if created {
				summary.References++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("linking complete",
		"filings", summary.Filings,
		"hasFiling", summary.HasFiling,
		"references", summary.References,
		"skippedMissing", summary.SkippedMissing)
	return summary, nil
}
