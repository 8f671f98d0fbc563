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
	"strings"
	"time"

	"github.com/poiesic/hkexingest/classify"
	"github.com/poiesic/hkexingest/core"
)

// Record is one normalized search result, before classification.
type Record struct {
	Date      string // DD/MM/YYYY, may be empty
	StockCode string
	StockName string
	Title     string
	Link      string
}

// parseRecord normalizes a raw servlet record. Dual-listed issues pack
// multiple codes and names separated by <br/>; only the primary entry
// is kept. Titles arrive with a few HTML entities unexpanded.
func parseRecord(r apiRecord, baseURL string) Record {
	datePart := ""
	if r.DateTime != "" {
		datePart = strings.SplitN(r.DateTime, " ", 2)[0]
	}

	code := strings.TrimSpace(strings.SplitN(r.StockCode, "<br/>", 2)[0])
	name := strings.TrimSpace(strings.SplitN(r.StockName, "<br/>", 2)[0])

	link := r.FileLink
	if link != "" && strings.HasPrefix(link, "/") {
		link = baseURL + link
	}

	title := strings.ReplaceAll(r.Title, "&#x3b;", ";")
	title = strings.ReplaceAll(title, "&amp;", "&")

	return Record{
		Date:      datePart,
		StockCode: code,
		StockName: core.SquashWS(name),
		Title:     core.SquashWS(title),
		Link:      link,
	}
}

// BuildFiling derives the canonical filing from a normalized record:
// category and ticker, type classification, referenced tickers, and
// the deterministic filing ID.
func BuildFiling(r Record) *core.Filing {
	filingType, filingSubtype := classify.Classify("", r.Title)

	var filingDate time.Time
	dateKey := r.Date
	if t, err := time.Parse("02/01/2006", r.Date); err == nil {
		filingDate = t.UTC()
		dateKey = t.Format("2006-01-02")
	}

	category := core.CategoryListedCompany
	var ticker string
	switch {
	case strings.TrimSpace(r.StockCode) == "" && classify.IsDerivativeIssuerFiling(r.Title):
		ticker = classify.IssuerShortName(r.Title) + "_DERIV.HK"
		category = core.CategoryDerivativeIssuer
	case strings.TrimSpace(r.StockCode) == "":
		ticker = "UNKNOWN.HK"
		category = core.CategoryUnknown
	default:
		ticker = classify.NormalizeTicker(r.StockCode)
	}

	return &core.Filing{
		FilingID:          core.FilingID(ticker, r.Title, dateKey, r.Link),
		CompanyTicker:     ticker,
		StockCode:         r.StockCode,
		StockName:         r.StockName,
		Exchange:          core.Exchange,
		FilingType:        filingType,
		FilingSubtype:     filingSubtype,
		FilingCategory:    category,
		Title:             r.Title,
		FilingDate:        filingDate,
		DocumentURL:       r.Link,
		ReferencedTickers: classify.ReferencedTickers(r.Title, r.StockCode),
		Source:            core.Source,
	}
}
