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


package fetch

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/poiesic/hkexingest/core"
)

// span is one horizontal run of text on a page row, in PDF points.
type span struct {
	x    float64
	w    float64
	text string
}

const (
	// wordGap: spans closer than this belong to the same cell.
	wordGap = 3.0
	// cellGap: spans at least this far apart start a new column.
	cellGap = 18.0
	// minTableRows: consecutive multi-column rows needed to call a
	// region a table rather than incidental alignment.
	minTableRows = 3
)

// extractPDF pulls text and column-aligned tables out of PDF bytes.
// The file is first validated structurally; corrupt files fail early
// with a distinct reason instead of producing garbage text.
func extractPDF(raw []byte) (string, []core.Table, error) {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	if _, err := api.PageCount(bytes.NewReader(raw), cfg); err != nil {
		return "", nil, fmt.Errorf("pdf_corrupt: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", nil, fmt.Errorf("pdf_corrupt: %w", err)
	}

	var pages []string
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}

		var pageRows [][]string
		for _, row := range rows {
			spans := make([]span, 0, len(row.Content))
			for _, t := range row.Content {
				spans = append(spans, span{x: t.X, w: t.W, text: t.S})
			}
			cells := splitCells(spans, wordGap, cellGap)
			if len(cells) > 0 {
				pageRows = append(pageRows, cells)
			}
		}
		pageText := renderRows(pageRows)
		if strings.TrimSpace(pageText) != "" {
			pages = append(pages, pageText)
		}
	}

	text := CleanMarkdown(strings.Join(pages, "\n\n---\n\n"))
	return text, tablesFromMarkdown(text), nil
}

// splitCells merges spans into cells. Spans within wordGap join with
// nothing between them, spans within cellGap join with a space, and
// anything wider starts a new cell.
func splitCells(spans []span, wordGap, cellGap float64) []string {
	var cells []string
	var current strings.Builder
	prevEnd := 0.0

	for i, s := range spans {
		if strings.TrimSpace(s.text) == "" && current.Len() == 0 {
			continue
		}
		if i > 0 && current.Len() > 0 {
			gap := s.x - prevEnd
			switch {
			case gap >= cellGap:
				cells = append(cells, core.SquashWS(current.String()))
				current.Reset()
			case gap >= wordGap:
				current.WriteByte(' ')
			}
		}
		current.WriteString(s.text)
		prevEnd = s.x + s.w
	}
	if current.Len() > 0 {
		cells = append(cells, core.SquashWS(current.String()))
	}

	// Drop empty trailing cells
	for len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}

// renderRows joins row cells into page text, rendering runs of
// consistently multi-column rows as Markdown tables.
func renderRows(rows [][]string) string {
	var out []string
	i := 0
	for i < len(rows) {
		cols := len(rows[i])
		if cols < 2 {
			out = append(out, strings.Join(rows[i], " "))
			i++
			continue
		}

		// Extend the run while the column count holds.
		j := i
		for j < len(rows) && len(rows[j]) == cols {
			j++
		}
		if j-i >= minTableRows {
			md := tableToMarkdown(rows[i], rows[i+1:j])
			out = append(out, "", md, "")
		} else {
			for ; i < j; i++ {
				out = append(out, strings.Join(rows[i], " "))
			}
		}
		i = j
	}
	return strings.Join(out, "\n")
}
