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
	"fmt"
	"regexp"
	"strings"

	"github.com/poiesic/hkexingest/core"
)

// Regulatory form codes that show up as page headers in filings.
var formCodes = regexp.MustCompile(`(?m)^(?:FF\d{3}|EF\d{3}|MF\d{3}|SF\d{3}|CF\d{3})\s*$`)

// Page footers: "Page X of Y", "v X.Y.Z", or both.
var pageFooters = regexp.MustCompile(`(?mi)^(?:Page\s+\d+\s+of\s+\d+(?:\s+v\s+[\d.]+)?|v\s+[\d.]+)\s*$`)

var bulletChars = regexp.MustCompile(`(?m)^\s*[•●○▪▸►◆◇→⇒➤]\s*`)

var parenNumbers = regexp.MustCompile(`(?m)^\((\d+)\)\s*`)
var parenLetters = regexp.MustCompile(`(?m)^\(([a-z])\)\s*`)

var decorativeRules = regexp.MustCompile(`(?m)^\s*[-_=]{5,}\s*$`)

var excessBlankLines = regexp.MustCompile(`\n{4,}`)

var tableSeparatorRow = regexp.MustCompile(`^\|[\s\-:|]+\|$`)

// CleanMarkdown strips page furniture from extracted text: form codes,
// page footers, decorative rules. Bullets and parenthesized list
// numbering are normalized to standard Markdown.
func CleanMarkdown(text string) string {
	if text == "" {
		return ""
	}

	text = formCodes.ReplaceAllString(text, "")
	text = pageFooters.ReplaceAllString(text, "")
	text = bulletChars.ReplaceAllString(text, "- ")
	text = parenNumbers.ReplaceAllString(text, "$1. ")
	text = parenLetters.ReplaceAllString(text, "$1. ")
	text = decorativeRules.ReplaceAllString(text, "")
	text = excessBlankLines.ReplaceAllString(text, "\n\n\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// tableToMarkdown renders headers and rows as a Markdown table. Rows
// shorter than the header are padded; longer rows are clipped.
func tableToMarkdown(headers []string, rows [][]string) string {
	if len(headers) == 0 && len(rows) == 0 {
		return ""
	}
	if len(headers) == 0 {
		ncols := 0
		if len(rows) > 0 {
			ncols = len(rows[0])
		}
		for i := 0; i < ncols; i++ {
			headers = append(headers, fmt.Sprintf("Col%d", i+1))
		}
	}
	clean := make([]string, len(headers))
	for i, h := range headers {
		clean[i] = core.SquashWS(h)
	}

	var b strings.Builder
	b.WriteString("| " + strings.Join(clean, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(clean)) + "\n")
	for _, row := range rows {
		cells := make([]string, len(clean))
		for i := range clean {
			if i < len(row) {
				cells[i] = core.SquashWS(row[i])
			}
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// tablesFromMarkdown scans text for Markdown table blocks and returns
// their structural metadata. A block needs a header, a separator, and
// at least one data row to count.
func tablesFromMarkdown(text string) []core.Table {
	var tables []core.Table
	lines := strings.Split(text, "\n")
	i := 0
	tableIndex := 0

	for i < len(lines) {
		if !strings.HasPrefix(strings.TrimSpace(lines[i]), "|") {
			i++
			continue
		}
		start := i
		for i < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[i]), "|") {
			i++
		}
		block := lines[start:i]
		if len(block) < 3 {
			continue
		}

		tableIndex++
		headerLine := strings.Trim(strings.TrimSpace(block[0]), "|")
		var headers []string
		for _, cell := range strings.Split(headerLine, "|") {
			headers = append(headers, strings.TrimSpace(cell))
		}

		rowCount := 0
		for _, line := range block[2:] {
			trimmed := strings.TrimSpace(line)
			if trimmed != "" && !tableSeparatorRow.MatchString(trimmed) {
				rowCount++
			}
		}

		tables = append(tables, core.Table{
			TableIndex: tableIndex,
			Headers:    headers,
			RowCount:   rowCount,
			Markdown:   strings.Join(block, "\n"),
		})
	}
	return tables
}
