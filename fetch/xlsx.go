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

	"github.com/xuri/excelize/v2"

	"github.com/poiesic/hkexingest/core"
)

// extractXLSX renders each sheet of a workbook as one Markdown table.
// Spreadsheet filings carry no free text; the returned text is just the
// concatenation of sheet sections.
func extractXLSX(raw []byte) (string, []core.Table, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return "", nil, err
	}
	defer wb.Close()

	var tables []core.Table
	var parts []string

	for sheetIdx, sheetName := range wb.GetSheetList() {
		rows, err := wb.GetRows(sheetName)
		if err != nil {
			continue
		}

		var data [][]string
		for _, row := range rows {
			empty := true
			for _, cell := range row {
				if strings.TrimSpace(cell) != "" {
					empty = false
					break
				}
			}
			if !empty {
				data = append(data, row)
			}
		}
		if len(data) == 0 {
			continue
		}

		headers := data[0]
		markdown := tableToMarkdown(headers, data[1:])

		cleanHeaders := make([]string, len(headers))
		for i, h := range headers {
			cleanHeaders[i] = core.SquashWS(h)
		}
		tables = append(tables, core.Table{
			TableIndex: sheetIdx + 1,
			SheetName:  sheetName,
			Headers:    cleanHeaders,
			RowCount:   len(data) - 1,
			Markdown:   markdown,
		})

		parts = append(parts, fmt.Sprintf("## Sheet: %s\n\n%s", sheetName, markdown))
	}

	return CleanMarkdown(strings.Join(parts, "\n\n")), tables, nil
}
