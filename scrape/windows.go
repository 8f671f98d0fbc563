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

import "time"

// EarliestFilingDate is the start of the exchange's electronic filing
// archive, used for full-history scrapes.
var EarliestFilingDate = time.Date(1999, 4, 1, 0, 0, 0, 0, time.UTC)

// Window is one inclusive date range submitted as a single search.
type Window struct {
	From time.Time
	To   time.Time
}

// MonthlyWindows splits [from, to] into calendar-month windows, newest
// first. The exchange rejects searches longer than one month when no
// stock code or document type narrows them, so every range is walked
// month by month. No date in the range is skipped: the first and last
// windows are clamped to the requested bounds.
func MonthlyWindows(from, to time.Time) []Window {
	var windows []Window

	first := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	cursor := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)

	for !cursor.Before(first) {
		start := cursor
		if from.After(start) {
			start = from
		}
		end := cursor.AddDate(0, 1, -1) // last day of the month
		if end.After(to) {
			end = to
		}
		windows = append(windows, Window{From: start, To: end})
		cursor = cursor.AddDate(0, -1, 0)
	}
	return windows
}
