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


// Package classify maps raw filing titles and type strings onto the
// canonical filing taxonomy and extracts cross-referenced tickers.
// Everything here is pure: no state, no I/O, total over all inputs.
package classify

import (
	"regexp"
	"sort"
	"strings"
)

// typeRules are matched in order against the upper-cased title, then the
// upper-cased raw type string. First hit wins.
var typeRules = []struct {
	keyword string
	ftype   string
	subtype string
}{
	{"ANNUAL REPORT", "ANNUAL_REPORT", "Annual Report"},
	{"ANNUAL RESULTS", "RESULTS", "Annual Results"},
	{"INTERIM REPORT", "RESULTS", "Interim Report"},
	{"INTERIM RESULTS", "RESULTS", "Interim Results"},
	{"QUARTERLY", "RESULTS", "Quarterly"},
	{"DIVIDEND", "DIVIDEND", "Dividend"},
	{"TRANSACTION", "TRANSACTION", "Transaction"},
	{"ACQUISITION", "TRANSACTION", "Transaction"},
	{"DIRECTOR", "DIRECTOR", "Director"},
	{"CIRCULAR", "CIRCULAR", "Circular"},
	{"MEETING", "MEETING", "Meeting"},
	{"AGM", "MEETING", "Meeting"},
}

// Classify maps a raw type string and title onto (filingType,
// filingSubtype). Unrecognized or empty input yields ("OTHER", "OTHER")
// rather than an error.
func Classify(rawType, title string) (string, string) {
	for _, probe := range []string{strings.ToUpper(title), strings.ToUpper(rawType)} {
		if probe == "" {
			continue
		}
		for _, rule := range typeRules {
			if strings.Contains(probe, rule.keyword) {
				return rule.ftype, rule.subtype
			}
		}
	}
	return "OTHER", "OTHER"
}

var (
	codeListPattern = regexp.MustCompile(`(?i)stock\s*codes?[:\s]+((?:\d{3,5}[,\s]*)+)`)
	codePattern     = regexp.MustCompile(`\d{3,5}`)
	parenPattern    = regexp.MustCompile(`(?i)\((\d{3,5})\.HK\)`)
)

// NormalizeTicker converts a raw stock code into the canonical ticker
// form: leading zeros stripped, padded to four digits, ".HK" suffix.
// "00005" and "5" both become "0005.HK".
func NormalizeTicker(code string) string {
	stripped := strings.TrimLeft(code, "0")
	if stripped == "" {
		stripped = "0"
	}
	for len(stripped) < 4 {
		stripped = "0" + stripped
	}
	return stripped + ".HK"
}

// ReferencedTickers scans a title for stock codes referenced by the
// filing ("(0005.HK)" parentheticals and "stock code(s): NNNN" lists)
// and returns them as normalized tickers, excluding the filing's own
// code, in first-seen order.
func ReferencedTickers(title, ownCode string) []string {
	own := strings.TrimLeft(ownCode, "0")
	if own == "" {
		own = "0"
	}

	type hit struct {
		pos  int
		code string
	}
	var hits []hit

	for _, m := range codeListPattern.FindAllStringSubmatchIndex(title, -1) {
		group := title[m[2]:m[3]]
		for _, cm := range codePattern.FindAllStringIndex(group, -1) {
			hits = append(hits, hit{pos: m[2] + cm[0], code: group[cm[0]:cm[1]]})
		}
	}
	for _, m := range parenPattern.FindAllStringSubmatchIndex(title, -1) {
		hits = append(hits, hit{pos: m[2], code: title[m[2]:m[3]]})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	seen := make(map[string]bool)
	var refs []string
	for _, h := range hits {
		normalized := strings.TrimLeft(h.code, "0")
		if normalized == "" {
			normalized = "0"
		}
		if normalized == own || seen[normalized] {
			continue
		}
		seen[normalized] = true
		refs = append(refs, NormalizeTicker(h.code))
	}
	return refs
}
