package classify

import (
	"regexp"
	"sort"
	"strings"
)

// derivativePatterns mark titles of daily warrant/CBBC trading reports,
// which arrive without a stock code.
var derivativePatterns = []string{
	"DAILY TRADING SUMMARY",
	"DAILY TRADING REPORT",
	"DAILY REPORT ON",
}

// knownIssuers maps title keywords to short issuer identifiers.
var knownIssuers = map[string]string{
	"HUATAI":               "HUATAI",
	"CITIGROUP":            "CITI",
	"UBS":                  "UBS",
	"HSBC":                 "HSBC",
	"HK AND SHANGHAI BANK": "HSBC",
	"BOCI":                 "BOCI",
	"SOCIETE GENERALE":     "SOCGEN",
	"BANK OF EAST ASIA":    "BEA",
	"GUOTAI JUNAN":         "GUOTAI",
	"MORGAN STANLEY":       "MORGAN",
	"KOREA INVESTMENT":     "KOREA",
	"CITIC":                "CITIC",
	"JP MORGAN":            "JPM",
	"JPMORGAN":             "JPM",
	"GOLDMAN SACHS":        "GS",
	"CREDIT SUISSE":        "CS",
	"BARCLAYS":             "BARCLAYS",
	"BNP PARIBAS":          "BNP",
	"MACQUARIE":            "MACQUARIE",
	"HAITONG":              "HAITONG",
	"STANDARD CHARTERED":   "STANCHART",
	"DEUTSCHE BANK":        "DB",
	"BOCOM":                "BOCOM",
	"CHINA INTERNATIONAL":  "CICC",
}

var nonAlnum = regexp.MustCompile(`[^A-Z0-9]`)

// IsDerivativeIssuerFiling reports whether a title indicates a
// derivative issuer filing (warrants/CBBC daily reports).
func IsDerivativeIssuerFiling(title string) bool {
	t := strings.ToUpper(title)
	for _, p := range derivativePatterns {
		if strings.Contains(t, p) {
			return true
		}
	}
	return false
}

// IssuerShortName extracts the issuer short name from a derivative
// filing title. Known issuers are checked first (longest keyword wins),
// falling back to the first word before the "Daily" separator.
func IssuerShortName(title string) string {
	upper := strings.ToUpper(title)

	keywords := make([]string, 0, len(knownIssuers))
	for k := range knownIssuers {
		keywords = append(keywords, k)
	}
	sort.Slice(keywords, func(i, j int) bool {
		if len(keywords[i]) != len(keywords[j]) {
			return len(keywords[i]) > len(keywords[j])
		}
		return keywords[i] < keywords[j]
	})
	for _, k := range keywords {
		if strings.Contains(upper, k) {
			return knownIssuers[k]
		}
	}

	for _, sep := range []string{" - Daily", " -Daily", " Daily"} {
		idx := strings.Index(title, sep)
		if idx < 0 {
			idx = strings.Index(upper, strings.ToUpper(sep))
		}
		if idx > 0 {
			issuer := strings.TrimSpace(title[:idx])
			fields := strings.Fields(issuer)
			if len(fields) == 0 {
				continue
			}
			first := nonAlnum.ReplaceAllString(strings.ToUpper(fields[0]), "")
			if first != "" {
				return first
			}
		}
	}
	return "DERIV"
}
