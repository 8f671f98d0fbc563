package fetch

import (
	md "github.com/JohannesKaufmann/html-to-markdown"
)

// extractHTML converts an HTML filing to Markdown text. Tables are not
// extracted from HTML: the exchange's HTML filings use table-based
// page layouts, so structural tables there are noise, not data.
func extractHTML(raw []byte) (string, error) {
	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(string(raw))
	if err != nil {
		return "", err
	}
	return CleanMarkdown(markdown), nil
}
