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
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/hkexingest/backoff"
	"github.com/poiesic/hkexingest/core"
)

// Default policy values. All of them are configurable per Fetcher.
const (
	DefaultMaxDownloadSize = 25 * 1024 * 1024
	DefaultMaxTextLen      = 900_000
	DefaultTimeout         = 60 * time.Second
)

// Fetcher downloads filing documents and extracts their content. Every
// outcome maps to a DocumentResult; Fetch only returns an error when
// its context is cancelled, so callers never have to distinguish
// transport failures from extraction failures themselves.
type Fetcher struct {
	httpClient      *http.Client
	maxDownloadSize int64
	maxTextLen      int
	maxAttempts     int
	baseDelay       time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) { f.httpClient = client }
}

// WithMaxDownloadSize caps the document size in bytes.
func WithMaxDownloadSize(n int64) Option {
	return func(f *Fetcher) { f.maxDownloadSize = n }
}

// WithMaxTextLen caps stored text length in characters.
func WithMaxTextLen(n int) Option {
	return func(f *Fetcher) { f.maxTextLen = n }
}

// WithRetry sets the download retry policy.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(f *Fetcher) {
		f.maxAttempts = maxAttempts
		f.baseDelay = baseDelay
	}
}

// NewFetcher creates a document fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient:      &http.Client{Timeout: DefaultTimeout},
		maxDownloadSize: DefaultMaxDownloadSize,
		maxTextLen:      DefaultMaxTextLen,
		maxAttempts:     4,
		baseDelay:       time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// DetectType maps a document URL to its format. The second return is
// false for unsupported formats.
func DetectType(docURL string) (core.DocType, bool) {
	u := strings.ToLower(docURL)
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	switch {
	case strings.HasSuffix(u, ".pdf"):
		return core.DocTypePDF, true
	case strings.HasSuffix(u, ".htm"), strings.HasSuffix(u, ".html"):
		return core.DocTypeHTML, true
	case strings.HasSuffix(u, ".xlsx"), strings.HasSuffix(u, ".xls"):
		return core.DocTypeXLSX, true
	default:
		return "", false
	}
}

// Fetch downloads and extracts one document. The returned result is
// always valid against the status invariant.
func (f *Fetcher) Fetch(ctx context.Context, filingID, docURL string) (*core.DocumentResult, error) {
	if docURL == "" {
		return skipped("no_document_url"), nil
	}

	docType, ok := DetectType(docURL)
	if !ok {
		return skipped("unsupported_type"), nil
	}

	raw, result, err := f.download(ctx, docURL)
	if err != nil {
		return nil, err
	}
	if result != nil {
		return result, nil
	}

	text, tables, extractErr := f.extract(docType, raw)
	if extractErr != nil {
		reason := "extraction_error"
		if strings.HasPrefix(extractErr.Error(), "pdf_corrupt") {
			reason = "pdf_corrupt"
		}
		slog.Warn("extraction failed", "filing", filingID, "type", docType, "error", extractErr)
		return failed(reason), nil
	}
	if strings.TrimSpace(text) == "" {
		return failed("empty_extraction"), nil
	}

	text = f.capText(filingID, text)

	return &core.DocumentResult{
		Size:     int64(len(raw)),
		Type:     docType,
		Hash:     core.ContentHash(raw),
		Text:     text,
		TextLen:  len(text),
		Tables:   tables,
		TableCnt: len(tables),
		Status:   core.DocStatusProcessed,
	}, nil
}

// download retrieves the document body with retries. A non-nil result
// means the download was resolved without a body (skip or permanent
// failure).
func (f *Fetcher) download(ctx context.Context, docURL string) ([]byte, *core.DocumentResult, error) {
	var raw []byte
	var resolved *core.DocumentResult

	err := backoff.Retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
		req.Header.Set("Accept", "application/pdf,text/html,"+
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,*/*;q=0.8")

		resp, err := f.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
			// The document is not coming back; don't retry.
			resolved = failed(fmt.Sprintf("http_%d", resp.StatusCode))
			return nil
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("http status %d", resp.StatusCode)
		}

		if resp.ContentLength > f.maxDownloadSize {
			resolved = skipped("too_large")
			return nil
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxDownloadSize+1))
		if err != nil {
			return err
		}
		if int64(len(body)) > f.maxDownloadSize {
			resolved = skipped("too_large")
			return nil
		}
		raw = body
		return nil
	}, f.maxAttempts, f.baseDelay)

	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, failed("download_error"), nil
	}
	return raw, resolved, nil
}

func (f *Fetcher) extract(docType core.DocType, raw []byte) (string, []core.Table, error) {
	switch docType {
	case core.DocTypePDF:
		return extractPDF(raw)
	case core.DocTypeHTML:
		text, err := extractHTML(raw)
		return text, nil, err
	case core.DocTypeXLSX:
		return extractXLSX(raw)
	default:
		return "", nil, fmt.Errorf("no extractor for type %q", docType)
	}
}

// capText enforces the text length ceiling. Truncation cuts at the
// last complete line and is recorded in the text itself, so the stored
// length always matches documentTextLen.
func (f *Fetcher) capText(filingID, text string) string {
	if f.maxTextLen <= 0 || len(text) <= f.maxTextLen {
		return text
	}
	original := len(text)
	capped := text[:f.maxTextLen]
	if nl := strings.LastIndexByte(capped, '\n'); nl > f.maxTextLen/2 {
		capped = capped[:nl]
	}
	slog.Warn("document text truncated", "filing", filingID, "from", original, "to", len(capped))
	return capped + fmt.Sprintf("\n\n[truncated from %d characters]", original)
}

func skipped(reason string) *core.DocumentResult {
	return &core.DocumentResult{Status: core.DocStatusSkipped, StatusReason: reason}
}

func failed(reason string) *core.DocumentResult {
	return &core.DocumentResult{Status: core.DocStatusFailed, StatusReason: reason}
}
