package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilingID_Deterministic(t *testing.T) {
	a := FilingID("0005.HK", "Annual Report 2024", "15/03/2024", "https://example.com/doc.pdf")
	b := FilingID("0005.HK", "Annual Report 2024", "15/03/2024", "https://example.com/doc.pdf")
	assert.Equal(t, a, b, "identical identity fields must produce identical IDs")
	assert.Len(t, a, 16)
}

func TestFilingID_DistinguishesFields(t *testing.T) {
	base := FilingID("0005.HK", "Annual Report", "15/03/2024", "https://example.com/a.pdf")

	assert.NotEqual(t, base, FilingID("0006.HK", "Annual Report", "15/03/2024", "https://example.com/a.pdf"))
	assert.NotEqual(t, base, FilingID("0005.HK", "Interim Report", "15/03/2024", "https://example.com/a.pdf"))
	assert.NotEqual(t, base, FilingID("0005.HK", "Annual Report", "16/03/2024", "https://example.com/a.pdf"))
	assert.NotEqual(t, base, FilingID("0005.HK", "Annual Report", "15/03/2024", "https://example.com/b.pdf"))
}

func TestFilingID_FieldBoundaries(t *testing.T) {
	// Concatenation across field boundaries must not collide.
	a := FilingID("0005.HK", "AB", "C", "")
	b := FilingID("0005.HK", "A", "BC", "")
	assert.NotEqual(t, a, b)
}

func TestContentHash(t *testing.T) {
	h1 := ContentHash([]byte("document body"))
	h2 := ContentHash([]byte("document body"))
	h3 := ContentHash([]byte("other body"))

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 32)
}

func TestSquashWS(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"collapses runs", "a   b\t\tc\n\nd", "a b c d"},
		{"strips control chars", "a\x00b\x1fc", "a b c"},
		{"trims", "  padded  ", "padded"},
		{"empty", "", ""},
		{"only whitespace", " \t\n ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SquashWS(tt.in))
		})
	}
}

func TestDocumentResult_Validate_Processed(t *testing.T) {
	r := &DocumentResult{
		Status: DocStatusProcessed,
		Hash:   "abc123",
		Text:   "extracted text",
	}
	require.NoError(t, r.Validate())

	r.Hash = ""
	assert.ErrorIs(t, r.Validate(), ErrMissingContent)

	r.Hash = "abc123"
	r.StatusReason = "leftover_reason"
	assert.ErrorIs(t, r.Validate(), ErrInvalidDocumentResult)
}

func TestDocumentResult_Validate_SkippedRequiresReason(t *testing.T) {
	r := &DocumentResult{Status: DocStatusSkipped}
	assert.ErrorIs(t, r.Validate(), ErrMissingStatusReason)

	r.StatusReason = "too_large"
	require.NoError(t, r.Validate())
}

func TestDocumentResult_Validate_FailedMustNotCarryContent(t *testing.T) {
	r := &DocumentResult{
		Status:       DocStatusFailed,
		StatusReason: "http_404",
		Text:         "leftover",
	}
	assert.ErrorIs(t, r.Validate(), ErrInvalidDocumentResult)
}

func TestDocumentResult_Validate_UnknownStatus(t *testing.T) {
	r := &DocumentResult{Status: DocStatus("bogus")}
	assert.ErrorIs(t, r.Validate(), ErrInvalidDocumentResult)
}

func TestValidateFiling(t *testing.T) {
	f := &Filing{FilingID: "abc", CompanyTicker: "0005.HK"}
	require.NoError(t, f.ValidateFiling())

	assert.ErrorIs(t, (&Filing{CompanyTicker: "0005.HK"}).ValidateFiling(), ErrEmptyFilingID)
	assert.ErrorIs(t, (&Filing{FilingID: "abc"}).ValidateFiling(), ErrEmptyTicker)
}
