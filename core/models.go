package core

import (
	"encoding/hex"
	"strings"
	"time"
	"unicode"

	"github.com/go-crypt/x/blake2b"
)

// Constants identifying the data source. Every filing carries both.
const (
	Exchange = "HK"
	Source   = "HKEx"
)

// DocStatus describes the outcome of document retrieval and extraction
// for a filing. The empty string means the document has not been
// attempted yet.
type DocStatus string

const (
	// DocStatusProcessed means the document was downloaded and its
	// content extracted successfully.
	DocStatusProcessed DocStatus = "processed"
	// DocStatusSkipped means the document was rejected by policy
	// (too large, unsupported format) without downloading the body.
	DocStatusSkipped DocStatus = "skipped"
	// DocStatusFailed means download or extraction failed.
	DocStatusFailed DocStatus = "failed"
)

// DocType is the detected document format.
type DocType string

const (
	DocTypePDF  DocType = "pdf"
	DocTypeHTML DocType = "html"
	DocTypeXLSX DocType = "xlsx"
)

// FilingCategory distinguishes regular listed-company filings from
// derivative-issuer reports that carry no stock code.
type FilingCategory string

const (
	CategoryListedCompany    FilingCategory = "LISTED_COMPANY"
	CategoryDerivativeIssuer FilingCategory = "DERIVATIVE_ISSUER"
	CategoryUnknown          FilingCategory = "UNKNOWN"
)

// Filing is the canonical ingestion unit: one regulatory document's
// metadata plus, once processed, its extracted content.
type Filing struct {
	FilingID          string         `json:"filingId"`
	CompanyTicker     string         `json:"companyTicker"`
	StockCode         string         `json:"stockCode"`
	StockName         string         `json:"stockName,omitempty"`
	Exchange          string         `json:"exchange"`
	FilingType        string         `json:"filingType"`
	FilingSubtype     string         `json:"filingSubtype"`
	FilingCategory    FilingCategory `json:"filingCategory"`
	Title             string         `json:"title"`
	FilingDate        time.Time      `json:"filingDate"`
	DocumentURL       string         `json:"documentUrl"`
	ReferencedTickers []string       `json:"referencedTickers,omitempty"`
	Source            string         `json:"source"`
	UpdatedAt         time.Time      `json:"updatedAt"`

	// Document-derived fields, absent until the fetch stage runs.
	DocumentSize         int64     `json:"documentSize,omitempty"`
	DocumentType         DocType   `json:"documentType,omitempty"`
	DocumentHash         string    `json:"documentHash,omitempty"`
	DocumentText         string    `json:"documentText,omitempty"`
	DocumentTextLen      int       `json:"documentTextLen,omitempty"`
	DocumentTables       []Table   `json:"documentTables,omitempty"`
	DocumentTableCnt     int       `json:"documentTableCnt,omitempty"`
	DocumentStatus       DocStatus `json:"documentStatus,omitempty"`
	DocumentStatusReason string    `json:"documentStatusReason,omitempty"`
}

// Table is one extracted table, serialized as Markdown alongside its
// structural metadata.
type Table struct {
	TableIndex int      `json:"tableIndex"`
	SheetName  string   `json:"sheetName,omitempty"`
	Headers    []string `json:"headers"`
	RowCount   int      `json:"rowCount"`
	Markdown   string   `json:"markdown"`
}

// DocumentResult is the outcome of fetching and extracting one document.
// A processed result carries hash and text; a skipped or failed result
// carries only a status reason.
type DocumentResult struct {
	Size         int64
	Type         DocType
	Hash         string
	Text         string
	TextLen      int
	Tables       []Table
	TableCnt     int
	Status       DocStatus
	StatusReason string
}

// RunSummary accumulates counts for one ingestion run. It is returned
// regardless of partial failures.
type RunSummary struct {
	Scraped   int            `json:"scraped"`
	Upserted  int            `json:"upserted"`
	Processed int            `json:"processed"`
	Skipped   int            `json:"skipped"`
	Failed    int            `json:"failed"`
	Reasons   map[string]int `json:"reasons,omitempty"`
	Warnings  []string       `json:"warnings,omitempty"`
	Link      *LinkSummary   `json:"link,omitempty"`
}

// LinkSummary reports the outcome of a graph-linking pass.
type LinkSummary struct {
	Filings        int `json:"filings"`
	HasFiling      int `json:"hasFiling"`
	References     int `json:"references"`
	SkippedMissing int `json:"skippedMissing"`
}

// FilingID derives the deterministic dedup key for a filing from its
// identity fields. Identical inputs always produce identical IDs, so
// re-scraping overlapping date ranges converges on the same records.
func FilingID(companyTicker, title, filingDate, documentURL string) string {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(companyTicker))
	h.Write([]byte{0x1f})
	h.Write([]byte(title))
	h.Write([]byte{0x1f})
	h.Write([]byte(filingDate))
	h.Write([]byte{0x1f})
	h.Write([]byte(documentURL))
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash returns the BLAKE2b hash of raw document bytes as hex.
func ContentHash(raw []byte) string {
	h, _ := blake2b.New(16, nil)
	h.Write(raw)
	return hex.EncodeToString(h.Sum(nil))
}

// SquashWS removes control and non-printable characters and collapses
// runs of whitespace into single spaces.
func SquashWS(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || unicode.IsPrint(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(cleaned), " ")
}
