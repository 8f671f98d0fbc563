package storage

import (
	"context"
	"time"

	"github.com/poiesic/hkexingest/core"
)

// Edge relation names. Both relations are derived data, recomputable at
// any time from persisted filings.
const (
	// RelationHasFiling links a company to each of its filings.
	RelationHasFiling = "has_filing"
	// RelationReferencesFiling links a filing to a company mentioned
	// in its title.
	RelationReferencesFiling = "references_filing"
)

// Edge is one derived relationship record. Existence is its only state.
type Edge struct {
	Relation  string    `json:"relation"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	CreatedAt time.Time `json:"createdAt"`
	Source    string    `json:"source,omitempty"`
}

// FilingRepository provides operations for managing filing records.
// Implementations must be thread-safe: concurrent writers to different
// filing IDs require no external locking, and writes are upserts keyed
// by filing ID with last-write-wins semantics.
type FilingRepository interface {
	// UpsertMetadata inserts or overwrites the metadata fields of the
	// given filings, keyed by FilingID. Document-derived fields of an
	// existing record are preserved, so re-scraping a processed filing
	// never loses its extracted content. UpdatedAt is set on every
	// write. Returns the number of records written.
	UpsertMetadata(ctx context.Context, filings ...*core.Filing) (int, error)

	// SetDocument merges a document result into an existing filing,
	// overwriting any previous document-derived fields (never
	// appending). Returns ErrNotFound if the filing doesn't exist.
	SetDocument(ctx context.Context, filingID string, result *core.DocumentResult) error

	// Get retrieves a single filing by ID.
	// Returns ErrNotFound if the filing doesn't exist.
	Get(ctx context.Context, filingID string) (*core.Filing, error)

	// PendingDocuments returns filings whose document has not been
	// attempted yet (no document status) or whose last attempt failed,
	// newest first, up to limit (0 = no limit).
	PendingDocuments(ctx context.Context, limit int) ([]*core.Filing, error)

	// ForEachFiling streams every filing to fn. Iteration stops on the
	// first error from fn or on context cancellation.
	ForEachFiling(ctx context.Context, fn func(*core.Filing) error) error

	// Close releases repository resources.
	Close() error
}

// EdgeRepository provides idempotent creation of derived graph edges.
type EdgeRepository interface {
	// Ensure creates the edge if absent. Returns true if the edge was
	// created, false if it already existed. Re-running over existing
	// edges is a no-op.
	Ensure(ctx context.Context, edge *Edge) (bool, error)

	// Count returns the number of edges for a relation.
	Count(ctx context.Context, relation string) (int, error)

	// Close releases repository resources.
	Close() error
}

// CompanyDirectory exposes the external company registry as a read-only
// set of record identifiers. Filings are linked only to companies that
// already exist here.
type CompanyDirectory interface {
	// CompanyIDs returns the set of all company record IDs.
	CompanyIDs(ctx context.Context) (map[string]struct{}, error)
}
