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


package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/hkexingest/core"
	"github.com/poiesic/hkexingest/storage"
)

// FilingRepository implements storage.FilingRepository using BadgerDB.
// Alongside the primary record it maintains a status+date index so the
// backfill query never scans the full keyspace.
type FilingRepository struct {
	backend *Backend
}

var _ storage.FilingRepository = (*FilingRepository)(nil)

// NewFilingRepository creates a filing repository on an open backend.
func NewFilingRepository(backend *Backend) *FilingRepository {
	return &FilingRepository{backend: backend}
}

// UpsertMetadata inserts or overwrites metadata fields, preserving any
// document-derived fields already on disk.
func (r *FilingRepository) UpsertMetadata(ctx context.Context, filings ...*core.Filing) (int, error) {
	if r.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}

	written := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, f := range filings {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := f.ValidateFiling(); err != nil {
				return err
			}

			record := *f
			record.UpdatedAt = time.Now().UTC()

			key := makeFilingKey(record.FilingID)
			existing, err := readFiling(tx, key)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return err
			}
			if existing != nil {
				copyDocumentFields(&record, existing)
				if err := tx.Delete(makeStatusKey(existing.DocumentStatus, existing.FilingDate, existing.FilingID)); err != nil {
					return err
				}
			}

			data, err := storage.MarshalFiling(&record)
			if err != nil {
				return err
			}
			if err := tx.Set(key, data); err != nil {
				return err
			}
			statusKey := makeStatusKey(record.DocumentStatus, record.FilingDate, record.FilingID)
			if err := tx.Set(statusKey, []byte(record.FilingID)); err != nil {
				return err
			}
			written++
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return written, nil
}

// SetDocument merges a document result into an existing filing,
// replacing all previous document-derived fields.
func (r *FilingRepository) SetDocument(ctx context.Context, filingID string, result *core.DocumentResult) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := result.Validate(); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeFilingKey(filingID)
		f, err := readFiling(tx, key)
		if err != nil {
			return err
		}

		if err := tx.Delete(makeStatusKey(f.DocumentStatus, f.FilingDate, f.FilingID)); err != nil {
			return err
		}

		applyDocumentResult(f, result)
		f.UpdatedAt = time.Now().UTC()

		data, err := storage.MarshalFiling(f)
		if err != nil {
			return err
		}
		if err := tx.Set(key, data); err != nil {
			return err
		}
		statusKey := makeStatusKey(f.DocumentStatus, f.FilingDate, f.FilingID)
		if err := tx.Set(statusKey, []byte(f.FilingID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Get retrieves a filing by ID.
func (r *FilingRepository) Get(ctx context.Context, filingID string) (*core.Filing, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var f *core.Filing
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		f, err = readFiling(tx, makeFilingKey(filingID))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// PendingDocuments returns filings with no document status first, then
// filings whose last attempt failed, each bucket newest first.
func (r *FilingRepository) PendingDocuments(ctx context.Context, limit int) ([]*core.Filing, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var results []*core.Filing
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, status := range []core.DocStatus{"", core.DocStatusFailed} {
			if limit > 0 && len(results) >= limit {
				break
			}
			ids, err := scanStatusIDs(ctx, tx, status, limit-len(results))
			if err != nil {
				return err
			}
			for _, id := range ids {
				f, err := readFiling(tx, makeFilingKey(id))
				if err != nil {
					return err
				}
				results = append(results, f)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ForEachFiling streams every filing to fn in key order.
func (r *FilingRepository) ForEachFiling(ctx context.Context, fn func(*core.Filing) error) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	prefix := []byte(filingPrefix + ":")
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var f *core.Filing
			err := it.Item().Value(func(val []byte) error {
				var err error
				f, err = storage.UnmarshalFiling(val)
				return err
			})
			if err != nil {
				return err
			}
			if err := fn(f); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// Close is a no-op; the shared backend owns the database handle.
func (r *FilingRepository) Close() error {
	return nil
}

// scanStatusIDs walks one status bucket of the index in reverse
// (newest first) and returns filing IDs, up to limit if positive.
func scanStatusIDs(ctx context.Context, tx *badger.Txn, status core.DocStatus, limit int) ([]string, error) {
	prefix := makeStatusPrefix(status)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.Reverse = true
	it := tx.NewIterator(opts)
	defer it.Close()

	// Seek past the last possible key in the bucket.
	seek := append(append([]byte{}, prefix...), 0xff)

	var ids []string
	for it.Seek(seek); it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var id string
		err := it.Item().Value(func(val []byte) error {
			id = string(val)
			return nil
		})
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
		if limit > 0 && len(ids) >= limit {
			break
		}
	}
	return ids, nil
}

// readFiling loads and deserializes one filing inside a transaction.
func readFiling(tx *badger.Txn, key []byte) (*core.Filing, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	var f *core.Filing
	err = item.Value(func(val []byte) error {
		var err error
		f, err = storage.UnmarshalFiling(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// copyDocumentFields carries the document-derived fields of src onto
// dst, so a metadata re-upsert never erases extracted content.
func copyDocumentFields(dst, src *core.Filing) {
	dst.DocumentSize = src.DocumentSize
	dst.DocumentType = src.DocumentType
	dst.DocumentHash = src.DocumentHash
	dst.DocumentText = src.DocumentText
	dst.DocumentTextLen = src.DocumentTextLen
	dst.DocumentTables = src.DocumentTables
	dst.DocumentTableCnt = src.DocumentTableCnt
	dst.DocumentStatus = src.DocumentStatus
	dst.DocumentStatusReason = src.DocumentStatusReason
}

// applyDocumentResult overwrites the document-derived fields of f from
// a validated result. Non-processed outcomes clear all content fields.
func applyDocumentResult(f *core.Filing, result *core.DocumentResult) {
	f.DocumentStatus = result.Status
	f.DocumentStatusReason = result.StatusReason

	if result.Status == core.DocStatusProcessed {
		f.DocumentSize = result.Size
		f.DocumentType = result.Type
		f.DocumentHash = result.Hash
		f.DocumentText = result.Text
		f.DocumentTextLen = result.TextLen
		f.DocumentTables = result.Tables
		f.DocumentTableCnt = result.TableCnt
		return
	}

	f.DocumentSize = 0
	f.DocumentType = ""
	f.DocumentHash = ""
	f.DocumentText = ""
	f.DocumentTextLen = 0
	f.DocumentTables = nil
	f.DocumentTableCnt = 0
}
