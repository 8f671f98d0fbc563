package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/hkexingest/storage"
)

// CompanyDirectory exposes the company records stored under a
// configurable table prefix as a read-only ID set. The directory is
// populated out of band; ingestion only ever reads it.
type CompanyDirectory struct {
	backend *Backend
	table   string
}

var _ storage.CompanyDirectory = (*CompanyDirectory)(nil)

// NewCompanyDirectory creates a directory over the given table prefix.
func NewCompanyDirectory(backend *Backend, table string) (*CompanyDirectory, error) {
	if table == "" {
		return nil, storage.ErrNoCompanyTable
	}
	return &CompanyDirectory{backend: backend, table: table}, nil
}

// CompanyIDs returns the set of all company record IDs in the table.
func (d *CompanyDirectory) CompanyIDs(ctx context.Context) (map[string]struct{}, error) {
	if d.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	prefix := makeCompanyPrefix(d.table)
	ids := make(map[string]struct{})
	err := d.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := it.Item().Key()
			ids[string(key[len(prefix):])] = struct{}{}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// PutCompany writes a company record under the table prefix. Used by
// seeding tools and tests; ingestion never calls it.
func (d *CompanyDirectory) PutCompany(ctx context.Context, recordID string, data []byte) error {
	if d.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return d.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeCompanyKey(d.table, recordID), data); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
