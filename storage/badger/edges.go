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

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/hkexingest/storage"
)

// EdgeRepository implements storage.EdgeRepository using BadgerDB.
// The edge key encodes the full (relation, from, to) identity, which
// makes Ensure a single point lookup.
type EdgeRepository struct {
	backend *Backend
}

var _ storage.EdgeRepository = (*EdgeRepository)(nil)

// NewEdgeRepository creates an edge repository on an open backend.
func NewEdgeRepository(backend *Backend) *EdgeRepository {
	return &EdgeRepository{backend: backend}
}

// Ensure creates the edge if it doesn't already exist. Returns true
// when a new edge was written.
func (r *EdgeRepository) Ensure(ctx context.Context, edge *storage.Edge) (bool, error) {
	if r.backend.IsClosed() {
		return false, storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	created := false
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeEdgeKey(edge.Relation, edge.From, edge.To)
		_, err := tx.Get(key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		data, err := storage.MarshalEdge(edge)
		if err != nil {
			return err
		}
		if err := tx.Set(key, data); err != nil {
			return err
		}
		created = true
		return tx.Commit()
	}, true)
	if err != nil {
		return false, err
	}
	return created, nil
}

// Count returns the number of edges stored for a relation.
func (r *EdgeRepository) Count(ctx context.Context, relation string) (int, error) {
	if r.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}

	prefix := makeEdgePrefix(relation)
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			count++
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Close is a no-op; the shared backend owns the database handle.
func (r *EdgeRepository) Close() error {
	return nil
}
