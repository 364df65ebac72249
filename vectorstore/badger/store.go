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
	"bytes"
	"cmp"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/vectorstore"
)

// Store is an embedded vectorstore.Store. Search is an exact cosine scan
// over the scoped documents, which is fine for development corpora.
type Store struct {
	backend     *Backend
	ownsBackend bool
	logger      *slog.Logger
}

var _ vectorstore.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		s.logger = logger.With("component", "badger-store")
		return nil
	}
}

func newStore(backend *Backend, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, errors.New("badger store: backend is required")
	}
	s := &Store{
		backend: backend,
		logger:  slog.Default().With("component", "badger-store"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NewStore creates a store on an open backend. The caller keeps ownership
// of the backend.
func NewStore(backend *Backend, opts ...Option) (vectorstore.Store, error) {
	return newStore(backend, opts...)
}

// Open opens a backend at path and returns a store that closes it on Close.
func Open(path string, inMemory bool, opts ...Option) (vectorstore.Store, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}
	s, err := newStore(backend, opts...)
	if err != nil {
		backend.Close()
		return nil, err
	}
	s.ownsBackend = true
	return s, nil
}

func (s *Store) checkOpen() error {
	if s.backend.IsClosed() {
		return fmt.Errorf("%w: %w", core.ErrStoreUnavailable, vectorstore.ErrStoreClosed)
	}
	return nil
}

// dimension returns the stored collection size, or 0 when the collection
// has not been created.
func (s *Store) dimension(tx *badger.Txn) (int, error) {
	item, err := tx.Get([]byte(dimensionKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var dim int
	err = item.Value(func(val []byte) error {
		var err error
		dim, _, err = varint.Int.Unmarshal(val)
		return err
	})
	return dim, err
}

// EnsureCollection implements vectorstore.Store.
func (s *Store) EnsureCollection(ctx context.Context, dimension int) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if dimension <= 0 {
		return fmt.Errorf("%w: collection dimension must be positive", core.ErrConfiguration)
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		existing, err := s.dimension(tx)
		if err != nil {
			return err
		}
		if existing == dimension {
			return nil
		}
		if existing != 0 {
			return fmt.Errorf("%w: collection has size %d, embedder produces %d",
				core.ErrDimensionMismatch, existing, dimension)
		}
		buf := make([]byte, varint.Int.Size(dimension))
		varint.Int.Marshal(dimension, buf)
		if err := tx.Set([]byte(dimensionKey), buf); err != nil {
			return err
		}
		s.logger.Info("created collection", "dimension", dimension)
		return tx.Commit()
	}, true)
}

// Upsert implements vectorstore.Store.
func (s *Store) Upsert(ctx context.Context, point core.Point) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if point.ChunkID == "" {
		return fmt.Errorf("%w: point has no chunk id", vectorstore.ErrInvalidQuery)
	}
	documentID := point.Payload.DocumentID

	return s.backend.WithTx(func(tx *badger.Txn) error {
		dim, err := s.dimension(tx)
		if err != nil {
			return err
		}
		if dim == 0 {
			return vectorstore.ErrCollectionMissing
		}
		if len(point.Vector) != dim {
			return fmt.Errorf("%w: point has %d values, collection has size %d",
				core.ErrDimensionMismatch, len(point.Vector), dim)
		}

		// A chunk id moving to another document leaves no orphan behind.
		previous, err := s.owner(tx, point.ChunkID)
		if err != nil {
			return err
		}
		if previous != "" && previous != documentID {
			if err := tx.Delete(makePointKey(previous, point.ChunkID)); err != nil {
				return err
			}
		}

		if err := tx.Set(makeChunkIndexKey(point.ChunkID), []byte(documentID)); err != nil {
			return err
		}
		if err := tx.Set(makePointKey(documentID, point.ChunkID), MarshalPoint(point)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// owner returns the document id indexed for chunkID, or "" when absent.
func (s *Store) owner(tx *badger.Txn, chunkID string) (string, error) {
	item, err := tx.Get(makeChunkIndexKey(chunkID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	val, err := item.ValueCopy(nil)
	return string(val), err
}

// Retrieve implements vectorstore.Store.
func (s *Store) Retrieve(ctx context.Context, chunkID string) (*core.Payload, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var payload *core.Payload
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		documentID, err := s.owner(tx, chunkID)
		if err != nil || documentID == "" {
			return err
		}
		item, err := tx.Get(makePointKey(documentID, chunkID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			point, err := UnmarshalPoint(val)
			if err != nil {
				return err
			}
			payload = &point.Payload
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// Search implements vectorstore.Store.
func (s *Store) Search(ctx context.Context, query vectorstore.SearchQuery) ([]core.RetrievedChunk, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	prefixes := [][]byte{[]byte(pointPrefix)}
	if len(query.DocumentIDs) > 0 {
		prefixes = prefixes[:0]
		for _, id := range uniqueSorted(query.DocumentIDs) {
			prefixes = append(prefixes, makeDocumentPrefix(id))
		}
	}

	var results []core.RetrievedChunk
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		for _, prefix := range prefixes {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := s.scan(tx, prefix, nil, func(_ []byte, point core.Point) bool {
				score := cosine(query.Vector, point.Vector)
				if score >= query.ScoreThreshold {
					results = append(results, core.RetrievedChunk{Payload: point.Payload, Score: score})
				}
				return true
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b core.RetrievedChunk) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Payload.ChunkID, b.Payload.ChunkID)
	})
	if len(results) > query.Limit {
		results = results[:query.Limit]
	}
	return results, nil
}

// Scroll implements vectorstore.Store. Offsets are hex encoded keys.
func (s *Store) Scroll(ctx context.Context, documentIDs []string, limit int, offset string) (*vectorstore.ScrollPage, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: scroll limit must be positive", vectorstore.ErrInvalidQuery)
	}
	start, err := hex.DecodeString(offset)
	if err != nil {
		return nil, fmt.Errorf("%w: bad offset", vectorstore.ErrInvalidQuery)
	}

	scope := make(map[string]bool, len(documentIDs))
	for _, id := range documentIDs {
		scope[id] = true
	}

	page := &vectorstore.ScrollPage{}
	err = s.backend.WithTx(func(tx *badger.Txn) error {
		return s.scan(tx, []byte(pointPrefix), start, func(key []byte, point core.Point) bool {
			if len(scope) > 0 && !scope[point.Payload.DocumentID] {
				return true
			}
			if len(page.Payloads) == limit {
				page.NextOffset = hex.EncodeToString(key)
				return false
			}
			page.Payloads = append(page.Payloads, point.Payload)
			return true
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// scan decodes every point under prefix starting at seek (or the prefix
// start) until fn returns false.
func (s *Store) scan(tx *badger.Txn, prefix, seek []byte, fn func(key []byte, point core.Point) bool) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	if len(seek) == 0 || !bytes.HasPrefix(seek, prefix) {
		seek = prefix
	}
	for iter.Seek(seek); iter.Valid(); iter.Next() {
		item := iter.Item()
		var point core.Point
		err := item.Value(func(val []byte) error {
			var err error
			point, err = UnmarshalPoint(val)
			return err
		})
		if err != nil {
			return err
		}
		if !fn(item.KeyCopy(nil), point) {
			return nil
		}
	}
	return nil
}

// Ping implements vectorstore.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.checkOpen()
}

// Close implements vectorstore.Store.
func (s *Store) Close() error {
	if s.ownsBackend && !s.backend.IsClosed() {
		return s.backend.Close()
	}
	return nil
}

// cosine returns the cosine similarity of a and b, or 0 when either is
// empty, zero or of a different length.
func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

func uniqueSorted(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
