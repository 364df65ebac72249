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

package vectorstore

import (
	"context"
	"fmt"

	"github.com/poiesic/docent/core"
)

// DefaultSearchLimit is used when a query does not set Limit.
const DefaultSearchLimit = 10

// SearchQuery describes a similarity search.
type SearchQuery struct {
	// Vector is the query embedding.
	Vector []float32

	// DocumentIDs restricts results to points whose payload "id" is one of
	// these values. Empty means no restriction.
	DocumentIDs []string

	// Limit caps the number of results.
	Limit int

	// ScoreThreshold drops results scoring below it. Zero disables it.
	ScoreThreshold float32
}

// Validate checks the query and applies the default limit.
func (q *SearchQuery) Validate() error {
	if len(q.Vector) == 0 {
		return fmt.Errorf("%w: empty query vector", ErrInvalidQuery)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidQuery)
	}
	if q.Limit == 0 {
		q.Limit = DefaultSearchLimit
	}
	return nil
}

// ScrollPage is one page of stored payloads in storage order.
type ScrollPage struct {
	Payloads []core.Payload

	// NextOffset resumes the scroll. Empty when there are no more pages.
	NextOffset string
}

// Store is a vector collection client. Implementations are safe for
// concurrent use.
type Store interface {
	// EnsureCollection creates the collection with the given vector size and
	// cosine distance if it does not exist. An existing collection with a
	// different size returns core.ErrDimensionMismatch.
	EnsureCollection(ctx context.Context, dimension int) error

	// Upsert writes a point, replacing any prior vector and payload for the
	// same chunk id.
	Upsert(ctx context.Context, point core.Point) error

	// Retrieve returns the payload stored for chunkID, or nil when absent.
	Retrieve(ctx context.Context, chunkID string) (*core.Payload, error)

	// Search returns points ordered by descending similarity.
	Search(ctx context.Context, query SearchQuery) ([]core.RetrievedChunk, error)

	// Scroll pages through stored payloads, optionally scoped to documentIDs.
	// Pass the previous page's NextOffset to continue.
	Scroll(ctx context.Context, documentIDs []string, limit int, offset string) (*ScrollPage, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}
