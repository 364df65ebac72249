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

package reembed

import (
	"context"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/vectorstore"
)

const (
	// DefaultBatchSize is the default number of chunks fetched per page
	DefaultBatchSize = 100
)

// PayloadIterator pages through stored chunk payloads.
type PayloadIterator struct {
	store       vectorstore.Store
	documentIDs []string
	batchSize   int
}

// NewPayloadIterator creates an iterator over the chunks of documentIDs, or
// of every document when documentIDs is empty.
// batchSize: number of payloads fetched per page (must be > 0)
func NewPayloadIterator(store vectorstore.Store, documentIDs []string, batchSize int) *PayloadIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &PayloadIterator{
		store:       store,
		documentIDs: documentIDs,
		batchSize:   batchSize,
	}
}

// ForEach calls fn with each page of payloads in storage order.
// Iteration stops on first error from fn or when the store is exhausted.
// Context cancellation is checked between pages.
func (it *PayloadIterator) ForEach(ctx context.Context, fn func([]core.Payload) error) error {
	offset := ""
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		page, err := it.store.Scroll(ctx, it.documentIDs, it.batchSize, offset)
		if err != nil {
			return err
		}
		if len(page.Payloads) > 0 {
			if err := fn(page.Payloads); err != nil {
				return err
			}
		}
		if page.NextOffset == "" {
			return nil
		}
		offset = page.NextOffset
	}
}

// Count returns the number of payloads the iterator would visit.
func (it *PayloadIterator) Count(ctx context.Context) (int, error) {
	total := 0
	err := it.ForEach(ctx, func(payloads []core.Payload) error {
		total += len(payloads)
		return nil
	})
	return total, err
}
