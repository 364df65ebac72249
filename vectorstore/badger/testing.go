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

	"github.com/poiesic/docent/vectorstore"
)

// NewMemoryStore creates an in-memory store with the collection already
// created at the given dimension. Close releases the backend.
func NewMemoryStore(dimension int, opts ...Option) (vectorstore.Store, error) {
	s, err := Open("", true, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureCollection(context.Background(), dimension); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
