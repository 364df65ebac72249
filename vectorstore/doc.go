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

// Package vectorstore defines the storage contract for chunk vectors.
//
// A Store holds one collection of points. Each point is keyed by its chunk
// id and carries the chunk's flattened core.Payload. Upsert replaces the
// vector and payload of an id wholesale. Search ranks by cosine similarity
// and may be scoped to a set of document ids through the payload "id" field.
//
// Two implementations exist:
//
//   - vectorstore/qdrant: the Qdrant REST API, used in production
//   - vectorstore/badger: an embedded BadgerDB store with a brute-force
//     scan, used for local runs and tests
//
// Connection failures are reported wrapped in core.ErrStoreUnavailable.
// Stores never retry internally; callers own the retry policy.
package vectorstore
