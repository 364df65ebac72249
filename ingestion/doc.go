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

// Package ingestion turns documents into stored chunk vectors.
//
// For each document the pipeline splits the text, fingerprints every chunk
// and asks the vector store whether the chunk is already current. Chunks
// whose content hash and embedding model both match are skipped; the rest
// are embedded and upserted under the id "<documentID>_chunk_<index>".
//
// Chunks run on a bounded worker pool. A failing chunk is logged and
// counted and never stops its siblings; a document fails only when no chunk
// ends up current in the store.
//
// Re-ingesting an unchanged document therefore costs one store lookup per
// chunk and no embedding calls.
package ingestion
