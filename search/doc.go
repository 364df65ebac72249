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

// Package search retrieves the chunks most similar to a question, scoped to
// a set of documents.
//
// Retrieval embeds the question with the same embedder used at ingestion
// and asks the vector store for the nearest chunks whose payload "id" is one
// of the requested document ids. Hits below the score threshold are dropped
// and the store order is kept as is.
package search
