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

// Package reembed re-embeds stored chunks with the active embedding model.
//
// Switching models leaves every stored chunk tagged with the old model, so
// the next ingestion would re-embed them one by one. Reembedder does the
// same work up front: it scrolls the vector store page by page, embeds each
// page with a single batch call (retried with exponential backoff) and
// upserts the new vectors with the new model name. Chunks already embedded
// with the active model are skipped unless forced.
package reembed
