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

// Package llm defines the language model providers used for answer
// generation.
//
// Streaming is the canonical primitive: every Provider yields answer
// fragments as an iter.Seq2 in the order the backend produced them.
// Providers that can answer in one request also implement Generator; for
// the rest, Generate drains the stream and concatenates it.
//
// Providers are selected by key through a Registry with an explicit default.
// Concrete providers live in subpackages (openrouter, ollama, gemini, mock)
// and are assembled by the providers package.
package llm
