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

// Package mock provides an in-process ai.Embedder for tests and offline runs.
//
// # Usage in Tests
//
//	embedder := mock.NewMockEmbedder()
//	embedder.WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
//	    return nil, errors.New("provider down")
//	})
//
//	count := embedder.CallCount()
//
// # Default Behavior
//
// Vectors are derived from the lowercase words of the text on top of a
// constant baseline, so identical text always maps to the same vector and
// texts sharing words score higher than unrelated ones.
package mock
