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

package search

import "github.com/poiesic/docent/core"

// SearchMonitor provides hooks to observe the retrieval process.
// Implement this interface to inspect intermediate steps, as the debug
// search endpoint does.
type SearchMonitor interface {
	Start(question string, documentIDs []string)
	AfterEmbedding(vector []float32)
	AfterSearch(hits []core.RetrievedChunk)
	Finish(results []core.RetrievedChunk, err error)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ []string)               {}
func (n *noopMonitor) AfterEmbedding(_ []float32)               {}
func (n *noopMonitor) AfterSearch(_ []core.RetrievedChunk)      {}
func (n *noopMonitor) Finish(_ []core.RetrievedChunk, _ error) {}

// Trace is a SearchMonitor that records what it observes.
type Trace struct {
	Question    string
	DocumentIDs []string
	Dimension   int
	Hits        int
	Err         error
}

var _ SearchMonitor = (*Trace)(nil)

func (t *Trace) Start(question string, documentIDs []string) {
	t.Question = question
	t.DocumentIDs = documentIDs
}

func (t *Trace) AfterEmbedding(vector []float32) { t.Dimension = len(vector) }

func (t *Trace) AfterSearch(hits []core.RetrievedChunk) { t.Hits = len(hits) }

func (t *Trace) Finish(_ []core.RetrievedChunk, err error) { t.Err = err }
