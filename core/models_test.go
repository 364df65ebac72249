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

package core

import (
	"testing"
	"time"
)

func TestChunkID(t *testing.T) {
	tests := []struct {
		name       string
		documentID string
		index      int
		want       string
	}{
		{name: "first chunk", documentID: "doc1", index: 0, want: "doc1_chunk_0"},
		{name: "later chunk", documentID: "doc1", index: 12, want: "doc1_chunk_12"},
		{name: "uuid document", documentID: "4b1c-9e", index: 3, want: "4b1c-9e_chunk_3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChunkID(tt.documentID, tt.index); got != tt.want {
				t.Errorf("ChunkID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewChunks(t *testing.T) {
	chunks := NewChunks("doc1", []string{"alpha", "beta", "alpha"})

	if len(chunks) != 3 {
		t.Fatalf("NewChunks() returned %d chunks, want 3", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if c.Total != 3 {
			t.Errorf("chunk %d has total %d, want 3", i, c.Total)
		}
		if c.ID != ChunkID("doc1", i) {
			t.Errorf("chunk %d has id %q", i, c.ID)
		}
		if c.ContentHash != ContentHash(c.Text) {
			t.Errorf("chunk %d hash does not match its text", i)
		}
	}
	if chunks[0].ContentHash != chunks[2].ContentHash {
		t.Errorf("identical texts produced different hashes")
	}
	if chunks[0].ContentHash == chunks[1].ContentHash {
		t.Errorf("different texts produced the same hash")
	}
}

func TestNewPayload(t *testing.T) {
	uploaded := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	stored := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	doc := &Document{
		ID:             "doc1",
		Name:           "lab.txt",
		Path:           "/tmp/lab.txt",
		FileType:       ".txt",
		Size:           42,
		UploadedBy:     "user-1",
		OrganizationID: "org-1",
		UploadedAt:     uploaded,
	}
	chunk := NewChunks("doc1", []string{"Lab 5 covers thermodynamics."})[0]

	p := NewPayload(doc, chunk, "text-embedding-3-small", stored)

	if p.DocumentID != "doc1" || p.ChunkID != "doc1_chunk_0" {
		t.Errorf("unexpected ids: %q %q", p.DocumentID, p.ChunkID)
	}
	if p.PageContent != chunk.Text {
		t.Errorf("PageContent = %q", p.PageContent)
	}
	if p.Name != "lab.txt" || p.Path != "/tmp/lab.txt" || p.FileType != ".txt" || p.FileSize != 42 {
		t.Errorf("document metadata not copied: %+v", p)
	}
	if p.UploadedBy != "user-1" || p.OrganizationID != "org-1" {
		t.Errorf("scoping ids not copied: %+v", p)
	}
	if p.ChunkIndex != 0 || p.TotalChunks != 1 {
		t.Errorf("chunk position = %d/%d", p.ChunkIndex, p.TotalChunks)
	}
	if p.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("EmbeddingModel = %q", p.EmbeddingModel)
	}
	if !p.UploadedAt.Equal(uploaded) || !p.StoredAt.Equal(stored) {
		t.Errorf("timestamps not copied")
	}
}

func TestPayload_IsCurrent(t *testing.T) {
	p := &Payload{ContentHash: "abc", EmbeddingModel: "m1"}

	tests := []struct {
		name    string
		payload *Payload
		hash    string
		model   string
		want    bool
	}{
		{name: "same hash and model", payload: p, hash: "abc", model: "m1", want: true},
		{name: "changed content", payload: p, hash: "abd", model: "m1", want: false},
		{name: "changed model", payload: p, hash: "abc", model: "m2", want: false},
		{name: "absent payload", payload: nil, hash: "abc", model: "m1", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.payload.IsCurrent(tt.hash, tt.model); got != tt.want {
				t.Errorf("IsCurrent() = %v, want %v", got, tt.want)
			}
		})
	}
}
