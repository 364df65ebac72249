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
	"fmt"
	"time"
)

// StatusProcessed is the terminal status reported for an ingested document.
const StatusProcessed = "processed"

// Document is the logical unit submitted for ingestion.
// The ID is supplied by the caller and stays stable across re-ingestion.
type Document struct {
	ID             string
	Name           string
	Path           string
	FileType       string
	Size           int64
	UploadedBy     string
	OrganizationID string
	UploadedAt     time.Time
}

// Chunk is a contiguous slice of a document's extracted text.
type Chunk struct {
	ID          string
	DocumentID  string
	Index       int
	Total       int
	Text        string
	ContentHash string
}

// ChunkID returns the deterministic identifier of the chunk at index within a document.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, index)
}

// NewChunks builds the ordered chunk set of a document from already split texts.
func NewChunks(documentID string, texts []string) []Chunk {
	chunks := make([]Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = Chunk{
			ID:          ChunkID(documentID, i),
			DocumentID:  documentID,
			Index:       i,
			Total:       len(texts),
			Text:        text,
			ContentHash: ContentHash(text),
		}
	}
	return chunks
}

// Payload is the flattened metadata persisted with every chunk vector.
// The json names are the stored field names; "id" is the document scoping field.
type Payload struct {
	DocumentID     string    `json:"id"`
	ChunkID        string    `json:"chunk_id"`
	PageContent    string    `json:"page_content"`
	Name           string    `json:"name,omitempty"`
	Path           string    `json:"path,omitempty"`
	UploadedBy     string    `json:"uploaded_by,omitempty"`
	OrganizationID string    `json:"organization_id,omitempty"`
	FileType       string    `json:"file_type,omitempty"`
	FileSize       int64     `json:"file_size,omitempty"`
	UploadedAt     time.Time `json:"uploaded_timestamp,omitzero"`
	ChunkIndex     int       `json:"chunk_index"`
	TotalChunks    int       `json:"total_chunks"`
	ContentHash    string    `json:"content_hash"`
	EmbeddingModel string    `json:"embedding_model"`
	StoredAt       time.Time `json:"stored_at"`
}

// NewPayload flattens a chunk and its document metadata.
func NewPayload(doc *Document, chunk Chunk, embeddingModel string, storedAt time.Time) Payload {
	return Payload{
		DocumentID:     doc.ID,
		ChunkID:        chunk.ID,
		PageContent:    chunk.Text,
		Name:           doc.Name,
		Path:           doc.Path,
		UploadedBy:     doc.UploadedBy,
		OrganizationID: doc.OrganizationID,
		FileType:       doc.FileType,
		FileSize:       doc.Size,
		UploadedAt:     doc.UploadedAt,
		ChunkIndex:     chunk.Index,
		TotalChunks:    chunk.Total,
		ContentHash:    chunk.ContentHash,
		EmbeddingModel: embeddingModel,
		StoredAt:       storedAt,
	}
}

// IsCurrent reports whether a stored payload already holds the given content
// embedded with the given model. A nil payload is never current.
func (p *Payload) IsCurrent(contentHash, embeddingModel string) bool {
	return p != nil && p.ContentHash == contentHash && p.EmbeddingModel == embeddingModel
}

// Point is the unit written to a vector store.
type Point struct {
	ChunkID string
	Vector  []float32
	Payload Payload
}

// RetrievedChunk is a search hit. It is produced per query and never persisted.
type RetrievedChunk struct {
	Payload Payload
	Score   float32
}

// ChatRequest asks a question, optionally scoped to a set of documents.
// An empty DocumentIDs means direct generation without retrieval.
type ChatRequest struct {
	Question    string   `json:"question"`
	DocumentIDs []string `json:"documents"`
	Stream      bool     `json:"stream"`
	Provider    string   `json:"provider"`
}

// IngestResult summarizes the ingestion of one document.
// ChunksProcessed counts chunks that are current in the store after the run,
// that is ChunksStored plus ChunksSkipped.
type IngestResult struct {
	DocumentID      string `json:"document_id"`
	Status          string `json:"status"`
	ChunksProcessed int    `json:"chunks_processed"`
	ChunksStored    int    `json:"chunks_stored"`
	ChunksSkipped   int    `json:"chunks_skipped"`
	ChunksFailed    int    `json:"chunks_failed"`
	TotalChunks     int    `json:"total_chunks"`
}
