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

import "errors"

// Failure taxonomy shared by every layer.
var (
	// ErrConfiguration is fatal at startup: bad dimension, missing credentials, invalid limits.
	ErrConfiguration = errors.New("configuration error")

	// ErrProviderUnavailable indicates a network or auth failure talking to an embedding or LLM backend.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrStoreUnavailable indicates the vector store could not be reached.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrUnknownProvider is returned for an unrecognized provider key.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrDimensionMismatch indicates a vector length that disagrees with the configured dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrNoContentExtracted indicates extraction produced no text for a document.
	ErrNoContentExtracted = errors.New("no content extracted")

	// ErrNoChunksGenerated indicates splitting produced no chunks for a document.
	ErrNoChunksGenerated = errors.New("no chunks generated")

	// ErrNoChunksStored indicates every chunk of a document failed.
	ErrNoChunksStored = errors.New("no chunks stored")
)

// Validation errors.
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidChatRequest indicates a ChatRequest failed validation.
	ErrInvalidChatRequest = errors.New("invalid chat request")

	// ErrEmptyDocumentID indicates a missing document identifier.
	ErrEmptyDocumentID = errors.New("document id cannot be empty")

	// ErrEmptyQuestion indicates the question is blank.
	ErrEmptyQuestion = errors.New("question cannot be empty")

	// ErrNegativeSize indicates a negative document size.
	ErrNegativeSize = errors.New("size cannot be negative")

	// ErrFileNotFound indicates a document path that does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrFileUnreadable indicates a document path the process may not read.
	ErrFileUnreadable = errors.New("file not readable")

	// ErrNotAFile indicates a document path naming a directory.
	ErrNotAFile = errors.New("path is not a file")
)

// IsValidationError reports whether err is a caller error rather than a system failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidDocument) || errors.Is(err, ErrInvalidChatRequest)
}
