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
	"strings"
)

// ValidateDocument validates a Document before ingestion.
//
// Validation rules:
//   - ID must not be blank
//   - Size must not be negative
//
// Name, Path and the scoping ids are optional.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	if strings.TrimSpace(doc.ID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyDocumentID)
	}
	if doc.Size < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrNegativeSize)
	}
	return nil
}

// ValidateChatRequest validates a ChatRequest.
//
// Validation rules:
//   - Question must not be blank
//   - every entry of DocumentIDs must be non-blank
func ValidateChatRequest(req *ChatRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request is nil", ErrInvalidChatRequest)
	}
	if strings.TrimSpace(req.Question) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChatRequest, ErrEmptyQuestion)
	}
	for i, id := range req.DocumentIDs {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: documents[%d]: %w", ErrInvalidChatRequest, i, ErrEmptyDocumentID)
		}
	}
	return nil
}
