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

// Package prompt builds the grounding prompts sent to language models.
//
// Both templates are pure string formatting. With no context the model is
// told to reply with the refusal sentence; with context it must answer from
// that context alone, briefly, and close with a sources footer.
package prompt

import (
	"fmt"
	"strings"

	"github.com/poiesic/docent/core"
)

// Refusal is the fixed answer for questions the documents cannot answer.
const Refusal = "I looked far and deep but couldn't get what you are looking for."

const noContextTemplate = `You are a helpful AI assistant. You only answer questions based on the provided documents. Since no documents are available, respond with: "%s"

Question: %s

Answer:`

const contextTemplate = `You are a helpful AI assistant. You must ONLY answer questions based on the provided context from documents. Do not use any knowledge outside of the provided context.

IMPORTANT RULES:
1. Provide SHORT, CONCISE answers (maximum 2-3 sentences)
2. Be direct and to the point
3. If the question can be answered using the provided context, answer it accurately.
4. If the question cannot be answered from the provided context, respond EXACTLY with: "%s"
5. Do not make up information or use general knowledge not present in the context.
6. ALWAYS include source references at the end in this exact format:
   ---
   Sources: [List the specific files/pages/chapters where this information comes from]

Context from documents:
%s

Question: %s

Answer:`

// Build returns the prompt for question. Blank context selects the
// no-context template.
func Build(question, context string) string {
	if strings.TrimSpace(context) == "" {
		return fmt.Sprintf(noContextTemplate, Refusal, question)
	}
	return fmt.Sprintf(contextTemplate, Refusal, context, question)
}

// JoinContext concatenates chunk texts in retrieval order, separated by a
// blank line.
func JoinContext(chunks []core.RetrievedChunk) string {
	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Payload.PageContent)
	}
	return strings.Join(texts, "\n\n")
}
