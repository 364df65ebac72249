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

package server

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"log/slog"
	"net/http"
	"strings"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/ingestion"
	"github.com/poiesic/docent/ledger"
	"github.com/poiesic/docent/search"
	"github.com/poiesic/docent/vectorstore"
)

const (
	chunkPreviewLen  = 200
	searchPreviewLen = 300
	debugSearchLimit = 10
	debugScrollPage  = 100

	// defaultDebugQuery is used when GET /debug/search has no query.
	defaultDebugQuery = "lab 5"
)

type embedLocalRequest struct {
	FilePaths      []string `json:"file_path"`
	DocumentID     string   `json:"document_id"`
	UploadedBy     string   `json:"uploaded_by"`
	OrganizationID string   `json:"organization_id"`
}

type fileResult struct {
	Path string `json:"path"`
	*core.IngestResult
	Error string `json:"error,omitempty"`
}

func (s *Server) handleEmbedLocal(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.logger)

	var req embedLocalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, logger, err)
		return
	}
	if len(req.FilePaths) == 0 {
		writeError(w, logger, withDetail(ErrMissingField, "file_path"))
		return
	}
	if strings.TrimSpace(req.DocumentID) == "" {
		writeError(w, logger, withDetail(ErrMissingField, "document_id"))
		return
	}

	results := s.svc.Pipeline().IngestFiles(r.Context(), req.DocumentID, req.FilePaths, ingestion.Metadata{
		UploadedBy:     req.UploadedBy,
		OrganizationID: req.OrganizationID,
	})

	out := make([]fileResult, len(results))
	var firstErr error
	failed := 0
	for i, fr := range results {
		out[i] = fileResult{Path: fr.Path, IngestResult: fr.Result}
		if fr.Err != nil {
			failed++
			if firstErr == nil {
				firstErr = withDetail(fr.Err, fr.Path)
			}
			out[i].Error = messageFor(statusFor(fr.Err), fr.Err)
		}
	}
	if failed == len(results) {
		writeError(w, logger, firstErr)
		return
	}
	writeSuccess(w, out)
}

// providerError names the requested provider key when it was not usable.
func providerError(err error, key string) error {
	if errors.Is(err, core.ErrUnknownProvider) {
		return withDetail(err, key)
	}
	return err
}

// chatRequest mirrors core.ChatRequest with stream defaulting to true.
type chatRequest struct {
	Question    string   `json:"question"`
	DocumentIDs []string `json:"documents"`
	Stream      *bool    `json:"stream"`
	Provider    string   `json:"provider"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.logger)

	var body chatRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, logger, err)
		return
	}
	req := &core.ChatRequest{
		Question:    body.Question,
		DocumentIDs: body.DocumentIDs,
		Stream:      body.Stream == nil || *body.Stream,
		Provider:    body.Provider,
	}

	if !req.Stream {
		answer, err := s.svc.Orchestrator().Answer(r.Context(), req)
		if err != nil {
			writeError(w, logger, providerError(err, req.Provider))
			return
		}
		writeSuccess(w, answer)
		return
	}

	fragments, err := s.svc.Orchestrator().Stream(r.Context(), req)
	if err != nil {
		writeError(w, logger, providerError(err, req.Provider))
		return
	}
	streamText(w, logger, fragments)
}

func (s *Server) handleChatLLM(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.logger)

	var req core.ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, logger, err)
		return
	}
	reply, err := s.svc.Orchestrator().Direct(r.Context(), req.Provider, req.Question, req.Stream)
	if err != nil {
		writeError(w, logger, providerError(err, req.Provider))
		return
	}
	if req.Stream {
		streamText(w, logger, reply.Fragments)
		return
	}
	writeSuccess(w, reply.Text)
}

// streamText writes fragments as text/plain, flushing after each one. An
// error before the first fragment is still reported with a status code;
// later errors can only end the response.
func streamText(w http.ResponseWriter, logger *slog.Logger, fragments iter.Seq2[string, error]) {
	rc := http.NewResponseController(w)
	started := false
	for fragment, err := range fragments {
		if err != nil {
			if !started {
				writeError(w, logger, err)
				return
			}
			logger.Error("stream interrupted", "err", err)
			return
		}
		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := w.Write([]byte(fragment)); err != nil {
			logger.Debug("client went away", "err", err)
			return
		}
		if err := rc.Flush(); err != nil {
			logger.Debug("flush failed", "err", err)
		}
	}
	if !started {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
	}
}

type chunkInfo struct {
	ID             string         `json:"id"`
	DocumentID     string         `json:"document_id"`
	Score          *float32       `json:"score,omitempty"`
	ContentPreview string         `json:"content_preview"`
	Metadata       map[string]any `json:"metadata"`
}

func newChunkInfo(p core.Payload, previewLen int) chunkInfo {
	return chunkInfo{
		ID:             p.ChunkID,
		DocumentID:     p.DocumentID,
		ContentPreview: preview(p.PageContent, previewLen),
		Metadata:       metadata(p),
	}
}

func preview(content string, n int) string {
	if content == "" {
		return "No content"
	}
	runes := []rune(content)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes) + "..."
}

// metadata returns every payload field except the chunk text.
func metadata(p core.Payload) map[string]any {
	raw, err := json.Marshal(p)
	if err != nil {
		return map[string]any{}
	}
	m := map[string]any{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]any{}
	}
	delete(m, "page_content")
	return m
}

func (s *Server) handleDebugDocument(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.logger)
	documentID := r.PathValue("id")

	chunks, err := scrollDocument(r.Context(), s.svc.Store(), documentID)
	if err != nil {
		writeError(w, logger, err)
		return
	}
	infos := make([]chunkInfo, len(chunks))
	for i, p := range chunks {
		infos[i] = newChunkInfo(p, chunkPreviewLen)
	}
	writeSuccess(w, map[string]any{
		"document_id":  documentID,
		"chunks_found": len(infos),
		"chunks":       infos,
	})
}

// scrollDocument returns every stored payload of documentID.
func scrollDocument(ctx context.Context, store vectorstore.Store, documentID string) ([]core.Payload, error) {
	var (
		payloads []core.Payload
		offset   string
	)
	for {
		page, err := store.Scroll(ctx, []string{documentID}, debugScrollPage, offset)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, page.Payloads...)
		if page.NextOffset == "" {
			return payloads, nil
		}
		offset = page.NextOffset
	}
}

func (s *Server) handleDebugSearch(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.logger)
	documentID := r.PathValue("id")
	query := r.URL.Query().Get("query")
	if strings.TrimSpace(query) == "" {
		query = defaultDebugQuery
	}

	trace := &search.Trace{}
	hits, err := s.svc.Searcher().RetrieveWithMonitor(r.Context(), query, []string{documentID}, debugSearchLimit, trace)
	if err != nil {
		writeError(w, logger, err)
		return
	}
	results := make([]chunkInfo, len(hits))
	for i, hit := range hits {
		results[i] = newChunkInfo(hit.Payload, searchPreviewLen)
		score := hit.Score
		results[i].Score = &score
	}
	writeSuccess(w, map[string]any{
		"query":           query,
		"document_id":     documentID,
		"dimension":       trace.Dimension,
		"score_threshold": s.svc.Searcher().Threshold(),
		"results_found":   len(results),
		"results":         results,
	})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.logger)
	entries, err := s.svc.Ledger().List(r.Context())
	if err != nil {
		writeError(w, logger, err)
		return
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}
	writeSuccess(w, entries)
}

type healthReport struct {
	VectorStore string            `json:"vector_store"`
	Default     string            `json:"default_provider"`
	Providers   []string          `json:"providers"`
	Unavailable map[string]string `json:"unavailable_providers,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.logger)
	ctx, cancel := context.WithTimeout(r.Context(), s.healthTimeout)
	defer cancel()

	registry := s.svc.Providers()
	report := healthReport{
		VectorStore: "ok",
		Default:     registry.Default(),
		Providers:   registry.Names(),
		Unavailable: registry.Unavailable(),
	}
	if err := s.svc.Store().Ping(ctx); err != nil {
		logger.Warn("vector store health check failed", "err", err)
		report.VectorStore = "unavailable"
		writeJSON(w, http.StatusServiceUnavailable, envelope{Status: statusError, Message: "vector store unavailable", Data: report})
		return
	}
	writeSuccess(w, report)
}
