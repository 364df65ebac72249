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

// Package server exposes the service over HTTP.
//
// Routes:
//
//	POST /embedd/local            ingest local files
//	POST /chat                    retrieval augmented answer, streamed by default
//	POST /chat/llm                direct model call without retrieval
//	GET  /debug/documents/{id}    stored chunks of a document
//	GET  /debug/search/{id}       retrieval trace for ?query=
//	GET  /documents               ingestion ledger
//	GET  /health                  vector store and provider status
//
// JSON responses use the envelope {status, message, data}.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/poiesic/docent"
)

const (
	// DefaultHealthTimeout bounds the vector store probe of GET /health.
	DefaultHealthTimeout = 2 * time.Second

	shutdownTimeout = 10 * time.Second
	maxBodyBytes    = 1 << 20
)

// Server is the HTTP front end of a docent.Service.
type Server struct {
	svc           *docent.Service
	handler       http.Handler
	healthTimeout time.Duration
	logger        *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithHealthTimeout bounds the store probe of the health endpoint.
func WithHealthTimeout(timeout time.Duration) Option {
	return func(s *Server) error {
		if timeout <= 0 {
			return fmt.Errorf("health timeout must be positive, got %v", timeout)
		}
		s.healthTimeout = timeout
		return nil
	}
}

// New creates a server for svc.
func New(svc *docent.Service, opts ...Option) (*Server, error) {
	if svc == nil {
		return nil, errors.New("server: service is required")
	}
	s := &Server{
		svc:           svc,
		healthTimeout: DefaultHealthTimeout,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "http")
	s.handler = withRequestLogging(s.logger, s.routes())
	return s, nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /embedd/local", s.handleEmbedLocal)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /chat/llm", s.handleChatLLM)
	mux.HandleFunc("GET /debug/documents/{id}", s.handleDebugDocument)
	mux.HandleFunc("GET /debug/search/{id}", s.handleDebugSearch)
	mux.HandleFunc("GET /documents", s.handleDocuments)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

// Handler returns the root handler, including request logging.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", listener.Addr().String())
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
