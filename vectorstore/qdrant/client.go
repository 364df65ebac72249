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

// Package qdrant implements vectorstore.Store over the Qdrant REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/vectorstore"
)

// Defaults for a local Qdrant.
const (
	DefaultHost       = "localhost"
	DefaultPort       = 6333
	DefaultCollection = "bot_documents"
	DefaultTimeout    = 15 * time.Second
)

// pointNamespace derives point ids. Qdrant only accepts unsigned integers
// or UUIDs, so chunk ids map to UUIDv5 values and the readable id stays in
// the payload as chunk_id.
var pointNamespace = uuid.MustParse("2f0c7a4e-9d51-4c6b-8e3a-5b7d1f9c0a64")

// PointID returns the Qdrant point id used for a chunk id.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

// Config describes the Qdrant endpoint.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	Collection string
	HTTPS      bool
	Timeout    time.Duration
}

// DefaultConfig returns the configuration of a local unauthenticated Qdrant.
func DefaultConfig() Config {
	return Config{
		Host:       DefaultHost,
		Port:       DefaultPort,
		Collection: DefaultCollection,
		Timeout:    DefaultTimeout,
	}
}

// BaseURL returns the REST root for the configuration.
func (c Config) BaseURL() string {
	scheme := "http"
	if c.HTTPS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Host, c.Port)
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: qdrant config: Host is required", core.ErrConfiguration)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: qdrant config: Port %d out of range", core.ErrConfiguration, c.Port)
	}
	if c.Collection == "" {
		return fmt.Errorf("%w: qdrant config: Collection is required", core.ErrConfiguration)
	}
	return nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("qdrant %s: status %d: %s", e.Op, e.Status, e.Body)
}

// Client talks to one Qdrant collection.
type Client struct {
	baseURL    string
	apiKey     string
	collection string
	http       *http.Client
	logger     *slog.Logger
}

var _ vectorstore.Store = (*Client)(nil)

// Option configures a Client.
type Option func(*Client) error

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) error {
		c.http = client
		return nil
	}
}

// WithBaseURL overrides the URL derived from Config, e.g. for a proxy.
func WithBaseURL(base string) Option {
	return func(c *Client) error {
		if _, err := url.Parse(base); err != nil {
			return fmt.Errorf("%w: qdrant base url: %w", core.ErrConfiguration, err)
		}
		c.baseURL = base
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		c.logger = logger.With("component", "qdrant")
		return nil
	}
}

func newClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:    cfg.BaseURL(),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		http:       &http.Client{Timeout: timeout},
		logger:     slog.Default().With("component", "qdrant"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// New creates a Qdrant store client.
func New(cfg Config, opts ...Option) (vectorstore.Store, error) {
	return newClient(cfg, opts...)
}

type collectionInfo struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

// EnsureCollection implements vectorstore.Store.
func (c *Client) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: collection dimension must be positive", core.ErrConfiguration)
	}

	var info collectionInfo
	err := c.do(ctx, "get collection", http.MethodGet, c.collectionPath(""), nil, &info)
	var status *StatusError
	switch {
	case err == nil:
		if size := info.Result.Config.Params.Vectors.Size; size != dimension {
			return fmt.Errorf("%w: collection %s has size %d, embedder produces %d",
				core.ErrDimensionMismatch, c.collection, size, dimension)
		}
		return nil
	case errors.As(err, &status) && status.Status == http.StatusNotFound:
	default:
		return err
	}

	create := map[string]any{
		"vectors": map[string]any{"size": dimension, "distance": "Cosine"},
	}
	if err := c.do(ctx, "create collection", http.MethodPut, c.collectionPath(""), create, nil); err != nil {
		return err
	}
	index := map[string]any{"field_name": "id", "field_schema": "keyword"}
	if err := c.do(ctx, "create payload index", http.MethodPut, c.collectionPath("/index"), index, nil); err != nil {
		c.logger.Warn("failed to index scoping field", "err", err)
	}
	c.logger.Info("created collection", "collection", c.collection, "dimension", dimension)
	return nil
}

type wirePoint struct {
	ID      string        `json:"id"`
	Vector  []float32     `json:"vector,omitempty"`
	Payload *core.Payload `json:"payload,omitempty"`
	Score   float32       `json:"score,omitempty"`
}

// Upsert implements vectorstore.Store.
func (c *Client) Upsert(ctx context.Context, point core.Point) error {
	if point.ChunkID == "" {
		return fmt.Errorf("%w: point has no chunk id", vectorstore.ErrInvalidQuery)
	}
	payload := point.Payload
	payload.ChunkID = point.ChunkID
	body := map[string]any{
		"points": []wirePoint{{ID: PointID(point.ChunkID), Vector: point.Vector, Payload: &payload}},
	}
	return c.do(ctx, "upsert", http.MethodPut, c.collectionPath("/points?wait=true"), body, nil)
}

// Retrieve implements vectorstore.Store.
func (c *Client) Retrieve(ctx context.Context, chunkID string) (*core.Payload, error) {
	body := map[string]any{
		"ids":          []string{PointID(chunkID)},
		"with_payload": true,
		"with_vector":  false,
	}
	var resp struct {
		Result []wirePoint `json:"result"`
	}
	if err := c.do(ctx, "retrieve", http.MethodPost, c.collectionPath("/points"), body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Result) == 0 || resp.Result[0].Payload == nil {
		return nil, nil
	}
	return resp.Result[0].Payload, nil
}

// documentFilter matches points whose "id" payload equals any of ids.
func documentFilter(ids []string) map[string]any {
	should := make([]map[string]any, len(ids))
	for i, id := range ids {
		should[i] = map[string]any{"key": "id", "match": map[string]any{"value": id}}
	}
	return map[string]any{"should": should}
}

// Search implements vectorstore.Store.
func (c *Client) Search(ctx context.Context, query vectorstore.SearchQuery) ([]core.RetrievedChunk, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	body := map[string]any{
		"vector":       query.Vector,
		"limit":        query.Limit,
		"with_payload": true,
	}
	if query.ScoreThreshold > 0 {
		body["score_threshold"] = query.ScoreThreshold
	}
	if len(query.DocumentIDs) > 0 {
		body["filter"] = documentFilter(query.DocumentIDs)
	}

	var resp struct {
		Result []wirePoint `json:"result"`
	}
	if err := c.do(ctx, "search", http.MethodPost, c.collectionPath("/points/search"), body, &resp); err != nil {
		return nil, err
	}
	results := make([]core.RetrievedChunk, 0, len(resp.Result))
	for _, p := range resp.Result {
		if p.Payload == nil {
			continue
		}
		results = append(results, core.RetrievedChunk{Payload: *p.Payload, Score: p.Score})
	}
	return results, nil
}

// Scroll implements vectorstore.Store.
func (c *Client) Scroll(ctx context.Context, documentIDs []string, limit int, offset string) (*vectorstore.ScrollPage, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: scroll limit must be positive", vectorstore.ErrInvalidQuery)
	}
	body := map[string]any{
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if offset != "" {
		body["offset"] = offset
	}
	if len(documentIDs) > 0 {
		body["filter"] = documentFilter(documentIDs)
	}

	var resp struct {
		Result struct {
			Points         []wirePoint     `json:"points"`
			NextPageOffset json.RawMessage `json:"next_page_offset"`
		} `json:"result"`
	}
	if err := c.do(ctx, "scroll", http.MethodPost, c.collectionPath("/points/scroll"), body, &resp); err != nil {
		return nil, err
	}

	page := &vectorstore.ScrollPage{NextOffset: offsetString(resp.Result.NextPageOffset)}
	for _, p := range resp.Result.Points {
		if p.Payload != nil {
			page.Payloads = append(page.Payloads, *p.Payload)
		}
	}
	return page, nil
}

// offsetString renders a next_page_offset, which is a UUID string, an
// integer or null.
func offsetString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n uint64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatUint(n, 10)
	}
	return ""
}

// Ping implements vectorstore.Store.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodGet, "/collections", nil, nil)
}

// Close implements vectorstore.Store.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) collectionPath(suffix string) string {
	return "/collections/" + url.PathEscape(c.collection) + suffix
}

// do sends one JSON request. Transport failures and 5xx responses wrap
// core.ErrStoreUnavailable.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: qdrant %s: %w", core.ErrStoreUnavailable, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		statusErr := &StatusError{Op: op, Status: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: %w", core.ErrStoreUnavailable, statusErr)
		}
		return statusErr
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("qdrant %s: decode response: %w", op, err)
		}
	}
	return nil
}
