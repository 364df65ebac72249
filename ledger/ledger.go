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

// Package ledger keeps the last ingestion result of every document in SQLite.
//
// The vector store only knows about chunks. The ledger remembers how many
// chunks a document had at its previous ingestion so the pipeline can warn
// when a shorter re-ingestion leaves stale chunks behind, and it backs the
// document listing of the CLI and HTTP API.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/poiesic/docent/core"
	_ "modernc.org/sqlite" // SQLite driver
)

// Entry is the ledger row of one document.
type Entry struct {
	DocumentID      string    `db:"document_id" json:"document_id"`
	Name            string    `db:"name" json:"name"`
	Path            string    `db:"path" json:"path"`
	FileType        string    `db:"file_type" json:"file_type"`
	UploadedBy      string    `db:"uploaded_by" json:"uploaded_by,omitempty"`
	OrganizationID  string    `db:"organization_id" json:"organization_id,omitempty"`
	Status          string    `db:"status" json:"status"`
	ChunksProcessed int       `db:"chunks_processed" json:"chunks_processed"`
	ChunksStored    int       `db:"chunks_stored" json:"chunks_stored"`
	ChunksSkipped   int       `db:"chunks_skipped" json:"chunks_skipped"`
	ChunksFailed    int       `db:"chunks_failed" json:"chunks_failed"`
	TotalChunks     int       `db:"total_chunks" json:"total_chunks"`
	UpdatedAtMillis int64     `db:"updated_at" json:"-"`
	UpdatedAt       time.Time `db:"-" json:"updated_at"`
}

const schema = `CREATE TABLE IF NOT EXISTS ingestions (
	document_id      TEXT PRIMARY KEY,
	name             TEXT NOT NULL DEFAULT '',
	path             TEXT NOT NULL DEFAULT '',
	file_type        TEXT NOT NULL DEFAULT '',
	uploaded_by      TEXT NOT NULL DEFAULT '',
	organization_id  TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL,
	chunks_processed INTEGER NOT NULL,
	chunks_stored    INTEGER NOT NULL,
	chunks_skipped   INTEGER NOT NULL,
	chunks_failed    INTEGER NOT NULL,
	total_chunks     INTEGER NOT NULL,
	updated_at       INTEGER NOT NULL
)`

const upsertEntry = `INSERT INTO ingestions (
	document_id, name, path, file_type, uploaded_by, organization_id, status,
	chunks_processed, chunks_stored, chunks_skipped, chunks_failed, total_chunks, updated_at
) VALUES (
	:document_id, :name, :path, :file_type, :uploaded_by, :organization_id, :status,
	:chunks_processed, :chunks_stored, :chunks_skipped, :chunks_failed, :total_chunks, :updated_at
) ON CONFLICT(document_id) DO UPDATE SET
	name = excluded.name,
	path = excluded.path,
	file_type = excluded.file_type,
	uploaded_by = excluded.uploaded_by,
	organization_id = excluded.organization_id,
	status = excluded.status,
	chunks_processed = excluded.chunks_processed,
	chunks_stored = excluded.chunks_stored,
	chunks_skipped = excluded.chunks_skipped,
	chunks_failed = excluded.chunks_failed,
	total_chunks = excluded.total_chunks,
	updated_at = excluded.updated_at`

// Ledger is a SQLite backed ingestion record. It is safe for concurrent use.
type Ledger struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open opens or creates the ledger database at path.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}
	db, err := sqlx.Connect("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return &Ledger{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record stores the outcome of an ingestion and returns the total chunk
// count recorded by the previous ingestion of the same document, or 0.
func (l *Ledger) Record(ctx context.Context, doc *core.Document, result *core.IngestResult) (int, error) {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var previous int
	err = tx.GetContext(ctx, &previous, `SELECT total_chunks FROM ingestions WHERE document_id = ?`, doc.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	entry := Entry{
		DocumentID:      doc.ID,
		Name:            doc.Name,
		Path:            doc.Path,
		FileType:        doc.FileType,
		UploadedBy:      doc.UploadedBy,
		OrganizationID:  doc.OrganizationID,
		Status:          result.Status,
		ChunksProcessed: result.ChunksProcessed,
		ChunksStored:    result.ChunksStored,
		ChunksSkipped:   result.ChunksSkipped,
		ChunksFailed:    result.ChunksFailed,
		TotalChunks:     result.TotalChunks,
		UpdatedAtMillis: l.now().UnixMilli(),
	}
	if _, err := tx.NamedExecContext(ctx, upsertEntry, entry); err != nil {
		return 0, err
	}
	return previous, tx.Commit()
}

// Get returns the entry of a document, or nil when it was never ingested.
func (l *Ledger) Get(ctx context.Context, documentID string) (*Entry, error) {
	var entry Entry
	err := l.db.GetContext(ctx, &entry, `SELECT * FROM ingestions WHERE document_id = ?`, documentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	entry.UpdatedAt = time.UnixMilli(entry.UpdatedAtMillis).UTC()
	return &entry, nil
}

// List returns every entry, most recently updated first.
func (l *Ledger) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	if err := l.db.SelectContext(ctx, &entries, `SELECT * FROM ingestions ORDER BY updated_at DESC, document_id`); err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].UpdatedAt = time.UnixMilli(entries[i].UpdatedAtMillis).UTC()
	}
	return entries, nil
}
