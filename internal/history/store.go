// Package history keeps a local SQLite record of every finished generation,
// so artifact URLs outlive the terminal session that produced them.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go driver

	"github.com/five82/reel/internal/lifecycle"
)

const (
	schemaVersion = 1
	busyTimeout   = 5 * time.Second
	// DefaultLimit bounds Recent when the caller passes zero.
	DefaultLimit = 20
)

// Entry is one stored outcome.
type Entry struct {
	ID          string    `json:"id"`
	BatchID     string    `json:"batch_id"`
	Index       int       `json:"index"`
	Model       string    `json:"model"`
	RequestID   string    `json:"request_id,omitempty"`
	FinalStatus string    `json:"final_status,omitempty"`
	VideoURL    string    `json:"video_url,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	ElapsedMS   int64     `json:"elapsed_ms"`
	Error       string    `json:"error,omitempty"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// OK reports whether the entry produced a video.
func (e Entry) OK() bool {
	return e.Error == "" && e.VideoURL != ""
}

// Store persists outcomes in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the history database at path and migrates it.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("history: create dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open failed: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: ping failed: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	var current int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return err
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS outcomes (
		id TEXT PRIMARY KEY,
		batch_id TEXT NOT NULL,
		record_index INTEGER NOT NULL,
		model TEXT NOT NULL,
		request_id TEXT,
		final_status TEXT,
		video_url TEXT,
		content_type TEXT,
		elapsed_ms INTEGER NOT NULL,
		error TEXT,
		error_kind TEXT,
		recorded_at_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_outcomes_recorded ON outcomes(recorded_at_ms);
	CREATE INDEX IF NOT EXISTS idx_outcomes_batch ON outcomes(batch_id, record_index);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// Record stores the outcomes of one batch in a single transaction.
func (s *Store) Record(ctx context.Context, batchID string, outcomes []lifecycle.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
	INSERT INTO outcomes (id, batch_id, record_index, model, request_id, final_status, video_url, content_type, elapsed_ms, error, error_kind, recorded_at_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("history: prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	recordedAt := s.now().UnixMilli()
	for _, o := range outcomes {
		e := entryFor(batchID, o)
		if _, err := stmt.ExecContext(ctx,
			uuid.NewString(), e.BatchID, e.Index, e.Model,
			nullable(e.RequestID), nullable(e.FinalStatus), nullable(e.VideoURL), nullable(e.ContentType),
			e.ElapsedMS, nullable(e.Error), nullable(e.ErrorKind), recordedAt,
		); err != nil {
			return fmt.Errorf("history: insert record %d: %w", o.Index, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: commit: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest batch first and in record order
// within a batch.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	const query = `
	SELECT id, batch_id, record_index, model, request_id, final_status, video_url, content_type, elapsed_ms, error, error_kind, recorded_at_ms
	FROM outcomes
	ORDER BY recorded_at_ms DESC, batch_id, record_index
	LIMIT ?`
	return s.query(ctx, query, limit)
}

// Batch returns every entry recorded for batchID in record order.
func (s *Store) Batch(ctx context.Context, batchID string) ([]Entry, error) {
	const query = `
	SELECT id, batch_id, record_index, model, request_id, final_status, video_url, content_type, elapsed_ms, error, error_kind, recorded_at_ms
	FROM outcomes
	WHERE batch_id = ?
	ORDER BY record_index`
	return s.query(ctx, query, batchID)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e                                         Entry
			requestID, status, videoURL, contentType sql.NullString
			errText, errKind                          sql.NullString
			recordedAtMS                              int64
		)
		if err := rows.Scan(&e.ID, &e.BatchID, &e.Index, &e.Model, &requestID, &status, &videoURL, &contentType,
			&e.ElapsedMS, &errText, &errKind, &recordedAtMS); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.RequestID = requestID.String
		e.FinalStatus = status.String
		e.VideoURL = videoURL.String
		e.ContentType = contentType.String
		e.Error = errText.String
		e.ErrorKind = errKind.String
		e.RecordedAt = time.UnixMilli(recordedAtMS)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: rows: %w", err)
	}
	return entries, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	if errors.Is(err, sql.ErrConnDone) {
		return nil
	}
	return err
}

func entryFor(batchID string, o lifecycle.Outcome) Entry {
	e := Entry{
		BatchID:     batchID,
		Index:       o.Index,
		Model:       o.Model,
		RequestID:   o.RequestID,
		FinalStatus: string(o.FinalStatus),
		ElapsedMS:   o.Elapsed.Milliseconds(),
	}
	if o.Artifact != nil {
		e.VideoURL = o.Artifact.URL
		e.ContentType = o.Artifact.ContentType
	}
	if o.Err != nil {
		e.Error = o.Err.Error()
		e.ErrorKind = lifecycle.KindName(o.Err)
	}
	return e
}

func nullable(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
