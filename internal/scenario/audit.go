package scenario

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// AuditStore persists scenario load marks in a local SQLite database so
// repeated loads of the same configuration are traceable by hash.
type AuditStore struct {
	db *sql.DB
}

// MarkRow is one persisted audit mark.
type MarkRow struct {
	ID           string
	ScenarioHash string
	Label        string
	Note         string
	CreatedAt    time.Time
}

// OpenAuditStore opens (creating if needed) the audit database at path.
func OpenAuditStore(path string) (*AuditStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("scenario: open audit db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with a single writer.

	const schema = `
CREATE TABLE IF NOT EXISTS audit_marks (
	id            TEXT PRIMARY KEY,
	scenario_hash TEXT NOT NULL,
	label         TEXT NOT NULL,
	note          TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_marks_hash ON audit_marks(scenario_hash);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("scenario: init audit schema: %w", err)
	}
	return &AuditStore{db: db}, nil
}

// RecordMark appends one mark and returns its ID.
func (s *AuditStore) RecordMark(ctx context.Context, scenarioHash, label, note string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_marks (id, scenario_hash, label, note, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, scenarioHash, label, note, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("scenario: record mark: %w", err)
	}
	return id, nil
}

// MarksFor returns all marks recorded for a scenario hash, in insertion
// order.
func (s *AuditStore) MarksFor(ctx context.Context, scenarioHash string) ([]MarkRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, scenario_hash, label, note, created_at FROM audit_marks WHERE scenario_hash = ? ORDER BY rowid`,
		scenarioHash)
	if err != nil {
		return nil, fmt.Errorf("scenario: query marks: %w", err)
	}
	defer rows.Close()

	var out []MarkRow
	for rows.Next() {
		var m MarkRow
		var created string
		if err := rows.Scan(&m.ID, &m.ScenarioHash, &m.Label, &m.Note, &created); err != nil {
			return nil, fmt.Errorf("scenario: scan mark: %w", err)
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *AuditStore) Close() error {
	return s.db.Close()
}
