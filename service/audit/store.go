package audit

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/handrail/handrail/model/approval"
)

// Record is one dispatched decision outcome.
type Record struct {
	ID        string
	AgentID   string
	ActionID  string
	Verb      approval.Verb
	Bulk      bool
	Succeeded bool
	Error     string
	LatencyMs int64
	CreatedAt time.Time
}

// Store is a SQLite-backed audit trail.
type Store struct {
	dsn string

	mu sync.Mutex
	db *sql.DB
}

// NewStore opens (creating if needed) the audit database at dsn.
func NewStore(dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("missing sqlite dsn")
	}
	s := &Store{dsn: dsn}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

// Append writes one record. The record ID is generated when empty.
func (s *Store) Append(ctx context.Context, rec Record) error {
	if s == nil {
		return fmt.Errorf("nil audit store")
	}
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	id := rec.ID
	if strings.TrimSpace(id) == "" {
		id = "aud_" + randHex(12)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO decision_audit (
  id, agent_id, action_id, verb, bulk, succeeded, error, latency_ms, created_at_unix
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, id, strings.TrimSpace(rec.AgentID), strings.TrimSpace(rec.ActionID), string(rec.Verb),
		boolInt(rec.Bulk), boolInt(rec.Succeeded), strings.TrimSpace(rec.Error),
		rec.LatencyMs, rec.CreatedAt.Unix(),
	)
	return err
}

// List returns the most recent records, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if s == nil {
		return nil, fmt.Errorf("nil audit store")
	}
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, agent_id, action_id, verb, bulk, succeeded, error, latency_ms, created_at_unix
FROM decision_audit
ORDER BY created_at_unix DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec           Record
			verb          string
			bulk          int
			succeeded     int
			createdAtUnix int64
		)
		if err := rows.Scan(&rec.ID, &rec.AgentID, &rec.ActionID, &verb, &bulk, &succeeded,
			&rec.Error, &rec.LatencyMs, &createdAtUnix); err != nil {
			return nil, err
		}
		rec.Verb = approval.Verb(verb)
		rec.Bulk = bulk != 0
		rec.Succeeded = succeeded != 0
		rec.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}
	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return err
	}
	s.db = db
	return s.migrate()
}

func (s *Store) ensureOpen() error {
	if s.db != nil {
		return nil
	}
	return s.open()
}

func (s *Store) migrate() error {
	if s.db == nil {
		return fmt.Errorf("sqlite db is not open")
	}
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS decision_audit (
  id TEXT PRIMARY KEY,
  agent_id TEXT NOT NULL,
  action_id TEXT NOT NULL,
  verb TEXT NOT NULL,
  bulk INTEGER NOT NULL DEFAULT 0,
  succeeded INTEGER NOT NULL,
  error TEXT,
  latency_ms INTEGER,
  created_at_unix INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decision_audit_agent ON decision_audit(agent_id);
`)
	return err
}

func randHex(nbytes int) string {
	if nbytes <= 0 {
		nbytes = 12
	}
	b := make([]byte, nbytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
