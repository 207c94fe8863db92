package auditlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"polyflow/internal/risk"
)

// Store keeps the risk gate's decision trail in its own sqlite database,
// separate from the trade journal so audits survive journal rotation.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("audit log path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS risk_audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			signal_id TEXT NOT NULL,
			market TEXT,
			decision TEXT NOT NULL,
			reason TEXT,
			requested_size REAL,
			approved_size REAL,
			ts INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_risk_audit_signal ON risk_audit_log(signal_id)`,
		`CREATE INDEX IF NOT EXISTS idx_risk_audit_ts ON risk_audit_log(ts)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure audit schema: %w", err)
		}
	}
	return nil
}

// Record implements risk.AuditSink.
func (s *Store) Record(ctx context.Context, e risk.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return fmt.Errorf("audit log store is closed")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO risk_audit_log (signal_id, market, decision, reason, requested_size, approved_size, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.SignalID, e.Market, e.Decision, e.Reason, e.RequestedSize, e.ApprovedSize, e.At.UnixMilli())
	return err
}

// Recent returns the newest entries first.
func (s *Store) Recent(ctx context.Context, limit int) ([]risk.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("audit log store is closed")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT signal_id, market, decision, reason, requested_size, approved_size, ts
		 FROM risk_audit_log ORDER BY ts DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []risk.AuditEntry
	for rows.Next() {
		var e risk.AuditEntry
		var ts int64
		if err := rows.Scan(&e.SignalID, &e.Market, &e.Decision, &e.Reason, &e.RequestedSize, &e.ApprovedSize, &ts); err != nil {
			return nil, err
		}
		e.At = time.UnixMilli(ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

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
