// Package auditlog persists the orchestrator's accepted runs and admin
// actions to an append-only SQLite table, standing in for the external log
// database the spec leaves unspecified. Grounded on the teacher's
// pkg/db/db.go connection setup (single-writer SQLite via modernc.org/sqlite).
package auditlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQL handle backing the audit trail.
type DB struct {
	sql *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	request_id   TEXT PRIMARY KEY,
	trace_id     TEXT NOT NULL,
	symbol       TEXT NOT NULL,
	side         TEXT NOT NULL,
	confidence   REAL NOT NULL,
	decision     TEXT NOT NULL,
	reject_reason TEXT,
	order_id     TEXT,
	status       TEXT,
	created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS admin_actions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	action     TEXT NOT NULL,
	actor      TEXT NOT NULL,
	detail     TEXT,
	created_at DATETIME NOT NULL
);
`

// Open creates the parent directory (if needed), opens the database, and
// applies the schema.
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, errors.New("auditlog: path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("auditlog: create directory: %w", err)
	}
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("auditlog: open sqlite: %w", err)
	}
	handle.SetMaxOpenConns(1)
	handle.SetConnMaxLifetime(time.Hour)

	if _, err := handle.Exec(schema); err != nil {
		handle.Close()
		return nil, fmt.Errorf("auditlog: apply schema: %w", err)
	}
	return &DB{sql: handle}, nil
}

// Close releases the underlying handle.
func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// RunRecord captures a single accepted/rejected pipeline run for audit.
type RunRecord struct {
	RequestID    string
	TraceID      string
	Symbol       string
	Side         string
	Confidence   float64
	Decision     string // accepted | rejected
	RejectReason string
	OrderID      string
	Status       string
	CreatedAt    time.Time
}

// RecordRun upserts a run's current state. The orchestrator calls this once,
// when it accepts a run; later pipeline outcomes are not written back.
func (d *DB) RecordRun(ctx context.Context, r RunRecord) error {
	_, err := d.sql.ExecContext(ctx, `
		INSERT INTO runs (request_id, trace_id, symbol, side, confidence, decision, reject_reason, order_id, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(request_id) DO UPDATE SET
			decision = excluded.decision,
			reject_reason = excluded.reject_reason,
			order_id = excluded.order_id,
			status = excluded.status
	`, r.RequestID, r.TraceID, r.Symbol, r.Side, r.Confidence, r.Decision, nullIfEmpty(r.RejectReason), nullIfEmpty(r.OrderID), nullIfEmpty(r.Status), r.CreatedAt)
	return err
}

// RecordAdminAction appends an operator-initiated control-plane action
// (the orchestrator records pnl_reset, halt, unhalt and dlq_requeue).
func (d *DB) RecordAdminAction(ctx context.Context, action, actor, detail string) error {
	_, err := d.sql.ExecContext(ctx, `
		INSERT INTO admin_actions (action, actor, detail, created_at) VALUES (?, ?, ?, ?)
	`, action, actor, detail, time.Now().UTC())
	return err
}

// RecentRuns returns the most recent run records, newest first.
func (d *DB) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT request_id, trace_id, symbol, side, confidence, decision,
		       COALESCE(reject_reason, ''), COALESCE(order_id, ''), COALESCE(status, ''), created_at
		FROM runs ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.RequestID, &r.TraceID, &r.Symbol, &r.Side, &r.Confidence,
			&r.Decision, &r.RejectReason, &r.OrderID, &r.Status, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
