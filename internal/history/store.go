// Package history keeps a local journal of report runs in SQLite. It is an
// operator convenience: a failed journal write never fails a run.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// RunRecord is one journaled invocation.
type RunRecord struct {
	ID           string    `json:"id"`
	RunAt        time.Time `json:"run_at"`
	ReportDate   string    `json:"report_date"`
	Flow         string    `json:"flow"` // report or monitor
	Metric       string    `json:"metric"`
	Gross        string    `json:"gross"`
	Net          string    `json:"net"`
	AlertsFired  int       `json:"alerts_fired"`
	EmailMessage string    `json:"email_message_id"`
	EmailError   string    `json:"email_error"`
	ArchiveKey   string    `json:"archive_key"`
	Status       string    `json:"status"`
}

// Store is a SQLite-backed run journal.
type Store struct {
	db *sql.DB
}

// Open opens or creates the journal database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Record persists a run record.
func (s *Store) Record(ctx context.Context, r *RunRecord) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.RunAt.IsZero() {
		r.RunAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, run_at, report_date, flow, metric, gross, net, alerts_fired, email_message_id, email_error, archive_key, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.RunAt, r.ReportDate, r.Flow, r.Metric, r.Gross, r.Net,
		r.AlertsFired, r.EmailMessage, r.EmailError, r.ArchiveKey, r.Status,
	)
	if err != nil {
		return fmt.Errorf("insert run record: %w", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_at, report_date, flow, metric, gross, net, alerts_fired, email_message_id, email_error, archive_key, status
		 FROM runs ORDER BY run_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.RunAt, &r.ReportDate, &r.Flow, &r.Metric,
			&r.Gross, &r.Net, &r.AlertsFired, &r.EmailMessage, &r.EmailError,
			&r.ArchiveKey, &r.Status); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close releases resources.
func (s *Store) Close() error {
	return s.db.Close()
}
