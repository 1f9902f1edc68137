package predictionlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/fleetintel/core/predictionlog"
)

// SQLiteStore persists entries in a SQLite database, one row per entry with
// the entry itself stored as JSON.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ predictionlog.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS prediction_logs (
        id TEXT PRIMARY KEY,
        tenant_id TEXT NOT NULL,
        job_id TEXT NOT NULL,
        created_at INTEGER NOT NULL,
        resolved INTEGER NOT NULL DEFAULT 0,
        record TEXT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS ix_prediction_logs_job ON prediction_logs (job_id, created_at);`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, e predictionlog.Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO prediction_logs (id, tenant_id, job_id, created_at, resolved, record) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.TenantID, e.JobID, e.CreatedAt.UnixNano(), e.Resolved(), string(b))
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// Resolve records actuals on the most recent entry for jobID.
func (s *SQLiteStore) Resolve(ctx context.Context, jobID string, actualProfit, actualCost, rate float64) (predictionlog.Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return predictionlog.Entry{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var data string
	err = tx.QueryRowContext(ctx,
		`SELECT record FROM prediction_logs WHERE job_id = ? ORDER BY created_at DESC LIMIT 1`, jobID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return predictionlog.Entry{}, fmt.Errorf("job %s: %w", jobID, predictionlog.ErrNotFound)
	}
	if err != nil {
		return predictionlog.Entry{}, fmt.Errorf("load entry: %w", err)
	}
	var e predictionlog.Entry
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return predictionlog.Entry{}, fmt.Errorf("unmarshal entry: %w", err)
	}
	resolved := e.ResolveActuals(actualProfit, actualCost, rate, s.now())
	b, err := json.Marshal(resolved)
	if err != nil {
		return predictionlog.Entry{}, fmt.Errorf("encode entry: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE prediction_logs SET resolved = 1, record = ? WHERE id = ?`, string(b), resolved.ID,
	); err != nil {
		return predictionlog.Entry{}, fmt.Errorf("update entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return predictionlog.Entry{}, fmt.Errorf("commit: %w", err)
	}
	return resolved, nil
}

// Query returns matching entries, oldest first. A positive Limit keeps the
// most recent ones.
func (s *SQLiteStore) Query(ctx context.Context, q predictionlog.Query) ([]predictionlog.Entry, error) {
	var args []any
	query := `SELECT record FROM prediction_logs WHERE 1=1`
	if q.TenantID != "" {
		query += ` AND tenant_id = ?`
		args = append(args, q.TenantID)
	}
	if q.ResolvedOnly {
		query += ` AND resolved = 1`
	}
	if !q.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, q.Since.UnixNano())
	}
	query += ` ORDER BY created_at DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var res []predictionlog.Entry
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var e predictionlog.Entry
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return nil, fmt.Errorf("unmarshal entry: %w", err)
		}
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Reverse(res)
	return res, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
