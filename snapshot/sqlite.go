package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/casualjim/agentgroup/api"
	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteFile is the database name inside a group's snapshot directory.
const SQLiteFile = "snapshots.db"

var _ Writer = (*SQLiteWriter)(nil)

// SQLiteWriter keeps the four logs of a group as append-only tables, one JSON record per
// row, numbered in append order.
type SQLiteWriter struct {
	path string

	mu      sync.Mutex
	db      *sql.DB
	variant api.Variant
}

// NewSQLite creates a writer for dir/snapshots.db. Nothing is opened until Init.
func NewSQLite(dir string) *SQLiteWriter {
	return &SQLiteWriter{path: filepath.Join(dir, SQLiteFile)}
}

// Path returns the database file.
func (w *SQLiteWriter) Path() string {
	return w.path
}

func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	return db, nil
}

func (w *SQLiteWriter) Init(ctx context.Context, variant api.Variant, profiles []Profile) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.db != nil {
		return nil
	}

	db, err := openSQLite(ctx, w.path)
	if err != nil {
		return err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to create snapshot tables: %w", err)
	}

	rows := make([]row, len(profiles))
	for i, p := range profiles {
		rows[i] = row{agentID: p.ID, record: p}
	}
	if err := insert(ctx, db, KindProfile, variant, rows); err != nil {
		_ = db.Close()
		return err
	}

	w.db = db
	w.variant = variant
	return nil
}

// createTables starts every log empty, like a freshly created file.
func createTables(ctx context.Context, db *sql.DB) error {
	for _, kind := range Kinds {
		stmts := []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				seq INTEGER PRIMARY KEY AUTOINCREMENT,
				agent_id TEXT NOT NULL,
				variant TEXT NOT NULL,
				record TEXT NOT NULL,
				written_at INTEGER NOT NULL
			);`, kind),
			fmt.Sprintf(`DELETE FROM %s;`, kind),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_agent_id ON %s(agent_id);`, kind, kind),
		}
		for _, stmt := range stmts {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

type row struct {
	agentID string
	record  any
}

// insert appends a batch in one transaction so a batch is either fully present or absent.
func insert(ctx context.Context, db *sql.DB, kind Kind, variant api.Variant, rows []row) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin %s append: %w", kind, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s (agent_id, variant, record, written_at) VALUES (?, ?, ?, ?)`, kind))
	if err != nil {
		return fmt.Errorf("failed to prepare %s append: %w", kind, err)
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for _, r := range rows {
		b, err := json.Marshal(r.record)
		if err != nil {
			return fmt.Errorf("failed to encode %s record: %w", kind, err)
		}
		if _, err := stmt.ExecContext(ctx, r.agentID, variant.String(), string(b), now); err != nil {
			return fmt.Errorf("failed to append %s record: %w", kind, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s append: %w", kind, err)
	}
	return nil
}

func (w *SQLiteWriter) handle() (*sql.DB, api.Variant, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.db == nil {
		return nil, 0, ErrNotInitialized
	}
	return w.db, w.variant, nil
}

func (w *SQLiteWriter) AppendStatus(ctx context.Context, records []Status) error {
	db, variant, err := w.handle()
	if err != nil {
		return err
	}
	if err := checkVariant(variant, records); err != nil {
		return err
	}
	rows := make([]row, len(records))
	for i, r := range records {
		rows[i] = row{agentID: r.AgentID(), record: r}
	}
	return insert(ctx, db, KindStatus, variant, rows)
}

func (w *SQLiteWriter) AppendDialog(ctx context.Context, dialogs ...api.Dialog) error {
	db, variant, err := w.handle()
	if err != nil {
		return err
	}
	rows := make([]row, len(dialogs))
	for i, d := range dialogs {
		rows[i] = row{agentID: d.ID, record: d}
	}
	return insert(ctx, db, KindDialog, variant, rows)
}

func (w *SQLiteWriter) AppendSurvey(ctx context.Context, surveys ...api.Survey) error {
	db, variant, err := w.handle()
	if err != nil {
		return err
	}
	rows := make([]row, len(surveys))
	for i, s := range surveys {
		rows[i] = row{agentID: s.ID, record: s}
	}
	return insert(ctx, db, KindSurvey, variant, rows)
}

func (w *SQLiteWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.db == nil {
		return nil
	}
	err := w.db.Close()
	w.db = nil
	return err
}

// ReadSQLite decodes every record of one log table, in append order.
func ReadSQLite[T any](ctx context.Context, path string, kind Kind) ([]T, error) {
	db, err := openSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT record FROM %s ORDER BY seq ASC`, kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("failed to decode %s record: %w", kind, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
