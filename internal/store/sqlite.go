package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mgbpm/clingen-ai-tools/internal/table"
)

// SQLiteStore writes output tables into a SQLite database using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	sources    TEXT NOT NULL DEFAULT '',
	join_run   INTEGER NOT NULL DEFAULT 0,
	status     TEXT NOT NULL DEFAULT 'running',
	tables     INTEGER NOT NULL DEFAULT 0,
	row_count  INTEGER NOT NULL DEFAULT 0,
	error      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func sqliteType(k columnKind) string {
	switch k {
	case kindInteger, kindBoolean:
		return "INTEGER"
	case kindReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// WriteTable replaces the table derived from name with the contents of t in a
// single transaction.
func (s *SQLiteStore) WriteTable(ctx context.Context, name string, t *table.Table) (int64, error) {
	tableName := TableName(name)
	if len(t.Columns) == 0 {
		return 0, eris.Errorf("sqlite: table %s has no columns", tableName)
	}
	kinds := inferKinds(t)

	defs := make([]string, len(t.Columns))
	cols := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = quoteIdent(c)
		defs[i] = cols[i] + " " + sqliteType(kinds[i])
		marks[i] = "?"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(tableName)); err != nil {
		return 0, eris.Wrapf(err, "sqlite: drop table %s", tableName)
	}
	if _, err := tx.ExecContext(ctx, "CREATE TABLE "+quoteIdent(tableName)+" ("+strings.Join(defs, ", ")+")"); err != nil {
		return 0, eris.Wrapf(err, "sqlite: create table %s", tableName)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+quoteIdent(tableName)+
		" ("+strings.Join(cols, ", ")+") VALUES ("+strings.Join(marks, ", ")+")")
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: prepare insert %s", tableName)
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, row := range rowValues(t, kinds) {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert into %s", tableName)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(err, "sqlite: commit %s", tableName)
	}

	zap.L().Info("sqlite: wrote table",
		zap.String("table", tableName),
		zap.Int64("rows", n),
		zap.Int("columns", len(t.Columns)),
	)
	return n, nil
}

func (s *SQLiteStore) CreateRun(ctx context.Context, sources []string, join bool) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, sources, join_run, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, joinSources(sources), join, string(RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &Run{
		ID:        id,
		Sources:   sources,
		Join:      join,
		Status:    RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, run *Run) error {
	run.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, tables = ?, row_count = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(run.Status), run.Tables, run.Rows, run.Error, run.UpdatedAt, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", run.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", run.ID)
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, sources, join_run, status, tables, row_count, error, created_at, updated_at FROM runs ORDER BY created_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			sources string
			status  string
		)
		if err := rows.Scan(&r.ID, &sources, &r.Join, &status, &r.Tables, &r.Rows, &r.Error, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Sources = splitSources(sources)
		r.Status = RunStatus(status)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}
