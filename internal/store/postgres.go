package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mgbpm/clingen-ai-tools/internal/db"
	"github.com/mgbpm/clingen-ai-tools/internal/resilience"
	"github.com/mgbpm/clingen-ai-tools/internal/table"
)

// PostgresStore writes output tables into a PostgreSQL schema using COPY.
type PostgresStore struct {
	pool    db.Pool
	schema  string
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool writing into schema.
func NewPostgres(ctx context.Context, connString, schema string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := resilience.Do(ctx, resilience.DefaultPolicy("postgres: ping"), pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return newPostgresStore(pool, schema), nil
}

// newPostgresStore wraps pool. An empty schema leaves table names
// unqualified so they resolve through the connection's search_path.
func newPostgresStore(pool db.Pool, schema string) *PostgresStore {
	return &PostgresStore{pool: pool, schema: schema, closeFn: pool.Close}
}

func (s *PostgresStore) runsTable() string {
	return db.QualifiedName(s.schema, "runs")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	var stmts []string
	if s.schema != "" {
		stmts = append(stmts, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{s.schema}.Sanitize())
	}
	stmts = append(stmts, `CREATE TABLE IF NOT EXISTS `+s.runsTable()+` (
	id         TEXT PRIMARY KEY,
	sources    TEXT NOT NULL DEFAULT '',
	join_run   BOOLEAN NOT NULL DEFAULT false,
	status     TEXT NOT NULL DEFAULT 'running',
	tables     INTEGER NOT NULL DEFAULT 0,
	row_count  BIGINT NOT NULL DEFAULT 0,
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return eris.Wrap(err, "postgres: migrate")
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func postgresType(k columnKind) string {
	switch k {
	case kindInteger:
		return "BIGINT"
	case kindReal:
		return "DOUBLE PRECISION"
	case kindBoolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// WriteTable recreates the table derived from name and bulk-loads t with
// COPY. The whole replacement is retried on transient errors.
func (s *PostgresStore) WriteTable(ctx context.Context, name string, t *table.Table) (int64, error) {
	tableName := TableName(name)
	kinds := inferKinds(t)
	cols := make([]db.Column, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = db.Column{Name: c, Type: postgresType(kinds[i])}
	}
	rows := rowValues(t, kinds)

	n, err := resilience.DoVal(ctx, resilience.DefaultPolicy("postgres: write "+tableName), func(ctx context.Context) (int64, error) {
		if err := db.ReplaceTable(ctx, s.pool, s.schema, tableName, cols); err != nil {
			return 0, err
		}
		if s.schema == "" {
			return db.CopyFrom(ctx, s.pool, tableName, t.Columns, rows)
		}
		return db.CopyFromSchema(ctx, s.pool, s.schema, tableName, t.Columns, rows)
	})
	if err != nil {
		return 0, eris.Wrap(err, "postgres: write table")
	}

	zap.L().Info("postgres: wrote table",
		zap.String("table", db.QualifiedName(s.schema, tableName)),
		zap.Int64("rows", n),
		zap.Int("columns", len(t.Columns)),
	)
	return n, nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, sources []string, join bool) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+s.runsTable()+` (id, sources, join_run, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, joinSources(sources), join, string(RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
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

func (s *PostgresStore) FinishRun(ctx context.Context, run *Run) error {
	run.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE `+s.runsTable()+` SET status = $1, tables = $2, row_count = $3, error = $4, updated_at = $5 WHERE id = $6`,
		string(run.Status), run.Tables, run.Rows, run.Error, run.UpdatedAt, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", run.ID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, sources, join_run, status, tables, row_count, error, created_at, updated_at FROM ` +
		s.runsTable() + ` ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			sources string
			status  string
		)
		if err := rows.Scan(&r.ID, &sources, &r.Join, &status, &r.Tables, &r.Rows, &r.Error, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Sources = splitSources(sources)
		r.Status = RunStatus(status)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}
