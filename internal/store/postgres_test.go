package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock, schema: "clingen"}
	return s, mock
}

func TestPostgresStore_WriteTable(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE SCHEMA IF NOT EXISTS "clingen"`)).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS "clingen"."merged"`)).
		WillReturnResult(pgxmock.NewResult("DROP", 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE "clingen"."merged" ("gene-symbol" TEXT, "variation-id" TEXT, "hot" BOOLEAN)`)).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"clingen", "merged"}, []string{"gene-symbol", "variation-id", "hot"}).
		WillReturnResult(2)

	n, err := s.WriteTable(context.Background(), "merged.csv", sampleTable())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WriteTable_CopyError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE SCHEMA`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`DROP TABLE`).WillReturnResult(pgxmock.NewResult("DROP", 0))
	mock.ExpectExec(`CREATE TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"clingen", "merged"}, []string{"gene-symbol", "variation-id", "hot"}).
		WillReturnError(errors.New("disk full"))

	_, err := s.WriteTable(context.Background(), "merged.csv", sampleTable())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO clingen.merged")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE SCHEMA IF NOT EXISTS "clingen"`)).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "clingen"."runs"`)).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateAndFinishRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO "clingen"."runs"`).
		WithArgs(pgxmock.AnyArg(), "clinvar,gencc", true, "running", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(ctx, []string{"clinvar", "gencc"}, true)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)

	run.Tables, run.Rows = 3, 42
	run.Complete(nil)
	mock.ExpectExec(`UPDATE "clingen"."runs" SET status`).
		WithArgs("complete", 3, int64(42), "", pgxmock.AnyArg(), run.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.FinishRun(ctx, run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FinishRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE "clingen"."runs"`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), &Run{ID: "missing", Status: RunStatusComplete})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{"id", "sources", "join_run", "status", "tables", "row_count", "error", "created_at", "updated_at"}).
		AddRow("run-1", "clinvar", false, "complete", 1, int64(10), "", now, now)
	mock.ExpectQuery(`SELECT id, sources, join_run, status, tables, row_count, error, created_at, updated_at FROM "clingen"."runs"`).
		WithArgs(5).
		WillReturnRows(rows)

	runs, err := s.ListRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, []string{"clinvar"}, runs[0].Sources)
	assert.Equal(t, RunStatusComplete, runs[0].Status)
	assert.Equal(t, int64(10), runs[0].Rows)
	assert.Equal(t, now, runs[0].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id`).WillReturnError(errors.New("connection reset"))

	_, err := s.ListRuns(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: list runs")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WriteTable_RetriesTransient(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	cols := []string{"gene-symbol", "variation-id", "hot"}

	for _, copyErr := range []error{&pgconn.PgError{Code: "40001", Message: "could not serialize access"}, nil} {
		mock.ExpectExec(`CREATE SCHEMA`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
		mock.ExpectExec(`DROP TABLE`).WillReturnResult(pgxmock.NewResult("DROP", 0))
		mock.ExpectExec(`CREATE TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
		if copyErr != nil {
			mock.ExpectCopyFrom(pgx.Identifier{"clingen", "merged"}, cols).WillReturnError(copyErr)
		} else {
			mock.ExpectCopyFrom(pgx.Identifier{"clingen", "merged"}, cols).WillReturnResult(2)
		}
	}

	n, err := s.WriteTable(context.Background(), "merged.csv", sampleTable())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SearchPath(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	s := newPostgresStore(mock, "")

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "runs"`)).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	require.NoError(t, s.Migrate(context.Background()))

	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS "merged"`)).
		WillReturnResult(pgxmock.NewResult("DROP", 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE "merged" (`)).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"merged"}, []string{"gene-symbol", "variation-id", "hot"}).
		WillReturnResult(2)

	n, err := s.WriteTable(context.Background(), "merged.csv", sampleTable())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
