package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFrom bulk-loads rows into an unqualified table with COPY. The table
// resolves through the connection's search_path.
func CopyFrom(ctx context.Context, pool Pool, table string, columns []string, rows [][]any) (int64, error) {
	return copyRows(ctx, pool, pgx.Identifier{table}, columns, rows)
}

// CopyFromSchema bulk-loads rows into schema.table with COPY.
func CopyFromSchema(ctx context.Context, pool Pool, schema, table string, columns []string, rows [][]any) (int64, error) {
	return copyRows(ctx, pool, pgx.Identifier{schema, table}, columns, rows)
}

func copyRows(ctx context.Context, pool Pool, ident pgx.Identifier, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := pool.CopyFrom(ctx, ident, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", strings.Join(ident, "."))
	}
	return n, nil
}
