package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Column is a column definition for CreateTable.
type Column struct {
	Name string
	Type string
}

// QualifiedName returns the quoted schema.table identifier. An empty schema
// yields an unqualified name.
func QualifiedName(schema, table string) string {
	if schema == "" {
		return pgx.Identifier{table}.Sanitize()
	}
	return pgx.Identifier{schema, table}.Sanitize()
}

// CreateTableSQL builds a CREATE TABLE statement with quoted identifiers.
func CreateTableSQL(schema, table string, columns []Column) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = pgx.Identifier{c.Name}.Sanitize() + " " + c.Type
	}
	return "CREATE TABLE " + QualifiedName(schema, table) + " (" + strings.Join(defs, ", ") + ")"
}

// ReplaceTable drops the table if it exists and recreates it with the given columns.
func ReplaceTable(ctx context.Context, pool Pool, schema, table string, columns []Column) error {
	if len(columns) == 0 {
		return eris.Errorf("db: table %s has no columns", table)
	}
	if schema != "" {
		if _, err := pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schema}.Sanitize()); err != nil {
			return eris.Wrapf(err, "db: create schema %s", schema)
		}
	}
	if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+QualifiedName(schema, table)); err != nil {
		return eris.Wrapf(err, "db: drop table %s", table)
	}
	if _, err := pool.Exec(ctx, CreateTableSQL(schema, table, columns)); err != nil {
		return eris.Wrapf(err, "db: create table %s", table)
	}
	return nil
}
