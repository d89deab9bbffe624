package store

import "github.com/mgbpm/clingen-ai-tools/internal/table"

type columnKind int

const (
	kindUnknown columnKind = iota
	kindText
	kindInteger
	kindReal
	kindBoolean
)

func kindOf(v any) columnKind {
	switch v.(type) {
	case bool:
		return kindBoolean
	case int, int64:
		return kindInteger
	case float64:
		return kindReal
	default:
		return kindText
	}
}

// inferKind picks the storage type for a column from its present values.
// Integers widen to real when mixed with floats; any other mix is text.
func inferKind(t *table.Table, column string) columnKind {
	kind := kindUnknown
	for _, r := range t.Rows {
		v := r[column]
		if table.IsMissing(v) {
			continue
		}
		k := kindOf(v)
		switch {
		case kind == kindUnknown || kind == k:
			kind = k
		case (kind == kindInteger && k == kindReal) || (kind == kindReal && k == kindInteger):
			kind = kindReal
		default:
			return kindText
		}
	}
	if kind == kindUnknown {
		return kindText
	}
	return kind
}

func inferKinds(t *table.Table) []columnKind {
	kinds := make([]columnKind, len(t.Columns))
	for i, c := range t.Columns {
		kinds[i] = inferKind(t, c)
	}
	return kinds
}

// cellValue converts a cell for a driver given the column's kind. Missing
// cells become NULL.
func cellValue(v any, kind columnKind) any {
	if table.IsMissing(v) {
		return nil
	}
	switch kind {
	case kindBoolean:
		return v
	case kindInteger:
		if n, ok := v.(int); ok {
			return int64(n)
		}
		return v
	case kindReal:
		switch n := v.(type) {
		case int:
			return float64(n)
		case int64:
			return float64(n)
		}
		return v
	default:
		return table.Format(v)
	}
}

func rowValues(t *table.Table, kinds []columnKind) [][]any {
	rows := make([][]any, len(t.Rows))
	for i, r := range t.Rows {
		vals := make([]any, len(t.Columns))
		for j, c := range t.Columns {
			vals[j] = cellValue(r[c], kinds[j])
		}
		rows[i] = vals
	}
	return rows
}
