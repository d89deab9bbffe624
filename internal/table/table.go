// Package table holds the in-memory tabular representation shared by the
// loaders, transforms, join and sinks.
package table

import (
	"sort"
	"strconv"
	"strings"
)

// Row maps column name to cell. A nil or absent cell is missing.
type Row map[string]any

// Table is a named, column-ordered collection of rows.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// New creates an empty table with the given columns.
func New(name string, columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Name: name, Columns: cols}
}

// Len returns the row count.
func (t *Table) Len() int { return len(t.Rows) }

// Has reports whether the table declares column.
func (t *Table) Has(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// AddColumn appends column to the column order if it is not already present.
func (t *Table) AddColumn(column string) {
	if !t.Has(column) {
		t.Columns = append(t.Columns, column)
	}
}

// Append adds a row.
func (t *Table) Append(r Row) { t.Rows = append(t.Rows, r) }

// Clone returns a deep copy of the table structure. Cell values are shared,
// which is safe because cells are immutable scalars.
func (t *Table) Clone() *Table {
	out := New(t.Name, t.Columns)
	out.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// Clone copies the row map.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Project returns a copy holding only the listed columns that exist in t, in
// the order given.
func (t *Table) Project(columns []string) *Table {
	var keep []string
	for _, c := range columns {
		if t.Has(c) {
			keep = append(keep, c)
		}
	}
	out := New(t.Name, keep)
	out.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		nr := make(Row, len(keep))
		for _, c := range keep {
			if v, ok := r[c]; ok {
				nr[c] = v
			}
		}
		out.Rows[i] = nr
	}
	return out
}

// Distinct returns the distinct non-missing values of column in their
// canonical string form, sorted ascending. Numeric columns sort numerically.
func (t *Table) Distinct(column string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.Rows {
		v := r[column]
		if IsMissing(v) {
			continue
		}
		s := Format(v)
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	SortValues(out)
	return out
}

// FillMissing replaces every missing cell of column with value. An empty
// column name fills all columns.
func (t *Table) FillMissing(column string, value any) int {
	cols := t.Columns
	if column != "" {
		cols = []string{column}
	}
	n := 0
	for _, r := range t.Rows {
		for _, c := range cols {
			if IsMissing(r[c]) {
				r[c] = value
				n++
			}
		}
	}
	return n
}

// IsMissing reports whether v represents a missing cell.
func IsMissing(v any) bool {
	return v == nil
}

// Format renders a cell as its canonical string. Missing renders as "".
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}

// Key returns the comparison key of a cell for joins. Integral numbers are
// canonicalised so "12" and "12.0" compare equal. Missing cells have no key.
func Key(v any) (string, bool) {
	if IsMissing(v) {
		return "", false
	}
	s := strings.TrimSpace(Format(v))
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10), true
	}
	return s, true
}

// SortValues sorts values numerically when every value parses as a number,
// otherwise lexicographically.
func SortValues(values []string) {
	nums := make([]float64, len(values))
	numeric := true
	for i, v := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			numeric = false
			break
		}
		nums[i] = f
	}
	if !numeric {
		sort.Strings(values)
		return
	}
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return nums[idx[a]] < nums[idx[b]] })
	sorted := make([]string, len(values))
	for i, j := range idx {
		sorted[i] = values[j]
	}
	copy(values, sorted)
}
