package pipeline

import (
	"sort"

	"github.com/mgbpm/clingen-ai-tools/internal/model"
	"github.com/mgbpm/clingen-ai-tools/internal/table"
)

// ColumnCount summarises one column of a table.
type ColumnCount struct {
	Column  string
	Unique  int
	Missing int
}

// ValueCount is the frequency of one value in a column.
type ValueCount struct {
	Value string
	Count int
}

// UniqueCounts returns distinct and missing counts for every column, in
// column order.
func UniqueCounts(t *table.Table) []ColumnCount {
	out := make([]ColumnCount, 0, len(t.Columns))
	for _, c := range t.Columns {
		cc := ColumnCount{Column: c}
		seen := make(map[string]bool)
		for _, r := range t.Rows {
			v := r[c]
			if table.IsMissing(v) {
				cc.Missing++
				continue
			}
			seen[table.Format(v)] = true
		}
		cc.Unique = len(seen)
		out = append(out, cc)
	}
	return out
}

// ValueCounts returns value frequencies for column, most frequent first and
// ties broken by value. Missing cells are not counted.
func ValueCounts(t *table.Table, column string) []ValueCount {
	counts := make(map[string]int)
	for _, r := range t.Rows {
		if v := r[column]; !table.IsMissing(v) {
			counts[table.Format(v)]++
		}
	}
	out := make([]ValueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, ValueCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// MapColumns returns the dictionary columns flagged for value mapping.
func MapColumns(dict *model.Dictionary) []string {
	var out []string
	for _, e := range dict.Entries {
		if e.Map.IsTrue() {
			out = append(out, e.Column)
		}
	}
	return out
}
