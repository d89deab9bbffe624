package transform

import (
	"github.com/mgbpm/clingen-ai-tools/internal/table"
)

// FillNA replaces missing cells of one column with a literal.
type FillNA struct {
	Column string
	Value  string
}

// Name implements Step.
func (f *FillNA) Name() string { return "na:" + f.Column }

// Apply implements Step.
func (f *FillNA) Apply(t *table.Table) (*table.Table, error) {
	if absent(t, "na-value", f.Column) {
		return t, nil
	}
	out := t.Clone()
	out.FillMissing(f.Column, f.Value)
	return out, nil
}

// OneHot adds a boolean column {column}_hot_{value} for every distinct
// non-missing value, in ascending value order.
type OneHot struct {
	Column string
}

// Name implements Step.
func (o *OneHot) Name() string { return "onehot:" + o.Column }

// ColumnName returns the derived column for value.
func (o *OneHot) ColumnName(value string) string {
	return o.Column + "_" + OneHotMarker + "_" + value
}

// Apply implements Step.
func (o *OneHot) Apply(t *table.Table) (*table.Table, error) {
	if absent(t, "onehot", o.Column) {
		return t, nil
	}
	var values []string
	for _, v := range t.Distinct(o.Column) {
		if !taken(t, "onehot", o.ColumnName(v)) {
			values = append(values, v)
		}
	}
	out := t.Clone()
	for _, v := range values {
		out.AddColumn(o.ColumnName(v))
	}
	for _, r := range out.Rows {
		cur, present := "", !table.IsMissing(r[o.Column])
		if present {
			cur = table.Format(r[o.Column])
		}
		for _, v := range values {
			r[o.ColumnName(v)] = present && cur == v
		}
	}
	return out, nil
}

// Category adds cat_{column} holding an integer code per distinct value.
// Codes follow ascending value order; missing input yields a missing code.
type Category struct {
	Column string
}

// Name implements Step.
func (c *Category) Name() string { return "category:" + c.Column }

// ColumnName returns the derived column.
func (c *Category) ColumnName() string { return CategoryPrefix + "_" + c.Column }

// Apply implements Step.
func (c *Category) Apply(t *table.Table) (*table.Table, error) {
	if absent(t, "category", c.Column) || taken(t, "category", c.ColumnName()) {
		return t, nil
	}
	codes := make(map[string]int)
	for i, v := range t.Distinct(c.Column) {
		codes[v] = i
	}

	out := t.Clone()
	col := c.ColumnName()
	out.AddColumn(col)
	for _, r := range out.Rows {
		v := r[c.Column]
		if table.IsMissing(v) {
			r[col] = nil
			continue
		}
		r[col] = codes[table.Format(v)]
	}
	return out, nil
}
