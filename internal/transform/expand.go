package transform

import (
	"strings"

	"github.com/mgbpm/clingen-ai-tools/internal/table"
)

// Separator splits multi-valued cells during expansion.
const Separator = ","

// Expand replaces every row whose column value contains the separator with
// one row per whitespace-trimmed token. Expanded rows take the original
// row's position; other rows are untouched.
type Expand struct {
	Column string
}

// Name implements Step.
func (e *Expand) Name() string { return "expand:" + e.Column }

// Apply implements Step.
func (e *Expand) Apply(t *table.Table) (*table.Table, error) {
	if absent(t, "expand", e.Column) {
		return t, nil
	}
	out := table.New(t.Name, t.Columns)
	out.Rows = make([]table.Row, 0, len(t.Rows))
	for _, r := range t.Rows {
		v, ok := r[e.Column].(string)
		if !ok || !strings.Contains(v, Separator) {
			out.Append(r.Clone())
			continue
		}
		for _, tok := range strings.Split(v, Separator) {
			nr := r.Clone()
			nr[e.Column] = strings.TrimSpace(tok)
			out.Append(nr)
		}
	}
	return out, nil
}
