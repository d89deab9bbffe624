package transform

import (
	"go.uber.org/zap"

	"github.com/mgbpm/clingen-ai-tools/internal/model"
	"github.com/mgbpm/clingen-ai-tools/internal/table"
)

// ValueMap derives one column per distinct map-name from a left lookup of
// the column's string value against the mapping rows. Unmatched rows get a
// missing value; the row count never changes.
type ValueMap struct {
	Column   string
	Mappings []model.MappingEntry
}

// Name implements Step.
func (m *ValueMap) Name() string { return "map:" + m.Column }

// Apply implements Step.
func (m *ValueMap) Apply(t *table.Table) (*table.Table, error) {
	if absent(t, "map", m.Column) {
		return t, nil
	}
	names, lookups := m.lookups()
	if len(names) == 0 {
		zap.L().Warn("no mapping rows for map column",
			zap.String("source", t.Name),
			zap.String("column", m.Column),
		)
		return t, nil
	}

	out := t.Clone()
	for _, name := range names {
		if taken(t, "map", name) {
			continue
		}
		out.AddColumn(name)
		lookup := lookups[name]
		for _, r := range out.Rows {
			v := r[m.Column]
			if table.IsMissing(v) {
				r[name] = nil
				continue
			}
			if mapped, ok := lookup[table.Format(v)]; ok && mapped != "" {
				r[name] = mapped
			} else {
				r[name] = nil
			}
		}
	}
	return out, nil
}

// lookups groups the mapping rows for this column by map-name, in file
// order. The first entry for a value wins.
func (m *ValueMap) lookups() ([]string, map[string]map[string]string) {
	var names []string
	lookups := make(map[string]map[string]string)
	for _, e := range m.Mappings {
		if e.Column != m.Column || e.MapName == "" {
			continue
		}
		lookup, ok := lookups[e.MapName]
		if !ok {
			lookup = make(map[string]string)
			lookups[e.MapName] = lookup
			names = append(names, e.MapName)
		}
		if _, dup := lookup[e.Value]; !dup {
			lookup[e.Value] = e.MapValue
		}
	}
	return names, lookups
}
