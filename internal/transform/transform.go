// Package transform implements the per-column transformations declared by a
// source dictionary: value mapping, NA fill, one-hot and category encoding,
// date features, templates, row expansion and join-key filtering.
//
// Every Step returns a new table; the input table is never modified.
package transform

import (
	"time"

	"go.uber.org/zap"

	"github.com/mgbpm/clingen-ai-tools/internal/model"
	"github.com/mgbpm/clingen-ai-tools/internal/table"
)

// Derived column prefixes.
const (
	OneHotMarker   = "hot"
	CategoryPrefix = "cat"
	AgePrefix      = "age"
	DaysPrefix     = "days"
	TemplateSuffix = "template"
)

// Options switches transform families on. A family runs only when both its
// option and the column's dictionary flag are set.
type Options struct {
	Map        bool
	OneHot     bool
	Categories bool
	Age        bool
	Days       bool
	Expand     bool
	Template   bool

	// Now is the reference clock for date features. Nil means time.Now.
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Step is one transformation over a table.
type Step interface {
	Name() string
	Apply(t *table.Table) (*table.Table, error)
}

// Plan returns the ordered steps for one dictionary column: value mapping,
// NA fill, one-hot, category, date features.
func Plan(entry model.DictionaryEntry, mappings []model.MappingEntry, opts Options) []Step {
	var steps []Step
	if opts.Map && entry.Map.IsTrue() {
		steps = append(steps, &ValueMap{Column: entry.Column, Mappings: mappings})
	}
	if entry.NAValue != nil {
		steps = append(steps, &FillNA{Column: entry.Column, Value: *entry.NAValue})
	}
	if opts.OneHot && entry.OneHot.IsTrue() {
		steps = append(steps, &OneHot{Column: entry.Column})
	}
	if opts.Categories && entry.Category.IsTrue() {
		steps = append(steps, &Category{Column: entry.Column})
	}
	if entry.HasDateFormat() {
		age := opts.Age && entry.Age.IsTrue()
		days := opts.Days && entry.Days.IsTrue()
		if age || days {
			steps = append(steps, &DateFeatures{
				Column: entry.Column,
				Format: entry.Format,
				Age:    age,
				Days:   days,
				Now:    opts.now(),
			})
		}
	}
	return steps
}

// Run applies steps in order and returns the final table.
func Run(t *table.Table, steps []Step) (*table.Table, error) {
	var err error
	for _, s := range steps {
		if t, err = s.Apply(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// absent logs and reports whether column is missing from t.
func absent(t *table.Table, step, column string) bool {
	if t.Has(column) {
		return false
	}
	zap.L().Warn("dictionary column not in table, skipping",
		zap.String("source", t.Name),
		zap.String("step", step),
		zap.String("column", column),
	)
	return true
}

// taken logs and reports whether a derived column would replace an existing
// column of t. Existing columns are never overwritten.
func taken(t *table.Table, step, column string) bool {
	if !t.Has(column) {
		return false
	}
	zap.L().Warn("derived column already exists, skipping",
		zap.String("source", t.Name),
		zap.String("step", step),
		zap.String("column", column),
	)
	return true
}
