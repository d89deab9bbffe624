// Package join merges transformed source tables into one table by repeated
// left joins on the highest-precedence join group shared with the tables
// merged so far.
package join

import (
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mgbpm/clingen-ai-tools/internal/model"
	"github.com/mgbpm/clingen-ai-tools/internal/table"
)

// ErrNoJoinGroup is returned when a source shares no join group with the
// sources merged before it.
var ErrNoJoinGroup = eris.New("join: no shared join group")

// Input is one source to merge.
type Input struct {
	Name       string
	Table      *table.Table
	Dictionary *model.Dictionary
}

// Options configures Merge.
type Options struct {
	// NAValue fills every missing cell of the merged table when set.
	NAValue *string
}

// Step describes one merge performed by Merge.
type Step struct {
	Source      string
	Group       model.JoinGroup
	LeftColumn  string
	RightColumn string
	RowsBefore  int
	RowsAfter   int
	Matched     int
}

// Result is the merged table and the merges that built it.
type Result struct {
	Table *table.Table
	Steps []Step
}

// binding is a join group exposed by the accumulator and the first column
// registered for it.
type binding struct {
	group  model.JoinGroup
	column string
}

// Merge left-joins inputs in order. The first input seeds the accumulator.
// Each later input is joined on the first of its join groups, by precedence,
// that the accumulator already exposes. Inputs are not modified.
func Merge(inputs []Input, opts Options) (*Result, error) {
	if len(inputs) == 0 {
		return nil, eris.New("join: no sources to merge")
	}

	first := inputs[0]
	acc := first.Table.Clone()
	var available []binding
	available = register(available, first.Dictionary)
	res := &Result{}

	for _, in := range inputs[1:] {
		log := zap.L().With(zap.String("source", in.Name))

		candidates := Candidates(in.Dictionary)
		var chosen *model.DictionaryEntry
		var left string
		for i := range candidates {
			if col, ok := lookup(available, candidates[i].JoinGroup); ok {
				chosen, left = &candidates[i], col
				break
			}
		}
		if chosen == nil {
			return nil, eris.Wrapf(ErrNoJoinGroup, "join: source %q (groups %v, available %v)",
				in.Name, groupsOf(candidates), availableGroups(available))
		}

		step := Step{
			Source:      in.Name,
			Group:       chosen.JoinGroup,
			LeftColumn:  left,
			RightColumn: chosen.Column,
			RowsBefore:  acc.Len(),
		}
		acc, step.Matched = leftJoin(acc, in.Table, left, chosen.Column)
		step.RowsAfter = acc.Len()
		res.Steps = append(res.Steps, step)

		log.Info("join: merged source",
			zap.String("join_group", string(step.Group)),
			zap.String("left_column", step.LeftColumn),
			zap.String("right_column", step.RightColumn),
			zap.Int("rows_before", step.RowsBefore),
			zap.Int("rows_after", step.RowsAfter),
			zap.Int("matched", step.Matched),
		)

		available = register(available, in.Dictionary)
	}

	if opts.NAValue != nil {
		acc.FillMissing("", *opts.NAValue)
	}
	acc.Name = "merged"
	res.Table = acc
	return res, nil
}

// Candidates returns the dictionary's join-group entries ordered by group
// precedence. Entries of equal rank keep dictionary order.
func Candidates(dict *model.Dictionary) []model.DictionaryEntry {
	entries := dict.JoinEntries()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].JoinGroup.Rank() < entries[j].JoinGroup.Rank()
	})
	return entries
}

// register appends the dictionary's join entries, keeping the first column
// seen for each group in front.
func register(available []binding, dict *model.Dictionary) []binding {
	for _, e := range Candidates(dict) {
		available = append(available, binding{group: e.JoinGroup, column: e.Column})
	}
	return available
}

func lookup(available []binding, group model.JoinGroup) (string, bool) {
	for _, b := range available {
		if b.group == group {
			return b.column, true
		}
	}
	return "", false
}

// leftJoin keeps every left row, emitting one output row per matching right
// row. Missing keys never match. Columns present on both sides keep the left
// value.
func leftJoin(left, right *table.Table, leftCol, rightCol string) (*table.Table, int) {
	index := make(map[string][]table.Row)
	for _, r := range right.Rows {
		if k, ok := table.Key(r[rightCol]); ok {
			index[k] = append(index[k], r)
		}
	}

	out := table.New(left.Name, left.Columns)
	var added []string
	for _, c := range right.Columns {
		if !out.Has(c) {
			out.AddColumn(c)
			added = append(added, c)
		}
	}

	matched := 0
	out.Rows = make([]table.Row, 0, len(left.Rows))
	for _, l := range left.Rows {
		var hits []table.Row
		if k, ok := table.Key(l[leftCol]); ok {
			hits = index[k]
		}
		if len(hits) == 0 {
			nr := l.Clone()
			for _, c := range added {
				nr[c] = nil
			}
			out.Append(nr)
			continue
		}
		matched++
		for _, h := range hits {
			nr := l.Clone()
			for _, c := range added {
				nr[c] = h[c]
			}
			out.Append(nr)
		}
	}
	return out, matched
}

func groupsOf(entries []model.DictionaryEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, string(e.JoinGroup))
	}
	return out
}

func availableGroups(available []binding) []string {
	seen := make(map[model.JoinGroup]bool)
	var out []string
	for _, b := range available {
		if !seen[b.group] {
			seen[b.group] = true
			out = append(out, string(b.group))
		}
	}
	return out
}
