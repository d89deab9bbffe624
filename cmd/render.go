package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/mgbpm/clingen-ai-tools/internal/metadata"
	"github.com/mgbpm/clingen-ai-tools/internal/pipeline"
	"github.com/mgbpm/clingen-ai-tools/internal/store"
)

func newTableWriter(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderSources(w io.Writer, sources []*metadata.Source) {
	t := newTableWriter(w)
	t.AppendHeader(table.Row{"Name", "File", "Delimiter", "Columns", "Join Groups", "Mappings", "Template"})
	for _, s := range sources {
		var groups []string
		seen := make(map[string]bool)
		for _, e := range s.Dictionary.JoinEntries() {
			g := string(e.JoinGroup)
			if !seen[g] {
				seen[g] = true
				groups = append(groups, g)
			}
		}
		template := "no"
		if s.Config.Template != "" {
			template = "yes"
		}
		t.AppendRow(table.Row{
			s.Name(),
			s.Config.File,
			string(s.Config.Delimiter),
			len(s.Dictionary.Entries),
			strings.Join(groups, ", "),
			len(s.Mappings),
			template,
		})
	}
	t.Render()
}

func renderCounts(w io.Writer, source string, rows int, counts []pipeline.ColumnCount) {
	_, _ = fmt.Fprintf(w, "%s (%d rows)\n", source, rows)
	t := newTableWriter(w)
	t.AppendHeader(table.Row{"Column", "Unique", "Missing"})
	for _, c := range counts {
		t.AppendRow(table.Row{c.Column, c.Unique, c.Missing})
	}
	t.Render()
}

func renderValueCounts(w io.Writer, column string, counts []pipeline.ValueCount) {
	t := newTableWriter(w)
	t.SetTitle(column)
	t.AppendHeader(table.Row{"Value", "Count"})
	for _, c := range counts {
		t.AppendRow(table.Row{c.Value, c.Count})
	}
	t.Render()
}

func renderCheck(w io.Writer, reports []pipeline.CheckReport) {
	t := newTableWriter(w)
	t.AppendHeader(table.Row{"Source", "Problem", "Columns"})
	for _, r := range reports {
		if r.OK() {
			t.AppendRow(table.Row{r.Source, "ok", ""})
			continue
		}
		for _, p := range []struct {
			label   string
			columns []string
		}{
			{"missing from data", r.MissingFromData},
			{"not in dictionary", r.Undeclared},
			{"map flag without mappings", r.UnmappedColumns},
			{"unknown template field", r.UnknownPlaceholders},
		} {
			if len(p.columns) > 0 {
				t.AppendRow(table.Row{r.Source, p.label, strings.Join(p.columns, ", ")})
			}
		}
	}
	t.Render()
}

func renderRuns(w io.Writer, runs []store.Run) {
	t := newTableWriter(w)
	t.AppendHeader(table.Row{"ID", "Status", "Sources", "Join", "Tables", "Rows", "Started", "Error"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID,
			string(r.Status),
			strings.Join(r.Sources, ","),
			r.Join,
			r.Tables,
			r.Rows,
			r.CreatedAt.Local().Format(time.DateTime),
			r.Error,
		})
	}
	t.Render()
}
