package transform

import (
	"regexp"
	"strings"

	"github.com/mgbpm/clingen-ai-tools/internal/table"
)

var placeholder = regexp.MustCompile(`\{\{|\}\}|\{([^{}]+)\}`)

// Template renders a per-row text column from a source template. {column}
// placeholders take the row's value, missing cells render empty, and {{ and
// }} produce literal braces.
type Template struct {
	Column string
	Text   string
}

// NewTemplate returns the template step for a source, writing {source}-template.
func NewTemplate(source, text string) *Template {
	return &Template{Column: source + "-" + TemplateSuffix, Text: text}
}

// Name implements Step.
func (tp *Template) Name() string { return "template:" + tp.Column }

// Apply implements Step.
func (tp *Template) Apply(t *table.Table) (*table.Table, error) {
	if taken(t, "template", tp.Column) {
		return t, nil
	}
	out := t.Clone()
	out.AddColumn(tp.Column)
	for _, r := range out.Rows {
		r[tp.Column] = tp.Render(r)
	}
	return out, nil
}

// Render evaluates the template against one row.
func (tp *Template) Render(r table.Row) string {
	return placeholder.ReplaceAllStringFunc(tp.Text, func(m string) string {
		switch m {
		case "{{":
			return "{"
		case "}}":
			return "}"
		}
		return table.Format(r[strings.TrimSpace(m[1:len(m)-1])])
	})
}

// Placeholders returns the column names a template refers to, in order.
func Placeholders(text string) []string {
	var out []string
	for _, m := range placeholder.FindAllStringSubmatch(text, -1) {
		if m[1] != "" {
			out = append(out, strings.TrimSpace(m[1]))
		}
	}
	return out
}
