// Package store persists output tables and keeps a history of transformation runs.
package store

import (
	"context"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/mgbpm/clingen-ai-tools/internal/table"
)

// Store persists named output tables.
type Store interface {
	// WriteTable replaces any previous output with the same name and returns
	// the number of rows written.
	WriteTable(ctx context.Context, name string, t *table.Table) (int64, error)
	Close() error
}

// RunLog records transformation runs. Database-backed stores implement it.
type RunLog interface {
	CreateRun(ctx context.Context, sources []string, join bool) (*Run, error)
	FinishRun(ctx context.Context, run *Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// RunStatus represents the state of a run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one invocation of the transformation pipeline.
type Run struct {
	ID        string
	Sources   []string
	Join      bool
	Status    RunStatus
	Tables    int
	Rows      int64
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Complete marks the run finished, recording err when non-nil.
func (r *Run) Complete(err error) {
	r.Status = RunStatusComplete
	if err != nil {
		r.Status = RunStatusFailed
		r.Error = err.Error()
	}
}

// TableName derives a database table name from an output name: the file
// extension is dropped, letters are lowercased and anything outside
// [a-z0-9_] becomes an underscore.
func TableName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	if b.Len() == 0 {
		return "output"
	}
	return b.String()
}

func joinSources(sources []string) string { return strings.Join(sources, ",") }

func splitSources(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
