package store

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mgbpm/clingen-ai-tools/internal/table"
)

// CSVStore writes each output table as a comma-delimited file with a header
// row. Missing cells are written as empty fields.
type CSVStore struct {
	dir string
}

// NewCSV returns a CSVStore writing into dir, creating it if needed.
func NewCSV(dir string) (*CSVStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "csv: create output dir %s", dir)
	}
	return &CSVStore{dir: dir}, nil
}

// Path returns the file an output name is written to.
func (s *CSVStore) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// WriteTable writes t to a temporary file and renames it into place.
func (s *CSVStore) WriteTable(ctx context.Context, name string, t *table.Table) (int64, error) {
	path := s.Path(name)
	f, err := os.CreateTemp(s.dir, "."+filepath.Base(name)+".*")
	if err != nil {
		return 0, eris.Wrapf(err, "csv: create %s", path)
	}
	tmp := f.Name()
	defer os.Remove(tmp) //nolint:errcheck

	n, err := writeCSV(ctx, f, t)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = eris.Wrapf(cerr, "csv: close %s", path)
	}
	if err != nil {
		return 0, eris.Wrapf(err, "csv: write %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		return 0, eris.Wrapf(err, "csv: rename %s", path)
	}

	zap.L().Info("csv: wrote table",
		zap.String("path", path),
		zap.Int64("rows", n),
		zap.Int("columns", len(t.Columns)),
	)
	return n, nil
}

func writeCSV(ctx context.Context, f *os.File, t *table.Table) (int64, error) {
	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		return 0, eris.Wrap(err, "header")
	}
	record := make([]string, len(t.Columns))
	var n int64
	for i, r := range t.Rows {
		if i%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return n, eris.Wrap(err, "cancelled")
			}
		}
		for j, c := range t.Columns {
			record[j] = table.Format(r[c])
		}
		if err := w.Write(record); err != nil {
			return n, eris.Wrapf(err, "row %d", i+1)
		}
		n++
	}
	w.Flush()
	return n, eris.Wrap(w.Error(), "flush")
}

// Close is a no-op.
func (s *CSVStore) Close() error { return nil }
