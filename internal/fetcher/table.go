package fetcher

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/unicode/norm"

	"github.com/mgbpm/clingen-ai-tools/internal/model"
	"github.com/mgbpm/clingen-ai-tools/internal/table"
)

// naTokens are the literals read as missing cells.
var naTokens = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true,
	"-1.#QNAN": true, "-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true,
	"<NA>": true, "N/A": true, "NA": true, "NULL": true, "NaN": true, "None": true,
	"n/a": true, "nan": true, "null": true,
}

// IsNAToken reports whether a raw field is read as missing.
func IsNAToken(s string) bool {
	return naTokens[s]
}

// TableOptions narrows what ReadTable keeps.
type TableOptions struct {
	// Columns restricts the loaded columns (after header cleaning). Nil keeps all.
	Columns []string
	// HeaderOnly stops after the header row.
	HeaderOnly bool
}

// LoadStats summarises a table load.
type LoadStats struct {
	Rows      int
	Malformed int // rows dropped: parse errors or too many fields
	Padded    int // rows with fewer fields than the header
}

// ReadTable loads a source data file according to its config: skip rows,
// header row, delimiter, quoting, gzip, charset and strip_hash.
func ReadTable(ctx context.Context, src model.SourceConfig, opts TableOptions) (*table.Table, *LoadStats, error) {
	log := zap.L().With(zap.String("source", src.Name))
	stats := &LoadStats{}

	path, err := resolveDataPath(src)
	if err != nil {
		return nil, nil, err
	}

	var records [][]string
	if src.Delimiter == model.DelimiterXLSX {
		records, err = ReadXLSX(path, XLSXOptions{SheetName: src.Sheet})
		if err != nil {
			return nil, nil, eris.Wrapf(err, "fetcher: read %s", src.Name)
		}
	} else {
		records, err = readDelimited(ctx, path, src, func(err error) {
			stats.Malformed++
			log.Warn("skipping malformed line", zap.Error(err))
		})
		if err != nil {
			return nil, nil, err
		}
	}

	// Skipped rows are removed first; header_row indexes what remains.
	kept := records[:0:0]
	for i, rec := range records {
		if src.SkipRows.Contains(i) {
			continue
		}
		kept = append(kept, rec)
	}
	if src.HeaderRow >= len(kept) {
		return nil, nil, eris.Errorf("fetcher: %s: header_row %d beyond end of file (%d rows)", src.Name, src.HeaderRow, len(kept))
	}

	header := CleanHeader(kept[src.HeaderRow], src.StripHash.IsTrue())
	t := table.New(src.Name, header)
	if opts.HeaderOnly {
		return t.Project(keepColumns(header, opts.Columns)), stats, nil
	}

	for i, rec := range kept[src.HeaderRow+1:] {
		if len(rec) > len(header) {
			stats.Malformed++
			log.Warn("skipping line with too many fields",
				zap.Int("line", src.HeaderRow+2+i),
				zap.Int("expected", len(header)),
				zap.Int("saw", len(rec)),
			)
			continue
		}
		if len(rec) < len(header) {
			stats.Padded++
		}
		row := make(table.Row, len(header))
		for j, col := range header {
			if j >= len(rec) || IsNAToken(rec[j]) {
				row[col] = nil
				continue
			}
			row[col] = rec[j]
		}
		t.Append(row)
	}
	stats.Rows = t.Len()

	if opts.Columns != nil {
		t = t.Project(keepColumns(header, opts.Columns))
	}

	log.Debug("loaded source table",
		zap.Int("rows", stats.Rows),
		zap.Int("columns", len(t.Columns)),
		zap.Int("malformed", stats.Malformed),
	)
	return t, stats, nil
}

// ReadHeader returns the cleaned header of a source data file.
func ReadHeader(ctx context.Context, src model.SourceConfig) ([]string, error) {
	t, _, err := ReadTable(ctx, src, TableOptions{HeaderOnly: true})
	if err != nil {
		return nil, err
	}
	return t.Columns, nil
}

// CleanHeader normalises header labels: NFC, optional stripping of leading
// and trailing '#' and spaces, blank labels named by position, duplicates
// suffixed ".1", ".2".
func CleanHeader(labels []string, stripHash bool) []string {
	out := make([]string, len(labels))
	seen := make(map[string]int, len(labels))
	for i, l := range labels {
		l = norm.NFC.String(l)
		if stripHash {
			l = strings.Trim(l, " #")
		}
		if l == "" {
			l = "Unnamed: " + strconv.Itoa(i)
		}
		if n, dup := seen[l]; dup {
			seen[l] = n + 1
			l = l + "." + strconv.Itoa(n+1)
		} else {
			seen[l] = 0
		}
		out[i] = l
	}
	return out
}

func keepColumns(header, allow []string) []string {
	if allow == nil {
		return header
	}
	want := make(map[string]bool, len(allow))
	for _, c := range allow {
		want[c] = true
	}
	var out []string
	for _, c := range header {
		if want[c] || want[strings.Trim(c, " #")] {
			out = append(out, c)
		}
	}
	return out
}

// resolveDataPath prefers the decompressed file and falls back to the gzip
// download when the source declares gzip.
func resolveDataPath(src model.SourceConfig) (string, error) {
	p := src.DataPath()
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}
	if dl := src.DownloadPath(); dl != "" && src.Gzip.IsTrue() {
		if _, err := os.Stat(dl); err == nil {
			return dl, nil
		}
	}
	return "", eris.Errorf("fetcher: %s: data file %s not found", src.Name, p)
}

func readDelimited(ctx context.Context, path string, src model.SourceConfig, onMalformed func(error)) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	r, err := decodeReader(f, path, src)
	if err != nil {
		return nil, err
	}

	_, rows, err := ReadCSV(ctx, r, CSVOptions{
		Delimiter:     src.Delimiter.Rune(),
		LazyQuotes:    true,
		NoQuotes:      src.Quoting == model.QuoteNone,
		SkipMalformed: true,
		OnMalformed:   onMalformed,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: parse %s", path)
	}
	return rows, nil
}

// decodeReader layers gzip and charset decoding over the raw file.
func decodeReader(f io.Reader, path string, src model.SourceConfig) (io.Reader, error) {
	r := f
	if src.Gzip.IsTrue() && strings.HasSuffix(strings.ToLower(path), ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: gunzip %s", path)
		}
		r = zr
	}
	if src.Encoding != "" {
		enc, err := htmlindex.Get(src.Encoding)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: %s: unknown encoding %q", src.Name, src.Encoding)
		}
		r = enc.NewDecoder().Reader(r)
	}
	return r, nil
}
