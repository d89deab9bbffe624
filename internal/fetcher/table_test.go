package fetcher

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgbpm/clingen-ai-tools/internal/model"
	"github.com/mgbpm/clingen-ai-tools/internal/table"
)

func tsvSource(dir, file string) model.SourceConfig {
	return model.SourceConfig{
		Name:      "clinvar",
		Path:      dir,
		File:      file,
		Delimiter: model.DelimiterTab,
	}
}

func TestReadTable_TSV(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	content := "## generated file\n" +
		"# gene\tscore \t#id\n" +
		"BRCA1\t3\t1\n" +
		"TP53\tNA\n" +
		"X\t1\t2\t3\n" +
		"\t\t5\n"
	require.NoError(t, writeTestFile(filepath.Join(dir, "data.tsv"), content))

	src := tsvSource(dir, "data.tsv")
	src.SkipRows = model.RowSet{0}
	src.StripHash = model.FlagTrue

	tbl, stats, err := ReadTable(context.Background(), src, TableOptions{})
	require.NoError(t, err)

	assert.Equal(t, "clinvar", tbl.Name)
	assert.Equal(t, []string{"gene", "score", "id"}, tbl.Columns)
	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, table.Row{"gene": "BRCA1", "score": "3", "id": "1"}, tbl.Rows[0])
	assert.Equal(t, table.Row{"gene": "TP53", "score": nil, "id": nil}, tbl.Rows[1])
	assert.Equal(t, table.Row{"gene": nil, "score": nil, "id": "5"}, tbl.Rows[2])

	assert.Equal(t, 3, stats.Rows)
	assert.Equal(t, 1, stats.Malformed)
	assert.Equal(t, 1, stats.Padded)
}

func TestReadTable_HeaderRowAfterSkips(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	content := "junk\nsecond junk\ntitle\ngene\tscore\nBRCA1\t2\n"
	require.NoError(t, writeTestFile(filepath.Join(dir, "data.tsv"), content))

	src := tsvSource(dir, "data.tsv")
	src.SkipRows = model.RowSet{0, 1}
	src.HeaderRow = 1

	tbl, _, err := ReadTable(context.Background(), src, TableOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"gene", "score"}, tbl.Columns)
	assert.Equal(t, []table.Row{{"gene": "BRCA1", "score": "2"}}, tbl.Rows)
}

func TestReadTable_HeaderRowBeyondEnd(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, writeTestFile(filepath.Join(dir, "data.tsv"), "gene\n"))

	src := tsvSource(dir, "data.tsv")
	src.HeaderRow = 4

	_, _, err := ReadTable(context.Background(), src, TableOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header_row 4")
}

func TestReadTable_Columns(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, writeTestFile(filepath.Join(dir, "data.tsv"), "a\tb\tc\n1\t2\t3\n"))

	tbl, _, err := ReadTable(context.Background(), tsvSource(dir, "data.tsv"), TableOptions{Columns: []string{"c", "a", "zzz"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, tbl.Columns)
	assert.Equal(t, []table.Row{{"a": "1", "c": "3"}}, tbl.Rows)
}

func TestReadTable_QuoteNone(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, writeTestFile(filepath.Join(dir, "data.csv"), "name,note\n\"x,y\n"))

	src := tsvSource(dir, "data.csv")
	src.Delimiter = model.DelimiterComma
	src.Quoting = model.QuoteNone

	tbl, _, err := ReadTable(context.Background(), src, TableOptions{})
	require.NoError(t, err)
	assert.Equal(t, []table.Row{{"name": `"x`, "note": "y"}}, tbl.Rows)
}

func TestReadTable_GzipDownload(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte("gene\tscore\nBRCA1\t7\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.tsv.gz"), buf.Bytes(), 0o644))

	src := tsvSource(dir, "data.tsv")
	src.DownloadFile = "data.tsv.gz"
	src.Gzip = model.FlagTrue

	tbl, _, err := ReadTable(context.Background(), src, TableOptions{})
	require.NoError(t, err)
	assert.Equal(t, []table.Row{{"gene": "BRCA1", "score": "7"}}, tbl.Rows)
}

func TestReadTable_Encoding(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.tsv"), []byte("name\nCaf\xe9\n"), 0o644))

	src := tsvSource(dir, "data.tsv")
	src.Encoding = "latin1"

	tbl, _, err := ReadTable(context.Background(), src, TableOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Café", tbl.Rows[0]["name"])

	src.Encoding = "klingon"
	_, _, err = ReadTable(context.Background(), src, TableOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown encoding")
}

func TestReadTable_XLSX(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	createTestXLSX(t, dir,
		testSheet{"summary", [][]string{{"ignored"}}},
		testSheet{"data", [][]string{{"hgnc-id", "gene"}, {"HGNC:1100", "BRCA1"}, {"HGNC:11998", "N/A"}}},
	)

	src := model.SourceConfig{Name: "gencc", Path: dir, File: "data.xlsx", Delimiter: model.DelimiterXLSX, Sheet: "data"}
	tbl, stats, err := ReadTable(context.Background(), src, TableOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"hgnc-id", "gene"}, tbl.Columns)
	assert.Equal(t, 2, stats.Rows)
	assert.Nil(t, tbl.Rows[1]["gene"])
}

func TestReadTable_MissingFile(t *testing.T) {
	t.Parallel()
	_, _, err := ReadTable(context.Background(), tsvSource(t.TempDir(), "absent.tsv"), TableOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestReadHeader(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, writeTestFile(filepath.Join(dir, "data.tsv"), "a\tb\n1\t2\n"))

	header, err := ReadHeader(context.Background(), tsvSource(dir, "data.tsv"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, header)
}

func TestCleanHeader(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in        []string
		stripHash bool
		want      []string
	}{
		{[]string{"#chrom", "pos "}, true, []string{"chrom", "pos"}},
		{[]string{"#chrom", "pos"}, false, []string{"#chrom", "pos"}},
		{[]string{"a", "", "a", "a"}, false, []string{"a", "Unnamed: 1", "a.1", "a.2"}},
		{[]string{"e\u0301"}, false, []string{"\u00e9"}},
	}
	for _, tt := range tests {
		got := CleanHeader(tt.in, tt.stripHash)
		assert.Equal(t, tt.want, got, "input: %q", tt.in)
	}
}

func TestIsNAToken(t *testing.T) {
	t.Parallel()
	for _, s := range []string{"", "NA", "N/A", "nan", "NULL", "None", "#N/A"} {
		assert.True(t, IsNAToken(s), s)
	}
	for _, s := range []string{"0", "none", "na", "-", "missing"} {
		assert.False(t, IsNAToken(s), s)
	}
}
