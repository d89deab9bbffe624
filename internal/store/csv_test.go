package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVStore_WriteTable(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out")
	st, err := NewCSV(dir)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	n, err := st.WriteTable(context.Background(), "clinvar-output.csv", sampleTable())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	data, err := os.ReadFile(filepath.Join(dir, "clinvar-output.csv"))
	require.NoError(t, err)
	assert.Equal(t, "gene-symbol,variation-id,hot\nBRCA1,17661,true\n\"TP53, \"\"x\"\"\",,false\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestCSVStore_Overwrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	st, err := NewCSV(dir)
	require.NoError(t, err)

	_, err = st.WriteTable(context.Background(), "output.csv", sampleTable())
	require.NoError(t, err)

	small := sampleTable()
	small.Rows = small.Rows[:1]
	_, err = st.WriteTable(context.Background(), "output.csv", small)
	require.NoError(t, err)

	data, err := os.ReadFile(st.Path("output.csv"))
	require.NoError(t, err)
	assert.Equal(t, "gene-symbol,variation-id,hot\nBRCA1,17661,true\n", string(data))
}

func TestCSVStore_Cancelled(t *testing.T) {
	t.Parallel()

	st, err := NewCSV(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = st.WriteTable(ctx, "output.csv", sampleTable())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(st.Path("output.csv"))
	assert.True(t, os.IsNotExist(statErr))
}
