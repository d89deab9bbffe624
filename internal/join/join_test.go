package join

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgbpm/clingen-ai-tools/internal/model"
	"github.com/mgbpm/clingen-ai-tools/internal/table"
)

func dict(entries ...model.DictionaryEntry) *model.Dictionary {
	return model.NewDictionary(entries)
}

func entry(column string, group model.JoinGroup) model.DictionaryEntry {
	return model.DictionaryEntry{Column: column, JoinGroup: group}
}

func newTable(name string, columns []string, rows ...table.Row) *table.Table {
	t := table.New(name, columns)
	for _, r := range rows {
		t.Append(r)
	}
	return t
}

func TestMerge_LeftJoinKeepsUnmatched(t *testing.T) {
	t.Parallel()
	a := Input{
		Name:       "A",
		Table:      newTable("A", []string{"id", "key"}, table.Row{"id": 1, "key": "g1"}, table.Row{"id": 2, "key": "g2"}),
		Dictionary: dict(entry("key", model.JoinGeneSymbol)),
	}
	b := Input{
		Name:       "B",
		Table:      newTable("B", []string{"key", "val"}, table.Row{"key": "g1", "val": "x"}),
		Dictionary: dict(entry("key", model.JoinGeneSymbol)),
	}

	res, err := Merge([]Input{a, b}, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "key", "val"}, res.Table.Columns)
	assert.Equal(t, []table.Row{
		{"id": 1, "key": "g1", "val": "x"},
		{"id": 2, "key": "g2", "val": nil},
	}, res.Table.Rows)
	require.Len(t, res.Steps, 1)
	assert.Equal(t, Step{
		Source: "B", Group: model.JoinGeneSymbol, LeftColumn: "key", RightColumn: "key",
		RowsBefore: 2, RowsAfter: 2, Matched: 1,
	}, res.Steps[0])

	assert.Equal(t, []string{"key", "val"}, b.Table.Columns, "inputs are not modified")
	assert.NotContains(t, a.Table.Rows[0], "val")
}

func TestMerge_PrecedenceFallsBackToAvailableGroup(t *testing.T) {
	t.Parallel()
	acc := Input{
		Name:       "hgnc",
		Table:      newTable("hgnc", []string{"hgnc_id", "name"}, table.Row{"hgnc_id": "HGNC:1100", "name": "BRCA1"}),
		Dictionary: dict(entry("hgnc_id", model.JoinHGNCID)),
	}
	next := Input{
		Name: "gencc",
		Table: newTable("gencc", []string{"gene_symbol", "gene_curie", "class"},
			table.Row{"gene_symbol": "BRCA1", "gene_curie": "HGNC:1100", "class": "Definitive"}),
		Dictionary: dict(entry("gene_symbol", model.JoinGeneSymbol), entry("gene_curie", model.JoinHGNCID)),
	}

	res, err := Merge([]Input{acc, next}, Options{})
	require.NoError(t, err)
	assert.Equal(t, model.JoinHGNCID, res.Steps[0].Group)
	assert.Equal(t, "hgnc_id", res.Steps[0].LeftColumn)
	assert.Equal(t, "gene_curie", res.Steps[0].RightColumn)
	assert.Equal(t, "Definitive", res.Table.Rows[0]["class"])
}

func TestMerge_PrefersHigherPrecedence(t *testing.T) {
	t.Parallel()
	a := Input{
		Name: "A",
		Table: newTable("A", []string{"hgnc", "gene"},
			table.Row{"hgnc": "HGNC:1", "gene": "G1"}),
		Dictionary: dict(entry("hgnc", model.JoinHGNCID), entry("gene", model.JoinGeneSymbol)),
	}
	b := Input{
		Name: "B",
		Table: newTable("B", []string{"b_hgnc", "b_gene", "v"},
			table.Row{"b_hgnc": "HGNC:2", "b_gene": "G1", "v": "by-gene"}),
		Dictionary: dict(entry("b_hgnc", model.JoinHGNCID), entry("b_gene", model.JoinGeneSymbol)),
	}

	res, err := Merge([]Input{a, b}, Options{})
	require.NoError(t, err)
	assert.Equal(t, model.JoinGeneSymbol, res.Steps[0].Group)
	assert.Equal(t, "by-gene", res.Table.Rows[0]["v"])
}

func TestMerge_NoSharedGroup(t *testing.T) {
	t.Parallel()
	a := Input{Name: "A", Table: newTable("A", []string{"gene"}), Dictionary: dict(entry("gene", model.JoinGeneSymbol))}
	b := Input{Name: "B", Table: newTable("B", []string{"vid"}), Dictionary: dict(entry("vid", model.JoinVariationID))}
	c := Input{Name: "C", Table: newTable("C", []string{"x"}), Dictionary: dict(entry("x", ""))}

	res, err := Merge([]Input{a, b}, Options{})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrNoJoinGroup)
	assert.Contains(t, err.Error(), `source "B"`)

	_, err = Merge([]Input{a, c}, Options{})
	assert.ErrorIs(t, err, ErrNoJoinGroup)
}

func TestMerge_BridgeSource(t *testing.T) {
	t.Parallel()
	a := Input{
		Name:       "A",
		Table:      newTable("A", []string{"gene", "a"}, table.Row{"gene": "BRCA1", "a": "a1"}, table.Row{"gene": "TP53", "a": "a2"}),
		Dictionary: dict(entry("gene", model.JoinGeneSymbol)),
	}
	b := Input{
		Name: "B",
		Table: newTable("B", []string{"symbol", "vid"},
			table.Row{"symbol": "BRCA1", "vid": "17661"}),
		Dictionary: dict(entry("symbol", model.JoinGeneSymbol), entry("vid", model.JoinVariationID)),
	}
	c := Input{
		Name:       "C",
		Table:      newTable("C", []string{"VariationID", "c"}, table.Row{"VariationID": 17661.0, "c": "c1"}),
		Dictionary: dict(entry("VariationID", model.JoinVariationID)),
	}

	res, err := Merge([]Input{a, b, c}, Options{})
	require.NoError(t, err)
	require.Len(t, res.Steps, 2)
	assert.Equal(t, model.JoinGeneSymbol, res.Steps[0].Group)
	assert.Equal(t, model.JoinVariationID, res.Steps[1].Group)
	assert.Equal(t, "vid", res.Steps[1].LeftColumn)

	assert.Equal(t, []string{"gene", "a", "symbol", "vid", "VariationID", "c"}, res.Table.Columns)
	assert.Equal(t, "c1", res.Table.Rows[0]["c"])
	assert.Nil(t, res.Table.Rows[1]["c"])

	// A then C alone cannot merge.
	_, err = Merge([]Input{a, c, b}, Options{})
	assert.ErrorIs(t, err, ErrNoJoinGroup)
}

func TestMerge_KeysAndDuplicates(t *testing.T) {
	t.Parallel()
	a := Input{
		Name: "A",
		Table: newTable("A", []string{"k", "shared"},
			table.Row{"k": "1", "shared": "left"},
			table.Row{"k": nil, "shared": "left"},
		),
		Dictionary: dict(entry("k", model.JoinVariationID)),
	}
	b := Input{
		Name: "B",
		Table: newTable("B", []string{"k", "shared", "v"},
			table.Row{"k": 1, "shared": "right", "v": "first"},
			table.Row{"k": "1.0", "shared": "right", "v": "second"},
			table.Row{"k": nil, "shared": "right", "v": "nil-key"},
		),
		Dictionary: dict(entry("k", model.JoinVariationID)),
	}

	na := "NA"
	res, err := Merge([]Input{a, b}, Options{NAValue: &na})
	require.NoError(t, err)
	assert.Equal(t, []string{"k", "shared", "v"}, res.Table.Columns)
	assert.Equal(t, []table.Row{
		{"k": "1", "shared": "left", "v": "first"},
		{"k": "1", "shared": "left", "v": "second"},
		{"k": "NA", "shared": "left", "v": "NA"},
	}, res.Table.Rows)
	assert.Equal(t, 1, res.Steps[0].Matched)
	assert.Equal(t, 3, res.Steps[0].RowsAfter)
}

func TestMerge_SingleAndEmpty(t *testing.T) {
	t.Parallel()
	_, err := Merge(nil, Options{})
	require.Error(t, err)

	only := Input{Name: "A", Table: newTable("A", []string{"x"}, table.Row{"x": nil}), Dictionary: dict()}
	na := "0"
	res, err := Merge([]Input{only}, Options{NAValue: &na})
	require.NoError(t, err)
	assert.Equal(t, "0", res.Table.Rows[0]["x"])
	assert.Nil(t, only.Table.Rows[0]["x"])
	assert.Empty(t, res.Steps)
}

func TestCandidates(t *testing.T) {
	t.Parallel()
	d := dict(
		entry("custom", "omim-id"),
		entry("hgnc", model.JoinHGNCID),
		entry("comment", ""),
		entry("vid1", model.JoinVariationID),
		entry("gene", model.JoinGeneSymbol),
		entry("vid2", model.JoinVariationID),
	)
	var got []string
	for _, e := range Candidates(d) {
		got = append(got, e.Column)
	}
	assert.Equal(t, []string{"vid1", "vid2", "gene", "hgnc", "custom"}, got)
}
