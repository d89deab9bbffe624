package transform

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mgbpm/clingen-ai-tools/internal/model"
	"github.com/mgbpm/clingen-ai-tools/internal/table"
)

// FilterGenes keeps rows whose value in every gene-symbol column is one of
// genes (exact match). Sources without a gene-symbol column are unchanged.
func FilterGenes(t *table.Table, dict *model.Dictionary, genes []string) *table.Table {
	if len(genes) == 0 {
		return t
	}
	allow := make(map[string]bool, len(genes))
	for _, g := range genes {
		allow[g] = true
	}
	return filterJoinGroup(t, dict, model.JoinGeneSymbol, func(v any) bool {
		return allow[table.Format(v)]
	})
}

// FilterVariants keeps rows whose value in every variation-id column equals
// one of ids numerically. Sources without a variation-id column are unchanged.
func FilterVariants(t *table.Table, dict *model.Dictionary, ids []int64) *table.Table {
	if len(ids) == 0 {
		return t
	}
	allow := make(map[int64]bool, len(ids))
	for _, id := range ids {
		allow[id] = true
	}
	return filterJoinGroup(t, dict, model.JoinVariationID, func(v any) bool {
		id, ok := variantID(v)
		return ok && allow[id]
	})
}

// ParseVariantIDs parses variant identifiers given on the command line.
func ParseVariantIDs(raw []string) ([]int64, error) {
	out := make([]int64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, eris.Errorf("transform: invalid variant id %q", s)
		}
		out = append(out, id)
	}
	return out, nil
}

func variantID(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int64:
		return x, true
	case float64:
		if x == float64(int64(x)) {
			return int64(x), true
		}
		return 0, false
	}
	key, ok := table.Key(v)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(key, 10, 64)
	return id, err == nil
}

func filterJoinGroup(t *table.Table, dict *model.Dictionary, group model.JoinGroup, keep func(any) bool) *table.Table {
	var cols []string
	for _, e := range dict.WithJoinGroup(group) {
		if t.Has(e.Column) {
			cols = append(cols, e.Column)
		}
	}
	if len(cols) == 0 {
		return t
	}

	out := table.New(t.Name, t.Columns)
	for _, r := range t.Rows {
		match := true
		for _, c := range cols {
			if !keep(r[c]) {
				match = false
				break
			}
		}
		if match {
			out.Append(r.Clone())
		}
	}
	zap.L().Debug("filtered rows by join group",
		zap.String("source", t.Name),
		zap.String("join_group", string(group)),
		zap.Strings("columns", cols),
		zap.Int("before", t.Len()),
		zap.Int("after", out.Len()),
	)
	return out
}
