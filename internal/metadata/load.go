package metadata

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mgbpm/clingen-ai-tools/internal/fetcher"
	"github.com/mgbpm/clingen-ai-tools/internal/model"
)

const configFile = "config.yml"

// Load scans root for source directories (immediate children holding a
// config.yml) and loads each source's config, dictionary and mappings.
// A missing dictionary is fatal; a missing mapping file is not.
func Load(ctx context.Context, root string) (*Store, error) {
	log := zap.L().With(zap.String("sources_path", root))

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, eris.Wrapf(err, "metadata: read sources path %s", root)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	store := NewStore()
	var missingDict []string
	for _, e := range entries {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "metadata: load cancelled")
		}
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		cfgPath := filepath.Join(dir, configFile)
		if !exists(cfgPath) {
			log.Debug("skipping directory without config.yml", zap.String("dir", dir))
			continue
		}

		cfg, err := LoadSourceConfig(cfgPath)
		if err != nil {
			return nil, err
		}

		src := &Source{Config: cfg}
		if !exists(cfg.DictionaryPath()) {
			log.Warn("missing dictionary file", zap.String("source", cfg.Name), zap.String("path", cfg.DictionaryPath()))
			missingDict = append(missingDict, cfg.Name)
			continue
		}
		if src.Dictionary, err = LoadDictionary(ctx, cfg.DictionaryPath(), cfg.Name); err != nil {
			return nil, err
		}

		if exists(cfg.MappingPath()) {
			if src.Mappings, err = LoadMappings(ctx, cfg.MappingPath()); err != nil {
				return nil, err
			}
		} else {
			log.Warn("no mapping file", zap.String("source", cfg.Name))
		}
		if dups := DuplicateMappings(src.Mappings); len(dups) > 0 {
			for _, d := range dups {
				log.Warn("duplicate mapping key, first entry wins",
					zap.String("source", cfg.Name),
					zap.String("column", d.Column),
					zap.String("map_name", d.MapName),
					zap.String("value", d.Value),
				)
			}
		}

		if err := store.Register(src); err != nil {
			return nil, err
		}
		log.Debug("loaded source",
			zap.String("source", cfg.Name),
			zap.Int("dictionary_columns", len(src.Dictionary.Entries)),
			zap.Int("mappings", len(src.Mappings)),
		)
	}

	if len(missingDict) > 0 {
		return nil, eris.Errorf("metadata: %d missing dictionaries: %s", len(missingDict), strings.Join(missingDict, ", "))
	}
	log.Info("loaded source metadata", zap.Int("count", store.Len()), zap.Strings("sources", store.Names()))
	return store, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadSourceConfig parses a config.yml. The file holds a YAML list whose
// first element describes the source; a bare mapping is also accepted.
func LoadSourceConfig(path string) (model.SourceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.SourceConfig{}, eris.Wrapf(err, "metadata: read %s", path)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return model.SourceConfig{}, eris.Wrapf(err, "metadata: parse %s", path)
	}
	if len(doc.Content) == 0 {
		return model.SourceConfig{}, eris.Errorf("metadata: %s is empty", path)
	}

	node := doc.Content[0]
	if node.Kind == yaml.SequenceNode {
		if len(node.Content) == 0 {
			return model.SourceConfig{}, eris.Errorf("metadata: %s holds an empty list", path)
		}
		node = node.Content[0]
	}

	var cfg model.SourceConfig
	if err := node.Decode(&cfg); err != nil {
		return model.SourceConfig{}, eris.Wrapf(err, "metadata: decode %s", path)
	}
	cfg.Path = filepath.Dir(path)
	if err := cfg.Validate(); err != nil {
		return model.SourceConfig{}, err
	}
	return cfg, nil
}

// dictionary.csv and mapping.csv headers.
const (
	colColumn     = "column"
	colComment    = "comment"
	colJoinGroup  = "join-group"
	colOneHot     = "onehot"
	colCategory   = "category"
	colContinuous = "continuous"
	colFormat     = "format"
	colMap        = "map"
	colDays       = "days"
	colAge        = "age"
	colExpand     = "expand"
	colNAValue    = "na-value"
	colValue      = "value"
	colFrequency  = "frequency"
	colMapName    = "map-name"
	colMapValue   = "map-value"
)

// csvRecord gives named access to a row of a headed metadata CSV.
type csvRecord struct {
	index map[string]int
	row   []string
}

func (r csvRecord) get(name string) string {
	i, ok := r.index[name]
	if !ok || i >= len(r.row) {
		return ""
	}
	return r.row[i]
}

func readHeaded(ctx context.Context, path string) ([]csvRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "metadata: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	header, rows, err := fetcher.ReadCSV(ctx, f, fetcher.CSVOptions{HasHeader: true, LazyQuotes: true, TrimSpace: true})
	if err != nil {
		return nil, eris.Wrapf(err, "metadata: parse %s", path)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(h)] = i
	}
	if _, ok := index[colColumn]; !ok && len(header) > 0 {
		return nil, eris.Errorf("metadata: %s has no %q column", path, colColumn)
	}

	out := make([]csvRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, csvRecord{index: index, row: row})
	}
	return out, nil
}

// LoadDictionary reads a dictionary.csv. Tri-state literals are validated
// and duplicate column names are rejected; errors name the source and column.
func LoadDictionary(ctx context.Context, path, source string) (*model.Dictionary, error) {
	records, err := readHeaded(ctx, path)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(records))
	entries := make([]model.DictionaryEntry, 0, len(records))
	for _, rec := range records {
		column := rec.get(colColumn)
		if column == "" {
			continue
		}
		if seen[column] {
			return nil, eris.Errorf("metadata: source %q: duplicate dictionary column %q", source, column)
		}
		seen[column] = true

		e := model.DictionaryEntry{
			Column:    column,
			Comment:   rec.get(colComment),
			JoinGroup: model.ParseJoinGroup(rec.get(colJoinGroup)),
			Format:    rec.get(colFormat),
		}
		if fetcher.IsNAToken(e.Format) {
			e.Format = ""
		}
		flags := []struct {
			name string
			dst  *model.Flag
		}{
			{colOneHot, &e.OneHot},
			{colCategory, &e.Category},
			{colContinuous, &e.Continuous},
			{colMap, &e.Map},
			{colDays, &e.Days},
			{colAge, &e.Age},
			{colExpand, &e.Expand},
		}
		for _, fl := range flags {
			v, err := model.ParseFlag(rec.get(fl.name))
			if err != nil {
				return nil, eris.Wrapf(err, "metadata: source %q column %q field %q", source, column, fl.name)
			}
			*fl.dst = v
		}
		if i, ok := rec.index[colNAValue]; ok && i < len(rec.row) && rec.row[i] != "" {
			na := rec.row[i]
			e.NAValue = &na
		}
		if !e.JoinGroup.IsZero() && !e.JoinGroup.Known() {
			zap.L().Warn("unknown join group ranks last",
				zap.String("source", source),
				zap.String("column", column),
				zap.String("join_group", string(e.JoinGroup)),
			)
		}
		entries = append(entries, e)
	}
	return model.NewDictionary(entries), nil
}

// LoadMappings reads a mapping.csv. Map values that read as NA become empty,
// which the value mapper treats as missing.
func LoadMappings(ctx context.Context, path string) ([]model.MappingEntry, error) {
	records, err := readHeaded(ctx, path)
	if err != nil {
		return nil, err
	}

	out := make([]model.MappingEntry, 0, len(records))
	for _, rec := range records {
		m := model.MappingEntry{
			Column:    rec.get(colColumn),
			Value:     rec.get(colValue),
			Frequency: rec.get(colFrequency),
			MapName:   rec.get(colMapName),
			MapValue:  rec.get(colMapValue),
		}
		if m.Column == "" || m.MapName == "" {
			continue
		}
		if fetcher.IsNAToken(m.MapValue) {
			m.MapValue = ""
		}
		out = append(out, m)
	}
	return out, nil
}

// DuplicateMappings returns the entries whose (column, map-name, value) key
// repeats an earlier entry.
func DuplicateMappings(entries []model.MappingEntry) []model.MappingEntry {
	type key struct{ column, name, value string }
	seen := make(map[key]bool, len(entries))
	var dups []model.MappingEntry
	for _, m := range entries {
		k := key{m.Column, m.MapName, m.Value}
		if seen[k] {
			dups = append(dups, m)
			continue
		}
		seen[k] = true
	}
	return dups
}
