package pipeline

import (
	"context"

	"github.com/mgbpm/clingen-ai-tools/internal/fetcher"
	"github.com/mgbpm/clingen-ai-tools/internal/metadata"
	"github.com/mgbpm/clingen-ai-tools/internal/transform"
)

// CheckReport lists metadata drift between a source's dictionary, mapping
// file, template and the header of its data file.
type CheckReport struct {
	Source string
	// MissingFromData are dictionary columns absent from the data header.
	MissingFromData []string
	// Undeclared are data columns with no dictionary entry.
	Undeclared []string
	// UnmappedColumns are map-flagged columns without mapping rows.
	UnmappedColumns []string
	// UnknownPlaceholders are template fields that name no data column.
	UnknownPlaceholders []string
}

// OK reports whether no drift was found.
func (r CheckReport) OK() bool {
	return len(r.MissingFromData) == 0 && len(r.Undeclared) == 0 &&
		len(r.UnmappedColumns) == 0 && len(r.UnknownPlaceholders) == 0
}

// Check compares a source's metadata with its data file header.
func Check(ctx context.Context, src *metadata.Source) (CheckReport, error) {
	header, err := fetcher.ReadHeader(ctx, src.Config)
	if err != nil {
		return CheckReport{}, err
	}
	return compare(src, header), nil
}

func compare(src *metadata.Source, header []string) CheckReport {
	rep := CheckReport{Source: src.Name()}

	inData := make(map[string]bool, len(header))
	for _, h := range header {
		inData[h] = true
	}
	for _, e := range src.Dictionary.Entries {
		if !inData[e.Column] {
			rep.MissingFromData = append(rep.MissingFromData, e.Column)
		}
		if e.Map.IsTrue() && len(src.MappingsFor(e.Column)) == 0 {
			rep.UnmappedColumns = append(rep.UnmappedColumns, e.Column)
		}
	}
	for _, h := range header {
		if _, ok := src.Dictionary.Entry(h); !ok {
			rep.Undeclared = append(rep.Undeclared, h)
		}
	}
	for _, p := range transform.Placeholders(src.Config.Template) {
		if !inData[p] {
			rep.UnknownPlaceholders = append(rep.UnknownPlaceholders, p)
		}
	}
	return rep
}
