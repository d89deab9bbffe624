package model

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Delimiter names the field separator of a source data file.
type Delimiter string

const (
	DelimiterTab   Delimiter = "tab"
	DelimiterComma Delimiter = "comma"
	DelimiterPipe  Delimiter = "pipe"
	DelimiterXLSX  Delimiter = "xlsx"
)

// Rune returns the separator character. XLSX and unknown kinds fall back to ','.
func (d Delimiter) Rune() rune {
	switch d {
	case DelimiterTab:
		return '\t'
	case DelimiterPipe:
		return '|'
	default:
		return ','
	}
}

// UnmarshalYAML accepts the documented names plus "csv", "tsv" and literal separators.
func (d *Delimiter) UnmarshalYAML(node *yaml.Node) error {
	switch strings.ToLower(strings.TrimSpace(node.Value)) {
	case "tab", "tsv", `\t`:
		*d = DelimiterTab
	case "", "comma", "csv", ",":
		*d = DelimiterComma
	case "pipe", "|":
		*d = DelimiterPipe
	case "xlsx", "excel":
		*d = DelimiterXLSX
	default:
		return eris.Errorf("model: line %d: unknown delimiter %q", node.Line, node.Value)
	}
	return nil
}

// Quoting mirrors the csv module quoting modes used by source configs.
type Quoting int

const (
	QuoteMinimal Quoting = iota
	QuoteAll
	QuoteNonNumeric
	QuoteNone
)

// RowSet is an ordered set of raw row indices to skip before the header.
type RowSet []int

// Contains reports whether row i is in the set.
func (s RowSet) Contains(i int) bool {
	for _, v := range s {
		if v == i {
			return true
		}
	}
	return false
}

// ParseRowSet parses "1,2,5" style lists. "None" and blank yield an empty set.
func ParseRowSet(s string) (RowSet, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return nil, nil
	}
	seen := make(map[int]bool)
	var out RowSet
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, eris.Errorf("model: invalid skip row %q", part)
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out, nil
}

// UnmarshalYAML accepts a scalar list ("1,2"), a single integer or a sequence.
func (s *RowSet) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		parts := make([]string, 0, len(node.Content))
		for _, n := range node.Content {
			parts = append(parts, n.Value)
		}
		v, err := ParseRowSet(strings.Join(parts, ","))
		if err != nil {
			return eris.Wrapf(err, "model: line %d", node.Line)
		}
		*s = v
	default:
		if node.Tag == "!!null" {
			*s = nil
			return nil
		}
		v, err := ParseRowSet(node.Value)
		if err != nil {
			return eris.Wrapf(err, "model: line %d", node.Line)
		}
		*s = v
	}
	return nil
}

// SourceConfig describes one source as declared in its config.yml.
type SourceConfig struct {
	Name         string    `yaml:"name" json:"name"`
	Path         string    `yaml:"-" json:"path"`
	URL          string    `yaml:"url" json:"url,omitempty"`
	DownloadFile string    `yaml:"download_file" json:"download_file,omitempty"`
	File         string    `yaml:"file" json:"file"`
	Gzip         Flag      `yaml:"gzip" json:"gzip"`
	HeaderRow    int       `yaml:"header_row" json:"header_row"`
	SkipRows     RowSet    `yaml:"skip_rows" json:"skip_rows,omitempty"`
	Delimiter    Delimiter `yaml:"delimiter" json:"delimiter"`
	Quoting      Quoting   `yaml:"quoting" json:"quoting"`
	StripHash    Flag      `yaml:"strip_hash" json:"strip_hash"`
	MD5URL       string    `yaml:"md5_url" json:"md5_url,omitempty"`
	MD5File      string    `yaml:"md5_file" json:"md5_file,omitempty"`
	Template     string    `yaml:"template" json:"template,omitempty"`
	Encoding     string    `yaml:"encoding" json:"encoding,omitempty"`
	Sheet        string    `yaml:"sheet" json:"sheet,omitempty"`
}

// DataPath returns the location of the decompressed data file.
func (c SourceConfig) DataPath() string {
	return filepath.Join(c.Path, c.File)
}

// DownloadPath returns the location of the raw download, or "" if none is declared.
func (c SourceConfig) DownloadPath() string {
	if c.DownloadFile == "" {
		return ""
	}
	return filepath.Join(c.Path, c.DownloadFile)
}

// DictionaryPath returns the location of the source's dictionary.csv.
func (c SourceConfig) DictionaryPath() string {
	return filepath.Join(c.Path, "dictionary.csv")
}

// MappingPath returns the location of the source's mapping.csv.
func (c SourceConfig) MappingPath() string {
	return filepath.Join(c.Path, "mapping.csv")
}

// Validate checks fields the loaders depend on.
func (c SourceConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return eris.Errorf("model: source at %q has no name", c.Path)
	}
	if c.File == "" {
		return eris.Errorf("model: source %q has no data file", c.Name)
	}
	if c.HeaderRow < 0 {
		return eris.Errorf("model: source %q: header_row must be >= 0", c.Name)
	}
	if c.Quoting < QuoteMinimal || c.Quoting > QuoteNone {
		return eris.Errorf("model: source %q: quoting must be 0-3, got %d", c.Name, c.Quoting)
	}
	return nil
}
