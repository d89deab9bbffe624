// Package metadata discovers source directories and loads their config.yml,
// dictionary.csv and mapping.csv into an in-memory registry.
package metadata

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/mgbpm/clingen-ai-tools/internal/model"
)

// ErrUnknownSource is returned when a requested source is not configured.
var ErrUnknownSource = eris.New("metadata: unknown source")

// Source bundles everything known about one configured source.
type Source struct {
	Config     model.SourceConfig
	Dictionary *model.Dictionary
	Mappings   []model.MappingEntry
}

// Name returns the source's unique name.
func (s *Source) Name() string { return s.Config.Name }

// MappingsFor returns the mapping rows for column in file order.
func (s *Source) MappingsFor(column string) []model.MappingEntry {
	var out []model.MappingEntry
	for _, m := range s.Mappings {
		if m.Column == column {
			out = append(out, m)
		}
	}
	return out
}

// Store maps source names to their metadata.
type Store struct {
	sources map[string]*Source
	order   []string // insertion order for deterministic iteration
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{sources: make(map[string]*Source)}
}

// Register adds a source. Names must be unique.
func (s *Store) Register(src *Source) error {
	name := src.Name()
	if _, dup := s.sources[name]; dup {
		return eris.Errorf("metadata: duplicate source name %q (%s)", name, src.Config.Path)
	}
	s.sources[name] = src
	s.order = append(s.order, name)
	return nil
}

// Get returns a source by name.
func (s *Store) Get(name string) (*Source, error) {
	src, ok := s.sources[name]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownSource, "metadata: %q", name)
	}
	return src, nil
}

// Select returns the named sources in the order given, ignoring repeats.
// Every unknown name is reported together. An empty list selects all sources.
func (s *Store) Select(names []string) ([]*Source, error) {
	if len(names) == 0 {
		return s.All(), nil
	}

	var unknown []string
	seen := make(map[string]bool, len(names))
	result := make([]*Source, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		src, err := s.Get(name)
		if err != nil {
			unknown = append(unknown, name)
			continue
		}
		result = append(result, src)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, eris.Wrapf(ErrUnknownSource, "metadata: invalid sources %v", unknown)
	}
	return result, nil
}

// All returns all sources in registration order.
func (s *Store) All() []*Source {
	result := make([]*Source, 0, len(s.order))
	for _, name := range s.order {
		result = append(result, s.sources[name])
	}
	return result
}

// Names returns all source names in registration order.
func (s *Store) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of registered sources.
func (s *Store) Len() int { return len(s.order) }
