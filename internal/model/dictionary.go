package model

// DictionaryEntry is one row of a source's dictionary.csv: the transforms
// declared for a single column.
type DictionaryEntry struct {
	Column     string    `json:"column"`
	Comment    string    `json:"comment,omitempty"`
	JoinGroup  JoinGroup `json:"join_group,omitempty"`
	OneHot     Flag      `json:"onehot"`
	Category   Flag      `json:"category"`
	Continuous Flag      `json:"continuous"`
	Map        Flag      `json:"map"`
	Days       Flag      `json:"days"`
	Age        Flag      `json:"age"`
	Expand     Flag      `json:"expand"`
	Format     string    `json:"format,omitempty"` // date format, strftime or Go layout
	NAValue    *string   `json:"na_value,omitempty"`
}

// HasDateFormat reports whether date-derived features can be computed.
func (e DictionaryEntry) HasDateFormat() bool { return e.Format != "" }

// MappingEntry is one row of mapping.csv: raw value to derived value for a
// named mapping column.
type MappingEntry struct {
	Column    string `json:"column"`
	Value     string `json:"value"`
	Frequency string `json:"frequency,omitempty"`
	MapName   string `json:"map_name"`
	MapValue  string `json:"map_value"`
}

// Dictionary is an indexed, ordered collection of dictionary entries.
type Dictionary struct {
	Entries  []DictionaryEntry
	byColumn map[string]int
}

// NewDictionary indexes entries by column. Entries keep their file order.
func NewDictionary(entries []DictionaryEntry) *Dictionary {
	d := &Dictionary{
		Entries:  entries,
		byColumn: make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		if _, dup := d.byColumn[e.Column]; !dup {
			d.byColumn[e.Column] = i
		}
	}
	return d
}

// Entry returns the entry for column, if declared.
func (d *Dictionary) Entry(column string) (DictionaryEntry, bool) {
	i, ok := d.byColumn[column]
	if !ok {
		return DictionaryEntry{}, false
	}
	return d.Entries[i], true
}

// Columns returns declared column names in dictionary order.
func (d *Dictionary) Columns() []string {
	out := make([]string, len(d.Entries))
	for i, e := range d.Entries {
		out[i] = e.Column
	}
	return out
}

// WithJoinGroup returns the entries tagged with group, in dictionary order.
func (d *Dictionary) WithJoinGroup(group JoinGroup) []DictionaryEntry {
	var out []DictionaryEntry
	for _, e := range d.Entries {
		if e.JoinGroup == group {
			out = append(out, e)
		}
	}
	return out
}

// JoinEntries returns every entry that declares a join group.
func (d *Dictionary) JoinEntries() []DictionaryEntry {
	var out []DictionaryEntry
	for _, e := range d.Entries {
		if !e.JoinGroup.IsZero() {
			out = append(out, e)
		}
	}
	return out
}

// Restrict returns a dictionary containing only the allowed columns. A nil
// allow-list keeps everything.
func (d *Dictionary) Restrict(allow []string) *Dictionary {
	if allow == nil {
		return d
	}
	keep := make(map[string]bool, len(allow))
	for _, c := range allow {
		keep[c] = true
	}
	var entries []DictionaryEntry
	for _, e := range d.Entries {
		if keep[e.Column] {
			entries = append(entries, e)
		}
	}
	return NewDictionary(entries)
}
