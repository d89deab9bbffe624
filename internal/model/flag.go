package model

import (
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Flag is a tri-state switch read from source metadata. The zero value is unset.
type Flag int8

const (
	FlagUnset Flag = iota
	FlagTrue
	FlagFalse
)

// ParseFlag converts a metadata literal into a Flag. Empty input is unset;
// anything outside the accepted vocabulary is an error.
func ParseFlag(s string) (Flag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return FlagUnset, nil
	case "true", "1", "yes", "y", "t":
		return FlagTrue, nil
	case "false", "0", "no", "n", "f":
		return FlagFalse, nil
	default:
		return FlagUnset, eris.Errorf("model: invalid flag value %q", s)
	}
}

// IsTrue reports whether the flag was explicitly enabled.
func (f Flag) IsTrue() bool { return f == FlagTrue }

// String returns "true", "false" or "" for unset.
func (f Flag) String() string {
	switch f {
	case FlagTrue:
		return "true"
	case FlagFalse:
		return "false"
	default:
		return ""
	}
}

// UnmarshalYAML accepts booleans, 0/1 integers, strings and null.
func (f *Flag) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" {
		*f = FlagUnset
		return nil
	}
	v, err := ParseFlag(node.Value)
	if err != nil {
		return eris.Wrapf(err, "model: line %d", node.Line)
	}
	*f = v
	return nil
}
