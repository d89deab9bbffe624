package model

import "strings"

// JoinGroup tags a dictionary column as a join key shared across sources.
type JoinGroup string

const (
	JoinVariationID JoinGroup = "variation-id"
	JoinGeneSymbol  JoinGroup = "gene-symbol"
	JoinHGNCID      JoinGroup = "hgnc-id"
)

// joinPrecedence orders the known join groups; earlier entries win when a
// source can be joined on more than one.
var joinPrecedence = []JoinGroup{JoinVariationID, JoinGeneSymbol, JoinHGNCID}

// ParseJoinGroup normalises a raw dictionary value. Blank means no group.
func ParseJoinGroup(s string) JoinGroup {
	return JoinGroup(strings.ToLower(strings.TrimSpace(s)))
}

// Rank returns the precedence of the group (lower wins). Unknown groups rank
// after every known group.
func (g JoinGroup) Rank() int {
	for i, known := range joinPrecedence {
		if g == known {
			return i
		}
	}
	return len(joinPrecedence)
}

// Known reports whether g is one of the fixed precedence groups.
func (g JoinGroup) Known() bool {
	return g.Rank() < len(joinPrecedence)
}

// IsZero reports whether no join group is declared.
func (g JoinGroup) IsZero() bool { return g == "" }
