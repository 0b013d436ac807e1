// Package config loads replacement rules and protected regions from rule
// files. The native format is a small statement language
// (REPLACE/DEL/PROTECT/CLEAR); .hcl, .yaml and .json rule files are
// supported as structured alternatives and feed the same RuleSet.
package config

import (
	"github.com/walteh/subrc/pkg/page"
)

// RuleSet is the aggregate output of all parsed rule sources: the
// pattern→replacement map and the ordered protected-region list. It is
// what the substitution engine consumes.
type RuleSet struct {
	Replacements map[string]string
	Regions      []page.Region
}

// NewRuleSet returns an empty rule set.
func NewRuleSet() *RuleSet {
	return &RuleSet{Replacements: make(map[string]string)}
}

// Replace adds or overrides a replacement rule. A later rule for the same
// pattern wins.
func (rs *RuleSet) Replace(from, to string) {
	if from == "" {
		return
	}
	rs.Replacements[from] = to
}

// Delete removes a replacement rule, reporting whether it existed.
func (rs *RuleSet) Delete(from string) bool {
	if _, ok := rs.Replacements[from]; !ok {
		return false
	}
	delete(rs.Replacements, from)
	return true
}

// Protect appends a protected-region marker pair. Order matters: the
// scanner tries regions in the order they were declared.
func (rs *RuleSet) Protect(startMarker, endMarker string) {
	if startMarker == "" || endMarker == "" {
		return
	}
	rs.Regions = append(rs.Regions, page.Region{
		StartMarker: startMarker,
		EndMarker:   endMarker,
	})
}

// Clear drops all replacement rules. Protected regions are kept.
func (rs *RuleSet) Clear() {
	rs.Replacements = make(map[string]string)
}

// Empty reports whether the set holds neither rules nor regions.
func (rs *RuleSet) Empty() bool {
	return len(rs.Replacements) == 0 && len(rs.Regions) == 0
}
