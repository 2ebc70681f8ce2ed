package ident

import (
	"strings"

	"github.com/danielbdyer/ddlexporter/internal/apperr"
	"github.com/danielbdyer/ddlexporter/internal/config"
)

// TableTarget identifies the table a naming-override rule must match
// against (§4.A).
type TableTarget struct {
	Schema      string
	PhysicalName string
	Module      string
	LogicalName string
}

// Resolver evaluates the configured naming-override rule set against table
// targets. It is built once per build and carried by value (§9), never
// mutated afterward.
type Resolver struct {
	rules []config.NamingOverride
}

// NewResolver builds a Resolver from the configured rule set.
func NewResolver(rules []config.NamingOverride) Resolver {
	cp := make([]config.NamingOverride, len(rules))
	copy(cp, rules)
	return Resolver{rules: cp}
}

func ruleMatches(r config.NamingOverride, t TableTarget) bool {
	if r.Schema != "" && !strings.EqualFold(r.Schema, t.Schema) {
		return false
	}
	if r.Table != "" && !strings.EqualFold(r.Table, t.PhysicalName) {
		return false
	}
	if r.Module != "" && !strings.EqualFold(r.Module, t.Module) {
		return false
	}
	if r.LogicalName != "" && !strings.EqualFold(r.LogicalName, t.LogicalName) {
		return false
	}
	// A rule with no selector fields at all matches nothing; it cannot be
	// more specific than "no override" and would otherwise match everything.
	if r.Schema == "" && r.Table == "" && r.Module == "" && r.LogicalName == "" {
		return false
	}
	return true
}

// Resolve returns the effective physical name for t: the target of the
// single most-specific matching rule, or t.PhysicalName unchanged when no
// rule matches. Multiple matching rules at the same (highest) specificity
// are an override.ambiguous error (§4.A, §7).
func (res Resolver) Resolve(t TableTarget) (string, *apperr.Error) {
	var best []config.NamingOverride
	bestSpecificity := -1

	for _, r := range res.rules {
		if !ruleMatches(r, t) {
			continue
		}
		s := r.Specificity()
		switch {
		case s > bestSpecificity:
			bestSpecificity = s
			best = []config.NamingOverride{r}
		case s == bestSpecificity:
			best = append(best, r)
		}
	}

	switch len(best) {
	case 0:
		return t.PhysicalName, nil
	case 1:
		return best[0].Target, nil
	default:
		return t.PhysicalName, apperr.New(
			apperr.OverrideAmbiguous,
			apperr.Coordinate{Schema: t.Schema, Table: t.PhysicalName},
			"%d naming overrides match %s.%s at equal specificity; callers must dedupe",
			len(best), t.Schema, t.PhysicalName,
		)
	}
}
