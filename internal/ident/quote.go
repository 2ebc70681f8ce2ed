// Package ident implements §4.A: identifier quoting, module sanitization,
// naming-override resolution, and deterministic constraint-name synthesis.
// A Naming resolver is constructed once per build from the configured
// overrides and carried by value through the projector (§9: "no global
// naming registry").
package ident

import (
	"strings"

	"github.com/danielbdyer/ddlexporter/internal/config"
)

// Quoter renders an identifier using one of the two supported bracketing
// strategies, escaping an embedded closing delimiter by doubling it —
// mirroring the teacher's escapeSQLName, generalized to the two supported
// strategies instead of one-mode-per-binary.
type Quoter struct {
	strategy config.QuoteStrategy
}

// NewQuoter builds a Quoter for the given strategy, defaulting to bracket
// quoting (SQL Server's native convention) for an unrecognized strategy.
func NewQuoter(strategy config.QuoteStrategy) Quoter {
	if strategy != config.QuoteBracket && strategy != config.QuoteDouble {
		strategy = config.QuoteBracket
	}
	return Quoter{strategy: strategy}
}

// Quote wraps name in the configured delimiter pair, doubling any embedded
// occurrence of the closing delimiter.
func (q Quoter) Quote(name string) string {
	switch q.strategy {
	case config.QuoteDouble:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	default:
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	}
}

// QualifyTable renders a schema-qualified, quoted table reference.
func (q Quoter) QualifyTable(schema, table string) string {
	return q.Quote(schema) + "." + q.Quote(table)
}

// SanitizeModuleName replaces whitespace and characters unsafe for a
// directory/header-text name with "_" (§4.A). It is never applied to
// logical identifiers used in resolution — only to directory names and
// header text, per the spec's explicit carve-out.
func SanitizeModuleName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if isSafeModuleRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func isSafeModuleRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-':
		return true
	default:
		return false
	}
}
