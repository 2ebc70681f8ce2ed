// Package preflight implements §4.L: given the sorted seed order and the
// model's relationships, scan for parent/child ordering problems before any
// seed script is emitted. Like the seed sorter, preflight never fails — it
// always produces a report, surfaced by the engine as diagnostics.
package preflight

import (
	"fmt"
	"strings"

	"github.com/danielbdyer/ddlexporter/internal/apperr"
	"github.com/danielbdyer/ddlexporter/internal/seed"
)

// FindingKind classifies one preflight observation.
type FindingKind string

const (
	MissingParent    FindingKind = "MissingParent"
	ParentAfterChild FindingKind = "ParentAfterChild"
)

// Finding is one §4.L observation tying a relationship to the ordering
// problem it causes.
type Finding struct {
	Kind             FindingKind
	OwningSchema     string
	OwningTable      string
	OwningColumn     string
	ReferencedSchema string
	ReferencedTable  string
}

func (f Finding) String() string {
	switch f.Kind {
	case MissingParent:
		return fmt.Sprintf("%s.%s.%s references %s.%s, which has no seed data",
			f.OwningSchema, f.OwningTable, f.OwningColumn, f.ReferencedSchema, f.ReferencedTable)
	case ParentAfterChild:
		return fmt.Sprintf("%s.%s.%s references %s.%s, which is seeded after it",
			f.OwningSchema, f.OwningTable, f.OwningColumn, f.ReferencedSchema, f.ReferencedTable)
	default:
		return string(f.Kind)
	}
}

// Report is the full §4.L result: a structured list of findings, never an
// error.
type Report struct {
	Findings []Finding
}

// Diagnostics converts the report into warning-severity diagnostics for the
// engine to surface alongside the rest of a build's output.
func (r Report) Diagnostics() []apperr.Diagnostic {
	diags := make([]apperr.Diagnostic, 0, len(r.Findings))
	for _, f := range r.Findings {
		diags = append(diags, apperr.Diagnostic{
			Code:     apperr.ModelInvariant,
			Severity: apperr.Warning,
			Message:  f.String(),
			Coordinate: apperr.Coordinate{
				Schema: f.OwningSchema,
				Table:  f.OwningTable,
				Column: f.OwningColumn,
			},
		})
	}
	return diags
}

// Run scans edges against the sorter's ordered table list, reporting every
// relationship whose referenced parent either has no seed table at all
// (MissingParent) or is positioned after its child in the ordered list
// (ParentAfterChild).
func Run(ordered []string, edges []seed.RelationshipEdge) Report {
	position := make(map[string]int, len(ordered))
	for i, key := range ordered {
		position[key] = i
	}

	var report Report
	for _, e := range edges {
		parentKey := seedKey(e.ReferencedSchema, e.ReferencedTable)
		childKey := seedKey(e.OwningSchema, e.OwningTable)

		parentPos, parentSeeded := position[parentKey]
		if !parentSeeded {
			report.Findings = append(report.Findings, Finding{
				Kind:             MissingParent,
				OwningSchema:     e.OwningSchema,
				OwningTable:      e.OwningTable,
				OwningColumn:     e.OwningColumn,
				ReferencedSchema: e.ReferencedSchema,
				ReferencedTable:  e.ReferencedTable,
			})
			continue
		}

		childPos, childSeeded := position[childKey]
		if !childSeeded {
			continue
		}
		if parentPos > childPos {
			report.Findings = append(report.Findings, Finding{
				Kind:             ParentAfterChild,
				OwningSchema:     e.OwningSchema,
				OwningTable:      e.OwningTable,
				OwningColumn:     e.OwningColumn,
				ReferencedSchema: e.ReferencedSchema,
				ReferencedTable:  e.ReferencedTable,
			})
		}
	}
	return report
}

func seedKey(schema, table string) string {
	return strings.ToUpper(schema) + "\x00" + strings.ToUpper(table)
}
