package preflight

import (
	"testing"

	"github.com/danielbdyer/ddlexporter/internal/seed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunNoFindingsWhenParentSeededFirst(t *testing.T) {
	ordered := []string{seedKey("dbo", "Customers"), seedKey("dbo", "Orders")}
	edges := []seed.RelationshipEdge{
		{OwningSchema: "dbo", OwningTable: "Orders", OwningColumn: "CustomerId", ReferencedSchema: "dbo", ReferencedTable: "Customers"},
	}
	report := Run(ordered, edges)
	assert.Empty(t, report.Findings)
}

func TestRunMissingParentWhenParentNotSeeded(t *testing.T) {
	ordered := []string{seedKey("dbo", "Orders")}
	edges := []seed.RelationshipEdge{
		{OwningSchema: "dbo", OwningTable: "Orders", OwningColumn: "CustomerId", ReferencedSchema: "dbo", ReferencedTable: "Customers"},
	}
	report := Run(ordered, edges)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, MissingParent, report.Findings[0].Kind)
}

func TestRunParentAfterChildWhenOrderIsWrong(t *testing.T) {
	ordered := []string{seedKey("dbo", "Orders"), seedKey("dbo", "Customers")}
	edges := []seed.RelationshipEdge{
		{OwningSchema: "dbo", OwningTable: "Orders", OwningColumn: "CustomerId", ReferencedSchema: "dbo", ReferencedTable: "Customers"},
	}
	report := Run(ordered, edges)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, ParentAfterChild, report.Findings[0].Kind)
}

func TestDiagnosticsConvertsFindingsToWarnings(t *testing.T) {
	report := Report{Findings: []Finding{
		{Kind: MissingParent, OwningSchema: "dbo", OwningTable: "Orders", OwningColumn: "CustomerId", ReferencedSchema: "dbo", ReferencedTable: "Customers"},
	}}
	diags := report.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "warning", string(diags[0].Severity))
	assert.Contains(t, diags[0].Message, "which has no seed data")
}

func TestFindingStringFormatsByKind(t *testing.T) {
	missing := Finding{Kind: MissingParent, OwningSchema: "dbo", OwningTable: "Orders", OwningColumn: "CustomerId", ReferencedSchema: "dbo", ReferencedTable: "Customers"}
	assert.Contains(t, missing.String(), "no seed data")

	late := Finding{Kind: ParentAfterChild, OwningSchema: "dbo", OwningTable: "Orders", OwningColumn: "CustomerId", ReferencedSchema: "dbo", ReferencedTable: "Customers"}
	assert.Contains(t, late.String(), "seeded after it")
}
