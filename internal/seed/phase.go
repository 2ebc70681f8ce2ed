package seed

import (
	"fmt"
	"strings"

	"github.com/danielbdyer/ddlexporter/internal/apperr"
	"github.com/danielbdyer/ddlexporter/internal/config"
	"github.com/danielbdyer/ddlexporter/internal/ident"
	"github.com/danielbdyer/ddlexporter/internal/literal"
	"github.com/danielbdyer/ddlexporter/internal/model"
)

// Dataset pairs an ordered table with its rows, keyed the same way as
// Outcome.Phasing (§3.4 DynamicEntityDataset, realized per-table here).
type Dataset struct {
	Table model.StaticEntitySeedTableDefinition
	Rows  []model.StaticEntityRow
}

// Script is §4.I's generator result: the rendered text plus the structural
// facts scenario 2/3 of §8 assert on directly (RequiresPhasing,
// PhaseTwoUpdates) without needing to grep the rendered text.
type Script struct {
	Text            string
	RequiresPhasing bool
	PhaseTwoUpdates []string // table keys that received a phase-2 UPDATE block
}

// GenerateScript implements §4.I: one deterministic SQL script for the
// ordered table list, honoring phasable-cycle deferral and the configured
// synchronization mode.
func GenerateScript(outcome Outcome, datasets map[string]Dataset, quoter ident.Quoter, opts config.SeedingOptions) (Script, []apperr.Diagnostic) {
	var diags []apperr.Diagnostic
	var b strings.Builder

	result := Script{}
	var phaseTwo []string

	for _, t := range outcome.Ordered {
		key := nodeKey(t.Schema, effectiveOrDeclared(t))
		ds, ok := datasets[key]
		if !ok {
			ds = Dataset{Table: t}
		}

		pk := t.PrimaryKeyColumns()
		if len(pk) == 0 && !allowsMissingPK(opts, t) {
			diags = append(diags, apperr.Diagnostic{
				Code:     apperr.SeedPrimaryKeyRequired,
				Severity: apperr.Error,
				Message:  fmt.Sprintf("seed table %s.%s has no primary key and is not in allowMissingPrimaryKey", t.Schema, effectiveOrDeclared(t)),
				Coordinate: apperr.Coordinate{Schema: t.Schema, Table: effectiveOrDeclared(t)},
			})
		}

		plan, phased := outcome.Phasing[key]

		switch {
		case phased && plan.AlphabeticalOnly:
			result.RequiresPhasing = true
			writeStrongCycleBlock(&b, quoter, t, ds, pk, opts)

		case phased && plan.DeferredColumn != "":
			result.RequiresPhasing = true
			writePhaseOne(&b, quoter, t, ds, pk, plan)
			phaseTwo = append(phaseTwo, renderPhaseTwo(quoter, t, ds, pk, plan))
			result.PhaseTwoUpdates = append(result.PhaseTwoUpdates, key)

		default:
			writeSinglePhase(&b, quoter, t, ds, pk, opts)
		}
	}

	for _, block := range phaseTwo {
		b.WriteString("\n")
		b.WriteString(block)
	}

	result.Text = b.String()
	return result, diags
}

func allowsMissingPK(opts config.SeedingOptions, t model.StaticEntitySeedTableDefinition) bool {
	target := t.Module + "." + t.LogicalName
	for _, allowed := range opts.AllowMissingPrimaryKey {
		if allowed == target {
			return true
		}
	}
	return false
}

func matchColumns(t model.StaticEntitySeedTableDefinition, pk []model.StaticEntitySeedColumn) []model.StaticEntitySeedColumn {
	if len(pk) > 0 {
		return pk
	}
	return t.Columns
}

func qualifiedTable(q ident.Quoter, t model.StaticEntitySeedTableDefinition) string {
	return q.QualifyTable(t.Schema, effectiveOrDeclared(t))
}

func renderValues(q ident.Quoter, t model.StaticEntitySeedTableDefinition, rows []model.StaticEntityRow) string {
	if len(rows) == 0 {
		return ""
	}
	lines := make([]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(row.Values))
		for c, v := range row.Values {
			cells[c] = literal.Format(literal.FromAny(v))
		}
		lines[i] = "    (" + strings.Join(cells, ", ") + ")"
	}
	return strings.Join(lines, ",\n")
}

func columnNames(q ident.Quoter, cols []model.StaticEntitySeedColumn) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = q.Quote(c.EmissionName)
	}
	return strings.Join(names, ", ")
}

func joinPredicate(q ident.Quoter, pk []model.StaticEntitySeedColumn, left, right string) string {
	parts := make([]string, len(pk))
	for i, c := range pk {
		parts[i] = fmt.Sprintf("%s.%s = %s.%s", left, q.Quote(c.EmissionName), right, q.Quote(c.EmissionName))
	}
	return strings.Join(parts, " AND ")
}

func writeSinglePhase(b *strings.Builder, q ident.Quoter, t model.StaticEntitySeedTableDefinition, ds Dataset, pk []model.StaticEntitySeedColumn, opts config.SeedingOptions) {
	table := qualifiedTable(q, t)

	if len(ds.Rows) == 0 {
		fmt.Fprintf(b, "-- (no rows)\n")
		if opts.SynchronizationMode == config.ValidateThenApply {
			fmt.Fprintf(b, "IF EXISTS (SELECT 1 FROM %s)\n    THROW 51000, 'Unexpected existing rows in %s', 1;\n", table, table)
		}
		return
	}

	matchCols := matchColumns(t, pk)
	values := renderValues(q, t, ds.Rows)

	if opts.SynchronizationMode == config.ValidateThenApply {
		fmt.Fprintf(b, "IF EXISTS (\n    SELECT 1 FROM %s AS Target\n    WHERE NOT EXISTS (SELECT 1 FROM (VALUES\n%s\n    ) AS SourceRows (%s) WHERE %s)\n)\n    THROW 51001, 'Drift detected in %s', 1;\n",
			table, values, columnNames(q, t.Columns), joinPredicate(q, matchCols, "Target", "SourceRows"), table)
	}

	fmt.Fprintf(b, "MERGE INTO %s AS Target\n", table)
	fmt.Fprintf(b, "USING (VALUES\n%s\n) AS SourceRows (%s)\n", values, columnNames(q, t.Columns))
	fmt.Fprintf(b, "ON %s\n", joinPredicate(q, matchCols, "Target", "SourceRows"))
	fmt.Fprintf(b, "WHEN MATCHED THEN UPDATE SET %s\n", updateSetList(q, t.Columns, "SourceRows"))
	fmt.Fprintf(b, "WHEN NOT MATCHED BY TARGET THEN INSERT (%s) VALUES (%s)\n", columnNames(q, t.Columns), sourceColumnList(q, t.Columns, "SourceRows"))
	if opts.SynchronizationMode == config.Authoritative {
		b.WriteString("WHEN NOT MATCHED BY SOURCE THEN DELETE\n")
	}
	b.WriteString(";\n")
}

func updateSetList(q ident.Quoter, cols []model.StaticEntitySeedColumn, sourceAlias string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("%s = %s.%s", q.Quote(c.EmissionName), sourceAlias, q.Quote(c.EmissionName))
	}
	return strings.Join(parts, ", ")
}

func sourceColumnList(q ident.Quoter, cols []model.StaticEntitySeedColumn, sourceAlias string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("%s.%s", sourceAlias, q.Quote(c.EmissionName))
	}
	return strings.Join(parts, ", ")
}

// writePhaseOne implements §4.I phase 1: a PhaseOneSource CTE, followed by a
// MERGE whose INSERT/UPDATE clauses null the deferred FK column.
func writePhaseOne(b *strings.Builder, q ident.Quoter, t model.StaticEntitySeedTableDefinition, ds Dataset, pk []model.StaticEntitySeedColumn, plan PhasePlan) {
	table := qualifiedTable(q, t)

	if len(ds.Rows) == 0 {
		fmt.Fprintf(b, "-- (no rows)\n")
		return
	}

	values := renderValues(q, t, ds.Rows)
	matchCols := matchColumns(t, pk)
	deferredCol := q.Quote(plan.DeferredColumn)

	fmt.Fprintf(b, ";WITH PhaseOneSource AS (\n    SELECT * FROM (VALUES\n%s\n    ) AS SourceRows (%s)\n)\n", values, columnNames(q, t.Columns))
	fmt.Fprintf(b, "MERGE INTO %s AS Target\n", table)
	fmt.Fprintf(b, "USING PhaseOneSource AS SourceRows\n")
	fmt.Fprintf(b, "ON %s\n", joinPredicate(q, matchCols, "Target", "SourceRows"))

	setParts := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.EmissionName == plan.DeferredColumn {
			setParts = append(setParts, fmt.Sprintf("%s = NULL", deferredCol))
			continue
		}
		setParts = append(setParts, fmt.Sprintf("%s = SourceRows.%s", q.Quote(c.EmissionName), q.Quote(c.EmissionName)))
	}
	fmt.Fprintf(b, "WHEN MATCHED THEN UPDATE SET %s\n", strings.Join(setParts, ", "))

	insertValues := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.EmissionName == plan.DeferredColumn {
			insertValues = append(insertValues, fmt.Sprintf("CASE WHEN 1 = 0 THEN SourceRows.%s ELSE NULL END AS %s", deferredCol, deferredCol))
			continue
		}
		insertValues = append(insertValues, fmt.Sprintf("SourceRows.%s", q.Quote(c.EmissionName)))
	}
	fmt.Fprintf(b, "WHEN NOT MATCHED BY TARGET THEN INSERT (%s) VALUES (%s)\n", columnNames(q, t.Columns), strings.Join(insertValues, ", "))
	b.WriteString(";\n")
}

// renderPhaseTwo implements §4.I phase 2: an UPDATE restoring the deferred
// column's real value, keyed by the table's primary key.
func renderPhaseTwo(q ident.Quoter, t model.StaticEntitySeedTableDefinition, ds Dataset, pk []model.StaticEntitySeedColumn, plan PhasePlan) string {
	table := qualifiedTable(q, t)
	deferredCol := q.Quote(plan.DeferredColumn)
	matchCols := matchColumns(t, pk)

	var b strings.Builder
	fmt.Fprintf(&b, "-- UPDATE nullable FKs: %s.%s\n", t.Schema, effectiveOrDeclared(t))

	if len(ds.Rows) == 0 {
		fmt.Fprintf(&b, "-- (no rows)\n")
		return b.String()
	}

	values := renderValues(q, t, ds.Rows)
	fmt.Fprintf(&b, ";WITH SourceRows AS (\n    SELECT * FROM (VALUES\n%s\n    ) AS V (%s)\n)\n", values, columnNames(q, t.Columns))
	fmt.Fprintf(&b, "UPDATE %s\n", table)
	fmt.Fprintf(&b, "SET %s = Source.%s\n", deferredCol, deferredCol)
	fmt.Fprintf(&b, "FROM %s AS Target\n", table)
	fmt.Fprintf(&b, "JOIN SourceRows AS Source ON %s;\n", joinPredicate(q, matchCols, "Target", "Source"))
	return b.String()
}

// writeStrongCycleBlock implements §4.I's fallback for a strong cycle with
// no nullable edge: disable and re-enable constraints around a normal
// single-phase block, per §4.H step 4c's alphabetical fallback.
func writeStrongCycleBlock(b *strings.Builder, q ident.Quoter, t model.StaticEntitySeedTableDefinition, ds Dataset, pk []model.StaticEntitySeedColumn, opts config.SeedingOptions) {
	table := qualifiedTable(q, t)
	fmt.Fprintf(b, "ALTER TABLE %s NOCHECK CONSTRAINT ALL;\n", table)
	writeSinglePhase(b, q, t, ds, pk, opts)
	fmt.Fprintf(b, "ALTER TABLE %s WITH CHECK CHECK CONSTRAINT ALL;\n", table)
}
