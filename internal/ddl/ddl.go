// Package ddl implements §4.G: rendering one TableDefinition into a single
// SQL Server DDL text artifact. Rendering is pure string assembly — no I/O,
// no state carried between tables.
package ddl

import (
	"fmt"
	"strings"

	"github.com/danielbdyer/ddlexporter/internal/config"
	"github.com/danielbdyer/ddlexporter/internal/ident"
	"github.com/danielbdyer/ddlexporter/internal/model"
)

// HeaderInfo carries the provenance facts the optional header comment block
// reports (§4.G step 1).
type HeaderInfo struct {
	ModelPath            string
	ProfilePath          string
	FingerprintAlgorithm string
	FingerprintHash      string
	DecisionsSummary     string
}

// Writer renders TableDefinitions using a fixed quoting strategy and
// emission options (§4.G, §4.A).
type Writer struct {
	Quoter  ident.Quoter
	Options config.EmissionOptions
}

// NewWriter builds a Writer from the resolved emission options.
func NewWriter(quoter ident.Quoter, opts config.EmissionOptions) Writer {
	return Writer{Quoter: quoter, Options: opts}
}

// estimatedSize pre-sizes the output buffer off the column count (§9:
// "big-string assembly... benefits from a pre-sized byte buffer keyed off
// the column count").
func estimatedSize(t model.TableDefinition) int {
	return 128 + len(t.Columns)*80 + len(t.Indexes)*96 + len(t.ForeignKeys)*160
}

// Render produces the full text artifact for t: the optional header block,
// CREATE TABLE with inline PK/FK, separate index statements, extended
// properties, and trigger bodies — or, under EmitBareTableOnly, just the
// header and the bare column list plus the primary key clause (§9 Open
// Questions: the source still emits the PK clause in bare mode).
func (w Writer) Render(t model.TableDefinition, header HeaderInfo) string {
	var b strings.Builder
	b.Grow(estimatedSize(t))

	bare := w.Options.EmitBareTableOnly

	if w.Options.EmitHeaderBlock {
		w.writeHeader(&b, t, header)
	}

	w.writeCreateTable(&b, t, bare)

	if !bare {
		w.writeIndexes(&b, t)
		w.writeExtendedProperties(&b, t)
		w.writeTriggers(&b, t)
	}

	return b.String()
}

func (w Writer) writeHeader(b *strings.Builder, t model.TableDefinition, h HeaderInfo) {
	b.WriteString("/*\n")
	if h.ModelPath != "" {
		fmt.Fprintf(b, " * Model:       %s\n", h.ModelPath)
	}
	if h.ProfilePath != "" {
		fmt.Fprintf(b, " * Profile:     %s\n", h.ProfilePath)
	}
	fmt.Fprintf(b, " * Module:      %s\n", w.headerModuleName(t.Module))
	fmt.Fprintf(b, " * Entity:      %s\n", t.LogicalName)
	if h.FingerprintAlgorithm != "" {
		fmt.Fprintf(b, " * Fingerprint: %s:%s\n", h.FingerprintAlgorithm, h.FingerprintHash)
	}
	if t.RenamedFrom != nil {
		fmt.Fprintf(b, " * RenamedFrom: %s.%s\n", t.RenamedFrom.OldSchema, t.RenamedFrom.OldName)
		fmt.Fprintf(b, " * EffectiveName: %s.%s\n", t.Schema, t.PhysicalName)
	}
	if t.OriginalModule != "" && t.OriginalModule != t.Module {
		fmt.Fprintf(b, " * OriginalModule: %s\n", w.headerModuleName(t.OriginalModule))
	}
	if h.DecisionsSummary != "" {
		fmt.Fprintf(b, " * Decisions:   %s\n", h.DecisionsSummary)
	}
	b.WriteString(" */\n")
}

// headerModuleName applies the same sanitization used for the output
// directory name to the header comment's module text, per §4.A's carve-out
// naming both targets (directory names and header text).
func (w Writer) headerModuleName(module string) string {
	if !w.Options.SanitizeModuleNames {
		return module
	}
	return ident.SanitizeModuleName(module)
}

func (w Writer) writeCreateTable(b *strings.Builder, t model.TableDefinition, bare bool) {
	qualified := w.Quoter.QualifyTable(t.Schema, t.PhysicalName)
	fmt.Fprintf(b, "CREATE TABLE %s (\n", qualified)

	var lines []string
	for _, c := range t.Columns {
		lines = append(lines, w.renderColumn(c, bare))
	}

	if pk := primaryKey(t.Indexes); pk != nil {
		lines = append(lines, w.renderPrimaryKey(t, *pk))
	}

	if !bare {
		for _, fk := range t.ForeignKeys {
			lines = append(lines, w.renderForeignKey(fk))
		}
	}

	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n);\n")
}

func (w Writer) renderColumn(c model.ColumnDefinition, bare bool) string {
	var line strings.Builder
	fmt.Fprintf(&line, "    %s %s", w.Quoter.Quote(c.PhysicalName), c.DataType)

	if c.Computed != nil {
		fmt.Fprintf(&line, " AS (%s)", c.Computed.Expression)
		return line.String()
	}

	if c.Nullable {
		line.WriteString(" NULL")
	} else {
		line.WriteString(" NOT NULL")
	}

	if c.Identity != nil {
		fmt.Fprintf(&line, " IDENTITY(%d,%d)", c.Identity.Seed, c.Identity.Increment)
	}
	if c.Collation != "" {
		fmt.Fprintf(&line, " COLLATE %s", c.Collation)
	}

	if !bare && c.DefaultExpression != "" {
		if c.DefaultConstraint != "" {
			fmt.Fprintf(&line, "\n        CONSTRAINT %s DEFAULT %s", w.Quoter.Quote(c.DefaultConstraint), c.DefaultExpression)
		} else {
			fmt.Fprintf(&line, "\n        DEFAULT %s", c.DefaultExpression)
		}
	}

	if !bare {
		for _, chk := range c.CheckConstraints {
			fmt.Fprintf(&line, "\n        CONSTRAINT %s CHECK", w.Quoter.Quote(chk.Name))
			if chk.NotTrusted {
				line.WriteString(" NOT FOR REPLICATION")
			}
			fmt.Fprintf(&line, " (%s)", chk.Definition)
		}
	}

	return line.String()
}

func primaryKey(indexes []model.IndexDefinition) *model.IndexDefinition {
	for i := range indexes {
		if indexes[i].IsPrimary {
			return &indexes[i]
		}
	}
	return nil
}

func (w Writer) renderPrimaryKey(t model.TableDefinition, pk model.IndexDefinition) string {
	var line strings.Builder
	fmt.Fprintf(&line, "    CONSTRAINT %s PRIMARY KEY CLUSTERED (\n", w.Quoter.Quote(pk.Name))
	cols := make([]string, len(pk.KeyColumns))
	for i, c := range pk.KeyColumns {
		dir := c.Direction
		if dir == "" {
			dir = "ASC"
		}
		cols[i] = fmt.Sprintf("        %s %s", w.Quoter.Quote(c.Column), dir)
	}
	line.WriteString(strings.Join(cols, ",\n"))
	line.WriteString("\n    )")
	return line.String()
}

func (w Writer) renderForeignKey(fk model.ForeignKeyDefinition) string {
	var line strings.Builder
	fmt.Fprintf(&line, "    CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		w.Quoter.Quote(fk.Name),
		w.quoteJoin(fk.OwningColumns),
		w.Quoter.QualifyTable(fk.ReferencedSchema, fk.ReferencedTable),
		w.quoteJoin(fk.ReferencedColumns),
	)

	if fk.DeleteAction != "" && fk.DeleteAction != "NoAction" {
		fmt.Fprintf(&line, "\n        ON DELETE %s", sqlAction(fk.DeleteAction))
	}
	if fk.UpdateAction != "" && fk.UpdateAction != "NoAction" {
		fmt.Fprintf(&line, "\n        ON UPDATE %s", sqlAction(fk.UpdateAction))
	}

	if !fk.IsTrusted && w.Options.EmitNotForReplicationOnUntrustedFK {
		line.WriteString("\n        NOT FOR REPLICATION")
	}
	if fk.NotTrustedComment != "" {
		fmt.Fprintf(&line, "\n        -- %s", fk.NotTrustedComment)
	}

	return line.String()
}

func sqlAction(code string) string {
	switch code {
	case "Cascade":
		return "CASCADE"
	case "SetNull":
		return "SET NULL"
	case "SetDefault":
		return "SET DEFAULT"
	default:
		return "NO ACTION"
	}
}

func (w Writer) quoteJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = w.Quoter.Quote(c)
	}
	return strings.Join(quoted, ", ")
}

func (w Writer) writeIndexes(b *strings.Builder, t model.TableDefinition) {
	for _, idx := range t.Indexes {
		if idx.IsPrimary {
			continue
		}
		kind := "INDEX"
		if idx.IsUnique {
			kind = "UNIQUE INDEX"
		}
		fmt.Fprintf(b, "\nCREATE %s %s ON %s (\n", kind, w.Quoter.Quote(idx.Name), w.Quoter.QualifyTable(t.Schema, t.PhysicalName))

		var parts []string
		for _, c := range idx.KeyColumns {
			dir := c.Direction
			if dir == "" {
				dir = "ASC"
			}
			parts = append(parts, fmt.Sprintf("    %s %s", w.Quoter.Quote(c.Column), dir))
		}
		b.WriteString(strings.Join(parts, ",\n"))
		b.WriteString("\n)")

		if len(idx.IncludedColumns) > 0 {
			b.WriteString(" INCLUDE (")
			b.WriteString(w.quoteJoin(idx.IncludedColumns))
			b.WriteString(")")
		}
		if idx.Metadata.Filter != "" {
			fmt.Fprintf(b, " WHERE %s", idx.Metadata.Filter)
		}
		b.WriteString(with(idx.Metadata))
		b.WriteString(";\n")
	}
}

func with(meta model.IndexMetadata) string {
	var opts []string
	if meta.FillFactor != nil {
		opts = append(opts, fmt.Sprintf("FILLFACTOR = %d", *meta.FillFactor))
	}
	if meta.DataCompression != "" {
		opts = append(opts, fmt.Sprintf("DATA_COMPRESSION = %s", meta.DataCompression))
	}
	if len(opts) == 0 {
		return ""
	}
	return " WITH (" + strings.Join(opts, ", ") + ")"
}

func (w Writer) writeExtendedProperties(b *strings.Builder, t model.TableDefinition) {
	if t.Description != "" {
		fmt.Fprintf(b, "\n%s", extendedProperty(t.Schema, t.PhysicalName, "", t.Description))
	}
	for _, c := range t.Columns {
		if c.Description != "" {
			fmt.Fprintf(b, "\n%s", extendedProperty(t.Schema, t.PhysicalName, c.PhysicalName, c.Description))
		}
	}
}

// extendedProperty renders one sp_addextendedproperty call (§6.4).
func extendedProperty(schema, table, column, description string) string {
	escaped := strings.ReplaceAll(description, "'", "''")
	if column == "" {
		return fmt.Sprintf(
			"EXEC sys.sp_addextendedproperty @name=N'MS_Description', @value=N'%s', @level0type=N'SCHEMA', @level0name=N'%s', @level1type=N'TABLE', @level1name=N'%s';\n",
			escaped, schema, table,
		)
	}
	return fmt.Sprintf(
		"EXEC sys.sp_addextendedproperty @name=N'MS_Description', @value=N'%s', @level0type=N'SCHEMA', @level0name=N'%s', @level1type=N'TABLE', @level1name=N'%s', @level2type=N'COLUMN', @level2name=N'%s';\n",
		escaped, schema, table, column,
	)
}

func (w Writer) writeTriggers(b *strings.Builder, t model.TableDefinition) {
	for _, trig := range t.Triggers {
		fmt.Fprintf(b, "\n%s\n", strings.TrimRight(trig.Definition, "\n"))
		if trig.IsDisabled {
			fmt.Fprintf(b, "ALTER TABLE %s DISABLE TRIGGER %s;\n",
				w.Quoter.QualifyTable(t.Schema, t.PhysicalName), w.Quoter.Quote(trig.Name))
		}
	}
}

// HasExtendedProperties reports whether t's DDL includes any
// sp_addextendedproperty call, for the manifest's includesExtendedProperties
// flag (§4.J, §6.5).
func HasExtendedProperties(t model.TableDefinition) bool {
	if t.Description != "" {
		return true
	}
	for _, c := range t.Columns {
		if c.Description != "" {
			return true
		}
	}
	return false
}
