// Package project implements §4.F: the SMO model factory. It turns a
// PolicyDecisionSet plus the model into the physical TableDefinitions the
// DDL writer renders, applying naming overrides and resolving reference
// targets along the way.
package project

import (
	"fmt"
	"sort"

	"github.com/danielbdyer/ddlexporter/internal/apperr"
	"github.com/danielbdyer/ddlexporter/internal/config"
	"github.com/danielbdyer/ddlexporter/internal/ident"
	"github.com/danielbdyer/ddlexporter/internal/model"
	"github.com/danielbdyer/ddlexporter/internal/resolve"
	"github.com/danielbdyer/ddlexporter/internal/types"
)

// Projector builds TableDefinitions. It is constructed once per build and
// holds only immutable configuration (§9: "no global naming registry" — the
// resolver is carried by value through here).
type Projector struct {
	Resolver ident.Resolver
	Naming   ident.NamingConfig
	Quoter   ident.Quoter
	Index    *resolve.Index
	Decisions model.PolicyDecisionSet
	TypePolicy types.Policy
	Options   config.EmissionOptions
}

// effectiveNames maps a table's declared (schema, physical) key to its
// post-override effective physical name, so FK targets emitted by other
// tables can be rewritten even though those tables project independently
// (§4.F step 6, §4.A "every emitted name... is rewritten").
type effectiveNames map[string]string

func declaredKey(schema, physical string) string {
	return schema + "\x00" + physical
}

// ProjectAll builds one TableDefinition per non-external, active entity, in
// module-then-declared-entity order (§4.F determinism contract).
func (p Projector) ProjectAll(m model.Model) ([]model.TableDefinition, []apperr.Diagnostic) {
	var diags []apperr.Diagnostic

	names := p.resolveEffectiveNames(m, &diags)

	seenEffective := make(map[string]string) // SCHEMA\x00EFFECTIVE -> owner logical

	var tables []model.TableDefinition
	for _, mod := range m.Modules {
		for _, e := range mod.Entities {
			if e.IsExternal || !e.IsActive {
				continue
			}
			table, tdiags := p.projectEntity(mod, e, names)
			diags = append(diags, tdiags...)

			effectiveKey := declaredKey(table.Schema, table.PhysicalName)
			if owner, exists := seenEffective[effectiveKey]; exists {
				diags = append(diags, apperr.Diagnostic{
					Code:     apperr.ModelInvariant,
					Severity: apperr.Error,
					Message: fmt.Sprintf(
						"naming override produces duplicate effective name %s.%s (already used by %s)",
						table.Schema, table.PhysicalName, owner,
					),
					Coordinate: apperr.Coordinate{Schema: table.Schema, Table: table.PhysicalName},
				})
			}
			seenEffective[effectiveKey] = mod.Name + "." + e.LogicalName

			tables = append(tables, table)
		}
	}

	return tables, diags
}

// resolveEffectiveNames pre-computes every entity's effective physical name
// so FK-target rewriting (§4.F step 6) can happen while projecting any
// table, regardless of module order.
func (p Projector) resolveEffectiveNames(m model.Model, diags *[]apperr.Diagnostic) effectiveNames {
	names := make(effectiveNames)
	for _, mod := range m.Modules {
		for _, e := range mod.Entities {
			target := ident.TableTarget{
				Schema:       e.Schema,
				PhysicalName: e.PhysicalName,
				Module:       mod.Name,
				LogicalName:  e.LogicalName,
			}
			effective, err := p.Resolver.Resolve(target)
			if err != nil {
				*diags = append(*diags, err.Diagnostic())
				effective = e.PhysicalName
			}
			names[declaredKey(e.Schema, e.PhysicalName)] = effective
		}
	}
	return names
}

func (p Projector) projectEntity(mod model.Module, e model.Entity, names effectiveNames) (model.TableDefinition, []apperr.Diagnostic) {
	var diags []apperr.Diagnostic

	effectiveName := names[declaredKey(e.Schema, e.PhysicalName)]

	table := model.TableDefinition{
		Module:         mod.Name,
		OriginalModule: mod.Name,
		PhysicalName:   effectiveName,
		Schema:         e.Schema,
		Catalog:        e.Catalog,
		LogicalName:    e.LogicalName,
		Description:    e.Description(),
		IsStatic:       e.IsStatic,
	}
	if effectiveName != e.PhysicalName {
		table.RenamedFrom = &model.RenameProvenance{OldSchema: e.Schema, OldName: e.PhysicalName}
	}

	emittable := EmittableAttributes(e)

	columns, colDiags := p.buildColumns(e, emittable)
	diags = append(diags, colDiags...)
	table.Columns = columns

	pk := p.buildPrimaryKey(e, emittable)
	indexes := p.buildOtherIndexes(e)
	if pk != nil {
		indexes = append([]model.IndexDefinition{*pk}, indexes...)
	}
	table.Indexes = sortIndexes(indexes)

	fks, fkDiags := p.buildForeignKeys(mod.Name, e, names)
	diags = append(diags, fkDiags...)
	table.ForeignKeys = fks

	table.Triggers = e.Triggers

	return table, diags
}

// EmittableAttributes selects active-or-on-disk-present attributes (§4.F
// step 1): inactive-present columns are retained for seeding but never
// appear as a new CREATE TABLE column.
func EmittableAttributes(e model.Entity) []model.Attribute {
	var out []model.Attribute
	for _, a := range e.Attributes {
		if a.IsActive || a.OnDisk != nil {
			out = append(out, a)
		}
	}
	return out
}

func (p Projector) buildColumns(e model.Entity, attrs []model.Attribute) ([]model.ColumnDefinition, []apperr.Diagnostic) {
	var diags []apperr.Diagnostic
	columns := make([]model.ColumnDefinition, 0, len(attrs))

	for _, a := range attrs {
		if !a.IsActive && a.OnDisk != nil {
			// Inactive-but-present: retained for seeding, never a new column.
			continue
		}

		refIsIdentifier := p.referenceIsIdentifier(a)
		dataType := types.Resolve(a, refIsIdentifier, p.TypePolicy)

		coord := model.ColumnCoordinate{Schema: e.Schema, Table: e.PhysicalName, Column: a.PhysicalName}
		decision := p.Decisions.NullabilityFor(coord)

		col := model.ColumnDefinition{
			PhysicalName: a.PhysicalName,
			LogicalName:  a.LogicalName,
			DataType:     dataType,
			Nullable:     !decision.MakeNotNull,
			Description:  a.Description(),
		}

		if a.OnDisk != nil {
			col.Collation = a.OnDisk.Collation
			if a.OnDisk.IsComputed {
				col.Computed = &model.ComputedSpec{Expression: a.OnDisk.ComputedDefinition}
			}
			if a.OnDisk.IsIdentity {
				col.Identity = &model.IdentitySpec{Seed: a.OnDisk.IdentitySeed, Increment: a.OnDisk.IdentityIncrement}
				if col.Identity.Increment == 0 {
					col.Identity.Increment = 1
				}
				if col.Identity.Seed == 0 {
					col.Identity.Seed = 1
				}
			}
			col.CheckConstraints = a.OnDisk.CheckConstraints

			if a.OnDisk.DefaultDefinition != "" {
				col.DefaultExpression = types.NormalizeDefault(a.OnDisk.DefaultDefinition, dataType)
				col.DefaultConstraint = a.OnDisk.DefaultConstraint
			}
		} else if a.IsAutoNumber {
			col.Identity = &model.IdentitySpec{Seed: 1, Increment: 1}
		}

		if col.DefaultExpression == "" && a.Reality.DefaultDefinition != "" {
			col.DefaultExpression = types.NormalizeDefault(a.Reality.DefaultDefinition, dataType)
		}

		columns = append(columns, col)
	}

	return columns, diags
}

// referenceIsIdentifier reports whether a references attribute targets an
// identifier column, forcing BIGINT under §4.B rule 1. A reference whose
// target cannot be resolved is treated conservatively as non-identifier so
// type resolution falls through to the attribute's declared type.
func (p Projector) referenceIsIdentifier(a model.Attribute) bool {
	if a.Reference == nil {
		return false
	}
	ctx, ok := p.Index.Resolve(resolve.Reference{LogicalName: a.Reference.TargetEntityLogicalName}, resolve.Owner{})
	_ = ctx
	return ok
}

func (p Projector) buildPrimaryKey(e model.Entity, attrs []model.Attribute) *model.IndexDefinition {
	for _, idx := range e.Indexes {
		if idx.IsPrimary {
			return p.buildIndexDefinition(e, idx, true)
		}
	}

	var pkColumns []model.IndexColumn
	for i, a := range attrs {
		if a.IsIdentifier {
			pkColumns = append(pkColumns, model.IndexColumn{Ordinal: i, Column: a.PhysicalName, Direction: "ASC"})
		}
	}
	if len(pkColumns) == 0 {
		return nil
	}

	columnsLogical := columnLogicalNames(e, pkColumns)
	name := ident.BuildConstraintName("", p.Naming.PrimaryKeyPrefix, e.LogicalName, "", columnsLogical)

	return &model.IndexDefinition{
		Name:       name,
		IsUnique:   true,
		IsPrimary:  true,
		KeyColumns: pkColumns,
	}
}

func (p Projector) buildOtherIndexes(e model.Entity) []model.IndexDefinition {
	var out []model.IndexDefinition
	for _, idx := range e.Indexes {
		if idx.IsPrimary {
			continue
		}
		if idx.IsPlatformAuto && !p.Options.IncludePlatformAutoIndexes {
			continue
		}
		out = append(out, *p.buildIndexDefinition(e, idx, false))
	}
	return out
}

func (p Projector) buildIndexDefinition(e model.Entity, idx model.Index, isPrimary bool) *model.IndexDefinition {
	cols := make([]model.IndexColumn, len(idx.Columns))
	copy(cols, idx.Columns)
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Ordinal < cols[j].Ordinal })

	isUnique := idx.IsUnique
	if !isPrimary {
		coord := model.IndexCoordinate{Schema: e.Schema, Table: e.PhysicalName, Index: idx.Name}
		if decision, ok := p.Decisions.UniqueFor(coord); ok {
			isUnique = decision.EnforceUnique
		}
	}

	prefix := p.Naming.IndexPrefix
	if isUnique {
		prefix = p.Naming.UniqueIndexPrefix
	}
	name := ident.BuildConstraintName(idx.Name, prefix, e.LogicalName, "", columnLogicalNames(e, cols))

	return &model.IndexDefinition{
		Name:            name,
		IsUnique:        isUnique,
		IsPrimary:       isPrimary,
		IsPlatformAuto:  idx.IsPlatformAuto,
		KeyColumns:      cols,
		IncludedColumns: idx.Included,
		Metadata:        idx.Metadata,
	}
}

func columnLogicalNames(e model.Entity, cols []model.IndexColumn) []string {
	byPhysical := make(map[string]string, len(e.Attributes))
	for _, a := range e.Attributes {
		byPhysical[a.PhysicalName] = a.LogicalName
	}
	out := make([]string, len(cols))
	for i, c := range cols {
		if logical, ok := byPhysical[c.Column]; ok {
			out[i] = logical
		} else {
			out[i] = c.Column
		}
	}
	return out
}

func sortIndexes(indexes []model.IndexDefinition) []model.IndexDefinition {
	// Stable: PK first, then unique, then non-unique, preserving declared
	// order within each group (§4.F determinism contract). The PK is
	// already prepended by the caller; sort.SliceStable over the remainder
	// keeps that invariant.
	sort.SliceStable(indexes, func(i, j int) bool {
		return rank(indexes[i]) < rank(indexes[j])
	})
	return indexes
}

func rank(idx model.IndexDefinition) int {
	switch {
	case idx.IsPrimary:
		return 0
	case idx.IsUnique:
		return 1
	default:
		return 2
	}
}

func (p Projector) buildForeignKeys(moduleName string, e model.Entity, names effectiveNames) ([]model.ForeignKeyDefinition, []apperr.Diagnostic) {
	var diags []apperr.Diagnostic
	type ordered struct {
		fk      model.ForeignKeyDefinition
		ordinal int
	}
	var collected []ordered

	for _, rel := range e.Relationships {
		for _, actual := range rel.ActualConstraints {
			if len(actual.ColumnPairs) == 0 {
				continue
			}
			leadColumn := actual.ColumnPairs[0].SourceColumn
			coord := model.ColumnCoordinate{Schema: e.Schema, Table: e.PhysicalName, Column: leadColumn}
			decision, ok := p.Decisions.ForeignKeyFor(coord)
			if !ok || !decision.CreateConstraint {
				continue
			}

			ctx, resolved := p.Index.Resolve(resolve.Reference{
				PhysicalName: rel.TargetPhysicalName,
				Schema:       actual.ReferencedSchema,
				Module:       moduleName,
				LogicalName:  rel.TargetEntityLogicalName,
			}, resolve.Owner{Schema: e.Schema, Module: moduleName})
			if !resolved {
				diags = append(diags, apperr.Diagnostic{
					Code:       apperr.ReferenceUnresolved,
					Severity:   apperr.Warning,
					Message:    fmt.Sprintf("relationship via %s could not resolve target %s", rel.ViaAttribute, rel.TargetEntityLogicalName),
					Coordinate: apperr.Coordinate{Schema: e.Schema, Table: e.PhysicalName, Column: leadColumn},
				})
				continue
			}

			referencedTable := ctx.PhysicalName
			if effective, ok := names[declaredKey(ctx.Schema, ctx.PhysicalName)]; ok {
				referencedTable = effective
			}

			pairs := append([]model.ColumnPair(nil), actual.ColumnPairs...)
			sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].Ordinal < pairs[j].Ordinal })

			owningCols := make([]string, len(pairs))
			refCols := make([]string, len(pairs))
			for i, pr := range pairs {
				owningCols[i] = pr.SourceColumn
				refCols[i] = pr.TargetColumn
			}

			name := ident.BuildConstraintName("", p.Naming.ForeignKeyPrefix, e.LogicalName, rel.TargetEntityLogicalName, owningCols)

			var comment string
			if !decision.IsTrusted {
				comment = "Source constraint was not trusted or profile evidence reported orphan rows"
			}

			fk := model.ForeignKeyDefinition{
				Name:                   name,
				OwningColumns:          owningCols,
				ReferencedModule:       ctx.Module,
				ReferencedSchema:       ctx.Schema,
				ReferencedTable:        referencedTable,
				ReferencedColumns:      refCols,
				ReferencedLogicalTable: ctx.LogicalName,
				DeleteAction:           actual.OnDelete,
				UpdateAction:           actual.OnUpdate,
				IsTrusted:              decision.IsTrusted,
				NotTrustedComment:      comment,
			}
			collected = append(collected, ordered{fk: fk, ordinal: pairs[0].Ordinal})
		}
	}

	sort.SliceStable(collected, func(i, j int) bool { return collected[i].ordinal < collected[j].ordinal })

	out := make([]model.ForeignKeyDefinition, len(collected))
	for i, c := range collected {
		out[i] = c.fk
	}
	return out, diags
}

// ProjectSeedTables builds the seed-emission view (§3.4) of every static
// entity in the model, sharing the same effective-name resolution and
// emittable-column selection as ProjectAll so a renamed static table's seed
// script targets the same effective name as its CREATE TABLE statement.
func (p Projector) ProjectSeedTables(m model.Model) ([]model.StaticEntitySeedTableDefinition, []apperr.Diagnostic) {
	var diags []apperr.Diagnostic
	names := p.resolveEffectiveNames(m, &diags)

	var tables []model.StaticEntitySeedTableDefinition
	for _, mod := range m.Modules {
		for _, e := range mod.Entities {
			if !e.IsStatic || e.IsExternal {
				continue
			}
			tables = append(tables, p.buildSeedTable(mod, e, names))
		}
	}
	return tables, diags
}

func (p Projector) buildSeedTable(mod model.Module, e model.Entity, names effectiveNames) model.StaticEntitySeedTableDefinition {
	effectiveName := names[declaredKey(e.Schema, e.PhysicalName)]

	def := model.StaticEntitySeedTableDefinition{
		Module:        mod.Name,
		LogicalName:   e.LogicalName,
		Schema:        e.Schema,
		PhysicalName:  e.PhysicalName,
		EffectiveName: effectiveName,
	}

	for _, a := range e.Attributes {
		if !a.IsActive && a.OnDisk == nil {
			continue
		}
		dataType := ""
		if a.OnDisk != nil {
			dataType = a.OnDisk.SQLType
		}
		col := model.StaticEntitySeedColumn{
			LogicalName:   a.LogicalName,
			StorageColumn: a.PhysicalName,
			EmissionName:  a.PhysicalName,
			DataType:      dataType,
			Length:        nil,
			IsPrimaryKey:  a.IsIdentifier,
			IsIdentity:    a.OnDisk != nil && a.OnDisk.IsIdentity,
			IsNullable:    !(a.IsMandatory || a.IsIdentifier),
		}
		if a.OnDisk != nil {
			col.Length = a.OnDisk.MaxLength
			col.Precision = a.OnDisk.Precision
			col.Scale = a.OnDisk.Scale
			col.IsNullable = a.OnDisk.IsNullable
		}
		def.Columns = append(def.Columns, col)
	}

	if len(def.PrimaryKeyColumns()) == 0 {
		for _, idx := range e.Indexes {
			if !idx.IsPrimary {
				continue
			}
			byPhysical := make(map[string]int, len(def.Columns))
			for i, c := range def.Columns {
				byPhysical[c.StorageColumn] = i
			}
			for _, kc := range idx.Columns {
				if i, ok := byPhysical[kc.Column]; ok {
					def.Columns[i].IsPrimaryKey = true
				}
			}
		}
	}

	return def
}
