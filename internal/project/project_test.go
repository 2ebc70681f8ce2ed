package project

import (
	"strings"
	"testing"

	"github.com/danielbdyer/ddlexporter/internal/config"
	"github.com/danielbdyer/ddlexporter/internal/ident"
	"github.com/danielbdyer/ddlexporter/internal/model"
	"github.com/danielbdyer/ddlexporter/internal/resolve"
	"github.com/danielbdyer/ddlexporter/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProjector(m model.Model, overrides []config.NamingOverride, decisions model.PolicyDecisionSet) Projector {
	return Projector{
		Resolver:   ident.NewResolver(overrides),
		Naming:     ident.DefaultNamingConfig(),
		Quoter:     ident.NewQuoter(config.QuoteBracket),
		Index:      resolve.Build(m, nil),
		Decisions:  decisions,
		TypePolicy: types.DefaultPolicy(),
		Options:    config.Default().Emission,
	}
}

func orderModel() model.Model {
	return model.Model{Modules: []model.Module{{Name: "Sales", Entities: []model.Entity{
		{
			Schema: "dbo", PhysicalName: "Orders", LogicalName: "Order", Module: "Sales", IsActive: true,
			Attributes: []model.Attribute{
				{LogicalName: "Id", PhysicalName: "Id", DataType: "integer", IsIdentifier: true, IsActive: true},
				{LogicalName: "CustomerId", PhysicalName: "CustomerId", DataType: "integer", IsActive: true},
			},
			Relationships: []model.Relationship{{
				ViaAttribute: "CustomerId", TargetEntityLogicalName: "Customer", TargetPhysicalName: "Customers",
				HasDatabaseConstraint: true,
				ActualConstraints: []model.ActualConstraint{{
					ReferencedSchema: "dbo", ReferencedTable: "Customers",
					ColumnPairs: []model.ColumnPair{{SourceColumn: "CustomerId", TargetColumn: "Id"}},
				}},
			}},
		},
		{
			Schema: "dbo", PhysicalName: "Customers", LogicalName: "Customer", Module: "Sales", IsActive: true,
			Attributes: []model.Attribute{{LogicalName: "Id", PhysicalName: "Id", DataType: "integer", IsIdentifier: true, IsActive: true}},
		},
	}}}}
}

func fkDecisionSet() model.PolicyDecisionSet {
	coord := model.ColumnCoordinate{Schema: "dbo", Table: "Orders", Column: "CustomerId"}
	return model.PolicyDecisionSet{
		ForeignKeys: map[model.ColumnCoordinate]model.ForeignKeyDecision{
			coord: {Coordinate: coord, CreateConstraint: true, IsTrusted: true},
		},
	}
}

func TestProjectAllSkipsExternalAndInactiveEntities(t *testing.T) {
	m := model.Model{Modules: []model.Module{{Name: "Sales", Entities: []model.Entity{
		{Schema: "dbo", PhysicalName: "Orders", LogicalName: "Order", IsActive: true,
			Attributes: []model.Attribute{{PhysicalName: "Id", IsIdentifier: true}}},
		{Schema: "dbo", PhysicalName: "External", LogicalName: "Ext", IsExternal: true, IsActive: true,
			Attributes: []model.Attribute{{PhysicalName: "Id", IsIdentifier: true}}},
		{Schema: "dbo", PhysicalName: "Inactive", LogicalName: "Inactive", IsActive: false,
			Attributes: []model.Attribute{{PhysicalName: "Id", IsIdentifier: true}}},
	}}}}
	p := newProjector(m, nil, model.PolicyDecisionSet{})
	tables, diags := p.ProjectAll(m)
	assert.Empty(t, diags)
	require.Len(t, tables, 1)
	assert.Equal(t, "Orders", tables[0].PhysicalName)
}

func TestProjectAllBuildsPrimaryKeyFromIdentifierAttribute(t *testing.T) {
	m := orderModel()
	p := newProjector(m, nil, model.PolicyDecisionSet{})
	tables, _ := p.ProjectAll(m)
	orders := tables[0]
	require.Len(t, orders.Indexes, 1)
	assert.True(t, orders.Indexes[0].IsPrimary)
	assert.Equal(t, "PK_Order_Id", orders.Indexes[0].Name)
}

func TestProjectAllAppliesNamingOverrideAndRewritesForeignKeyTarget(t *testing.T) {
	m := orderModel()
	overrides := []config.NamingOverride{{Table: "Customers", Target: "Clients"}}
	p := newProjector(m, overrides, fkDecisionSet())
	tables, diags := p.ProjectAll(m)
	assert.Empty(t, diags)

	var orders, customers model.TableDefinition
	for _, tbl := range tables {
		switch tbl.LogicalName {
		case "Order":
			orders = tbl
		case "Customer":
			customers = tbl
		}
	}
	assert.Equal(t, "Clients", customers.PhysicalName)
	require.NotNil(t, customers.RenamedFrom)
	assert.Equal(t, "Customers", customers.RenamedFrom.OldName)

	require.Len(t, orders.ForeignKeys, 1)
	assert.Equal(t, "Clients", orders.ForeignKeys[0].ReferencedTable)
	assert.True(t, orders.ForeignKeys[0].IsTrusted)
}

func TestProjectAllForeignKeyDecisionBlocksConstraint(t *testing.T) {
	m := orderModel()
	p := newProjector(m, nil, model.PolicyDecisionSet{})
	tables, _ := p.ProjectAll(m)
	for _, tbl := range tables {
		if tbl.LogicalName == "Order" {
			assert.Empty(t, tbl.ForeignKeys)
		}
	}
}

func TestProjectAllUnresolvedReferenceEmitsWarning(t *testing.T) {
	m := model.Model{Modules: []model.Module{{Name: "Sales", Entities: []model.Entity{
		{
			Schema: "dbo", PhysicalName: "Orders", LogicalName: "Order", Module: "Sales", IsActive: true,
			Attributes: []model.Attribute{{PhysicalName: "Id", IsIdentifier: true}, {PhysicalName: "GhostId"}},
			Relationships: []model.Relationship{{
				TargetEntityLogicalName: "Ghost", TargetPhysicalName: "Ghosts",
				ActualConstraints: []model.ActualConstraint{{ColumnPairs: []model.ColumnPair{{SourceColumn: "GhostId"}}}},
			}},
		},
	}}}}
	coord := model.ColumnCoordinate{Schema: "dbo", Table: "Orders", Column: "GhostId"}
	decisions := model.PolicyDecisionSet{ForeignKeys: map[model.ColumnCoordinate]model.ForeignKeyDecision{
		coord: {Coordinate: coord, CreateConstraint: true},
	}}
	p := newProjector(m, nil, decisions)
	tables, diags := p.ProjectAll(m)
	require.Len(t, diags, 1)
	assert.Equal(t, "reference.unresolved", string(diags[0].Code))
	assert.Empty(t, tables[0].ForeignKeys)
}

func TestProjectAllDuplicateEffectiveNameIsFatal(t *testing.T) {
	m := model.Model{Modules: []model.Module{{Name: "Sales", Entities: []model.Entity{
		{Schema: "dbo", PhysicalName: "A", LogicalName: "A", IsActive: true, AllowMissingPrimaryKey: true},
		{Schema: "dbo", PhysicalName: "B", LogicalName: "B", IsActive: true, AllowMissingPrimaryKey: true},
	}}}}
	overrides := []config.NamingOverride{
		{Table: "A", Target: "Shared"},
		{Table: "B", Target: "Shared"},
	}
	p := newProjector(m, overrides, model.PolicyDecisionSet{})
	_, diags := p.ProjectAll(m)
	require.Len(t, diags, 1)
	assert.Equal(t, "model.invariant", string(diags[0].Code))
	assert.Contains(t, diags[0].Message, "duplicate effective name")
}

func TestProjectSeedTablesSharesEffectiveNameWithProjectAll(t *testing.T) {
	m := model.Model{Modules: []model.Module{{Name: "Reference", Entities: []model.Entity{
		{
			Schema: "dbo", PhysicalName: "Countries", LogicalName: "Country", Module: "Reference",
			IsActive: true, IsStatic: true,
			Attributes: []model.Attribute{
				{LogicalName: "Code", PhysicalName: "Code", IsIdentifier: true, IsActive: true},
				{LogicalName: "Name", PhysicalName: "Name", IsActive: true},
			},
		},
	}}}}
	overrides := []config.NamingOverride{{Table: "Countries", Target: "RefCountries"}}
	p := newProjector(m, overrides, model.PolicyDecisionSet{})

	tables, diags := p.ProjectAll(m)
	require.Empty(t, diags)
	seedTables, seedDiags := p.ProjectSeedTables(m)
	require.Empty(t, seedDiags)

	require.Len(t, tables, 1)
	require.Len(t, seedTables, 1)
	assert.Equal(t, tables[0].PhysicalName, seedTables[0].EffectiveName)
	assert.True(t, seedTables[0].PrimaryKeyColumns()[0].LogicalName == "Code")
}

func TestProjectAllInactivePresentAttributeOmittedFromColumnsNotSeed(t *testing.T) {
	m := model.Model{Modules: []model.Module{{Name: "Reference", Entities: []model.Entity{
		{
			Schema: "dbo", PhysicalName: "Countries", LogicalName: "Country", Module: "Reference",
			IsActive: true, IsStatic: true,
			Attributes: []model.Attribute{
				{LogicalName: "Code", PhysicalName: "Code", IsIdentifier: true, IsActive: true},
				{LogicalName: "Retired", PhysicalName: "Retired", IsActive: false, OnDisk: &model.OnDiskMetadata{SQLType: "bit"}},
			},
		},
	}}}}
	p := newProjector(m, nil, model.PolicyDecisionSet{})
	tables, _ := p.ProjectAll(m)
	require.Len(t, tables, 1)
	for _, c := range tables[0].Columns {
		assert.NotEqual(t, "Retired", c.PhysicalName)
	}

	seedTables, _ := p.ProjectSeedTables(m)
	require.Len(t, seedTables, 1)
	names := make([]string, 0, len(seedTables[0].Columns))
	for _, c := range seedTables[0].Columns {
		names = append(names, c.LogicalName)
	}
	assert.Contains(t, names, "Retired")
}

func TestBuildIndexDefinitionRebuildsOverLengthDeclaredName(t *testing.T) {
	e := model.Entity{
		Schema: "dbo", PhysicalName: "Orders", LogicalName: "Order",
		Attributes: []model.Attribute{{LogicalName: "CustomerId", PhysicalName: "CustomerId"}},
	}
	overLong := "IX_" + strings.Repeat("x", 130)
	idx := model.Index{Name: overLong, Columns: []model.IndexColumn{{Column: "CustomerId", Ordinal: 0}}}

	p := newProjector(model.Model{}, nil, model.PolicyDecisionSet{})
	def := p.buildIndexDefinition(e, idx, false)

	assert.LessOrEqual(t, len(def.Name), ident.MaxIdentifierLength)
	assert.NotEqual(t, overLong, def.Name)
	assert.Equal(t, "IX_Order_CustomerId", def.Name)
}

func TestBuildIndexDefinitionPreservesShortDeclaredName(t *testing.T) {
	e := model.Entity{Schema: "dbo", PhysicalName: "Orders", LogicalName: "Order"}
	idx := model.Index{Name: "IX_Orders_Custom", Columns: []model.IndexColumn{{Column: "CustomerId"}}}

	p := newProjector(model.Model{}, nil, model.PolicyDecisionSet{})
	def := p.buildIndexDefinition(e, idx, false)

	assert.Equal(t, "IX_Orders_Custom", def.Name)
}

func TestEmittableAttributesIncludesOnDiskInactiveColumns(t *testing.T) {
	e := model.Entity{Attributes: []model.Attribute{
		{PhysicalName: "Active", IsActive: true},
		{PhysicalName: "Retired", OnDisk: &model.OnDiskMetadata{SQLType: "bit"}},
		{PhysicalName: "NeverWas"},
	}}
	attrs := EmittableAttributes(e)
	names := make([]string, len(attrs))
	for i, a := range attrs {
		names[i] = a.PhysicalName
	}
	assert.Equal(t, []string{"Active", "Retired"}, names)
}
