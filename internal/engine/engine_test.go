package engine

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/danielbdyer/ddlexporter/internal/config"
	"github.com/danielbdyer/ddlexporter/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleModel() model.Model {
	return model.Model{Modules: []model.Module{{Name: "Sales", Entities: []model.Entity{
		{
			Schema: "dbo", PhysicalName: "Customers", LogicalName: "Customer", Module: "Sales",
			IsActive: true, IsStatic: true,
			Attributes: []model.Attribute{
				{LogicalName: "Id", PhysicalName: "Id", DataType: "integer", IsIdentifier: true, IsActive: true},
				{LogicalName: "Name", PhysicalName: "Name", DataType: "text", IsActive: true},
			},
		},
		{
			Schema: "dbo", PhysicalName: "Orders", LogicalName: "Order", Module: "Sales",
			IsActive: true, IsStatic: true,
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
	}}}}
}

func TestCompileProducesPlanAndManifest(t *testing.T) {
	in := Input{
		Model:      sampleModel(),
		Options:    config.Default(),
		OutputRoot: "/tmp/out",
		RunID:      "run-1",
		SeedRows: map[string][]model.StaticEntityRow{
			"Sales\x00Customer": {{Values: []any{1, "Acme"}}},
			"Sales\x00Order":    {{Values: []any{1, 1}}},
		},
	}
	out, err := Compile(in)
	require.NoError(t, err)
	assert.Len(t, out.Plan.Tables, 2)
	assert.Equal(t, "manifest.json", out.Plan.Manifest.RelPath)
	assert.Equal(t, 2, out.Manifest.Coverage.TableCount)
	assert.False(t, out.Preflight.Findings != nil && len(out.Preflight.Findings) > 0)

	var manifestDoc map[string]any
	require.NoError(t, json.Unmarshal(out.Plan.Manifest.Bytes, &manifestDoc))
	assert.Contains(t, manifestDoc, "metadata")
}

func TestCompileSeedScriptOrdersParentBeforeChild(t *testing.T) {
	in := Input{
		Model:      sampleModel(),
		Options:    config.Default(),
		OutputRoot: "/tmp/out",
		RunID:      "run-1",
		SeedRows: map[string][]model.StaticEntityRow{
			"Sales\x00Customer": {{Values: []any{1, "Acme"}}},
			"Sales\x00Order":    {{Values: []any{1, 1}}},
		},
	}
	out, err := Compile(in)
	require.NoError(t, err)
	assert.Contains(t, out.SeedScript.Text, "[Customers]")
	customersAt := strings.Index(out.SeedScript.Text, "MERGE INTO [dbo].[Customers]")
	ordersAt := strings.Index(out.SeedScript.Text, "MERGE INTO [dbo].[Orders]")
	require.NotEqual(t, -1, customersAt)
	require.NotEqual(t, -1, ordersAt)
	assert.Less(t, customersAt, ordersAt)
	assert.False(t, out.SeedScript.RequiresPhasing)
}

func TestCompileInvalidModelReturnsFatalError(t *testing.T) {
	in := Input{
		Model: model.Model{Modules: []model.Module{{Name: "Sales", Entities: []model.Entity{
			{Schema: "dbo", PhysicalName: "Orders", LogicalName: "Order"},
		}}}},
		Options:    config.Default(),
		OutputRoot: "/tmp/out",
		RunID:      "run-1",
	}
	_, err := Compile(in)
	require.Error(t, err)
}

func TestCompileInvalidOptionsReturnsFatalErrorBeforeProjecting(t *testing.T) {
	opts := config.Default()
	opts.Seeding.BatchSize = 0
	in := Input{
		Model:      sampleModel(),
		Options:    opts,
		OutputRoot: "/tmp/out",
		RunID:      "run-1",
	}
	out, err := Compile(in)
	require.Error(t, err)
	assert.Empty(t, out.Plan.Tables)
}

func TestCompileNamingOverrideProducesDistinctEffectiveNames(t *testing.T) {
	opts := config.Default()
	opts.Emission.NamingOverrides = []config.NamingOverride{{Table: "Customers", Target: "Clients"}}
	in := Input{
		Model:      sampleModel(),
		Options:    opts,
		OutputRoot: "/tmp/out",
		RunID:      "run-1",
	}
	out, err := Compile(in)
	require.NoError(t, err)

	var found bool
	for _, entry := range out.Manifest.Tables {
		if entry.Table == "Clients" {
			found = true
		}
	}
	assert.True(t, found)
}
