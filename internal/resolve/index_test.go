package resolve

import (
	"testing"

	"github.com/danielbdyer/ddlexporter/internal/model"
	"github.com/stretchr/testify/assert"
)

func buildModel() model.Model {
	return model.Model{Modules: []model.Module{
		{Name: "Sales", Entities: []model.Entity{
			{Schema: "dbo", PhysicalName: "Orders", LogicalName: "Order"},
			{Schema: "dbo", PhysicalName: "Customers", LogicalName: "Customer"},
		}},
		{Name: "Catalog", Entities: []model.Entity{
			{Schema: "dbo", PhysicalName: "Products", LogicalName: "Product"},
		}},
	}}
}

func TestResolveByPhysicalName(t *testing.T) {
	idx := Build(buildModel(), nil)
	c, ok := idx.Resolve(Reference{Schema: "dbo", PhysicalName: "Customers"}, Owner{})
	assert.True(t, ok)
	assert.Equal(t, "Sales", c.Module)
	assert.Equal(t, "Customer", c.LogicalName)
}

func TestResolveByModuleLogical(t *testing.T) {
	idx := Build(buildModel(), nil)
	c, ok := idx.Resolve(Reference{Module: "Catalog", LogicalName: "Product"}, Owner{})
	assert.True(t, ok)
	assert.Equal(t, "Products", c.PhysicalName)
}

func TestResolveByLogicalNamePrefersOwnerSchema(t *testing.T) {
	m := model.Model{Modules: []model.Module{
		{Name: "Sales", Entities: []model.Entity{{Schema: "sales", PhysicalName: "Region", LogicalName: "Region"}}},
		{Name: "Catalog", Entities: []model.Entity{{Schema: "dbo", PhysicalName: "Region", LogicalName: "Region"}}},
	}}
	idx := Build(m, nil)
	c, ok := idx.Resolve(Reference{LogicalName: "Region"}, Owner{Schema: "dbo"})
	assert.True(t, ok)
	assert.Equal(t, "dbo", c.Schema)
}

func TestResolveByLogicalNamePrefersOwnerModuleWhenSchemaTied(t *testing.T) {
	m := model.Model{Modules: []model.Module{
		{Name: "Sales", Entities: []model.Entity{{Schema: "dbo", PhysicalName: "RegionA", LogicalName: "Region"}}},
		{Name: "Catalog", Entities: []model.Entity{{Schema: "dbo", PhysicalName: "RegionB", LogicalName: "Region"}}},
	}}
	idx := Build(m, nil)
	c, ok := idx.Resolve(Reference{LogicalName: "Region"}, Owner{Schema: "dbo", Module: "Catalog"})
	assert.True(t, ok)
	assert.Equal(t, "RegionB", c.PhysicalName)
}

func TestResolveNotFound(t *testing.T) {
	idx := Build(buildModel(), nil)
	_, ok := idx.Resolve(Reference{LogicalName: "Missing"}, Owner{})
	assert.False(t, ok)
}

func TestResolveIncludesSupplementalEntities(t *testing.T) {
	supplemental := SupplementalSet{Entities: []SupplementalEntity{
		{Schema: "sys", PhysicalName: "AuditLog", LogicalName: "AuditLog", Module: "Platform"},
	}}
	idx := Build(model.Model{}, supplemental.Contexts())
	c, ok := idx.Resolve(Reference{Schema: "sys", PhysicalName: "AuditLog"}, Owner{})
	assert.True(t, ok)
	assert.True(t, c.IsSupplemental)
}
