package model

import (
	"testing"

	"github.com/danielbdyer/ddlexporter/internal/apperr"
	"github.com/stretchr/testify/assert"
)

func entityWithID(schema, physical, logical string) Entity {
	return Entity{
		Schema:       schema,
		PhysicalName: physical,
		LogicalName:  logical,
		Attributes:   []Attribute{{LogicalName: "Id", IsIdentifier: true}},
	}
}

func TestValidateDetectsDuplicatePhysicalTable(t *testing.T) {
	m := Model{Modules: []Module{
		{Name: "Sales", Entities: []Entity{entityWithID("dbo", "Orders", "Order")}},
		{Name: "Fulfillment", Entities: []Entity{entityWithID("dbo", "Orders", "Shipment")}},
	}}
	diags := m.Validate()
	assert.Len(t, diags, 1)
	assert.Equal(t, apperr.ModelInvariant, diags[0].Code)
	assert.Contains(t, diags[0].Message, "duplicate physical table")
}

func TestValidateRequiresIdentifierUnlessAllowed(t *testing.T) {
	m := Model{Modules: []Module{{Name: "Sales", Entities: []Entity{
		{Schema: "dbo", PhysicalName: "Audit", LogicalName: "Audit"},
	}}}}
	diags := m.Validate()
	assert.Len(t, diags, 1)
	assert.Contains(t, diags[0].Message, "no identifier attribute")

	m.Modules[0].Entities[0].AllowMissingPrimaryKey = true
	assert.Empty(t, m.Validate())
}

func TestValidateAcceptsPrimaryIndexInLieuOfIdentifierAttribute(t *testing.T) {
	m := Model{Modules: []Module{{Name: "Sales", Entities: []Entity{
		{
			Schema: "dbo", PhysicalName: "Orders", LogicalName: "Order",
			Indexes: []Index{{Name: "PK_Orders", IsPrimary: true}},
		},
	}}}}
	assert.Empty(t, m.Validate())
}

func TestValidateIgnoresExternalEntitiesForDuplicateCheck(t *testing.T) {
	m := Model{Modules: []Module{
		{Name: "Sales", Entities: []Entity{
			{Schema: "dbo", PhysicalName: "Orders", LogicalName: "Order", IsExternal: true, AllowMissingPrimaryKey: true},
			{Schema: "dbo", PhysicalName: "Orders", LogicalName: "Order2", IsExternal: true, AllowMissingPrimaryKey: true},
		}},
	}}
	assert.Empty(t, m.Validate())
}

func TestAllEntitiesPreservesOrder(t *testing.T) {
	m := Model{Modules: []Module{
		{Name: "A", Entities: []Entity{{LogicalName: "One"}, {LogicalName: "Two"}}},
		{Name: "B", Entities: []Entity{{LogicalName: "Three"}}},
	}}
	all := m.AllEntities()
	assert.Equal(t, []string{"One", "Two", "Three"}, []string{all[0].LogicalName, all[1].LogicalName, all[2].LogicalName})
}

func TestFindModule(t *testing.T) {
	m := Model{Modules: []Module{{Name: "Sales"}}}
	mod, ok := m.FindModule("Sales")
	assert.True(t, ok)
	assert.Equal(t, "Sales", mod.Name)

	_, ok = m.FindModule("Missing")
	assert.False(t, ok)
}

func TestEntityDescription(t *testing.T) {
	e := Entity{Metadata: map[string]string{"description": "Customer orders"}}
	assert.Equal(t, "Customer orders", e.Description())
	assert.Equal(t, "", Entity{}.Description())
}

func TestRealitySnapshot(t *testing.T) {
	r := RealitySnapshot{NullCount: 3, NonNullCount: 7}
	assert.Equal(t, 0.3, r.NullFraction())
	assert.True(t, r.HasEvidence())

	empty := RealitySnapshot{}
	assert.Equal(t, 0.0, empty.NullFraction())
	assert.False(t, empty.HasEvidence())
}
