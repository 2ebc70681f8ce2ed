package ident

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultNamingConfig(t *testing.T) {
	cfg := DefaultNamingConfig()
	assert.Equal(t, "PK_", cfg.PrimaryKeyPrefix)
	assert.Equal(t, "UX_", cfg.UniqueIndexPrefix)
	assert.Equal(t, "IX_", cfg.IndexPrefix)
	assert.Equal(t, "FK_", cfg.ForeignKeyPrefix)
}

func TestBuildConstraintNamePreservesFittingEvidenceName(t *testing.T) {
	name := BuildConstraintName("PK_Orders_Id", "PK_", "Orders", "", []string{"Id"})
	assert.Equal(t, "PK_Orders_Id", name)
}

func TestBuildConstraintNameRebuildsWhenNoEvidence(t *testing.T) {
	name := BuildConstraintName("", "FK_", "OrderLine", "Order", []string{"OrderId"})
	assert.Equal(t, "FK_OrderLine_Order_OrderId", name)
}

func TestBuildConstraintNameRebuildsWithoutTarget(t *testing.T) {
	name := BuildConstraintName("", "IX_", "Orders", "", []string{"CustomerId", "Status"})
	assert.Equal(t, "IX_Orders_CustomerId_Status", name)
}

func TestBuildConstraintNameTruncatesWithHashWhenTooLong(t *testing.T) {
	longOwner := strings.Repeat("VeryLongLogicalTableName", 6)
	name := BuildConstraintName("", "FK_", longOwner, "AlsoVeryLong", []string{"Column1", "Column2"})
	assert.LessOrEqual(t, len(name), MaxIdentifierLength)
	assert.Contains(t, name, "_")
	// The last path segment after the final underscore run is the hash suffix.
	idx := strings.LastIndex(name, "_")
	assert.Len(t, name[idx+1:], 12)
}

func TestBuildConstraintNameIsDeterministic(t *testing.T) {
	longOwner := strings.Repeat("X", 200)
	a := BuildConstraintName("", "FK_", longOwner, "", []string{"Col"})
	b := BuildConstraintName("", "FK_", longOwner, "", []string{"Col"})
	assert.Equal(t, a, b)
}
