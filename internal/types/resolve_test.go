package types

import (
	"testing"

	"github.com/danielbdyer/ddlexporter/internal/model"
	"github.com/stretchr/testify/assert"
)

func intPtr(i int) *int { return &i }

func TestResolveIdentifierIsAlwaysBigint(t *testing.T) {
	attr := model.Attribute{DataType: "text", IsIdentifier: true}
	assert.Equal(t, "BIGINT", Resolve(attr, false, DefaultPolicy()))

	attr2 := model.Attribute{DataType: "text"}
	assert.Equal(t, "BIGINT", Resolve(attr2, true, DefaultPolicy()))
}

func TestResolveOnDiskAuthoritative(t *testing.T) {
	attr := model.Attribute{
		DataType: "text",
		OnDisk:   &model.OnDiskMetadata{SQLType: "nvarchar", MaxLength: intPtr(-1)},
	}
	assert.Equal(t, "NVARCHAR(MAX)", Resolve(attr, false, DefaultPolicy()))

	attr2 := model.Attribute{
		DataType: "text",
		OnDisk:   &model.OnDiskMetadata{SQLType: "nvarchar", MaxLength: intPtr(100)},
	}
	assert.Equal(t, "NVARCHAR(50)", Resolve(attr2, false, DefaultPolicy()))

	attr3 := model.Attribute{
		DataType: "currency",
		OnDisk:   &model.OnDiskMetadata{SQLType: "decimal", Precision: intPtr(18), Scale: intPtr(2)},
	}
	assert.Equal(t, "DECIMAL(18,2)", Resolve(attr3, false, DefaultPolicy()))
}

func TestResolveExternalHintWhenNoOnDisk(t *testing.T) {
	attr := model.Attribute{DataType: "text", ExternalHint: "NVARCHAR(128)"}
	assert.Equal(t, "NVARCHAR(128)", Resolve(attr, false, DefaultPolicy()))

	attr2 := model.Attribute{DataType: "text", ExternalHint: "NVARCHAR(MAX)"}
	assert.Equal(t, "NVARCHAR(MAX)", Resolve(attr2, false, DefaultPolicy()))

	attr3 := model.Attribute{DataType: "currency", ExternalHint: "DECIMAL(19,4)"}
	assert.Equal(t, "DECIMAL(19,4)", Resolve(attr3, false, DefaultPolicy()))

	attr4 := model.Attribute{DataType: "boolean", ExternalHint: "BIT"}
	assert.Equal(t, "BIT", Resolve(attr4, false, DefaultPolicy()))
}

func TestResolveLogicalTypeFallback(t *testing.T) {
	cases := map[string]string{
		"integer":  "INT",
		"long":     "BIGINT",
		"boolean":  "BIT",
		"date":     "DATE",
		"datetime": "DATETIME",
		"email":    "VARCHAR(250)",
		"phone":    "VARCHAR(20)",
		"currency": "DECIMAL(37,8)",
		"binary":   "VARBINARY(MAX)",
		"unknown":  "NVARCHAR(100)",
	}
	for dataType, want := range cases {
		attr := model.Attribute{DataType: dataType}
		assert.Equal(t, want, Resolve(attr, false, DefaultPolicy()), dataType)
	}
}

func TestResolveTextLength(t *testing.T) {
	attr := model.Attribute{DataType: "text", Length: intPtr(30)}
	assert.Equal(t, "NVARCHAR(30)", Resolve(attr, false, DefaultPolicy()))

	attr2 := model.Attribute{DataType: "text", Length: intPtr(4000)}
	assert.Equal(t, "NVARCHAR(MAX)", Resolve(attr2, false, DefaultPolicy()))

	attr3 := model.Attribute{DataType: "text", Length: intPtr(-1)}
	assert.Equal(t, "NVARCHAR(MAX)", Resolve(attr3, false, DefaultPolicy()))
}

func TestNormalizeDefault(t *testing.T) {
	assert.Equal(t, "", NormalizeDefault("", "BIT"))
	assert.Equal(t, "(1)", NormalizeDefault("true", "BIT"))
	assert.Equal(t, "(0)", NormalizeDefault("FALSE", "BIT"))
	assert.Equal(t, "(0)", NormalizeDefault("(0)", "BIT"))
	assert.Equal(t, "(getutcdate())", NormalizeDefault("getutcdate()", "DATETIME"))
	assert.Equal(t, "(0)", NormalizeDefault("(0)", "INT"))
}
