// Package model holds the input data model (§3.1): modules, entities,
// attributes, relationships, and indexes as supplied by the upstream
// ingestion pipeline, plus the profile snapshot (observational evidence)
// this engine decides against. These are plain value types; validation
// happens through Model.Validate, which returns every invariant violation as
// a diagnostic instead of stopping at the first.
package model

import (
	"fmt"
	"strings"

	"github.com/danielbdyer/ddlexporter/internal/apperr"
)

// Model is an ordered set of modules, as produced by the upstream ingestion
// this engine consumes but does not own (§1).
type Model struct {
	Modules []Module `json:"modules"`
}

// Module groups entities under a logical subsystem name.
type Module struct {
	Name      string   `json:"name"`
	Sanitized string   `json:"sanitizedName"`
	IsSystem  bool     `json:"isSystem"`
	IsActive  bool     `json:"isActive"`
	Entities  []Entity `json:"entities"`
}

// Entity is a logical table: a module member with physical placement,
// attributes, indexes, relationships, triggers, and an opaque metadata bag.
type Entity struct {
	Module       string            `json:"module"`
	LogicalName  string            `json:"logicalName"`
	PhysicalName string            `json:"physicalName"`
	Schema       string            `json:"schema"`
	Catalog      string            `json:"catalog,omitempty"`
	IsStatic     bool              `json:"isStatic"`
	IsExternal   bool              `json:"isExternal"`
	IsActive     bool              `json:"isActive"`
	AllowMissingPrimaryKey bool    `json:"allowMissingPrimaryKey,omitempty"`

	Attributes    []Attribute    `json:"attributes"`
	Indexes       []Index        `json:"indexes"`
	Relationships []Relationship `json:"relationships"`
	Triggers      []Trigger      `json:"triggers,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// Description pulls a conventional "description" field out of the metadata
// bag, returning "" when absent. Used by the table projector (§4.F) and
// extended-property emission (§6.4).
func (e Entity) Description() string {
	return e.Metadata["description"]
}

// Attribute is a column, logical-plus-physical, with the evidence the
// policy decider reasons over.
type Attribute struct {
	LogicalName  string `json:"logicalName"`
	PhysicalName string `json:"physicalName"`
	DataType     string `json:"dataType"` // logical type token, e.g. "text", "integer"
	Length       *int   `json:"length,omitempty"`
	Precision    *int   `json:"precision,omitempty"`
	Scale        *int   `json:"scale,omitempty"`

	IsMandatory  bool `json:"isMandatory"`
	IsIdentifier bool `json:"isIdentifier"`
	IsAutoNumber bool `json:"isAutoNumber"`
	IsActive     bool `json:"isActive"`

	Reference     *AttributeReference `json:"reference,omitempty"`
	ExternalHint  string              `json:"externalTypeHint,omitempty"`
	Reality       RealitySnapshot     `json:"reality,omitempty"`
	OnDisk        *OnDiskMetadata     `json:"onDisk,omitempty"`
	Metadata      map[string]string   `json:"metadata,omitempty"`
}

// Description pulls the conventional "description" metadata key.
func (a Attribute) Description() string {
	return a.Metadata["description"]
}

// AttributeReference names the logical target of a reference-typed
// attribute (the attribute that backs a Relationship's via-attribute).
type AttributeReference struct {
	TargetEntityLogicalName string `json:"targetEntityLogicalName"`
}

// OnDiskMetadata captures what profiling observed about a column's physical
// storage (§3.1).
type OnDiskMetadata struct {
	IsNullable          bool                  `json:"isNullable"`
	SQLType             string                `json:"sqlType,omitempty"`
	MaxLength           *int                  `json:"maxLength,omitempty"`
	Precision           *int                  `json:"precision,omitempty"`
	Scale               *int                  `json:"scale,omitempty"`
	Collation           string                `json:"collation,omitempty"`
	IsIdentity          bool                  `json:"isIdentity"`
	IsComputed          bool                  `json:"isComputed"`
	ComputedDefinition  string                `json:"computedDefinition,omitempty"`
	DefaultDefinition   string                `json:"defaultDefinition,omitempty"`
	DefaultConstraint   string                `json:"defaultConstraintName,omitempty"`
	CheckConstraints    []CheckConstraint     `json:"checkConstraints,omitempty"`
	IdentitySeed        int64                 `json:"identitySeed,omitempty"`
	IdentityIncrement   int64                 `json:"identityIncrement,omitempty"`
}

// CheckConstraint is a named check, possibly marked not-trusted by the
// profiling pass (source constraint was added WITH NOCHECK).
type CheckConstraint struct {
	Name          string `json:"name"`
	Definition    string `json:"definition"`
	NotTrusted    bool   `json:"notTrusted"`
}

// Relationship describes a foreign-key-shaped edge from this entity to
// another, with zero or more ActualConstraint records reflecting what the
// source database actually enforces (there may be more than one actual
// constraint per relationship, or none if the relationship is purely
// logical).
type Relationship struct {
	ViaAttribute             string             `json:"viaAttribute"`
	TargetEntityLogicalName  string             `json:"targetEntityLogicalName"`
	TargetPhysicalName       string             `json:"targetPhysicalName"`
	DeleteRuleCode           string             `json:"deleteRuleCode"` // e.g. "NoAction", "Cascade", "SetNull"
	HasDatabaseConstraint    bool               `json:"hasDatabaseConstraint"`
	ActualConstraints        []ActualConstraint `json:"actualConstraints,omitempty"`
}

// ActualConstraint is an observed FK as it exists (or existed) physically.
type ActualConstraint struct {
	ReferencedSchema string       `json:"referencedSchema"`
	ReferencedTable  string       `json:"referencedTable"`
	OnDelete         string       `json:"onDelete,omitempty"`
	OnUpdate         string       `json:"onUpdate,omitempty"`
	NotTrusted       bool         `json:"notTrusted"`
	ColumnPairs      []ColumnPair `json:"columnPairs"`
}

// ColumnPair aligns one source/target column pair of a (possibly
// composite) foreign key by ordinal.
type ColumnPair struct {
	Ordinal          int    `json:"ordinal"`
	SourceColumn     string `json:"sourceColumn"`
	SourceAttribute  string `json:"sourceAttribute"`
	TargetColumn     string `json:"targetColumn"`
	TargetAttribute  string `json:"targetAttribute"`
}

// Index is a declared index on an entity (§3.1).
type Index struct {
	Name           string        `json:"name"`
	IsUnique       bool          `json:"isUnique"`
	IsPrimary      bool          `json:"isPrimary"`
	IsPlatformAuto bool          `json:"isPlatformAuto"`
	Columns        []IndexColumn `json:"columns"`
	Included       []string      `json:"included,omitempty"`
	Metadata       IndexMetadata `json:"metadata,omitempty"`
}

// IndexMetadata carries the SMO-level physical knobs the projector (§4.F)
// must preserve verbatim.
type IndexMetadata struct {
	FillFactor      *int   `json:"fillFactor,omitempty"`
	Filter          string `json:"filter,omitempty"`
	DataSpace       string `json:"dataSpace,omitempty"`
	PartitionColumn string `json:"partitionColumn,omitempty"`
	DataCompression string `json:"dataCompression,omitempty"`
}

// IndexColumn is one keyed column of an Index, ordinal-positioned.
type IndexColumn struct {
	Ordinal   int    `json:"ordinal"`
	Column    string `json:"column"`
	Direction string `json:"direction"` // "ASC" | "DESC"
}

// Trigger is emitted verbatim by the DDL writer (§4.G step 8).
type Trigger struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
	IsDisabled bool   `json:"isDisabled"`
}

// RealitySnapshot is observed metadata about a source object: orphan
// counts, duplicate counts, default definitions (glossary).
type RealitySnapshot struct {
	NullCount       int     `json:"nullCount,omitempty"`
	NonNullCount    int     `json:"nonNullCount,omitempty"`
	DistinctCount   int     `json:"distinctCount,omitempty"`
	DefaultDefinition string `json:"defaultDefinition,omitempty"`
}

// NullFraction returns the observed fraction of NULLs, or 0 when there is
// no evidence (zero total rows observed).
func (r RealitySnapshot) NullFraction() float64 {
	total := r.NullCount + r.NonNullCount
	if total == 0 {
		return 0
	}
	return float64(r.NullCount) / float64(total)
}

// HasEvidence reports whether any rows were observed at all.
func (r RealitySnapshot) HasEvidence() bool {
	return r.NullCount+r.NonNullCount > 0
}

// Validate walks the model and returns every model.invariant violation
// found (§3.1 invariants, §7 model.invariant): duplicate (schema, physical
// name) pairs among non-external entities, and entities lacking an
// identifier attribute without AllowMissingPrimaryKey set.
func (m Model) Validate() []apperr.Diagnostic {
	var diags []apperr.Diagnostic
	seen := make(map[string]string) // "schema.table" (upper) -> module.entity

	for _, mod := range m.Modules {
		for _, e := range mod.Entities {
			if !e.IsExternal {
				key := strings.ToUpper(e.Schema) + "." + strings.ToUpper(e.PhysicalName)
				if owner, exists := seen[key]; exists {
					diags = append(diags, apperr.Diagnostic{
						Code:     apperr.ModelInvariant,
						Severity: apperr.Error,
						Message: fmt.Sprintf(
							"duplicate physical table (%s.%s) declared by %s and %s.%s",
							e.Schema, e.PhysicalName, owner, mod.Name, e.LogicalName,
						),
						Coordinate: apperr.Coordinate{Schema: e.Schema, Table: e.PhysicalName},
					})
				} else {
					seen[key] = mod.Name + "." + e.LogicalName
				}
			}

			if !e.AllowMissingPrimaryKey && !hasIdentifier(e) {
				diags = append(diags, apperr.Diagnostic{
					Code:     apperr.ModelInvariant,
					Severity: apperr.Error,
					Message: fmt.Sprintf(
						"entity %s.%s has no identifier attribute and allowMissingPrimaryKey is not set",
						mod.Name, e.LogicalName,
					),
					Coordinate: apperr.Coordinate{Schema: e.Schema, Table: e.PhysicalName},
				})
			}
		}
	}
	return diags
}

func hasIdentifier(e Entity) bool {
	for _, a := range e.Attributes {
		if a.IsIdentifier {
			return true
		}
	}
	for _, idx := range e.Indexes {
		if idx.IsPrimary {
			return true
		}
	}
	return false
}

// AllEntities flattens the module tree, preserving module then declared
// entity order (the determinism contract of §4.F).
func (m Model) AllEntities() []Entity {
	var all []Entity
	for _, mod := range m.Modules {
		all = append(all, mod.Entities...)
	}
	return all
}

// FindModule returns the module with the given name, if present.
func (m Model) FindModule(name string) (Module, bool) {
	for _, mod := range m.Modules {
		if mod.Name == name {
			return mod, true
		}
	}
	return Module{}, false
}
