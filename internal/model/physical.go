package model

// This file holds §3.3's physical projection entities: the output of the
// table projector (internal/project), read-only downstream of that point.

// TableDefinition is the physical projection of one entity (§3.3).
type TableDefinition struct {
	Module         string `json:"module"`
	OriginalModule string `json:"originalModule"`
	PhysicalName   string `json:"physicalName"` // effective name, after naming overrides
	Schema         string `json:"schema"`
	Catalog        string `json:"catalog,omitempty"`
	LogicalName    string `json:"logicalName"`
	Description    string `json:"description,omitempty"`

	RenamedFrom *RenameProvenance `json:"renamedFrom,omitempty"`

	Columns     []ColumnDefinition     `json:"columns"`
	Indexes     []IndexDefinition      `json:"indexes"`
	ForeignKeys []ForeignKeyDefinition `json:"foreignKeys"`
	Triggers    []Trigger              `json:"triggers,omitempty"`

	IsStatic bool `json:"isStatic"`
}

// RenameProvenance records the pre-override physical identity of a table
// whose naming override changed its effective name (§4.G step 1).
type RenameProvenance struct {
	OldSchema string `json:"oldSchema"`
	OldName   string `json:"oldName"`
}

// ColumnDefinition is the physical projection of one attribute (§3.3).
type ColumnDefinition struct {
	PhysicalName string `json:"physicalName"`
	LogicalName  string `json:"logicalName"`
	DataType     string `json:"dataType"` // fully resolved SQL type, e.g. "NVARCHAR(128)"
	Nullable     bool   `json:"nullable"`

	Identity *IdentitySpec `json:"identity,omitempty"`
	Computed *ComputedSpec `json:"computed,omitempty"`

	DefaultExpression string `json:"defaultExpression,omitempty"`
	DefaultConstraint string `json:"defaultConstraint,omitempty"`

	CheckConstraints []CheckConstraint `json:"checkConstraints,omitempty"`

	Collation   string `json:"collation,omitempty"`
	Description string `json:"description,omitempty"`
}

// IdentitySpec is the SQL Server IDENTITY(seed,increment) clause.
type IdentitySpec struct {
	Seed      int64 `json:"seed"`
	Increment int64 `json:"increment"`
}

// ComputedSpec is a computed-column expression.
type ComputedSpec struct {
	Expression string `json:"expression"`
}

// IndexDefinition is the physical projection of one Index (§3.3).
type IndexDefinition struct {
	Name           string        `json:"name"`
	IsUnique       bool          `json:"isUnique"`
	IsPrimary      bool          `json:"isPrimary"`
	IsPlatformAuto bool          `json:"isPlatformAuto"`
	KeyColumns     []IndexColumn `json:"keyColumns"`
	IncludedColumns []string     `json:"includedColumns,omitempty"`
	Metadata       IndexMetadata `json:"metadata,omitempty"`
}

// ForeignKeyDefinition is the physical projection of one enforced
// relationship (§3.3).
type ForeignKeyDefinition struct {
	Name               string   `json:"name"`
	OwningColumns      []string `json:"owningColumns"`
	ReferencedModule   string   `json:"referencedModule"`
	ReferencedSchema   string   `json:"referencedSchema"`
	ReferencedTable    string   `json:"referencedTable"` // effective name
	ReferencedColumns  []string `json:"referencedColumns"`
	ReferencedLogicalTable string `json:"referencedLogicalTable"`
	DeleteAction       string   `json:"deleteAction,omitempty"`
	UpdateAction       string   `json:"updateAction,omitempty"`
	IsTrusted          bool     `json:"isTrusted"`
	NotTrustedComment  string   `json:"notTrustedComment,omitempty"`
}
