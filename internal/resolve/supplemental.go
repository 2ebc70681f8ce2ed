package resolve

// SupplementalEntity is one platform-defined system table injected into the
// resolution index so internal foreign keys resolve without appearing in
// the user model (glossary: "Supplemental entity"; SPEC_FULL §3.5).
type SupplementalEntity struct {
	Schema       string               `json:"schema"`
	PhysicalName string               `json:"physicalName"`
	LogicalName  string               `json:"logicalName"`
	Module       string               `json:"module"`
	Columns      []SupplementalColumn `json:"columns"`
}

// SupplementalColumn is a minimal column shape: enough for a relationship
// to validate its referenced-column list without a full Attribute.
type SupplementalColumn struct {
	LogicalName  string `json:"logicalName"`
	PhysicalName string `json:"physicalName"`
	DataType     string `json:"dataType"`
}

// SupplementalSet is the typed registry of SupplementalEntity records
// loaded alongside the Model (SPEC_FULL §3.5).
type SupplementalSet struct {
	Entities []SupplementalEntity `json:"entities"`
}

// Contexts converts the supplemental set into resolver Context records.
func (s SupplementalSet) Contexts() []Context {
	out := make([]Context, 0, len(s.Entities))
	for _, e := range s.Entities {
		out = append(out, Context{
			Module:         e.Module,
			LogicalName:    e.LogicalName,
			PhysicalName:   e.PhysicalName,
			Schema:         e.Schema,
			IsSupplemental: true,
		})
	}
	return out
}
