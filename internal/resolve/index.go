// Package resolve implements §4.E: the entity emission index, resolving
// cross-module relationship targets by (schema+physical), then
// (module+logical), then (logical) as a last resort.
package resolve

import (
	"strings"

	"github.com/danielbdyer/ddlexporter/internal/model"
)

// Context is what the index resolves a reference to: enough identity to
// build a ForeignKeyDefinition's referenced-table fields (§3.3) without
// re-walking the model.
type Context struct {
	Module       string
	LogicalName  string
	PhysicalName string
	Schema       string
	IsSupplemental bool
}

// Reference is what a relationship names as its target (§4.E).
type Reference struct {
	PhysicalName string
	Schema       string
	Module       string
	LogicalName  string
}

// Owner is the entity that holds the relationship being resolved, used to
// prefer a schema- or module-local match on ambiguity (§4.E).
type Owner struct {
	Schema string
	Module string
}

// Index is the three-tier lookup built once per build (§4.E, §9: resolution
// via an index keyed by case-normalized identifiers, with owner context
// alongside each entity for efficient schema-preferred tiebreaks).
type Index struct {
	byPhysical map[string]Context          // SCHEMA\x00PHYSICAL -> context
	byModuleLogical map[string]Context     // module\x00logical -> context
	byLogical  map[string][]Context        // logical -> []context, declared order
}

func physicalKey(schema, physical string) string {
	return strings.ToUpper(schema) + "\x00" + strings.ToUpper(physical)
}

func moduleLogicalKey(module, logical string) string {
	return module + "\x00" + logical
}

// Build constructs the index from the model plus an optional supplemental
// entity set (platform system tables, glossary: "Supplemental entity").
func Build(m model.Model, supplemental []Context) *Index {
	idx := &Index{
		byPhysical:      make(map[string]Context),
		byModuleLogical: make(map[string]Context),
		byLogical:       make(map[string][]Context),
	}

	for _, mod := range m.Modules {
		for _, e := range mod.Entities {
			idx.add(Context{
				Module:       mod.Name,
				LogicalName:  e.LogicalName,
				PhysicalName: e.PhysicalName,
				Schema:       e.Schema,
			})
		}
	}
	for _, c := range supplemental {
		c.IsSupplemental = true
		idx.add(c)
	}

	return idx
}

func (idx *Index) add(c Context) {
	idx.byPhysical[physicalKey(c.Schema, c.PhysicalName)] = c
	idx.byModuleLogical[moduleLogicalKey(c.Module, c.LogicalName)] = c
	idx.byLogical[c.LogicalName] = append(idx.byLogical[c.LogicalName], c)
}

// Resolve implements the §4.E precedence: by (schema, physical) first; then
// by (module, logical); then by logical name alone, preferring the owner's
// schema, then the owner's module, then the first entry in module+logical
// declared order. Ambiguity at the logical-only tier that cannot be broken
// by owner context returns the first candidate (the caller, policy.Decide,
// treats "resolved" as boolean and does not need the exact match beyond
// existence, but Context is still returned for completeness).
func (idx *Index) Resolve(ref Reference, owner Owner) (Context, bool) {
	if ref.Schema != "" && ref.PhysicalName != "" {
		if c, ok := idx.byPhysical[physicalKey(ref.Schema, ref.PhysicalName)]; ok {
			return c, true
		}
	}
	// Physical name alone: try every schema, preferring the owner's.
	if ref.PhysicalName != "" {
		if c, ok := idx.byPhysical[physicalKey(owner.Schema, ref.PhysicalName)]; ok {
			return c, true
		}
		for key, c := range idx.byPhysical {
			if strings.HasSuffix(key, "\x00"+strings.ToUpper(ref.PhysicalName)) {
				return c, true
			}
		}
	}

	if ref.Module != "" && ref.LogicalName != "" {
		if c, ok := idx.byModuleLogical[moduleLogicalKey(ref.Module, ref.LogicalName)]; ok {
			return c, true
		}
	}

	if ref.LogicalName != "" {
		candidates := idx.byLogical[ref.LogicalName]
		if len(candidates) == 0 {
			return Context{}, false
		}
		if len(candidates) == 1 {
			return candidates[0], true
		}
		var sameSchema []Context
		for _, c := range candidates {
			if strings.EqualFold(c.Schema, owner.Schema) {
				sameSchema = append(sameSchema, c)
			}
		}
		if len(sameSchema) == 1 {
			return sameSchema[0], true
		}
		if len(sameSchema) > 1 {
			candidates = sameSchema
		}
		for _, c := range candidates {
			if c.Module == owner.Module {
				return c, true
			}
		}
		return candidates[0], true
	}

	return Context{}, false
}
