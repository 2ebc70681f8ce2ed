// Package policy implements §4.D: the pure, side-effect-free decider that
// turns (model, profile, options) into a PolicyDecisionSet. It never fails
// (§7 failure semantics) — every input, however unusual, produces a
// decision plus rationales.
package policy

import (
	"fmt"
	"sort"

	"github.com/danielbdyer/ddlexporter/internal/config"
	"github.com/danielbdyer/ddlexporter/internal/model"
	"github.com/danielbdyer/ddlexporter/internal/resolve"
)

// Decide computes the full PolicyDecisionSet for m against profile, using
// idx to resolve relationship targets (so a relationship whose target
// cannot be resolved never gets a constraint, per §4.D).
func Decide(m model.Model, profile model.Profile, idx *resolve.Index, opts config.TighteningOptions) model.PolicyDecisionSet {
	profileIdx := model.NewProfileIndex(profile)

	set := model.PolicyDecisionSet{
		Nullability: make(map[model.ColumnCoordinate]model.NullabilityDecision),
		ForeignKeys: make(map[model.ColumnCoordinate]model.ForeignKeyDecision),
		Unique:      make(map[model.IndexCoordinate]model.UniqueIndexDecision),
		Toggles: model.TighteningToggleSnapshot{
			PolicyMode:                       string(opts.Policy.Mode),
			NullBudget:                       opts.Policy.NullBudget,
			ForeignKeysEnableCreation:        opts.ForeignKeys.EnableCreation,
			ForeignKeysEnableTrust:           opts.ForeignKeys.EnableTrust,
			UniquenessEnforceWithRemediation: opts.Uniqueness.EnforceWithRemediation,
		},
	}

	rollups := make(map[string]*model.ModuleRollup)
	rollupFor := func(module string) *model.ModuleRollup {
		if r, ok := rollups[module]; ok {
			return r
		}
		r := &model.ModuleRollup{Module: module}
		rollups[module] = r
		return r
	}

	for _, mod := range m.Modules {
		roll := rollupFor(mod.Name)
		for _, e := range mod.Entities {
			decideEntityColumns(e, profileIdx, opts, set.Nullability, roll)
			decideEntityForeignKeys(mod.Name, e, idx, profileIdx, opts, set.ForeignKeys, roll)
			decideEntityIndexes(e, profileIdx, opts, set.Unique, roll)
		}
	}

	for _, name := range sortedModuleNames(rollups) {
		set.ModuleRollups = append(set.ModuleRollups, *rollups[name])
	}

	return set
}

func sortedModuleNames(rollups map[string]*model.ModuleRollup) []string {
	names := make([]string, 0, len(rollups))
	for k := range rollups {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func decideEntityColumns(
	e model.Entity,
	profileIdx *model.ProfileIndex,
	opts config.TighteningOptions,
	out map[model.ColumnCoordinate]model.NullabilityDecision,
	roll *model.ModuleRollup,
) {
	for _, attr := range e.Attributes {
		coord := model.ColumnCoordinate{Schema: e.Schema, Table: e.PhysicalName, Column: attr.PhysicalName}
		decision := decideNullability(coord, attr, profileIdx, opts)
		out[coord] = decision
		if decision.MakeNotNull && !attr.IsMandatory {
			roll.ColumnsTightened++
		}
		if decision.RequiresRemediation {
			roll.RemediationsNeeded++
		}
	}
}

func decideNullability(
	coord model.ColumnCoordinate,
	attr model.Attribute,
	profileIdx *model.ProfileIndex,
	opts config.TighteningOptions,
) model.NullabilityDecision {
	// Identifier, auto-number, and computed columns are always NOT NULL.
	if attr.IsIdentifier || attr.IsAutoNumber || (attr.OnDisk != nil && attr.OnDisk.IsComputed) {
		return model.NullabilityDecision{
			Coordinate:  coord,
			MakeNotNull: true,
			Rationales:  []string{"column.identifierOrComputed"},
		}
	}

	// Start from the attribute's declared mandatory flag.
	if attr.IsMandatory {
		return model.NullabilityDecision{
			Coordinate:  coord,
			MakeNotNull: true,
			Rationales:  []string{"model.mandatory"},
		}
	}

	profileRow, hasProfile := profileIdx.Column(coord)

	// Already non-nullable in evidence: trivially tighten.
	if hasProfile && !profileRow.IsNullablePhysically {
		return model.NullabilityDecision{
			Coordinate:  coord,
			MakeNotNull: true,
			Rationales:  []string{"evidence.alreadyNotNull"},
		}
	}

	reality := attr.Reality
	if hasProfile {
		reality = profileRow.Reality()
	}

	if !reality.HasEvidence() {
		return model.NullabilityDecision{
			Coordinate:  coord,
			MakeNotNull: false,
			Rationales:  []string{"evidence.none"},
		}
	}

	if reality.NullCount == 0 {
		return model.NullabilityDecision{
			Coordinate:  coord,
			MakeNotNull: true,
			Rationales:  []string{"evidence.nulls", "evidence.nulls=0"},
		}
	}

	switch opts.Policy.Mode {
	case config.Aggressive:
		return model.NullabilityDecision{
			Coordinate:          coord,
			MakeNotNull:         true,
			RequiresRemediation: true,
			Rationales:          []string{"evidence.nulls", "policy.mode=Aggressive"},
		}
	case config.EvidenceGated:
		fraction := reality.NullFraction()
		if fraction <= opts.Policy.NullBudget {
			return model.NullabilityDecision{
				Coordinate:          coord,
				MakeNotNull:         true,
				RequiresRemediation: fraction > 0,
				Rationales: []string{
					"evidence.nulls",
					fmt.Sprintf("evidence.nullFraction=%.4f", fraction),
					fmt.Sprintf("budget.threshold=%.4f", opts.Policy.NullBudget),
				},
			}
		}
		return model.NullabilityDecision{
			Coordinate:  coord,
			MakeNotNull: false,
			Rationales: []string{
				"evidence.nulls",
				fmt.Sprintf("evidence.nullFraction=%.4f", fraction),
				"budget.exceeded",
			},
		}
	default: // Cautious
		return model.NullabilityDecision{
			Coordinate:  coord,
			MakeNotNull: false,
			Rationales:  []string{"evidence.nulls", "policy.mode=Cautious"},
		}
	}
}

func decideEntityForeignKeys(
	moduleName string,
	e model.Entity,
	idx *resolve.Index,
	profileIdx *model.ProfileIndex,
	opts config.TighteningOptions,
	out map[model.ColumnCoordinate]model.ForeignKeyDecision,
	roll *model.ModuleRollup,
) {
	for _, rel := range e.Relationships {
		for _, actual := range rel.ActualConstraints {
			if len(actual.ColumnPairs) == 0 {
				continue
			}
			leadColumn := actual.ColumnPairs[0].SourceColumn
			coord := model.ColumnCoordinate{Schema: e.Schema, Table: e.PhysicalName, Column: leadColumn}

			decision := decideForeignKey(moduleName, e, rel, actual, coord, idx, profileIdx, opts)
			out[coord] = decision
			if decision.CreateConstraint {
				roll.ForeignKeysCreated++
			}
		}
	}
}

func decideForeignKey(
	moduleName string,
	e model.Entity,
	rel model.Relationship,
	actual model.ActualConstraint,
	coord model.ColumnCoordinate,
	idx *resolve.Index,
	profileIdx *model.ProfileIndex,
	opts config.TighteningOptions,
) model.ForeignKeyDecision {
	var rationales []string

	if !opts.ForeignKeys.EnableCreation {
		return model.ForeignKeyDecision{
			Coordinate:       coord,
			CreateConstraint: false,
			Rationales:       []string{"toggle.foreignKeys.disabled"},
		}
	}

	if !rel.HasDatabaseConstraint {
		rationales = append(rationales, "model.noDeclaredConstraint")
	}

	_, resolved := idx.Resolve(resolve.Reference{
		PhysicalName: rel.TargetPhysicalName,
		Schema:       actual.ReferencedSchema,
		Module:       moduleName,
		LogicalName:  rel.TargetEntityLogicalName,
	}, resolve.Owner{Schema: e.Schema, Module: moduleName})

	if !resolved {
		return model.ForeignKeyDecision{
			Coordinate:       coord,
			CreateConstraint: false,
			Rationales:       append(rationales, "reference.unresolved"),
		}
	}
	rationales = append(rationales, "reference.resolved")

	isTrusted := opts.ForeignKeys.EnableTrust
	if actual.NotTrusted {
		isTrusted = false
		rationales = append(rationales, "source.notTrusted")
	}
	if reality, ok := profileIdx.ForeignKey(coord); ok {
		if reality.OrphanCount > 0 {
			isTrusted = false
			rationales = append(rationales, fmt.Sprintf("evidence.orphans=%d", reality.OrphanCount))
		}
		if reality.SourceNotTrusted {
			isTrusted = false
			rationales = append(rationales, "evidence.sourceNotTrusted")
		}
	}
	if opts.Policy.Mode == config.Aggressive {
		isTrusted = true
		rationales = append(rationales, "policy.mode=Aggressive")
	}

	return model.ForeignKeyDecision{
		Coordinate:       coord,
		CreateConstraint: true,
		IsTrusted:        isTrusted,
		Rationales:       rationales,
	}
}

func decideEntityIndexes(
	e model.Entity,
	profileIdx *model.ProfileIndex,
	opts config.TighteningOptions,
	out map[model.IndexCoordinate]model.UniqueIndexDecision,
	roll *model.ModuleRollup,
) {
	for _, index := range e.Indexes {
		if !index.IsUnique || index.IsPrimary {
			continue
		}
		coord := model.IndexCoordinate{Schema: e.Schema, Table: e.PhysicalName, Index: index.Name}
		decision := decideUniqueIndex(coord, profileIdx, opts)
		out[coord] = decision
		if decision.EnforceUnique {
			roll.UniqueIndexesEnforced++
		}
		if decision.RequiresRemediation {
			roll.RemediationsNeeded++
		}
	}
}

func decideUniqueIndex(
	coord model.IndexCoordinate,
	profileIdx *model.ProfileIndex,
	opts config.TighteningOptions,
) model.UniqueIndexDecision {
	candidate, hasEvidence := profileIdx.Unique(coord)
	if !hasEvidence || !candidate.HasDuplicates {
		return model.UniqueIndexDecision{
			Coordinate:    coord,
			EnforceUnique: true,
			Rationales:    []string{"evidence.noDuplicates"},
		}
	}

	rationale := fmt.Sprintf("evidence.duplicates=%d", candidate.DuplicateCount)
	if opts.Policy.Mode == config.Aggressive {
		return model.UniqueIndexDecision{
			Coordinate:          coord,
			EnforceUnique:       true,
			RequiresRemediation: true,
			Rationales:          []string{rationale, "policy.mode=Aggressive"},
		}
	}

	return model.UniqueIndexDecision{
		Coordinate:    coord,
		EnforceUnique: false,
		Rationales:    []string{rationale, "policy.mode=" + string(opts.Policy.Mode)},
	}
}
