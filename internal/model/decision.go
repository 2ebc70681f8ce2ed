package model

// This file holds §3.2's decision entities: the pure output of the policy
// decider (internal/policy), consumed read-only by the table projector
// (internal/project).

// NullabilityDecision is the per-column tightening verdict (§3.2, §4.D).
type NullabilityDecision struct {
	Coordinate          ColumnCoordinate `json:"coordinate"`
	MakeNotNull         bool             `json:"makeNotNull"`
	RequiresRemediation bool             `json:"requiresRemediation"`
	Rationales          []string         `json:"rationales"`
}

// ForeignKeyDecision is the per-relationship creation/trust verdict.
type ForeignKeyDecision struct {
	Coordinate       ColumnCoordinate `json:"coordinate"`
	CreateConstraint bool             `json:"createConstraint"`
	IsTrusted        bool             `json:"isTrusted"`
	Rationales       []string         `json:"rationales"`
}

// UniqueIndexDecision is the per-index enforcement verdict.
type UniqueIndexDecision struct {
	Coordinate          IndexCoordinate `json:"coordinate"`
	EnforceUnique       bool            `json:"enforceUnique"`
	RequiresRemediation bool            `json:"requiresRemediation"`
	Rationales          []string        `json:"rationales"`
}

// ModuleRollup counts decisions made within one module, for the manifest's
// per-module summary (§4.D, §4.J).
type ModuleRollup struct {
	Module             string `json:"module"`
	ColumnsTightened   int    `json:"columnsTightened"`
	RemediationsNeeded int    `json:"remediationsNeeded"`
	ForeignKeysCreated int    `json:"foreignKeysCreated"`
	UniqueIndexesEnforced int `json:"uniqueIndexesEnforced"`
}

// TighteningToggleSnapshot records the effective options used to produce a
// PolicyDecisionSet, for the manifest's toggle snapshot (§4.D, §4.J).
type TighteningToggleSnapshot struct {
	PolicyMode                 string  `json:"policyMode"`
	NullBudget                 float64 `json:"nullBudget"`
	ForeignKeysEnableCreation   bool   `json:"foreignKeysEnableCreation"`
	ForeignKeysEnableTrust      bool   `json:"foreignKeysEnableTrust"`
	UniquenessEnforceWithRemediation bool `json:"uniquenessEnforceWithRemediation"`
}

// PolicyDecisionSet is the pure output of the policy decider: three
// coordinate-keyed decision maps plus diagnostics and rollups (§3.2).
type PolicyDecisionSet struct {
	Nullability map[ColumnCoordinate]NullabilityDecision
	ForeignKeys map[ColumnCoordinate]ForeignKeyDecision
	Unique      map[IndexCoordinate]UniqueIndexDecision

	ModuleRollups []ModuleRollup
	Toggles       TighteningToggleSnapshot
}

// NullabilityFor returns the decision for coord, or a conservative
// "leave nullable, no rationale" default when absent (§4.F step 2: "default
// NULL when absent").
func (s PolicyDecisionSet) NullabilityFor(coord ColumnCoordinate) NullabilityDecision {
	if d, ok := s.Nullability[coord]; ok {
		return d
	}
	return NullabilityDecision{Coordinate: coord, MakeNotNull: false}
}

func (s PolicyDecisionSet) ForeignKeyFor(coord ColumnCoordinate) (ForeignKeyDecision, bool) {
	d, ok := s.ForeignKeys[coord]
	return d, ok
}

func (s PolicyDecisionSet) UniqueFor(coord IndexCoordinate) (UniqueIndexDecision, bool) {
	d, ok := s.Unique[coord]
	return d, ok
}
