// Package config defines the TighteningOptions tree (§6.2) and naming
// override documents (§6.1), with every option defaulted per §9's
// "every option has a default" design note.
package config

import (
	"fmt"

	"github.com/danielbdyer/ddlexporter/internal/apperr"
)

// PolicyMode selects how aggressively the policy decider tightens
// nullability and uniqueness (§4.D).
type PolicyMode string

const (
	EvidenceGated PolicyMode = "EvidenceGated"
	Cautious      PolicyMode = "Cautious"
	Aggressive    PolicyMode = "Aggressive"
)

func (m PolicyMode) Valid() bool {
	switch m {
	case EvidenceGated, Cautious, Aggressive:
		return true
	}
	return false
}

// SynchronizationMode selects the MERGE clause set emitted for a seed table
// (§4.I).
type SynchronizationMode string

const (
	NonDestructive   SynchronizationMode = "NonDestructive"
	Authoritative    SynchronizationMode = "Authoritative"
	ValidateThenApply SynchronizationMode = "ValidateThenApply"
)

func (m SynchronizationMode) Valid() bool {
	switch m {
	case NonDestructive, Authoritative, ValidateThenApply:
		return true
	}
	return false
}

// QuoteStrategy selects the identifier-quoting convention (§4.A).
type QuoteStrategy string

const (
	QuoteBracket QuoteStrategy = "bracket" // [name]
	QuoteDouble  QuoteStrategy = "double"  // "name"
)

// PolicyOptions is §6.2's "Policy" section.
type PolicyOptions struct {
	Mode       PolicyMode `json:"mode" yaml:"mode"`
	NullBudget float64    `json:"nullBudget" yaml:"nullBudget"`
}

// ForeignKeyOptions is §6.2's "ForeignKeys" section.
type ForeignKeyOptions struct {
	EnableCreation bool `json:"enableCreation" yaml:"enableCreation"`
	EnableTrust    bool `json:"enableTrust" yaml:"enableTrust"`
}

// UniquenessOptions is §6.2's "Uniqueness" section.
type UniquenessOptions struct {
	EnforceWithRemediation bool `json:"enforceWithRemediation" yaml:"enforceWithRemediation"`
}

// EmissionOptions is §6.2's "Emission" section.
type EmissionOptions struct {
	PerTableFiles              bool            `json:"perTableFiles" yaml:"perTableFiles"`
	IncludePlatformAutoIndexes bool            `json:"includePlatformAutoIndexes" yaml:"includePlatformAutoIndexes"`
	SanitizeModuleNames        bool            `json:"sanitizeModuleNames" yaml:"sanitizeModuleNames"`
	EmitBareTableOnly          bool            `json:"emitBareTableOnly" yaml:"emitBareTableOnly"`
	ModuleParallelism          int             `json:"moduleParallelism" yaml:"moduleParallelism"`
	NamingOverrides            []NamingOverride `json:"namingOverrides" yaml:"namingOverrides"`
	QuoteStrategy              QuoteStrategy    `json:"quoteStrategy" yaml:"quoteStrategy"`
	EmitNotForReplicationOnUntrustedFK bool    `json:"emitNotForReplicationOnUntrustedFK" yaml:"emitNotForReplicationOnUntrustedFK"`
	EmitHeaderBlock            bool            `json:"emitHeaderBlock" yaml:"emitHeaderBlock"`
	FingerprintAlgorithm       string          `json:"fingerprintAlgorithm" yaml:"fingerprintAlgorithm"`
}

// CircularDependencyOverride is one entry of §6.2's
// "circularDependencyOverrides": a manual ordering for a named FK cycle.
type CircularDependencyOverride struct {
	Cycle  []string `json:"cycle" yaml:"cycle"`
	Strict bool     `json:"strict" yaml:"strict"`
}

// SeedingOptions is §6.2's "Seeding" section.
type SeedingOptions struct {
	SynchronizationMode        SynchronizationMode          `json:"synchronizationMode" yaml:"synchronizationMode"`
	AllowMissingPrimaryKey     []string                     `json:"allowMissingPrimaryKey" yaml:"allowMissingPrimaryKey"`
	CircularDependencyOverrides []CircularDependencyOverride `json:"circularDependencyOverrides" yaml:"circularDependencyOverrides"`
	BatchSize                  int                          `json:"batchSize" yaml:"batchSize"`
}

// NamingOverride is one rule of §4.A's naming-override rule set.
type NamingOverride struct {
	Schema      string `json:"schema,omitempty" yaml:"schema,omitempty"`
	Table       string `json:"table,omitempty" yaml:"table,omitempty"`
	Module      string `json:"module,omitempty" yaml:"module,omitempty"`
	LogicalName string `json:"logicalName,omitempty" yaml:"logicalName,omitempty"`
	Target      string `json:"target" yaml:"target"`
}

// Specificity ranks a rule for precedence ordering (§4.A): (schema+table) >
// (module+logical) > (logical). Higher is more specific.
func (r NamingOverride) Specificity() int {
	switch {
	case r.Schema != "" && r.Table != "":
		return 3
	case r.Module != "" && r.LogicalName != "":
		return 2
	case r.LogicalName != "":
		return 1
	default:
		return 0
	}
}

// TighteningOptions is the full §6.2 configuration object, the "Options" of
// (Model, Profile, Options) (§4.D).
type TighteningOptions struct {
	Policy      PolicyOptions      `json:"policy" yaml:"policy"`
	ForeignKeys ForeignKeyOptions  `json:"foreignKeys" yaml:"foreignKeys"`
	Uniqueness  UniquenessOptions  `json:"uniqueness" yaml:"uniqueness"`
	Emission    EmissionOptions    `json:"emission" yaml:"emission"`
	Seeding     SeedingOptions     `json:"seeding" yaml:"seeding"`

	// Cache is an opaque passthrough (§6.1): the core never reads it, only
	// round-trips it into the manifest's options snapshot.
	Cache map[string]any `json:"cache,omitempty" yaml:"cache,omitempty"`
}

// Default returns a TighteningOptions with every field defaulted, per §9's
// "every option has a default" design note. Constraint-name prefixes live
// in ident.NamingConfig, not here, since they are an §4.A concern.
func Default() TighteningOptions {
	return TighteningOptions{
		Policy: PolicyOptions{
			Mode:       EvidenceGated,
			NullBudget: 0.0,
		},
		ForeignKeys: ForeignKeyOptions{
			EnableCreation: true,
			EnableTrust:    true,
		},
		Uniqueness: UniquenessOptions{
			EnforceWithRemediation: false,
		},
		Emission: EmissionOptions{
			PerTableFiles:              true,
			IncludePlatformAutoIndexes: true,
			SanitizeModuleNames:        true,
			EmitBareTableOnly:          false,
			ModuleParallelism:          1,
			QuoteStrategy:              QuoteBracket,
			EmitNotForReplicationOnUntrustedFK: true,
			EmitHeaderBlock:            true,
			FingerprintAlgorithm:       "sha256",
		},
		Seeding: SeedingOptions{
			SynchronizationMode: NonDestructive,
			BatchSize:           1000,
		},
	}
}

// Validate checks for config.invalid conditions (§7): unrecognized enum
// values and nonsensical combinations. It never panics; every violation is
// reported so the caller can aggregate (§7 propagation policy).
func (o TighteningOptions) Validate() []apperr.Diagnostic {
	var diags []apperr.Diagnostic
	add := func(format string, args ...any) {
		diags = append(diags, apperr.Diagnostic{
			Code:     apperr.ConfigInvalid,
			Severity: apperr.Error,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	if !o.Policy.Mode.Valid() {
		add("unrecognized policy mode %q", o.Policy.Mode)
	}
	if o.Policy.NullBudget < 0 || o.Policy.NullBudget > 1 {
		add("nullBudget must be within [0,1], got %v", o.Policy.NullBudget)
	}
	if !o.Seeding.SynchronizationMode.Valid() {
		add("unrecognized synchronization mode %q", o.Seeding.SynchronizationMode)
	}
	if o.Emission.ModuleParallelism < 1 {
		add("moduleParallelism must be >= 1, got %d", o.Emission.ModuleParallelism)
	}
	if o.Seeding.BatchSize < 1 {
		add("seeding.batchSize must be >= 1, got %d", o.Seeding.BatchSize)
	}
	if o.Emission.QuoteStrategy != "" && o.Emission.QuoteStrategy != QuoteBracket && o.Emission.QuoteStrategy != QuoteDouble {
		add("unrecognized quote strategy %q", o.Emission.QuoteStrategy)
	}
	for _, cyc := range o.Seeding.CircularDependencyOverrides {
		if len(cyc.Cycle) == 0 {
			add("circularDependencyOverrides entry has an empty cycle")
		}
	}

	return diags
}
