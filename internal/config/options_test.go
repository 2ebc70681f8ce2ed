package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultIsValid(t *testing.T) {
	opts := Default()
	assert.Empty(t, opts.Validate())
}

func TestValidateCatchesEveryInvalidField(t *testing.T) {
	opts := Default()
	opts.Policy.Mode = "Unknown"
	opts.Policy.NullBudget = 2
	opts.Seeding.SynchronizationMode = "Unknown"
	opts.Emission.ModuleParallelism = 0
	opts.Seeding.BatchSize = 0
	opts.Emission.QuoteStrategy = "backtick"
	opts.Seeding.CircularDependencyOverrides = []CircularDependencyOverride{{Cycle: nil}}

	diags := opts.Validate()
	assert.Len(t, diags, 7)
	for _, d := range diags {
		assert.Equal(t, "config.invalid", string(d.Code))
	}
}

func TestNamingOverrideSpecificity(t *testing.T) {
	assert.Equal(t, 3, NamingOverride{Schema: "dbo", Table: "Orders", Target: "T"}.Specificity())
	assert.Equal(t, 2, NamingOverride{Module: "Sales", LogicalName: "Order", Target: "T"}.Specificity())
	assert.Equal(t, 1, NamingOverride{LogicalName: "Order", Target: "T"}.Specificity())
	assert.Equal(t, 0, NamingOverride{Target: "T"}.Specificity())
}

func TestPolicyModeValid(t *testing.T) {
	assert.True(t, EvidenceGated.Valid())
	assert.True(t, Cautious.Valid())
	assert.True(t, Aggressive.Valid())
	assert.False(t, PolicyMode("Nonsense").Valid())
}

func TestSynchronizationModeValid(t *testing.T) {
	assert.True(t, NonDestructive.Valid())
	assert.True(t, Authoritative.Valid())
	assert.True(t, ValidateThenApply.Valid())
	assert.False(t, SynchronizationMode("Nonsense").Valid())
}
