// Package manifest implements §4.J: assembling the structured summary of a
// build into the stable-key-order JSON document written to manifest.json
// (§6.5).
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/danielbdyer/ddlexporter/internal/config"
	"github.com/danielbdyer/ddlexporter/internal/ddl"
	"github.com/danielbdyer/ddlexporter/internal/ident"
	"github.com/danielbdyer/ddlexporter/internal/model"
	"github.com/google/uuid"
)

// TableEntry is one §6.5 tables[] entry.
type TableEntry struct {
	Module                    string   `json:"module"`
	Schema                    string   `json:"schema"`
	Table                     string   `json:"table"`
	TableFile                 string   `json:"tableFile"`
	Indexes                   []string `json:"indexes"`
	ForeignKeys               []string `json:"foreignKeys"`
	IncludesExtendedProperties bool    `json:"includesExtendedProperties"`
}

// Metadata carries emission-run provenance (§4.J, §1.2 RunID wiring).
type Metadata struct {
	RunID                string `json:"runId"`
	FingerprintAlgorithm string `json:"fingerprintAlgorithm"`
	FingerprintHash      string `json:"fingerprintHash"`
}

// PolicySummary aggregates the policy decider's verdicts (§4.J).
type PolicySummary struct {
	ColumnCount             int            `json:"columnCount"`
	TightenedCount          int            `json:"tightenedCount"`
	UniqueIndexEnforcedCount int           `json:"uniqueIndexEnforcedCount"`
	ForeignKeyCreatedCount  int            `json:"foreignKeyCreatedCount"`
	RationaleFrequency      map[string]int `json:"rationaleFrequency"`
}

// Coverage reports the build's tables/columns/constraints counts and
// percentages (§4.J).
type Coverage struct {
	TableCount              int     `json:"tableCount"`
	ColumnCount             int     `json:"columnCount"`
	ConstraintCount         int     `json:"constraintCount"`
	TightenedColumnPercent  float64 `json:"tightenedColumnPercent"`
	EnforcedUniquePercent   float64 `json:"enforcedUniquePercent"`
}

// Manifest is the full §6.5 document, field order fixed by declaration
// order since encoding/json marshals struct fields in that order.
type Manifest struct {
	Options         config.TighteningOptions `json:"options"`
	Metadata        Metadata                 `json:"metadata"`
	PolicySummary   PolicySummary            `json:"policySummary"`
	ModuleRollups   []model.ModuleRollup     `json:"moduleRollups"`
	Coverage        Coverage                 `json:"coverage"`
	PredicateCoverage map[string]int         `json:"predicateCoverage"`
	PreRemediation  []string                 `json:"preRemediation"`
	Tables          []TableEntry             `json:"tables"`
}

// BuildInput is everything Build needs to assemble a Manifest.
type BuildInput struct {
	Options       config.TighteningOptions
	Decisions     model.PolicyDecisionSet
	Tables        []model.TableDefinition
	Quoter        ident.Quoter
	NamingConfig  ident.NamingConfig
	FileRelPath   func(t model.TableDefinition) string
	RunID         string // pre-generated by the caller (cmd) so Build stays pure; see uuid note below
}

// Build assembles the Manifest for a completed run. RunID should be
// generated once by the CLI host via uuid.NewString() and threaded through
// BuildInput — Build itself never calls uuid.New() so it stays a pure
// function of its inputs, matching §4's "pure up to §4.J" scheduling model.
func Build(in BuildInput) Manifest {
	m := Manifest{
		Options:           in.Options,
		PredicateCoverage: map[string]int{},
	}

	m.Metadata = Metadata{
		RunID:                in.RunID,
		FingerprintAlgorithm: in.Options.Emission.FingerprintAlgorithm,
		FingerprintHash:      fingerprint(in.Tables),
	}

	m.PolicySummary = summarizePolicy(in.Decisions)
	m.ModuleRollups = in.Decisions.ModuleRollups
	m.PreRemediation = preRemediationList(in.Decisions)

	var totalColumns, totalConstraints int
	entries := make([]TableEntry, 0, len(in.Tables))
	for _, t := range in.Tables {
		totalColumns += len(t.Columns)
		totalConstraints += len(t.Indexes) + len(t.ForeignKeys)

		entry := TableEntry{
			Module:                      t.Module,
			Schema:                      t.Schema,
			Table:                       t.PhysicalName,
			TableFile:                   in.FileRelPath(t),
			IncludesExtendedProperties: ddl.HasExtendedProperties(t),
		}
		for _, idx := range t.Indexes {
			entry.Indexes = append(entry.Indexes, idx.Name)
		}
		for _, fk := range t.ForeignKeys {
			entry.ForeignKeys = append(entry.ForeignKeys, fk.Name)
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Module != entries[j].Module {
			return entries[i].Module < entries[j].Module
		}
		if entries[i].Schema != entries[j].Schema {
			return entries[i].Schema < entries[j].Schema
		}
		return entries[i].Table < entries[j].Table
	})
	m.Tables = entries

	m.Coverage = Coverage{
		TableCount:      len(in.Tables),
		ColumnCount:     totalColumns,
		ConstraintCount: totalConstraints,
	}
	if m.PolicySummary.ColumnCount > 0 {
		m.Coverage.TightenedColumnPercent = percent(m.PolicySummary.TightenedCount, m.PolicySummary.ColumnCount)
	}
	uniqueTotal := len(in.Decisions.Unique)
	if uniqueTotal > 0 {
		m.Coverage.EnforcedUniquePercent = percent(m.PolicySummary.UniqueIndexEnforcedCount, uniqueTotal)
	}

	return m
}

func percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

func summarizePolicy(d model.PolicyDecisionSet) PolicySummary {
	summary := PolicySummary{RationaleFrequency: map[string]int{}}
	summary.ColumnCount = len(d.Nullability)
	for _, n := range d.Nullability {
		if n.MakeNotNull {
			summary.TightenedCount++
		}
		for _, r := range n.Rationales {
			summary.RationaleFrequency[r]++
		}
	}
	for _, u := range d.Unique {
		if u.EnforceUnique {
			summary.UniqueIndexEnforcedCount++
		}
		for _, r := range u.Rationales {
			summary.RationaleFrequency[r]++
		}
	}
	for _, f := range d.ForeignKeys {
		if f.CreateConstraint {
			summary.ForeignKeyCreatedCount++
		}
		for _, r := range f.Rationales {
			summary.RationaleFrequency[r]++
		}
	}
	return summary
}

// preRemediationList collects the coordinates of every nullability/unique-
// index decision flagged RequiresRemediation, sorted for determinism, so the
// manifest can surface what must be cleaned up before the tightened schema
// can be safely applied (§4.J "any pre-remediation list").
func preRemediationList(d model.PolicyDecisionSet) []string {
	var items []string
	for coord, n := range d.Nullability {
		if n.RequiresRemediation {
			items = append(items, coord.Schema+"."+coord.Table+"."+coord.Column)
		}
	}
	for coord, u := range d.Unique {
		if u.RequiresRemediation {
			items = append(items, coord.Schema+"."+coord.Table+"."+coord.Index)
		}
	}
	sort.Strings(items)
	return items
}

// fingerprint hashes every table's physical identity and its columns'
// physical names and data types, a
// stable proxy for "did the projected shape change" without re-rendering
// DDL text (§4.J "fingerprint {algorithm, hash}").
func fingerprint(tables []model.TableDefinition) string {
	h := sha256.New()
	for _, t := range tables {
		h.Write([]byte(t.Schema))
		h.Write([]byte{0})
		h.Write([]byte(t.PhysicalName))
		h.Write([]byte{0})
		for _, c := range t.Columns {
			h.Write([]byte(c.PhysicalName))
			h.Write([]byte(c.DataType))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// NewRunID generates a fresh manifest run identifier, called once by the CLI
// host before invoking Build (§1.2 google/uuid wiring).
func NewRunID() string {
	return uuid.NewString()
}

// MarshalJSON serializes a Manifest with stable key order: encoding/json's
// struct-field order IS the declared field order above, so no custom
// marshaler logic is needed beyond using json.MarshalIndent directly.
func MarshalJSON(m Manifest) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
