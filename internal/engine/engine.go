// Package engine implements the top-level Compile orchestration: wiring
// §4.D (policy) through §4.J (manifest) into a single pure call. Compile
// never touches disk — its Plan output is handed to internal/writeplan by
// the CLI host, the only component permitted to perform I/O (§5).
package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/danielbdyer/ddlexporter/internal/apperr"
	"github.com/danielbdyer/ddlexporter/internal/config"
	"github.com/danielbdyer/ddlexporter/internal/ddl"
	"github.com/danielbdyer/ddlexporter/internal/ident"
	"github.com/danielbdyer/ddlexporter/internal/manifest"
	"github.com/danielbdyer/ddlexporter/internal/model"
	"github.com/danielbdyer/ddlexporter/internal/policy"
	"github.com/danielbdyer/ddlexporter/internal/preflight"
	"github.com/danielbdyer/ddlexporter/internal/project"
	"github.com/danielbdyer/ddlexporter/internal/resolve"
	"github.com/danielbdyer/ddlexporter/internal/seed"
	"github.com/danielbdyer/ddlexporter/internal/types"
	"github.com/danielbdyer/ddlexporter/internal/writeplan"
)

// Input is everything a build needs: the model, the profile snapshot
// observed against it, the resolved options, and the raw seed rows keyed by
// "module\x00logicalName" (the upstream ingestion pipeline's natural key,
// since rows are loaded independently of this engine's internal naming).
type Input struct {
	Model        model.Model
	Profile      model.Profile
	Supplemental resolve.SupplementalSet
	Options      config.TighteningOptions
	SeedRows     map[string][]model.StaticEntityRow

	ModelPath   string
	ProfilePath string
	OutputRoot  string
	RunID       string

	NamingConfig ident.NamingConfig // zero value resolves to ident.DefaultNamingConfig()
	TypePolicy   types.Policy       // zero value resolves to types.DefaultPolicy()
}

// Output is Compile's full result: the write plan ready for
// writeplan.Execute, the manifest it embeds, and every diagnostic collected
// along the way (§7: "callers aggregate").
type Output struct {
	Plan        writeplan.Plan
	Manifest    manifest.Manifest
	Diagnostics []apperr.Diagnostic
	SeedScript  seed.Script
	Preflight   preflight.Report
}

// Compile runs §4.D through §4.J in sequence, aggregating diagnostics from
// every stage. It returns a non-nil error only when at least one collected
// diagnostic is Error severity (§7's "all failures... callers aggregate").
func Compile(in Input) (Output, error) {
	var diags []apperr.Diagnostic

	namingCfg := in.NamingConfig
	if namingCfg == (ident.NamingConfig{}) {
		namingCfg = ident.DefaultNamingConfig()
	}
	typePolicy := in.TypePolicy
	if typePolicy == (types.Policy{}) {
		typePolicy = types.DefaultPolicy()
	}

	diags = append(diags, in.Options.Validate()...)
	diags = append(diags, in.Model.Validate()...)
	if fatal := firstFatal(diags); fatal != nil {
		return Output{Diagnostics: diags}, apperr.New(fatal.Code, fatal.Coordinate, "%s", fatal.Message)
	}

	idx := resolve.Build(in.Model, in.Supplemental.Contexts())
	decisions := policy.Decide(in.Model, in.Profile, idx, in.Options)

	quoter := ident.NewQuoter(in.Options.Emission.QuoteStrategy)
	projector := project.Projector{
		Resolver:   ident.NewResolver(in.Options.Emission.NamingOverrides),
		Naming:     namingCfg,
		Quoter:     quoter,
		Index:      idx,
		Decisions:  decisions,
		TypePolicy: typePolicy,
		Options:    in.Options.Emission,
	}

	tables, projDiags := projector.ProjectAll(in.Model)
	diags = append(diags, projDiags...)

	seedDefs, seedProjDiags := projector.ProjectSeedTables(in.Model)
	diags = append(diags, seedProjDiags...)

	declaredToEffective := make(map[string]string, len(seedDefs))
	for _, t := range seedDefs {
		declaredToEffective[schemaNameKey(t.Schema, t.PhysicalName)] = effectiveName(t)
	}

	edges := buildRelationshipEdges(in.Model, decisions, declaredToEffective)
	outcome := seed.Sort(seedDefs, edges, in.Options.Seeding)

	orderedKeys := make([]string, len(outcome.Ordered))
	for i, t := range outcome.Ordered {
		orderedKeys[i] = schemaNameKey(t.Schema, effectiveName(t))
	}
	report := preflight.Run(orderedKeys, edges)
	diags = append(diags, report.Diagnostics()...)

	datasets := buildDatasets(seedDefs, in.SeedRows)
	script, seedGenDiags := seed.GenerateScript(outcome, datasets, quoter, in.Options.Seeding)
	diags = append(diags, seedGenDiags...)

	writer := ddl.NewWriter(quoter, in.Options.Emission)
	fingerprintHash := manifestFingerprint(tables)
	decisionsSummary := summarizeToggles(decisions.Toggles)

	files := make([]writeplan.File, 0, len(tables))
	relPaths := make(map[string]string, len(tables))
	for _, t := range tables {
		header := ddl.HeaderInfo{
			ModelPath:            in.ModelPath,
			ProfilePath:          in.ProfilePath,
			FingerprintAlgorithm: in.Options.Emission.FingerprintAlgorithm,
			FingerprintHash:      fingerprintHash,
			DecisionsSummary:     decisionsSummary,
		}
		text := writer.Render(t, header)
		relPath := writeplan.TablePath(t.Module, t.Schema, t.PhysicalName, in.Options.Emission.SanitizeModuleNames, !in.Options.Emission.PerTableFiles)
		relPaths[tableKey(t)] = relPath
		files = append(files, writeplan.File{RelPath: relPath, Bytes: []byte(text)})
	}

	m := manifest.Build(manifest.BuildInput{
		Options:      in.Options,
		Decisions:    decisions,
		Tables:       tables,
		Quoter:       quoter,
		NamingConfig: namingCfg,
		FileRelPath:  func(t model.TableDefinition) string { return relPaths[tableKey(t)] },
		RunID:        in.RunID,
	})

	manifestBytes, err := manifest.MarshalJSON(m)
	if err != nil {
		diags = append(diags, apperr.Diagnostic{
			Code:     apperr.IOWriteFailed,
			Severity: apperr.Error,
			Message:  fmt.Sprintf("serializing manifest: %v", err),
		})
	}

	out := Output{
		Plan: writeplan.Plan{
			Root:     in.OutputRoot,
			Tables:   files,
			Manifest: writeplan.File{RelPath: "manifest.json", Bytes: manifestBytes},
		},
		Manifest:    m,
		Diagnostics: diags,
		SeedScript:  script,
		Preflight:   report,
	}

	if fatal := firstFatal(diags); fatal != nil {
		return out, apperr.New(fatal.Code, fatal.Coordinate, "%s", fatal.Message)
	}
	return out, nil
}

func tableKey(t model.TableDefinition) string {
	return schemaNameKey(t.Schema, t.PhysicalName)
}

func schemaNameKey(schema, physical string) string {
	return strings.ToUpper(schema) + "\x00" + strings.ToUpper(physical)
}

func effectiveName(t model.StaticEntitySeedTableDefinition) string {
	if t.EffectiveName != "" {
		return t.EffectiveName
	}
	return t.PhysicalName
}

// buildRelationshipEdges derives §4.H's minimal edge shape from the model's
// relationships, restricted to static (seed-eligible) owning entities, and
// rewritten through declaredToEffective so edges key against the same
// effective-name-based node identity the seed sorter builds from
// ProjectSeedTables' output.
func buildRelationshipEdges(m model.Model, decisions model.PolicyDecisionSet, declaredToEffective map[string]string) []seed.RelationshipEdge {
	var edges []seed.RelationshipEdge

	for _, mod := range m.Modules {
		for _, e := range mod.Entities {
			if !e.IsStatic || e.IsExternal {
				continue
			}
			for _, rel := range e.Relationships {
				for _, actual := range rel.ActualConstraints {
					if len(actual.ColumnPairs) == 0 {
						continue
					}
					pairs := append([]model.ColumnPair(nil), actual.ColumnPairs...)
					sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].Ordinal < pairs[j].Ordinal })
					leadColumn := pairs[0].SourceColumn

					referencedTable := actual.ReferencedTable
					if referencedTable == "" {
						referencedTable = rel.TargetPhysicalName
					}
					referencedSchema := actual.ReferencedSchema

					owningEffective := resolveEffective(declaredToEffective, e.Schema, e.PhysicalName, e.PhysicalName)
					referencedEffective := resolveEffective(declaredToEffective, referencedSchema, referencedTable, referencedTable)

					coord := model.ColumnCoordinate{Schema: e.Schema, Table: e.PhysicalName, Column: leadColumn}
					nullability := decisions.NullabilityFor(coord)

					edges = append(edges, seed.RelationshipEdge{
						OwningSchema:     e.Schema,
						OwningTable:      owningEffective,
						OwningColumn:     leadColumn,
						ReferencedSchema: referencedSchema,
						ReferencedTable:  referencedEffective,
						ColumnIsNullable: !nullability.MakeNotNull,
					})
				}
			}
		}
	}
	return edges
}

func resolveEffective(declaredToEffective map[string]string, schema, declared, fallback string) string {
	if eff, ok := declaredToEffective[schemaNameKey(schema, declared)]; ok {
		return eff
	}
	return fallback
}

// buildDatasets matches each seed table definition to its raw rows by
// (module, logicalName) — the ingestion pipeline's natural key — and keys
// the resulting map the same way seed.GenerateScript does internally
// (schema + effective-or-declared name), so lookups inside that package hit.
func buildDatasets(seedDefs []model.StaticEntitySeedTableDefinition, rows map[string][]model.StaticEntityRow) map[string]seed.Dataset {
	datasets := make(map[string]seed.Dataset, len(seedDefs))
	for _, t := range seedDefs {
		ingestKey := t.Module + "\x00" + t.LogicalName
		datasets[schemaNameKey(t.Schema, effectiveName(t))] = seed.Dataset{
			Table: t,
			Rows:  rows[ingestKey],
		}
	}
	return datasets
}

// manifestFingerprint mirrors manifest.Build's internal fingerprint exactly
// (same inputs, same hash), so per-table DDL headers can embed the same
// hash the manifest records without exporting that package's helper.
func manifestFingerprint(tables []model.TableDefinition) string {
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

func summarizeToggles(t model.TighteningToggleSnapshot) string {
	return fmt.Sprintf(
		"policy=%s nullBudget=%.4f fkCreate=%t fkTrust=%t uniqueRemediation=%t",
		t.PolicyMode, t.NullBudget, t.ForeignKeysEnableCreation, t.ForeignKeysEnableTrust, t.UniquenessEnforceWithRemediation,
	)
}

func firstFatal(diags []apperr.Diagnostic) *apperr.Diagnostic {
	for i, d := range diags {
		if d.Severity == apperr.Error {
			return &diags[i]
		}
	}
	return nil
}
