package main

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	flags "github.com/jessevdk/go-flags"

	"github.com/danielbdyer/ddlexporter/internal/config"
	"github.com/danielbdyer/ddlexporter/internal/engine"
	"github.com/danielbdyer/ddlexporter/internal/manifest"
	"github.com/danielbdyer/ddlexporter/internal/model"
	"github.com/danielbdyer/ddlexporter/internal/resolve"
)

// cliOptions is the subset of parsed flags main needs beyond engine.Input.
type cliOptions struct {
	Force       bool
	Parallelism int
}

// inputPaths names every document a run may read, resolved from flags.
type inputPaths struct {
	ModelPath           string
	ProfilePath         string
	SupplementalPath    string
	OptionsPath         string
	NamingOverridesPath string
	SeedRowsPath        string
	OutputRoot          string
	RunID               string
}

// seedRowsDocument is the on-disk shape of the --seed-rows file: raw rows
// grouped by the ingestion pipeline's natural (module, logicalName) key,
// since seed data arrives independently of this tool's internal naming.
type seedRowsDocument struct {
	Tables []seedRowsTable `json:"tables"`
}

type seedRowsTable struct {
	Module      string                   `json:"module"`
	LogicalName string                   `json:"logicalName"`
	Rows        []model.StaticEntityRow `json:"rows"`
}

// parseOptions parses command-line flags, handling --help and --version the
// way the rest of the pack's sqldef family does, and returns both the
// engine-agnostic CLI knobs and the set of document paths to load.
func parseOptions(args []string) (cliOptions, inputPaths) {
	var opts struct {
		Model        string `long:"model" description:"Path to the model JSON document" value-name:"path" required:"true"`
		Profile      string `long:"profile" description:"Path to the profile snapshot JSON document" value-name:"path" required:"true"`
		Supplemental string `long:"supplemental" description:"Path to the supplemental entities JSON document" value-name:"path"`
		Options      string `long:"options" description:"Path to the tightening options document (YAML or JSON); defaults applied when omitted" value-name:"path"`
		NamingOverrides string `long:"naming-overrides" description:"Path to a naming override rule document, overlaid onto --options" value-name:"path"`
		SeedRows     string `long:"seed-rows" description:"Path to the seed rows JSON document" value-name:"path"`
		Out          string `long:"out" description:"Output directory for DDL files and manifest.json" value-name:"dir" required:"true"`
		Parallelism  int    `long:"parallelism" description:"Concurrent file writes; defaults to GOMAXPROCS" value-name:"n"`
		RunID        string `long:"run-id" description:"Override the generated run identifier" value-name:"id"`
		Force        bool   `long:"force" description:"Write without prompting even if the output directory is not empty"`
		Version      bool   `long:"version" description:"Show this version"`
	}

	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[options]"
	if _, err := parser.ParseArgs(args); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	parallelism := opts.Parallelism
	if parallelism < 1 {
		parallelism = runtime.GOMAXPROCS(0)
	}

	runID := opts.RunID
	if runID == "" {
		runID = manifest.NewRunID()
	}

	return cliOptions{Force: opts.Force, Parallelism: parallelism},
		inputPaths{
			ModelPath:           opts.Model,
			ProfilePath:         opts.Profile,
			SupplementalPath:    opts.Supplemental,
			OptionsPath:         opts.Options,
			NamingOverridesPath: opts.NamingOverrides,
			SeedRowsPath:        opts.SeedRows,
			OutputRoot:          opts.Out,
			RunID:               runID,
		}
}

// loadInput reads every document named by paths and assembles an
// engine.Input. Missing optional paths fall back to zero values (no
// supplemental entities, default options, no seed rows).
func loadInput(paths inputPaths) (engine.Input, error) {
	var in engine.Input
	in.ModelPath = paths.ModelPath
	in.ProfilePath = paths.ProfilePath
	in.OutputRoot = paths.OutputRoot

	if err := readJSON(paths.ModelPath, &in.Model); err != nil {
		return in, fmt.Errorf("reading model: %w", err)
	}
	if err := readJSON(paths.ProfilePath, &in.Profile); err != nil {
		return in, fmt.Errorf("reading profile: %w", err)
	}

	if paths.SupplementalPath != "" {
		var supplemental resolve.SupplementalSet
		if err := readJSON(paths.SupplementalPath, &supplemental); err != nil {
			return in, fmt.Errorf("reading supplemental entities: %w", err)
		}
		in.Supplemental = supplemental
	}

	opts, err := config.LoadOptions(paths.OptionsPath)
	if err != nil {
		return in, fmt.Errorf("reading options: %w", err)
	}
	if paths.NamingOverridesPath != "" {
		overrides, err := config.LoadNamingOverrides(paths.NamingOverridesPath)
		if err != nil {
			return in, fmt.Errorf("reading naming overrides: %w", err)
		}
		opts.Emission.NamingOverrides = overrides
	}
	in.Options = opts

	if paths.SeedRowsPath != "" {
		rows, err := readSeedRows(paths.SeedRowsPath)
		if err != nil {
			return in, fmt.Errorf("reading seed rows: %w", err)
		}
		in.SeedRows = rows
	}

	return in, nil
}

func readJSON(path string, dest any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func readSeedRows(path string) (map[string][]model.StaticEntityRow, error) {
	var doc seedRowsDocument
	if err := readJSON(path, &doc); err != nil {
		return nil, err
	}
	rows := make(map[string][]model.StaticEntityRow, len(doc.Tables))
	for _, t := range doc.Tables {
		rows[t.Module+"\x00"+t.LogicalName] = t.Rows
	}
	return rows, nil
}
