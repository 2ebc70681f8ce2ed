// Command ddlexporter reads a model, a profile snapshot, and a tightening
// options document, compiles them into per-table DDL files plus a
// manifest.json, and writes the result to an output directory (§1, §4).
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/danielbdyer/ddlexporter/internal/apperr"
	"github.com/danielbdyer/ddlexporter/internal/engine"
	"github.com/danielbdyer/ddlexporter/internal/obslog"
	"github.com/danielbdyer/ddlexporter/internal/writeplan"
)

var version = "dev"

func main() {
	obslog.Init()

	opts, paths := parseOptions(os.Args[1:])

	input, err := loadInput(paths)
	if err != nil {
		log.Fatalf("loading input: %v", err)
	}
	input.RunID = paths.RunID

	out, err := engine.Compile(input)
	logDiagnostics(out.Diagnostics)
	if err != nil {
		if appErr, ok := err.(*apperr.Error); ok {
			log.Fatalf("compile failed: %s: %s", appErr.Code, appErr.Message)
		}
		log.Fatalf("compile failed: %v", err)
	}

	if !opts.Force && outputHasFiles(input.OutputRoot) {
		if !confirmOverwrite(input.OutputRoot) {
			fmt.Println("aborted: output directory is not empty")
			os.Exit(1)
		}
	}

	writeDiags, err := writeplan.Execute(context.Background(), out.Plan, opts.Parallelism)
	logDiagnostics(writeDiags)
	if err != nil {
		log.Fatalf("writing output: %v", err)
	}

	slog.Info("ddlexporter run complete",
		"runId", out.Manifest.Metadata.RunID,
		"tables", out.Manifest.Coverage.TableCount,
		"findings", len(out.Preflight.Findings),
	)
}

func logDiagnostics(diags []apperr.Diagnostic) {
	for _, d := range diags {
		attrs := []any{"code", string(d.Code)}
		if d.Coordinate.Schema != "" {
			attrs = append(attrs, "schema", d.Coordinate.Schema)
		}
		if d.Coordinate.Table != "" {
			attrs = append(attrs, "table", d.Coordinate.Table)
		}
		if d.Coordinate.Column != "" {
			attrs = append(attrs, "column", d.Coordinate.Column)
		}
		switch d.Severity {
		case apperr.Error:
			slog.Error(d.Message, attrs...)
		case apperr.Warning:
			slog.Warn(d.Message, attrs...)
		default:
			slog.Info(d.Message, attrs...)
		}
	}
}

func outputHasFiles(root string) bool {
	entries, err := os.ReadDir(root)
	if err != nil {
		return false
	}
	return len(entries) > 0
}

// confirmOverwrite prompts for confirmation when stdin is an interactive
// terminal; in a non-interactive run (CI, piped input) there is no one to
// answer the prompt, so it refuses rather than blocking forever.
func confirmOverwrite(root string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}
	fmt.Printf("Output directory %q is not empty. Overwrite matching files? [y/N]: ", root)
	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return false
	}
	return response == "y" || response == "Y" || response == "yes"
}
