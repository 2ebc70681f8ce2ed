// Package writeplan implements §4.K: the only component in the pipeline
// that performs blocking I/O. Everything upstream is pure; this package
// turns rendered DDL text and a manifest into files on disk, idempotently
// and with bounded parallelism.
package writeplan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/danielbdyer/ddlexporter/internal/apperr"
)

// File is one planned artifact: a relative path under root and the exact
// bytes it must contain.
type File struct {
	RelPath string
	Bytes   []byte
}

// Plan is the full §4.K write plan: the per-table files plus the manifest,
// which is always written last.
type Plan struct {
	Root     string
	Tables   []File
	Manifest File
}

var moduleSanitizer = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// SanitizeModule maps a module name to a filesystem-safe path segment
// (§6.1's "SanitizeModuleNames" emission option).
func SanitizeModule(module string) string {
	sanitized := moduleSanitizer.ReplaceAllString(module, "_")
	sanitized = strings.Trim(sanitized, "_")
	if sanitized == "" {
		return "_"
	}
	return sanitized
}

// TablePath computes §4.K's per-table output path: nested under
// Modules/<module>/Tables when flat is false, or a single flat directory
// of "<schema>.<effective>.sql" files when true.
func TablePath(module, schema, effectiveName string, sanitize, flat bool) string {
	moduleSegment := module
	if sanitize {
		moduleSegment = SanitizeModule(module)
	}
	fileName := fmt.Sprintf("%s.%s.sql", schema, effectiveName)
	if flat {
		return fileName
	}
	return filepath.Join("Modules", moduleSegment, "Tables", fileName)
}

// Execute materializes a Plan: up to parallelism files are written
// concurrently, each as an atomic temp-file-plus-rename replace, skipped
// entirely when the existing file's bytes already match (§4.K idempotence).
// The manifest is written last, after every table file has been handled.
func Execute(ctx context.Context, plan Plan, parallelism int) ([]apperr.Diagnostic, error) {
	if parallelism < 1 {
		parallelism = 1
	}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(parallelism)

	diagsCh := make(chan apperr.Diagnostic, len(plan.Tables))

	for _, f := range plan.Tables {
		f := f
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			skipped, err := writeAtomic(filepath.Join(plan.Root, f.RelPath), f.Bytes)
			if err != nil {
				return apperr.Wrap(apperr.IOWriteFailed, apperr.Coordinate{}, err, "writing %s", f.RelPath)
			}
			if skipped {
				diagsCh <- apperr.Diagnostic{
					Code:     apperr.IOWriteFailed,
					Severity: apperr.Info,
					Message:  fmt.Sprintf("%s unchanged, write skipped", f.RelPath),
				}
			}
			return nil
		})
	}

	err := group.Wait()
	close(diagsCh)

	var diags []apperr.Diagnostic
	for d := range diagsCh {
		diags = append(diags, d)
	}
	sort.Slice(diags, func(i, j int) bool { return diags[i].Message < diags[j].Message })

	if err != nil {
		return diags, err
	}

	if ctx.Err() != nil {
		return diags, ctx.Err()
	}

	manifestPath := filepath.Join(plan.Root, plan.Manifest.RelPath)
	if _, err := writeAtomic(manifestPath, plan.Manifest.Bytes); err != nil {
		return diags, apperr.Wrap(apperr.IOWriteFailed, apperr.Coordinate{}, err, "writing manifest")
	}

	return diags, nil
}

// writeAtomic writes data to path via a temp file in the same directory
// followed by rename, skipping the write (and reporting skipped=true) when
// the existing file already holds identical bytes.
func writeAtomic(path string, data []byte) (skipped bool, err error) {
	if existing, err := os.ReadFile(path); err == nil {
		if string(existing) == string(data) {
			return true, nil
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, err
	}

	tmp, err := os.CreateTemp(dir, ".writeplan-*.tmp")
	if err != nil {
		return false, err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return false, err
	}
	return false, nil
}
