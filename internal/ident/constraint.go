package ident

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// MaxIdentifierLength is SQL Server's identifier length limit (§4.A, §8
// invariant 3).
const MaxIdentifierLength = 128

// NamingConfig holds the constraint-name prefixes (§4.A), defaulted per §9.
type NamingConfig struct {
	PrimaryKeyPrefix string
	UniqueIndexPrefix string
	IndexPrefix      string
	ForeignKeyPrefix string
}

// DefaultNamingConfig returns the spec's documented default prefixes.
func DefaultNamingConfig() NamingConfig {
	return NamingConfig{
		PrimaryKeyPrefix:  "PK_",
		UniqueIndexPrefix: "UX_",
		IndexPrefix:       "IX_",
		ForeignKeyPrefix:  "FK_",
	}
}

// truncatedSuffixLen is "13" in the spec's "128 − 13" rule: an underscore
// plus the 12 hex characters of the truncated SHA-256 digest.
const truncatedSuffixLen = 13
const hashHexChars = 12

// BuildConstraintName synthesizes a deterministic constraint name (§4.A):
//
//   - If evidenceName is non-empty and fits within MaxIdentifierLength, it
//     is preserved as-is (source metadata wins when it fits).
//   - Otherwise the name is rebuilt from logical components as
//     "<prefix><ownerLogical>_<targetLogical>_<joinedColumnsLogical>"
//     (targetLogical may be "" for non-FK constraints, which collapses the
//     template to "<prefix><ownerLogical>_<joinedColumnsLogical>").
//   - If the rebuilt name still exceeds the limit, it is truncated to
//     MaxIdentifierLength-13 characters (trimming a trailing "_"), then
//     suffixed with "_" plus the first 12 hex characters of the SHA-256 of
//     the full pre-truncation name.
//
// The result is always <= MaxIdentifierLength characters.
func BuildConstraintName(evidenceName, prefix, ownerLogical, targetLogical string, columnsLogical []string) string {
	if evidenceName != "" && len(evidenceName) <= MaxIdentifierLength {
		return evidenceName
	}

	rebuilt := rebuildName(prefix, ownerLogical, targetLogical, columnsLogical)
	if len(rebuilt) <= MaxIdentifierLength {
		return rebuilt
	}

	return truncateWithHash(rebuilt)
}

func rebuildName(prefix, ownerLogical, targetLogical string, columnsLogical []string) string {
	joined := strings.Join(columnsLogical, "_")
	var parts []string
	if ownerLogical != "" {
		parts = append(parts, ownerLogical)
	}
	if targetLogical != "" {
		parts = append(parts, targetLogical)
	}
	if joined != "" {
		parts = append(parts, joined)
	}
	return prefix + strings.Join(parts, "_")
}

func truncateWithHash(name string) string {
	sum := sha256.Sum256([]byte(name))
	suffix := "_" + hex.EncodeToString(sum[:])[:hashHexChars]

	keep := MaxIdentifierLength - truncatedSuffixLen
	if keep > len(name) {
		keep = len(name)
	}
	trimmed := strings.TrimRight(name[:keep], "_")

	result := trimmed + suffix
	if len(result) > MaxIdentifierLength {
		// Pathological: the suffix alone plus an empty trimmed name
		// overflows (cannot happen with hashHexChars=12, kept for the
		// emission.identifierTooLong guard at the writer boundary).
		result = result[:MaxIdentifierLength]
	}
	return result
}
