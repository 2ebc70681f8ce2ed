// Package types implements §4.B: mapping a (logical attribute, on-disk
// metadata, external type hint) triple to a SQL Server data type string
// with length/precision/scale applied.
package types

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/danielbdyer/ddlexporter/internal/model"
)

// Policy carries the length-policy knobs the resolver needs for rule 4's
// "default length policy-driven" text mapping.
type Policy struct {
	DefaultTextLength int // used when an attribute has no declared length
}

// DefaultPolicy mirrors common OutSystems/SSDT conventions: unset text
// columns default to 100 characters wide, a conservative text column width.
func DefaultPolicy() Policy {
	return Policy{DefaultTextLength: 100}
}

var externalHintPattern = regexp.MustCompile(`(?i)^\s*([A-Z]+)\s*(?:\(\s*(MAX|-?\d+)\s*(?:,\s*(-?\d+)\s*)?\))?\s*$`)

// Resolve implements §4.B's priority-ordered rules. refTargetIsIdentifier
// signals that the attribute is (or references) an identifier column,
// forcing BIGINT under rule 1 regardless of every other input.
func Resolve(attr model.Attribute, refTargetIsIdentifier bool, policy Policy) string {
	// Rule 1: identifiers and references to identifiers are always BIGINT.
	if attr.IsIdentifier || refTargetIsIdentifier {
		return "BIGINT"
	}

	// Rule 2: on-disk SQL type, when present, is authoritative.
	if attr.OnDisk != nil && attr.OnDisk.SQLType != "" {
		return fromOnDiskType(*attr.OnDisk)
	}

	// Rule 3: an external hint, when present, is parsed and honoured.
	if attr.ExternalHint != "" {
		if resolved, ok := fromExternalHint(attr.ExternalHint); ok {
			return resolved
		}
	}

	// Rule 4: fall back to the logical-type token mapping.
	return fromLogicalType(attr, policy)
}

// fromOnDiskType honours an observed physical type, normalizing the two
// cases the spec calls out explicitly: nvarchar(-1) => NVARCHAR(MAX), and
// decimal(p,s) reassembled from the separately-tracked precision/scale.
func fromOnDiskType(disk model.OnDiskMetadata) string {
	base := strings.ToUpper(strings.TrimSpace(disk.SQLType))

	// Strip any length/precision already embedded in the raw string; we
	// rebuild it from the structured fields below so "-1" => MAX uniformly.
	if idx := strings.IndexByte(base, '('); idx >= 0 {
		base = base[:idx]
	}

	switch base {
	case "DECIMAL", "NUMERIC":
		if disk.Precision != nil && disk.Scale != nil {
			return fmt.Sprintf("%s(%d,%d)", base, *disk.Precision, *disk.Scale)
		}
	}

	if isVariableLengthType(base) {
		if disk.MaxLength != nil {
			if *disk.MaxLength == -1 {
				return fmt.Sprintf("%s(MAX)", base)
			}
			return fmt.Sprintf("%s(%d)", base, effectiveCharLength(base, *disk.MaxLength))
		}
	}

	return base
}

// effectiveCharLength undoes SQL Server's storage convention of doubling
// NVARCHAR/NCHAR max_length in sys.columns (bytes, not characters).
func effectiveCharLength(base string, stored int) int {
	if strings.HasPrefix(base, "N") && stored > 0 {
		return stored / 2
	}
	return stored
}

func isVariableLengthType(base string) bool {
	switch base {
	case "VARCHAR", "NVARCHAR", "CHAR", "NCHAR", "VARBINARY", "BINARY":
		return true
	}
	return false
}

// fromExternalHint parses hints like "NVARCHAR(128)" or "NVARCHAR(MAX)".
func fromExternalHint(hint string) (string, bool) {
	m := externalHintPattern.FindStringSubmatch(hint)
	if m == nil {
		return "", false
	}
	base := strings.ToUpper(m[1])
	length := m[2]
	scale := m[3]

	switch {
	case length == "" && scale == "":
		return base, true
	case strings.EqualFold(length, "MAX"):
		return fmt.Sprintf("%s(MAX)", base), true
	case scale != "":
		return fmt.Sprintf("%s(%s,%s)", base, length, scale), true
	default:
		n, err := strconv.Atoi(length)
		if err != nil {
			return "", false
		}
		if n == -1 {
			return fmt.Sprintf("%s(MAX)", base), true
		}
		return fmt.Sprintf("%s(%s)", base, length), true
	}
}

// fromLogicalType implements §4.B rule 4's logical-token table.
func fromLogicalType(attr model.Attribute, policy Policy) string {
	switch strings.ToLower(attr.DataType) {
	case "integer", "int":
		return "INT"
	case "long", "bigint":
		return "BIGINT"
	case "boolean", "bool":
		return "BIT"
	case "date":
		return "DATE"
	case "datetime", "date+time":
		return "DATETIME"
	case "text", "string":
		return textLength(attr, policy)
	case "email":
		return "VARCHAR(250)"
	case "phone":
		return "VARCHAR(20)"
	case "currency", "money":
		return "DECIMAL(37,8)"
	case "binary", "blob":
		return "VARBINARY(MAX)"
	default:
		return "NVARCHAR(" + strconv.Itoa(policy.DefaultTextLength) + ")"
	}
}

func textLength(attr model.Attribute, policy Policy) string {
	length := policy.DefaultTextLength
	if attr.Length != nil {
		length = *attr.Length
	}
	if length > 2000 || length == -1 {
		return "NVARCHAR(MAX)"
	}
	return fmt.Sprintf("NVARCHAR(%d)", length)
}

// NormalizeDefault implements §4.B rule 5: the literal words true/false
// become (1)/(0) for BIT columns; other defaults are wrapped in a single
// pair of parentheses if not already parenthesized.
func NormalizeDefault(raw string, sqlType string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	if strings.EqualFold(baseType(sqlType), "BIT") {
		switch strings.ToLower(trimmed) {
		case "true":
			return "(1)"
		case "false":
			return "(0)"
		}
	}

	if strings.HasPrefix(trimmed, "(") && strings.HasSuffix(trimmed, ")") {
		return trimmed
	}
	return "(" + trimmed + ")"
}

func baseType(sqlType string) string {
	if idx := strings.IndexByte(sqlType, '('); idx >= 0 {
		return sqlType[:idx]
	}
	return sqlType
}
