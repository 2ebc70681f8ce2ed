// Package literal implements §4.C: exact SQL literal formatting.
package literal

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Null is the NULL literal.
const Null = "NULL"

// String formats a Go string as a Unicode-prefixed SQL string literal,
// doubling embedded single quotes (§4.C). Every string literal this
// package emits is N'...'-prefixed; there is no non-Unicode path.
func String(s string) string {
	return "N'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Bool formats a boolean as SQL Server's bit literal.
func Bool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Bytes formats a byte slice as an uppercase-hex 0x-prefixed binary
// literal. Output is never truncated regardless of length (§4.C).
func Bytes(b []byte) string {
	return "0x" + strings.ToUpper(fmt.Sprintf("%x", b))
}

// Int formats an integer using invariant (locale-independent) formatting.
func Int(i int64) string {
	return strconv.FormatInt(i, 10)
}

// Decimal formats a decimal value given as its exact textual
// representation, trimming surrounding whitespace only — the caller is
// responsible for precision-preserving decimal text, since float64 would
// lose precision for DECIMAL(37,8) money values.
func Decimal(raw string) string {
	return strings.TrimSpace(raw)
}

// Date formats a time.Time as an SQL Server date literal using invariant
// ISO-8601 formatting, quoted as a string per T-SQL convention.
func Date(t time.Time) string {
	return "N'" + t.Format("2006-01-02") + "'"
}

// DateTime formats a time.Time as an SQL Server datetime literal.
func DateTime(t time.Time) string {
	return "N'" + t.Format("2006-01-02 15:04:05.000") + "'"
}

// Value is a tagged union of the raw input values a seed row cell can hold,
// used by Format to dispatch without reflection.
type Value struct {
	IsNull bool
	Str    *string
	Bool   *bool
	Bytes  []byte
	Int    *int64
	Decimal *string
	Date    *time.Time
	DateTime *time.Time
}

// Format dispatches v to the matching literal function. An entirely zero
// Value (no field set) formats as NULL.
func Format(v Value) string {
	switch {
	case v.IsNull:
		return Null
	case v.Str != nil:
		return String(*v.Str)
	case v.Bool != nil:
		return Bool(*v.Bool)
	case v.Bytes != nil:
		return Bytes(v.Bytes)
	case v.Int != nil:
		return Int(*v.Int)
	case v.Decimal != nil:
		return Decimal(*v.Decimal)
	case v.Date != nil:
		return Date(*v.Date)
	case v.DateTime != nil:
		return DateTime(*v.DateTime)
	default:
		return Null
	}
}

// FromAny builds a Value from a loosely-typed seed cell (as decoded from
// JSON), for StaticEntityRow values. Strings that parse as RFC3339
// timestamps are not auto-detected here — the seed column's declared data
// type decides date-vs-string, handled by the seed package — this function
// only covers the JSON-native scalar kinds.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Value{IsNull: true}
	case string:
		return Value{Str: &t}
	case bool:
		return Value{Bool: &t}
	case float64:
		i := int64(t)
		if float64(i) == t {
			return Value{Int: &i}
		}
		s := strconv.FormatFloat(t, 'f', -1, 64)
		return Value{Decimal: &s}
	case int64:
		return Value{Int: &t}
	case []byte:
		return Value{Bytes: t}
	default:
		s := fmt.Sprintf("%v", t)
		return Value{Str: &s}
	}
}
