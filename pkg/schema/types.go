// Package schema describes column layouts for blockstream: the
// required-columns schema of an insert target and descriptor files that
// declare column names, value types and nullability.
package schema

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

const nullableWrapper = "nullable("

// typeNames maps lower-cased type names to Arrow types. Both the Arrow
// spelling (utf8, float64) and the column-store spelling (String, Float64,
// DateTime) are accepted.
var typeNames = map[string]arrow.DataType{
	"bool":    arrow.FixedWidthTypes.Boolean,
	"boolean": arrow.FixedWidthTypes.Boolean,
	"int8":    arrow.PrimitiveTypes.Int8,
	"int16":   arrow.PrimitiveTypes.Int16,
	"int32":   arrow.PrimitiveTypes.Int32,
	"int64":   arrow.PrimitiveTypes.Int64,
	"uint8":   arrow.PrimitiveTypes.Uint8,
	"uint16":  arrow.PrimitiveTypes.Uint16,
	"uint32":  arrow.PrimitiveTypes.Uint32,
	"uint64":  arrow.PrimitiveTypes.Uint64,
	"float32": arrow.PrimitiveTypes.Float32,
	"float64": arrow.PrimitiveTypes.Float64,

	"string":       arrow.BinaryTypes.String,
	"utf8":         arrow.BinaryTypes.String,
	"large_string": arrow.BinaryTypes.LargeString,
	"large_utf8":   arrow.BinaryTypes.LargeString,
	"binary":       arrow.BinaryTypes.Binary,

	"date":     arrow.FixedWidthTypes.Date32,
	"date32":   arrow.FixedWidthTypes.Date32,
	"date64":   arrow.FixedWidthTypes.Date64,
	"datetime": arrow.FixedWidthTypes.Timestamp_s,

	"timestamp_s":  arrow.FixedWidthTypes.Timestamp_s,
	"timestamp_ms": arrow.FixedWidthTypes.Timestamp_ms,
	"timestamp_us": arrow.FixedWidthTypes.Timestamp_us,
	"timestamp_ns": arrow.FixedWidthTypes.Timestamp_ns,
}

// ParseType resolves a type name. The Nullable(T) form resolves T and
// reports nullable; wrappers do not nest.
func ParseType(name string) (arrow.DataType, bool, error) {
	s := strings.TrimSpace(name)
	lower := strings.ToLower(s)

	nullable := false
	if strings.HasPrefix(lower, nullableWrapper) {
		if !strings.HasSuffix(lower, ")") {
			return nil, false, fmt.Errorf("unterminated Nullable wrapper in type %q", name)
		}
		lower = strings.TrimSpace(lower[len(nullableWrapper) : len(lower)-1])
		if strings.HasPrefix(lower, nullableWrapper) {
			return nil, false, fmt.Errorf("nested Nullable wrapper in type %q", name)
		}
		nullable = true
	}

	dt, ok := typeNames[lower]
	if !ok {
		return nil, false, fmt.Errorf("unknown column type %q", name)
	}
	return dt, nullable, nil
}

// canonicalNames is the spelling TypeName prefers for each type.
var canonicalNames = []string{
	"bool", "int8", "int16", "int32", "int64", "uint8", "uint16", "uint32", "uint64",
	"float32", "float64", "string", "large_string", "binary", "date32", "date64",
	"timestamp_s", "timestamp_ms", "timestamp_us", "timestamp_ns",
}

// TypeName returns a name ParseType resolves back to dt, falling back to
// the Arrow spelling for types without one.
func TypeName(dt arrow.DataType) string {
	for _, name := range canonicalNames {
		if arrow.TypeEqual(typeNames[name], dt) {
			return name
		}
	}
	return dt.String()
}

// FormatType renders a field type in the Nullable(T) notation.
func FormatType(f arrow.Field) string {
	if f.Nullable {
		return "Nullable(" + TypeName(f.Type) + ")"
	}
	return TypeName(f.Type)
}
