package types

import (
	"heapstore/pkg/dberror"
	"heapstore/pkg/primitives"
)

// Type identifies the fixed-width encoding of a field.
type Type int

const (
	IntType Type = iota
	StringType
)

const (
	// StringMaxSize is the maximum number of payload bytes in a string field.
	StringMaxSize = 128

	intSize          = 4
	stringLengthSize = 4
)

// Size returns the number of bytes a field of this type occupies on a page.
func (t Type) Size() primitives.Offset {
	switch t {
	case IntType:
		return intSize
	case StringType:
		return stringLengthSize + StringMaxSize
	default:
		return 0
	}
}

// String returns a string representation of the type
func (t Type) String() string {
	switch t {
	case IntType:
		return "INT_TYPE"
	case StringType:
		return "STRING_TYPE"
	default:
		return "UNKNOWN_TYPE"
	}
}

// ParseType maps a type name such as "int" or "string" to its Type.
func ParseType(name string) (Type, error) {
	switch name {
	case "int", "INT", "INT_TYPE":
		return IntType, nil
	case "string", "STRING", "STRING_TYPE":
		return StringType, nil
	default:
		return 0, dberror.New(dberror.KindSchema, "Type", "ParseType", "unknown field type %q", name)
	}
}
