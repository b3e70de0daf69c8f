package types

import (
	"io"

	"heapstore/pkg/primitives"
)

// Field is one typed value of a record. Implementations encode to exactly
// Type().Size() bytes.
type Field interface {
	Serialize(w io.Writer) error

	Compare(op primitives.Predicate, other Field) (bool, error)

	Type() Type

	String() string

	Equals(other Field) bool

	Hash() (primitives.HashCode, error)
}
