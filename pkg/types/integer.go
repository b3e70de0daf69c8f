package types

import (
	"encoding/binary"
	"io"
	"strconv"

	"heapstore/pkg/dberror"
	"heapstore/pkg/primitives"
)

// IntField represents a 32-bit signed integer field
type IntField struct {
	Value int32
}

func NewIntField(value int32) *IntField {
	return &IntField{Value: value}
}

func (f *IntField) Serialize(w io.Writer) error {
	_, err := w.Write(toBytes32(uint32(f.Value))) // #nosec G115
	return err
}

func (f *IntField) Compare(op primitives.Predicate, other Field) (bool, error) {
	otherField, ok := other.(*IntField)
	if !ok {
		return false, dberror.New(dberror.KindSchema, "IntField", "Compare",
			"cannot compare %s with %s", f.Type(), typeName(other))
	}
	return compareOrdered(f.Value, otherField.Value, op), nil
}

func (f *IntField) Type() Type {
	return IntType
}

func (f *IntField) String() string {
	return strconv.FormatInt(int64(f.Value), 10)
}

func (f *IntField) Equals(other Field) bool {
	otherField, ok := other.(*IntField)
	if !ok {
		return false
	}
	return f.Value == otherField.Value
}

func (f *IntField) Hash() (primitives.HashCode, error) {
	return hashBytes(toBytes32(uint32(f.Value))), nil // #nosec G115
}

func parseIntField(r io.Reader) (*IntField, error) {
	b, err := readBytes(r, intSize)
	if err != nil {
		return nil, err
	}
	return NewIntField(int32(binary.BigEndian.Uint32(b))), nil // #nosec G115
}
