package types

import (
	"encoding/binary"
	"io"
	"strings"
	"unicode/utf8"

	"heapstore/pkg/dberror"
	"heapstore/pkg/primitives"
)

// StringField represents a bounded-length string field. Values longer than
// StringMaxSize bytes are truncated on construction, never inside a UTF-8
// sequence.
type StringField struct {
	Value string
}

// NewStringField creates a StringField, truncating value to at most
// StringMaxSize bytes at a rune boundary.
func NewStringField(value string) *StringField {
	if len(value) > StringMaxSize {
		cut := StringMaxSize
		for cut > 0 && !utf8.RuneStart(value[cut]) {
			cut--
		}
		value = value[:cut]
	}
	return &StringField{Value: value}
}

// Compare performs a comparison operation between this StringField and another Field
// using the specified predicate. String comparisons are performed lexicographically;
// Like tests for substring containment.
func (s *StringField) Compare(op primitives.Predicate, other Field) (bool, error) {
	otherStringField, ok := other.(*StringField)
	if !ok {
		return false, dberror.New(dberror.KindSchema, "StringField", "Compare",
			"cannot compare %s with %s", s.Type(), typeName(other))
	}

	if op == primitives.Like {
		return strings.Contains(s.Value, otherStringField.Value), nil
	}
	return compareOrdered(s.Value, otherStringField.Value, op), nil
}

// Serialize writes the string field in its fixed-width binary form:
//  1. 4 bytes for the string length (big-endian uint32)
//  2. The string bytes
//  3. Zero padding up to StringMaxSize
func (s *StringField) Serialize(w io.Writer) error {
	length := min(len(s.Value), StringMaxSize)

	buf := make([]byte, StringType.Size())
	binary.BigEndian.PutUint32(buf, uint32(length)) // #nosec G115
	copy(buf[stringLengthSize:], s.Value[:length])

	_, err := w.Write(buf)
	return err
}

// Type returns the type identifier for this field.
func (s *StringField) Type() Type {
	return StringType
}

func (s *StringField) String() string {
	return s.Value
}

func (s *StringField) Equals(other Field) bool {
	otherField, ok := other.(*StringField)
	if !ok {
		return false
	}
	return s.Value == otherField.Value
}

func (s *StringField) Hash() (primitives.HashCode, error) {
	return hashBytes([]byte(s.Value)), nil
}

func parseStringField(r io.Reader) (*StringField, error) {
	b, err := readBytes(r, StringType.Size())
	if err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(b[:stringLengthSize])
	if length > StringMaxSize {
		return nil, dberror.New(dberror.KindCorruptPage, "StringField", "Parse",
			"string length %d exceeds maximum %d", length, StringMaxSize)
	}
	return &StringField{Value: string(b[stringLengthSize : stringLengthSize+length])}, nil
}
