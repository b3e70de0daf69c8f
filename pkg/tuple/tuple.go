package tuple

import (
	"strings"

	"heapstore/pkg/dberror"
	"heapstore/pkg/types"
)

// Tuple represents a row of data
type Tuple struct {
	TupleDesc *TupleDescription // Schema of this tuple
	fields    []types.Field     // The actual field values
	RecordID  *RecordID         // Where this tuple is stored (nil until placed on a page)
}

// NewTuple creates a new tuple with the given schema
func NewTuple(td *TupleDescription) *Tuple {
	return &Tuple{
		TupleDesc: td,
		fields:    make([]types.Field, td.NumFields()),
	}
}

// SetField replaces the ith field. Only the index is checked: keeping field
// types consistent with the schema is the caller's job, and HeapPage
// rejects a mismatched tuple when it is inserted.
func (t *Tuple) SetField(i int, field types.Field) error {
	if i < 0 || i >= len(t.fields) {
		return dberror.New(dberror.KindSchema, "Tuple", "SetField",
			"field index %d out of bounds [0, %d)", i, len(t.fields))
	}
	t.fields[i] = field
	return nil
}

// GetField returns the value of the ith field
func (t *Tuple) GetField(i int) (types.Field, error) {
	if i < 0 || i >= len(t.fields) {
		return nil, dberror.New(dberror.KindSchema, "Tuple", "GetField",
			"field index %d out of bounds [0, %d)", i, len(t.fields))
	}
	return t.fields[i], nil
}

// Fields returns the tuple's field values in schema order.
func (t *Tuple) Fields() []types.Field {
	return t.fields
}

// CheckSchema verifies every field is set and has the schema's type.
func (t *Tuple) CheckSchema(td *TupleDescription) error {
	if !t.TupleDesc.Equals(td) {
		return dberror.New(dberror.KindSchema, "Tuple", "CheckSchema",
			"tuple schema %s does not match %s", t.TupleDesc, td)
	}
	for i, f := range t.fields {
		if f == nil {
			return dberror.New(dberror.KindSchema, "Tuple", "CheckSchema", "field %d is not set", i)
		}
		if f.Type() != td.Types[i] {
			return dberror.New(dberror.KindSchema, "Tuple", "CheckSchema",
				"field %d: expected %v, got %v", i, td.Types[i], f.Type())
		}
	}
	return nil
}

// Equals compares field values; schema names and RecordID are ignored.
func (t *Tuple) Equals(other *Tuple) bool {
	if other == nil || len(t.fields) != len(other.fields) {
		return false
	}
	for i, f := range t.fields {
		o := other.fields[i]
		if f == nil || o == nil {
			if f != o {
				return false
			}
			continue
		}
		if !f.Equals(o) {
			return false
		}
	}
	return true
}

// String returns field1\tfield2\t...\tfieldN\n
func (t *Tuple) String() string {
	parts := make([]string, 0, len(t.fields))
	for _, field := range t.fields {
		if field != nil {
			parts = append(parts, field.String())
		} else {
			parts = append(parts, "null")
		}
	}
	return strings.Join(parts, "\t") + "\n"
}

// Clone returns a copy of this tuple sharing its (immutable) field values.
// The copy has no RecordID.
func (t *Tuple) Clone() *Tuple {
	newTup := NewTuple(t.TupleDesc)
	copy(newTup.fields, t.fields)
	return newTup
}

// MergeTuples concatenates two tuples under the merged schema, as a join
// would.
func MergeTuples(t1, t2 *Tuple) (*Tuple, error) {
	if t1 == nil || t2 == nil {
		return nil, dberror.New(dberror.KindSchema, "Tuple", "MergeTuples", "cannot merge nil tuples")
	}

	merged := NewTuple(Merge(t1.TupleDesc, t2.TupleDesc))
	copy(merged.fields, t1.fields)
	copy(merged.fields[len(t1.fields):], t2.fields)
	return merged, nil
}
