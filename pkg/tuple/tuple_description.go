package tuple

import (
	"fmt"
	"strings"

	"heapstore/pkg/dberror"
	"heapstore/pkg/primitives"
	"heapstore/pkg/types"
)

// TupleDescription describes the schema of a tuple: the ordered types and
// names of its fields. It is immutable once created.
type TupleDescription struct {
	// Types contains the data type of each field in order
	Types []types.Type
	// FieldNames contains the name of each field (optional, may be nil)
	FieldNames []string
}

// NewTupleDesc creates a new TupleDescription given field types and optional
// field names. If fieldNames is nil, fields have no names.
//
// Parameters:
//   - fieldTypes: slice of field types (must contain at least one element)
//   - fieldNames: optional slice of field names (must match fieldTypes length if provided)
//
// Returns:
//   - *TupleDescription: newly created tuple descriptor
//   - error: ErrSchema if fieldTypes is empty or the name count does not match
func NewTupleDesc(fieldTypes []types.Type, fieldNames []string) (*TupleDescription, error) {
	if len(fieldTypes) < 1 {
		return nil, dberror.New(dberror.KindSchema, "TupleDescription", "NewTupleDesc",
			"must provide at least one field type")
	}

	typesCopy := make([]types.Type, len(fieldTypes))
	copy(typesCopy, fieldTypes)

	var namesCopy []string
	if fieldNames != nil {
		if len(fieldNames) != len(fieldTypes) {
			return nil, dberror.New(dberror.KindSchema, "TupleDescription", "NewTupleDesc",
				"field names length (%d) must match field types length (%d)", len(fieldNames), len(fieldTypes))
		}
		namesCopy = make([]string, len(fieldNames))
		copy(namesCopy, fieldNames)
	}

	return &TupleDescription{
		Types:      typesCopy,
		FieldNames: namesCopy,
	}, nil
}

// NumFields returns the number of fields in this tuple descriptor.
func (td *TupleDescription) NumFields() int {
	return len(td.Types)
}

// GetFieldName returns the name of the ith field, or "" if the descriptor
// carries no names.
func (td *TupleDescription) GetFieldName(i int) (string, error) {
	if err := td.checkIndex(i, "GetFieldName"); err != nil {
		return "", err
	}

	if td.FieldNames == nil {
		return "", nil
	}

	return td.FieldNames[i], nil
}

// TypeAtIndex returns the type of the ith field.
func (td *TupleDescription) TypeAtIndex(i int) (types.Type, error) {
	if err := td.checkIndex(i, "TypeAtIndex"); err != nil {
		return 0, err
	}
	return td.Types[i], nil
}

// GetSize returns the fixed byte width of records with this schema, the sum
// of all field widths.
func (td *TupleDescription) GetSize() primitives.Offset {
	var size primitives.Offset
	for _, fieldType := range td.Types {
		size += fieldType.Size()
	}
	return size
}

// Equals reports whether two descriptors have the same field types in the
// same order. Field names are deliberately not compared: two schemas that
// differ only in names are equal.
func (td *TupleDescription) Equals(other *TupleDescription) bool {
	if other == nil {
		return false
	}

	if len(td.Types) != len(other.Types) {
		return false
	}

	for i, fieldType := range td.Types {
		if fieldType != other.Types[i] {
			return false
		}
	}
	return true
}

// String returns "Type1(fieldName1),Type2(fieldName2),...". Unnamed fields
// print as "null".
func (td *TupleDescription) String() string {
	parts := make([]string, 0, len(td.Types))

	for i, fieldType := range td.Types {
		fieldName := "null"
		if td.FieldNames != nil && i < len(td.FieldNames) {
			fieldName = td.FieldNames[i]
		}
		parts = append(parts, fmt.Sprintf("%s(%s)", fieldType.String(), fieldName))
	}

	return strings.Join(parts, ",")
}

// FindFieldIndex locates a field by name (case-sensitive).
func (td *TupleDescription) FindFieldIndex(fieldName string) (int, error) {
	for i, name := range td.FieldNames {
		if name == fieldName {
			return i, nil
		}
	}
	return -1, dberror.New(dberror.KindSchema, "TupleDescription", "FindFieldIndex",
		"column %s not found", fieldName)
}

// Merge returns a descriptor holding all fields of td1 followed by all
// fields of td2. If either descriptor is nil the other is returned.
// Names are kept when either side has them; the unnamed side contributes "".
func Merge(td1, td2 *TupleDescription) *TupleDescription {
	if td1 == nil {
		return td2
	}
	if td2 == nil {
		return td1
	}

	newTypes := make([]types.Type, 0, len(td1.Types)+len(td2.Types))
	newTypes = append(newTypes, td1.Types...)
	newTypes = append(newTypes, td2.Types...)

	var newFieldNames []string
	if td1.FieldNames != nil || td2.FieldNames != nil {
		newFieldNames = make([]string, 0, len(newTypes))
		newFieldNames = append(newFieldNames, namesOrBlank(td1)...)
		newFieldNames = append(newFieldNames, namesOrBlank(td2)...)
	}

	return &TupleDescription{Types: newTypes, FieldNames: newFieldNames}
}

func namesOrBlank(td *TupleDescription) []string {
	if td.FieldNames != nil {
		return td.FieldNames
	}
	return make([]string, len(td.Types))
}

func (td *TupleDescription) checkIndex(i int, op string) error {
	if i < 0 || i >= len(td.Types) {
		return dberror.New(dberror.KindSchema, "TupleDescription", op,
			"field index %d out of bounds [0, %d)", i, len(td.Types))
	}
	return nil
}
