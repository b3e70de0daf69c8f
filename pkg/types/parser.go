package types

import (
	"io"

	"heapstore/pkg/dberror"
)

// ParseField reads one field of the given type from r.
// A short read is reported as a corrupt page, since fields are only ever
// decoded from page bytes.
func ParseField(r io.Reader, fieldType Type) (Field, error) {
	var (
		field Field
		err   error
	)

	switch fieldType {
	case IntType:
		field, err = parseIntField(r)
	case StringType:
		field, err = parseStringField(r)
	default:
		return nil, dberror.New(dberror.KindSchema, "types", "ParseField",
			"unsupported field type %v", fieldType)
	}

	if err != nil {
		return nil, dberror.Wrap(err, dberror.KindCorruptPage, "types", "ParseField",
			"failed to decode %s", fieldType)
	}
	return field, nil
}
