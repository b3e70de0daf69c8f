package types

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/OneOfOne/xxhash"

	"heapstore/pkg/primitives"
)

// compareOrdered evaluates "a op b" for ordered values.
func compareOrdered[T cmp.Ordered](a, b T, op primitives.Predicate) bool {
	return op.Holds(cmp.Compare(a, b))
}

// hashBytes is the hash of a field's encoded value.
func hashBytes(data []byte) primitives.HashCode {
	return primitives.HashCode(xxhash.Checksum64(data))
}

// readBytes reads exactly size bytes from the reader.
func readBytes(r io.Reader, size primitives.Offset) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// toBytes32 converts a uint32 value to a 4-byte big-endian slice.
func toBytes32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func typeName(f Field) string {
	if f == nil {
		return "<nil>"
	}
	return fmt.Sprint(f.Type())
}
