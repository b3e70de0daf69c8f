package iterator

import "heapstore/pkg/tuple"

// FileScan adapts a file's DbFileIterator into a DbIterator with a schema,
// the leaf of an operator tree.
type FileScan struct {
	DbFileIterator
	td *tuple.TupleDescription
}

// NewFileScan wraps it, whose tuples have schema td.
func NewFileScan(it DbFileIterator, td *tuple.TupleDescription) *FileScan {
	return &FileScan{DbFileIterator: it, td: td}
}

func (s *FileScan) GetTupleDesc() *tuple.TupleDescription {
	return s.td
}
