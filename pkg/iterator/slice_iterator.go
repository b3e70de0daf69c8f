package iterator

import (
	"heapstore/pkg/dberror"
	"heapstore/pkg/tuple"
)

// SliceIterator iterates a materialized slice. It needs no lifecycle: it is
// ready on construction and cheap to recreate. Not safe for concurrent use.
type SliceIterator[T any] struct {
	data         []T
	currentIndex int
}

// NewSliceIterator creates an iterator positioned at the start of data.
func NewSliceIterator[T any](data []T) *SliceIterator[T] {
	return &SliceIterator[T]{data: data}
}

func (it *SliceIterator[T]) HasNext() bool {
	return it.currentIndex < len(it.data)
}

// Next returns the next element, or ErrRecordNotFound past the end.
func (it *SliceIterator[T]) Next() (T, error) {
	var zero T

	if it.currentIndex >= len(it.data) {
		return zero, dberror.New(dberror.KindRecordNotFound, "SliceIterator", "Next", "no more elements")
	}

	element := it.data[it.currentIndex]
	it.currentIndex++
	return element, nil
}

// Rewind resets the read position without touching the data.
func (it *SliceIterator[T]) Rewind() {
	it.currentIndex = 0
}

// TupleSliceIterator is a DbIterator over materialized tuples, used by
// operators that buffer their whole output (aggregation).
type TupleSliceIterator struct {
	td     *tuple.TupleDescription
	slice  *SliceIterator[*tuple.Tuple]
	opened bool
}

// NewTupleSliceIterator creates a closed iterator over tuples with schema td.
func NewTupleSliceIterator(td *tuple.TupleDescription, tuples []*tuple.Tuple) *TupleSliceIterator {
	return &TupleSliceIterator{td: td, slice: NewSliceIterator(tuples)}
}

func (it *TupleSliceIterator) Open() error {
	it.opened = true
	it.slice.Rewind()
	return nil
}

func (it *TupleSliceIterator) HasNext() (bool, error) {
	if !it.opened {
		return false, notOpened("HasNext")
	}
	return it.slice.HasNext(), nil
}

func (it *TupleSliceIterator) Next() (*tuple.Tuple, error) {
	if !it.opened {
		return nil, notOpened("Next")
	}
	return it.slice.Next()
}

func (it *TupleSliceIterator) Rewind() error {
	if !it.opened {
		return notOpened("Rewind")
	}
	it.slice.Rewind()
	return nil
}

func (it *TupleSliceIterator) Close() error {
	it.opened = false
	return nil
}

func (it *TupleSliceIterator) GetTupleDesc() *tuple.TupleDescription {
	return it.td
}
