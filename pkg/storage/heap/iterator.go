package heap

import (
	"heapstore/pkg/dberror"
	"heapstore/pkg/iterator"
	"heapstore/pkg/tuple"
)

// HeapPageIterator yields a page's records in ascending slot order. It
// snapshots the occupied slots on Open, so re-opening an unmodified page
// yields the identical sequence.
type HeapPageIterator struct {
	page   *HeapPage
	tuples *iterator.SliceIterator[*tuple.Tuple]
}

// NewHeapPageIterator creates a new iterator for the given page
func NewHeapPageIterator(page *HeapPage) *HeapPageIterator {
	return &HeapPageIterator{page: page}
}

// Open snapshots the page's occupied slots.
func (it *HeapPageIterator) Open() error {
	it.tuples = iterator.NewSliceIterator(it.page.Tuples())
	return nil
}

// HasNext returns true if there are more tuples
func (it *HeapPageIterator) HasNext() (bool, error) {
	if it.tuples == nil {
		return false, dberror.New(dberror.KindRecordNotFound, "HeapPageIterator", "HasNext", "iterator not opened")
	}
	return it.tuples.HasNext(), nil
}

// Next returns the next tuple
func (it *HeapPageIterator) Next() (*tuple.Tuple, error) {
	if it.tuples == nil {
		return nil, dberror.New(dberror.KindRecordNotFound, "HeapPageIterator", "Next", "iterator not opened")
	}
	if !it.tuples.HasNext() {
		return nil, iterator.Exhausted("HeapPageIterator")
	}
	return it.tuples.Next()
}

// Rewind re-snapshots the page.
func (it *HeapPageIterator) Rewind() error {
	return it.Open()
}

// Close releases iterator resources
func (it *HeapPageIterator) Close() error {
	it.tuples = nil
	return nil
}
