package iterator

import (
	"heapstore/pkg/dberror"
	"heapstore/pkg/tuple"
)

// ReadNextFunc reads the next tuple from an operator's source. It returns
// (nil, nil) at end of data.
type ReadNextFunc func() (*tuple.Tuple, error)

// BaseIterator implements one-tuple lookahead and open/closed state on top
// of a ReadNextFunc, so operators only write their read logic.
type BaseIterator struct {
	nextTuple    *tuple.Tuple
	opened       bool
	readNextFunc ReadNextFunc
}

// NewBaseIterator creates a closed base iterator around readNextFunc.
func NewBaseIterator(readNextFunc ReadNextFunc) *BaseIterator {
	return &BaseIterator{
		readNextFunc: readNextFunc,
	}
}

// HasNext reports whether another tuple is available without consuming it.
func (it *BaseIterator) HasNext() (bool, error) {
	if !it.opened {
		return false, notOpened("HasNext")
	}

	if it.nextTuple == nil {
		var err error
		it.nextTuple, err = it.readNextFunc()
		if err != nil {
			return false, err
		}
	}
	return it.nextTuple != nil, nil
}

// Next consumes and returns the next tuple.
func (it *BaseIterator) Next() (*tuple.Tuple, error) {
	if !it.opened {
		return nil, notOpened("Next")
	}

	if it.nextTuple == nil {
		var err error
		it.nextTuple, err = it.readNextFunc()
		if err != nil {
			return nil, err
		}
		if it.nextTuple == nil {
			return nil, Exhausted("BaseIterator")
		}
	}

	result := it.nextTuple
	it.nextTuple = nil
	return result, nil
}

// Rewind drops the lookahead tuple. The caller resets the source.
func (it *BaseIterator) Rewind() error {
	it.nextTuple = nil
	return nil
}

// Close clears cached state and marks the iterator closed.
func (it *BaseIterator) Close() error {
	it.nextTuple = nil
	it.opened = false
	return nil
}

// MarkOpened marks the iterator as opened and ready for use.
func (it *BaseIterator) MarkOpened() {
	it.opened = true
	it.nextTuple = nil
}

// Exhausted is the error returned by Next past the end of a stream.
func Exhausted(component string) error {
	return dberror.New(dberror.KindRecordNotFound, component, "Next", "no more tuples")
}

func notOpened(op string) error {
	return dberror.New(dberror.KindRecordNotFound, "BaseIterator", op, "iterator not opened")
}
