package heap

import (
	"heapstore/pkg/concurrency/transaction"
	"heapstore/pkg/dberror"
	"heapstore/pkg/iterator"
	"heapstore/pkg/primitives"
	"heapstore/pkg/tuple"
)

type scanState int

const (
	scanClosed scanState = iota
	scanAtPage
	scanExhausted
)

func (s scanState) String() string {
	switch s {
	case scanClosed:
		return "CLOSED"
	case scanAtPage:
		return "AT_PAGE"
	default:
		return "EXHAUSTED"
	}
}

// HeapFileIterator scans every record of a HeapFile in (page, slot) order.
//
// States: CLOSED -> AT_PAGE(pageNo, pageIter) -> EXHAUSTED. Open fetches
// page 0 under a shared lock; an empty file goes straight to EXHAUSTED.
// Pages are fetched through the pool, so their locks belong to the
// transaction and outlive Close.
type HeapFileIterator struct {
	file     *HeapFile
	tid      *transaction.TransactionID
	state    scanState
	pageNo   primitives.PageNumber
	pageIter *HeapPageIterator
}

// NewHeapFileIterator creates a new iterator for the given HeapFile
func NewHeapFileIterator(file *HeapFile, tid *transaction.TransactionID) *HeapFileIterator {
	return &HeapFileIterator{
		file:  file,
		tid:   tid,
		state: scanClosed,
	}
}

// Open positions the scan before the first record.
func (it *HeapFileIterator) Open() error {
	it.pageIter = nil
	return it.loadPage(0)
}

// HasNext returns true if there are more tuples. Crossing a page boundary
// fetches the next page under a shared lock.
func (it *HeapFileIterator) HasNext() (bool, error) {
	for {
		switch it.state {
		case scanClosed:
			return false, it.notOpen("HasNext")
		case scanExhausted:
			return false, nil
		}

		hasNext, err := it.pageIter.HasNext()
		if err != nil || hasNext {
			return hasNext, err
		}
		if err := it.loadPage(it.pageNo + 1); err != nil {
			return false, err
		}
	}
}

// Next returns the next tuple, or ErrRecordNotFound once exhausted.
func (it *HeapFileIterator) Next() (*tuple.Tuple, error) {
	hasNext, err := it.HasNext()
	if err != nil {
		return nil, err
	}
	if !hasNext {
		return nil, iterator.Exhausted("HeapFileIterator")
	}
	return it.pageIter.Next()
}

// Rewind restarts from page 0 as if freshly opened. Locks already held by
// the transaction are kept.
func (it *HeapFileIterator) Rewind() error {
	if it.state == scanClosed {
		return it.notOpen("Rewind")
	}
	return it.Open()
}

// Close releases iteration-local state only.
func (it *HeapFileIterator) Close() error {
	if it.pageIter != nil {
		_ = it.pageIter.Close()
		it.pageIter = nil
	}
	it.state = scanClosed
	return nil
}

// loadPage moves to AT_PAGE(pageNo), or to EXHAUSTED if pageNo is past the
// end of the file. The page count is re-read so pages appended by this
// transaction during the scan are visited.
func (it *HeapFileIterator) loadPage(pageNo primitives.PageNumber) error {
	numPages, err := it.file.NumPages()
	if err != nil {
		return err
	}
	if pageNo >= numPages {
		it.state = scanExhausted
		it.pageIter = nil
		return nil
	}

	hp, err := it.file.fetch(it.tid, pageNo, transaction.ReadOnly)
	if err != nil {
		return err
	}

	pageIter := hp.Iterator()
	if err := pageIter.Open(); err != nil {
		return err
	}
	it.pageNo = pageNo
	it.pageIter = pageIter
	it.state = scanAtPage
	return nil
}

func (it *HeapFileIterator) notOpen(op string) error {
	return dberror.New(dberror.KindRecordNotFound, "HeapFileIterator", op,
		"iterator is %s", it.state)
}
