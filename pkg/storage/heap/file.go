package heap

import (
	"heapstore/pkg/concurrency/transaction"
	"heapstore/pkg/dberror"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/page"
	"heapstore/pkg/tuple"
)

// PageProvider is the buffer pool as seen by a heap file: the only way the
// file reaches its own pages on the insert, delete and scan paths.
type PageProvider interface {
	GetPage(tid *transaction.TransactionID, pid page.ID, perm transaction.Permissions) (page.Page, error)

	// HoldsLock and ReleasePage let an insert drop the lock on a full page
	// it locked only to inspect.
	HoldsLock(tid *transaction.TransactionID, pid page.ID) bool
	ReleasePage(tid *transaction.TransactionID, pid page.ID)

	// PageSize is the pool-wide page size every file must use.
	PageSize() int
}

// HeapFile is an unordered collection of heap pages stored in one file.
// It implements page.DbFile.
//
// Storage Layout:
//   - Each page is exactly PageSize() bytes
//   - Pages are numbered sequentially starting from 0
//   - Page offsets are calculated as: pageNo * PageSize()
//
// ReadPage and WritePage perform raw I/O and are called by the buffer pool.
// InsertTuple, DeleteTuple and Iterator go through the PageProvider so that
// every page touched is locked for the transaction.
type HeapFile struct {
	*page.BaseFile
	tupleDesc *tuple.TupleDescription
	pool      PageProvider
}

// NewHeapFile opens (creating if needed) the heap file at filename with
// schema td, using pool's page size.
func NewHeapFile(filename primitives.Filepath, td *tuple.TupleDescription, pool PageProvider) (*HeapFile, error) {
	baseFile, err := page.NewBaseFile(filename, pool.PageSize())
	if err != nil {
		return nil, err
	}
	return newHeapFile(baseFile, td, pool)
}

// NewHeapFileFromStore builds a heap file over an arbitrary byte store, for
// in-memory tables and fault injection.
func NewHeapFileFromStore(id primitives.FileID, store page.ByteStore, td *tuple.TupleDescription, pool PageProvider) (*HeapFile, error) {
	baseFile, err := page.NewBaseFileFromStore(id, store, pool.PageSize())
	if err != nil {
		return nil, err
	}
	return newHeapFile(baseFile, td, pool)
}

func newHeapFile(baseFile *page.BaseFile, td *tuple.TupleDescription, pool PageProvider) (*HeapFile, error) {
	if td == nil {
		_ = baseFile.Close()
		return nil, dberror.New(dberror.KindSchema, "HeapFile", "NewHeapFile", "tuple description cannot be nil")
	}
	if Capacity(baseFile.PageSize(), int(td.GetSize())) < 1 {
		_ = baseFile.Close()
		return nil, dberror.New(dberror.KindSchema, "HeapFile", "NewHeapFile",
			"record width %d does not fit on a %d-byte page", td.GetSize(), baseFile.PageSize())
	}

	return &HeapFile{
		BaseFile:  baseFile,
		tupleDesc: td,
		pool:      pool,
	}, nil
}

// GetTupleDesc returns the schema definition for tuples stored in this file.
func (hf *HeapFile) GetTupleDesc() *tuple.TupleDescription {
	return hf.tupleDesc
}

// ReadPage reads and decodes one page from disk. Reading past the end of
// the file fails with ErrNoSuchPage.
func (hf *HeapFile) ReadPage(pid page.ID) (page.Page, error) {
	if err := hf.checkOwnership(pid, "ReadPage"); err != nil {
		return nil, err
	}

	pageData, err := hf.ReadPageData(pid.PageNo())
	if err != nil {
		return nil, err
	}
	return NewHeapPage(pid, pageData, hf.tupleDesc, hf.PageSize())
}

// WritePage encodes p and writes it at its page number.
func (hf *HeapFile) WritePage(p page.Page) error {
	if p == nil {
		return dberror.New(dberror.KindStorageIO, "HeapFile", "WritePage", "page cannot be nil")
	}
	if err := hf.checkOwnership(p.ID(), "WritePage"); err != nil {
		return err
	}

	data, err := p.PageData()
	if err != nil {
		return err
	}
	return hf.WritePageData(p.ID().PageNo(), data)
}

// InsertTuple stores t on the first page with a free slot, scanning pages
// in order under exclusive locks. A full page whose lock was taken by this
// scan is released again, since nothing on it changed. When every page is
// full it appends a zeroed page and inserts there. It returns the pages it
// modified; the caller marks them dirty.
func (hf *HeapFile) InsertTuple(tid *transaction.TransactionID, t *tuple.Tuple) ([]page.Page, error) {
	if t == nil {
		return nil, dberror.New(dberror.KindSchema, "HeapFile", "InsertTuple", "tuple cannot be nil")
	}
	if err := t.CheckSchema(hf.tupleDesc); err != nil {
		return nil, err
	}

	numPages, err := hf.NumPages()
	if err != nil {
		return nil, err
	}

	for pageNo := primitives.PageNumber(0); pageNo < numPages; pageNo++ {
		pid := page.NewID(hf.GetID(), pageNo)
		heldBefore := hf.pool.HoldsLock(tid, pid)

		hp, err := hf.fetch(tid, pageNo, transaction.ReadWrite)
		if err != nil {
			return nil, err
		}
		if hp.IsFull() {
			// Early release is safe: this transaction has not changed the
			// page, and the lock was taken by this scan alone. A page locked
			// earlier in the transaction keeps its lock until commit.
			if !heldBefore {
				hf.pool.ReleasePage(tid, pid)
			}
			continue
		}
		if _, err := hp.InsertTuple(t); err != nil {
			return nil, err
		}
		return []page.Page{hp}, nil
	}

	pageNo, err := hf.AllocateNewPage()
	if err != nil {
		return nil, err
	}
	hp, err := hf.fetch(tid, pageNo, transaction.ReadWrite)
	if err != nil {
		return nil, err
	}
	if _, err := hp.InsertTuple(t); err != nil {
		return nil, err
	}
	return []page.Page{hp}, nil
}

// DeleteTuple removes t, which must carry a RecordID on a page of this
// file, under an exclusive lock on that page.
func (hf *HeapFile) DeleteTuple(tid *transaction.TransactionID, t *tuple.Tuple) (page.Page, error) {
	if t == nil || t.RecordID == nil {
		return nil, dberror.New(dberror.KindRecordNotFound, "HeapFile", "DeleteTuple", "tuple has no record ID")
	}

	pid := t.RecordID.PageID
	if pid.FileID() != hf.GetID() {
		return nil, dberror.New(dberror.KindRecordNotFound, "HeapFile", "DeleteTuple",
			"%s does not belong to file %d", t.RecordID, hf.GetID())
	}

	hp, err := hf.fetch(tid, pid.PageNo(), transaction.ReadWrite)
	if err != nil {
		return nil, err
	}
	if err := hp.DeleteTuple(t.RecordID); err != nil {
		return nil, err
	}
	return hp, nil
}

// Iterator returns a closed scan over every record in the file for tid.
func (hf *HeapFile) Iterator(tid *transaction.TransactionID) *HeapFileIterator {
	return NewHeapFileIterator(hf, tid)
}

func (hf *HeapFile) fetch(tid *transaction.TransactionID, pageNo primitives.PageNumber, perm transaction.Permissions) (*HeapPage, error) {
	p, err := hf.pool.GetPage(tid, page.NewID(hf.GetID(), pageNo), perm)
	if err != nil {
		return nil, err
	}

	hp, ok := p.(*HeapPage)
	if !ok {
		return nil, dberror.New(dberror.KindCorruptPage, "HeapFile", "fetch",
			"page %d of file %d is %T, not a heap page", pageNo, hf.GetID(), p)
	}
	return hp, nil
}

func (hf *HeapFile) checkOwnership(pid page.ID, op string) error {
	if pid.FileID() != hf.GetID() {
		return dberror.New(dberror.KindNoSuchPage, "HeapFile", op,
			"%s does not belong to file %d", pid, hf.GetID())
	}
	return nil
}
