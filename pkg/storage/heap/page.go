package heap

import (
	"bytes"
	"sync"

	"heapstore/pkg/concurrency/transaction"
	"heapstore/pkg/dberror"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/page"
	"heapstore/pkg/tuple"
	"heapstore/pkg/types"
)

// HeapPage is a single page of a heap file and implements page.Page.
//
// Page Layout:
//
//	[occupancy bitmap: ceil(capacity/8) bytes][slot 0][slot 1]...[slot capacity-1][zero padding]
//
// Every slot is exactly the schema's record width. Slot i holds a record iff
// bit i of the bitmap is set, where bit i is (bitmap[i/8] >> (i%8)) & 1.
// Only the bitmap governs validity; encoding zero-fills unoccupied slots so
// a page's bytes are reproducible.
type HeapPage struct {
	pageID    page.ID
	tupleDesc *tuple.TupleDescription
	pageSize  int
	numSlots  int
	header    []byte
	tuples    []*tuple.Tuple // indexed by slot number
	dirtier   *transaction.TransactionID
	mutex     sync.RWMutex
}

// Capacity returns how many records of recordSize bytes fit on a page of
// pageSize bytes when each also costs one bitmap bit:
// floor(pageSize*8 / (recordSize*8 + 1)).
func Capacity(pageSize, recordSize int) int {
	if pageSize <= 0 || recordSize <= 0 {
		return 0
	}
	return (pageSize * 8) / (recordSize*8 + 1)
}

// HeaderSize returns the bitmap size in bytes for a page of the given capacity.
func HeaderSize(capacity int) int {
	return (capacity + 7) / 8
}

// NewEmptyHeapPage creates a page with no occupied slots, the in-memory
// image of a freshly zero-filled block.
func NewEmptyHeapPage(pid page.ID, td *tuple.TupleDescription, pageSize int) (*HeapPage, error) {
	return NewHeapPage(pid, make([]byte, pageSize), td, pageSize)
}

// NewHeapPage decodes a page from exactly pageSize bytes. It fails with
// ErrCorruptPage if data has the wrong length or an occupied slot does not
// decode, and with ErrSchema if not even one record fits on a page.
func NewHeapPage(pid page.ID, data []byte, td *tuple.TupleDescription, pageSize int) (*HeapPage, error) {
	if len(data) != pageSize {
		return nil, dberror.New(dberror.KindCorruptPage, "HeapPage", "Decode",
			"invalid page data size: expected %d, got %d", pageSize, len(data))
	}

	numSlots := Capacity(pageSize, int(td.GetSize()))
	if numSlots < 1 {
		return nil, dberror.New(dberror.KindSchema, "HeapPage", "Decode",
			"record width %d does not fit on a %d-byte page", td.GetSize(), pageSize)
	}

	hp := &HeapPage{
		pageID:    pid,
		tupleDesc: td,
		pageSize:  pageSize,
		numSlots:  numSlots,
		header:    make([]byte, HeaderSize(numSlots)),
		tuples:    make([]*tuple.Tuple, numSlots),
	}

	if err := hp.parsePageData(data); err != nil {
		return nil, err
	}
	return hp, nil
}

// ID returns the page identity.
func (hp *HeapPage) ID() page.ID {
	return hp.pageID
}

// GetTupleDesc returns the schema of the records on this page.
func (hp *HeapPage) GetTupleDesc() *tuple.TupleDescription {
	return hp.tupleDesc
}

// NumSlots returns the page capacity.
func (hp *HeapPage) NumSlots() int {
	return hp.numSlots
}

// IsDirty returns the transaction that last modified this page.
func (hp *HeapPage) IsDirty() (*transaction.TransactionID, bool) {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.dirtier, hp.dirtier != nil
}

// MarkDirty marks this page as dirty or clean for a specific transaction.
// This is typically called by the buffer pool when a page is modified or flushed.
func (hp *HeapPage) MarkDirty(dirty bool, tid *transaction.TransactionID) {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	if dirty {
		hp.dirtier = tid
	} else {
		hp.dirtier = nil
	}
}

// PageData encodes the page to exactly pageSize bytes. It is the inverse of
// NewHeapPage.
func (hp *HeapPage) PageData() ([]byte, error) {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	data := make([]byte, hp.pageSize)
	copy(data, hp.header)

	recordSize := int(hp.tupleDesc.GetSize())
	for i, t := range hp.tuples {
		if t == nil {
			continue
		}

		offset := len(hp.header) + i*recordSize
		buf := bytes.NewBuffer(data[offset:offset])
		for _, field := range t.Fields() {
			if err := field.Serialize(buf); err != nil {
				return nil, dberror.Wrap(err, dberror.KindCorruptPage, "HeapPage", "Encode",
					"failed to encode slot %d", i)
			}
		}
	}

	return data, nil
}

// InsertTuple places t in the lowest-numbered free slot and sets its
// RecordID. It fails with ErrSchema if t does not match the page schema and
// with ErrPageFull if no slot is free.
func (hp *HeapPage) InsertTuple(t *tuple.Tuple) (*tuple.RecordID, error) {
	if err := t.CheckSchema(hp.tupleDesc); err != nil {
		return nil, err
	}

	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	slot := hp.findFirstEmptySlot()
	if slot < 0 {
		return nil, dberror.New(dberror.KindPageFull, "HeapPage", "InsertTuple",
			"no empty slot on %s", hp.pageID)
	}

	hp.setSlot(slot, true)
	hp.tuples[slot] = t
	t.RecordID = tuple.NewRecordID(hp.pageID, primitives.SlotID(slot)) // #nosec G115
	return t.RecordID, nil
}

// DeleteTuple frees the slot rid points at. It fails with ErrRecordNotFound
// if rid is on another page or the slot is already free.
func (hp *HeapPage) DeleteTuple(rid *tuple.RecordID) error {
	if rid == nil {
		return dberror.New(dberror.KindRecordNotFound, "HeapPage", "DeleteTuple", "tuple has no record ID")
	}

	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	if rid.PageID != hp.pageID {
		return dberror.New(dberror.KindRecordNotFound, "HeapPage", "DeleteTuple",
			"%s is not on %s", rid, hp.pageID)
	}

	slot := int(rid.Slot)
	if !hp.isSlotUsed(slot) {
		return dberror.New(dberror.KindRecordNotFound, "HeapPage", "DeleteTuple",
			"slot %d is already empty", slot)
	}

	hp.setSlot(slot, false)
	if t := hp.tuples[slot]; t != nil {
		t.RecordID = nil
	}
	hp.tuples[slot] = nil
	return nil
}

// NumEmptySlots returns the number of free slots.
func (hp *HeapPage) NumEmptySlots() int {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	empty := 0
	for i := 0; i < hp.numSlots; i++ {
		if !hp.isSlotUsed(i) {
			empty++
		}
	}
	return empty
}

// IsFull reports whether every slot is occupied.
func (hp *HeapPage) IsFull() bool {
	return hp.NumEmptySlots() == 0
}

// IsSlotUsed reports whether slot i holds a record. Out-of-range slots are
// never used.
func (hp *HeapPage) IsSlotUsed(i int) bool {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.isSlotUsed(i)
}

// GetTupleAt returns the record in slot i, or nil if the slot is free.
func (hp *HeapPage) GetTupleAt(i int) (*tuple.Tuple, error) {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	if i < 0 || i >= hp.numSlots {
		return nil, dberror.New(dberror.KindRecordNotFound, "HeapPage", "GetTupleAt",
			"slot index %d out of bounds [0, %d)", i, hp.numSlots)
	}
	return hp.tuples[i], nil
}

// Tuples returns the occupied slots' records in ascending slot order.
func (hp *HeapPage) Tuples() []*tuple.Tuple {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	tuples := make([]*tuple.Tuple, 0, hp.numSlots)
	for _, t := range hp.tuples {
		if t != nil {
			tuples = append(tuples, t)
		}
	}
	return tuples
}

// Iterator returns a closed iterator over this page's records.
func (hp *HeapPage) Iterator() *HeapPageIterator {
	return NewHeapPageIterator(hp)
}

func (hp *HeapPage) parsePageData(data []byte) error {
	copy(hp.header, data[:len(hp.header)])

	// Bits past capacity in the last header byte carry no slot.
	if extra := len(hp.header)*8 - hp.numSlots; extra > 0 {
		hp.header[len(hp.header)-1] &= byte(0xFF >> extra)
	}

	recordSize := int(hp.tupleDesc.GetSize())
	for i := 0; i < hp.numSlots; i++ {
		if !hp.isSlotUsed(i) {
			continue
		}

		offset := len(hp.header) + i*recordSize
		t, err := readTuple(bytes.NewReader(data[offset:offset+recordSize]), hp.tupleDesc)
		if err != nil {
			return dberror.Wrap(err, dberror.KindCorruptPage, "HeapPage", "Decode",
				"failed to read tuple at slot %d of %s", i, hp.pageID)
		}

		t.RecordID = tuple.NewRecordID(hp.pageID, primitives.SlotID(i)) // #nosec G115
		hp.tuples[i] = t
	}
	return nil
}

func (hp *HeapPage) isSlotUsed(i int) bool {
	if i < 0 || i >= hp.numSlots {
		return false
	}
	return hp.header[i/8]>>(i%8)&1 == 1
}

func (hp *HeapPage) setSlot(i int, used bool) {
	if used {
		hp.header[i/8] |= 1 << (i % 8)
	} else {
		hp.header[i/8] &^= 1 << (i % 8)
	}
}

// findFirstEmptySlot returns -1 when the page is full.
func (hp *HeapPage) findFirstEmptySlot() int {
	for i := 0; i < hp.numSlots; i++ {
		if !hp.isSlotUsed(i) {
			return i
		}
	}
	return -1
}

func readTuple(r *bytes.Reader, td *tuple.TupleDescription) (*tuple.Tuple, error) {
	t := tuple.NewTuple(td)

	for j, fieldType := range td.Types {
		field, err := types.ParseField(r, fieldType)
		if err != nil {
			return nil, err
		}
		if err := t.SetField(j, field); err != nil {
			return nil, err
		}
	}
	return t, nil
}
