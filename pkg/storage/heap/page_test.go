package heap

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heapstore/pkg/concurrency/transaction"
	"heapstore/pkg/dberror"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/page"
	"heapstore/pkg/tuple"
	"heapstore/pkg/types"
)

const testPageSize = page.DefaultPageSize

func intDesc(t *testing.T, n int) *tuple.TupleDescription {
	t.Helper()
	fieldTypes := make([]types.Type, n)
	for i := range fieldTypes {
		fieldTypes[i] = types.IntType
	}
	td, err := tuple.NewTupleDesc(fieldTypes, nil)
	require.NoError(t, err)
	return td
}

func mixedDesc(t *testing.T) *tuple.TupleDescription {
	t.Helper()
	td, err := tuple.NewTupleDesc([]types.Type{types.IntType, types.StringType}, []string{"id", "name"})
	require.NoError(t, err)
	return td
}

func intTuple(td *tuple.TupleDescription, values ...int32) *tuple.Tuple {
	b := tuple.NewBuilder(td)
	for _, v := range values {
		b.AddInt(v)
	}
	return b.MustBuild()
}

func emptyPage(t *testing.T, td *tuple.TupleDescription) *HeapPage {
	t.Helper()
	hp, err := NewEmptyHeapPage(page.NewID(1, 0), td, testPageSize)
	require.NoError(t, err)
	return hp
}

func TestCapacity(t *testing.T) {
	for _, width := range []int{5, 20, 100} {
		want := (4096 * 8) / (width*8 + 1)
		assert.Equal(t, want, Capacity(4096, width), "width %d", width)
	}
	assert.Equal(t, 992, Capacity(4096, 4))
	assert.Equal(t, 0, Capacity(4096, 0))
	assert.Equal(t, 0, Capacity(10, 100))
	assert.Equal(t, 124, HeaderSize(992))
	assert.Equal(t, 1, HeaderSize(1))
}

func TestNewHeapPage_Errors(t *testing.T) {
	td := intDesc(t, 1)

	_, err := NewHeapPage(page.NewID(1, 0), make([]byte, testPageSize-1), td, testPageSize)
	assert.ErrorIs(t, err, dberror.ErrCorruptPage)

	_, err = NewEmptyHeapPage(page.NewID(1, 0), mixedDesc(t), 64)
	assert.ErrorIs(t, err, dberror.ErrSchema)
}

func TestHeapPage_EmptyPage(t *testing.T) {
	td := intDesc(t, 2)
	hp := emptyPage(t, td)

	assert.Equal(t, Capacity(testPageSize, 8), hp.NumSlots())
	assert.Equal(t, hp.NumSlots(), hp.NumEmptySlots())
	assert.False(t, hp.IsFull())
	assert.Empty(t, hp.Tuples())

	data, err := hp.PageData()
	require.NoError(t, err)
	assert.Equal(t, make([]byte, testPageSize), data)
}

func TestHeapPage_InsertAssignsLowestSlot(t *testing.T) {
	td := intDesc(t, 1)
	hp := emptyPage(t, td)

	for i := 0; i < 3; i++ {
		rid, err := hp.InsertTuple(intTuple(td, int32(i)))
		require.NoError(t, err)
		assert.Equal(t, primitives.SlotID(i), rid.Slot)
		assert.Equal(t, hp.ID(), rid.PageID)
	}

	first, err := hp.GetTupleAt(0)
	require.NoError(t, err)
	require.NoError(t, hp.DeleteTuple(first.RecordID))
	assert.Nil(t, first.RecordID)

	rid, err := hp.InsertTuple(intTuple(td, 42))
	require.NoError(t, err)
	assert.Equal(t, primitives.SlotID(0), rid.Slot)
}

func TestHeapPage_InsertDeleteSymmetry(t *testing.T) {
	td := mixedDesc(t)
	hp := emptyPage(t, td)
	_, err := hp.InsertTuple(tuple.NewBuilder(td).AddInt(1).AddString("a").MustBuild())
	require.NoError(t, err)

	before, err := hp.PageData()
	require.NoError(t, err)
	k := hp.NumEmptySlots()
	headerLen := HeaderSize(hp.NumSlots())

	rid, err := hp.InsertTuple(tuple.NewBuilder(td).AddInt(2).AddString("b").MustBuild())
	require.NoError(t, err)
	assert.Equal(t, k-1, hp.NumEmptySlots())

	require.NoError(t, hp.DeleteTuple(rid))
	assert.Equal(t, k, hp.NumEmptySlots())

	after, err := hp.PageData()
	require.NoError(t, err)
	assert.Equal(t, before[:headerLen], after[:headerLen])
}

func TestHeapPage_Full(t *testing.T) {
	td := intDesc(t, 1)
	hp := emptyPage(t, td)

	for i := 0; i < hp.NumSlots(); i++ {
		_, err := hp.InsertTuple(intTuple(td, int32(i)))
		require.NoError(t, err)
	}
	assert.True(t, hp.IsFull())

	_, err := hp.InsertTuple(intTuple(td, -1))
	assert.ErrorIs(t, err, dberror.ErrPageFull)
}

func TestHeapPage_InsertSchemaMismatch(t *testing.T) {
	hp := emptyPage(t, intDesc(t, 1))

	_, err := hp.InsertTuple(intTuple(intDesc(t, 2), 1, 2))
	assert.ErrorIs(t, err, dberror.ErrSchema)

	td := intDesc(t, 1)
	bad := tuple.NewTuple(td)
	require.NoError(t, bad.SetField(0, types.NewStringField("x")))
	_, err = hp.InsertTuple(bad)
	assert.ErrorIs(t, err, dberror.ErrSchema)
}

func TestHeapPage_DeleteErrors(t *testing.T) {
	td := intDesc(t, 1)
	hp := emptyPage(t, td)

	assert.ErrorIs(t, hp.DeleteTuple(nil), dberror.ErrRecordNotFound)
	assert.ErrorIs(t, hp.DeleteTuple(tuple.NewRecordID(hp.ID(), 0)), dberror.ErrRecordNotFound)

	rid, err := hp.InsertTuple(intTuple(td, 1))
	require.NoError(t, err)
	assert.ErrorIs(t, hp.DeleteTuple(tuple.NewRecordID(page.NewID(1, 9), rid.Slot)), dberror.ErrRecordNotFound)
	assert.ErrorIs(t, hp.DeleteTuple(tuple.NewRecordID(hp.ID(), 60000)), dberror.ErrRecordNotFound)

	require.NoError(t, hp.DeleteTuple(tuple.NewRecordID(hp.ID(), rid.Slot)))
	assert.ErrorIs(t, hp.DeleteTuple(tuple.NewRecordID(hp.ID(), rid.Slot)), dberror.ErrRecordNotFound)
}

func TestHeapPage_RoundTrip(t *testing.T) {
	td := mixedDesc(t)
	hp := emptyPage(t, td)

	for i := 0; i < 10; i++ {
		_, err := hp.InsertTuple(tuple.NewBuilder(td).AddInt(int32(i * 7)).AddString("row").MustBuild())
		require.NoError(t, err)
	}
	mid, err := hp.GetTupleAt(4)
	require.NoError(t, err)
	require.NoError(t, hp.DeleteTuple(mid.RecordID))

	encoded, err := hp.PageData()
	require.NoError(t, err)
	require.Len(t, encoded, testPageSize)

	decoded, err := NewHeapPage(hp.ID(), encoded, td, testPageSize)
	require.NoError(t, err)
	reencoded, err := decoded.PageData()
	require.NoError(t, err)
	assert.True(t, bytes.Equal(encoded, reencoded))

	assert.Equal(t, hp.NumEmptySlots(), decoded.NumEmptySlots())
	assert.False(t, decoded.IsSlotUsed(4))
	for _, tup := range decoded.Tuples() {
		orig, err := hp.GetTupleAt(int(tup.RecordID.Slot))
		require.NoError(t, err)
		assert.True(t, orig.Equals(tup))
	}
}

func TestHeapPage_DecodeLayout(t *testing.T) {
	td := intDesc(t, 1)
	numSlots := Capacity(testPageSize, 4)
	headerLen := HeaderSize(numSlots)

	data := make([]byte, testPageSize)
	data[0] = 0b0000_0101
	data[headerLen+3] = 9
	data[headerLen+2*4+3] = 11
	data[headerLen+1*4+3] = 99 // stale bytes in a free slot

	hp, err := NewHeapPage(page.NewID(3, 2), data, td, testPageSize)
	require.NoError(t, err)

	tuples := hp.Tuples()
	require.Len(t, tuples, 2)
	assert.Equal(t, "9\n", tuples[0].String())
	assert.Equal(t, primitives.SlotID(2), tuples[1].RecordID.Slot)
	assert.Equal(t, page.NewID(3, 2), tuples[1].RecordID.PageID)

	out, err := hp.PageData()
	require.NoError(t, err)
	assert.Zero(t, out[headerLen+1*4+3], "free slots are zero-filled on encode")
}

func TestHeapPage_DecodeCorruptSlot(t *testing.T) {
	td := mixedDesc(t)
	numSlots := Capacity(testPageSize, int(td.GetSize()))
	headerLen := HeaderSize(numSlots)

	data := make([]byte, testPageSize)
	data[0] = 1
	data[headerLen+4] = 0xFF // string length prefix far beyond the maximum

	_, err := NewHeapPage(page.NewID(1, 0), data, td, testPageSize)
	assert.ErrorIs(t, err, dberror.ErrCorruptPage)
}

func TestHeapPage_Dirty(t *testing.T) {
	hp := emptyPage(t, intDesc(t, 1))
	tid := transaction.NewTransactionID()

	_, dirty := hp.IsDirty()
	assert.False(t, dirty)

	hp.MarkDirty(true, tid)
	got, dirty := hp.IsDirty()
	assert.True(t, dirty)
	assert.Same(t, tid, got)

	hp.MarkDirty(false, nil)
	_, dirty = hp.IsDirty()
	assert.False(t, dirty)
}

func TestHeapPageIterator(t *testing.T) {
	td := intDesc(t, 1)
	hp := emptyPage(t, td)
	for _, slot := range []int32{5, 6, 7} {
		_, err := hp.InsertTuple(intTuple(td, slot))
		require.NoError(t, err)
	}

	it := hp.Iterator()
	_, err := it.HasNext()
	assert.Error(t, err)

	require.NoError(t, it.Open())
	var first []string
	for {
		ok, err := it.HasNext()
		require.NoError(t, err)
		if !ok {
			break
		}
		tup, err := it.Next()
		require.NoError(t, err)
		first = append(first, tup.String())
	}
	assert.Equal(t, []string{"5\n", "6\n", "7\n"}, first)

	_, err = it.Next()
	assert.ErrorIs(t, err, dberror.ErrRecordNotFound)

	require.NoError(t, it.Rewind())
	tup, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, "5\n", tup.String())
	require.NoError(t, it.Close())
}
