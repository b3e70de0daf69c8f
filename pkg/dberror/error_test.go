package dberror

import (
	stderrors "errors"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MatchesSentinel(t *testing.T) {
	err := New(KindPageFull, "HeapPage", "InsertTuple", "no free slot on page %d", 3)

	assert.True(t, stderrors.Is(err, ErrPageFull))
	assert.False(t, stderrors.Is(err, ErrRecordNotFound))
	assert.Equal(t, KindPageFull, KindOf(err))
	assert.Contains(t, err.Error(), "[PAGE_FULL] no free slot on page 3")
	assert.Contains(t, err.Error(), "operation: InsertTuple, component: HeapPage")
	assert.NotEmpty(t, err.FormatStack())
}

func TestWrap_KeepsCauseChain(t *testing.T) {
	err := Wrap(io.ErrUnexpectedEOF, KindStorageIO, "BaseFile", "ReadPageData", "short read")

	require.NotNil(t, err)
	assert.True(t, stderrors.Is(err, ErrStorageIO))
	assert.True(t, stderrors.Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, CategorySystem, err.Category())
}

func TestWrap_DoesNotReclassify(t *testing.T) {
	inner := New(KindCorruptPage, "HeapPage", "", "bad length")
	outer := Wrap(errors.Wrap(inner, "reading"), KindStorageIO, "BaseFile", "ReadPage", "outer")

	assert.Equal(t, KindCorruptPage, outer.Kind)
	assert.Equal(t, "ReadPage", outer.Operation)
	assert.True(t, stderrors.Is(outer, ErrCorruptPage))
}

func TestWrap_Nil(t *testing.T) {
	assert.Nil(t, Wrap(nil, KindStorageIO, "x", "y", "z"))
}

func TestIsTransactionFatal(t *testing.T) {
	tests := []struct {
		kind  Kind
		fatal bool
	}{
		{KindStorageIO, true},
		{KindBufferPoolFull, true},
		{KindConcurrencyTimeout, true},
		{KindPageFull, false},
		{KindSchema, false},
		{KindNoSuchPage, false},
	}

	for _, tt := range tests {
		t.Run(tt.kind.Code(), func(t *testing.T) {
			err := errors.Wrap(New(tt.kind, "c", "o", "m"), "context")
			assert.Equal(t, tt.fatal, IsTransactionFatal(err))
		})
	}

	assert.False(t, IsTransactionFatal(io.EOF))
}
