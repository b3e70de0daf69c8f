package aggregation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heapstore/pkg/dberror"
	"heapstore/pkg/iterator"
	"heapstore/pkg/types"
)

func TestAggregateOperator(t *testing.T) {
	td, tuples := sales(t)
	source := iterator.NewTupleSliceIterator(td, tuples)

	op, err := NewAggregateOperator(source, 1, 0, Sum)
	require.NoError(t, err)

	desc := op.GetTupleDesc()
	assert.Equal(t, []types.Type{types.StringType, types.IntType}, desc.Types)

	require.NoError(t, op.Open())
	first, err := iterator.Collect(op)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, "north\t11\n", first[0].String())

	_, err = op.Next()
	assert.ErrorIs(t, err, dberror.ErrRecordNotFound)

	require.NoError(t, op.Rewind())
	again, err := iterator.Collect(op)
	require.NoError(t, err)
	assert.Len(t, again, 3)

	require.NoError(t, op.Close())
	_, err = op.HasNext()
	assert.Error(t, err)

	// reopening recomputes from scratch
	require.NoError(t, op.Open())
	count, err := iterator.Count(op)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	require.NoError(t, op.Close())
}

func TestAggregateOperator_Ungrouped(t *testing.T) {
	td, tuples := sales(t)
	op, err := NewAggregateOperator(iterator.NewTupleSliceIterator(td, tuples), 2, NoGrouping, Count)
	require.NoError(t, err)

	require.NoError(t, op.Open())
	rows, err := iterator.Collect(op)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "6\n", rows[0].String())
}

func TestNewAggregateOperator_Errors(t *testing.T) {
	td, tuples := sales(t)
	source := iterator.NewTupleSliceIterator(td, tuples)

	_, err := NewAggregateOperator(nil, 0, NoGrouping, Count)
	assert.ErrorIs(t, err, dberror.ErrSchema)

	_, err = NewAggregateOperator(source, 5, NoGrouping, Count)
	assert.ErrorIs(t, err, dberror.ErrSchema)

	_, err = NewAggregateOperator(source, 1, 7, Sum)
	assert.ErrorIs(t, err, dberror.ErrSchema)

	_, err = NewAggregateOperator(source, 0, NoGrouping, Sum)
	assert.ErrorIs(t, err, dberror.ErrSchema, "strings only support COUNT")
}
