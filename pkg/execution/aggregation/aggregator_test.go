package aggregation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heapstore/pkg/dberror"
	"heapstore/pkg/iterator"
	"heapstore/pkg/tuple"
	"heapstore/pkg/types"
)

// salesDesc is (region STRING, amount INT, item STRING).
func salesDesc(t *testing.T) *tuple.TupleDescription {
	t.Helper()
	td, err := tuple.NewTupleDesc(
		[]types.Type{types.StringType, types.IntType, types.StringType},
		[]string{"region", "amount", "item"},
	)
	require.NoError(t, err)
	return td
}

func sales(t *testing.T) (*tuple.TupleDescription, []*tuple.Tuple) {
	td := salesDesc(t)
	rows := []struct {
		region string
		amount int32
		item   string
	}{
		{"north", 10, "a"},
		{"south", 3, "b"},
		{"north", -4, "c"},
		{"east", 7, "d"},
		{"south", 8, "e"},
		{"north", 5, "f"},
	}

	tuples := make([]*tuple.Tuple, len(rows))
	for i, r := range rows {
		tuples[i] = tuple.NewBuilder(td).AddString(r.region).AddInt(r.amount).AddString(r.item).MustBuild()
	}
	return td, tuples
}

func results(t *testing.T, agg Aggregator) []string {
	t.Helper()
	it := agg.Iterator()
	require.NoError(t, it.Open())
	defer it.Close()

	var out []string
	require.NoError(t, iterator.ForEach(it, func(tup *tuple.Tuple) error {
		out = append(out, tup.String())
		return nil
	}))
	return out
}

func mergeAll(t *testing.T, agg Aggregator, tuples []*tuple.Tuple) {
	t.Helper()
	for _, tup := range tuples {
		require.NoError(t, agg.Merge(tup))
	}
}

func TestIntAggregator_Grouped(t *testing.T) {
	_, tuples := sales(t)

	tests := []struct {
		op   AggregateOp
		want []string
	}{
		{Min, []string{"north\t-4\n", "south\t3\n", "east\t7\n"}},
		{Max, []string{"north\t10\n", "south\t8\n", "east\t7\n"}},
		{Sum, []string{"north\t11\n", "south\t11\n", "east\t7\n"}},
		{Avg, []string{"north\t3\n", "south\t5\n", "east\t7\n"}},
		{Count, []string{"north\t3\n", "south\t2\n", "east\t1\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			agg, err := NewIntAggregator(0, types.StringType, 1, tt.op)
			require.NoError(t, err)
			mergeAll(t, agg, tuples)
			assert.Equal(t, tt.want, results(t, agg))
		})
	}
}

func TestIntAggregator_Ungrouped(t *testing.T) {
	_, tuples := sales(t)

	tests := map[AggregateOp]string{
		Min:   "-4\n",
		Max:   "10\n",
		Sum:   "29\n",
		Avg:   "4\n",
		Count: "6\n",
	}
	for op, want := range tests {
		agg, err := NewIntAggregator(NoGrouping, types.IntType, 1, op)
		require.NoError(t, err)
		mergeAll(t, agg, tuples)
		assert.Equal(t, []string{want}, results(t, agg), op.String())
		assert.Equal(t, 1, agg.GetTupleDesc().NumFields())
	}
}

func TestIntAggregator_AvgTruncatesTowardZero(t *testing.T) {
	td, err := tuple.NewTupleDesc([]types.Type{types.IntType}, nil)
	require.NoError(t, err)
	agg, err := NewIntAggregator(NoGrouping, types.IntType, 0, Avg)
	require.NoError(t, err)

	for _, v := range []int32{-1, -2} {
		require.NoError(t, agg.Merge(tuple.NewBuilder(td).AddInt(v).MustBuild()))
	}
	assert.Equal(t, []string{"-1\n"}, results(t, agg))
}

func TestStringAggregator(t *testing.T) {
	_, tuples := sales(t)

	agg, err := NewStringAggregator(0, types.StringType, 2, Count)
	require.NoError(t, err)
	mergeAll(t, agg, tuples)
	assert.Equal(t, []string{"north\t3\n", "south\t2\n", "east\t1\n"}, results(t, agg))

	for _, op := range []AggregateOp{Min, Max, Sum, Avg} {
		_, err := NewStringAggregator(NoGrouping, types.StringType, 2, op)
		assert.ErrorIs(t, err, dberror.ErrSchema, op.String())
	}
}

func TestAggregator_MergeErrors(t *testing.T) {
	_, tuples := sales(t)

	agg, err := NewIntAggregator(0, types.StringType, 2, Sum)
	require.NoError(t, err)
	assert.ErrorIs(t, agg.Merge(tuples[0]), dberror.ErrSchema, "aggregate field is a string")

	agg, err = NewIntAggregator(1, types.StringType, 1, Sum)
	require.NoError(t, err)
	assert.ErrorIs(t, agg.Merge(tuples[0]), dberror.ErrSchema, "group field type mismatch")

	agg, err = NewIntAggregator(NoGrouping, types.IntType, 9, Sum)
	require.NoError(t, err)
	assert.ErrorIs(t, agg.Merge(tuples[0]), dberror.ErrSchema)
	assert.ErrorIs(t, agg.Merge(nil), dberror.ErrSchema)
	assert.Empty(t, agg.Groups(), "failed merges create no group")

	_, err = NewIntAggregator(-2, types.IntType, 0, Sum)
	assert.ErrorIs(t, err, dberror.ErrSchema)
}

func TestAggregator_EmptyInput(t *testing.T) {
	agg, err := NewIntAggregator(NoGrouping, types.IntType, 0, Count)
	require.NoError(t, err)
	assert.Empty(t, results(t, agg))
}

func TestGroupKey_NoCollisions(t *testing.T) {
	assert.NotEqual(t, noGroupingKey, KeyOf(types.NewIntField(-1)))
	assert.NotEqual(t, noGroupingKey, KeyOf(types.NewStringField("")))
	assert.NotEqual(t, KeyOf(types.NewIntField(1)), KeyOf(types.NewStringField("1")))
	assert.Equal(t, KeyOf(types.NewIntField(7)), KeyOf(types.NewIntField(7)))
	assert.False(t, noGroupingKey.IsGrouped())
}

func TestGroupKey_GroupsByNegativeOne(t *testing.T) {
	td, err := tuple.NewTupleDesc([]types.Type{types.IntType, types.IntType}, nil)
	require.NoError(t, err)
	agg, err := NewIntAggregator(0, types.IntType, 1, Count)
	require.NoError(t, err)

	for _, g := range []int32{-1, 0, -1} {
		require.NoError(t, agg.Merge(tuple.NewBuilder(td).AddInt(g).AddInt(1).MustBuild()))
	}
	assert.Equal(t, []string{"-1\t2\n", "0\t1\n"}, results(t, agg))
}

func TestParseAggregateOp(t *testing.T) {
	for _, op := range []AggregateOp{Min, Max, Sum, Avg, Count} {
		parsed, err := ParseAggregateOp(op.String())
		require.NoError(t, err)
		assert.Equal(t, op, parsed)
	}
	parsed, err := ParseAggregateOp("avg")
	require.NoError(t, err)
	assert.Equal(t, Avg, parsed)

	_, err = ParseAggregateOp("median")
	assert.ErrorIs(t, err, dberror.ErrSchema)
}
