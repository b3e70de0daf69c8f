package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heapstore/pkg/dberror"
	"heapstore/pkg/iterator"
	"heapstore/pkg/primitives"
	"heapstore/pkg/tuple"
	"heapstore/pkg/types"
)

func people(t *testing.T) (*tuple.TupleDescription, []*tuple.Tuple) {
	t.Helper()
	td, err := tuple.NewTupleDesc([]types.Type{types.IntType, types.StringType}, []string{"age", "name"})
	require.NoError(t, err)

	var rows []*tuple.Tuple
	for _, p := range []struct {
		age  int32
		name string
	}{{31, "ada"}, {45, "grace"}, {28, "barbara"}, {45, "edsger"}} {
		rows = append(rows, tuple.NewBuilder(td).AddInt(p.age).AddString(p.name).MustBuild())
	}
	return td, rows
}

func names(t *testing.T, it iterator.DbIterator) []string {
	t.Helper()
	all, err := iterator.Collect(it)
	require.NoError(t, err)

	out := make([]string, len(all))
	for i, tup := range all {
		f, err := tup.GetField(1)
		require.NoError(t, err)
		out[i] = f.String()
	}
	return out
}

func TestParsePredicate(t *testing.T) {
	td, _ := people(t)

	p, err := ParsePredicate(td, "0>=45")
	require.NoError(t, err)
	assert.Equal(t, "field[0] >= 45", p.String())

	p, err = ParsePredicate(td, "1 LIKE ra")
	require.NoError(t, err)
	assert.Equal(t, "field[1] LIKE ra", p.String())

	p, err = ParsePredicate(td, "0 != 31")
	require.NoError(t, err)
	assert.Equal(t, primitives.NotEqual, p.op)

	for _, bad := range []string{"0 ~ 1", "x=1", "5=1", "0=abc"} {
		_, err := ParsePredicate(td, bad)
		assert.ErrorIs(t, err, dberror.ErrSchema, bad)
	}
}

func TestFilter(t *testing.T) {
	td, rows := people(t)

	cases := []struct {
		expr string
		want []string
	}{
		{"0=45", []string{"grace", "edsger"}},
		{"0<31", []string{"barbara"}},
		{"1 like ar", []string{"barbara"}},
		{"0>100", []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			pred, err := ParsePredicate(td, tc.expr)
			require.NoError(t, err)

			f, err := NewFilter(pred, iterator.NewTupleSliceIterator(td, rows))
			require.NoError(t, err)
			require.NoError(t, f.Open())
			defer f.Close()

			assert.Equal(t, tc.want, names(t, f))
			assert.Same(t, td, f.GetTupleDesc())

			require.NoError(t, f.Rewind())
			assert.Equal(t, tc.want, names(t, f), "after rewind")
		})
	}
}

func TestNewFilter_Errors(t *testing.T) {
	td, rows := people(t)
	_, err := NewFilter(nil, iterator.NewTupleSliceIterator(td, rows))
	assert.ErrorIs(t, err, dberror.ErrSchema)

	_, err = NewFilter(NewPredicate(0, primitives.Equals, types.NewIntField(1)), nil)
	assert.ErrorIs(t, err, dberror.ErrSchema)
}
