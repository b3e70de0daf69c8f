package filter

import (
	"heapstore/pkg/dberror"
	"heapstore/pkg/iterator"
	"heapstore/pkg/tuple"
)

// Filter yields the child tuples for which the predicate holds. The schema
// is the child's.
type Filter struct {
	*iterator.UnaryOperator
	predicate *Predicate
}

func NewFilter(predicate *Predicate, child iterator.DbIterator) (*Filter, error) {
	if predicate == nil {
		return nil, dberror.New(dberror.KindSchema, "Filter", "New", "predicate cannot be nil")
	}

	f := &Filter{predicate: predicate}
	unary, err := iterator.NewUnaryOperator(child, f.readNext)
	if err != nil {
		return nil, err
	}
	f.UnaryOperator = unary
	return f, nil
}

func (f *Filter) readNext() (*tuple.Tuple, error) {
	for {
		t, err := f.FetchNext()
		if err != nil || t == nil {
			return nil, err
		}

		passes, err := f.predicate.Filter(t)
		if err != nil {
			return nil, err
		}
		if passes {
			return t, nil
		}
	}
}
