package aggregation

import (
	"heapstore/pkg/iterator"
	"heapstore/pkg/tuple"
)

// AggregateOperator drains its child on Open, folding every tuple into an
// aggregator, then yields the aggregate results.
type AggregateOperator struct {
	*iterator.UnaryOperator
	aggregator *BaseAggregator
	results    iterator.DbIterator
}

// NewAggregateOperator aggregates field aField of source with op, grouped
// by gField or NoGrouping.
func NewAggregateOperator(source iterator.DbIterator, aField, gField int, op AggregateOp) (*AggregateOperator, error) {
	agg := &AggregateOperator{}
	unary, err := iterator.NewUnaryOperator(source, agg.readNext)
	if err != nil {
		return nil, err
	}

	sourceDesc := source.GetTupleDesc()
	aFieldType, err := sourceDesc.TypeAtIndex(aField)
	if err != nil {
		return nil, err
	}
	gbFieldType := aFieldType
	if gField != NoGrouping {
		if gbFieldType, err = sourceDesc.TypeAtIndex(gField); err != nil {
			return nil, err
		}
	}

	aggregator, err := NewAggregator(gField, gbFieldType, aField, aFieldType, op)
	if err != nil {
		return nil, err
	}

	agg.UnaryOperator = unary
	agg.aggregator = aggregator
	return agg, nil
}

// Open opens the child and computes every group.
func (agg *AggregateOperator) Open() error {
	if err := agg.UnaryOperator.Open(); err != nil {
		return err
	}

	agg.aggregator.Reset()
	if err := iterator.ForEach(agg.GetChild(), agg.aggregator.Merge); err != nil {
		return err
	}

	agg.results = agg.aggregator.Iterator()
	return agg.results.Open()
}

// Rewind replays the computed results without re-reading the child.
func (agg *AggregateOperator) Rewind() error {
	if err := agg.UnaryOperator.Rewind(); err != nil {
		return err
	}
	if agg.results == nil {
		return nil
	}
	return agg.results.Rewind()
}

func (agg *AggregateOperator) Close() error {
	if agg.results != nil {
		_ = agg.results.Close()
		agg.results = nil
	}
	return agg.UnaryOperator.Close()
}

// GetTupleDesc describes the result tuples, not the child's.
func (agg *AggregateOperator) GetTupleDesc() *tuple.TupleDescription {
	return agg.aggregator.GetTupleDesc()
}

func (agg *AggregateOperator) readNext() (*tuple.Tuple, error) {
	if agg.results == nil {
		return nil, nil
	}
	hasNext, err := agg.results.HasNext()
	if err != nil || !hasNext {
		return nil, err
	}
	return agg.results.Next()
}
