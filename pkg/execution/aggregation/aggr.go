// Package aggregation computes MIN, MAX, SUM, AVG and COUNT over a stream of
// tuples, optionally grouped by one field. It consumes storage only through
// the iterator contract.
package aggregation

import (
	"strings"

	"heapstore/pkg/dberror"
	"heapstore/pkg/iterator"
	"heapstore/pkg/tuple"
)

// NoGrouping is passed as the group-by field index for a single,
// ungrouped aggregate.
const NoGrouping = -1

// AggregateOp represents the type of aggregation operation to perform
type AggregateOp int

const (
	Min AggregateOp = iota
	Max
	Sum
	Avg
	Count
)

func (op AggregateOp) String() string {
	switch op {
	case Min:
		return "MIN"
	case Max:
		return "MAX"
	case Sum:
		return "SUM"
	case Avg:
		return "AVG"
	case Count:
		return "COUNT"
	default:
		return "UNKNOWN"
	}
}

// ParseAggregateOp converts an operation name, in any case, to an AggregateOp.
func ParseAggregateOp(opStr string) (AggregateOp, error) {
	switch strings.ToUpper(opStr) {
	case "MIN":
		return Min, nil
	case "MAX":
		return Max, nil
	case "SUM":
		return Sum, nil
	case "AVG":
		return Avg, nil
	case "COUNT":
		return Count, nil
	default:
		return 0, dberror.New(dberror.KindSchema, "Aggregator", "ParseAggregateOp",
			"unsupported aggregate operation: %s", opStr)
	}
}

// Aggregator folds tuples into per-group aggregate state.
type Aggregator interface {
	// Merge folds one tuple into its group.
	Merge(tup *tuple.Tuple) error

	// Iterator returns a closed iterator over (aggregate) or
	// (group, aggregate) tuples, groups in first-seen order.
	Iterator() iterator.DbIterator

	GetTupleDesc() *tuple.TupleDescription
}
