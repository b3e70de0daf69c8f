package aggregation

import (
	"heapstore/pkg/dberror"
	"heapstore/pkg/types"
)

// AggregateCalculator holds the type-specific part of an aggregator.
type AggregateCalculator interface {
	FieldType() types.Type
	ValidateOperation(op AggregateOp) error
	UpdateAggregate(state *groupState, f types.Field) error
	FinalValue(state *groupState, op AggregateOp) types.Field
}

// IntCalculator aggregates IntFields and supports every operation. AVG
// truncates toward zero; SUM wraps to 32 bits.
type IntCalculator struct{}

func (IntCalculator) FieldType() types.Type { return types.IntType }

func (IntCalculator) ValidateOperation(op AggregateOp) error {
	switch op {
	case Min, Max, Sum, Avg, Count:
		return nil
	default:
		return unsupported(types.IntType, op)
	}
}

func (IntCalculator) UpdateAggregate(state *groupState, f types.Field) error {
	intField, ok := f.(*types.IntField)
	if !ok {
		return dberror.New(dberror.KindSchema, "IntCalculator", "UpdateAggregate",
			"expected INT_TYPE field, got %T", f)
	}
	state.observe(intField.Value)
	return nil
}

func (IntCalculator) FinalValue(state *groupState, op AggregateOp) types.Field {
	switch op {
	case Min:
		return types.NewIntField(state.min)
	case Max:
		return types.NewIntField(state.max)
	case Sum:
		return types.NewIntField(int32(state.sum)) // #nosec G115
	case Avg:
		return types.NewIntField(int32(state.sum / state.count)) // #nosec G115
	default:
		return types.NewIntField(int32(state.count)) // #nosec G115
	}
}

// StringCalculator aggregates StringFields and supports COUNT only.
type StringCalculator struct{}

func (StringCalculator) FieldType() types.Type { return types.StringType }

func (StringCalculator) ValidateOperation(op AggregateOp) error {
	if op != Count {
		return unsupported(types.StringType, op)
	}
	return nil
}

func (StringCalculator) UpdateAggregate(state *groupState, f types.Field) error {
	if _, ok := f.(*types.StringField); !ok {
		return dberror.New(dberror.KindSchema, "StringCalculator", "UpdateAggregate",
			"expected STRING_TYPE field, got %T", f)
	}
	state.count++
	return nil
}

func (StringCalculator) FinalValue(state *groupState, _ AggregateOp) types.Field {
	return types.NewIntField(int32(state.count)) // #nosec G115
}

func unsupported(t types.Type, op AggregateOp) error {
	return dberror.New(dberror.KindSchema, "Aggregator", "ValidateOperation",
		"%s aggregator does not support %s", t, op)
}
