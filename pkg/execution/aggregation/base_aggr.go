package aggregation

import (
	"sync"

	"heapstore/pkg/dberror"
	"heapstore/pkg/iterator"
	"heapstore/pkg/tuple"
	"heapstore/pkg/types"
)

// BaseAggregator holds the grouping logic shared by every field type and
// delegates value handling to its calculator.
type BaseAggregator struct {
	gbField     int
	gbFieldType types.Type
	aField      int
	op          AggregateOp
	tupleDesc   *tuple.TupleDescription
	calculator  AggregateCalculator

	mutex  sync.RWMutex
	groups map[GroupKey]*groupState
	order  []GroupKey
}

// NewAggregator picks the calculator for aFieldType. gbFieldType is ignored
// when gbField is NoGrouping.
func NewAggregator(gbField int, gbFieldType types.Type, aField int, aFieldType types.Type, op AggregateOp) (*BaseAggregator, error) {
	switch aFieldType {
	case types.IntType:
		return NewIntAggregator(gbField, gbFieldType, aField, op)
	case types.StringType:
		return NewStringAggregator(gbField, gbFieldType, aField, op)
	default:
		return nil, dberror.New(dberror.KindSchema, "Aggregator", "NewAggregator",
			"unsupported field type for aggregation: %v", aFieldType)
	}
}

func NewIntAggregator(gbField int, gbFieldType types.Type, aField int, op AggregateOp) (*BaseAggregator, error) {
	return NewBaseAggregator(gbField, gbFieldType, aField, op, IntCalculator{})
}

func NewStringAggregator(gbField int, gbFieldType types.Type, aField int, op AggregateOp) (*BaseAggregator, error) {
	return NewBaseAggregator(gbField, gbFieldType, aField, op, StringCalculator{})
}

func NewBaseAggregator(gbField int, gbFieldType types.Type, aField int, op AggregateOp, calculator AggregateCalculator) (*BaseAggregator, error) {
	if err := calculator.ValidateOperation(op); err != nil {
		return nil, err
	}
	if aField < 0 || (gbField < 0 && gbField != NoGrouping) {
		return nil, dberror.New(dberror.KindSchema, "Aggregator", "New",
			"invalid field indexes: group %d, aggregate %d", gbField, aField)
	}

	agg := &BaseAggregator{
		gbField:     gbField,
		gbFieldType: gbFieldType,
		aField:      aField,
		op:          op,
		calculator:  calculator,
		groups:      make(map[GroupKey]*groupState),
	}

	td, err := agg.createTupleDesc()
	if err != nil {
		return nil, err
	}
	agg.tupleDesc = td
	return agg, nil
}

func (ba *BaseAggregator) createTupleDesc() (*tuple.TupleDescription, error) {
	if ba.gbField == NoGrouping {
		return tuple.NewTupleDesc([]types.Type{types.IntType}, []string{ba.op.String()})
	}
	return tuple.NewTupleDesc(
		[]types.Type{ba.gbFieldType, types.IntType},
		[]string{"group", ba.op.String()},
	)
}

func (ba *BaseAggregator) GetTupleDesc() *tuple.TupleDescription {
	return ba.tupleDesc
}

// Merge folds tup into its group, creating the group on first sight.
func (ba *BaseAggregator) Merge(tup *tuple.Tuple) error {
	if tup == nil {
		return dberror.New(dberror.KindSchema, "Aggregator", "Merge", "tuple cannot be nil")
	}

	key, groupField, err := ba.extractGroupKey(tup)
	if err != nil {
		return err
	}
	aggField, err := tup.GetField(ba.aField)
	if err != nil {
		return err
	}

	ba.mutex.Lock()
	defer ba.mutex.Unlock()

	state, exists := ba.groups[key]
	if !exists {
		state = &groupState{groupField: groupField}
	}
	if err := ba.calculator.UpdateAggregate(state, aggField); err != nil {
		return err
	}
	if !exists {
		ba.groups[key] = state
		ba.order = append(ba.order, key)
	}
	return nil
}

// Reset drops every group.
func (ba *BaseAggregator) Reset() {
	ba.mutex.Lock()
	defer ba.mutex.Unlock()
	clear(ba.groups)
	ba.order = nil
}

// Groups returns the group keys in first-seen order.
func (ba *BaseAggregator) Groups() []GroupKey {
	ba.mutex.RLock()
	defer ba.mutex.RUnlock()
	return append([]GroupKey(nil), ba.order...)
}

// Iterator snapshots the current results. Later merges are not visible to it.
func (ba *BaseAggregator) Iterator() iterator.DbIterator {
	ba.mutex.RLock()
	defer ba.mutex.RUnlock()

	results := make([]*tuple.Tuple, 0, len(ba.order))
	for _, key := range ba.order {
		state := ba.groups[key]
		value := ba.calculator.FinalValue(state, ba.op)

		b := tuple.NewBuilder(ba.tupleDesc)
		if key.IsGrouped() {
			b.AddField(state.groupField)
		}
		results = append(results, b.AddField(value).MustBuild())
	}
	return iterator.NewTupleSliceIterator(ba.tupleDesc, results)
}

func (ba *BaseAggregator) extractGroupKey(tup *tuple.Tuple) (GroupKey, types.Field, error) {
	if ba.gbField == NoGrouping {
		return noGroupingKey, nil, nil
	}

	groupField, err := tup.GetField(ba.gbField)
	if err != nil {
		return GroupKey{}, nil, err
	}
	if groupField == nil || groupField.Type() != ba.gbFieldType {
		return GroupKey{}, nil, dberror.New(dberror.KindSchema, "Aggregator", "Merge",
			"group field %d is not %s", ba.gbField, ba.gbFieldType)
	}
	return KeyOf(groupField), groupField, nil
}
