package aggregation

import (
	"heapstore/pkg/types"
)

// GroupKey identifies one aggregation group. The ungrouped key is distinct
// from the key of every field value, and keys of fields of different types
// never collide.
type GroupKey struct {
	grouped   bool
	fieldType types.Type
	value     string
}

var noGroupingKey = GroupKey{}

// KeyOf returns the group key of a group-by field value.
func KeyOf(f types.Field) GroupKey {
	return GroupKey{
		grouped:   true,
		fieldType: f.Type(),
		value:     f.String(),
	}
}

// IsGrouped reports whether k belongs to a grouped aggregate.
func (k GroupKey) IsGrouped() bool {
	return k.grouped
}

func (k GroupKey) String() string {
	if !k.grouped {
		return "<no grouping>"
	}
	return k.fieldType.String() + ":" + k.value
}

// groupState is the running aggregate of one group.
type groupState struct {
	groupField types.Field
	count      int64
	sum        int64
	min        int32
	max        int32
}

func (s *groupState) observe(v int32) {
	if s.count == 0 || v < s.min {
		s.min = v
	}
	if s.count == 0 || v > s.max {
		s.max = v
	}
	s.sum += int64(v)
	s.count++
}
