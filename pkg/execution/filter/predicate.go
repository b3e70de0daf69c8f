// Package filter implements selection: an operator that passes through only
// the child tuples satisfying a field-versus-constant predicate.
package filter

import (
	"fmt"
	"strconv"
	"strings"

	"heapstore/pkg/dberror"
	"heapstore/pkg/primitives"
	"heapstore/pkg/tuple"
	"heapstore/pkg/types"
)

// Predicate compares one tuple field to a constant.
type Predicate struct {
	fieldIndex int
	op         primitives.Predicate
	operand    types.Field
}

// NewPredicate creates a predicate "field[fieldIndex] op operand".
func NewPredicate(fieldIndex int, op primitives.Predicate, operand types.Field) *Predicate {
	return &Predicate{
		fieldIndex: fieldIndex,
		op:         op,
		operand:    operand,
	}
}

// operators in match order; two-character operators must precede their prefixes.
var operators = []struct {
	token string
	op    primitives.Predicate
}{
	{">=", primitives.GreaterThanOrEqual},
	{"<=", primitives.LessThanOrEqual},
	{"!=", primitives.NotEqual},
	{" like ", primitives.Like},
	{"=", primitives.Equals},
	{"<", primitives.LessThan},
	{">", primitives.GreaterThan},
}

// ParsePredicate parses "field op value", e.g. "1>=30" or "0 like ada",
// typing the value by the field's type in td.
func ParsePredicate(td *tuple.TupleDescription, expr string) (*Predicate, error) {
	lowered := strings.ToLower(expr)
	for _, o := range operators {
		idx := strings.Index(lowered, o.token)
		if idx < 0 {
			continue
		}

		left := strings.TrimSpace(expr[:idx])
		right := strings.TrimSpace(expr[idx+len(o.token):])
		fieldIndex, err := strconv.Atoi(left)
		if err != nil {
			return nil, dberror.New(dberror.KindSchema, "Predicate", "Parse", "field %q is not an index", left)
		}

		fieldType, err := td.TypeAtIndex(fieldIndex)
		if err != nil {
			return nil, err
		}
		operand, err := parseOperand(fieldType, right)
		if err != nil {
			return nil, err
		}
		return NewPredicate(fieldIndex, o.op, operand), nil
	}
	return nil, dberror.New(dberror.KindSchema, "Predicate", "Parse", "no comparison operator in %q", expr)
}

func parseOperand(t types.Type, raw string) (types.Field, error) {
	if t == types.IntType {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, dberror.Wrap(err, dberror.KindSchema, "Predicate", "Parse", "operand %q is not an INT", raw)
		}
		return types.NewIntField(int32(n)), nil
	}
	return types.NewStringField(raw), nil
}

// Filter reports whether t satisfies the predicate.
func (p *Predicate) Filter(t *tuple.Tuple) (bool, error) {
	field, err := t.GetField(p.fieldIndex)
	if err != nil {
		return false, err
	}
	if field == nil {
		return false, nil
	}
	return field.Compare(p.op, p.operand)
}

func (p *Predicate) String() string {
	return fmt.Sprintf("field[%d] %s %s", p.fieldIndex, p.op, p.operand)
}
