package main

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"heapstore/pkg/execution/aggregation"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/heap"
	"heapstore/pkg/storage/page"
	"heapstore/pkg/tuple"
	"heapstore/pkg/types"
)

// parseSchema builds a schema from "int,string" and optional "id,name".
func parseSchema(typeList, nameList string) (*tuple.TupleDescription, error) {
	typeNames := splitList(typeList, ",")
	fieldTypes := make([]types.Type, len(typeNames))
	for i, name := range typeNames {
		t, err := types.ParseType(name)
		if err != nil {
			return nil, errors.Wrapf(err, "field %d", i)
		}
		fieldTypes[i] = t
	}

	var names []string
	if nameList != "" {
		names = splitList(nameList, ",")
	}
	return tuple.NewTupleDesc(fieldTypes, names)
}

// parseRows turns "1,ada;2,grace" into tuples of td.
func parseRows(td *tuple.TupleDescription, list string) ([]*tuple.Tuple, error) {
	var rows []*tuple.Tuple
	for i, row := range splitList(list, ";") {
		values := splitList(row, ",")
		if len(values) != td.NumFields() {
			return nil, errors.Errorf("row %d has %d values, schema has %d fields", i, len(values), td.NumFields())
		}

		b := tuple.NewBuilder(td)
		for j, v := range values {
			ft, _ := td.TypeAtIndex(j)
			switch ft {
			case types.IntType:
				n, err := strconv.ParseInt(v, 10, 32)
				if err != nil {
					return nil, errors.Wrapf(err, "row %d field %d", i, j)
				}
				b.AddInt(int32(n))
			default:
				b.AddString(v)
			}
		}

		t, err := b.Build()
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		rows = append(rows, t)
	}
	return rows, nil
}

// parseAggregate parses "op:field" or "op:field:groupField".
func parseAggregate(expr string) (aggregation.AggregateOp, int, int, error) {
	parts := strings.Split(expr, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, errors.Errorf("aggregate %q is not op:field[:groupField]", expr)
	}

	op, err := aggregation.ParseAggregateOp(parts[0])
	if err != nil {
		return 0, 0, 0, err
	}
	aField, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, errors.Wrap(err, "aggregate field")
	}

	gField := aggregation.NoGrouping
	if len(parts) == 3 {
		if gField, err = strconv.Atoi(parts[2]); err != nil {
			return 0, 0, 0, errors.Wrap(err, "group field")
		}
	}
	return op, aField, gField, nil
}

func pageIDOf(hf *heap.HeapFile, pageNo primitives.PageNumber) page.ID {
	return page.NewID(hf.GetID(), pageNo)
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
