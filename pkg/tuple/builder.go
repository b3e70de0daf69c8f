package tuple

import (
	"fmt"

	"heapstore/pkg/dberror"
	"heapstore/pkg/types"
)

// Builder provides a fluent interface for constructing tuples
type Builder struct {
	tuple        *Tuple
	currentIndex int
	err          error
}

// NewBuilder creates a new tuple builder with the given schema
func NewBuilder(td *TupleDescription) *Builder {
	return &Builder{
		tuple: NewTuple(td),
	}
}

// AddInt adds an integer field at the current index
func (b *Builder) AddInt(value int32) *Builder {
	return b.AddField(types.NewIntField(value))
}

// AddString adds a string field at the current index
func (b *Builder) AddString(value string) *Builder {
	return b.AddField(types.NewStringField(value))
}

// AddField adds a generic field at the current index
func (b *Builder) AddField(field types.Field) *Builder {
	if b.err != nil {
		return b
	}
	expected, err := b.tuple.TupleDesc.TypeAtIndex(b.currentIndex)
	if err != nil {
		b.err = err
		return b
	}
	if field.Type() != expected {
		b.err = dberror.New(dberror.KindSchema, "Builder", "AddField",
			"field %d: expected %v, got %v", b.currentIndex, expected, field.Type())
		return b
	}
	b.tuple.fields[b.currentIndex] = field
	b.currentIndex++
	return b
}

// Build returns the constructed tuple or an error if any operation failed
func (b *Builder) Build() (*Tuple, error) {
	if b.err != nil {
		return nil, b.err
	}

	if b.currentIndex != b.tuple.TupleDesc.NumFields() {
		return nil, dberror.New(dberror.KindSchema, "Builder", "Build",
			"incomplete tuple: expected %d fields, got %d", b.tuple.TupleDesc.NumFields(), b.currentIndex)
	}

	return b.tuple, nil
}

// MustBuild returns the tuple or panics on error (use only when errors are impossible)
func (b *Builder) MustBuild() *Tuple {
	t, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("tuple builder error: %v", err))
	}
	return t
}
