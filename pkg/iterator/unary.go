package iterator

import (
	"heapstore/pkg/dberror"
	"heapstore/pkg/tuple"
)

// UnaryOperator is the base for operators with a single child. It opens,
// rewinds and closes the child and delegates HasNext/Next to a
// BaseIterator, so embedding operators only supply their read function.
type UnaryOperator struct {
	base  *BaseIterator
	child DbIterator
}

// NewUnaryOperator creates a unary operator over child.
func NewUnaryOperator(child DbIterator, readNextFunc ReadNextFunc) (*UnaryOperator, error) {
	if child == nil {
		return nil, dberror.New(dberror.KindSchema, "UnaryOperator", "New", "child operator cannot be nil")
	}

	return &UnaryOperator{
		child: child,
		base:  NewBaseIterator(readNextFunc),
	}, nil
}

// FetchNext reads one tuple from the child, or nil at end of data.
func (u *UnaryOperator) FetchNext() (*tuple.Tuple, error) {
	hasNext, err := u.child.HasNext()
	if err != nil || !hasNext {
		return nil, err
	}
	return u.child.Next()
}

// Open opens the child operator and marks this operator as ready.
func (u *UnaryOperator) Open() error {
	if err := u.child.Open(); err != nil {
		return err
	}
	u.base.MarkOpened()
	return nil
}

// Close closes the child operator and releases resources.
func (u *UnaryOperator) Close() error {
	if err := u.child.Close(); err != nil {
		return err
	}
	return u.base.Close()
}

// Rewind resets both the child operator and the lookahead cache.
func (u *UnaryOperator) Rewind() error {
	if err := u.child.Rewind(); err != nil {
		return err
	}
	return u.base.Rewind()
}

// GetTupleDesc returns the child's tuple description. Operators that
// change the schema override it.
func (u *UnaryOperator) GetTupleDesc() *tuple.TupleDescription {
	return u.child.GetTupleDesc()
}

func (u *UnaryOperator) HasNext() (bool, error) {
	return u.base.HasNext()
}

func (u *UnaryOperator) Next() (*tuple.Tuple, error) {
	return u.base.Next()
}

// GetChild returns the child operator.
func (u *UnaryOperator) GetChild() DbIterator {
	return u.child
}
