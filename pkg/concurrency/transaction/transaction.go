// Package transaction provides transaction identities.
package transaction

import (
	"fmt"
	"sync/atomic"
)

var transactionCounter int64

// TransactionID identifies one transaction. Lock and dirty-page bookkeeping
// is keyed by the pointer, so callers must reuse the value returned by
// NewTransactionID for the lifetime of the transaction.
type TransactionID struct {
	id int64
}

// NewTransactionID allocates a fresh, process-unique transaction ID.
func NewTransactionID() *TransactionID {
	return &TransactionID{
		id: atomic.AddInt64(&transactionCounter, 1),
	}
}

func (tid *TransactionID) ID() int64 {
	return tid.id
}

func (tid *TransactionID) String() string {
	return fmt.Sprintf("TID-%d", tid.id)
}

func (tid *TransactionID) Equals(other *TransactionID) bool {
	if tid == nil || other == nil {
		return tid == other
	}
	return tid.id == other.id
}

// Permissions is the access mode a transaction requests a page with.
// ReadOnly maps to a shared lock, ReadWrite to an exclusive one.
type Permissions int

const (
	ReadOnly Permissions = iota
	ReadWrite
)

func (p Permissions) String() string {
	if p == ReadWrite {
		return "READ_WRITE"
	}
	return "READ_ONLY"
}
