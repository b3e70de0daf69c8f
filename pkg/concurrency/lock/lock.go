package lock

import (
	"time"

	"heapstore/pkg/concurrency/transaction"
)

type LockType int

const (
	SharedLock LockType = iota
	ExclusiveLock
)

func (lt LockType) String() string {
	if lt == ExclusiveLock {
		return "EXCLUSIVE"
	}
	return "SHARED"
}

// covers reports whether holding lt satisfies a request for req.
func (lt LockType) covers(req LockType) bool {
	return lt == ExclusiveLock || req == SharedLock
}

// Lock is one granted (transaction, mode) holder of a page.
type Lock struct {
	TID       *transaction.TransactionID
	LockType  LockType
	GrantTime time.Time
}

// LockRequest is a pending request. Chan receives once when the request is
// granted on the waiter's behalf.
type LockRequest struct {
	TID      *transaction.TransactionID
	LockType LockType
	Chan     chan struct{}
}

func NewLock(tid *transaction.TransactionID, lockType LockType) *Lock {
	return &Lock{
		TID:       tid,
		LockType:  lockType,
		GrantTime: time.Now(),
	}
}

func NewLockRequest(tid *transaction.TransactionID, lockType LockType) *LockRequest {
	return &LockRequest{
		TID:      tid,
		LockType: lockType,
		Chan:     make(chan struct{}, 1),
	}
}

// signal never blocks; the channel is buffered for exactly one grant.
func (r *LockRequest) signal() {
	select {
	case r.Chan <- struct{}{}:
	default:
	}
}
