package lock

import (
	"heapstore/pkg/concurrency/transaction"
	"heapstore/pkg/storage/page"
)

// LockGrantor decides lock compatibility against a LockTable and records
// grants in it.
type LockGrantor struct {
	lockTable *LockTable
}

func NewLockGrantor(lockTable *LockTable) *LockGrantor {
	return &LockGrantor{lockTable: lockTable}
}

// CanGrantImmediately reports whether tid can take lockType on pid without
// waiting. Locks tid itself holds never conflict, so a sole shared holder
// may upgrade.
func (lg *LockGrantor) CanGrantImmediately(tid *transaction.TransactionID, pid page.ID, lockType LockType) bool {
	for _, lock := range lg.lockTable.GetPageLocks(pid) {
		if lock.TID == tid {
			continue
		}
		if lockType == ExclusiveLock || lock.LockType == ExclusiveLock {
			return false
		}
	}
	return true
}

// GrantLock records the grant, upgrading an existing shared lock in place.
func (lg *LockGrantor) GrantLock(tid *transaction.TransactionID, pid page.ID, lockType LockType) {
	lg.lockTable.AddLock(tid, pid, lockType)
}

// Conflicting returns the other holders of pid that block lockType for tid.
func (lg *LockGrantor) Conflicting(tid *transaction.TransactionID, pid page.ID, lockType LockType) []*transaction.TransactionID {
	var blockers []*transaction.TransactionID
	for _, lock := range lg.lockTable.GetPageLocks(pid) {
		if lock.TID == tid {
			continue
		}
		if lockType == ExclusiveLock || lock.LockType == ExclusiveLock {
			blockers = append(blockers, lock.TID)
		}
	}
	return blockers
}
