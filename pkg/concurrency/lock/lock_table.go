package lock

import (
	"slices"

	"heapstore/pkg/concurrency/transaction"
	"heapstore/pkg/storage/page"
)

// LockTable maps pages to their holders and transactions to the pages they
// hold. For any page the holders are either all shared or one exclusive.
// It is not synchronized; the LockManager mutex guards it.
type LockTable struct {
	pageLocks        map[page.ID][]*Lock
	transactionLocks map[*transaction.TransactionID]map[page.ID]LockType
}

func NewLockTable() *LockTable {
	return &LockTable{
		pageLocks:        make(map[page.ID][]*Lock),
		transactionLocks: make(map[*transaction.TransactionID]map[page.ID]LockType),
	}
}

// HasSufficientLock checks if the transaction already holds a lock on the
// page that covers reqLockType.
func (lt *LockTable) HasSufficientLock(tid *transaction.TransactionID, pid page.ID, reqLockType LockType) bool {
	held, ok := lt.LockTypeOf(tid, pid)
	return ok && held.covers(reqLockType)
}

// LockTypeOf returns the mode tid holds on pid, if any.
func (lt *LockTable) LockTypeOf(tid *transaction.TransactionID, pid page.ID) (LockType, bool) {
	held, ok := lt.transactionLocks[tid][pid]
	return held, ok
}

func (lt *LockTable) GetPageLocks(pid page.ID) []*Lock {
	return lt.pageLocks[pid]
}

// AddLock records a grant. If tid already holds a lock on pid the existing
// entry is upgraded in place, so a page never lists a transaction twice.
func (lt *LockTable) AddLock(tid *transaction.TransactionID, pid page.ID, lockType LockType) {
	if held, ok := lt.LockTypeOf(tid, pid); ok {
		if !held.covers(lockType) {
			lt.upgradeLock(tid, pid)
		}
		return
	}

	lt.pageLocks[pid] = append(lt.pageLocks[pid], NewLock(tid, lockType))
	if lt.transactionLocks[tid] == nil {
		lt.transactionLocks[tid] = make(map[page.ID]LockType)
	}
	lt.transactionLocks[tid][pid] = lockType
}

func (lt *LockTable) IsPageLocked(pid page.ID) bool {
	return len(lt.pageLocks[pid]) > 0
}

// PagesOf returns the pages tid holds locks on.
func (lt *LockTable) PagesOf(tid *transaction.TransactionID) []page.ID {
	pages := make([]page.ID, 0, len(lt.transactionLocks[tid]))
	for pid := range lt.transactionLocks[tid] {
		pages = append(pages, pid)
	}
	return pages
}

// ReleaseAllLocks drops every lock tid holds and returns the affected pages.
func (lt *LockTable) ReleaseAllLocks(tid *transaction.TransactionID) []page.ID {
	affectedPages := lt.PagesOf(tid)
	for _, pid := range affectedPages {
		lt.removeFromPage(tid, pid)
	}
	delete(lt.transactionLocks, tid)
	return affectedPages
}

func (lt *LockTable) ReleaseLock(tid *transaction.TransactionID, pid page.ID) {
	lt.removeFromPage(tid, pid)

	if txPages, exists := lt.transactionLocks[tid]; exists {
		delete(txPages, pid)
		if len(txPages) == 0 {
			delete(lt.transactionLocks, tid)
		}
	}
}

func (lt *LockTable) upgradeLock(tid *transaction.TransactionID, pid page.ID) {
	for _, lock := range lt.pageLocks[pid] {
		if lock.TID == tid {
			lock.LockType = ExclusiveLock
			break
		}
	}
	lt.transactionLocks[tid][pid] = ExclusiveLock
}

func (lt *LockTable) removeFromPage(tid *transaction.TransactionID, pid page.ID) {
	removeFromList(lt.pageLocks, pid, func(l *Lock) bool { return l.TID == tid })
}

// removeFromList drops the entries of m[key] that match, deleting key once
// its list is empty.
func removeFromList[K comparable, V any](m map[K][]V, key K, match func(V) bool) {
	list, exists := m[key]
	if !exists {
		return
	}
	remaining := slices.DeleteFunc(slices.Clone(list), match)
	if len(remaining) > 0 {
		m[key] = remaining
	} else {
		delete(m, key)
	}
}
