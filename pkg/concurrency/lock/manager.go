package lock

import (
	"sync"
	"time"

	"heapstore/pkg/concurrency/transaction"
	"heapstore/pkg/dberror"
	"heapstore/pkg/logging"
	"heapstore/pkg/storage/page"
)

const component = "LockManager"

// LockManager enforces page-level shared/exclusive locking for the buffer
// pool. All bookkeeping is guarded by one mutex; blocked callers wait
// outside it.
type LockManager struct {
	mutex         sync.Mutex
	lockTable     *LockTable
	waitQueue     *WaitQueue
	depGraph      *DependencyGraph
	grantor       *LockGrantor
	timeout       time.Duration
	retryInterval time.Duration
}

// NewLockManager creates a lock manager whose requests give up after
// timeout, re-checking their page at most every retryInterval.
func NewLockManager(timeout, retryInterval time.Duration) *LockManager {
	lockTable := NewLockTable()
	return &LockManager{
		lockTable:     lockTable,
		waitQueue:     NewWaitQueue(),
		depGraph:      NewDependencyGraph(),
		grantor:       NewLockGrantor(lockTable),
		timeout:       timeout,
		retryInterval: retryInterval,
	}
}

// LockPage acquires a shared or exclusive lock on pid for tid, blocking
// until it is granted. A request that would close a wait-for cycle, or that
// is still waiting after the timeout, fails with ErrConcurrencyTimeout; the
// caller must then abort tid.
func (lm *LockManager) LockPage(tid *transaction.TransactionID, pid page.ID, exclusive bool) error {
	lockType := SharedLock
	if exclusive {
		lockType = ExclusiveLock
	}

	lm.mutex.Lock()
	if lm.tryGrant(tid, pid, lockType) {
		lm.mutex.Unlock()
		return nil
	}

	req, err := lm.waitQueue.Add(tid, pid, lockType)
	if err != nil {
		lm.mutex.Unlock()
		return err
	}
	if err := lm.refreshEdges(tid, pid, lockType); err != nil {
		lm.mutex.Unlock()
		return err
	}
	lm.mutex.Unlock()

	return lm.wait(tid, pid, lockType, req)
}

// UnlockPage releases tid's lock on pid and wakes compatible waiters. The
// wait-for edges of requests still queued on pid are rebuilt, so none keeps
// pointing at tid. Strict two-phase locking callers only release at
// transaction end.
func (lm *LockManager) UnlockPage(tid *transaction.TransactionID, pid page.ID) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	lm.lockTable.ReleaseLock(tid, pid)
	lm.processWaitQueue(pid)
}

// UnlockAllPages releases every lock tid holds, withdraws its pending
// requests and wakes the waiters of each released page.
func (lm *LockManager) UnlockAllPages(tid *transaction.TransactionID) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	released := lm.lockTable.ReleaseAllLocks(tid)
	lm.waitQueue.RemoveAllForTransaction(tid)
	lm.depGraph.RemoveTransaction(tid)

	for _, pid := range released {
		lm.processWaitQueue(pid)
	}
}

// IsPageLocked reports whether any transaction holds a lock on pid.
func (lm *LockManager) IsPageLocked(pid page.ID) bool {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	return lm.lockTable.IsPageLocked(pid)
}

// HoldsLock reports whether tid holds any lock on pid.
func (lm *LockManager) HoldsLock(tid *transaction.TransactionID, pid page.ID) bool {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	_, ok := lm.lockTable.LockTypeOf(tid, pid)
	return ok
}

// holdsExclusive reports whether tid holds an exclusive lock on pid.
func (lm *LockManager) holdsExclusive(tid *transaction.TransactionID, pid page.ID) bool {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	held, ok := lm.lockTable.LockTypeOf(tid, pid)
	return ok && held == ExclusiveLock
}

// LockedPages returns the pages tid currently holds locks on, in no
// particular order.
func (lm *LockManager) LockedPages(tid *transaction.TransactionID) []page.ID {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	return lm.lockTable.PagesOf(tid)
}

// tryGrant grants the request if it is already covered or compatible with
// every other holder. Caller holds lm.mutex.
func (lm *LockManager) tryGrant(tid *transaction.TransactionID, pid page.ID, lockType LockType) bool {
	if lm.lockTable.HasSufficientLock(tid, pid, lockType) {
		return true
	}
	if lm.grantor.CanGrantImmediately(tid, pid, lockType) {
		lm.grantor.GrantLock(tid, pid, lockType)
		return true
	}
	return false
}

// refreshEdges rebuilds tid's wait-for edges from the current holders of
// pid. If they close a cycle the request is withdrawn and a deadlock error
// returned. Caller holds lm.mutex.
func (lm *LockManager) refreshEdges(tid *transaction.TransactionID, pid page.ID, lockType LockType) error {
	lm.rebuildEdges(tid, pid, lockType)
	if !lm.depGraph.HasCycle() {
		return nil
	}

	lm.withdraw(tid, pid)
	logging.WithTxPage(tid.ID(), pid).
		WithField("lock_type", lockType.String()).
		Warn("deadlock detected, failing lock request")
	return dberror.New(dberror.KindConcurrencyTimeout, component, "LockPage",
		"deadlock detected: %s waiting for %s lock on %s", tid, lockType, pid)
}

// rebuildEdges points tid's wait-for edges at the current conflicting
// holders of pid. Caller holds lm.mutex.
func (lm *LockManager) rebuildEdges(tid *transaction.TransactionID, pid page.ID, lockType LockType) {
	lm.depGraph.RemoveWaiter(tid)
	for _, holder := range lm.grantor.Conflicting(tid, pid, lockType) {
		lm.depGraph.AddEdge(tid, holder)
	}
}

// wait blocks until the request is granted, fails on deadlock, or times out.
func (lm *LockManager) wait(tid *transaction.TransactionID, pid page.ID, lockType LockType, req *LockRequest) error {
	timer := time.NewTimer(lm.timeout)
	defer timer.Stop()
	ticker := time.NewTicker(lm.retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-req.Chan:
			return nil

		case <-ticker.C:
			granted, err := lm.recheck(tid, pid, lockType)
			if granted || err != nil {
				return err
			}

		case <-timer.C:
			return lm.expire(tid, pid, lockType)
		}
	}
}

// recheck retries the grant and refreshes the waiter's edges, since the
// set of holders may have changed since the request was queued.
func (lm *LockManager) recheck(tid *transaction.TransactionID, pid page.ID, lockType LockType) (bool, error) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if lm.tryGrant(tid, pid, lockType) {
		lm.withdraw(tid, pid)
		return true, nil
	}
	if err := lm.refreshEdges(tid, pid, lockType); err != nil {
		return false, err
	}
	return false, nil
}

func (lm *LockManager) expire(tid *transaction.TransactionID, pid page.ID, lockType LockType) error {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	// a grant may have raced the timer
	if lm.lockTable.HasSufficientLock(tid, pid, lockType) {
		lm.withdraw(tid, pid)
		return nil
	}

	lm.withdraw(tid, pid)
	logging.WithTxPage(tid.ID(), pid).
		WithField("lock_type", lockType.String()).
		WithField("timeout", lm.timeout.String()).
		Warn("lock request timed out")
	return dberror.New(dberror.KindConcurrencyTimeout, component, "LockPage",
		"%s timed out after %s waiting for %s lock on %s", tid, lm.timeout, lockType, pid)
}

// withdraw removes tid's pending request on pid. Caller holds lm.mutex.
func (lm *LockManager) withdraw(tid *transaction.TransactionID, pid page.ID) {
	lm.waitQueue.RemoveRequest(tid, pid)
	lm.depGraph.RemoveWaiter(tid)
}

// processWaitQueue grants every queued request on pid that has become
// compatible, in arrival order, and signals its waiter. The requests left
// waiting get edges to the holders as they stand after the grants. Caller
// holds lm.mutex.
func (lm *LockManager) processWaitQueue(pid page.ID) {
	for _, req := range lm.waitQueue.GetRequests(pid) {
		if !lm.tryGrant(req.TID, pid, req.LockType) {
			continue
		}
		lm.withdraw(req.TID, pid)
		req.signal()
	}
	for _, req := range lm.waitQueue.GetRequests(pid) {
		lm.rebuildEdges(req.TID, pid, req.LockType)
	}
}
