package lock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"heapstore/pkg/concurrency/transaction"
	"heapstore/pkg/dberror"
	"heapstore/pkg/storage/page"
)

const blockWindow = 50 * time.Millisecond

func newTestManager() *LockManager {
	return NewLockManager(2*time.Second, 5*time.Millisecond)
}

func waiting(lm *LockManager, pid page.ID) int {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	return len(lm.waitQueue.GetRequests(pid))
}

func assertBlocked(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
		t.Fatal("lock request returned while it should be blocked")
	case <-time.After(blockWindow):
	}
}

func TestLockManager_SharedLocksCoexist(t *testing.T) {
	lm := newTestManager()
	pid := page.NewID(1, 0)

	var g errgroup.Group
	tids := make([]*transaction.TransactionID, 10)
	for i := range tids {
		tid := transaction.NewTransactionID()
		tids[i] = tid
		g.Go(func() error { return lm.LockPage(tid, pid, false) })
	}
	require.NoError(t, g.Wait())

	for _, tid := range tids {
		assert.True(t, lm.HoldsLock(tid, pid))
		assert.False(t, lm.holdsExclusive(tid, pid))
	}
}

func TestLockManager_ExclusiveWaitsForReaders(t *testing.T) {
	lm := newTestManager()
	pid := page.NewID(1, 0)
	r1, r2, w := transaction.NewTransactionID(), transaction.NewTransactionID(), transaction.NewTransactionID()

	require.NoError(t, lm.LockPage(r1, pid, false))
	require.NoError(t, lm.LockPage(r2, pid, false))

	done := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		defer close(done)
		return lm.LockPage(w, pid, true)
	})

	assertBlocked(t, done)
	lm.UnlockAllPages(r1)
	assertBlocked(t, done)
	lm.UnlockAllPages(r2)

	require.NoError(t, g.Wait())
	assert.True(t, lm.holdsExclusive(w, pid))
	assert.Zero(t, waiting(lm, pid))
}

func TestLockManager_ReRequestIsNoop(t *testing.T) {
	lm := newTestManager()
	pid := page.NewID(1, 0)
	tid := transaction.NewTransactionID()

	require.NoError(t, lm.LockPage(tid, pid, true))
	require.NoError(t, lm.LockPage(tid, pid, false))
	require.NoError(t, lm.LockPage(tid, pid, true))

	assert.True(t, lm.holdsExclusive(tid, pid))
	assert.Equal(t, []page.ID{pid}, lm.LockedPages(tid))
}

func TestLockManager_UpgradeSoleHolder(t *testing.T) {
	lm := newTestManager()
	pid := page.NewID(1, 0)
	tid := transaction.NewTransactionID()

	require.NoError(t, lm.LockPage(tid, pid, false))
	require.NoError(t, lm.LockPage(tid, pid, true))
	assert.True(t, lm.holdsExclusive(tid, pid))
}

func TestLockManager_UpgradeWaitsForOtherReader(t *testing.T) {
	lm := newTestManager()
	pid := page.NewID(1, 0)
	t1, t2 := transaction.NewTransactionID(), transaction.NewTransactionID()

	require.NoError(t, lm.LockPage(t1, pid, false))
	require.NoError(t, lm.LockPage(t2, pid, false))

	done := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		defer close(done)
		return lm.LockPage(t1, pid, true)
	})

	assertBlocked(t, done)
	lm.UnlockAllPages(t2)

	require.NoError(t, g.Wait())
	assert.True(t, lm.holdsExclusive(t1, pid))
}

func TestLockManager_Timeout(t *testing.T) {
	lm := NewLockManager(30*time.Millisecond, 5*time.Millisecond)
	pid := page.NewID(1, 0)
	holder, blocked := transaction.NewTransactionID(), transaction.NewTransactionID()

	require.NoError(t, lm.LockPage(holder, pid, true))

	start := time.Now()
	err := lm.LockPage(blocked, pid, false)
	require.ErrorIs(t, err, dberror.ErrConcurrencyTimeout)
	assert.True(t, dberror.IsTransactionFatal(err))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	assert.False(t, lm.HoldsLock(blocked, pid))
	assert.Zero(t, waiting(lm, pid))
	assert.True(t, lm.holdsExclusive(holder, pid))
}

func TestLockManager_DeadlockDetected(t *testing.T) {
	lm := newTestManager()
	p0, p1 := page.NewID(1, 0), page.NewID(1, 1)
	t1, t2 := transaction.NewTransactionID(), transaction.NewTransactionID()

	require.NoError(t, lm.LockPage(t1, p0, true))
	require.NoError(t, lm.LockPage(t2, p1, true))

	var g errgroup.Group
	g.Go(func() error { return lm.LockPage(t1, p1, true) })
	require.Eventually(t, func() bool { return waiting(lm, p1) == 1 }, time.Second, time.Millisecond)

	start := time.Now()
	err := lm.LockPage(t2, p0, true)
	require.ErrorIs(t, err, dberror.ErrConcurrencyTimeout)
	assert.Contains(t, err.Error(), "deadlock")
	assert.Less(t, time.Since(start), time.Second, "deadlock fails before the timeout")

	lm.UnlockAllPages(t2)
	require.NoError(t, g.Wait())
	assert.True(t, lm.holdsExclusive(t1, p1))
}

func TestLockManager_UpgradeDeadlock(t *testing.T) {
	lm := newTestManager()
	pid := page.NewID(1, 0)
	t1, t2 := transaction.NewTransactionID(), transaction.NewTransactionID()

	require.NoError(t, lm.LockPage(t1, pid, false))
	require.NoError(t, lm.LockPage(t2, pid, false))

	var g errgroup.Group
	g.Go(func() error { return lm.LockPage(t1, pid, true) })
	require.Eventually(t, func() bool { return waiting(lm, pid) == 1 }, time.Second, time.Millisecond)

	err := lm.LockPage(t2, pid, true)
	require.ErrorIs(t, err, dberror.ErrConcurrencyTimeout)

	lm.UnlockAllPages(t2)
	require.NoError(t, g.Wait())
	assert.True(t, lm.holdsExclusive(t1, pid))
}

func TestLockManager_UnlockPage(t *testing.T) {
	lm := newTestManager()
	p0, p1 := page.NewID(1, 0), page.NewID(1, 1)
	tid := transaction.NewTransactionID()

	require.NoError(t, lm.LockPage(tid, p0, true))
	require.NoError(t, lm.LockPage(tid, p1, false))
	assert.ElementsMatch(t, []page.ID{p0, p1}, lm.LockedPages(tid))

	lm.UnlockPage(tid, p0)
	assert.False(t, lm.IsPageLocked(p0))
	assert.True(t, lm.IsPageLocked(p1))

	lm.UnlockAllPages(tid)
	assert.False(t, lm.IsPageLocked(p1))
	assert.Empty(t, lm.LockedPages(tid))
}

func TestLockManager_UnlockPageClearsEdgesToReleaser(t *testing.T) {
	// no periodic refresh, so only release-time bookkeeping can fix edges
	lm := NewLockManager(2*time.Second, time.Hour)
	p, q := page.NewID(1, 0), page.NewID(1, 1)
	t1, t2, t3 := transaction.NewTransactionID(), transaction.NewTransactionID(), transaction.NewTransactionID()

	require.NoError(t, lm.LockPage(t1, p, false))
	require.NoError(t, lm.LockPage(t3, p, false))
	require.NoError(t, lm.LockPage(t2, q, false))

	var writer errgroup.Group
	writer.Go(func() error { return lm.LockPage(t2, p, true) })
	require.Eventually(t, func() bool { return waiting(lm, p) == 1 }, time.Second, time.Millisecond)

	// t2 still waits, but only for t3
	lm.UnlockPage(t1, p)
	lm.mutex.Lock()
	assert.False(t, lm.depGraph.waitsFor(t2, t1))
	assert.True(t, lm.depGraph.waitsFor(t2, t3))
	lm.mutex.Unlock()

	// t1 -> t2 -> t3 is a chain, not a cycle
	done := make(chan struct{})
	var upgrader errgroup.Group
	upgrader.Go(func() error {
		defer close(done)
		return lm.LockPage(t1, q, true)
	})
	assertBlocked(t, done)

	lm.UnlockAllPages(t3)
	require.NoError(t, writer.Wait())
	lm.UnlockAllPages(t2)
	require.NoError(t, upgrader.Wait())
	assert.True(t, lm.holdsExclusive(t1, q))
}
