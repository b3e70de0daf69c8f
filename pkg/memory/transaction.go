package memory

import (
	"time"

	"github.com/sirupsen/logrus"

	"heapstore/pkg/concurrency/transaction"
	"heapstore/pkg/storage/page"
)

// TransactionInfo is the pool's bookkeeping for one live transaction.
type TransactionInfo struct {
	startTime   time.Time
	dirtyPages  map[page.ID]bool
	lockedPages map[page.ID]transaction.Permissions
}

func newTransactionInfo() *TransactionInfo {
	return &TransactionInfo{
		startTime:   time.Now(),
		dirtyPages:  make(map[page.ID]bool),
		lockedPages: make(map[page.ID]transaction.Permissions),
	}
}

// recordAccess remembers the strongest permission pid was fetched with.
func (ti *TransactionInfo) recordAccess(pid page.ID, perm transaction.Permissions) {
	if prev, ok := ti.lockedPages[pid]; !ok || perm > prev {
		ti.lockedPages[pid] = perm
	}
}

func (ti *TransactionInfo) dirtyPageIDs() []page.ID {
	pids := make([]page.ID, 0, len(ti.dirtyPages))
	for pid := range ti.dirtyPages {
		pids = append(pids, pid)
	}
	return pids
}

// logFields summarizes the transaction for commit and abort log lines.
func (ti *TransactionInfo) logFields() logrus.Fields {
	return logrus.Fields{
		"pages_accessed": len(ti.lockedPages),
		"dirty_pages":    len(ti.dirtyPages),
		"duration":       time.Since(ti.startTime).String(),
	}
}
