package lock

import (
	"slices"

	"heapstore/pkg/concurrency/transaction"
	"heapstore/pkg/dberror"
	"heapstore/pkg/storage/page"
)

// WaitQueue keeps two views of pending lock requests:
//
//   - pageWaitQueue: page -> FIFO of requests, the order grants are tried in.
//   - transactionWaiting: transaction -> pages it waits on, for cleanup.
//
// It is not synchronized; the LockManager mutex guards it.
type WaitQueue struct {
	pageWaitQueue      map[page.ID][]*LockRequest
	transactionWaiting map[*transaction.TransactionID][]page.ID
}

func NewWaitQueue() *WaitQueue {
	return &WaitQueue{
		pageWaitQueue:      make(map[page.ID][]*LockRequest),
		transactionWaiting: make(map[*transaction.TransactionID][]page.ID),
	}
}

// Add enqueues a request at the tail of the page's queue. A transaction can
// wait on a page only once.
func (wq *WaitQueue) Add(tid *transaction.TransactionID, pid page.ID, lockType LockType) (*LockRequest, error) {
	if slices.Contains(wq.transactionWaiting[tid], pid) {
		return nil, dberror.New(dberror.KindConcurrencyTimeout, "WaitQueue", "Add",
			"%s is already waiting for %s", tid, pid)
	}

	request := NewLockRequest(tid, lockType)
	wq.pageWaitQueue[pid] = append(wq.pageWaitQueue[pid], request)
	wq.transactionWaiting[tid] = append(wq.transactionWaiting[tid], pid)
	return request, nil
}

// RemoveRequest removes the (tid, pid) request from both views.
func (wq *WaitQueue) RemoveRequest(tid *transaction.TransactionID, pid page.ID) {
	removeFromList(wq.pageWaitQueue, pid, func(req *LockRequest) bool { return req.TID == tid })
	removeFromList(wq.transactionWaiting, tid, func(p page.ID) bool { return p == pid })
}

// RemoveAllForTransaction withdraws every request tid has pending.
func (wq *WaitQueue) RemoveAllForTransaction(tid *transaction.TransactionID) {
	for _, pid := range slices.Clone(wq.transactionWaiting[tid]) {
		wq.RemoveRequest(tid, pid)
	}
}

// GetRequests returns the page's pending requests in FIFO order.
func (wq *WaitQueue) GetRequests(pid page.ID) []*LockRequest {
	return slices.Clone(wq.pageWaitQueue[pid])
}

// pagesRequestedFor returns the pages tid is waiting on.
func (wq *WaitQueue) pagesRequestedFor(tid *transaction.TransactionID) []page.ID {
	return slices.Clone(wq.transactionWaiting[tid])
}
