// Package lock implements page-level strict two-phase locking for the
// buffer pool.
//
// # Overview
//
// A transaction acquires locks as it touches pages and releases them all at
// once when it commits or aborts. The one exception is UnlockPage, which the
// buffer pool uses for pages a transaction inspected but did not modify.
//
// Two lock modes are supported:
//
//   - [SharedLock]: required to read a page; compatible with other shared locks.
//   - [ExclusiveLock]: required to write a page; incompatible with all other locks.
//
// A transaction holding a shared lock may upgrade it to exclusive, waiting
// until it is the sole holder. Downgrading is never performed; re-requesting
// a mode already covered by the held lock is a no-op.
//
// # Components
//
// [LockManager] is the single public entry point. Internally it coordinates:
//
//   - [LockTable]: dual index of page -> holders and transaction -> pages.
//   - [WaitQueue]: per-page FIFO queues of pending [LockRequest] entries.
//   - [DependencyGraph]: wait-for graph; an edge A->B means A waits for B.
//   - [LockGrantor]: compatibility checks and the grant itself.
//
// # Lock Acquisition Flow
//
//  1. If the transaction already holds a sufficient lock, return immediately.
//  2. If the request is compatible with every other holder, grant it (this
//     covers an upgrade by a sole shared holder).
//  3. Otherwise enqueue the request and add wait-for edges. A cycle in the
//     graph fails the request at once.
//  4. Block until a releasing transaction grants the request and signals its
//     channel, re-checking every retry interval. When the timeout elapses the
//     request is withdrawn and ErrConcurrencyTimeout is returned; the caller
//     must abort the transaction.
package lock
