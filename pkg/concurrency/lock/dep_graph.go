package lock

import (
	"heapstore/pkg/concurrency/transaction"
)

// DependencyGraph is the wait-for graph between transactions. An edge
// A -> B means A waits for a lock B holds. A cycle is a deadlock.
//
// HasCycle results are cached until the graph next changes.
type DependencyGraph struct {
	edges      map[*transaction.TransactionID]map[*transaction.TransactionID]bool
	cacheValid bool
	lastResult bool
}

func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		edges: make(map[*transaction.TransactionID]map[*transaction.TransactionID]bool),
	}
}

// AddEdge records that waiter waits for holder. Self edges are ignored.
func (dg *DependencyGraph) AddEdge(waiter, holder *transaction.TransactionID) {
	if waiter == holder {
		return
	}
	if dg.edges[waiter] == nil {
		dg.edges[waiter] = make(map[*transaction.TransactionID]bool)
	}
	if !dg.edges[waiter][holder] {
		dg.edges[waiter][holder] = true
		dg.cacheValid = false
	}
}

// RemoveWaiter drops every outgoing edge of tid, leaving edges of other
// transactions that wait for it intact.
func (dg *DependencyGraph) RemoveWaiter(tid *transaction.TransactionID) {
	if _, ok := dg.edges[tid]; ok {
		delete(dg.edges, tid)
		dg.cacheValid = false
	}
}

// RemoveTransaction drops tid from the graph entirely.
func (dg *DependencyGraph) RemoveTransaction(tid *transaction.TransactionID) {
	dg.RemoveWaiter(tid)
	for waiter, holders := range dg.edges {
		if holders[tid] {
			delete(holders, tid)
			dg.cacheValid = false
		}
		if len(holders) == 0 {
			delete(dg.edges, waiter)
		}
	}
}

// HasCycle reports whether the graph contains a cycle.
func (dg *DependencyGraph) HasCycle() bool {
	if dg.cacheValid {
		return dg.lastResult
	}

	visited := make(map[*transaction.TransactionID]bool)
	onStack := make(map[*transaction.TransactionID]bool)

	var visit func(tid *transaction.TransactionID) bool
	visit = func(tid *transaction.TransactionID) bool {
		visited[tid] = true
		onStack[tid] = true
		for next := range dg.edges[tid] {
			if onStack[next] {
				return true
			}
			if !visited[next] && visit(next) {
				return true
			}
		}
		onStack[tid] = false
		return false
	}

	result := false
	for tid := range dg.edges {
		if !visited[tid] && visit(tid) {
			result = true
			break
		}
	}

	dg.lastResult = result
	dg.cacheValid = true
	return result
}

// waitingTransactions returns every transaction with outgoing edges.
func (dg *DependencyGraph) waitingTransactions() []*transaction.TransactionID {
	waiting := make([]*transaction.TransactionID, 0, len(dg.edges))
	for tid := range dg.edges {
		waiting = append(waiting, tid)
	}
	return waiting
}

// waitsFor reports whether the edge waiter -> holder exists.
func (dg *DependencyGraph) waitsFor(waiter, holder *transaction.TransactionID) bool {
	return dg.edges[waiter][holder]
}
