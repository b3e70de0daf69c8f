// Package memory implements the buffer pool: a capacity-bounded page cache
// that is the only path from callers to file storage and that owns the
// lock manager.
package memory

import (
	"sync"

	"heapstore/pkg/dberror"
	"heapstore/pkg/storage/page"
)

// PageCache stores and retrieves resident pages. It knows nothing about
// transactions, locks, or durability.
type PageCache interface {
	// Get retrieves a page and marks it most recently used.
	Get(pid page.ID) (page.Page, bool)

	// Peek retrieves a page without touching recency.
	Peek(pid page.ID) (page.Page, bool)

	// Put stores or replaces a page. Adding a new page to a full cache
	// fails with ErrBufferPoolFull; eviction is the caller's decision.
	Put(pid page.ID, p page.Page) error

	// Remove drops a page. Does nothing if the page is absent.
	Remove(pid page.ID)

	Size() int

	Clear()

	// GetAll returns every resident page ID, least recently used first.
	GetAll() []page.ID
}

// node represents a single node in the doubly linked list
type node struct {
	pid  page.ID
	page page.Page
	prev *node
	next *node
}

// LRUPageCache is a PageCache ordered by recency of use. A doubly linked
// list plus a map gives O(1) Get, Put and Remove.
type LRUPageCache struct {
	maxSize int
	cache   map[page.ID]*node
	head    *node // most recently used end
	tail    *node // least recently used end
	mutex   sync.RWMutex
}

// NewLRUPageCache creates a new LRU page cache with the specified maximum size.
func NewLRUPageCache(maxSize int) *LRUPageCache {
	head := &node{}
	tail := &node{}
	head.next = tail
	tail.prev = head

	return &LRUPageCache{
		maxSize: maxSize,
		cache:   make(map[page.ID]*node),
		head:    head,
		tail:    tail,
	}
}

func (c *LRUPageCache) addToFront(n *node) {
	n.prev = c.head
	n.next = c.head.next
	c.head.next.prev = n
	c.head.next = n
}

func (c *LRUPageCache) removeNode(n *node) {
	n.prev.next = n.next
	n.next.prev = n.prev
}

func (c *LRUPageCache) moveToFront(n *node) {
	c.removeNode(n)
	c.addToFront(n)
}

func (c *LRUPageCache) Get(pid page.ID) (page.Page, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if n, exists := c.cache[pid]; exists {
		c.moveToFront(n)
		return n.page, true
	}
	return nil, false
}

func (c *LRUPageCache) Peek(pid page.ID) (page.Page, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if n, exists := c.cache[pid]; exists {
		return n.page, true
	}
	return nil, false
}

func (c *LRUPageCache) Put(pid page.ID, p page.Page) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if n, exists := c.cache[pid]; exists {
		n.page = p
		c.moveToFront(n)
		return nil
	}

	if len(c.cache) >= c.maxSize {
		return dberror.New(dberror.KindBufferPoolFull, "LRUPageCache", "Put",
			"cache holds %d pages, cannot add %s", c.maxSize, pid)
	}

	newNode := &node{
		pid:  pid,
		page: p,
	}
	c.cache[pid] = newNode
	c.addToFront(newNode)
	return nil
}

func (c *LRUPageCache) Remove(pid page.ID) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if n, exists := c.cache[pid]; exists {
		delete(c.cache, pid)
		c.removeNode(n)
	}
}

func (c *LRUPageCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.cache)
}

// Capacity returns the maximum number of resident pages.
func (c *LRUPageCache) Capacity() int {
	return c.maxSize
}

func (c *LRUPageCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache = make(map[page.ID]*node)
	c.head.next = c.tail
	c.tail.prev = c.head
}

func (c *LRUPageCache) GetAll() []page.ID {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	pids := make([]page.ID, 0, len(c.cache))
	for current := c.tail.prev; current != c.head; current = current.prev {
		pids = append(pids, current.pid)
	}
	return pids
}
