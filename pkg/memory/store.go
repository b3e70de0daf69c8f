package memory

import (
	"sync"

	"heapstore/pkg/concurrency/lock"
	"heapstore/pkg/concurrency/transaction"
	"heapstore/pkg/config"
	"heapstore/pkg/dberror"
	"heapstore/pkg/logging"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/page"
	"heapstore/pkg/tuple"
)

const component = "PageStore"

// Stats is a snapshot of buffer pool counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Flushes   uint64
	Resident  int
	Capacity  int
}

// PageStore is the buffer pool. Every page access goes through GetPage,
// which locks the page for the requesting transaction before returning the
// cached instance.
//
// The pool runs NO-STEAL / FORCE: pages dirtied by a transaction stay
// resident (they are locked, so never evicted) until commit writes them out
// or abort drops them from the cache.
type PageStore struct {
	tableManager *TableManager
	mutex        sync.Mutex
	transactions map[*transaction.TransactionID]*TransactionInfo
	lockManager  *lock.LockManager
	cache        *LRUPageCache
	pageSize     int
	stats        Stats
}

// NewPageStore creates a buffer pool over the tables registered in tm.
// A nil cfg means config.Default(); any other cfg must pass Validate.
func NewPageStore(cfg *config.Config, tm *TableManager) (*PageStore, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &PageStore{
		tableManager: tm,
		transactions: make(map[*transaction.TransactionID]*TransactionInfo),
		lockManager:  lock.NewLockManager(cfg.LockTimeout, cfg.LockRetryInterval),
		cache:        NewLRUPageCache(cfg.BufferPoolPages),
		pageSize:     cfg.PageSize,
	}, nil
}

// PageSize is the byte length of every page served by this pool.
func (p *PageStore) PageSize() int {
	return p.pageSize
}

// Tables returns the registry the pool reads files from.
func (p *PageStore) Tables() *TableManager {
	return p.tableManager
}

// GetPage locks pid for tid in the mode perm implies, blocking until the
// lock is granted, and returns the resident page, reading it from its file
// on a miss. ErrConcurrencyTimeout, ErrBufferPoolFull and ErrStorageIO are
// fatal to tid; the caller must abort it.
func (p *PageStore) GetPage(tid *transaction.TransactionID, pid page.ID, perm transaction.Permissions) (page.Page, error) {
	if err := p.lockManager.LockPage(tid, pid, perm == transaction.ReadWrite); err != nil {
		return nil, err
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.getOrCreateTransaction(tid).recordAccess(pid, perm)

	if pg, exists := p.cache.Get(pid); exists {
		p.stats.Hits++
		return pg, nil
	}
	p.stats.Misses++

	dbFile, err := p.tableManager.GetDbFile(pid.FileID())
	if err != nil {
		return nil, err
	}

	if p.cache.Size() >= p.cache.Capacity() {
		if err := p.evictPage(); err != nil {
			return nil, err
		}
	}

	pg, err := dbFile.ReadPage(pid)
	if err != nil {
		return nil, err
	}
	if err := p.cache.Put(pid, pg); err != nil {
		return nil, err
	}
	return pg, nil
}

// ReleasePage drops tid's lock on pid before the transaction ends. It
// breaks two-phase locking and is only safe for pages tid read and did not
// modify.
func (p *PageStore) ReleasePage(tid *transaction.TransactionID, pid page.ID) {
	p.lockManager.UnlockPage(tid, pid)
}

// HoldsLock reports whether tid holds any lock on pid.
func (p *PageStore) HoldsLock(tid *transaction.TransactionID, pid page.ID) bool {
	return p.lockManager.HoldsLock(tid, pid)
}

// LockedPages returns the pages tid currently holds locks on.
func (p *PageStore) LockedPages(tid *transaction.TransactionID) []page.ID {
	return p.lockManager.LockedPages(tid)
}

// InsertTuple adds t to the table stored in fileID on behalf of tid and
// marks every modified page dirty.
func (p *PageStore) InsertTuple(tid *transaction.TransactionID, fileID primitives.FileID, t *tuple.Tuple) error {
	dbFile, err := p.tableManager.GetDbFile(fileID)
	if err != nil {
		return err
	}

	modifiedPages, err := dbFile.InsertTuple(tid, t)
	if err != nil {
		return err
	}

	return p.MarkDirty(tid, modifiedPages...)
}

// DeleteTuple removes t, located by its RecordID, on behalf of tid and
// marks the page dirty.
func (p *PageStore) DeleteTuple(tid *transaction.TransactionID, t *tuple.Tuple) error {
	if t == nil || t.RecordID == nil {
		return dberror.New(dberror.KindRecordNotFound, component, "DeleteTuple", "tuple has no record ID")
	}

	dbFile, err := p.tableManager.GetDbFile(t.RecordID.PageID.FileID())
	if err != nil {
		return err
	}

	modifiedPage, err := dbFile.DeleteTuple(tid, t)
	if err != nil {
		return err
	}

	return p.MarkDirty(tid, modifiedPage)
}

// MarkDirty records that tid modified pages. Each page is made resident if
// it is not already, evicting an unlocked page when the pool is full. If no
// frame can be freed the page stays recorded as dirty and ErrBufferPoolFull
// is returned; tid can no longer commit and must abort.
func (p *PageStore) MarkDirty(tid *transaction.TransactionID, pages ...page.Page) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	txInfo := p.getOrCreateTransaction(tid)
	for _, pg := range pages {
		pg.MarkDirty(true, tid)
		txInfo.dirtyPages[pg.ID()] = true
		if err := p.makeResident(pg); err != nil {
			logging.WithTxPage(tid.ID(), pg.ID()).WithError(err).Error("dirty page is not resident")
			return err
		}
	}
	return nil
}

// makeResident puts pg in the cache, freeing a frame first if needed.
// Caller holds p.mutex.
func (p *PageStore) makeResident(pg page.Page) error {
	if _, exists := p.cache.Peek(pg.ID()); !exists && p.cache.Size() >= p.cache.Capacity() {
		if err := p.evictPage(); err != nil {
			return err
		}
	}
	return p.cache.Put(pg.ID(), pg)
}

// CommitTransaction writes every page tid dirtied to its file, then
// releases all of tid's locks. A dirty page that never became resident
// fails the commit with ErrBufferPoolFull. On any failure the locks are
// kept and the error returned; the caller must abort tid.
func (p *PageStore) CommitTransaction(tid *transaction.TransactionID) error {
	p.mutex.Lock()
	txInfo, exists := p.transactions[tid]
	if exists {
		for _, pid := range txInfo.dirtyPageIDs() {
			if _, resident := p.cache.Peek(pid); !resident {
				p.mutex.Unlock()
				return dberror.New(dberror.KindBufferPoolFull, component, "CommitTransaction",
					"dirty page %s is not resident", pid)
			}
			if err := p.flushPage(pid); err != nil {
				p.mutex.Unlock()
				return err
			}
		}
		delete(p.transactions, tid)
	}
	p.mutex.Unlock()

	p.lockManager.UnlockAllPages(tid)

	if exists {
		logging.WithTx(tid.ID()).WithFields(txInfo.logFields()).Debug("transaction committed")
	}
	return nil
}

// AbortTransaction drops every page tid dirtied from the cache, so the
// next access decodes the committed bytes from disk, then releases all of
// tid's locks.
func (p *PageStore) AbortTransaction(tid *transaction.TransactionID) error {
	p.mutex.Lock()
	txInfo, exists := p.transactions[tid]
	if exists {
		for _, pid := range txInfo.dirtyPageIDs() {
			p.discardIfDirtiedBy(pid, tid)
		}
		delete(p.transactions, tid)
	}
	p.mutex.Unlock()

	p.lockManager.UnlockAllPages(tid)

	if exists {
		logging.WithTx(tid.ID()).WithFields(txInfo.logFields()).Debug("transaction aborted")
	}
	return nil
}

// FlushAllPages writes every dirty resident page to disk. Locks are not
// released.
func (p *PageStore) FlushAllPages() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, pid := range p.cache.GetAll() {
		if err := p.flushPage(pid); err != nil {
			return err
		}
	}
	return nil
}

// FlushPage writes pid to disk if it is resident and dirty.
func (p *PageStore) FlushPage(pid page.ID) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.flushPage(pid)
}

// DiscardPage drops pid from the cache without writing it. Any pending
// modification is forgotten, so commit no longer expects the page.
func (p *PageStore) DiscardPage(pid page.ID) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.cache.Remove(pid)
	for _, txInfo := range p.transactions {
		delete(txInfo.dirtyPages, pid)
	}
}

// Stats returns a snapshot of the pool counters.
func (p *PageStore) Stats() Stats {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	s := p.stats
	s.Resident = p.cache.Size()
	s.Capacity = p.cache.Capacity()
	return s
}

// Close flushes every dirty page and closes all registered files.
func (p *PageStore) Close() error {
	if err := p.FlushAllPages(); err != nil {
		return err
	}

	p.mutex.Lock()
	p.cache.Clear()
	p.mutex.Unlock()

	p.tableManager.Clear()
	return nil
}

// evictPage frees one cache slot. Pages locked by any transaction are never
// evicted; among the rest the least recently used clean page goes first,
// else the least recently used dirty page is flushed and dropped.
// Caller holds p.mutex.
func (p *PageStore) evictPage() error {
	var dirtyVictim *page.ID

	for _, pid := range p.cache.GetAll() {
		if p.lockManager.IsPageLocked(pid) {
			continue
		}
		pg, exists := p.cache.Peek(pid)
		if !exists {
			continue
		}

		if _, dirty := pg.IsDirty(); dirty {
			if dirtyVictim == nil {
				victim := pid
				dirtyVictim = &victim
			}
			continue
		}

		p.evict(pid, false)
		return nil
	}

	if dirtyVictim != nil {
		if err := p.flushPage(*dirtyVictim); err != nil {
			return err
		}
		p.evict(*dirtyVictim, true)
		return nil
	}

	return dberror.New(dberror.KindBufferPoolFull, component, "evictPage",
		"all %d resident pages are locked", p.cache.Size())
}

func (p *PageStore) evict(pid page.ID, flushed bool) {
	p.cache.Remove(pid)
	p.stats.Evictions++
	logging.WithPage(pid).WithField("flushed", flushed).Debug("evicted page")
}

// flushPage writes pid if it is resident and dirty, then marks it clean.
// Caller holds p.mutex.
func (p *PageStore) flushPage(pid page.ID) error {
	pg, exists := p.cache.Peek(pid)
	if !exists {
		return nil
	}
	if _, dirty := pg.IsDirty(); !dirty {
		return nil
	}

	dbFile, err := p.tableManager.GetDbFile(pid.FileID())
	if err != nil {
		return err
	}

	if err := dbFile.WritePage(pg); err != nil {
		logging.WithPage(pid).WithError(err).Error("failed to flush page")
		return dberror.Wrap(err, dberror.KindStorageIO, component, "flushPage", "writing %s", pid)
	}

	pg.MarkDirty(false, nil)
	p.stats.Flushes++
	return nil
}

// discardIfDirtiedBy removes pid from the cache if tid is its dirtier.
// Caller holds p.mutex.
func (p *PageStore) discardIfDirtiedBy(pid page.ID, tid *transaction.TransactionID) {
	pg, exists := p.cache.Peek(pid)
	if !exists {
		return
	}
	if dirtier, dirty := pg.IsDirty(); dirty && dirtier == tid {
		p.cache.Remove(pid)
	}
}

// getOrCreateTransaction returns tid's bookkeeping. Caller holds p.mutex.
func (p *PageStore) getOrCreateTransaction(tid *transaction.TransactionID) *TransactionInfo {
	txInfo, exists := p.transactions[tid]
	if !exists {
		txInfo = newTransactionInfo()
		p.transactions[tid] = txInfo
	}
	return txInfo
}
