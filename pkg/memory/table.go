package memory

import (
	"maps"
	"slices"
	"strings"
	"sync"

	"heapstore/pkg/concurrency/transaction"
	"heapstore/pkg/dberror"
	"heapstore/pkg/logging"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/page"
	"heapstore/pkg/tuple"
)

// DbFile is a table file the pool can read, write and route record
// operations to. heap.HeapFile implements it.
type DbFile interface {
	page.DbFile

	GetTupleDesc() *tuple.TupleDescription

	// InsertTuple returns every page it modified.
	InsertTuple(tid *transaction.TransactionID, t *tuple.Tuple) ([]page.Page, error)

	DeleteTuple(tid *transaction.TransactionID, t *tuple.Tuple) (page.Page, error)
}

// TableInfo holds metadata about a table
type TableInfo struct {
	Name string
	File DbFile
}

func (ti *TableInfo) GetID() primitives.FileID {
	return ti.File.GetID()
}

// TableManager is the registry of open table files, indexed both by name
// and by file ID. It is safe for concurrent use.
type TableManager struct {
	nameToTable map[string]*TableInfo
	idToTable   map[primitives.FileID]*TableInfo
	mutex       sync.RWMutex
}

func NewTableManager() *TableManager {
	return &TableManager{
		nameToTable: make(map[string]*TableInfo),
		idToTable:   make(map[primitives.FileID]*TableInfo),
	}
}

// AddTable registers f under name. An existing table with the same name or
// file ID is replaced.
func (tm *TableManager) AddTable(name string, f DbFile) error {
	if f == nil {
		return dberror.New(dberror.KindSchema, "TableManager", "AddTable", "file cannot be nil")
	}
	if name == "" || strings.TrimSpace(name) != name {
		return dberror.New(dberror.KindSchema, "TableManager", "AddTable", "invalid table name %q", name)
	}

	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	id := f.GetID()
	tm.removeExistingTable(name, id)

	info := &TableInfo{Name: name, File: f}
	tm.nameToTable[name] = info
	tm.idToTable[id] = info
	return nil
}

// GetDbFile returns the file registered under id.
func (tm *TableManager) GetDbFile(id primitives.FileID) (DbFile, error) {
	info, err := tm.GetTableInfo(id)
	if err != nil {
		return nil, err
	}
	return info.File, nil
}

func (tm *TableManager) GetTableInfo(id primitives.FileID) (*TableInfo, error) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	info, exists := tm.idToTable[id]
	if !exists {
		return nil, dberror.New(dberror.KindNoSuchPage, "TableManager", "GetTableInfo",
			"no table with file ID %d", id)
	}
	return info, nil
}

func (tm *TableManager) GetTableID(name string) (primitives.FileID, error) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	info, exists := tm.nameToTable[name]
	if !exists {
		return 0, dberror.New(dberror.KindNoSuchPage, "TableManager", "GetTableID",
			"table %q not found", name)
	}
	return info.GetID(), nil
}

func (tm *TableManager) TableExists(name string) bool {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()
	_, exists := tm.nameToTable[name]
	return exists
}

// GetAllTableNames returns the registered names in sorted order.
func (tm *TableManager) GetAllTableNames() []string {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()
	return slices.Sorted(maps.Keys(tm.nameToTable))
}

// RemoveTable unregisters name and closes its file.
func (tm *TableManager) RemoveTable(name string) error {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	info, exists := tm.nameToTable[name]
	if !exists {
		return dberror.New(dberror.KindNoSuchPage, "TableManager", "RemoveTable",
			"table %q not found", name)
	}

	delete(tm.nameToTable, name)
	delete(tm.idToTable, info.GetID())
	return info.File.Close()
}

// Clear unregisters every table and closes its file. Close failures are
// logged and do not stop the sweep.
func (tm *TableManager) Clear() {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	for _, info := range tm.idToTable {
		if err := info.File.Close(); err != nil {
			logging.WithComponent("TableManager").
				WithError(err).
				WithField("table", info.Name).
				Warn("failed to close table file")
		}
	}

	clear(tm.nameToTable)
	clear(tm.idToTable)
}

// ValidateIntegrity checks that the name and ID indexes agree.
func (tm *TableManager) ValidateIntegrity() error {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	if len(tm.nameToTable) != len(tm.idToTable) {
		return dberror.New(dberror.KindSchema, "TableManager", "ValidateIntegrity",
			"index size mismatch: %d names, %d ids", len(tm.nameToTable), len(tm.idToTable))
	}
	for name, info := range tm.nameToTable {
		if tm.idToTable[info.GetID()] != info {
			return dberror.New(dberror.KindSchema, "TableManager", "ValidateIntegrity",
				"table %q missing from ID index", name)
		}
	}
	return nil
}

// removeExistingTable drops any table registered under name or id.
// Caller holds the write lock.
func (tm *TableManager) removeExistingTable(name string, id primitives.FileID) {
	if existing, exists := tm.nameToTable[name]; exists {
		delete(tm.idToTable, existing.GetID())
		delete(tm.nameToTable, name)
	}
	if existing, exists := tm.idToTable[id]; exists {
		delete(tm.nameToTable, existing.Name)
		delete(tm.idToTable, id)
	}
}
