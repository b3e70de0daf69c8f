package page

import (
	"os"
	"sync"

	"heapstore/pkg/dberror"
	"heapstore/pkg/primitives"
)

const component = "BaseFile"

// BaseFile provides page-granular I/O over a ByteStore. Page n occupies the
// byte range [n*pageSize, (n+1)*pageSize). It is the only code in the
// storage layer that touches the store directly.
//
// Thread-safety: reads take a read lock, writes and allocation take the
// write lock.
type BaseFile struct {
	store    ByteStore
	fileID   primitives.FileID
	pageSize int
	mutex    sync.RWMutex
	filePath primitives.Filepath
}

// NewBaseFile opens (creating if needed) the file at filePath. The file's
// identity is the hash of its canonical path.
func NewBaseFile(filePath primitives.Filepath, pageSize int) (*BaseFile, error) {
	if filePath == "" {
		return nil, dberror.New(dberror.KindStorageIO, component, "NewBaseFile", "file path cannot be empty")
	}

	canonical := filePath.Canonical()
	file, err := os.OpenFile(canonical.String(), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, dberror.Wrap(err, dberror.KindStorageIO, component, "NewBaseFile", "failed to open %s", canonical)
	}

	bf, err := NewBaseFileFromStore(canonical.Hash(), osStore{file}, pageSize)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	bf.filePath = canonical
	return bf, nil
}

// NewBaseFileFromStore wraps an existing store under the given identity.
func NewBaseFileFromStore(id primitives.FileID, store ByteStore, pageSize int) (*BaseFile, error) {
	if store == nil {
		return nil, dberror.New(dberror.KindStorageIO, component, "NewBaseFile", "store cannot be nil")
	}
	if pageSize <= 0 {
		return nil, dberror.New(dberror.KindStorageIO, component, "NewBaseFile", "invalid page size %d", pageSize)
	}
	if !id.IsValid() {
		return nil, dberror.New(dberror.KindSchema, component, "NewBaseFile", "%s cannot identify a file", id)
	}
	return &BaseFile{store: store, fileID: id, pageSize: pageSize}, nil
}

// GetID returns the file identity. It is constant for the lifetime of the
// BaseFile.
func (bf *BaseFile) GetID() primitives.FileID {
	return bf.fileID
}

// PageSize returns the size of every page in this file.
func (bf *BaseFile) PageSize() int {
	return bf.pageSize
}

// FilePath returns the canonical path, or "" for a non-file store.
func (bf *BaseFile) FilePath() primitives.Filepath {
	return bf.filePath
}

// NumPages returns ceil(size/pageSize). A trailing partial page counts.
func (bf *BaseFile) NumPages() (primitives.PageNumber, error) {
	bf.mutex.RLock()
	defer bf.mutex.RUnlock()

	size, err := bf.size("NumPages")
	if err != nil {
		return 0, err
	}
	return bf.pagesFor(size), nil
}

// ReadPageData reads exactly one page. Reading past the end of the store
// fails with NoSuchPage; reading a trailing partial page fails with
// CorruptPage; any other short read is a StorageIO fault.
func (bf *BaseFile) ReadPageData(pageNo primitives.PageNumber) ([]byte, error) {
	bf.mutex.RLock()
	defer bf.mutex.RUnlock()

	size, err := bf.size("ReadPageData")
	if err != nil {
		return nil, err
	}

	offset := int64(pageNo) * int64(bf.pageSize)
	if offset >= size {
		return nil, dberror.New(dberror.KindNoSuchPage, component, "ReadPageData",
			"page %d beyond end of file (%d pages)", pageNo, bf.pagesFor(size))
	}
	if size-offset < int64(bf.pageSize) {
		return nil, dberror.New(dberror.KindCorruptPage, component, "ReadPageData",
			"page %d is partial: %d of %d bytes", pageNo, size-offset, bf.pageSize)
	}

	pageData := make([]byte, bf.pageSize)
	n, err := bf.store.ReadAt(pageData, offset)
	if n < bf.pageSize {
		if err == nil {
			err = dberror.ErrStorageIO
		}
		return nil, dberror.Wrap(err, dberror.KindStorageIO, component, "ReadPageData",
			"short read of page %d: %d of %d bytes", pageNo, n, bf.pageSize)
	}
	return pageData, nil
}

// WritePageData writes exactly one page and syncs the store. Writing past
// the current end grows the store.
func (bf *BaseFile) WritePageData(pageNo primitives.PageNumber, pageData []byte) error {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if bf.store == nil {
		return dberror.New(dberror.KindStorageIO, component, "WritePageData", "file is closed")
	}
	if len(pageData) != bf.pageSize {
		return dberror.New(dberror.KindCorruptPage, component, "WritePageData",
			"invalid page data size: expected %d, got %d", bf.pageSize, len(pageData))
	}

	return bf.writeAt(pageNo, pageData, "WritePageData")
}

// AllocateNewPage reserves the next page number by writing a zero-filled
// page at the current end of the file. Concurrent callers always receive
// distinct page numbers.
func (bf *BaseFile) AllocateNewPage() (primitives.PageNumber, error) {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	size, err := bf.size("AllocateNewPage")
	if err != nil {
		return 0, err
	}

	pageNo := bf.pagesFor(size)
	if err := bf.writeAt(pageNo, make([]byte, bf.pageSize), "AllocateNewPage"); err != nil {
		return 0, err
	}
	return pageNo, nil
}

// Close releases the store. Later calls fail with StorageIO.
func (bf *BaseFile) Close() error {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if bf.store == nil {
		return nil
	}
	err := bf.store.Close()
	bf.store = nil
	if err != nil {
		return dberror.Wrap(err, dberror.KindStorageIO, component, "Close", "failed to close file")
	}
	return nil
}

// size must be called with the mutex held.
func (bf *BaseFile) size(op string) (int64, error) {
	if bf.store == nil {
		return 0, dberror.New(dberror.KindStorageIO, component, op, "file is closed")
	}
	size, err := bf.store.Size()
	if err != nil {
		return 0, dberror.Wrap(err, dberror.KindStorageIO, component, op, "failed to stat file")
	}
	return size, nil
}

func (bf *BaseFile) pagesFor(size int64) primitives.PageNumber {
	ps := int64(bf.pageSize)
	return primitives.PageNumber((size + ps - 1) / ps)
}

func (bf *BaseFile) writeAt(pageNo primitives.PageNumber, data []byte, op string) error {
	offset := int64(pageNo) * int64(bf.pageSize)
	if _, err := bf.store.WriteAt(data, offset); err != nil {
		return dberror.Wrap(err, dberror.KindStorageIO, component, op, "failed to write page %d", pageNo)
	}
	if err := bf.store.Sync(); err != nil {
		return dberror.Wrap(err, dberror.KindStorageIO, component, op, "failed to sync after page %d", pageNo)
	}
	return nil
}
