package page

import (
	"heapstore/pkg/concurrency/transaction"
	"heapstore/pkg/primitives"
)

// DefaultPageSize is the page size used when configuration does not say
// otherwise.
const DefaultPageSize = 4096

// Page is a page resident in the buffer pool. Pages may be dirty, meaning
// they were modified since they were last written to disk.
type Page interface {
	// ID returns the identity of this page. It never changes.
	ID() ID

	// IsDirty reports the transaction that last dirtied this page. The
	// boolean is false when the page is clean.
	IsDirty() (*transaction.TransactionID, bool)

	// MarkDirty sets the dirty state of this page.
	MarkDirty(dirty bool, tid *transaction.TransactionID)

	// PageData encodes the page to exactly the file's page size.
	PageData() ([]byte, error)
}

// DbFile is a file of pages. The buffer pool is its only caller for page
// reads and writes.
type DbFile interface {
	ReadPage(pid ID) (Page, error)

	WritePage(p Page) error

	GetID() primitives.FileID

	NumPages() (primitives.PageNumber, error)

	Close() error
}
