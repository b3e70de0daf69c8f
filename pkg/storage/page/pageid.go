package page

import (
	"fmt"

	"heapstore/pkg/primitives"
)

// ID identifies a page within a file. It is a comparable value type and is
// used directly as a map key by the buffer pool and the lock table.
type ID struct {
	File primitives.FileID
	Page primitives.PageNumber
}

// NewID creates a page identity.
func NewID(file primitives.FileID, pageNo primitives.PageNumber) ID {
	return ID{File: file, Page: pageNo}
}

// FileID returns the owning file's identity.
func (id ID) FileID() primitives.FileID {
	return id.File
}

// PageNo returns the page number within the file.
func (id ID) PageNo() primitives.PageNumber {
	return id.Page
}

func (id ID) String() string {
	return fmt.Sprintf("PageID(file=%d, page=%d)", id.File, id.Page)
}
