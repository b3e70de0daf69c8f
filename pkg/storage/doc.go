// Package storage is the root of the disk-based storage layer.
//
// Data is organised into fixed-size pages that are read and written as
// atomic units at byte offset pageNumber*pageSize. The page size is chosen
// by configuration and carried by every file handle, never by a global.
//
// # Sub-packages
//
//   - [heapstore/pkg/storage/page] - page identity, the Page capability
//     interface, and BaseFile, the only code that touches the byte store.
//   - [heapstore/pkg/storage/heap] - heap pages (occupancy bitmap followed
//     by fixed-width record slots) and heap files built from them.
//
// # Page layout
//
// A heap page starts with a ceil(capacity/8)-byte occupancy bitmap, bit i
// stored least-significant-first in byte i/8, followed by capacity record
// slots of the schema's fixed width. Trailing bytes are zero.
package storage
