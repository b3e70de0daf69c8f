package primitives

import "fmt"

// HashCode is the xxhash of an encoded field value, used to bucket groups.
type HashCode uint64

// FileID is the identity of one physical file, derived by hashing the file's canonical path.
// Every page of a file carries it, and the buffer pool uses it to route page reads and writes
// back to the owning file.
type FileID uint64

// InvalidFileID is never produced by Filepath.Hash and is rejected by every file constructor.
const InvalidFileID FileID = 0

// IsValid reports whether f can identify a file.
func (f FileID) IsValid() bool {
	return f != InvalidFileID
}

func (f FileID) String() string {
	return fmt.Sprintf("FileID(%d)", f)
}

// SlotID is a slot number within a heap page.
type SlotID uint16

// PageNumber is the zero-based index of a page within its file.
type PageNumber uint64

// Offset represents a byte offset or width within a page
type Offset uint32

// Predicate is a comparison operator applied between a field and an operand.
type Predicate int

const (
	Equals Predicate = iota
	LessThan
	GreaterThan
	LessThanOrEqual
	GreaterThanOrEqual
	NotEqual
	Like
)

// Holds reports whether the ordering outcome c of comparing a field to its
// operand (negative, zero or positive, as from cmp.Compare) satisfies p.
// Like is not an ordering and never holds here.
func (p Predicate) Holds(c int) bool {
	switch p {
	case Equals:
		return c == 0
	case LessThan:
		return c < 0
	case GreaterThan:
		return c > 0
	case LessThanOrEqual:
		return c <= 0
	case GreaterThanOrEqual:
		return c >= 0
	case NotEqual:
		return c != 0
	default:
		return false
	}
}

func (p Predicate) String() string {
	switch p {
	case Equals:
		return "="
	case LessThan:
		return "<"
	case GreaterThan:
		return ">"
	case LessThanOrEqual:
		return "<="
	case GreaterThanOrEqual:
		return ">="
	case NotEqual:
		return "!="
	case Like:
		return "LIKE"
	default:
		return "UNKNOWN"
	}
}
