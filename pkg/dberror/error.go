// Package dberror defines the error taxonomy shared by the storage engine.
//
// Every failure surfaced by the page codec, file storage, lock manager and
// buffer pool is a *DBError carrying a Kind. Callers branch on the kind with
// the standard library:
//
//	if errors.Is(err, dberror.ErrPageFull) { ... }
//
// Kinds that leave a transaction in an unusable state (storage faults, a
// full buffer pool, lock timeouts) are reported by IsTransactionFatal; the
// initiator of such a transaction must abort it.
package dberror

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Category classifies errors by their nature and appropriate handling strategy.
type Category int

const (
	// CategoryUser represents errors caused by invalid input, such as a record
	// that does not match its schema.
	CategoryUser Category = iota

	// CategoryTransient represents errors that may succeed if the transaction is retried.
	CategoryTransient

	// CategorySystem represents faults of the underlying byte store.
	CategorySystem

	// CategoryData represents errors related to corrupted on-disk data.
	CategoryData

	// CategoryConcurrency represents lock timeouts and deadlocks.
	CategoryConcurrency
)

func (c Category) String() string {
	switch c {
	case CategoryUser:
		return "user"
	case CategoryTransient:
		return "transient"
	case CategorySystem:
		return "system"
	case CategoryData:
		return "data"
	case CategoryConcurrency:
		return "concurrency"
	default:
		return "unknown"
	}
}

// Kind identifies one entry of the error taxonomy.
type Kind int

const (
	KindSchema Kind = iota + 1
	KindCorruptPage
	KindPageFull
	KindRecordNotFound
	KindStorageIO
	KindBufferPoolFull
	KindConcurrencyTimeout
	KindNoSuchPage
)

// Sentinel errors, one per Kind. A *DBError matches the sentinel of its kind
// under errors.Is.
var (
	ErrSchema             = errors.New("schema error")
	ErrCorruptPage        = errors.New("corrupt page")
	ErrPageFull           = errors.New("page full")
	ErrRecordNotFound     = errors.New("record not found")
	ErrStorageIO          = errors.New("storage I/O error")
	ErrBufferPoolFull     = errors.New("buffer pool full")
	ErrConcurrencyTimeout = errors.New("concurrency timeout")
	ErrNoSuchPage         = errors.New("no such page")
)

var kindInfo = map[Kind]struct {
	code     string
	sentinel error
	category Category
}{
	KindSchema:             {"SCHEMA_MISMATCH", ErrSchema, CategoryUser},
	KindCorruptPage:        {"CORRUPT_PAGE", ErrCorruptPage, CategoryData},
	KindPageFull:           {"PAGE_FULL", ErrPageFull, CategoryUser},
	KindRecordNotFound:     {"RECORD_NOT_FOUND", ErrRecordNotFound, CategoryUser},
	KindStorageIO:          {"STORAGE_IO", ErrStorageIO, CategorySystem},
	KindBufferPoolFull:     {"BUFFER_POOL_FULL", ErrBufferPoolFull, CategoryTransient},
	KindConcurrencyTimeout: {"LOCK_TIMEOUT", ErrConcurrencyTimeout, CategoryConcurrency},
	KindNoSuchPage:         {"NO_SUCH_PAGE", ErrNoSuchPage, CategoryUser},
}

// Code returns the stable string code for the kind, e.g. "PAGE_FULL".
func (k Kind) Code() string {
	if info, ok := kindInfo[k]; ok {
		return info.code
	}
	return "UNKNOWN"
}

// Category returns the handling category of the kind.
func (k Kind) Category() Category {
	return kindInfo[k].category
}

// Sentinel returns the package-level sentinel error matching the kind.
func (k Kind) Sentinel() error {
	return kindInfo[k].sentinel
}

// DBError is a structured storage error with enough context to log and act on.
type DBError struct {
	// Kind is the taxonomy entry of this error.
	Kind Kind

	// Message is a human-readable description of what went wrong.
	Message string

	// Operation identifies what was being performed, e.g. "GetPage" or "InsertTuple".
	Operation string

	// Component identifies where the error originated, e.g. "PageStore" or "HeapPage".
	Component string

	// Cause is the underlying error, if any.
	Cause error

	origin error
}

// New creates a DBError of the given kind. The call site's stack is captured.
func New(kind Kind, component, operation, format string, args ...any) *DBError {
	msg := fmt.Sprintf(format, args...)
	return &DBError{
		Kind:      kind,
		Message:   msg,
		Operation: operation,
		Component: component,
		origin:    errors.New(msg),
	}
}

// Wrap wraps cause into a DBError of the given kind. If cause is already a
// DBError its kind is kept and only missing context is filled in, so wrapping
// the same error twice never re-classifies it.
func Wrap(cause error, kind Kind, component, operation, format string, args ...any) *DBError {
	if cause == nil {
		return nil
	}

	var existing *DBError
	if errors.As(cause, &existing) {
		if existing.Operation == "" {
			existing.Operation = operation
		}
		if existing.Component == "" {
			existing.Component = component
		}
		return existing
	}

	msg := fmt.Sprintf(format, args...)
	return &DBError{
		Kind:      kind,
		Message:   msg,
		Operation: operation,
		Component: component,
		Cause:     cause,
		origin:    errors.WithStack(cause),
	}
}

// Error implements the error interface.
//
// The format follows the pattern:
// [CODE] Message (operation: Operation, component: Component) caused by: cause
func (e *DBError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Kind.Code(), e.Message))

	if e.Operation != "" {
		b.WriteString(fmt.Sprintf(" (operation: %s", e.Operation))
		if e.Component != "" {
			b.WriteString(fmt.Sprintf(", component: %s", e.Component))
		}
		b.WriteString(")")
	}

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(" caused by: %v", e.Cause))
	}

	return b.String()
}

// Unwrap returns the underlying cause.
func (e *DBError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel of this error's kind.
func (e *DBError) Is(target error) bool {
	return target != nil && target == e.Kind.Sentinel()
}

// Category returns the handling category of the error's kind.
func (e *DBError) Category() Category {
	return e.Kind.Category()
}

// FormatStack returns the stack captured when the error was created.
func (e *DBError) FormatStack() string {
	type stackTracer interface {
		StackTrace() errors.StackTrace
	}

	st, ok := e.origin.(stackTracer)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%+v", st.StackTrace())
}

// KindOf extracts the Kind of err, or 0 when err is not a DBError.
func KindOf(err error) Kind {
	var dbErr *DBError
	if errors.As(err, &dbErr) {
		return dbErr.Kind
	}
	return 0
}

// IsTransactionFatal reports whether err obliges the transaction that hit it
// to abort: storage faults, a buffer pool with no evictable page, and lock
// timeouts.
func IsTransactionFatal(err error) bool {
	switch KindOf(err) {
	case KindStorageIO, KindBufferPoolFull, KindConcurrencyTimeout:
		return true
	default:
		return false
	}
}
