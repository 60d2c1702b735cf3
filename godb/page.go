package godb

import "sync/atomic"

// PageSize is the fixed size, in bytes, of every page on disk. Tests may
// override it with SetPageSize to exercise small-page edge cases.
var PageSize = 4096

// SetPageSize overrides PageSize; test-only, since real tables are created
// against a fixed page size.
func SetPageSize(size int) {
	PageSize = size
}

// TransactionID is a unique, monotonically minted identifier for a
// transaction. Identity is by value.
type TransactionID int64

var nextTID int64

// NewTID mints a fresh TransactionID. Safe for concurrent use.
func NewTID() TransactionID {
	return TransactionID(atomic.AddInt64(&nextTID, 1))
}

// RWPerm is the permission a caller requests when fetching a page: ReadPerm
// maps to a SHARED lock, WritePerm to an EXCLUSIVE lock.
type RWPerm int

const (
	ReadPerm RWPerm = iota
	WritePerm
)

// Page is the interface the buffer pool and heap file operate on. heapPage is
// the only implementation the core ships, but the interface lets a future
// page type (e.g. an index page) share the same buffer pool and lock
// manager.
type Page interface {
	isDirty() bool
	setDirty(tid TransactionID, dirty bool)
	getFile() DBFile
	// id returns the PageID of this page, used by the buffer pool to key
	// its cache without a type switch per page implementation.
	id() PageID
}

// DBFile is the interface a buffer pool uses to read, write, and iterate the
// pages of one on-disk table. HeapFile is the only implementation here; the
// interface exists so the buffer pool and operators never depend on
// HeapFile's concrete layout.
type DBFile interface {
	// readPage decodes the page identified by pid from disk. Fails with
	// WrongTableError if pid names another file, or PageOutOfBoundsError
	// if the page number is out of range.
	readPage(pid PageID) (Page, error)
	// writePage serializes p and writes it to its backing offset,
	// extending the file if p is one page past the current end. Called
	// by the buffer pool on flush, never by callers directly.
	writePage(p Page) error
	// insertTuple inserts t, assigning its Rid, and returns the pages it
	// dirtied (exactly one: either an existing page with room, or a
	// freshly allocated one).
	insertTuple(tid TransactionID, t *Tuple) ([]Page, error)
	// deleteTuple removes t (identified by t.Rid) from its page and
	// returns that page.
	deleteTuple(tid TransactionID, t *Tuple) (Page, error)
	// iterate returns a function yielding successive tuples from the
	// file in page-number, then slot-number order, reading each page
	// through tid's buffer pool access, or (nil, nil) once exhausted.
	// Calling iterate again rewinds to page 0.
	iterate(tid TransactionID) (func() (*Tuple, error), error)
	// Descriptor returns the TupleDesc tuples in this file conform to.
	Descriptor() *TupleDesc
	// TableID returns the stable, process-local table id this file
	// serves, used to key pages in the buffer pool and catalog.
	TableID() int
	// NumPages returns ceil(file length / PageSize).
	NumPages() int
	// emptyPage materializes a fresh, all-empty page for pid without
	// touching disk. Used by the buffer pool when a caller requests a
	// page number at or past the current end of file (e.g. to support an
	// insert that is about to extend it).
	emptyPage(pid PageID) Page
}
