package godb

// HeapFile is an unordered collection of tuples backed by one on-disk file:
// a concatenation of fixed-size pages, each decoded as a heapPage. It is the
// only DBFile implementation the core ships.

import (
	"io"
	"os"
	"sync"
)

type HeapFile struct {
	backingFile string
	tableID     int
	desc        *TupleDesc
	bp          *BufferPool

	// allocMu serializes the "allocate a fresh page past end-of-file"
	// path so two concurrent inserts never both claim the same page
	// number.
	allocMu sync.Mutex
}

// NewHeapFile constructs a HeapFile backed by fromFile (which may not yet
// exist, or may be a previously created heap file) with the given table id
// and descriptor, caching pages through bp.
func NewHeapFile(fromFile string, tableID int, td *TupleDesc, bp *BufferPool) (*HeapFile, error) {
	return &HeapFile{
		backingFile: fromFile,
		tableID:     tableID,
		desc:        td,
		bp:          bp,
	}, nil
}

func (f *HeapFile) BackingFile() string {
	return f.backingFile
}

func (f *HeapFile) TableID() int {
	return f.tableID
}

func (f *HeapFile) Descriptor() *TupleDesc {
	return f.desc
}

// NumPages returns ceil(file length / PageSize); a nonexistent file has 0
// pages.
func (f *HeapFile) NumPages() int {
	info, err := os.Stat(f.backingFile)
	if err != nil {
		return 0
	}
	size := info.Size()
	pages := int(size / int64(PageSize))
	if size%int64(PageSize) != 0 {
		pages++
	}
	return pages
}

func (f *HeapFile) openForReadWrite() (*os.File, error) {
	file, err := os.OpenFile(f.backingFile, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return nil, newGoDBError(IoFailureError, "opening %s: %v", f.backingFile, err)
	}
	return file, nil
}

// readPage decodes the page at pid.PageNumber from disk.
func (f *HeapFile) readPage(pid PageID) (Page, error) {
	if pid.TableID != f.tableID {
		return nil, GoDBError{WrongTableError, "page belongs to a different table"}
	}
	numPages := f.NumPages()
	if pid.PageNumber < 0 || pid.PageNumber >= numPages {
		return nil, GoDBError{PageOutOfBoundsError, "page number out of range"}
	}

	file, err := f.openForReadWrite()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data := make([]byte, PageSize)
	if _, err := file.ReadAt(data, int64(pid.PageNumber)*int64(PageSize)); err != nil && err != io.EOF {
		return nil, newGoDBError(IoFailureError, "reading page %d: %v", pid.PageNumber, err)
	}
	return newHeapPageFromBuffer(pid, data, f.desc, f)
}

// writePage serializes p and writes it at its page offset, creating or
// extending the backing file as needed.
func (f *HeapFile) writePage(p Page) error {
	hp, ok := p.(*heapPage)
	if !ok {
		return newGoDBError(IoFailureError, "writePage: not a heap page")
	}
	buf, err := hp.toBuffer()
	if err != nil {
		return err
	}
	return f.writeRawPage(hp.pid.PageNumber, buf.Bytes())
}

func (f *HeapFile) writeRawPage(pageNo int, data []byte) error {
	file, err := f.openForReadWrite()
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := file.Seek(int64(pageNo)*int64(PageSize), io.SeekStart); err != nil {
		return newGoDBError(IoFailureError, "seeking to page %d: %v", pageNo, err)
	}
	if _, err := file.Write(data); err != nil {
		return newGoDBError(IoFailureError, "writing page %d: %v", pageNo, err)
	}
	return nil
}

// insertTuple scans pages in ascending order looking for a page with an
// empty slot, fetching each through the buffer pool with WritePerm. If none
// has room, it allocates a fresh page past end-of-file under allocMu.
func (f *HeapFile) insertTuple(tid TransactionID, t *Tuple) ([]Page, error) {
	if !t.Desc.equals(f.desc) {
		return nil, GoDBError{SchemaMismatchError, "tuple descriptor does not match file descriptor"}
	}

	numPages := f.NumPages()
	for pageNo := 0; pageNo < numPages; pageNo++ {
		pid := PageID{TableID: f.tableID, PageNumber: pageNo}
		page, err := f.bp.GetPage(tid, pid, WritePerm)
		if err != nil {
			return nil, err
		}
		hp := page.(*heapPage)
		if _, err := hp.insertTuple(t); err != nil {
			if gerr, ok := err.(GoDBError); ok && gerr.Code == PageFullError {
				continue
			}
			return nil, err
		}
		return []Page{hp}, nil
	}

	f.allocMu.Lock()
	defer f.allocMu.Unlock()

	// Re-check under the lock: another inserter may have extended the
	// file while we were scanning.
	pageNo := f.NumPages()
	pid := PageID{TableID: f.tableID, PageNumber: pageNo}
	if err := f.writeRawPage(pageNo, createEmptyPageData()); err != nil {
		return nil, err
	}

	page, err := f.bp.GetPage(tid, pid, WritePerm)
	if err != nil {
		return nil, err
	}
	hp := page.(*heapPage)
	if _, err := hp.insertTuple(t); err != nil {
		return nil, err
	}
	return []Page{hp}, nil
}

// deleteTuple fetches the page named by t.Rid with WritePerm and clears its
// slot.
func (f *HeapFile) deleteTuple(tid TransactionID, t *Tuple) (Page, error) {
	if t.Rid == nil {
		return nil, GoDBError{NotOnThisPageError, "tuple has no record id"}
	}
	pid := t.Rid.PageID
	page, err := f.bp.GetPage(tid, pid, WritePerm)
	if err != nil {
		return nil, err
	}
	hp := page.(*heapPage)
	if err := hp.deleteTuple(t); err != nil {
		return nil, err
	}
	return hp, nil
}

// iterate returns a lazy, finite function iterating every tuple in the file
// in page-number, then slot-number order, fetching each page through the
// buffer pool with ReadPerm. Calling iterate again starts over at page 0.
func (f *HeapFile) iterate(tid TransactionID) (func() (*Tuple, error), error) {
	pageNo := 0
	var pageIter func() (*Tuple, error)

	return func() (*Tuple, error) {
		for {
			if pageIter == nil {
				if pageNo >= f.NumPages() {
					return nil, nil
				}
				pid := PageID{TableID: f.tableID, PageNumber: pageNo}
				page, err := f.bp.GetPage(tid, pid, ReadPerm)
				if err != nil {
					return nil, err
				}
				pageIter = page.(*heapPage).tupleIter()
			}
			t, err := pageIter()
			if err != nil {
				return nil, err
			}
			if t == nil {
				pageIter = nil
				pageNo++
				continue
			}
			return t, nil
		}
	}, nil
}

// LoadFromCSV populates the file from a CSV, one tuple per line, within its
// own commit per row. hasHeader skips the first line; skipLastField drops a
// trailing separator some exports emit.
func (f *HeapFile) LoadFromCSV(bp *BufferPool, file *os.File, hasHeader bool, sep string, skipLastField bool) error {
	return loadHeapFileFromCSV(f, bp, file, hasHeader, sep, skipLastField)
}

// emptyPage materializes a fresh, all-empty heap page for pid without
// touching disk.
func (f *HeapFile) emptyPage(pid PageID) Page {
	return newHeapPage(pid, f.desc, f)
}
