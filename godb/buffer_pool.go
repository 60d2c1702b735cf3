package godb

// BufferPool caches pages read from disk, bounded to maxPages entries, and
// is the sole path by which query operators touch a page. Every fetch first
// goes through the LockManager; once granted, the page comes from cache or
// is read from (or materialized past the end of) its owning heap file.
// Eviction is NO-STEAL: a dirty page is never written out to make room,
// since GoDB has no WAL and relies on FORCE at commit to make writes
// durable.

import (
	"container/list"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type BufferPool struct {
	mu       sync.Mutex
	maxPages int
	pages    map[PageID]Page
	order    *list.List // front = least-recently touched, back = most recent
	elems    map[PageID]*list.Element

	catalog Catalog
	locks   *LockManager
	log     zerolog.Logger
}

// NewBufferPool creates a buffer pool with room for numPages cached pages,
// resolving table ids through catalog.
func NewBufferPool(numPages int, catalog Catalog) (*BufferPool, error) {
	return &BufferPool{
		maxPages: numPages,
		pages:    make(map[PageID]Page),
		order:    list.New(),
		elems:    make(map[PageID]*list.Element),
		catalog:  catalog,
		locks:    NewLockManager(),
		log:      log.With().Str("component", "bufferpool").Logger(),
	}, nil
}

// WithLogger overrides the buffer pool's logger (default: the global
// zerolog logger tagged with component=bufferpool).
func (bp *BufferPool) WithLogger(l zerolog.Logger) *BufferPool {
	bp.log = l
	return bp
}

// BeginTransaction records nothing and always returns nil. Transactions
// begin implicitly at first lock request; this exists so callers that want
// an explicit begin/commit bracket (as LoadFromCSV does) have one, but it
// never fails and never needs to be called before GetPage.
func (bp *BufferPool) BeginTransaction(tid TransactionID) error {
	return nil
}

// GetPage retrieves pid on behalf of tid with the given permission, blocking
// until the corresponding lock is granted. A Deadlock error aborts nothing
// by itself; the caller is expected to call AbortTransaction(tid).
func (bp *BufferPool) GetPage(tid TransactionID, pid PageID, perm RWPerm) (Page, error) {
	mode := Shared
	if perm == WritePerm {
		mode = Exclusive
	}
	if err := bp.locks.acquire(tid, pid, mode); err != nil {
		return nil, err
	}

	bp.mu.Lock()
	defer bp.mu.Unlock()

	if page, ok := bp.pages[pid]; ok {
		bp.touchLocked(pid)
		return page, nil
	}

	file, err := bp.catalog.GetDatabaseFile(pid.TableID)
	if err != nil {
		return nil, err
	}

	var page Page
	if pid.PageNumber < file.NumPages() {
		page, err = file.readPage(pid)
		if err != nil {
			return nil, err
		}
	} else {
		page = file.emptyPage(pid)
	}

	if len(bp.pages) >= bp.maxPages {
		if err := bp.evictLocked(); err != nil {
			return nil, err
		}
	}
	bp.pages[pid] = page
	bp.touchLocked(pid)
	return page, nil
}

// evictLocked removes the least-recently-touched clean page from the cache.
// Caller must hold bp.mu.
func (bp *BufferPool) evictLocked() error {
	for e := bp.order.Front(); e != nil; e = e.Next() {
		pid := e.Value.(PageID)
		page := bp.pages[pid]
		if page != nil && !page.isDirty() {
			bp.removeLocked(pid)
			return nil
		}
	}
	bp.log.Warn().Int("cached", len(bp.pages)).Msg("no clean page to evict")
	return GoDBError{NoCleanVictimError, "buffer pool is full of dirty pages"}
}

func (bp *BufferPool) removeLocked(pid PageID) {
	delete(bp.pages, pid)
	if e, ok := bp.elems[pid]; ok {
		bp.order.Remove(e)
		delete(bp.elems, pid)
	}
}

func (bp *BufferPool) touchLocked(pid PageID) {
	if e, ok := bp.elems[pid]; ok {
		bp.order.MoveToBack(e)
		return
	}
	bp.elems[pid] = bp.order.PushBack(pid)
}

// InsertTuple inserts t into tableID's file (via GetPage, under the hood)
// and marks every page the insert dirtied, caching them and bumping their
// recency.
func (bp *BufferPool) InsertTuple(tid TransactionID, tableID int, t *Tuple) error {
	file, err := bp.catalog.GetDatabaseFile(tableID)
	if err != nil {
		return err
	}
	dirtied, err := file.insertTuple(tid, t)
	if err != nil {
		return err
	}
	bp.cacheDirtied(tid, dirtied)
	return nil
}

// DeleteTuple deletes t (identified by t.Rid) from its owning file and marks
// the affected page dirty.
func (bp *BufferPool) DeleteTuple(tid TransactionID, t *Tuple) error {
	if t.Rid == nil {
		return GoDBError{NotOnThisPageError, "tuple has no record id"}
	}
	file, err := bp.catalog.GetDatabaseFile(t.Rid.PageID.TableID)
	if err != nil {
		return err
	}
	page, err := file.deleteTuple(tid, t)
	if err != nil {
		return err
	}
	bp.cacheDirtied(tid, []Page{page})
	return nil
}

func (bp *BufferPool) cacheDirtied(tid TransactionID, pages []Page) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	for _, p := range pages {
		p.setDirty(tid, true)
		pid := p.id()
		bp.pages[pid] = p
		bp.touchLocked(pid)
	}
}

// TransactionComplete finalizes tid: on commit, every page it still holds a
// lock on is flushed if dirty; on abort, every such page is discarded from
// the cache unwritten (NO-STEAL makes this sufficient to undo the
// transaction's writes). Locks are released last, in both cases.
func (bp *BufferPool) TransactionComplete(tid TransactionID, commit bool) error {
	pages := bp.locks.pagesHeld(tid)

	var flushErr error
	bp.mu.Lock()
	for _, pid := range pages {
		page, ok := bp.pages[pid]
		if !ok {
			continue
		}
		if commit {
			if page.isDirty() {
				file, err := bp.catalog.GetDatabaseFile(pid.TableID)
				if err != nil {
					flushErr = err
					break
				}
				if err := file.writePage(page); err != nil {
					flushErr = err
					break
				}
				page.setDirty(tid, false)
			}
		} else {
			bp.removeLocked(pid)
		}
	}
	bp.mu.Unlock()

	bp.locks.releaseAll(tid)
	return flushErr
}

// CommitTransaction flushes tid's dirty pages to disk and releases its
// locks.
func (bp *BufferPool) CommitTransaction(tid TransactionID) error {
	return bp.TransactionComplete(tid, true)
}

// AbortTransaction discards tid's dirty pages from the cache (writing
// nothing, by NO-STEAL) and releases its locks.
func (bp *BufferPool) AbortTransaction(tid TransactionID) error {
	return bp.TransactionComplete(tid, false)
}

// FlushPage writes pid's page to disk and clears its dirty flag, if cached
// and dirty; a no-op otherwise.
func (bp *BufferPool) FlushPage(pid PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	page, ok := bp.pages[pid]
	if !ok || !page.isDirty() {
		return nil
	}
	file, err := bp.catalog.GetDatabaseFile(pid.TableID)
	if err != nil {
		return err
	}
	if err := file.writePage(page); err != nil {
		return err
	}
	page.setDirty(0, false)
	return nil
}

// FlushAllPages is a testing convenience: it flushes every dirty cached page
// without regard to transaction or locking state.
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	for pid, page := range bp.pages {
		if !page.isDirty() {
			continue
		}
		file, err := bp.catalog.GetDatabaseFile(pid.TableID)
		if err != nil {
			return err
		}
		if err := file.writePage(page); err != nil {
			return err
		}
		page.setDirty(0, false)
	}
	return nil
}

// ReleasePage releases tid's lock on pid immediately, ahead of transaction
// completion. This is an early-release escape hatch: a schedule that uses it
// may not be two-phase, and callers accept that risk explicitly.
func (bp *BufferPool) ReleasePage(tid TransactionID, pid PageID) {
	bp.locks.release(tid, pid, true)
}

// HoldsLock reports whether tid currently holds any lock on pid.
func (bp *BufferPool) HoldsLock(tid TransactionID, pid PageID) bool {
	return bp.locks.holdsLock(tid, pid)
}

// PagesHeld returns the pages tid currently holds a lock on.
func (bp *BufferPool) PagesHeld(tid TransactionID) []PageID {
	return bp.locks.pagesHeld(tid)
}
