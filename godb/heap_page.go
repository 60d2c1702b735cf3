package godb

// heapPage implements a fixed-size slotted page: a bitmap header recording
// which slots are occupied, followed by a flat array of fixed-width tuple
// slots. All tuples on a page are fixed length, so the descriptor alone
// determines how many slots fit on a PageSize page.
//
//	bitsPerSlot = tupleSize*8 + 1
//	numSlots    = (PageSize*8) / bitsPerSlot      (integer division)
//	headerBytes = ceil(numSlots / 8)
//
// Bit i of the header, numbered LSB-first within each byte, is set iff slot
// i is occupied. Trailing header bits and any rounding remainder are zero.

import (
	"bytes"
)

type heapPage struct {
	pid      PageID
	desc     *TupleDesc
	file     *HeapFile
	numSlots int
	tuples   []*Tuple // len == numSlots; nil entries are empty slots

	dirty   bool
	dirtier TransactionID
}

// heapPageLayout computes the slot count and header size for a descriptor on
// a PageSize page.
func heapPageLayout(desc *TupleDesc) (numSlots, headerBytes, tupleSize int) {
	tupleSize = desc.bytesPerTuple()
	bitsPerSlot := tupleSize*8 + 1
	numSlots = (PageSize * 8) / bitsPerSlot
	headerBytes = (numSlots + 7) / 8
	return
}

// newHeapPage constructs an empty heap page (no occupied slots) for pid.
func newHeapPage(pid PageID, desc *TupleDesc, f *HeapFile) *heapPage {
	numSlots, _, _ := heapPageLayout(desc)
	return &heapPage{
		pid:      pid,
		desc:     desc,
		file:     f,
		numSlots: numSlots,
		tuples:   make([]*Tuple, numSlots),
	}
}

// createEmptyPageData returns PageSize zero bytes: the on-disk image of a
// page with no occupied slots, for any descriptor (the header bitmap of all
// zero bytes is slot-count independent).
func createEmptyPageData() []byte {
	return make([]byte, PageSize)
}

// newHeapPageFromBuffer decodes a heap page from exactly PageSize bytes,
// parsing the header bitmap and then each occupied slot against desc.
func newHeapPageFromBuffer(pid PageID, data []byte, desc *TupleDesc, f *HeapFile) (*heapPage, error) {
	if len(data) != PageSize {
		return nil, newGoDBError(IoFailureError, "heap page buffer must be exactly %d bytes, got %d", PageSize, len(data))
	}
	numSlots, headerBytes, tupleSize := heapPageLayout(desc)
	hp := &heapPage{
		pid:      pid,
		desc:     desc,
		file:     f,
		numSlots: numSlots,
		tuples:   make([]*Tuple, numSlots),
	}

	header := data[:headerBytes]
	body := bytes.NewReader(data[headerBytes:])
	for slot := 0; slot < numSlots; slot++ {
		occupied := header[slot/8]&(1<<uint(slot%8)) != 0
		buf := make([]byte, tupleSize)
		if _, err := body.Read(buf); err != nil {
			return nil, newGoDBError(IoFailureError, "reading slot %d: %v", slot, err)
		}
		if !occupied {
			continue
		}
		t, err := readTupleFrom(bytes.NewBuffer(buf), desc)
		if err != nil {
			return nil, newGoDBError(IoFailureError, "decoding slot %d: %v", slot, err)
		}
		t.Rid = &RecordID{PageID: pid, SlotNo: slot}
		hp.tuples[slot] = t
	}
	return hp, nil
}

// getTuple returns the tuple at slot, or SlotEmptyError if unoccupied.
func (h *heapPage) getTuple(slot int) (*Tuple, error) {
	if slot < 0 || slot >= h.numSlots || h.tuples[slot] == nil {
		return nil, GoDBError{SlotEmptyError, "slot is empty"}
	}
	return h.tuples[slot], nil
}

// insertTuple places t in the lowest-indexed empty slot, sets t's Rid, and
// marks the page dirty.
func (h *heapPage) insertTuple(t *Tuple) (RecordID, error) {
	if !t.Desc.equals(h.desc) {
		return RecordID{}, GoDBError{SchemaMismatchError, "tuple descriptor does not match page descriptor"}
	}
	for slot := 0; slot < h.numSlots; slot++ {
		if h.tuples[slot] != nil {
			continue
		}
		rid := RecordID{PageID: h.pid, SlotNo: slot}
		stored := &Tuple{Desc: *h.desc, Fields: t.Fields, Rid: &rid}
		h.tuples[slot] = stored
		t.Rid = &rid
		h.dirty = true
		return rid, nil
	}
	return RecordID{}, GoDBError{PageFullError, "no empty slot on page"}
}

// deleteTuple clears t's slot, identified by t.Rid.
func (h *heapPage) deleteTuple(t *Tuple) error {
	if t.Rid == nil {
		return GoDBError{NotOnThisPageError, "tuple has no record id"}
	}
	if t.Rid.PageID != h.pid {
		return GoDBError{NotOnThisPageError, "record id belongs to a different page"}
	}
	slot := t.Rid.SlotNo
	if slot < 0 || slot >= h.numSlots || h.tuples[slot] == nil {
		return GoDBError{SlotAlreadyEmptyError, "slot is already empty"}
	}
	h.tuples[slot] = nil
	h.dirty = true
	return nil
}

func (h *heapPage) isDirty() bool {
	return h.dirty
}

// dirtierTID reports the transaction that last dirtied the page, if any.
func (h *heapPage) dirtierTID() (TransactionID, bool) {
	if !h.dirty {
		return 0, false
	}
	return h.dirtier, true
}

func (h *heapPage) setDirty(tid TransactionID, dirty bool) {
	h.dirty = dirty
	if dirty {
		h.dirtier = tid
	}
}

func (h *heapPage) getFile() DBFile {
	return h.file
}

func (h *heapPage) id() PageID {
	return h.pid
}

// tupleIter returns a function iterating the page's occupied slots in
// ascending slot order. Each call to heapPage.tupleIter returns a fresh,
// independent cursor, so re-invoking it rewinds the iteration.
func (h *heapPage) tupleIter() func() (*Tuple, error) {
	slot := 0
	return func() (*Tuple, error) {
		for slot < h.numSlots {
			t := h.tuples[slot]
			slot++
			if t != nil {
				return t, nil
			}
		}
		return nil, nil
	}
}

// toBuffer serializes the page to exactly PageSize bytes: the bitmap header,
// then each slot (tuple bytes for occupied slots, zeroes for empty ones),
// then zero padding to PageSize.
func (h *heapPage) toBuffer() (*bytes.Buffer, error) {
	_, headerBytes, tupleSize := heapPageLayout(h.desc)
	buf := new(bytes.Buffer)
	header := make([]byte, headerBytes)
	for slot, t := range h.tuples {
		if t != nil {
			header[slot/8] |= 1 << uint(slot%8)
		}
	}
	buf.Write(header)

	for _, t := range h.tuples {
		if t == nil {
			buf.Write(make([]byte, tupleSize))
			continue
		}
		before := buf.Len()
		if err := t.writeTo(buf); err != nil {
			return nil, err
		}
		if written := buf.Len() - before; written != tupleSize {
			return nil, newGoDBError(IoFailureError, "tuple serialized to %d bytes, expected %d", written, tupleSize)
		}
	}

	if buf.Len() < PageSize {
		buf.Write(make([]byte, PageSize-buf.Len()))
	}
	return buf, nil
}
