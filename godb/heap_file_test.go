package godb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intStringFileDesc() *TupleDesc {
	return &TupleDesc{Fields: []FieldType{
		{Fname: "a", Ftype: IntType},
		{Fname: "b", Ftype: StringType},
	}}
}

// newTestHeapFile wires up a catalog + buffer pool + heap file backed by a
// file under t.TempDir(), the shape every scenario test builds on.
func newTestHeapFile(t *testing.T, numPages int) (*HeapFile, *BufferPool, *SimpleCatalog) {
	t.Helper()
	catalog := NewSimpleCatalog()
	bp, err := NewBufferPool(numPages, catalog)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "t.dat")
	id := catalog.NextTableID()
	hf, err := NewHeapFile(path, id, intStringFileDesc(), bp)
	require.NoError(t, err)
	catalog.AddTable("t", hf)
	return hf, bp, catalog
}

func TestHeapFileInsertAndScan(t *testing.T) {
	hf, bp, _ := newTestHeapFile(t, 10)

	tid := NewTID()
	require.NoError(t, bp.BeginTransaction(tid))
	for i, s := range []string{"a", "b", "c"} {
		tup := &Tuple{Desc: *hf.Descriptor(), Fields: []DBValue{IntField{int64(i + 1)}, StringField{s}}}
		require.NoError(t, bp.InsertTuple(tid, hf.TableID(), tup))
	}
	require.NoError(t, bp.CommitTransaction(tid))

	tid2 := NewTID()
	next, err := hf.iterate(tid2)
	require.NoError(t, err)

	var got []*Tuple
	for {
		tup, err := next()
		require.NoError(t, err)
		if tup == nil {
			break
		}
		got = append(got, tup)
	}
	require.Len(t, got, 3)
	for i, tup := range got {
		assert.Equal(t, int64(i+1), tup.Fields[0].(IntField).Value)
		assert.Equal(t, 0, tup.Rid.PageID.PageNumber)
		assert.Equal(t, i, tup.Rid.SlotNo)
	}
	require.NoError(t, bp.CommitTransaction(tid2))
}

func TestHeapFileDeleteReopensSlot(t *testing.T) {
	hf, bp, _ := newTestHeapFile(t, 10)

	tid := NewTID()
	var rids []*RecordID
	for i, s := range []string{"a", "b", "c"} {
		tup := &Tuple{Desc: *hf.Descriptor(), Fields: []DBValue{IntField{int64(i + 1)}, StringField{s}}}
		require.NoError(t, bp.InsertTuple(tid, hf.TableID(), tup))
		rids = append(rids, tup.Rid)
	}
	require.NoError(t, bp.CommitTransaction(tid))

	tid2 := NewTID()
	toDelete := &Tuple{Desc: *hf.Descriptor(), Rid: rids[1]}
	require.NoError(t, bp.DeleteTuple(tid2, toDelete))
	require.NoError(t, bp.CommitTransaction(tid2))

	tid3 := NewTID()
	fresh := &Tuple{Desc: *hf.Descriptor(), Fields: []DBValue{IntField{4}, StringField{"d"}}}
	require.NoError(t, bp.InsertTuple(tid3, hf.TableID(), fresh))
	require.NoError(t, bp.CommitTransaction(tid3))

	assert.Equal(t, 1, fresh.Rid.SlotNo)
	assert.Equal(t, 0, fresh.Rid.PageID.PageNumber)
}

func TestHeapFileNumPagesGrowsOnOverflow(t *testing.T) {
	SetPageSize(256)
	defer SetPageSize(4096)

	hf, bp, _ := newTestHeapFile(t, 100)
	assert.Equal(t, 0, hf.NumPages())

	tid := NewTID()
	for i := 0; i < 40; i++ {
		tup := &Tuple{Desc: *hf.Descriptor(), Fields: []DBValue{IntField{int64(i)}, StringField{"x"}}}
		require.NoError(t, bp.InsertTuple(tid, hf.TableID(), tup))
	}
	require.NoError(t, bp.CommitTransaction(tid))
	assert.Greater(t, hf.NumPages(), 1)
}
