package godb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIntTuple(v int64) *Tuple {
	desc := &TupleDesc{Fields: []FieldType{{Fname: "a", Ftype: IntType}}}
	return &Tuple{Desc: *desc, Fields: []DBValue{IntField{v}}}
}

func TestHeapPageInsertFillsLowestSlotFirst(t *testing.T) {
	desc := &TupleDesc{Fields: []FieldType{{Fname: "a", Ftype: IntType}}}
	pid := PageID{TableID: 1, PageNumber: 0}
	hp := newHeapPage(pid, desc, nil)

	for i := int64(0); i < 3; i++ {
		rid, err := hp.insertTuple(newTestIntTuple(i))
		require.NoError(t, err)
		assert.Equal(t, int(i), rid.SlotNo)
	}
}

func TestHeapPageDeleteReopensSlot(t *testing.T) {
	desc := &TupleDesc{Fields: []FieldType{{Fname: "a", Ftype: IntType}}}
	pid := PageID{TableID: 1, PageNumber: 0}
	hp := newHeapPage(pid, desc, nil)

	var rids []RecordID
	for i := int64(0); i < 3; i++ {
		rid, err := hp.insertTuple(newTestIntTuple(i))
		require.NoError(t, err)
		rids = append(rids, rid)
	}

	t1 := &Tuple{Desc: *desc, Rid: &rids[1]}
	require.NoError(t, hp.deleteTuple(t1))

	rid, err := hp.insertTuple(newTestIntTuple(99))
	require.NoError(t, err)
	assert.Equal(t, 1, rid.SlotNo, "freed slot should be reused before extending")
}

func TestHeapPageFullFailsCleanly(t *testing.T) {
	desc := &TupleDesc{Fields: []FieldType{{Fname: "a", Ftype: IntType}}}
	pid := PageID{TableID: 1, PageNumber: 0}
	hp := newHeapPage(pid, desc, nil)

	inserted := 0
	for {
		_, err := hp.insertTuple(newTestIntTuple(int64(inserted)))
		if err != nil {
			gerr, ok := err.(GoDBError)
			require.True(t, ok)
			assert.Equal(t, PageFullError, gerr.Code)
			break
		}
		inserted++
		require.Less(t, inserted, 10_000, "page never reported full")
	}
	assert.Equal(t, hp.numSlots, inserted)
}

func TestHeapPageRoundTrip(t *testing.T) {
	desc := &TupleDesc{Fields: []FieldType{
		{Fname: "a", Ftype: IntType},
		{Fname: "b", Ftype: StringType},
	}}
	pid := PageID{TableID: 7, PageNumber: 3}
	hp := newHeapPage(pid, desc, nil)

	_, err := hp.insertTuple(&Tuple{Desc: *desc, Fields: []DBValue{IntField{1}, StringField{"a"}}})
	require.NoError(t, err)
	_, err = hp.insertTuple(&Tuple{Desc: *desc, Fields: []DBValue{IntField{2}, StringField{"b"}}})
	require.NoError(t, err)

	buf, err := hp.toBuffer()
	require.NoError(t, err)
	assert.Equal(t, PageSize, buf.Len())

	decoded, err := newHeapPageFromBuffer(pid, buf.Bytes(), desc, nil)
	require.NoError(t, err)

	for slot := 0; slot < hp.numSlots; slot++ {
		want, wantErr := hp.getTuple(slot)
		got, gotErr := decoded.getTuple(slot)
		if wantErr != nil {
			assert.Error(t, gotErr)
			continue
		}
		require.NoError(t, gotErr)
		assert.True(t, want.equals(got))
	}
}

func TestCreateEmptyPageDataIsAllEmpty(t *testing.T) {
	desc := &TupleDesc{Fields: []FieldType{{Fname: "a", Ftype: IntType}}}
	pid := PageID{TableID: 1, PageNumber: 0}

	hp, err := newHeapPageFromBuffer(pid, createEmptyPageData(), desc, nil)
	require.NoError(t, err)
	for slot := 0; slot < hp.numSlots; slot++ {
		_, err := hp.getTuple(slot)
		assert.Error(t, err)
	}
}
