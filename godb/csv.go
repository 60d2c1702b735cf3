package godb

// loadHeapFileFromCSV is the shared body behind HeapFile.LoadFromCSV: each
// row is parsed against f.Descriptor() and inserted in its own
// begin/commit, mirroring how a bulk loader would stream rows through the
// same transactional path as ordinary inserts.

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

func loadHeapFileFromCSV(f *HeapFile, bp *BufferPool, file io.Reader, hasHeader bool, sep string, skipLastField bool) error {
	scanner := bufio.NewScanner(file)
	desc := f.Descriptor()
	if desc == nil || desc.Fields == nil {
		return GoDBError{MalformedDataError, "descriptor was nil"}
	}

	lineNo := 0
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Split(line, sep)
		if skipLastField && len(fields) > 0 {
			fields = fields[:len(fields)-1]
		}
		lineNo++
		if lineNo == 1 && hasHeader {
			continue
		}
		if len(fields) != len(desc.Fields) {
			return GoDBError{MalformedDataError, fmt.Sprintf("line %d (%s): expected %d fields, got %d", lineNo, line, len(desc.Fields), len(fields))}
		}

		values := make([]DBValue, len(fields))
		for i, raw := range fields {
			switch desc.Fields[i].Ftype {
			case IntType:
				v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
				if err != nil {
					return GoDBError{TypeMismatchError, fmt.Sprintf("line %d: couldn't convert %q to int", lineNo, raw)}
				}
				values[i] = IntField{v}
			case StringType:
				if len(raw) > StringLength {
					raw = raw[:StringLength]
				}
				values[i] = StringField{raw}
			}
		}

		t := &Tuple{Desc: *desc, Fields: values}
		tid := NewTID()
		if err := bp.BeginTransaction(tid); err != nil {
			return err
		}
		if err := bp.InsertTuple(tid, f.tableID, t); err != nil {
			bp.AbortTransaction(tid)
			return err
		}
		if err := bp.CommitTransaction(tid); err != nil {
			return err
		}
	}
	return scanner.Err()
}
