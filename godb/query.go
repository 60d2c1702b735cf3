package godb

import (
	"os"
)

// ComputeFieldSum loads csvFile (a comma-delimited CSV with a header) into
// a fresh heap file backed by backingFile, registers it in catalog under
// tableName, and returns the sum of its sumField column. It is a thin,
// end-to-end exercise of the operator layer over the catalog/buffer-pool/
// heap-file path: load, then a SeqScan feeding a single-aggregate SUM
// Aggregator, commit.
func ComputeFieldSum(bp *BufferPool, catalog *SimpleCatalog, backingFile, tableName, csvFile string, td TupleDesc, sumField string) (int64, error) {
	index, err := findFieldInTd(FieldType{Fname: sumField}, &td)
	if err != nil {
		return 0, err
	}
	if td.Fields[index].Ftype != IntType {
		return 0, GoDBError{TypeMismatchError, "sum field is not an integer column"}
	}

	os.Remove(backingFile)
	tableID := catalog.NextTableID()
	hf, err := NewHeapFile(backingFile, tableID, &td, bp)
	if err != nil {
		return 0, err
	}
	catalog.AddTable(tableName, hf)

	f, err := os.Open(csvFile)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	if err := hf.LoadFromCSV(bp, f, true, ",", false); err != nil {
		return 0, err
	}

	scan := NewSeqScan(hf, "")
	sumExpr := &FieldExpr{Field: td.Fields[index]}
	sumState := &SumAggState{}
	if err := sumState.Init(sumField, sumExpr); err != nil {
		return 0, err
	}
	agg := NewAggregator([]AggState{sumState}, nil, scan)

	tid := NewTID()
	if err := bp.BeginTransaction(tid); err != nil {
		return 0, err
	}
	next, err := agg.Iterator(tid)
	if err != nil {
		bp.AbortTransaction(tid)
		return 0, err
	}

	t, err := next()
	if err != nil {
		bp.AbortTransaction(tid)
		return 0, err
	}
	if t == nil {
		if err := bp.CommitTransaction(tid); err != nil {
			return 0, err
		}
		return 0, nil
	}
	v, ok := t.Fields[0].(IntField)
	if !ok {
		bp.AbortTransaction(tid)
		return 0, GoDBError{TypeMismatchError, "sum field value was not an int"}
	}
	if err := bp.CommitTransaction(tid); err != nil {
		return 0, err
	}
	return v.Value, nil
}
