package godb

// Operator is the pull-based query-plan protocol every relational operator
// (scan, filter, join, project, ...) implements. Iterator returns a closure
// that yields successive tuples, or (nil, nil) once exhausted; calling
// Iterator again starts a fresh pass over the operator's results.
type Operator interface {
	Descriptor() *TupleDesc
	Iterator(tid TransactionID) (func() (*Tuple, error), error)
}

// SeqScan is the leaf operator that reads every tuple of a DBFile, in
// whatever order its iterate method produces, optionally tagging the
// descriptor with a table alias for qualified field lookups downstream.
type SeqScan struct {
	file  DBFile
	alias string
}

// NewSeqScan constructs a full scan of file, tagging its descriptor's fields
// with alias (so joins and projections can disambiguate same-named columns
// from different tables).
func NewSeqScan(file DBFile, alias string) *SeqScan {
	return &SeqScan{file: file, alias: alias}
}

func (s *SeqScan) Descriptor() *TupleDesc {
	desc := s.file.Descriptor().copy()
	if s.alias != "" {
		desc.setTableAlias(s.alias)
	}
	return desc
}

func (s *SeqScan) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	next, err := s.file.iterate(tid)
	if err != nil {
		return nil, err
	}
	desc := s.Descriptor()
	return func() (*Tuple, error) {
		t, err := next()
		if err != nil || t == nil {
			return nil, err
		}
		return &Tuple{Desc: *desc, Fields: t.Fields, Rid: t.Rid}, nil
	}, nil
}
