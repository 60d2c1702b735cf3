package godb

type LimitOp struct {
	child     Operator
	limitTups Expr
}

// NewLimitOp constructs an operator that passes through at most lim (a
// constant int expression) of child's tuples.
func NewLimitOp(lim Expr, child Operator) *LimitOp {
	return &LimitOp{
		child:     child,
		limitTups: lim,
	}
}

func (l *LimitOp) Descriptor() *TupleDesc {
	return l.child.Descriptor()
}

func (l *LimitOp) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	count := 0
	expr, err := l.limitTups.EvalExpr(nil)
	if err != nil {
		return nil, err
	}
	limit, ok := expr.(IntField)
	if !ok {
		return nil, GoDBError{TypeMismatchError, "limit expression did not evaluate to an int"}
	}
	child_iter, err := l.child.Iterator(tid)
	if err != nil {
		return nil, err
	}

	return func() (*Tuple, error) {
		for {
			tuple, err := child_iter()
			if err != nil {
				return nil, err
			}
			if tuple == nil || count >= int(limit.Value) {
				return nil, nil
			}
			count += 1
			return tuple, nil
		}
	}, nil
}
