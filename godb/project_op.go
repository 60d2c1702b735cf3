package godb

import (
	"errors"
)

type Project struct {
	selectFields []Expr
	outputNames  []string
	child        Operator
	distinct     bool
}

// NewProjectOp constructs a projection of selectFields, renamed to
// outputNames (which must be the same length), over child's results. When
// distinct is set, duplicate output tuples are suppressed.
func NewProjectOp(selectFields []Expr, outputNames []string, distinct bool, child Operator) (Operator, error) {
	if len(selectFields) != len(outputNames) {
		return nil, errors.New("these should be the same length")
	}

	return &Project{
		selectFields: selectFields,
		outputNames:  outputNames,
		distinct:     distinct,
		child:        child,
	}, nil
}

func (p *Project) Descriptor() *TupleDesc {
	proj_desc := &TupleDesc{
		Fields: make([]FieldType, len(p.selectFields)),
	}

	for i := 0; i < len(p.selectFields); i++ {
		get := p.selectFields[i].GetExprType()
		get.Fname = p.outputNames[i]
		proj_desc.Fields[i] = get
	}

	return proj_desc
}

func (p *Project) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	child_iter, err := p.child.Iterator(tid)
	if err != nil {
		return nil, err
	}
	proj_desc := *p.Descriptor()
	var seenKeys map[any]struct{}
	if p.distinct {
		seenKeys = make(map[any]struct{})
	}

	return func() (*Tuple, error) {
		for {
			tuple, err := child_iter()
			if err != nil {
				return nil, err
			}
			if tuple == nil {
				return nil, nil
			}

			new := &Tuple{
				Desc:   proj_desc,
				Fields: make([]DBValue, len(p.selectFields)),
			}

			for i := 0; i < len(p.selectFields); i++ {
				field := p.selectFields[i]
				temp, err := field.EvalExpr(tuple)
				if err != nil {
					return nil, err
				}
				new.Fields[i] = temp
			}

			if p.distinct {
				tupleKey := new.tupleKey()
				if _, exists := seenKeys[tupleKey]; exists {
					continue
				}
				seenKeys[tupleKey] = struct{}{}
			}

			return new, nil
		}
	}, nil
}
