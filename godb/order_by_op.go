package godb

import (
	"sort"
)

type OrderBy struct {
	orderBy        []Expr
	child          Operator
	ascending_list []bool
}

// NewOrderBy constructs an order-by operator over child. ascending[i]
// selects ascending (true) or descending (false) order for orderByFields[i];
// ties on earlier fields are broken by later ones.
func NewOrderBy(orderByFields []Expr, child Operator, ascending []bool) (*OrderBy, error) {
	return &OrderBy{
		orderBy:        orderByFields,
		child:          child,
		ascending_list: ascending,
	}, nil

}

// Descriptor is the child's descriptor unchanged: ordering doesn't add,
// remove, or rename fields.
func (o *OrderBy) Descriptor() *TupleDesc {
	return o.child.Descriptor()
}

// Iterator is blocking: it materializes every child tuple, sorts them once,
// then yields from the sorted slice.
func (o *OrderBy) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	child_iter, err := o.child.Iterator(tid)
	if err != nil {
		return nil, err
	}
	res, err := fetchAllTuples(child_iter)
	if err != nil {
		return nil, err
	}
	count := 0
	sort.Sort(sortTuples{orderBy: o.orderBy, ascending_list: o.ascending_list, all: res})

	return func() (*Tuple, error) {
		if count >= len(res) {
			return nil, nil
		}

		tuple := res[count]
		count += 1
		return tuple, nil
	}, nil
}

type sortTuples struct {
	orderBy        []Expr
	ascending_list []bool
	all            []*Tuple
}

func (s sortTuples) Less(a, b int) bool {
	tupleA := s.all[a]
	tupleB := s.all[b]

	for index := 0; index < len(s.orderBy); index++ {
		expr := s.orderBy[index]

		valA, _ := expr.EvalExpr(tupleA)
		valB, _ := expr.EvalExpr(tupleB)

		// If the values are equal, move to the next expression
		if valA.EvalPred(valB, OpEq) {
			continue
		}

		if s.ascending_list[index] {
			return valA.EvalPred(valB, OpLt) // Ascending order
		} else {
			return !valA.EvalPred(valB, OpLt) // Descending order
		}
	}

	return false // If all values are equal
}

func (s sortTuples) Swap(a, b int) {
	temp := s.all[a]
	s.all[a] = s.all[b]
	s.all[b] = temp
}

func (s sortTuples) Len() int {
	return len(s.all)
}
