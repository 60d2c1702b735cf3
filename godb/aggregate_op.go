package godb

// Aggregator computes one or more aggregates over its child's tuples,
// optionally grouped by a list of expressions. With no group-by expressions
// it emits exactly one tuple (the teacher's AddTuple/Finalize contract
// assumes at least one input row for MAX/MIN/AVG); with group-by
// expressions it emits one tuple per distinct group, in no particular
// order.
type Aggregator struct {
	newAggState []AggState
	groupByExpr []Expr
	child       Operator
}

// NewAggregator constructs an aggregation operator: newAggState holds one
// already-Init'd AggState per output aggregate, groupByExpr the (possibly
// empty) list of grouping expressions.
func NewAggregator(newAggState []AggState, groupByExpr []Expr, child Operator) *Aggregator {
	return &Aggregator{newAggState: newAggState, groupByExpr: groupByExpr, child: child}
}

func (a *Aggregator) Descriptor() *TupleDesc {
	desc := &TupleDesc{}
	for _, ge := range a.groupByExpr {
		desc.Fields = append(desc.Fields, ge.GetExprType())
	}
	for _, as := range a.newAggState {
		desc.Fields = append(desc.Fields, as.GetTupleDesc().Fields...)
	}
	return desc
}

func (a *Aggregator) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	childIter, err := a.child.Iterator(tid)
	if err != nil {
		return nil, err
	}

	type group struct {
		key    *Tuple
		states []AggState
	}
	order := []any{}
	groups := make(map[any]*group)

	for {
		t, err := childIter()
		if err != nil {
			return nil, err
		}
		if t == nil {
			break
		}

		var key any = ""
		var keyTuple *Tuple
		if len(a.groupByExpr) > 0 {
			keyTuple = &Tuple{Desc: TupleDesc{}}
			for _, ge := range a.groupByExpr {
				v, err := ge.EvalExpr(t)
				if err != nil {
					return nil, err
				}
				keyTuple.Fields = append(keyTuple.Fields, v)
				keyTuple.Desc.Fields = append(keyTuple.Desc.Fields, ge.GetExprType())
			}
			key = keyTuple.tupleKey()
		}

		g, ok := groups[key]
		if !ok {
			states := make([]AggState, len(a.newAggState))
			for i, proto := range a.newAggState {
				states[i] = proto.Copy()
			}
			g = &group{key: keyTuple, states: states}
			groups[key] = g
			order = append(order, key)
		}
		for _, st := range g.states {
			st.AddTuple(t)
		}
	}

	if len(a.groupByExpr) == 0 && len(order) == 0 {
		states := make([]AggState, len(a.newAggState))
		for i, proto := range a.newAggState {
			states[i] = proto.Copy()
		}
		groups[""] = &group{states: states}
		order = append(order, "")
	}

	desc := a.Descriptor()
	idx := 0
	return func() (*Tuple, error) {
		if idx >= len(order) {
			return nil, nil
		}
		g := groups[order[idx]]
		idx++

		fields := []DBValue{}
		if g.key != nil {
			fields = append(fields, g.key.Fields...)
		}
		for _, st := range g.states {
			fields = append(fields, st.Finalize().Fields...)
		}
		return &Tuple{Desc: *desc, Fields: fields}, nil
	}, nil
}
