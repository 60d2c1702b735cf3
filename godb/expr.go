package godb

import "fmt"

// BoolOp is a comparison predicate applied between two field values.
type BoolOp int

const (
	OpEq BoolOp = iota
	OpNeq
	OpGt
	OpGe
	OpLt
	OpLe
	OpLike
)

// EvalPred compares v1 to v2 using op. IntFields compare numerically;
// StringFields compare lexicographically (OpLike does a substring match).
// Mismatched operand types evaluate false rather than panicking, since
// predicate evaluation runs deep inside operator pipelines.
func evalPred(v1, v2 DBValue, op BoolOp) bool {
	order, err := compareFields(v1, v2)
	if err != nil {
		if op == OpLike {
			s1, ok1 := v1.(StringField)
			s2, ok2 := v2.(StringField)
			if ok1 && ok2 {
				return contains(s1.Value, s2.Value)
			}
		}
		return false
	}
	switch op {
	case OpEq:
		return order == OrderedEqual
	case OpNeq:
		return order != OrderedEqual
	case OpGt:
		return order == OrderedGreaterThan
	case OpGe:
		return order != OrderedLessThan
	case OpLt:
		return order == OrderedLessThan
	case OpLe:
		return order != OrderedGreaterThan
	case OpLike:
		s1, ok1 := v1.(StringField)
		s2, ok2 := v2.(StringField)
		return ok1 && ok2 && contains(s1.Value, s2.Value)
	}
	return false
}

func contains(haystack, needle string) bool {
	if len(needle) == 0 {
		return true
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

// EvalPred implementations delegate to the package-level evalPred so both
// field types share one comparison path.
func (f IntField) EvalPred(v DBValue, op BoolOp) bool    { return evalPred(f, v, op) }
func (f StringField) EvalPred(v DBValue, op BoolOp) bool { return evalPred(f, v, op) }

// Expr is evaluated against a tuple to produce a DBValue: a field reference,
// a constant, or (in principle) a richer scalar expression. Operators only
// depend on this narrow interface, never on how an expression was parsed.
type Expr interface {
	EvalExpr(t *Tuple) (DBValue, error)
	GetExprType() FieldType
}

// FieldExpr extracts a named field from a tuple.
type FieldExpr struct {
	Field FieldType
}

func (e *FieldExpr) EvalExpr(t *Tuple) (DBValue, error) {
	idx, err := findFieldInTd(e.Field, &t.Desc)
	if err != nil {
		return nil, err
	}
	return t.Fields[idx], nil
}

func (e *FieldExpr) GetExprType() FieldType {
	return e.Field
}

// ConstExpr evaluates to a fixed value regardless of the tuple supplied,
// including nil (used for constants like a LIMIT count).
type ConstExpr struct {
	Val   DBValue
	Ftype DBType
}

func (e *ConstExpr) EvalExpr(t *Tuple) (DBValue, error) {
	return e.Val, nil
}

func (e *ConstExpr) GetExprType() FieldType {
	return FieldType{Fname: fmt.Sprintf("%v", e.Val), Ftype: e.Ftype}
}
