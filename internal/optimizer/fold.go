package optimizer

import (
	"github.com/aleksaelezovic/oxifuj/internal/algebra"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

// foldConstants implements §4.6 pass 1: constant folding and expression
// simplification. It only touches nodes that carry an Expr (Filter,
// Extend); folding the expression itself is handled by foldExpr, kept
// conservative since the full XSD value space lives in the evaluator
// and this pass must never change a query's observable result, only
// its shape.
func foldConstants(n algebra.Node) algebra.Node {
	switch v := n.(type) {
	case *algebra.Filter:
		v.Condition = foldExpr(v.Condition)
		if b, ok := asBoolConst(v.Condition); ok {
			if b {
				return v.Input // FILTER(true) is a no-op
			}
			return &algebra.ZeroNode{} // FILTER(false) admits nothing
		}
	case *algebra.Extend:
		v.Expr = foldExpr(v.Expr)
	}
	return n
}

// foldExpr simplifies double negation and boolean short-circuiting
// over already-constant operands; anything touching a variable or a
// function whose result type depends on runtime data is left as-is.
func foldExpr(e algebra.Expr) algebra.Expr {
	switch v := e.(type) {
	case *algebra.UnaryExpr:
		v.Operand = foldExpr(v.Operand)
		if v.Op == algebra.OpNot {
			if inner, ok := v.Operand.(*algebra.UnaryExpr); ok && inner.Op == algebra.OpNot {
				return inner.Operand // NOT NOT x == x
			}
			if b, ok := asBoolConst(v.Operand); ok {
				return &algebra.ConstExpr{Value: boolTerm(!b)}
			}
		}
		return v
	case *algebra.BinaryExpr:
		v.Left, v.Right = foldExpr(v.Left), foldExpr(v.Right)
		lb, lok := asBoolConst(v.Left)
		rb, rok := asBoolConst(v.Right)
		switch v.Op {
		case algebra.OpAnd:
			if lok && !lb {
				return v.Left // false AND x == false
			}
			if rok && !rb {
				return v.Right
			}
			if lok && rok {
				return &algebra.ConstExpr{Value: boolTerm(lb && rb)}
			}
		case algebra.OpOr:
			if lok && lb {
				return v.Left // true OR x == true
			}
			if rok && rb {
				return v.Right
			}
			if lok && rok {
				return &algebra.ConstExpr{Value: boolTerm(lb || rb)}
			}
		}
		return v
	case *algebra.IfExpr:
		v.Cond = foldExpr(v.Cond)
		v.Then = foldExpr(v.Then)
		v.Else = foldExpr(v.Else)
		if b, ok := asBoolConst(v.Cond); ok {
			if b {
				return v.Then
			}
			return v.Else
		}
		return v
	default:
		return e
	}
}

func asBoolConst(e algebra.Expr) (bool, bool) {
	c, ok := e.(*algebra.ConstExpr)
	if !ok {
		return false, false
	}
	lit, ok := c.Value.(*rdf.Literal)
	if !ok || lit.Datatype == nil || !lit.Datatype.Equals(rdf.XSDBoolean) {
		return false, false
	}
	switch lit.Value {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}
