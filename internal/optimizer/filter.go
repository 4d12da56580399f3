package optimizer

import "github.com/aleksaelezovic/oxifuj/internal/algebra"

// pushDownFilter implements §4.6 pass 2: push a Filter below Join,
// LeftJoin, Graph, and (when variable-safe) Extend, so index scans can
// discard non-matching solutions as early as possible instead of after
// a full join.
func pushDownFilter(n algebra.Node) algebra.Node {
	f, ok := n.(*algebra.Filter)
	if !ok {
		return n
	}
	vars := exprVars(f.Condition)

	// Only push through Join/Graph/Extend when every
	// variable the filter reads is already bound on the side it lands
	// on, since pushing a filter past a variable it doesn't mention is
	// always safe but pushing past one it does mention but that isn't
	// yet bound would change semantics.
	switch child := f.Input.(type) {
	case *algebra.Join:
		switch {
		case subsetOf(vars, nodeVars(child.Left)):
			return &algebra.Join{Left: &algebra.Filter{Input: child.Left, Condition: f.Condition}, Right: child.Right}
		case subsetOf(vars, nodeVars(child.Right)):
			return &algebra.Join{Left: child.Left, Right: &algebra.Filter{Input: child.Right, Condition: f.Condition}}
		}
	case *algebra.LeftJoin:
		if subsetOf(vars, nodeVars(child.Left)) {
			return &algebra.LeftJoin{Left: &algebra.Filter{Input: child.Left, Condition: f.Condition}, Right: child.Right, Filter: child.Filter}
		}
	case *algebra.Graph:
		return &algebra.Graph{GraphName: child.GraphName, Input: &algebra.Filter{Input: child.Input, Condition: f.Condition}}
	case *algebra.Extend:
		if !vars[child.Var] {
			return &algebra.Extend{Input: &algebra.Filter{Input: child.Input, Condition: f.Condition}, Var: child.Var, Expr: child.Expr}
		}
	}
	return f
}

// exprVars collects every variable an expression reads.
func exprVars(e algebra.Expr) map[algebra.Var]bool {
	out := map[algebra.Var]bool{}
	collectExprVars(e, out)
	return out
}

func collectExprVars(e algebra.Expr, out map[algebra.Var]bool) {
	switch v := e.(type) {
	case *algebra.VarExpr:
		out[v.Var] = true
	case *algebra.BinaryExpr:
		collectExprVars(v.Left, out)
		collectExprVars(v.Right, out)
	case *algebra.UnaryExpr:
		collectExprVars(v.Operand, out)
	case *algebra.FuncCall:
		for _, a := range v.Args {
			collectExprVars(a, out)
		}
	case *algebra.BoundExpr:
		out[v.Var] = true
	case *algebra.CoalesceExpr:
		for _, a := range v.Args {
			collectExprVars(a, out)
		}
	case *algebra.IfExpr:
		collectExprVars(v.Cond, out)
		collectExprVars(v.Then, out)
		collectExprVars(v.Else, out)
	}
}

// nodeVars collects the variables a node binds, conservatively (used
// only to decide whether a filter push-down is safe, never as a full
// scope analysis).
func nodeVars(n algebra.Node) map[algebra.Var]bool {
	out := map[algebra.Var]bool{}
	collectNodeVars(n, out)
	return out
}

func collectNodeVars(n algebra.Node, out map[algebra.Var]bool) {
	switch v := n.(type) {
	case *algebra.Bgp:
		for _, p := range v.Patterns {
			addTermVar(p.Subject, out)
			addTermVar(p.Predicate, out)
			addTermVar(p.Object, out)
		}
	case *algebra.PathNode:
		addTermVar(v.Start, out)
		addTermVar(v.End, out)
	case *algebra.Join:
		collectNodeVars(v.Left, out)
		collectNodeVars(v.Right, out)
	case *algebra.LeftJoin:
		collectNodeVars(v.Left, out)
		collectNodeVars(v.Right, out)
	case *algebra.Minus:
		collectNodeVars(v.Left, out)
	case *algebra.Union:
		collectNodeVars(v.Left, out)
		collectNodeVars(v.Right, out)
	case *algebra.Filter:
		collectNodeVars(v.Input, out)
	case *algebra.Extend:
		collectNodeVars(v.Input, out)
		out[v.Var] = true
	case *algebra.Project:
		for _, vr := range v.Vars {
			out[vr] = true
		}
	case *algebra.Distinct:
		collectNodeVars(v.Input, out)
	case *algebra.Reduced:
		collectNodeVars(v.Input, out)
	case *algebra.OrderBy:
		collectNodeVars(v.Input, out)
	case *algebra.Slice:
		collectNodeVars(v.Input, out)
	case *algebra.Group:
		collectNodeVars(v.Input, out)
		for _, ag := range v.Aggregates {
			out[ag.Result] = true
		}
	case *algebra.Graph:
		collectNodeVars(v.Input, out)
		addTermVar(v.GraphName, out)
	}
}

func addTermVar(t algebra.Term, out map[algebra.Var]bool) {
	if t.IsVariable() {
		out[t.Var] = true
	}
}

func subsetOf(sub, super map[algebra.Var]bool) bool {
	for v := range sub {
		if !super[v] {
			return false
		}
	}
	return true
}
