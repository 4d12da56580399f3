package optimizer

import "github.com/aleksaelezovic/oxifuj/internal/algebra"

// pruneProjection implements §4.6 pass 7: drop Extend bindings whose
// variable is never read above them, since they cost an expression
// evaluation per solution for no observable benefit. It is a single
// top-down pass, run once after the bottom-up rewrite() fixpoint,
// because "needed above" can only be computed root-down.
func pruneProjection(n algebra.Node, needed map[algebra.Var]bool) algebra.Node {
	if n == nil {
		return nil
	}
	switch v := n.(type) {
	case *algebra.Project:
		childNeeded := map[algebra.Var]bool{}
		for _, vr := range v.Vars {
			childNeeded[vr] = true
		}
		v.Input = pruneProjection(v.Input, childNeeded)
		return v
	case *algebra.Extend:
		if !needed[v.Var] {
			return pruneProjection(v.Input, needed)
		}
		childNeeded := union(needed, exprVars(v.Expr))
		v.Input = pruneProjection(v.Input, childNeeded)
		return v
	case *algebra.Filter:
		v.Input = pruneProjection(v.Input, union(needed, exprVars(v.Condition)))
		return v
	case *algebra.Join:
		v.Left = pruneProjection(v.Left, needed)
		v.Right = pruneProjection(v.Right, needed)
		return v
	case *algebra.LeftJoin:
		v.Left = pruneProjection(v.Left, needed)
		v.Right = pruneProjection(v.Right, needed)
		return v
	case *algebra.Minus:
		v.Left = pruneProjection(v.Left, needed)
		return v
	case *algebra.Union:
		v.Left = pruneProjection(v.Left, needed)
		v.Right = pruneProjection(v.Right, needed)
		return v
	case *algebra.OrderBy:
		keyVars := map[algebra.Var]bool{}
		for _, k := range v.Keys {
			for vr := range exprVars(k.Expr) {
				keyVars[vr] = true
			}
		}
		v.Input = pruneProjection(v.Input, union(needed, keyVars))
		return v
	case *algebra.Slice:
		v.Input = pruneProjection(v.Input, needed)
		return v
	case *algebra.Distinct:
		v.Input = pruneProjection(v.Input, needed)
		return v
	case *algebra.Reduced:
		v.Input = pruneProjection(v.Input, needed)
		return v
	case *algebra.Graph:
		v.Input = pruneProjection(v.Input, needed)
		return v
	case *algebra.Group:
		// Group materializes its own output rows; keys/aggregates are
		// not Extend-prunable without changing aggregate semantics, so
		// stop the pass here.
		return v
	default:
		return n
	}
}

func union(a, b map[algebra.Var]bool) map[algebra.Var]bool {
	out := map[algebra.Var]bool{}
	for v := range a {
		out[v] = true
	}
	for v := range b {
		out[v] = true
	}
	return out
}
