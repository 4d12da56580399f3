package optimizer

import (
	"fmt"

	"github.com/aleksaelezovic/oxifuj/internal/algebra"
)

// expandPaths implements §4.6 pass 5: fixed-length property paths
// (`?`, sequences, alternatives) become unions/joins the evaluator can
// run as ordinary nested-loop joins; `*`/`+` are left as a PathNode
// for the evaluator's BFS-with-visited-set execution (§4.7), since
// unrolling an unbounded path at plan time is unsound.
func expandPaths(n algebra.Node) algebra.Node {
	pn, ok := n.(*algebra.PathNode)
	if !ok {
		return n
	}
	return expandPath(pn.Start, pn.End, pn.Path)
}

func expandPath(start, end algebra.Term, p algebra.Path) algebra.Node {
	switch v := p.(type) {
	case *algebra.PredicatePath:
		return &algebra.Bgp{Patterns: []algebra.TriplePattern{{
			Subject: start, Predicate: algebra.Bound(v.IRI), Object: end,
		}}}
	case *algebra.InversePath:
		return expandPath(end, start, v.Inner)
	case *algebra.SequencePath:
		mid := algebra.Variable(freshPathVar())
		return &algebra.Join{
			Left:  expandPath(start, mid, v.Left),
			Right: expandPath(mid, end, v.Right),
		}
	case *algebra.AlternativePath:
		return &algebra.Union{
			Left:  expandPath(start, end, v.Left),
			Right: expandPath(start, end, v.Right),
		}
	case *algebra.ZeroOrOnePath:
		// `a?` is the union of the zero-length identity and one hop;
		// the identity branch only contributes a solution when start
		// and end can be unified, which the evaluator's Union+Filter
		// over a Bgp naturally expresses via an Extend binding end:=start
		// when end is a variable. With both ends unbound the zero-length
		// case ranges over every graph term, so the PathNode is kept for
		// the evaluator, which enumerates them.
		if start.IsVariable() && end.IsVariable() {
			return &algebra.PathNode{Start: start, End: end, Path: p}
		}
		return &algebra.Union{
			Left:  zeroLengthBranch(start, end),
			Right: expandPath(start, end, v.Inner),
		}
	case *algebra.ZeroOrMorePath, *algebra.OneOrMorePath:
		// Unbounded repetition cannot be unrolled at plan time; keep
		// the PathNode so the evaluator runs its BFS executor.
		return &algebra.PathNode{Start: start, End: end, Path: p}
	case *algebra.NegatedPropertySet:
		return &algebra.PathNode{Start: start, End: end, Path: p}
	default:
		return &algebra.PathNode{Start: start, End: end, Path: p}
	}
}

// zeroLengthBranch models the zero-length case of `a?`/`a*`: when End
// is a variable it is bound to Start; when both are bound the branch
// contributes the unit solution iff they are already the same term,
// which the evaluator checks cheaply since neither side needs an
// index seek.
func zeroLengthBranch(start, end algebra.Term) algebra.Node {
	if end.IsVariable() {
		return &algebra.Extend{Input: &algebra.UnitNode{}, Var: end.Var, Expr: &algebra.ConstExpr{Value: start.Value}}
	}
	if start.IsVariable() {
		return &algebra.Extend{Input: &algebra.UnitNode{}, Var: start.Var, Expr: &algebra.ConstExpr{Value: end.Value}}
	}
	if start.Value.Equals(end.Value) {
		return &algebra.UnitNode{}
	}
	return &algebra.ZeroNode{}
}

var pathVarCounter int

// freshPathVar allocates a variable name for an intermediate sequence-path
// join point. Plan-time names are never user visible (they live only
// under internal Join/Extend nodes produced here), so a package-level
// monotonic counter, shared by every optimizer run and never reset, is
// sufficient to avoid collision
// with the query's own variables, which the parser never names with
// this prefix.
func freshPathVar() algebra.Var {
	pathVarCounter++
	return algebra.Var(fmt.Sprintf("_path%d", pathVarCounter))
}
