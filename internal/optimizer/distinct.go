package optimizer

import "github.com/aleksaelezovic/oxifuj/internal/algebra"

// dropRedundantDistinct implements §4.6 pass 8: remove a Distinct (or
// Reduced, which already permits this) when its input is already known
// to produce no duplicates. The only case this evaluator can prove
// cheaply at plan time is a Bgp/PathNode whose bound subject and
// predicate (or whose single bound position together with the index's
// key uniqueness) already forces at most one object per solution —
// approximated here by the common case of a single triple pattern
// with at least two bound positions, which the underlying index
// returns as a key-only set with no duplicate keys by construction
// (§4.2's "Dedup" invariant).
func dropRedundantDistinct(n algebra.Node) algebra.Node {
	switch v := n.(type) {
	case *algebra.Distinct:
		if provablyUnique(v.Input) {
			return v.Input
		}
	case *algebra.Reduced:
		if provablyUnique(v.Input) {
			return v.Input
		}
	}
	return n
}

func provablyUnique(n algebra.Node) bool {
	bgp, ok := n.(*algebra.Bgp)
	if !ok || len(bgp.Patterns) != 1 {
		return false
	}
	p := bgp.Patterns[0]
	bound := 0
	for _, t := range []algebra.Term{p.Subject, p.Predicate, p.Object} {
		if !t.IsVariable() {
			bound++
		}
	}
	return bound >= 2
}
