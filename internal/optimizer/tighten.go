package optimizer

import "github.com/aleksaelezovic/oxifuj/internal/algebra"

// tightenLeftJoinMinus implements §4.6 pass 6. MINUS only removes a
// left solution when it shares at least one bound variable with a
// compatible right solution (SPARQL's domain-overlap rule); if Left
// and Right share no variable at all, no right solution can ever
// satisfy that rule, so Minus always collapses to its left-hand side
// regardless of what Right contains. LeftJoin has no analogous safe
// collapse: even with no shared variables, an empty Right still must
// pass every Left solution through unchanged, which a plain Join would
// not do, so LeftJoin is left as-is here.
func tightenLeftJoinMinus(n algebra.Node) algebra.Node {
	if v, ok := n.(*algebra.Minus); ok && !sharesVars(v.Left, v.Right) {
		return v.Left
	}
	return n
}

func sharesVars(left, right algebra.Node) bool {
	l := nodeVars(left)
	r := nodeVars(right)
	for v := range l {
		if r[v] {
			return true
		}
	}
	return false
}
