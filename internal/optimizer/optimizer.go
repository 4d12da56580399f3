// Package optimizer rewrites an algebra.Query/Update tree into an
// equivalent tree cheaper to evaluate (§4.6's fixed-order rewrite
// passes). Every pass preserves solution-set semantics; callers never
// observe the difference except in cost.
//
// Grounded in the teacher's internal/sparql/optimizer/optimizer.go,
// whose Optimizer/Statistics/reorderBySelectivity/estimateSelectivity
// shapes carry over directly — generalized from the teacher's separate
// QueryPlan variant family onto this spec's unified algebra.Node tree,
// since §4.5 folds AST and physical plan into one representation.
package optimizer

import (
	"sort"

	"github.com/aleksaelezovic/oxifuj/internal/algebra"
)

// Statistics holds cardinality information used for selectivity
// estimation (§4.6 step 3's "predicate cardinality if cheaply
// available, else a fixed heuristic").
type Statistics struct {
	TotalQuads int64
	// PredicateCount, when present, overrides the fixed heuristic for a
	// bound predicate with a real observed cardinality ratio in [0,1].
	PredicateCount map[string]int64
}

// Optimizer applies §4.6's eight rewrite passes to a query or update's
// WHERE clause: seven inside rewrite, in the order listed there, and
// projection pruning (pass 7) afterwards in OptimizeQuery/OptimizeUpdate.
type Optimizer struct {
	stats *Statistics
}

func New(stats *Statistics) *Optimizer {
	if stats == nil {
		stats = &Statistics{}
	}
	return &Optimizer{stats: stats}
}

// OptimizeQuery rewrites q.Where in place and returns q.
func (o *Optimizer) OptimizeQuery(q *algebra.Query) *algebra.Query {
	q.Where = o.rewrite(q.Where)

	needed := map[algebra.Var]bool{}
	switch q.Form {
	case algebra.FormSelect:
		if !q.Star {
			for _, v := range q.SelectVars {
				needed[v] = true
			}
		} else {
			needed = nil // SELECT * needs every variable; skip pruning
		}
	case algebra.FormConstruct:
		for _, p := range q.ConstructTpl {
			addTermVar(p.Subject, needed)
			addTermVar(p.Predicate, needed)
			addTermVar(p.Object, needed)
		}
	case algebra.FormDescribe:
		for _, t := range q.DescribeVars {
			addTermVar(t, needed)
		}
	}
	if needed != nil {
		q.Where = pruneProjection(q.Where, needed)
	}
	return q
}

// OptimizeUpdate rewrites u.Where (when present) in place and returns u.
func (o *Optimizer) OptimizeUpdate(u *algebra.Update) *algebra.Update {
	if u.Where != nil {
		u.Where = o.rewrite(u.Where)

		needed := map[algebra.Var]bool{}
		for _, qp := range u.DeleteTpl {
			addTermVar(qp.Subject, needed)
			addTermVar(qp.Predicate, needed)
			addTermVar(qp.Object, needed)
			addTermVar(qp.Graph, needed)
		}
		for _, qp := range u.InsertTpl {
			addTermVar(qp.Subject, needed)
			addTermVar(qp.Predicate, needed)
			addTermVar(qp.Object, needed)
			addTermVar(qp.Graph, needed)
		}
		u.Where = pruneProjection(u.Where, needed)
	}
	return u
}

// rewrite applies every pass but projection pruning bottom-up: children are rewritten
// before their parent, so a pass sees already-simplified subtrees.
func (o *Optimizer) rewrite(n algebra.Node) algebra.Node {
	if n == nil {
		return nil
	}
	n = o.rewriteChildren(n)
	n = foldConstants(n)       // pass 1
	n = o.decomposeBgp(n)      // passes 3+4 (decomposition and left-deep reorder)
	n = expandPaths(n)         // pass 5
	n = tightenLeftJoinMinus(n) // pass 6
	n = pushDownFilter(n)      // pass 2 (applied after decomposition so it can reach leaves)
	n = dropRedundantDistinct(n) // pass 8
	return n
}

func (o *Optimizer) rewriteChildren(n algebra.Node) algebra.Node {
	switch v := n.(type) {
	case *algebra.Join:
		v.Left, v.Right = o.rewrite(v.Left), o.rewrite(v.Right)
	case *algebra.LeftJoin:
		v.Left, v.Right = o.rewrite(v.Left), o.rewrite(v.Right)
	case *algebra.Minus:
		v.Left, v.Right = o.rewrite(v.Left), o.rewrite(v.Right)
	case *algebra.Union:
		v.Left, v.Right = o.rewrite(v.Left), o.rewrite(v.Right)
	case *algebra.Filter:
		v.Input = o.rewrite(v.Input)
	case *algebra.Extend:
		v.Input = o.rewrite(v.Input)
	case *algebra.Project:
		v.Input = o.rewrite(v.Input)
	case *algebra.Distinct:
		v.Input = o.rewrite(v.Input)
	case *algebra.Reduced:
		v.Input = o.rewrite(v.Input)
	case *algebra.OrderBy:
		v.Input = o.rewrite(v.Input)
	case *algebra.Slice:
		v.Input = o.rewrite(v.Input)
	case *algebra.Group:
		v.Input = o.rewrite(v.Input)
	case *algebra.Graph:
		v.Input = o.rewrite(v.Input)
	case *algebra.Service:
		v.Input = o.rewrite(v.Input)
	}
	return n
}

// ---- pass 3+4: join decomposition and left-deep reordering ----

// decomposeBgp reorders a Bgp's triple patterns into a left-deep,
// greedily-connected order (§4.6 step 4): starting from the most
// selective pattern, repeatedly append whichever remaining pattern
// shares the most already-bound variables, breaking ties by
// selectivity then by original position for determinism.
func (o *Optimizer) decomposeBgp(n algebra.Node) algebra.Node {
	bgp, ok := n.(*algebra.Bgp)
	if !ok || len(bgp.Patterns) < 2 {
		return n
	}
	bgp.Patterns = o.reorderBySelectivity(bgp.Patterns)
	return bgp
}

func (o *Optimizer) reorderBySelectivity(patterns []algebra.TriplePattern) []algebra.TriplePattern {
	type scored struct {
		pattern algebra.TriplePattern
		cost    float64
		idx     int
	}
	items := make([]scored, len(patterns))
	for i, p := range patterns {
		items[i] = scored{pattern: p, cost: o.estimateSelectivity(p), idx: i}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].cost < items[j].cost })

	ordered := make([]algebra.TriplePattern, 0, len(items))
	bound := map[algebra.Var]bool{}
	remaining := items
	for len(remaining) > 0 {
		best := 0
		bestShared := -1
		for i, it := range remaining {
			shared := sharedBoundVars(it.pattern, bound)
			if shared > bestShared {
				bestShared, best = shared, i
			}
		}
		chosen := remaining[best]
		ordered = append(ordered, chosen.pattern)
		addPatternVars(chosen.pattern, bound)
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return ordered
}

func sharedBoundVars(p algebra.TriplePattern, bound map[algebra.Var]bool) int {
	n := 0
	for _, t := range []algebra.Term{p.Subject, p.Predicate, p.Object} {
		if t.IsVariable() && bound[t.Var] {
			n++
		}
	}
	return n
}

func addPatternVars(p algebra.TriplePattern, bound map[algebra.Var]bool) {
	for _, t := range []algebra.Term{p.Subject, p.Predicate, p.Object} {
		if t.IsVariable() {
			bound[t.Var] = true
		}
	}
}

// estimateSelectivity mirrors the teacher's estimateSelectivity: a
// bound subject is most selective, bound predicate/object moderately
// so; a real per-predicate cardinality ratio overrides the fixed
// heuristic when available (§4.6 step 3).
func (o *Optimizer) estimateSelectivity(p algebra.TriplePattern) float64 {
	selectivity := 1.0
	if !p.Subject.IsVariable() {
		selectivity *= 0.01
	}
	if !p.Predicate.IsVariable() {
		if ratio, ok := o.predicateRatio(p.Predicate); ok {
			selectivity *= ratio
		} else {
			selectivity *= 0.1
		}
	}
	if !p.Object.IsVariable() {
		selectivity *= 0.1
	}
	return selectivity
}

func (o *Optimizer) predicateRatio(t algebra.Term) (float64, bool) {
	if o.stats == nil || o.stats.PredicateCount == nil || o.stats.TotalQuads == 0 {
		return 0, false
	}
	nn, ok := t.Value.(interface{ String() string })
	if !ok {
		return 0, false
	}
	count, ok := o.stats.PredicateCount[nn.String()]
	if !ok {
		return 0, false
	}
	return float64(count) / float64(o.stats.TotalQuads), true
}
