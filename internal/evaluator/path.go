package evaluator

import (
	"github.com/aleksaelezovic/oxifuj/internal/algebra"
	"github.com/aleksaelezovic/oxifuj/internal/quadstore"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

// compilePath implements §4.7's property-path execution: `p*`/`p+` run
// a BFS with a per-start-node visited set (the optimizer already
// unrolled every fixed-length path shape into Bgp/Union/Join by §4.6
// pass 5 — what reaches here is only ZeroOrMore/OneOrMore/
// NegatedPropertySet, the shapes the optimizer deliberately leaves
// unexpanded since unrolling an unbounded repetition at plan time is
// unsound).
func (e *Evaluator) compilePath(pn *algebra.PathNode, parent Binding) (Iterator, error) {
	starts, startVar := e.pathEndpoints(pn.Start, parent)
	var rows []Binding
	for _, start := range starts {
		if err := e.Tok.Check(); err != nil {
			return nil, err
		}
		reached, err := e.reachableVia(start, pn.Path)
		if err != nil {
			return nil, err
		}
		for _, end := range reached {
			if endTerm, ok := parent.resolve(pn.End); ok {
				if !endTerm.Equals(end) {
					continue
				}
				rows = append(rows, e.bindPathRow(parent, startVar, start, pn.End, nil))
				continue
			}
			rows = append(rows, e.bindPathRow(parent, startVar, start, pn.End, end))
		}
	}
	return &sliceBindingIterator{items: rows}, nil
}

func (e *Evaluator) bindPathRow(parent Binding, startVar algebra.Var, start rdf.Term, endTerm algebra.Term, end rdf.Term) Binding {
	out := parent.clone()
	if startVar != "" {
		out[startVar] = start
	}
	if endTerm.IsVariable() && end != nil {
		out[endTerm.Var] = end
	}
	return out
}

// pathEndpoints resolves pn.Start to the set of candidate start terms:
// the single bound term, the already-bound variable's value, or — for
// an unbound variable — every distinct subject or object term of the
// active graph, since `p*` anchored at an unbound variable ranges over
// the whole graph (§4.7: "every term ... reachable from itself
// restricted to terms appearing in the graph when the anchor is a
// variable").
func (e *Evaluator) pathEndpoints(start algebra.Term, parent Binding) ([]rdf.Term, algebra.Var) {
	if t, ok := parent.resolve(start); ok {
		return []rdf.Term{t}, ""
	}
	if !start.IsVariable() {
		return []rdf.Term{start.Value}, ""
	}
	terms, err := e.allGraphTerms()
	if err != nil {
		return nil, start.Var
	}
	return terms, start.Var
}

// allGraphTerms returns every distinct term appearing in the subject or
// object position of the active graph, used as the candidate anchor set
// for a property path whose start is an unbound variable.
func (e *Evaluator) allGraphTerms() ([]rdf.Term, error) {
	it, err := e.Txn.QuadsForPattern(quadstore.Pattern{Graph: e.activeGraphTerm()})
	if err != nil {
		return nil, err
	}
	defer it.Close()
	seen := map[string]bool{}
	var out []rdf.Term
	for it.Next() {
		q, err := it.Quad()
		if err != nil {
			return nil, err
		}
		for _, t := range []rdf.Term{q.Subject, q.Object} {
			key := t.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, t)
		}
	}
	return out, nil
}

// reachableVia performs the BFS of §4.7/§9: starting from start, follow
// p's single-hop semantics (oneHop), tracking a visited set per start
// node so cycles terminate. `p*` includes the zero-length case (start
// itself is always reachable from itself).
func (e *Evaluator) reachableVia(start rdf.Term, p algebra.Path) ([]rdf.Term, error) {
	switch v := p.(type) {
	case *algebra.ZeroOrMorePath:
		return e.bfs(start, v.Inner, true)
	case *algebra.OneOrMorePath:
		return e.bfs(start, v.Inner, false)
	case *algebra.NegatedPropertySet:
		return e.oneHopNegated(start, v)
	default:
		// A fixed-length shape reaching here unexpanded (should not
		// happen after optimization, but evaluated directly as a
		// defensive fallback so an unoptimized tree still runs).
		return e.oneHop(start, p)
	}
}

func (e *Evaluator) bfs(start rdf.Term, inner algebra.Path, includeZero bool) ([]rdf.Term, error) {
	visited := map[string]bool{start.String(): true}
	queue := []rdf.Term{start}
	var result []rdf.Term
	if includeZero {
		result = append(result, start)
	}
	for len(queue) > 0 {
		if err := e.Tok.Check(); err != nil {
			return nil, err
		}
		cur := queue[0]
		queue = queue[1:]
		next, err := e.oneHop(cur, inner)
		if err != nil {
			return nil, err
		}
		for _, n := range next {
			key := n.String()
			if visited[key] {
				continue
			}
			visited[key] = true
			result = append(result, n)
			queue = append(queue, n)
		}
	}
	return result, nil
}

// oneHop returns every term reachable from start via a single traversal
// of p (which may itself be Inverse/Sequence/Alternative/ZeroOrOne —
// the recursive cases the optimizer only unrolls when both endpoints of
// the overall path are known, e.g. inside a larger */+ path).
func (e *Evaluator) oneHop(start rdf.Term, p algebra.Path) ([]rdf.Term, error) {
	switch v := p.(type) {
	case *algebra.PredicatePath:
		return e.scanObjects(quadstore.Pattern{Subject: start, Predicate: v.IRI, Graph: e.activeGraphTerm()})
	case *algebra.InversePath:
		return e.oneHopInverse(start, v.Inner)
	case *algebra.SequencePath:
		mids, err := e.oneHop(start, v.Left)
		if err != nil {
			return nil, err
		}
		seen := map[string]bool{}
		var out []rdf.Term
		for _, mid := range mids {
			ends, err := e.oneHop(mid, v.Right)
			if err != nil {
				return nil, err
			}
			for _, end := range ends {
				key := end.String()
				if !seen[key] {
					seen[key] = true
					out = append(out, end)
				}
			}
		}
		return out, nil
	case *algebra.AlternativePath:
		left, err := e.oneHop(start, v.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.oneHop(start, v.Right)
		if err != nil {
			return nil, err
		}
		return dedupTerms(append(left, right...)), nil
	case *algebra.ZeroOrOnePath:
		one, err := e.oneHop(start, v.Inner)
		if err != nil {
			return nil, err
		}
		return dedupTerms(append(one, start)), nil
	case *algebra.ZeroOrMorePath:
		return e.bfs(start, v.Inner, true)
	case *algebra.OneOrMorePath:
		return e.bfs(start, v.Inner, false)
	case *algebra.NegatedPropertySet:
		return e.oneHopNegated(start, v)
	default:
		return nil, nil
	}
}

func (e *Evaluator) oneHopInverse(start rdf.Term, inner algebra.Path) ([]rdf.Term, error) {
	pp, ok := inner.(*algebra.PredicatePath)
	if !ok {
		// Inverse of a compound path: swap endpoints are not
		// generally expressible as a single index scan; fall back to
		// trying every graph term as the inner path's start and keeping
		// those from which start is reachable (rare in practice —
		// inverses of compound paths are normalized away by the
		// optimizer's expandPath when both endpoints are bound).
		cands, err := e.allGraphTerms()
		if err != nil {
			return nil, err
		}
		var out []rdf.Term
		for _, c := range cands {
			ends, err := e.oneHop(c, inner)
			if err != nil {
				return nil, err
			}
			for _, end := range ends {
				if end.Equals(start) {
					out = append(out, c)
					break
				}
			}
		}
		return out, nil
	}
	return e.scanSubjects(quadstore.Pattern{Predicate: pp.IRI, Object: start, Graph: e.activeGraphTerm()})
}

// oneHopNegated implements NegatedPropertySet (§4.7): a single index
// scan with a predicate exclusion set, rather than one scan per
// excluded predicate.
func (e *Evaluator) oneHopNegated(start rdf.Term, nps *algebra.NegatedPropertySet) ([]rdf.Term, error) {
	excluded := map[string]bool{}
	for _, p := range nps.Forward {
		excluded[p.IRI] = true
	}
	it, err := e.Txn.QuadsForPattern(quadstore.Pattern{Subject: start, Graph: e.activeGraphTerm()})
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var out []rdf.Term
	for it.Next() {
		q, err := it.Quad()
		if err != nil {
			return nil, err
		}
		pred, ok := q.Predicate.(*rdf.NamedNode)
		if ok && excluded[pred.IRI] {
			continue
		}
		out = append(out, q.Object)
	}
	return out, nil
}

func (e *Evaluator) scanObjects(p quadstore.Pattern) ([]rdf.Term, error) {
	it, err := e.Txn.QuadsForPattern(p)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var out []rdf.Term
	for it.Next() {
		q, err := it.Quad()
		if err != nil {
			return nil, err
		}
		out = append(out, q.Object)
	}
	return out, nil
}

func (e *Evaluator) scanSubjects(p quadstore.Pattern) ([]rdf.Term, error) {
	it, err := e.Txn.QuadsForPattern(p)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var out []rdf.Term
	for it.Next() {
		q, err := it.Quad()
		if err != nil {
			return nil, err
		}
		out = append(out, q.Subject)
	}
	return out, nil
}

func dedupTerms(terms []rdf.Term) []rdf.Term {
	seen := map[string]bool{}
	var out []rdf.Term
	for _, t := range terms {
		key := t.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
