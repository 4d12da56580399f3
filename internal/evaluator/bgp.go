package evaluator

import (
	"github.com/aleksaelezovic/oxifuj/internal/algebra"
	"github.com/aleksaelezovic/oxifuj/internal/cancel"
	"github.com/aleksaelezovic/oxifuj/internal/quadstore"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

// compileBgp implements §4.7's "Bgp/Path compile to a chain of index
// scans": each pattern in optimizer-chosen order binds its free
// variables from the mapping accumulated by the patterns before it,
// i.e. a left-deep nested-loop join of index seeks. There is no hash
// join in this evaluator; the optimizer's pattern order is the join
// order (§4.7).
func (e *Evaluator) compileBgp(b *algebra.Bgp, parent Binding) (Iterator, error) {
	if len(b.Patterns) == 0 {
		return &unitIterator{parent: parent}, nil
	}
	return &bgpIterator{e: e, patterns: b.Patterns, base: parent}, nil
}

// bgpIterator walks the cross product of its patterns' matches as a
// nested loop, maintaining one quadstore.QuadIterator per pattern
// position. Only the innermost iterator is re-seeked per outer
// advance; seeking resumes from each pattern's encoded prefix, so
// re-binding never rescans from the start of the whole index.
type bgpIterator struct {
	e        *Evaluator
	patterns []algebra.TriplePattern
	base     Binding

	stack    []*quadstore.QuadIterator
	bindings []Binding // bindings[i] is the solution in effect after patterns[i]
	pos      int       // index of the pattern currently being advanced
}

// Next walks the nested loop one level at a time, tracked by it.pos
// (not a constant): it.pos only ever reaches len(patterns)-1 once
// every shallower pattern has a fresh binding open above it, so each
// level is genuinely opened, stepped, and retreated-from in turn
// rather than assuming the deepest level is always the one with work
// to do.
func (it *bgpIterator) Next(tok cancel.Token) (Binding, bool, error) {
	if err := tok.Check(); err != nil {
		return nil, false, err
	}
	if it.stack == nil {
		it.stack = make([]*quadstore.QuadIterator, len(it.patterns))
		it.bindings = make([]Binding, len(it.patterns))
		if err := it.descend(0, it.base); err != nil {
			return nil, false, err
		}
		it.pos = 0
	}
	last := len(it.patterns) - 1
	for {
		if it.pos < 0 {
			return nil, false, nil
		}
		if it.stack[it.pos] == nil {
			if err := it.descend(it.pos, it.parentAt(it.pos)); err != nil {
				return nil, false, err
			}
		}
		if !it.stack[it.pos].Next() {
			it.stack[it.pos].Close()
			it.stack[it.pos] = nil
			it.pos--
			continue
		}
		q, err := it.stack[it.pos].Quad()
		if err != nil {
			return nil, false, err
		}
		b, ok := bindPattern(it.patterns[it.pos], it.parentAt(it.pos), q)
		if !ok {
			continue
		}
		it.bindings[it.pos] = b
		if it.pos == last {
			return b, true, nil
		}
		it.pos++
		continue
	}
}

// parentAt returns the binding in effect before patterns[depth]: the
// outer BGP's base binding for depth 0, else the previous pattern's
// accumulated solution.
func (it *bgpIterator) parentAt(depth int) Binding {
	if depth == 0 {
		return it.base
	}
	return it.bindings[depth-1]
}

// descend opens pattern[i] under the given parent binding; called
// once up front for pattern 0, and again each time it.pos reaches a
// pattern whose iterator was closed out (exhausted then retreated
// from, or never opened), so that pattern restarts its scan from the
// binding currently in effect.
func (it *bgpIterator) descend(i int, parent Binding) error {
	if i >= len(it.patterns) {
		return nil
	}
	p := patternFor(it.patterns[i], parent)
	p.Graph = it.e.activeGraphTerm()
	qi, err := it.e.Txn.QuadsForPattern(p)
	if err != nil {
		return err
	}
	it.stack[i] = qi
	it.bindings[i] = nil
	return nil
}

func (it *bgpIterator) Close() error {
	var first error
	for _, qi := range it.stack {
		if qi == nil {
			continue
		}
		if err := qi.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// patternFor substitutes every already-bound variable in tp into a
// quadstore.Pattern, restricted to the evaluator's active graph.
func patternFor(tp algebra.TriplePattern, parent Binding) quadstore.Pattern {
	p := quadstore.Pattern{}
	if t, ok := parent.resolve(tp.Subject); ok {
		p.Subject = t
	}
	if t, ok := parent.resolve(tp.Predicate); ok {
		p.Predicate = t
	}
	if t, ok := parent.resolve(tp.Object); ok {
		p.Object = t
	}
	return p
}

// bindPattern extends parent with tp's variables bound to q's
// corresponding positions, rejecting a match where a pattern variable
// repeats (e.g. `?x ?p ?x`) and the two occurrences disagree.
func bindPattern(tp algebra.TriplePattern, parent Binding, q *rdf.Quad) (Binding, bool) {
	out := parent.clone()
	if !bindPosition(out, tp.Subject, q.Subject) {
		return nil, false
	}
	if !bindPosition(out, tp.Predicate, q.Predicate) {
		return nil, false
	}
	if !bindPosition(out, tp.Object, q.Object) {
		return nil, false
	}
	return out, true
}

func bindPosition(b Binding, t algebra.Term, value rdf.Term) bool {
	if !t.IsVariable() {
		return true
	}
	if existing, ok := b[t.Var]; ok {
		return existing.Equals(value)
	}
	b[t.Var] = value
	return true
}
