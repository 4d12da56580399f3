package evaluator

import (
	"github.com/aleksaelezovic/oxifuj/internal/algebra"
	"github.com/aleksaelezovic/oxifuj/internal/cancel"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

// compileFilter implements §4.7's Filter: evaluate Condition on each
// mapping, suppressing mappings that are falsy or error (SPARQL's
// effective boolean value; expression errors yield false here).
func (e *Evaluator) compileFilter(f *algebra.Filter, parent Binding) (Iterator, error) {
	inner, err := e.Compile(f.Input, parent)
	if err != nil {
		return nil, err
	}
	return &filterIterator{e: e, cond: f.Condition, inner: inner}, nil
}

type filterIterator struct {
	e     *Evaluator
	cond  algebra.Expr
	inner Iterator
}

func (it *filterIterator) Next(tok cancel.Token) (Binding, bool, error) {
	for {
		b, ok, err := it.inner.Next(tok)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		if it.e.effectiveBooleanValueOf(it.cond, b) {
			return b, true, nil
		}
	}
}

func (it *filterIterator) Close() error { return it.inner.Close() }

// compileExtend implements BIND: binds Expr's value to Var in every
// solution. An evaluation error propagates (unlike FILTER, BIND does
// not silently drop the solution — §7: "TypeError ... propagates in
// BIND").
func (e *Evaluator) compileExtend(ex *algebra.Extend, parent Binding) (Iterator, error) {
	inner, err := e.Compile(ex.Input, parent)
	if err != nil {
		return nil, err
	}
	return &extendIterator{e: e, node: ex, inner: inner}, nil
}

type extendIterator struct {
	e     *Evaluator
	node  *algebra.Extend
	inner Iterator
}

func (it *extendIterator) Next(tok cancel.Token) (Binding, bool, error) {
	b, ok, err := it.inner.Next(tok)
	if err != nil || !ok {
		return nil, ok, err
	}
	val, err := it.e.Evaluate(it.node.Expr, b)
	if err != nil {
		return nil, false, err
	}
	out := b.clone()
	out[it.node.Var] = val
	return out, true, nil
}

func (it *extendIterator) Close() error { return it.inner.Close() }

// compileProject restricts each solution to Vars, in order (§4.7).
func (e *Evaluator) compileProject(p *algebra.Project, parent Binding) (Iterator, error) {
	inner, err := e.Compile(p.Input, parent)
	if err != nil {
		return nil, err
	}
	return &projectIterator{vars: p.Vars, inner: inner}, nil
}

type projectIterator struct {
	vars  []algebra.Var
	inner Iterator
}

func (it *projectIterator) Next(tok cancel.Token) (Binding, bool, error) {
	b, ok, err := it.inner.Next(tok)
	if err != nil || !ok {
		return nil, ok, err
	}
	out := make(Binding, len(it.vars))
	for _, v := range it.vars {
		if val, ok := b[v]; ok {
			out[v] = val
		}
	}
	return out, true, nil
}

func (it *projectIterator) Close() error { return it.inner.Close() }

// compileDistinct materializes Input and hash-based-deduplicates by a
// string encoding of each binding's full (sorted) key/value set.
func (e *Evaluator) compileDistinct(d *algebra.Distinct, parent Binding) (Iterator, error) {
	inner, err := e.Compile(d.Input, parent)
	if err != nil {
		return nil, err
	}
	defer inner.Close()

	seen := map[string]bool{}
	var out []Binding
	for {
		if err := e.Tok.Check(); err != nil {
			return nil, err
		}
		b, ok, err := inner.Next(e.Tok)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		key := bindingKey(b)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, b)
	}
	return &sliceBindingIterator{items: out}, nil
}

// bindingKey produces a stable string encoding of a binding for
// set-membership purposes (DISTINCT).
func bindingKey(b Binding) string {
	vars := make([]algebra.Var, 0, len(b))
	for v := range b {
		vars = append(vars, v)
	}
	sortVars(vars)
	key := ""
	for _, v := range vars {
		key += string(v) + "=" + termKey(b[v]) + "\x1f"
	}
	return key
}

func termKey(t rdf.Term) string {
	if t == nil {
		return "\x00"
	}
	return t.String()
}

func sortVars(vars []algebra.Var) {
	for i := 1; i < len(vars); i++ {
		for j := i; j > 0 && vars[j-1] > vars[j]; j-- {
			vars[j-1], vars[j] = vars[j], vars[j-1]
		}
	}
}

// compileGraph implements SPARQL's GRAPH block (§4.7): a bound graph
// name restricts Input's pattern matching to that graph; a variable
// graph name iterates every named graph, binding it in turn.
func (e *Evaluator) compileGraph(g *algebra.Graph, parent Binding) (Iterator, error) {
	if !g.GraphName.IsVariable() {
		sub := *e
		sub.ActiveGraph = g.GraphName.Value
		return sub.Compile(g.Input, parent)
	}

	graphs, err := e.Txn.NamedGraphs()
	if err != nil {
		return nil, err
	}
	return &graphVarIterator{e: e, node: g, parent: parent, graphs: graphs}, nil
}

type graphVarIterator struct {
	e      *Evaluator
	node   *algebra.Graph
	parent Binding
	graphs []rdf.Term
	idx    int
	cur    Iterator
}

func (it *graphVarIterator) Next(tok cancel.Token) (Binding, bool, error) {
	for {
		if it.cur != nil {
			b, ok, err := it.cur.Next(tok)
			if err != nil {
				return nil, false, err
			}
			if ok {
				return b, true, nil
			}
			it.cur.Close()
			it.cur = nil
		}
		if err := tok.Check(); err != nil {
			return nil, false, err
		}
		if it.idx >= len(it.graphs) {
			return nil, false, nil
		}
		g := it.graphs[it.idx]
		it.idx++

		parentWithGraph := it.parent.clone()
		parentWithGraph[it.node.GraphName.Var] = g

		sub := *it.e
		sub.ActiveGraph = g
		cur, err := sub.Compile(it.node.Input, parentWithGraph)
		if err != nil {
			return nil, false, err
		}
		it.cur = cur
	}
}

func (it *graphVarIterator) Close() error {
	if it.cur != nil {
		return it.cur.Close()
	}
	return nil
}

// compileTable implements a VALUES clause as a literal replay of its
// rows, joined against parent the same way a Bgp pattern is.
func (e *Evaluator) compileTable(t *algebra.Table, parent Binding) (Iterator, error) {
	var out []Binding
	for _, row := range t.Bindings {
		b := parent.clone()
		ok := true
		for v, val := range row {
			if existing, has := b[v]; has {
				if !existing.Equals(val) {
					ok = false
					break
				}
				continue
			}
			b[v] = val
		}
		if ok {
			out = append(out, b)
		}
	}
	return &sliceBindingIterator{items: out}, nil
}
