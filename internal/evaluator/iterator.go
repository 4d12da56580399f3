package evaluator

import (
	"github.com/aleksaelezovic/oxifuj/internal/algebra"
	"github.com/aleksaelezovic/oxifuj/internal/cancel"
	"github.com/aleksaelezovic/oxifuj/internal/qerror"
	"github.com/aleksaelezovic/oxifuj/internal/quadstore"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

// Iterator is a stateful pull source of solution mappings (§4.7's
// "Model"). Next returns (binding, true, nil) for each solution, then
// (nil, false, nil) once exhausted; an error aborts the whole pipeline.
type Iterator interface {
	Next(tok cancel.Token) (Binding, bool, error)
	Close() error
}

// Evaluator compiles an algebra.Node into an Iterator and evaluates
// expressions, both against one read transaction's snapshot.
type Evaluator struct {
	Txn    *quadstore.Txn
	Tok    cancel.Token
	// ActiveGraph is the graph the top-level Bgp/PathNode runs against.
	// nil means "the default graph, or the union of named graphs if
	// UnionDefaultGraph is set" (§6.5's union_default_graph option).
	ActiveGraph       rdf.Term
	UnionDefaultGraph bool
}

// ActiveGraphTerm is the exported form of activeGraphTerm, for callers
// outside this package (DESCRIBE's CBD graph restriction) that need the
// same default-graph-vs-union resolution Bgp/PathNode use.
func (e *Evaluator) ActiveGraphTerm() rdf.Term { return e.activeGraphTerm() }

// activeGraphTerm returns the graph a Bgp/PathNode should restrict its
// index scans to: the explicit ActiveGraph when one is set (bound by a
// GRAPH block), the default graph when neither is set, or nil (meaning
// "any graph", approximating the union) when UnionDefaultGraph is set
// with no explicit ActiveGraph (§6.5's union_default_graph option).
func (e *Evaluator) activeGraphTerm() rdf.Term {
	if e.ActiveGraph != nil {
		return e.ActiveGraph
	}
	if e.UnionDefaultGraph {
		return nil
	}
	return rdf.NewDefaultGraph()
}

// Compile builds an Iterator for n, evaluated with parent already bound
// (parent is nil at the top of a query; Join/LeftJoin thread their
// left-hand binding down as the right-hand side's parent).
func (e *Evaluator) Compile(n algebra.Node, parent Binding) (Iterator, error) {
	switch v := n.(type) {
	case *algebra.UnitNode:
		return &unitIterator{parent: parent}, nil
	case *algebra.ZeroNode:
		return &emptyIterator{}, nil
	case *algebra.Bgp:
		return e.compileBgp(v, parent)
	case *algebra.PathNode:
		return e.compilePath(v, parent)
	case *algebra.Join:
		return e.compileJoin(v, parent)
	case *algebra.LeftJoin:
		return e.compileLeftJoin(v, parent)
	case *algebra.Minus:
		return e.compileMinus(v, parent)
	case *algebra.Union:
		return e.compileUnion(v, parent)
	case *algebra.Filter:
		return e.compileFilter(v, parent)
	case *algebra.Extend:
		return e.compileExtend(v, parent)
	case *algebra.Project:
		return e.compileProject(v, parent)
	case *algebra.Distinct:
		return e.compileDistinct(v, parent)
	case *algebra.Reduced:
		return e.Compile(v.Input, parent) // §9 Open Question: no elimination
	case *algebra.OrderBy:
		return e.compileOrderBy(v, parent)
	case *algebra.Slice:
		return e.compileSlice(v, parent)
	case *algebra.Group:
		return e.compileGroup(v, parent)
	case *algebra.Graph:
		return e.compileGraph(v, parent)
	case *algebra.Table:
		return e.compileTable(v, parent)
	case *algebra.Service:
		return nil, qerror.Unsupported("SERVICE federation is not supported by this store")
	default:
		return nil, qerror.Unsupported("unsupported algebra node in evaluator")
	}
}

// unitIterator yields exactly one solution: parent itself (or the
// empty binding when parent is nil). It is the base case for an empty
// Bgp and the identity element consumed by Join.
type unitIterator struct {
	parent Binding
	done   bool
}

func (it *unitIterator) Next(tok cancel.Token) (Binding, bool, error) {
	if err := tok.Check(); err != nil {
		return nil, false, err
	}
	if it.done {
		return nil, false, nil
	}
	it.done = true
	if it.parent == nil {
		return Binding{}, true, nil
	}
	return it.parent, true, nil
}
func (it *unitIterator) Close() error { return nil }

type emptyIterator struct{}

func (it *emptyIterator) Next(cancel.Token) (Binding, bool, error) { return nil, false, nil }
func (it *emptyIterator) Close() error                             { return nil }

// sliceBindingIterator replays a pre-materialized []Binding; used by
// Group, Distinct, and OrderBy, which must buffer before emitting.
type sliceBindingIterator struct {
	items []Binding
	pos   int
}

func (it *sliceBindingIterator) Next(tok cancel.Token) (Binding, bool, error) {
	if err := tok.Check(); err != nil {
		return nil, false, err
	}
	if it.pos >= len(it.items) {
		return nil, false, nil
	}
	b := it.items[it.pos]
	it.pos++
	return b, true, nil
}
func (it *sliceBindingIterator) Close() error { return nil }
