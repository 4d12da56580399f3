// Package update implements SPARQL Update (§4.8): INSERT DATA, DELETE
// DATA, DELETE/INSERT ... WHERE, LOAD, CLEAR, DROP, CREATE, COPY, MOVE,
// ADD. Every operation runs inside one writable quadstore.Txn and is
// all-or-nothing: an error aborts the whole operation without partial
// writes, since the caller is expected to roll back the transaction on
// any returned error (§4.8's "Update is transactional").
//
// The teacher has no UPDATE support at all, so this package is new;
// grounded in internal/store/store.go's insert/delete-across-all-indexes
// transactional pattern, composed with internal/evaluator for the
// WHERE-clause substitution DELETE/INSERT WHERE and COPY/MOVE/ADD need.
package update

import (
	"github.com/aleksaelezovic/oxifuj/internal/algebra"
	"github.com/aleksaelezovic/oxifuj/internal/cancel"
	"github.com/aleksaelezovic/oxifuj/internal/evaluator"
	"github.com/aleksaelezovic/oxifuj/internal/qerror"
	"github.com/aleksaelezovic/oxifuj/internal/quadstore"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

// Loader fetches the quads a LOAD operation should insert, given a
// source IRI. The core update engine has no network client of its own
// (§1's scope carve-out); callers (the CLI, the server) supply one.
type Loader interface {
	Load(tok cancel.Token, source *rdf.NamedNode) ([]*rdf.Quad, error)
}

// Exec runs u against txn, which must be writable.
func Exec(tok cancel.Token, txn *quadstore.Txn, u *algebra.Update, loader Loader) error {
	if !txn.Writable() {
		return qerror.Storage(nil, "update requires a writable transaction")
	}
	switch u.Op {
	case algebra.OpInsertData:
		return applyQuads(txn, u.Quads, txn.Insert)
	case algebra.OpDeleteData:
		return applyQuads(txn, u.Quads, txn.Remove)
	case algebra.OpDeleteInsert:
		return execDeleteInsert(tok, txn, u)
	case algebra.OpLoad:
		return execLoad(tok, txn, u, loader)
	case algebra.OpClear:
		return execOnGraphs(txn, u.GraphRef, txn.ClearGraph)
	case algebra.OpDrop:
		return execOnGraphs(txn, u.GraphRef, txn.RemoveGraph)
	case algebra.OpCreate:
		return execOnGraphs(txn, u.GraphRef, txn.InsertGraph)
	case algebra.OpCopy:
		return execCopyMoveAdd(txn, u.From, u.To, true, true)
	case algebra.OpMove:
		return execCopyMoveAdd(txn, u.From, u.To, true, false)
	case algebra.OpAdd:
		return execCopyMoveAdd(txn, u.From, u.To, false, false)
	default:
		return qerror.Unsupported("unrecognized update operation")
	}
}

func applyQuads(txn *quadstore.Txn, quads []algebra.QuadPattern, op func(*rdf.Quad) error) error {
	for _, qp := range quads {
		q := rdf.NewQuad(qp.Subject.Value, qp.Predicate.Value, qp.Object.Value, graphOrDefault(qp.Graph))
		if err := op(q); err != nil {
			return err
		}
	}
	return nil
}

func graphOrDefault(g algebra.Term) rdf.Term {
	if g.Value == nil {
		return rdf.NewDefaultGraph()
	}
	return g.Value
}

// execDeleteInsert implements DELETE/INSERT WHERE (§4.8): evaluate
// Where once per the USING dataset, then for every solution instantiate
// DeleteTpl and InsertTpl, deleting first and inserting second so a
// template appearing in both (DELETE {...} INSERT {...} WHERE {...}
// idioms that rewrite a value) behaves as a pure reassignment rather
// than a delete-then-reinsert race on the same quad.
func execDeleteInsert(tok cancel.Token, txn *quadstore.Txn, u *algebra.Update) error {
	ev := &evaluator.Evaluator{Txn: txn, Tok: tok}
	if len(u.Using) > 0 {
		ev.ActiveGraph = u.Using[0]
	}
	iter, err := ev.Compile(u.Where, nil)
	if err != nil {
		return err
	}
	defer iter.Close()

	var toDelete, toInsert []*rdf.Quad
	for {
		if err := tok.Check(); err != nil {
			return err
		}
		b, ok, err := iter.Next(tok)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		for _, tp := range u.DeleteTpl {
			if q, ok := instantiateQuad(tp, b, u.With); ok {
				toDelete = append(toDelete, q)
			}
		}
		for _, tp := range u.InsertTpl {
			if q, ok := instantiateQuad(tp, b, u.With); ok {
				toInsert = append(toInsert, q)
			}
		}
	}
	for _, q := range toDelete {
		if err := txn.Remove(q); err != nil {
			return err
		}
	}
	for _, q := range toInsert {
		if err := txn.Insert(q); err != nil {
			return err
		}
	}
	return nil
}

// instantiateQuad substitutes b into tp, using defaultGraph (the WITH
// clause, possibly nil) for a template quad whose Graph position is
// unset. A template referencing an unbound variable is skipped, per
// §4.8's "a DELETE/INSERT template row with an unbound variable
// contributes nothing".
func instantiateQuad(tp algebra.QuadPattern, b evaluator.Binding, defaultGraph rdf.Term) (*rdf.Quad, bool) {
	s, ok := resolve(tp.Subject, b)
	if !ok {
		return nil, false
	}
	p, ok := resolve(tp.Predicate, b)
	if !ok {
		return nil, false
	}
	o, ok := resolve(tp.Object, b)
	if !ok {
		return nil, false
	}
	g := defaultGraph
	if tp.Graph.Value != nil || tp.Graph.IsVariable() {
		gv, ok := resolve(tp.Graph, b)
		if !ok {
			return nil, false
		}
		g = gv
	}
	if g == nil {
		g = rdf.NewDefaultGraph()
	}
	return rdf.NewQuad(s, p, o, g), true
}

func resolve(t algebra.Term, b evaluator.Binding) (rdf.Term, bool) {
	if !t.IsVariable() {
		return t.Value, true
	}
	v, ok := b[t.Var]
	return v, ok
}

func execLoad(tok cancel.Token, txn *quadstore.Txn, u *algebra.Update, loader Loader) error {
	src, ok := u.LoadSource.(*rdf.NamedNode)
	if !ok {
		return qerror.TypeErr("LOAD source must be an IRI")
	}
	if loader == nil {
		if u.Silent {
			return nil
		}
		return qerror.Unsupported("LOAD requires a configured source loader")
	}
	quads, err := loader.Load(tok, src)
	if err != nil {
		if u.Silent {
			return nil
		}
		return err
	}
	target := u.LoadInto
	for _, q := range quads {
		g := q.Graph
		if target != nil {
			g = target
		}
		if err := txn.Insert(rdf.NewQuad(q.Subject, q.Predicate, q.Object, g)); err != nil {
			return err
		}
	}
	return nil
}

// execOnGraphs applies op to every graph GraphRef denotes: a single
// named graph, the default graph, every named graph (the NAMED
// keyword), or ALL graphs including the default.
func execOnGraphs(txn *quadstore.Txn, ref algebra.GraphRef, op func(rdf.Term) error) error {
	switch ref.Kind {
	case algebra.GraphRefNamed:
		return op(ref.Name)
	case algebra.GraphRefDefault:
		return op(rdf.NewDefaultGraph())
	case algebra.GraphRefNamedKeyword:
		graphs, err := txn.NamedGraphs()
		if err != nil {
			return err
		}
		for _, g := range graphs {
			if err := op(g); err != nil {
				return err
			}
		}
		return nil
	case algebra.GraphRefAll:
		if err := op(rdf.NewDefaultGraph()); err != nil {
			return err
		}
		graphs, err := txn.NamedGraphs()
		if err != nil {
			return err
		}
		for _, g := range graphs {
			if err := op(g); err != nil {
				return err
			}
		}
		return nil
	default:
		return qerror.Unsupported("unrecognized graph reference")
	}
}

// execCopyMoveAdd implements COPY/MOVE/ADD (§4.8): copy every quad of
// From into To (silently clearing To first unless addOnly), optionally
// removing From afterward (moveSemantics).
func execCopyMoveAdd(txn *quadstore.Txn, from, to algebra.GraphRef, clearTarget, moveSemantics bool) error {
	fromTerm, err := graphRefTerm(txn, from)
	if err != nil {
		return err
	}
	toTerm, err := graphRefTerm(txn, to)
	if err != nil {
		return err
	}
	if fromTerm.Equals(toTerm) {
		return nil
	}
	if clearTarget {
		if err := txn.ClearGraph(toTerm); err != nil {
			return err
		}
	}
	it, err := txn.QuadsForPattern(quadstore.Pattern{Graph: fromTerm})
	if err != nil {
		return err
	}
	defer it.Close()
	var quads []*rdf.Quad
	for it.Next() {
		q, err := it.Quad()
		if err != nil {
			return err
		}
		quads = append(quads, q)
	}
	for _, q := range quads {
		if err := txn.Insert(rdf.NewQuad(q.Subject, q.Predicate, q.Object, toTerm)); err != nil {
			return err
		}
	}
	if moveSemantics {
		// MOVE is DROP SILENT FROM + COPY: the source graph's `graphs`
		// entry goes away too, not just its quads.
		return txn.RemoveGraph(fromTerm)
	}
	return nil
}

func graphRefTerm(txn *quadstore.Txn, ref algebra.GraphRef) (rdf.Term, error) {
	switch ref.Kind {
	case algebra.GraphRefNamed:
		return ref.Name, nil
	case algebra.GraphRefDefault:
		return rdf.NewDefaultGraph(), nil
	default:
		return nil, qerror.Unsupported("COPY/MOVE/ADD require a single named or default graph reference")
	}
}
