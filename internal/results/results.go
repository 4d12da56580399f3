// Package results implements §4.9/§6.4's solution sequence and graph
// result forms: the lazy SELECT binding stream, the ASK boolean, and the
// CONSTRUCT/DESCRIBE triple sequences, plus a minimal SPARQL JSON writer.
//
// Grounded in the teacher's internal/server/results.go (result-form
// dispatch over an executor.Result) and pkg/server/results/json.go (the
// SPARQL 1.1 JSON Results shape), adapted onto this module's
// evaluator.Iterator instead of the teacher's fully materialized
// SelectResult/AskResult/ConstructResult structs — §4.9 keeps the
// sequence lazy end to end.
package results

import (
	"github.com/aleksaelezovic/oxifuj/internal/algebra"
	"github.com/aleksaelezovic/oxifuj/internal/cancel"
	"github.com/aleksaelezovic/oxifuj/internal/evaluator"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

// Solutions is the lazy SELECT result: a variable list (the projection
// order) plus an Iterator that is only pulled as the caller consumes it.
type Solutions struct {
	Vars []algebra.Var
	Iter evaluator.Iterator
}

// Next pulls the next solution, in step with the underlying iterator.
func (s *Solutions) Next(tok cancel.Token) (evaluator.Binding, bool, error) {
	return s.Iter.Next(tok)
}

func (s *Solutions) Close() error { return s.Iter.Close() }

// Ask runs the WHERE pattern to its first solution and reports whether
// one exists, without materializing more than one row (§4.9: "ASK stops
// at the first solution").
func Ask(tok cancel.Token, iter evaluator.Iterator) (bool, error) {
	defer iter.Close()
	_, ok, err := iter.Next(tok)
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Construct substitutes each solution from iter into tpl, skipping any
// instantiation that would produce a term in predicate position that
// isn't an IRI (an unbound template variable, or a literal bound to the
// predicate slot) per §4.9's "CONSTRUCT silently drops invalid triples
// rather than erroring the whole query". Duplicate triples across
// solutions are deduplicated.
func Construct(tok cancel.Token, iter evaluator.Iterator, tpl []algebra.TriplePattern) ([]*rdf.Triple, error) {
	defer iter.Close()
	seen := map[string]bool{}
	var out []*rdf.Triple
	for {
		if err := tok.Check(); err != nil {
			return nil, err
		}
		b, ok, err := iter.Next(tok)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		for _, tp := range tpl {
			tr, ok := instantiate(tp, b)
			if !ok {
				continue
			}
			key := tr.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, tr)
		}
	}
	return out, nil
}

func instantiate(tp algebra.TriplePattern, b evaluator.Binding) (*rdf.Triple, bool) {
	s, ok := resolve(tp.Subject, b)
	if !ok {
		return nil, false
	}
	p, ok := resolve(tp.Predicate, b)
	if !ok {
		return nil, false
	}
	if _, isIRI := p.(*rdf.NamedNode); !isIRI {
		return nil, false
	}
	o, ok := resolve(tp.Object, b)
	if !ok {
		return nil, false
	}
	return rdf.NewTriple(s, p, o), true
}

func resolve(t algebra.Term, b evaluator.Binding) (rdf.Term, bool) {
	if !t.IsVariable() {
		return t.Value, true
	}
	v, ok := b[t.Var]
	return v, ok
}

// Describe implements DESCRIBE as the Concise Bounded Description (CBD)
// of each target resource (§9's Open Question resolution): every triple
// with the resource as subject, plus — recursively — every triple whose
// subject is a blank node reachable only through object positions already
// included, stopping at the first non-blank node encountered.
func Describe(tok cancel.Token, txn QuadScanner, graph rdf.Term, targets []rdf.Term) ([]*rdf.Triple, error) {
	seen := map[string]bool{}
	var out []*rdf.Triple
	queue := append([]rdf.Term{}, targets...)
	for len(queue) > 0 {
		if err := tok.Check(); err != nil {
			return nil, err
		}
		cur := queue[0]
		queue = queue[1:]
		key := cur.String()
		if seen[key] {
			continue
		}
		seen[key] = true

		quads, err := txn.ScanSubject(graph, cur)
		if err != nil {
			return nil, err
		}
		for _, q := range quads {
			out = append(out, rdf.NewTriple(q.Subject, q.Predicate, q.Object))
			if bn, ok := q.Object.(*rdf.BlankNode); ok {
				queue = append(queue, bn)
			}
		}
	}
	return out, nil
}

// QuadScanner is the minimal quadstore capability Describe needs: every
// quad with the given subject in the given graph (nil graph means "any
// graph", matching §6.5's union_default_graph DESCRIBE behavior).
type QuadScanner interface {
	ScanSubject(graph, subject rdf.Term) ([]*rdf.Quad, error)
}
