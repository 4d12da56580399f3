package evaluator

import (
	"sort"

	"github.com/aleksaelezovic/oxifuj/internal/algebra"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

// compileOrderBy implements §4.7's OrderBy: fully materializing stable
// sort by the comparator list, ascending unless a SortKey reverses it.
// Unbound/error comparator values sort before any bound value, matching
// SPARQL's "unbound sorts lowest" convention; ties fall through to the
// next key, then to input order (stable sort).
func (e *Evaluator) compileOrderBy(ob *algebra.OrderBy, parent Binding) (Iterator, error) {
	inner, err := e.Compile(ob.Input, parent)
	if err != nil {
		return nil, err
	}
	defer inner.Close()

	var rows []Binding
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
		rows = append(rows, b)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, key := range ob.Keys {
			lv, lerr := e.Evaluate(key.Expr, rows[i])
			rv, rerr := e.Evaluate(key.Expr, rows[j])
			cmp := compareOrderValues(lv, lerr, rv, rerr)
			if cmp == 0 {
				continue
			}
			if key.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return &sliceBindingIterator{items: rows}, nil
}

// compareOrderValues orders two ORDER BY key values: an error/unbound
// value sorts before a successfully evaluated one; two error values
// compare equal; a failed comparison (incomparable terms) falls back to
// lexical string order so sorting always produces a total, internally
// consistent order within one execution (§4.7's "Slice"/"OrderBy" must
// stay internally consistent even when the comparator can't classify
// the values numerically).
func compareOrderValues(lv rdf.Term, lerr error, rv rdf.Term, rerr error) int {
	switch {
	case lerr != nil && rerr != nil:
		return 0
	case lerr != nil:
		return -1
	case rerr != nil:
		return 1
	}
	if cmp, err := compareTerms(lv, rv); err == nil {
		return cmp
	}
	ls, rs := lv.String(), rv.String()
	switch {
	case ls < rs:
		return -1
	case ls > rs:
		return 1
	default:
		return 0
	}
}
