// Package evaluator implements the pull-based solution-iterator pipeline
// of §4.7: each algebra.Node compiles to a stateful Iterator yielding
// solution mappings, backed directly by quadstore's index scans.
//
// Grounded in the teacher's pkg/sparql/evaluator (Evaluator.Evaluate's
// expression dispatch, operators.go's comparison/arithmetic semantics,
// functions.go's builtin dispatch) and internal/sparql/evaluator.go (the
// iterator-based Bgp-to-index-scan compilation), merged onto this spec's
// unified algebra.Node tree and its six-index quadstore facade.
package evaluator

import (
	"github.com/aleksaelezovic/oxifuj/internal/algebra"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

// Binding is a partial function from variable to bound RDF term — a
// single solution mapping (§4.7's "Model").
type Binding map[algebra.Var]rdf.Term

func (b Binding) clone() Binding {
	out := make(Binding, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// merge returns a new Binding holding every entry of b plus extra,
// with extra's entries taking precedence for tested-compatible keys
// (callers only merge already-verified-compatible bindings).
func (b Binding) merge(extra Binding) Binding {
	out := b.clone()
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// compatible reports whether b and other agree on every variable they
// both bind (SPARQL's solution-compatibility test).
func (b Binding) compatible(other Binding) bool {
	for k, v := range other {
		if existing, ok := b[k]; ok && !existing.Equals(v) {
			return false
		}
	}
	return true
}

// sharesBoundVar reports whether b and other bind at least one
// variable in common (used by MINUS's domain-overlap rule).
func (b Binding) sharesBoundVar(other Binding) bool {
	for k := range other {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

// resolve substitutes a (possibly variable) algebra.Term into a bound
// rdf.Term using b, returning (nil, false) if the term is a variable
// not yet bound.
func (b Binding) resolve(t algebra.Term) (rdf.Term, bool) {
	if !t.IsVariable() {
		return t.Value, true
	}
	v, ok := b[t.Var]
	return v, ok
}
