// Package algebra implements the SPARQL algebra of §4.5: an immutable
// tree of query/update operators, property path expressions, and scalar
// expressions, all expressed as tagged variants (Go interfaces with an
// unexported marker method) rather than open inheritance, per §9's
// "Polymorphism over Term, Path, Expression" design note.
//
// Grounded in the teacher's internal/sparql/parser/ast.go (GraphPattern/
// TriplePattern/Expression shapes) merged with internal/sparql/optimizer's
// QueryPlan variant family into the single immutable operator tree §4.5
// specifies, since the teacher kept AST and physical plan as two separate
// type hierarchies where this spec wants one algebra covering both roles.
package algebra

import "github.com/aleksaelezovic/oxifuj/internal/rdf"

// Var is a SPARQL variable name, without its leading '?'.
type Var string

// Term is a bound value or an unbound variable appearing in a triple
// pattern or expression position.
type Term struct {
	Value rdf.Term
	Var   Var
}

// IsVariable reports whether t names a variable rather than a bound term.
func (t Term) IsVariable() bool { return t.Value == nil }

func Bound(v rdf.Term) Term   { return Term{Value: v} }
func Variable(name Var) Term  { return Term{Var: name} }

// Equal compares two Terms under a variable-renaming substitution: two
// variable positions are equal iff ren maps one name to the other
// consistently; two bound positions are equal iff the underlying RDF
// terms are bit-equal.
func (t Term) Equal(other Term, ren *renaming) bool {
	if t.IsVariable() != other.IsVariable() {
		return false
	}
	if t.IsVariable() {
		return ren.unify(t.Var, other.Var)
	}
	return t.Value.Equals(other.Value)
}

// renaming tracks a tentative variable correspondence while comparing two
// algebra trees for equality modulo variable renaming (§4.5's invariant).
type renaming struct {
	forward map[Var]Var
	back    map[Var]Var
}

func newRenaming() *renaming {
	return &renaming{forward: map[Var]Var{}, back: map[Var]Var{}}
}

func (r *renaming) unify(a, b Var) bool {
	if fa, ok := r.forward[a]; ok {
		return fa == b
	}
	if _, ok := r.back[b]; ok {
		return false
	}
	r.forward[a] = b
	r.back[b] = a
	return true
}
