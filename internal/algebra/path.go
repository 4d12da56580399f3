package algebra

import "github.com/aleksaelezovic/oxifuj/internal/rdf"

// Path is a property path expression (§4.5's "Property paths").
type Path interface {
	pathNode()
}

// PredicatePath is a single predicate IRI.
type PredicatePath struct{ IRI *rdf.NamedNode }

// InversePath reverses the direction of Inner (`^p`).
type InversePath struct{ Inner Path }

// SequencePath is `a/b`: traverse Left then Right.
type SequencePath struct{ Left, Right Path }

// AlternativePath is `a|b`: traverse Left or Right.
type AlternativePath struct{ Left, Right Path }

// ZeroOrMorePath is `a*`.
type ZeroOrMorePath struct{ Inner Path }

// OneOrMorePath is `a+`.
type OneOrMorePath struct{ Inner Path }

// ZeroOrOnePath is `a?`.
type ZeroOrOnePath struct{ Inner Path }

// NegatedPropertySet is `!(p1|p2|...)`, optionally over inverse
// predicates (`!(^p1|p2)` mixes directions, tracked per-entry).
type NegatedPropertySet struct {
	Forward []*rdf.NamedNode
	Reverse []*rdf.NamedNode
}

func (*PredicatePath) pathNode()      {}
func (*InversePath) pathNode()        {}
func (*SequencePath) pathNode()       {}
func (*AlternativePath) pathNode()    {}
func (*ZeroOrMorePath) pathNode()     {}
func (*OneOrMorePath) pathNode()      {}
func (*ZeroOrOnePath) pathNode()      {}
func (*NegatedPropertySet) pathNode() {}
