package optimizer

import (
	"testing"

	"github.com/aleksaelezovic/oxifuj/internal/algebra"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

func TestOptimizeQueryKeepsPatternWithUnprojectedVariable(t *testing.T) {
	q := &algebra.Query{
		Form:       algebra.FormSelect,
		SelectVars: []algebra.Var{"name"},
		Where: &algebra.Bgp{Patterns: []algebra.TriplePattern{
			{
				Subject:   algebra.Variable("person"),
				Predicate: algebra.Bound(rdf.NewNamedNode("http://example.org/name")),
				Object:    algebra.Variable("name"),
			},
		}},
	}

	New(nil).OptimizeQuery(q)

	bgp, ok := q.Where.(*algebra.Bgp)
	if !ok {
		t.Fatalf("Where = %T, want *algebra.Bgp", q.Where)
	}
	if len(bgp.Patterns) != 1 {
		t.Fatalf("expected the single triple pattern to survive, got %d", len(bgp.Patterns))
	}
}

func TestOptimizeQueryReordersBySelectivity(t *testing.T) {
	// A BGP whose first pattern is fully unbound (cheap to misorder)
	// and whose second pattern has a bound predicate (more selective)
	// should come out with the bound-predicate pattern first.
	q := &algebra.Query{
		Form: algebra.FormSelect,
		Star: true,
		Where: &algebra.Bgp{Patterns: []algebra.TriplePattern{
			{Subject: algebra.Variable("s"), Predicate: algebra.Variable("p"), Object: algebra.Variable("o")},
			{Subject: algebra.Variable("s"), Predicate: algebra.Bound(rdf.NewNamedNode("http://example.org/rare")), Object: algebra.Variable("o2")},
		}},
	}

	New(&Statistics{TotalQuads: 1000}).OptimizeQuery(q)

	bgp, ok := q.Where.(*algebra.Bgp)
	if !ok {
		t.Fatalf("Where = %T, want *algebra.Bgp", q.Where)
	}
	if len(bgp.Patterns) != 2 {
		t.Fatalf("expected 2 patterns to survive reordering, got %d", len(bgp.Patterns))
	}
	if bgp.Patterns[0].Predicate.IsVariable() {
		t.Errorf("expected the bound-predicate pattern to be reordered first, got patterns %+v", bgp.Patterns)
	}
}

func TestFoldConstantsSimplifiesDoubleNegation(t *testing.T) {
	q := &algebra.Query{
		Form: algebra.FormSelect,
		Star: true,
		Where: &algebra.Filter{
			Input: &algebra.Bgp{Patterns: []algebra.TriplePattern{
				{Subject: algebra.Variable("s"), Predicate: algebra.Variable("p"), Object: algebra.Variable("o")},
			}},
			Condition: &algebra.UnaryExpr{
				Op: algebra.OpNot,
				Operand: &algebra.UnaryExpr{
					Op:      algebra.OpNot,
					Operand: &algebra.ConstExpr{Value: rdf.NewBooleanLiteral(true)},
				},
			},
		},
	}

	filter := q.Where.(*algebra.Filter)
	New(nil).OptimizeQuery(q)

	// NOT NOT true folds to true, and FILTER(true) is dropped in favour
	// of its input; the folded condition is left on the original Filter.
	if _, ok := q.Where.(*algebra.Bgp); !ok {
		t.Fatalf("Where = %T, want the Filter's *algebra.Bgp input", q.Where)
	}
	c, ok := filter.Condition.(*algebra.ConstExpr)
	if !ok {
		t.Fatalf("Condition = %T, want folded *algebra.ConstExpr", filter.Condition)
	}
	lit, ok := c.Value.(*rdf.Literal)
	if !ok || lit.Value != "true" {
		t.Errorf("folded condition = %v, want boolean true", c.Value)
	}
}

func TestOptimizeQueryIsIdempotent(t *testing.T) {
	q := &algebra.Query{
		Form:       algebra.FormSelect,
		SelectVars: []algebra.Var{"o"},
		Where: &algebra.Bgp{Patterns: []algebra.TriplePattern{
			{Subject: algebra.Variable("s"), Predicate: algebra.Variable("p"), Object: algebra.Variable("o")},
		}},
	}
	New(nil).OptimizeQuery(q)
	once := q.Where
	New(nil).OptimizeQuery(q)
	if _, ok := q.Where.(*algebra.Bgp); !ok {
		t.Fatalf("expected a second optimization pass to still leave a *algebra.Bgp, got %T", q.Where)
	}
	_ = once
}
