package explain

import (
	"strings"
	"testing"

	"github.com/aleksaelezovic/oxifuj/internal/algebra"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

func TestBuildJoinTree(t *testing.T) {
	n := &algebra.Join{
		Left: &algebra.Bgp{Patterns: []algebra.TriplePattern{
			{Subject: algebra.Variable("s"), Predicate: algebra.Variable("p"), Object: algebra.Variable("o")},
		}},
		Right: &algebra.Filter{
			Input: &algebra.Bgp{Patterns: []algebra.TriplePattern{
				{Subject: algebra.Variable("s"), Predicate: algebra.Bound(rdf.NewNamedNode("http://example.org/p")), Object: algebra.Variable("o2")},
			}},
			Condition: &algebra.ConstExpr{Value: rdf.NewBooleanLiteral(true)},
		},
	}

	tree := Build(n, nil)
	if tree.Op != "Join" {
		t.Fatalf("Op = %q, want Join", tree.Op)
	}
	if len(tree.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(tree.Children))
	}
	if tree.Children[0].Op != "Bgp" {
		t.Errorf("left child Op = %q, want Bgp", tree.Children[0].Op)
	}
	if tree.Children[1].Op != "Filter" {
		t.Errorf("right child Op = %q, want Filter", tree.Children[1].Op)
	}
	if len(tree.Children[1].Children) != 1 || tree.Children[1].Children[0].Op != "Bgp" {
		t.Errorf("expected Filter to wrap a single Bgp child")
	}
}

func TestBuildUsesEstimator(t *testing.T) {
	n := &algebra.Bgp{Patterns: []algebra.TriplePattern{
		{Subject: algebra.Variable("s"), Predicate: algebra.Variable("p"), Object: algebra.Variable("o")},
	}}
	tree := Build(n, func(algebra.Node) int64 { return 42 })
	if tree.EstRows != 42 {
		t.Errorf("EstRows = %d, want 42", tree.EstRows)
	}
}

func TestBuildWithNilEstimatorLeavesUnknownCost(t *testing.T) {
	n := &algebra.Bgp{Patterns: []algebra.TriplePattern{
		{Subject: algebra.Variable("s"), Predicate: algebra.Variable("p"), Object: algebra.Variable("o")},
	}}
	tree := Build(n, nil)
	if tree.EstRows != -1 {
		t.Errorf("EstRows = %d, want -1 (unknown)", tree.EstRows)
	}
}

func TestStringRendersIndentedTree(t *testing.T) {
	n := &algebra.Slice{
		Input:  &algebra.Bgp{Patterns: []algebra.TriplePattern{{Subject: algebra.Variable("s"), Predicate: algebra.Variable("p"), Object: algebra.Variable("o")}}},
		Offset: 0,
		Length: 10,
	}
	out := Build(n, nil).String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "Slice") {
		t.Errorf("line 0 = %q, want prefix Slice", lines[0])
	}
	if !strings.HasPrefix(lines[1], "  Bgp") {
		t.Errorf("line 1 = %q, want indented Bgp child", lines[1])
	}
}
