package evaluator

import (
	"testing"

	"github.com/aleksaelezovic/oxifuj/internal/algebra"
	"github.com/aleksaelezovic/oxifuj/internal/cancel"
	"github.com/aleksaelezovic/oxifuj/internal/kvstore"
	"github.com/aleksaelezovic/oxifuj/internal/quadstore"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

func newTxn(t *testing.T) *quadstore.Txn {
	t.Helper()
	storage, err := kvstore.Open(t.TempDir(), true)
	if err != nil {
		t.Fatalf("kvstore.Open: %v", err)
	}
	t.Cleanup(func() { storage.Close() })
	store := quadstore.New(storage)
	txn, err := store.Begin(true)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	t.Cleanup(func() { txn.Rollback() })
	return txn
}

func insertPeople(t *testing.T, txn *quadstore.Txn) {
	t.Helper()
	nameIRI := rdf.NewNamedNode("http://example.org/name")
	ageIRI := rdf.NewNamedNode("http://example.org/age")
	people := []struct {
		iri  string
		name string
		age  int64
	}{
		{"http://example.org/alice", "Alice", 30},
		{"http://example.org/bob", "Bob", 25},
	}
	for _, p := range people {
		subj := rdf.NewNamedNode(p.iri)
		if err := txn.Insert(rdf.NewQuad(subj, nameIRI, rdf.NewLiteral(p.name), rdf.NewDefaultGraph())); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if err := txn.Insert(rdf.NewQuad(subj, ageIRI, rdf.NewIntegerLiteral(p.age), rdf.NewDefaultGraph())); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
}

func collectAll(t *testing.T, it Iterator) []Binding {
	t.Helper()
	tok := cancel.New(nil)
	var out []Binding
	for {
		b, ok, err := it.Next(tok)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		out = append(out, b)
	}
	return out
}

func TestCompileBgpJoinsTwoPatterns(t *testing.T) {
	txn := newTxn(t)
	insertPeople(t, txn)

	bgp := &algebra.Bgp{Patterns: []algebra.TriplePattern{
		{Subject: algebra.Variable("p"), Predicate: algebra.Bound(rdf.NewNamedNode("http://example.org/name")), Object: algebra.Variable("name")},
		{Subject: algebra.Variable("p"), Predicate: algebra.Bound(rdf.NewNamedNode("http://example.org/age")), Object: algebra.Variable("age")},
	}}

	ev := &Evaluator{Txn: txn, Tok: cancel.New(nil)}
	it, err := ev.Compile(bgp, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer it.Close()

	results := collectAll(t, it)
	if len(results) != 2 {
		t.Fatalf("expected 2 joined solutions, got %d", len(results))
	}
	for _, b := range results {
		if b["name"] == nil || b["age"] == nil {
			t.Errorf("expected both name and age bound, got %v", b)
		}
	}
}

func TestCompileFilterRestrictsSolutions(t *testing.T) {
	txn := newTxn(t)
	insertPeople(t, txn)

	bgp := &algebra.Bgp{Patterns: []algebra.TriplePattern{
		{Subject: algebra.Variable("p"), Predicate: algebra.Bound(rdf.NewNamedNode("http://example.org/age")), Object: algebra.Variable("age")},
	}}
	filter := &algebra.Filter{
		Input: bgp,
		Condition: &algebra.BinaryExpr{
			Op:    algebra.OpGreater,
			Left:  &algebra.VarExpr{Var: "age"},
			Right: &algebra.ConstExpr{Value: rdf.NewIntegerLiteral(26)},
		},
	}

	ev := &Evaluator{Txn: txn, Tok: cancel.New(nil)}
	it, err := ev.Compile(filter, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer it.Close()

	results := collectAll(t, it)
	if len(results) != 1 {
		t.Fatalf("expected 1 solution with age > 26, got %d", len(results))
	}
}

func TestCompileUnion(t *testing.T) {
	txn := newTxn(t)
	insertPeople(t, txn)

	left := &algebra.Bgp{Patterns: []algebra.TriplePattern{
		{Subject: algebra.Bound(rdf.NewNamedNode("http://example.org/alice")), Predicate: algebra.Bound(rdf.NewNamedNode("http://example.org/name")), Object: algebra.Variable("name")},
	}}
	right := &algebra.Bgp{Patterns: []algebra.TriplePattern{
		{Subject: algebra.Bound(rdf.NewNamedNode("http://example.org/bob")), Predicate: algebra.Bound(rdf.NewNamedNode("http://example.org/name")), Object: algebra.Variable("name")},
	}}
	union := &algebra.Union{Left: left, Right: right}

	ev := &Evaluator{Txn: txn, Tok: cancel.New(nil)}
	it, err := ev.Compile(union, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer it.Close()

	results := collectAll(t, it)
	if len(results) != 2 {
		t.Fatalf("expected 2 solutions from the union of two singleton BGPs, got %d", len(results))
	}
}

func TestActiveGraphTermDefaultsToDefaultGraph(t *testing.T) {
	ev := &Evaluator{}
	g := ev.ActiveGraphTerm()
	if _, ok := g.(*rdf.DefaultGraph); !ok {
		t.Errorf("expected the default ActiveGraphTerm to be the default graph, got %T", g)
	}
}

func TestActiveGraphTermUnionDefaultGraph(t *testing.T) {
	ev := &Evaluator{UnionDefaultGraph: true}
	if g := ev.ActiveGraphTerm(); g != nil {
		t.Errorf("expected nil (any graph) under union_default_graph with no explicit ActiveGraph, got %v", g)
	}
}
