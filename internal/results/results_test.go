package results

import (
	"encoding/json"
	"testing"

	"github.com/aleksaelezovic/oxifuj/internal/algebra"
	"github.com/aleksaelezovic/oxifuj/internal/cancel"
	"github.com/aleksaelezovic/oxifuj/internal/evaluator"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

// fakeIterator replays a fixed slice of bindings, in the teacher's
// minimal-fake style rather than a mock framework.
type fakeIterator struct {
	rows   []evaluator.Binding
	pos    int
	closed bool
}

func (f *fakeIterator) Next(cancel.Token) (evaluator.Binding, bool, error) {
	if f.pos >= len(f.rows) {
		return nil, false, nil
	}
	b := f.rows[f.pos]
	f.pos++
	return b, true, nil
}

func (f *fakeIterator) Close() error { f.closed = true; return nil }

func TestSolutionsNextAndClose(t *testing.T) {
	it := &fakeIterator{rows: []evaluator.Binding{
		{"name": rdf.NewLiteral("Alice")},
		{"name": rdf.NewLiteral("Bob")},
	}}
	s := &Solutions{Vars: []algebra.Var{"name"}, Iter: it}

	var names []string
	for {
		b, ok, err := s.Next(cancel.New(nil))
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		names = append(names, b["name"].String())
	}
	if len(names) != 2 {
		t.Fatalf("got %d names, want 2", len(names))
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !it.closed {
		t.Error("expected Solutions.Close to close the underlying iterator")
	}
}

func TestAskStopsAtFirstSolution(t *testing.T) {
	it := &fakeIterator{rows: []evaluator.Binding{{"x": rdf.NewLiteral("1")}, {"x": rdf.NewLiteral("2")}}}
	ok, err := Ask(cancel.New(nil), it)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !ok {
		t.Error("expected Ask to report true when a solution exists")
	}
	if it.pos != 1 {
		t.Errorf("expected Ask to pull exactly 1 row, pulled %d", it.pos)
	}
}

func TestAskFalseOnNoSolutions(t *testing.T) {
	it := &fakeIterator{}
	ok, err := Ask(cancel.New(nil), it)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ok {
		t.Error("expected Ask to report false on an empty solution sequence")
	}
}

func TestConstructDropsInvalidPredicateAndDedups(t *testing.T) {
	tpl := []algebra.TriplePattern{
		{
			Subject:   algebra.Variable("s"),
			Predicate: algebra.Variable("p"), // unbound in every row below -> dropped
			Object:    algebra.Variable("o"),
		},
		{
			Subject:   algebra.Variable("s"),
			Predicate: algebra.Bound(rdf.NewNamedNode("http://example.org/knows")),
			Object:    algebra.Variable("o"),
		},
	}
	row := evaluator.Binding{
		"s": rdf.NewNamedNode("http://example.org/alice"),
		"o": rdf.NewNamedNode("http://example.org/bob"),
	}
	it := &fakeIterator{rows: []evaluator.Binding{row, row}}

	triples, err := Construct(cancel.New(nil), it, tpl)
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	if len(triples) != 1 {
		t.Fatalf("expected 1 deduplicated triple (the unbound-predicate template dropped), got %d", len(triples))
	}
	if triples[0].Predicate.String() != "<http://example.org/knows>" {
		t.Errorf("predicate = %s", triples[0].Predicate)
	}
}

// fakeScanner is a minimal QuadScanner fake for exercising Describe's CBD
// walk without a real quadstore.
type fakeScanner struct {
	bySubject map[string][]*rdf.Quad
}

func (f *fakeScanner) ScanSubject(graph, subject rdf.Term) ([]*rdf.Quad, error) {
	return f.bySubject[subject.String()], nil
}

func TestDescribeFollowsBlankNodesOnly(t *testing.T) {
	alice := rdf.NewNamedNode("http://example.org/alice")
	bnode := rdf.NewBlankNode("addr1")
	bob := rdf.NewNamedNode("http://example.org/bob")

	scanner := &fakeScanner{bySubject: map[string][]*rdf.Quad{
		alice.String(): {
			rdf.NewQuad(alice, rdf.NewNamedNode("http://example.org/address"), bnode, rdf.NewDefaultGraph()),
			rdf.NewQuad(alice, rdf.NewNamedNode("http://example.org/knows"), bob, rdf.NewDefaultGraph()),
		},
		bnode.String(): {
			rdf.NewQuad(bnode, rdf.NewNamedNode("http://example.org/city"), rdf.NewLiteral("Paris"), rdf.NewDefaultGraph()),
		},
		bob.String(): {
			rdf.NewQuad(bob, rdf.NewNamedNode("http://example.org/name"), rdf.NewLiteral("Bob"), rdf.NewDefaultGraph()),
		},
	}}

	triples, err := Describe(cancel.New(nil), scanner, rdf.NewDefaultGraph(), []rdf.Term{alice})
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	// alice's 2 triples plus the blank node's 1 triple; bob's own triples
	// must NOT be pulled in since bob is a named node, not a blank node.
	if len(triples) != 3 {
		t.Fatalf("expected CBD to include alice's triples plus the blank node's, got %d: %v", len(triples), triples)
	}
}

func TestWriteSelectJSONShape(t *testing.T) {
	it := &fakeIterator{rows: []evaluator.Binding{
		{"name": rdf.NewLiteral("Alice")},
	}}
	s := &Solutions{Vars: []algebra.Var{"name"}, Iter: it}

	body, err := WriteSelectJSON(cancel.New(nil), s)
	if err != nil {
		t.Fatalf("WriteSelectJSON: %v", err)
	}

	var doc struct {
		Head struct {
			Vars []string `json:"vars"`
		} `json:"head"`
		Results struct {
			Bindings []map[string]struct {
				Type  string `json:"type"`
				Value string `json:"value"`
			} `json:"bindings"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if len(doc.Head.Vars) != 1 || doc.Head.Vars[0] != "name" {
		t.Errorf("head.vars = %v, want [name]", doc.Head.Vars)
	}
	if len(doc.Results.Bindings) != 1 {
		t.Fatalf("expected 1 binding row, got %d", len(doc.Results.Bindings))
	}
	if doc.Results.Bindings[0]["name"].Value != "Alice" {
		t.Errorf("name value = %q, want Alice", doc.Results.Bindings[0]["name"].Value)
	}
}

func TestWriteAskJSON(t *testing.T) {
	body, err := WriteAskJSON(true)
	if err != nil {
		t.Fatalf("WriteAskJSON: %v", err)
	}
	var doc struct {
		Boolean bool `json:"boolean"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if !doc.Boolean {
		t.Error("expected boolean=true in the ASK JSON result")
	}
}
