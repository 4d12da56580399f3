package sparql

import (
	"testing"

	"github.com/aleksaelezovic/oxifuj/internal/algebra"
)

func TestParseSimpleSelect(t *testing.T) {
	query := `PREFIX foaf: <http://xmlns.com/foaf/0.1/>
SELECT ?name WHERE { ?person foaf:name ?name . }`

	q, err := NewParser(query).ParseQuery()
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	if q.Form != algebra.FormSelect {
		t.Fatalf("Form = %v, want FormSelect", q.Form)
	}
	if len(q.SelectVars) != 1 || q.SelectVars[0] != algebra.Var("name") {
		t.Fatalf("SelectVars = %v, want [name]", q.SelectVars)
	}

	// SELECT ?name projects over the group pattern, which joins the
	// triples block onto the empty starting solution.
	proj, ok := q.Where.(*algebra.Project)
	if !ok {
		t.Fatalf("Where = %T, want *algebra.Project", q.Where)
	}
	join, ok := proj.Input.(*algebra.Join)
	if !ok {
		t.Fatalf("Project input = %T, want *algebra.Join", proj.Input)
	}
	bgp, ok := join.Right.(*algebra.Bgp)
	if !ok {
		t.Fatalf("Join right = %T, want *algebra.Bgp", join.Right)
	}
	if len(bgp.Patterns) != 1 {
		t.Fatalf("expected 1 triple pattern, got %d", len(bgp.Patterns))
	}
	tp := bgp.Patterns[0]
	if !tp.Predicate.Value.Equals(tp.Predicate.Value) {
		t.Fatal("sanity: predicate term should equal itself")
	}
	if tp.Predicate.Value == nil || tp.Predicate.Value.String() != "<http://xmlns.com/foaf/0.1/name>" {
		t.Errorf("predicate = %v, want expanded foaf:name IRI", tp.Predicate.Value)
	}
}

func TestParseSelectStar(t *testing.T) {
	q, err := NewParser(`SELECT * WHERE { ?s ?p ?o . }`).ParseQuery()
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	if !q.Star {
		t.Error("expected Star to be true for SELECT *")
	}
}

func TestParseAsk(t *testing.T) {
	q, err := NewParser(`ASK { <http://example.org/s> <http://example.org/p> <http://example.org/o> . }`).ParseQuery()
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	if q.Form != algebra.FormAsk {
		t.Fatalf("Form = %v, want FormAsk", q.Form)
	}
}

func TestParseInsertData(t *testing.T) {
	u, err := NewParser(`INSERT DATA { <http://example.org/s> <http://example.org/p> <http://example.org/o> . }`).ParseUpdate()
	if err != nil {
		t.Fatalf("ParseUpdate: %v", err)
	}
	if u.Op != algebra.OpInsertData {
		t.Fatalf("Op = %v, want OpInsertData", u.Op)
	}
	if len(u.Quads) != 1 {
		t.Fatalf("expected 1 quad, got %d", len(u.Quads))
	}
}

func TestParseRejectsUnterminatedGroupPattern(t *testing.T) {
	_, err := NewParser(`SELECT ?x WHERE { ?x ?p`).ParseQuery()
	if err == nil {
		t.Fatal("expected an error parsing an unterminated group graph pattern")
	}
}
