package quadstore

import (
	"testing"

	"github.com/aleksaelezovic/oxifuj/internal/kvstore"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	storage, err := kvstore.Open(t.TempDir(), true)
	if err != nil {
		t.Fatalf("kvstore.Open: %v", err)
	}
	t.Cleanup(func() { storage.Close() })
	return New(storage)
}

func quad(s, p, o string, g rdf.Term) *rdf.Quad {
	return rdf.NewQuad(rdf.NewNamedNode(s), rdf.NewNamedNode(p), rdf.NewLiteral(o), g)
}

func TestInsertContainsRemove(t *testing.T) {
	store := newStore(t)
	txn, err := store.Begin(true)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer txn.Rollback()

	q := quad("http://example.org/alice", "http://example.org/name", "Alice", rdf.NewDefaultGraph())
	if err := txn.Insert(q); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	ok, err := txn.Contains(q)
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if !ok {
		t.Error("expected Contains to report true right after Insert")
	}

	if err := txn.Remove(q); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	ok, err = txn.Contains(q)
	if err != nil {
		t.Fatalf("Contains after Remove: %v", err)
	}
	if ok {
		t.Error("expected Contains to report false after Remove")
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	store := newStore(t)
	txn, err := store.Begin(true)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer txn.Rollback()

	q := quad("http://example.org/s", "http://example.org/p", "o", rdf.NewDefaultGraph())
	// Removing a quad that was never inserted must be a silent no-op.
	if err := txn.Remove(q); err != nil {
		t.Fatalf("Remove on absent quad: %v", err)
	}
}

func TestQuadsForPatternAcrossBoundPositions(t *testing.T) {
	store := newStore(t)
	txn, err := store.Begin(true)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer txn.Rollback()

	g1 := rdf.NewNamedNode("http://example.org/g1")
	quads := []*rdf.Quad{
		quad("http://example.org/alice", "http://example.org/name", "Alice", rdf.NewDefaultGraph()),
		quad("http://example.org/bob", "http://example.org/name", "Bob", rdf.NewDefaultGraph()),
		quad("http://example.org/alice", "http://example.org/age", "30", g1),
	}
	for _, q := range quads {
		if err := txn.Insert(q); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	it, err := txn.QuadsForPattern(Pattern{Predicate: rdf.NewNamedNode("http://example.org/name")})
	if err != nil {
		t.Fatalf("QuadsForPattern: %v", err)
	}
	defer it.Close()

	var matched []*rdf.Quad
	for it.Next() {
		q, err := it.Quad()
		if err != nil {
			t.Fatalf("Quad: %v", err)
		}
		matched = append(matched, q)
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iterator error: %v", err)
	}
	if len(matched) != 2 {
		t.Fatalf("expected 2 matches for predicate=name, got %d", len(matched))
	}
}

func TestQuadsForPatternImpossibleTermShortCircuits(t *testing.T) {
	store := newStore(t)
	txn, err := store.Begin(true)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer txn.Rollback()

	it, err := txn.QuadsForPattern(Pattern{Subject: rdf.NewNamedNode("http://example.org/never-inserted")})
	if err != nil {
		t.Fatalf("QuadsForPattern: %v", err)
	}
	defer it.Close()
	if it.Next() {
		t.Error("expected no matches for a subject that was never interned")
	}
}

func TestGraphLifecycle(t *testing.T) {
	store := newStore(t)
	txn, err := store.Begin(true)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer txn.Rollback()

	g := rdf.NewNamedNode("http://example.org/empty-graph")
	if err := txn.InsertGraph(g); err != nil {
		t.Fatalf("InsertGraph: %v", err)
	}

	graphs, err := txn.NamedGraphs()
	if err != nil {
		t.Fatalf("NamedGraphs: %v", err)
	}
	found := false
	for _, got := range graphs {
		if got.Equals(g) {
			found = true
		}
	}
	if !found {
		t.Error("expected an explicitly created empty graph to appear in NamedGraphs")
	}

	if err := txn.RemoveGraph(g); err != nil {
		t.Fatalf("RemoveGraph: %v", err)
	}
	graphs, err = txn.NamedGraphs()
	if err != nil {
		t.Fatalf("NamedGraphs after RemoveGraph: %v", err)
	}
	for _, got := range graphs {
		if got.Equals(g) {
			t.Error("expected graph to be gone after RemoveGraph")
		}
	}
}

func TestClearGraphKeepsGraphAlive(t *testing.T) {
	store := newStore(t)
	txn, err := store.Begin(true)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer txn.Rollback()

	g := rdf.NewNamedNode("http://example.org/g")
	q := quad("http://example.org/s", "http://example.org/p", "o", g)
	if err := txn.Insert(q); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if err := txn.ClearGraph(g); err != nil {
		t.Fatalf("ClearGraph: %v", err)
	}

	ok, err := txn.Contains(q)
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if ok {
		t.Error("expected the quad to be gone after ClearGraph")
	}

	graphs, err := txn.NamedGraphs()
	if err != nil {
		t.Fatalf("NamedGraphs: %v", err)
	}
	found := false
	for _, got := range graphs {
		if got.Equals(g) {
			found = true
		}
	}
	if !found {
		t.Error("expected the graph to still exist after ClearGraph, per the graph-lifecycle invariant")
	}
}

func TestCount(t *testing.T) {
	store := newStore(t)
	txn, err := store.Begin(true)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer txn.Rollback()

	for i := 0; i < 5; i++ {
		q := quad("http://example.org/s", "http://example.org/p", string(rune('a'+i)), rdf.NewDefaultGraph())
		if err := txn.Insert(q); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	n, err := txn.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 5 {
		t.Errorf("Count = %d, want 5", n)
	}
}

func TestInsertIsIdempotent(t *testing.T) {
	store := newStore(t)
	txn, err := store.Begin(true)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer txn.Rollback()

	q := quad("http://example.org/s", "http://example.org/p", "o", rdf.NewDefaultGraph())
	if err := txn.Insert(q); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := txn.Insert(q); err != nil {
		t.Fatalf("second Insert: %v", err)
	}
	n, err := txn.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("Count after duplicate Insert = %d, want 1", n)
	}
}
