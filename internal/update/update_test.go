package update

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

func qp(s, p, o string, g rdf.Term) algebra.QuadPattern {
	return algebra.QuadPattern{
		Subject:   algebra.Bound(rdf.NewNamedNode(s)),
		Predicate: algebra.Bound(rdf.NewNamedNode(p)),
		Object:    algebra.Bound(rdf.NewLiteral(o)),
		Graph:     algebra.Bound(g),
	}
}

func TestExecInsertData(t *testing.T) {
	txn := newTxn(t)
	u := &algebra.Update{
		Op:    algebra.OpInsertData,
		Quads: []algebra.QuadPattern{qp("http://example.org/s", "http://example.org/p", "o", rdf.NewDefaultGraph())},
	}
	if err := Exec(cancel.New(nil), txn, u, nil); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	n, err := txn.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestExecDeleteData(t *testing.T) {
	txn := newTxn(t)
	q := rdf.NewQuad(rdf.NewNamedNode("http://example.org/s"), rdf.NewNamedNode("http://example.org/p"), rdf.NewLiteral("o"), rdf.NewDefaultGraph())
	if err := txn.Insert(q); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	u := &algebra.Update{
		Op:    algebra.OpDeleteData,
		Quads: []algebra.QuadPattern{qp("http://example.org/s", "http://example.org/p", "o", rdf.NewDefaultGraph())},
	}
	if err := Exec(cancel.New(nil), txn, u, nil); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	ok, err := txn.Contains(q)
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if ok {
		t.Error("expected the quad to be gone after DELETE DATA")
	}
}

func TestExecDeleteInsertRewritesValue(t *testing.T) {
	txn := newTxn(t)
	s := rdf.NewNamedNode("http://example.org/s")
	p := rdf.NewNamedNode("http://example.org/p")
	if err := txn.Insert(rdf.NewQuad(s, p, rdf.NewLiteral("old"), rdf.NewDefaultGraph())); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	u := &algebra.Update{
		Op: algebra.OpDeleteInsert,
		Where: &algebra.Bgp{Patterns: []algebra.TriplePattern{
			{Subject: algebra.Bound(s), Predicate: algebra.Bound(p), Object: algebra.Variable("v")},
		}},
		DeleteTpl: []algebra.QuadPattern{{Subject: algebra.Bound(s), Predicate: algebra.Bound(p), Object: algebra.Variable("v")}},
		InsertTpl: []algebra.QuadPattern{{Subject: algebra.Bound(s), Predicate: algebra.Bound(p), Object: algebra.Bound(rdf.NewLiteral("new"))}},
	}
	if err := Exec(cancel.New(nil), txn, u, nil); err != nil {
		t.Fatalf("Exec: %v", err)
	}

	oldOk, err := txn.Contains(rdf.NewQuad(s, p, rdf.NewLiteral("old"), rdf.NewDefaultGraph()))
	if err != nil {
		t.Fatalf("Contains old: %v", err)
	}
	if oldOk {
		t.Error("expected the old value to be removed")
	}
	newOk, err := txn.Contains(rdf.NewQuad(s, p, rdf.NewLiteral("new"), rdf.NewDefaultGraph()))
	if err != nil {
		t.Fatalf("Contains new: %v", err)
	}
	if !newOk {
		t.Error("expected the new value to be present")
	}
}

func TestExecClearKeepsGraphDropRemovesIt(t *testing.T) {
	txn := newTxn(t)
	g := rdf.NewNamedNode("http://example.org/g")
	q := rdf.NewQuad(rdf.NewNamedNode("http://example.org/s"), rdf.NewNamedNode("http://example.org/p"), rdf.NewLiteral("o"), g)
	if err := txn.Insert(q); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	clear := &algebra.Update{Op: algebra.OpClear, GraphRef: algebra.GraphRef{Kind: algebra.GraphRefNamed, Name: g}}
	if err := Exec(cancel.New(nil), txn, clear, nil); err != nil {
		t.Fatalf("Exec CLEAR: %v", err)
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
		t.Error("expected CLEAR to keep the graph alive")
	}

	drop := &algebra.Update{Op: algebra.OpDrop, GraphRef: algebra.GraphRef{Kind: algebra.GraphRefNamed, Name: g}}
	if err := Exec(cancel.New(nil), txn, drop, nil); err != nil {
		t.Fatalf("Exec DROP: %v", err)
	}
	graphs, err = txn.NamedGraphs()
	if err != nil {
		t.Fatalf("NamedGraphs after DROP: %v", err)
	}
	for _, got := range graphs {
		if got.Equals(g) {
			t.Error("expected DROP to remove the graph")
		}
	}
}

func TestExecCopy(t *testing.T) {
	txn := newTxn(t)
	from := rdf.NewDefaultGraph()
	to := rdf.NewNamedNode("http://example.org/copy-target")
	q := rdf.NewQuad(rdf.NewNamedNode("http://example.org/s"), rdf.NewNamedNode("http://example.org/p"), rdf.NewLiteral("o"), from)
	if err := txn.Insert(q); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	copyUpdate := &algebra.Update{
		Op:   algebra.OpCopy,
		From: algebra.GraphRef{Kind: algebra.GraphRefDefault},
		To:   algebra.GraphRef{Kind: algebra.GraphRefNamed, Name: to},
	}
	if err := Exec(cancel.New(nil), txn, copyUpdate, nil); err != nil {
		t.Fatalf("Exec COPY: %v", err)
	}

	copied := rdf.NewQuad(q.Subject, q.Predicate, q.Object, to)
	ok, err := txn.Contains(copied)
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if !ok {
		t.Error("expected COPY to place the quad in the target graph")
	}
	// COPY is not MOVE: the source quad must still exist.
	ok, err = txn.Contains(q)
	if err != nil {
		t.Fatalf("Contains source: %v", err)
	}
	if !ok {
		t.Error("expected COPY to leave the source graph intact")
	}
}

func TestExecOnReadOnlyTxnFails(t *testing.T) {
	storage, err := kvstore.Open(t.TempDir(), true)
	if err != nil {
		t.Fatalf("kvstore.Open: %v", err)
	}
	defer storage.Close()
	store := quadstore.New(storage)
	txn, err := store.Begin(false)
	if err != nil {
		t.Fatalf("Begin(false): %v", err)
	}
	defer txn.Rollback()

	u := &algebra.Update{Op: algebra.OpInsertData, Quads: []algebra.QuadPattern{qp("http://example.org/s", "http://example.org/p", "o", rdf.NewDefaultGraph())}}
	if err := Exec(cancel.New(nil), txn, u, nil); err == nil {
		t.Error("expected Exec to fail on a read-only transaction")
	}
}
