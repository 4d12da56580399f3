package loader

import (
	"strings"
	"testing"

	"github.com/aleksaelezovic/oxifuj/internal/cancel"
	"github.com/aleksaelezovic/oxifuj/internal/kvstore"
	"github.com/aleksaelezovic/oxifuj/internal/quadstore"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

func newStore(t *testing.T) *quadstore.Store {
	t.Helper()
	storage, err := kvstore.Open(t.TempDir(), true)
	if err != nil {
		t.Fatalf("kvstore.Open: %v", err)
	}
	t.Cleanup(func() { storage.Close() })
	return quadstore.New(storage)
}

func TestLoadCountsQuadsAndGraphs(t *testing.T) {
	store := newStore(t)
	input := `<http://example.org/a> <http://example.org/p> "1" .
<http://example.org/b> <http://example.org/p> "2" <http://example.org/g1> .
<http://example.org/c> <http://example.org/p> "3" <http://example.org/g1> .
<http://example.org/d> <http://example.org/p> "4" <http://example.org/g2> .
`

	stats, err := Load(cancel.New(nil), store, strings.NewReader(input))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stats.QuadsLoaded != 4 {
		t.Errorf("QuadsLoaded = %d, want 4", stats.QuadsLoaded)
	}
	if stats.GraphsTouched != 2 {
		t.Errorf("GraphsTouched = %d, want 2", stats.GraphsTouched)
	}

	txn, err := store.Begin(false)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer txn.Rollback()
	n, err := txn.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 4 {
		t.Errorf("stored quad count = %d, want 4", n)
	}
}

func TestLoadStopsOnParseError(t *testing.T) {
	store := newStore(t)
	input := `<http://example.org/a> <http://example.org/p> "1" .
not a valid statement at all
`
	_, err := Load(cancel.New(nil), store, strings.NewReader(input))
	if err == nil {
		t.Fatal("expected an error loading a malformed N-Quads line")
	}
}

func TestLoadBatchesAcrossBatchSize(t *testing.T) {
	store := newStore(t)
	var sb strings.Builder
	n := BatchSize + 5
	for i := 0; i < n; i++ {
		sb.WriteString(`<http://example.org/s> <http://example.org/p> "`)
		sb.WriteString(rdf.NewIntegerLiteral(int64(i)).Value)
		sb.WriteString(`" <http://example.org/g> .` + "\n")
	}

	stats, err := Load(cancel.New(nil), store, strings.NewReader(sb.String()))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stats.QuadsLoaded != int64(n) {
		t.Errorf("QuadsLoaded = %d, want %d", stats.QuadsLoaded, n)
	}
	if stats.GraphsTouched != 1 {
		t.Errorf("GraphsTouched = %d, want 1 (one graph across both batches)", stats.GraphsTouched)
	}
}
