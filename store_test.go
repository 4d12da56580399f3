package oxifuj

import (
	"context"
	"strings"
	"testing"

	"github.com/aleksaelezovic/oxifuj/internal/cancel"
)

func TestOpenLoadQueryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	nquads := `<http://example.org/alice> <http://example.org/name> "Alice" .
<http://example.org/bob> <http://example.org/name> "Bob" .
`
	if _, err := s.Load(context.Background(), strings.NewReader(nquads)); err != nil {
		t.Fatalf("Load: %v", err)
	}

	res, err := s.Query(context.Background(), `SELECT ?name WHERE { ?s <http://example.org/name> ?name }`, QueryOptions{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer res.Close()

	if res.Kind != ResultSolutions {
		t.Fatalf("Kind = %v, want ResultSolutions", res.Kind)
	}
	var names []string
	for {
		b, ok, err := res.Solutions.Next(cancel.New(nil))
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		names = append(names, b["name"].String())
	}
	if len(names) != 2 {
		t.Fatalf("got %d names, want 2: %v", len(names), names)
	}
}

func TestQueryAsk(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.Update(context.Background(), `INSERT DATA { <http://example.org/s> <http://example.org/p> "o" }`, nil); err != nil {
		t.Fatalf("Update: %v", err)
	}

	res, err := s.Query(context.Background(), `ASK { <http://example.org/s> <http://example.org/p> "o" }`, QueryOptions{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer res.Close()
	if res.Kind != ResultBoolean || !res.Boolean {
		t.Errorf("expected ASK to report true, got Kind=%v Boolean=%v", res.Kind, res.Boolean)
	}
}

func TestUpdateThenDump(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.Update(context.Background(), `INSERT DATA { <http://example.org/s> <http://example.org/p> "o" }`, nil); err != nil {
		t.Fatalf("Update: %v", err)
	}

	var buf strings.Builder
	if err := s.Dump(context.Background(), &buf, nil); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if !strings.Contains(buf.String(), "http://example.org/s") {
		t.Errorf("dump output missing inserted quad: %q", buf.String())
	}
}

func TestBackupProducesUsableStore(t *testing.T) {
	srcDir := t.TempDir()
	src, err := Open(srcDir)
	if err != nil {
		t.Fatalf("Open src: %v", err)
	}
	defer src.Close()
	if err := src.Update(context.Background(), `INSERT DATA { <http://example.org/s> <http://example.org/p> "o" }`, nil); err != nil {
		t.Fatalf("Update: %v", err)
	}

	dstDir := t.TempDir() + "/backup"
	if err := src.Backup(context.Background(), dstDir); err != nil {
		t.Fatalf("Backup: %v", err)
	}

	dst, err := Open(dstDir)
	if err != nil {
		t.Fatalf("Open dst: %v", err)
	}
	defer dst.Close()

	res, err := dst.Query(context.Background(), `ASK { <http://example.org/s> <http://example.org/p> "o" }`, QueryOptions{})
	if err != nil {
		t.Fatalf("Query dst: %v", err)
	}
	defer res.Close()
	if !res.Boolean {
		t.Error("expected the backed-up store to contain the original quad")
	}
}

func TestOpenReadOnlyRejectsWrites(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ro, err := OpenReadOnly(dir)
	if err != nil {
		t.Fatalf("OpenReadOnly: %v", err)
	}
	defer ro.Close()

	err = ro.Update(context.Background(), `INSERT DATA { <http://example.org/s> <http://example.org/p> "o" }`, nil)
	if err == nil {
		t.Error("expected Update against a read-only store to fail")
	}
}
