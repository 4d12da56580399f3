package codec

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

func TestDecodeBasicQuad(t *testing.T) {
	input := `<http://example.org/alice> <http://example.org/name> "Alice" <http://example.org/g> .` + "\n"
	dec := NewNQuadsDecoder(bufio.NewReader(strings.NewReader(input)))

	q, err := dec.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if q.Subject.String() != "<http://example.org/alice>" {
		t.Errorf("subject = %s", q.Subject)
	}
	if q.Object.String() != `"Alice"` {
		t.Errorf("object = %s", q.Object)
	}
	if q.Graph.String() != "<http://example.org/g>" {
		t.Errorf("graph = %s", q.Graph)
	}

	if _, err := dec.Decode(); err != io.EOF {
		t.Errorf("expected io.EOF at end of input, got %v", err)
	}
}

func TestDecodeMissingGraphDefaultsToDefaultGraph(t *testing.T) {
	input := `<http://example.org/s> <http://example.org/p> "o" .` + "\n"
	dec := NewNQuadsDecoder(bufio.NewReader(strings.NewReader(input)))

	q, err := dec.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !q.IsInDefaultGraph() {
		t.Error("expected a bare triple line to decode into the default graph")
	}
}

func TestDecodeSkipsBlankLinesAndComments(t *testing.T) {
	input := "\n# a comment\n" + `<http://example.org/s> <http://example.org/p> "o" .` + "\n"
	dec := NewNQuadsDecoder(bufio.NewReader(strings.NewReader(input)))

	q, err := dec.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if q.Subject.String() != "<http://example.org/s>" {
		t.Errorf("subject = %s", q.Subject)
	}
}

func TestDecodeLanguageAndTypedLiterals(t *testing.T) {
	input := `<http://example.org/s> <http://example.org/p> "bonjour"@fr .` + "\n" +
		`<http://example.org/s> <http://example.org/p> "1"^^<http://www.w3.org/2001/XMLSchema#integer> .` + "\n"
	dec := NewNQuadsDecoder(bufio.NewReader(strings.NewReader(input)))

	q1, err := dec.Decode()
	if err != nil {
		t.Fatalf("Decode (lang): %v", err)
	}
	lit1, ok := q1.Object.(*rdf.Literal)
	if !ok || lit1.Language != "fr" {
		t.Errorf("expected a French-tagged literal, got %s", q1.Object)
	}

	q2, err := dec.Decode()
	if err != nil {
		t.Fatalf("Decode (typed): %v", err)
	}
	lit2, ok := q2.Object.(*rdf.Literal)
	if !ok || lit2.Datatype == nil || lit2.Datatype.IRI != rdf.XSDInteger.IRI {
		t.Errorf("expected an xsd:integer literal, got %s", q2.Object)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	q := rdf.NewQuad(
		rdf.NewNamedNode("http://example.org/s"),
		rdf.NewNamedNode("http://example.org/p"),
		rdf.NewLiteralWithLanguage("hello", "en"),
		rdf.NewNamedNode("http://example.org/g"),
	)

	var buf bytes.Buffer
	enc := NewNQuadsEncoder(&buf)
	if err := enc.Encode(q); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	dec := NewNQuadsDecoder(bufio.NewReader(&buf))
	got, err := dec.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !got.Equals(q) {
		t.Errorf("round trip mismatch: got %s, want %s", got, q)
	}
}
