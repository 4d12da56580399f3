package dict

import (
	"testing"

	"github.com/aleksaelezovic/oxifuj/internal/kvstore"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

func openTxn(t *testing.T) (*kvstore.BadgerStorage, kvstore.Transaction) {
	t.Helper()
	storage, err := kvstore.Open(t.TempDir(), true)
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { storage.Close() })
	txn, err := storage.Begin(true)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	return storage, txn
}

func TestEncodableInlinesSmallValues(t *testing.T) {
	cases := []rdf.Term{
		rdf.NewDefaultGraph(),
		rdf.NewBlankNode("42"),
		rdf.NewIntegerLiteral(7),
		rdf.NewBooleanLiteral(true),
		rdf.NewLiteral("short"),
	}
	for _, term := range cases {
		tid, ok := Encodable(term)
		if !ok {
			t.Errorf("expected %s to be inline-encodable", term)
			continue
		}
		if !tid.IsInline() {
			t.Errorf("TID for %s must carry the inline bit", term)
		}
		got, err := DecodeInline(tid)
		if err != nil {
			t.Fatalf("DecodeInline(%s): %v", term, err)
		}
		if !got.Equals(term) {
			t.Errorf("round trip of %s produced %s", term, got)
		}
	}
}

func TestEncodableRejectsLongStringsAndLanguageLiterals(t *testing.T) {
	long := rdf.NewLiteral("this literal is far longer than the inline threshold allows")
	if _, ok := Encodable(long); ok {
		t.Error("expected a long string literal to not be inline-encodable")
	}
	tagged := rdf.NewLiteralWithLanguage("hi", "en")
	if _, ok := Encodable(tagged); ok {
		t.Error("expected a language-tagged literal to not be inline-encodable")
	}
	iri := rdf.NewNamedNode("http://example.org/a")
	if _, ok := Encodable(iri); ok {
		t.Error("expected an IRI to never be inline-encodable")
	}
}

func TestDictionaryInternRoundTrip(t *testing.T) {
	_, txn := openTxn(t)
	d := New()

	iri := rdf.NewNamedNode("http://example.org/long-predicate-name-that-interns")
	tid, err := d.EncodeForInsert(txn, iri)
	if err != nil {
		t.Fatalf("EncodeForInsert: %v", err)
	}
	if tid.IsInline() {
		t.Fatal("expected an IRI's TID to be interned, not inline")
	}

	got, err := d.Decode(txn, tid)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !got.Equals(iri) {
		t.Errorf("decoded %s, want %s", got, iri)
	}

	again, err := d.EncodeForInsert(txn, iri)
	if err != nil {
		t.Fatalf("second EncodeForInsert: %v", err)
	}
	if again != tid {
		t.Error("encoding the same term twice must yield the same TID")
	}
}

func TestEncodeForReadNeverWrites(t *testing.T) {
	_, txn := openTxn(t)
	d := New()

	unseen := rdf.NewNamedNode("http://example.org/never-inserted")
	_, ok, err := d.EncodeForRead(txn, unseen)
	if err != nil {
		t.Fatalf("EncodeForRead: %v", err)
	}
	if ok {
		t.Error("expected EncodeForRead to report not-found for a term never inserted")
	}

	if _, err := d.EncodeForInsert(txn, unseen); err != nil {
		t.Fatalf("EncodeForInsert: %v", err)
	}
	_, ok, err = d.EncodeForRead(txn, unseen)
	if err != nil {
		t.Fatalf("EncodeForRead after insert: %v", err)
	}
	if !ok {
		t.Error("expected EncodeForRead to find a term after it was interned")
	}
}

func TestDistinctTermsGetDistinctTIDs(t *testing.T) {
	_, txn := openTxn(t)
	d := New()

	a, err := d.EncodeForInsert(txn, rdf.NewNamedNode("http://example.org/a-long-enough-iri"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := d.EncodeForInsert(txn, rdf.NewNamedNode("http://example.org/b-long-enough-iri"))
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("distinct IRIs must not collide onto the same TID")
	}
}
