package quadstore

import (
	"github.com/aleksaelezovic/oxifuj/internal/dict"
	"github.com/aleksaelezovic/oxifuj/internal/kvstore"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

// Pattern is a quad pattern: a nil field means "any" (an unbound
// variable in that position); a non-nil field is a bound term to match
// exactly.
type Pattern struct {
	Subject   rdf.Term
	Predicate rdf.Term
	Object    rdf.Term
	Graph     rdf.Term
}

// QuadIterator lazily yields quads matching a pattern, in the chosen
// index's natural order (§4.4). Close releases the underlying snapshot
// iterator; it does not end the enclosing transaction.
type QuadIterator struct {
	txn   *Txn
	table kvstore.Table
	it    kvstore.Iterator
	err   error
}

// QuadsForPattern selects the unique index whose prefix matches the
// pattern's bound components (§4.2) and returns a lazy, restartable scan
// over it. An impossible pattern (a bound term never interned) returns an
// iterator that yields nothing, without touching any index — this is the
// encode_for_read short-circuit §4.1 calls out.
func (t *Txn) QuadsForPattern(p Pattern) (*QuadIterator, error) {
	sTID, sOK, err := t.encodeReadOptional(p.Subject)
	if err != nil {
		return nil, err
	}
	pTID, pOK, err := t.encodeReadOptional(p.Predicate)
	if err != nil {
		return nil, err
	}
	oTID, oOK, err := t.encodeReadOptional(p.Object)
	if err != nil {
		return nil, err
	}
	gTID, gOK, err := t.encodeReadOptional(p.Graph)
	if err != nil {
		return nil, err
	}

	allBoundTermsKnown := (p.Subject == nil || sOK) &&
		(p.Predicate == nil || pOK) &&
		(p.Object == nil || oOK) &&
		(p.Graph == nil || gOK)
	if !allBoundTermsKnown {
		return &QuadIterator{txn: t}, nil // empty: pattern can never match
	}

	table := selectIndex(p.Subject != nil, p.Predicate != nil, p.Object != nil, p.Graph != nil)
	prefix := buildPrefix(table, sTID, pTID, oTID, gTID, p.Subject != nil, p.Predicate != nil, p.Object != nil, p.Graph != nil)

	// The scan ends at the first key past the prefix: the prefix with
	// its last non-0xff byte incremented.
	var end []byte
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i] != 0xff {
			end = append(append([]byte{}, prefix[:i]...), prefix[i]+1)
			break
		}
	}
	it, err := t.inner.Scan(table, prefix, end)
	if err != nil {
		return nil, err
	}
	return &QuadIterator{txn: t, table: table, it: it}, nil
}

// ScanSubject returns every quad with the given subject, restricted to
// graph when non-nil (nil means every graph, the union default graph
// view DESCRIBE uses). It satisfies results.QuadScanner.
func (t *Txn) ScanSubject(graph, subject rdf.Term) ([]*rdf.Quad, error) {
	it, err := t.QuadsForPattern(Pattern{Subject: subject, Graph: graph})
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var out []*rdf.Quad
	for it.Next() {
		q, err := it.Quad()
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Txn) encodeReadOptional(term rdf.Term) (dict.TID, bool, error) {
	if term == nil {
		return dict.TID{}, false, nil
	}
	return t.store.dict.EncodeForRead(t.inner, term)
}

// Next advances the iterator. selectIndex always picks a table whose
// natural position order has every bound pattern position leading
// (followed only by unbound ones), so the prefix scan alone is exact —
// no residual filtering of decoded quads is ever needed.
func (qi *QuadIterator) Next() bool {
	if qi.it == nil {
		return false
	}
	return qi.it.Next()
}

// Quad decodes the current key into a quad.
func (qi *QuadIterator) Quad() (*rdf.Quad, error) {
	key := qi.it.Key()
	s, p, o, g, err := splitKey(qi.table, key)
	if err != nil {
		return nil, err
	}
	subject, err := qi.txn.store.dict.Decode(qi.txn.inner, s)
	if err != nil {
		return nil, err
	}
	predicate, err := qi.txn.store.dict.Decode(qi.txn.inner, p)
	if err != nil {
		return nil, err
	}
	object, err := qi.txn.store.dict.Decode(qi.txn.inner, o)
	if err != nil {
		return nil, err
	}
	graph, err := qi.txn.store.dict.Decode(qi.txn.inner, g)
	if err != nil {
		return nil, err
	}
	return rdf.NewQuad(subject, predicate, object, graph), nil
}

func (qi *QuadIterator) Err() error { return qi.err }

func (qi *QuadIterator) Close() error {
	if qi.it == nil {
		return nil
	}
	return qi.it.Close()
}
