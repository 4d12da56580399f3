package quadstore

import (
	"github.com/aleksaelezovic/oxifuj/internal/dict"
	"github.com/aleksaelezovic/oxifuj/internal/kvstore"
	"github.com/aleksaelezovic/oxifuj/internal/qerror"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

// Store is the quad store facade of §4.4, owning all column families
// (§3's "Ownership"). Callers never touch kvstore or dict directly.
type Store struct {
	storage kvstore.Storage
	dict    *dict.Dictionary
}

func New(storage kvstore.Storage) *Store {
	return &Store{storage: storage, dict: dict.New()}
}

func (s *Store) Close() error { return s.storage.Close() }

// Txn is a read or write transaction over the store (§4.3). Read
// transactions are repeatable-read snapshots; write transactions buffer
// changes and commit atomically.
type Txn struct {
	store *Store
	inner kvstore.Transaction
}

// Begin starts a transaction. A writable Txn takes no lock, so several
// may be open at once; conflicting commits fail in the storage layer
// (kvstore.Storage). A read-only Txn is a snapshot taken now that never
// observes later writes (§4.3's "repeatable read").
func (s *Store) Begin(writable bool) (*Txn, error) {
	inner, err := s.storage.Begin(writable)
	if err != nil {
		return nil, err
	}
	return &Txn{store: s, inner: inner}, nil
}

func (t *Txn) Commit() error   { return t.inner.Commit() }
func (t *Txn) Rollback() error { return t.inner.Rollback() }
func (t *Txn) Writable() bool  { return t.inner.Writable() }

// Insert adds a quad to all six indexes atomically (§4.2: "A single
// logical insert writes to all six indexes ... under one atomic batch").
// Re-inserting an already-present quad is a no-op (§4.2's dedup
// invariant, since the key-only layout makes Set idempotent).
func (t *Txn) Insert(q *rdf.Quad) error {
	sTID, pTID, oTID, gTID, err := t.encodeAll(q)
	if err != nil {
		return err
	}
	for _, table := range kvstore.Indexes {
		key := buildKey(table, sTID, pTID, oTID, gTID)
		if err := t.inner.Set(table, key, nil); err != nil {
			return err
		}
	}
	if _, isDefault := q.Graph.(*rdf.DefaultGraph); !isDefault {
		if err := t.inner.Set(kvstore.TableGraphs, gTID.Bytes(), nil); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes a quad from all six indexes atomically. Removing a quad
// that is not present is a no-op (§8's idempotence property). The graphs
// table entry is left untouched: a graph created by CREATE GRAPH or that
// still holds other quads must keep existing (§3's graph-lifecycle
// invariant); ClearGraph/RemoveGraph manage that entry explicitly.
func (t *Txn) Remove(q *rdf.Quad) error {
	sTID, ok1, err := t.store.dict.EncodeForRead(t.inner, q.Subject)
	if err != nil {
		return err
	}
	pTID, ok2, err := t.store.dict.EncodeForRead(t.inner, q.Predicate)
	if err != nil {
		return err
	}
	oTID, ok3, err := t.store.dict.EncodeForRead(t.inner, q.Object)
	if err != nil {
		return err
	}
	gTID, ok4, err := t.store.dict.EncodeForRead(t.inner, q.Graph)
	if err != nil {
		return err
	}
	if !(ok1 && ok2 && ok3 && ok4) {
		return nil // one of the terms was never interned: quad cannot exist
	}
	for _, table := range kvstore.Indexes {
		key := buildKey(table, sTID, pTID, oTID, gTID)
		if err := t.inner.Delete(table, key); err != nil {
			return err
		}
	}
	return nil
}

func (t *Txn) encodeAll(q *rdf.Quad) (s, p, o, g dict.TID, err error) {
	if s, err = t.store.dict.EncodeForInsert(t.inner, q.Subject); err != nil {
		return
	}
	if p, err = t.store.dict.EncodeForInsert(t.inner, q.Predicate); err != nil {
		return
	}
	if o, err = t.store.dict.EncodeForInsert(t.inner, q.Object); err != nil {
		return
	}
	if g, err = t.store.dict.EncodeForInsert(t.inner, q.Graph); err != nil {
		return
	}
	return
}

// Contains reports whether q is present, via a single index lookup.
func (t *Txn) Contains(q *rdf.Quad) (bool, error) {
	sTID, ok1, err := t.store.dict.EncodeForRead(t.inner, q.Subject)
	if err != nil || !ok1 {
		return false, err
	}
	pTID, ok2, err := t.store.dict.EncodeForRead(t.inner, q.Predicate)
	if err != nil || !ok2 {
		return false, err
	}
	oTID, ok3, err := t.store.dict.EncodeForRead(t.inner, q.Object)
	if err != nil || !ok3 {
		return false, err
	}
	gTID, ok4, err := t.store.dict.EncodeForRead(t.inner, q.Graph)
	if err != nil || !ok4 {
		return false, err
	}
	key := buildKey(kvstore.TableSPOG, sTID, pTID, oTID, gTID)
	_, err = t.inner.Get(kvstore.TableSPOG, key)
	if err == kvstore.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertGraph records that graph g exists even if it holds no quads yet
// (§3: "A graph exists iff it has at least one quad OR appears in
// `graphs`"), implementing SPARQL Update's CREATE GRAPH.
func (t *Txn) InsertGraph(g rdf.Term) error {
	gTID, err := t.store.dict.EncodeForInsert(t.inner, g)
	if err != nil {
		return err
	}
	return t.inner.Set(kvstore.TableGraphs, gTID.Bytes(), nil)
}

// ClearGraph removes every quad in g but keeps its `graphs` entry, so the
// graph still exists afterward (SPARQL Update CLEAR GRAPH).
func (t *Txn) ClearGraph(g rdf.Term) error {
	return t.removeGraphQuads(g)
}

// RemoveGraph removes every quad in g and its `graphs` entry (SPARQL
// Update DROP GRAPH).
func (t *Txn) RemoveGraph(g rdf.Term) error {
	if err := t.removeGraphQuads(g); err != nil {
		return err
	}
	gTID, ok, err := t.store.dict.EncodeForRead(t.inner, g)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return t.inner.Delete(kvstore.TableGraphs, gTID.Bytes())
}

func (t *Txn) removeGraphQuads(g rdf.Term) error {
	it, err := t.QuadsForPattern(Pattern{Graph: g})
	if err != nil {
		return err
	}
	defer it.Close()

	var toRemove []*rdf.Quad
	for it.Next() {
		q, err := it.Quad()
		if err != nil {
			return err
		}
		toRemove = append(toRemove, q)
	}
	if err := it.Err(); err != nil {
		return err
	}
	for _, q := range toRemove {
		if err := t.Remove(q); err != nil {
			return err
		}
	}
	return nil
}

// NamedGraphs returns every graph name recorded as existing, either via
// InsertGraph or because it currently holds at least one quad outside the
// default graph (§3).
func (t *Txn) NamedGraphs() ([]rdf.Term, error) {
	seen := map[string]rdf.Term{}

	it, err := t.inner.Scan(kvstore.TableGraphs, nil, nil)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	for it.Next() {
		tid, err := dict.FromBytes(it.Key())
		if err != nil {
			return nil, qerror.Corrupted("malformed graphs table key")
		}
		term, err := t.store.dict.Decode(t.inner, tid)
		if err != nil {
			return nil, err
		}
		seen[term.String()] = term
	}

	// Graphs implied by holding at least one quad: scan gspo's top-level
	// graph grouping cheaply via the prefix-free outer loop.
	gspo, err := t.inner.Scan(kvstore.TableGSPO, nil, nil)
	if err != nil {
		return nil, err
	}
	defer gspo.Close()
	for gspo.Next() {
		key := gspo.Key()
		if len(key) < tidSize {
			continue
		}
		gTID, err := dict.FromBytes(key[:tidSize])
		if err != nil {
			continue
		}
		term, err := t.store.dict.Decode(t.inner, gTID)
		if err != nil {
			return nil, err
		}
		if _, isDefault := term.(*rdf.DefaultGraph); isDefault {
			continue
		}
		seen[term.String()] = term
	}

	out := make([]rdf.Term, 0, len(seen))
	for _, t := range seen {
		out = append(out, t)
	}
	return out, nil
}

// Count returns the number of quads in the store (scans spog).
func (t *Txn) Count() (int64, error) {
	it, err := t.inner.Scan(kvstore.TableSPOG, nil, nil)
	if err != nil {
		return 0, err
	}
	defer it.Close()
	var n int64
	for it.Next() {
		n++
	}
	return n, nil
}

// Inner exposes the underlying kvstore transaction for the bulk loader
// and dictionary lookups that need raw table access.
func (t *Txn) Inner() kvstore.Transaction { return t.inner }

// Dict exposes the store's dictionary for components (expression engine
// functions like isIRI, evaluator decode) that need direct TID<->term
// conversion outside of pattern matching.
func (t *Txn) Dict() *dict.Dictionary { return t.store.dict }
