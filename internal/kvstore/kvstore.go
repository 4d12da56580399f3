// Package kvstore defines the Storage/Transaction/Iterator contract the
// rest of the engine is built on (§3's column families, §4.2's index
// layer), plus a Badger-backed implementation.
//
// Grounded in the teacher's pkg/store/storage.go (Storage/Transaction/
// Iterator interfaces, Table byte-prefix namespacing) and
// internal/storage/badger.go (the Badger-backed realization), kept in the
// same shape: logical column families are namespaced byte-prefixes over
// one physical Badger keyspace.
package kvstore

import "errors"

var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New("kvstore: key not found")
	// ErrTransactionReadOnly is returned by Set/Delete on a read-only txn.
	ErrTransactionReadOnly = errors.New("kvstore: transaction is read-only")
)

// Table identifies a logical column family. Keys are namespaced by a
// single Table byte prefix so that one physical LSM keyspace serves all of
// §3's column families without cross-table collisions.
type Table byte

const (
	TableID2Term Table = iota
	TableSPOG
	TablePOSG
	TableOSPG
	TableGSPO
	TableGPOS
	TableGOSP
	TableGraphs
	TableMeta
	tableCount
)

func (t Table) String() string {
	switch t {
	case TableID2Term:
		return "id2term"
	case TableSPOG:
		return "spog"
	case TablePOSG:
		return "posg"
	case TableOSPG:
		return "ospg"
	case TableGSPO:
		return "gspo"
	case TableGPOS:
		return "gpos"
	case TableGOSP:
		return "gosp"
	case TableGraphs:
		return "graphs"
	case TableMeta:
		return "meta"
	default:
		return "unknown"
	}
}

// Indexes lists the six permuted quad indexes of §3, in the fixed
// preference order §4.2 ties are broken by.
var Indexes = [6]Table{TableSPOG, TablePOSG, TableOSPG, TableGSPO, TableGPOS, TableGOSP}

// TablePrefix returns the one-byte namespace prefix for a table.
func TablePrefix(t Table) []byte { return []byte{byte(t)} }

// PrefixKey namespaces key under table.
func PrefixKey(t Table, key []byte) []byte {
	out := make([]byte, 1+len(key))
	out[0] = byte(t)
	copy(out[1:], key)
	return out
}

// Storage is the underlying key-value backend (§3: "an LSM key–value
// backend"). Many readers may hold snapshot transactions concurrently
// (§5). Writable transactions are not serialized by a lock: several may
// be open at once, and Badger's commit-time conflict detection fails the
// commit of one that conflicts with a transaction committed after it
// began.
type Storage interface {
	// Begin starts a transaction. A writable transaction takes no lock
	// (see above); a read-only transaction is a wait-free snapshot taken
	// at Begin time (§4.3).
	Begin(writable bool) (Transaction, error)
	Close() error
	Sync() error
}

// Transaction is a snapshot (read-only) or write-batch (writable) view
// over Storage, per §4.3.
type Transaction interface {
	Get(table Table, key []byte) ([]byte, error)
	Set(table Table, key, value []byte) error
	Delete(table Table, key []byte) error
	// Scan returns a restartable, lazily-advancing iterator over
	// [start, end) within table. A nil start/end means unbounded on
	// that side.
	Scan(table Table, start, end []byte) (Iterator, error)
	Commit() error
	Rollback() error
	// Writable reports whether the transaction accepts Set/Delete.
	Writable() bool
}

// Iterator lazily walks a key range in sorted order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() ([]byte, error)
	Close() error
}
