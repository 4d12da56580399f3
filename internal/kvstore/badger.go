package kvstore

import (
	"bytes"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/aleksaelezovic/oxifuj/internal/qerror"
)

// BadgerStorage is the LSM-backed Storage of §3, §6.1.
type BadgerStorage struct {
	db       *badger.DB
	readOnly bool
}

// Open opens (and creates, if absent) a store at path. writable, when
// true, acquires Badger's exclusive file lock for write access (§4.3's
// "single writer"); a read-only open (§4.3's "Read-only open") skips it,
// and concurrent write access from another process is then undefined, as
// the caller is warned in the CLI help text.
func Open(path string, writable bool) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.ReadOnly = !writable

	db, err := badger.Open(opts)
	if err != nil {
		return nil, qerror.Storage(err, "failed to open badger store")
	}
	return &BadgerStorage{db: db, readOnly: !writable}, nil
}

func (s *BadgerStorage) Begin(writable bool) (Transaction, error) {
	if writable && s.readOnly {
		return nil, qerror.New(qerror.KindStorageError, "store was opened read-only")
	}
	txn := s.db.NewTransaction(writable)
	return &badgerTxn{txn: txn, writable: writable}, nil
}

func (s *BadgerStorage) Close() error { return s.db.Close() }
func (s *BadgerStorage) Sync() error  { return s.db.Sync() }

// DB exposes the underlying *badger.DB for the store's backup and
// optimize operations, which call Badger's Backup/Load and Flatten
// directly.
func (s *BadgerStorage) DB() *badger.DB { return s.db }

type badgerTxn struct {
	txn      *badger.Txn
	writable bool
}

func (t *badgerTxn) Writable() bool { return t.writable }

func (t *badgerTxn) Get(table Table, key []byte) ([]byte, error) {
	item, err := t.txn.Get(PrefixKey(table, key))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, ErrNotFound
		}
		return nil, qerror.Storage(err, "get failed")
	}
	var value []byte
	if err := item.Value(func(val []byte) error {
		value = append([]byte{}, val...)
		return nil
	}); err != nil {
		return nil, qerror.Storage(err, "read value failed")
	}
	return value, nil
}

func (t *badgerTxn) Set(table Table, key, value []byte) error {
	if !t.writable {
		return ErrTransactionReadOnly
	}
	if err := t.txn.Set(PrefixKey(table, key), value); err != nil {
		return qerror.Storage(err, "set failed")
	}
	return nil
}

func (t *badgerTxn) Delete(table Table, key []byte) error {
	if !t.writable {
		return ErrTransactionReadOnly
	}
	if err := t.txn.Delete(PrefixKey(table, key)); err != nil {
		return qerror.Storage(err, "delete failed")
	}
	return nil
}

func (t *badgerTxn) Scan(table Table, start, end []byte) (Iterator, error) {
	opts := badger.DefaultIteratorOptions
	tablePrefix := TablePrefix(table)

	var seekKey []byte
	if start != nil {
		seekKey = PrefixKey(table, start)
	} else {
		seekKey = tablePrefix
	}
	opts.Prefix = tablePrefix

	it := t.txn.NewIterator(opts)

	var endKey []byte
	if end != nil {
		endKey = PrefixKey(table, end)
	}

	return &badgerIterator{
		it:       it,
		prefix:   tablePrefix,
		seekKey:  seekKey,
		endKey:   endKey,
		hasValue: false,
	}, nil
}

func (t *badgerTxn) Commit() error {
	if err := t.txn.Commit(); err != nil {
		return qerror.Storage(err, "commit failed")
	}
	return nil
}

func (t *badgerTxn) Rollback() error {
	t.txn.Discard()
	return nil
}

type badgerIterator struct {
	it       *badger.Iterator
	prefix   []byte
	seekKey  []byte
	endKey   []byte
	started  bool
	hasValue bool
}

func (i *badgerIterator) Next() bool {
	if !i.started {
		i.it.Seek(i.seekKey)
		i.started = true
	} else {
		i.it.Next()
	}

	if !i.it.ValidForPrefix(i.prefix) {
		i.hasValue = false
		return false
	}
	if i.endKey != nil && bytes.Compare(i.it.Item().Key(), i.endKey) >= 0 {
		i.hasValue = false
		return false
	}
	i.hasValue = true
	return true
}

func (i *badgerIterator) Key() []byte {
	if !i.hasValue {
		return nil
	}
	key := i.it.Item().Key()
	if len(key) <= len(i.prefix) {
		return nil
	}
	return key[len(i.prefix):]
}

func (i *badgerIterator) Value() ([]byte, error) {
	if !i.hasValue {
		return nil, ErrNotFound
	}
	var value []byte
	err := i.it.Item().Value(func(val []byte) error {
		value = append([]byte{}, val...)
		return nil
	})
	if err != nil {
		return nil, qerror.Storage(err, "read value failed")
	}
	return value, nil
}

func (i *badgerIterator) Close() error {
	i.it.Close()
	return nil
}
