package kvstore

import "testing"

func TestSetGetDelete(t *testing.T) {
	storage, err := Open(t.TempDir(), true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer storage.Close()

	txn, err := storage.Begin(true)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if err := txn.Set(TableSPOG, []byte("key1"), []byte("val1")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := txn.Get(TableSPOG, []byte("key1"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "val1" {
		t.Errorf("Get = %q, want %q", got, "val1")
	}

	if err := txn.Delete(TableSPOG, []byte("key1")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := txn.Get(TableSPOG, []byte("key1")); err != ErrNotFound {
		t.Errorf("Get after Delete = %v, want ErrNotFound", err)
	}

	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestTableNamespacingDoesNotCollide(t *testing.T) {
	storage, err := Open(t.TempDir(), true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer storage.Close()

	txn, err := storage.Begin(true)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer txn.Rollback()

	key := []byte("shared-key")
	if err := txn.Set(TableSPOG, key, []byte("spog-value")); err != nil {
		t.Fatal(err)
	}
	if err := txn.Set(TablePOSG, key, []byte("posg-value")); err != nil {
		t.Fatal(err)
	}

	spog, err := txn.Get(TableSPOG, key)
	if err != nil {
		t.Fatal(err)
	}
	posg, err := txn.Get(TablePOSG, key)
	if err != nil {
		t.Fatal(err)
	}
	if string(spog) == string(posg) {
		t.Fatal("expected different tables to hold independent values for the same logical key")
	}
	if string(spog) != "spog-value" || string(posg) != "posg-value" {
		t.Errorf("got spog=%q posg=%q", spog, posg)
	}
}

func TestScanIsSortedAndBoundedByPrefix(t *testing.T) {
	storage, err := Open(t.TempDir(), true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer storage.Close()

	txn, err := storage.Begin(true)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	keys := []string{"a", "b", "c"}
	for _, k := range keys {
		if err := txn.Set(TableSPOG, []byte(k), nil); err != nil {
			t.Fatal(err)
		}
	}
	if err := txn.Set(TablePOSG, []byte("z"), nil); err != nil {
		t.Fatal(err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	read, err := storage.Begin(false)
	if err != nil {
		t.Fatalf("Begin(false): %v", err)
	}
	defer read.Rollback()

	it, err := read.Scan(TableSPOG, nil, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	defer it.Close()

	var got []string
	for it.Next() {
		got = append(got, string(it.Key()))
	}
	if len(got) != len(keys) {
		t.Fatalf("scanned %d keys, want %d (got %v)", len(got), len(keys), got)
	}
	for i, k := range keys {
		if got[i] != k {
			t.Errorf("scan order[%d] = %q, want %q", i, got[i], k)
		}
	}
}

func TestBeginWritableFailsOnReadOnlyStore(t *testing.T) {
	path := t.TempDir()
	storage, err := Open(path, true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := storage.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ro, err := Open(path, false)
	if err != nil {
		t.Fatalf("Open read-only: %v", err)
	}
	defer ro.Close()

	if _, err := ro.Begin(true); err == nil {
		t.Error("expected Begin(true) on a read-only store to fail")
	}
}
