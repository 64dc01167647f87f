package storage_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/ipld/cidutil"
	"xdao.co/ipld/storage"
	"xdao.co/ipld/storage/dsstore"
	"xdao.co/ipld/storage/storetest"
)

// failing is a store whose reads fail with a backend error.
type failing struct{ storage.Blockstore }

var errBackend = errors.New("backend down")

func (failing) Get(cid.Cid) ([]byte, error) { return nil, errBackend }

// wrongCID returns a fixed CID from every Put.
type wrongCID struct {
	storage.Blockstore
	id cid.Cid
}

func (w wrongCID) Put([]byte, uint64) (cid.Cid, error) { return w.id, nil }

func TestMultiStore_Conformance(t *testing.T) {
	storetest.RunConformance(t, func(t *testing.T) storage.Blockstore {
		return storage.MultiStore{Stores: []storage.Blockstore{dsstore.NewMemory(), dsstore.NewMemory()}}
	})
}

func TestMultiStore_Fallback(t *testing.T) {
	a, b := dsstore.NewMemory(), dsstore.NewMemory()
	id, err := b.Put([]byte("only in b"), cidutil.DefaultHash)
	if err != nil {
		t.Fatal(err)
	}
	m := storage.MultiStore{Stores: []storage.Blockstore{a, b}}
	got, err := m.Get(id)
	if err != nil || !bytes.Equal(got, []byte("only in b")) {
		t.Fatalf("Get: %q, %v", got, err)
	}
	if !m.Has(id) {
		t.Fatalf("Has: expected true")
	}

	m = storage.MultiStore{Stores: []storage.Blockstore{failing{a}, b}}
	if _, err := m.Get(id); !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error to stop the scan, got %v", err)
	}

	if _, err := (storage.MultiStore{}).Put([]byte("x"), cidutil.DefaultHash); err == nil {
		t.Fatalf("expected error with no stores")
	}
}

func TestReplicatingStore_Conformance(t *testing.T) {
	storetest.RunConformance(t, func(t *testing.T) storage.Blockstore {
		return storage.ReplicatingStore{Backends: []storage.NamedStore{
			{Name: "a", Store: dsstore.NewMemory()},
			{Name: "b", Store: dsstore.NewMemory()},
		}}
	})
}

func TestReplicatingStore_DetectsDivergentCID(t *testing.T) {
	other, err := cidutil.Sum([]byte("other"), cidutil.DefaultHash)
	if err != nil {
		t.Fatal(err)
	}
	r := storage.ReplicatingStore{Backends: []storage.NamedStore{
		{Name: "good", Store: dsstore.NewMemory()},
		{Name: "bad", Store: wrongCID{Blockstore: dsstore.NewMemory(), id: other}},
	}}
	_, perBackend, err := r.PutAll([]byte("data"), cidutil.DefaultHash)
	if err != storage.ErrCIDMismatch {
		t.Fatalf("expected ErrCIDMismatch, got %v", err)
	}
	if !perBackend["bad"].Equals(other) {
		t.Fatalf("per-backend map should record the divergent CID: %v", perBackend)
	}
}
