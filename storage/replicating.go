package storage

import (
	"fmt"

	"github.com/ipfs/go-cid"
)

// NamedStore associates a Blockstore with a stable backend name.
type NamedStore struct {
	Name  string
	Store Blockstore
}

// ReplicatingStore writes every block to all Backends and reads like a
// MultiStore over them. Each backend must return the CID computed locally.
type ReplicatingStore struct {
	Backends []NamedStore
}

var _ Blockstore = (*ReplicatingStore)(nil)

// PutAll writes the same bytes to all backends.
//
// It returns the CID computed from data and a map of backend name to the
// CID that backend returned. Writing stops at the first failing backend.
func (r ReplicatingStore) PutAll(data []byte, mhType uint64) (cid.Cid, map[string]cid.Cid, error) {
	want, err := Expected(data, mhType)
	if err != nil {
		return cid.Undef, nil, err
	}
	if len(r.Backends) == 0 {
		return cid.Undef, nil, fmt.Errorf("storage: ReplicatingStore has no backends")
	}

	out := make(map[string]cid.Cid, len(r.Backends))
	for _, b := range r.Backends {
		if b.Store == nil {
			return cid.Undef, nil, fmt.Errorf("storage: nil store for backend %q", b.Name)
		}
		got, err := b.Store.Put(data, mhType)
		if err != nil {
			return cid.Undef, out, fmt.Errorf("storage: backend %q: %w", b.Name, err)
		}
		out[b.Name] = got
		if !got.Equals(want) {
			return cid.Undef, out, ErrCIDMismatch
		}
	}
	return want, out, nil
}

func (r ReplicatingStore) Put(data []byte, mhType uint64) (cid.Cid, error) {
	id, _, err := r.PutAll(data, mhType)
	return id, err
}

func (r ReplicatingStore) Get(id cid.Cid) ([]byte, error) { return r.readers().Get(id) }

func (r ReplicatingStore) Has(id cid.Cid) bool { return r.readers().Has(id) }

// readers returns the backends in order as a MultiStore, skipping nil stores.
func (r ReplicatingStore) readers() MultiStore {
	m := MultiStore{Stores: make([]Blockstore, 0, len(r.Backends))}
	for _, b := range r.Backends {
		if b.Store != nil {
			m.Stores = append(m.Stores, b.Store)
		}
	}
	return m
}
