package storage

import (
	"errors"

	"github.com/ipfs/go-cid"
)

// MultiStore provides deterministic, ordered fallback across multiple block stores.
//
// Read order is the slice order in Stores; callers MUST supply a fixed order.
//
// Put writes only to the first store.
type MultiStore struct {
	Stores []Blockstore
}

var _ Blockstore = MultiStore{}

func (m MultiStore) Put(data []byte, mhType uint64) (cid.Cid, error) {
	if len(m.Stores) == 0 {
		return cid.Undef, errors.New("storage: MultiStore has no stores")
	}
	return m.Stores[0].Put(data, mhType)
}

// Get returns the first hit. A backend error other than ErrNotFound stops the scan.
func (m MultiStore) Get(id cid.Cid) ([]byte, error) {
	for _, s := range m.Stores {
		b, err := s.Get(id)
		if err == nil {
			return b, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

func (m MultiStore) Has(id cid.Cid) bool {
	for _, s := range m.Stores {
		if s.Has(id) {
			return true
		}
	}
	return false
}
