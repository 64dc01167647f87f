// Package dsstore adapts a go-datastore Datastore into a storage.Blockstore.
package dsstore

import (
	"bytes"
	"context"
	"errors"

	"github.com/ipfs/go-cid"
	datastore "github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/namespace"
	dssync "github.com/ipfs/go-datastore/sync"
	dshelp "github.com/ipfs/go-ipfs-ds-help"

	"xdao.co/ipld/storage"
)

// blockNamespace prefixes every block key so a shared datastore can hold other data.
var blockNamespace = datastore.NewKey("/blocks")

// Store keeps blocks in a datastore, keyed by the binary CID.
//
// Keys include the full CID (not just the multihash), so the same bytes put
// under two hash functions are two entries.
type Store struct {
	ds datastore.Datastore
}

var _ storage.Blockstore = (*Store)(nil)

// New wraps ds. The caller owns ds and must make it safe for concurrent use.
func New(ds datastore.Datastore) *Store {
	return &Store{ds: namespace.Wrap(ds, blockNamespace)}
}

// NewMemory returns a Store over a mutex-guarded in-memory map.
func NewMemory() *Store {
	return New(dssync.MutexWrap(datastore.NewMapDatastore()))
}

func keyFor(id cid.Cid) datastore.Key {
	return dshelp.NewKeyFromBinary(id.Bytes())
}

func (s *Store) Put(data []byte, mhType uint64) (cid.Cid, error) {
	return s.PutContext(context.Background(), data, mhType)
}

// PutContext is Put with a caller-supplied context for the datastore calls.
func (s *Store) PutContext(ctx context.Context, data []byte, mhType uint64) (cid.Cid, error) {
	id, err := storage.Expected(data, mhType)
	if err != nil {
		return cid.Undef, err
	}
	key := keyFor(id)
	existing, err := s.ds.Get(ctx, key)
	switch {
	case err == nil:
		if !bytes.Equal(existing, data) {
			return cid.Undef, storage.ErrImmutable
		}
		return id, nil
	case errors.Is(err, datastore.ErrNotFound):
	default:
		return cid.Undef, err
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	if err := s.ds.Put(ctx, key, buf); err != nil {
		return cid.Undef, err
	}
	return id, nil
}

func (s *Store) Get(id cid.Cid) ([]byte, error) {
	return s.GetContext(context.Background(), id)
}

// GetContext is Get with a caller-supplied context for the datastore calls.
func (s *Store) GetContext(ctx context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	b, err := s.ds.Get(ctx, keyFor(id))
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	if err := storage.Check(id, b); err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (s *Store) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	ok, err := s.ds.Has(context.Background(), keyFor(id))
	return err == nil && ok
}

// Close closes the underlying datastore.
func (s *Store) Close() error {
	return s.ds.Close()
}
