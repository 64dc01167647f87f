// Package storetest is a conformance suite for storage.Blockstore implementations.
package storetest

import (
	"bytes"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"xdao.co/ipld/cidutil"
	"xdao.co/ipld/storage"
)

// NewStore constructs a fresh, empty store for a test.
// The returned store MUST be isolated from other tests.
type NewStore func(t *testing.T) storage.Blockstore

// Hashes lists the hash functions every backend must accept.
var Hashes = []uint64{cidutil.DefaultHash, cidutil.Blake2b256, multihash.SHA3_256}

func RunConformance(t *testing.T, newStore NewStore) {
	t.Helper()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		s := newStore(t)
		for _, h := range Hashes {
			want := []byte("hello, block storage " + cidutil.HashName(h))

			id, err := s.Put(want, h)
			if err != nil {
				t.Fatalf("Put(%s) failed: %v", cidutil.HashName(h), err)
			}
			wantID, err := cidutil.Sum(want, h)
			if err != nil {
				t.Fatalf("Sum failed: %v", err)
			}
			if !id.Equals(wantID) {
				t.Fatalf("Put CID mismatch: got %s want %s", id, wantID)
			}
			if id.Prefix().Codec != cid.DagCBOR {
				t.Fatalf("Put CID codec: got %x want dag-cbor", id.Prefix().Codec)
			}

			got, err := s.Get(id)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if !bytes.Equal(got, want) {
				t.Fatalf("Get bytes mismatch")
			}
			if ok, err := cidutil.Verify(id, got); err != nil || !ok {
				t.Fatalf("Get returned bytes not matching requested CID (%v)", err)
			}
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		s := newStore(t)
		b := []byte("same bytes")

		id1, err := s.Put(b, cidutil.DefaultHash)
		if err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		id2, err := s.Put(b, cidutil.DefaultHash)
		if err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		if !id1.Equals(id2) {
			t.Fatalf("Put not idempotent: %s vs %s", id1, id2)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		s := newStore(t)
		b := []byte("missing")
		id, err := cidutil.Sum(b, cidutil.DefaultHash)
		if err != nil {
			t.Fatalf("Sum failed: %v", err)
		}

		if s.Has(id) {
			t.Fatalf("Has returned true for missing CID")
		}
		_, err = s.Get(id)
		if !storage.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}

		if _, err := s.Put(b, cidutil.DefaultHash); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if !s.Has(id) {
			t.Fatalf("Has returned false after Put")
		}
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		s := newStore(t)
		var undef cid.Cid
		if s.Has(undef) {
			t.Fatalf("Has should be false for undefined CID")
		}
		if _, err := s.Get(undef); err == nil {
			t.Fatalf("Get should fail for undefined CID")
		}
	})

	t.Run("RejectUnsupportedHash", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Put([]byte("x"), multihash.MD5); err == nil {
			t.Fatalf("Put with md5 should fail")
		}
	})
}
