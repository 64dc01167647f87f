package storage

import "github.com/ipfs/go-cid"

// Blockstore is a content-addressable store of encoded blocks.
//
// Contract:
// - Put MUST be idempotent: identical bytes and hash yield the same CID and no new object.
// - Stored blocks MUST be immutable.
// - CIDs are CIDv1 dag-cbor over the multihash function mhType (see cidutil.Sum).
// - Get MUST return bytes that hash to the requested CID, whatever its prefix.
// - Get MUST return ErrNotFound when the CID is absent.
//
// Implementations are safe for concurrent use.
type Blockstore interface {
	Put(data []byte, mhType uint64) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}
