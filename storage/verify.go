package storage

import (
	"github.com/ipfs/go-cid"

	"xdao.co/ipld/cidutil"
)

// Expected returns the CID data will be stored under, rejecting hash
// functions blocks may not be written with.
func Expected(data []byte, mhType uint64) (cid.Cid, error) {
	id, err := cidutil.Sum(data, mhType)
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, ErrInvalidCID
	}
	return id, nil
}

// Check verifies that data hashes to id. It returns ErrInvalidCID for an
// undefined CID and ErrCIDMismatch when the bytes do not match.
func Check(id cid.Cid, data []byte) error {
	if !id.Defined() {
		return ErrInvalidCID
	}
	ok, err := cidutil.Verify(id, data)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCIDMismatch
	}
	return nil
}
