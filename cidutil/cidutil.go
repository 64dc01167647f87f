// Package cidutil mints and checks the CIDs used for DAG-CBOR blocks and
// converts CIDs to and from their DAG-CBOR link payload form.
package cidutil

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// DefaultHash is the multihash function used when callers do not choose one.
const DefaultHash = multihash.SHA2_256

// Blake2b256 is the multihash code for blake2b with a 32-byte digest.
const Blake2b256 = multihash.BLAKE2B_MIN + 31

// linkPrefix is the multibase identity marker that precedes a binary CID
// inside a DAG-CBOR link.
const linkPrefix = 0x00

var (
	ErrUnsupportedHash = errors.New("cidutil: unsupported hash function")
	ErrMissingPrefix   = errors.New("cidutil: link payload missing identity multibase prefix")
)

// supported lists the hash functions blocks may be written with, by the
// names multihash uses.
var supported = map[string]uint64{
	"sha2-256":    multihash.SHA2_256,
	"sha2-512":    multihash.SHA2_512,
	"sha3-256":    multihash.SHA3_256,
	"sha3-512":    multihash.SHA3_512,
	"blake2b-256": Blake2b256,
	"blake2b-512": multihash.BLAKE2B_MAX,
	"blake3":      multihash.BLAKE3,
}

// Prefix returns the CIDv1 dag-cbor prefix for the hash function mhType.
func Prefix(mhType uint64) cid.Prefix {
	return cid.Prefix{
		Version:  1,
		Codec:    cid.DagCBOR,
		MhType:   mhType,
		MhLength: -1,
	}
}

// Sum returns the CIDv1 dag-cbor CID of data hashed with mhType.
func Sum(data []byte, mhType uint64) (cid.Cid, error) {
	if !Supported(mhType) {
		return cid.Undef, fmt.Errorf("%w: %s", ErrUnsupportedHash, HashName(mhType))
	}
	return Prefix(mhType).Sum(data)
}

// Verify recomputes the CID of data using the prefix of id and reports
// whether it matches.
func Verify(id cid.Cid, data []byte) (bool, error) {
	if !id.Defined() {
		return false, errors.New("cidutil: undefined cid")
	}
	got, err := id.Prefix().Sum(data)
	if err != nil {
		return false, err
	}
	return got.Equals(id), nil
}

// Supported reports whether blocks may be written with mhType.
func Supported(mhType uint64) bool {
	for _, code := range supported {
		if code == mhType {
			return true
		}
	}
	return false
}

// ParseHash resolves a hash function name such as "sha2-256" or
// "blake2b-256" to its multihash code.
func ParseHash(name string) (uint64, error) {
	code, ok := supported[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q (known: %s)", ErrUnsupportedHash, name, strings.Join(HashNames(), ", "))
	}
	return code, nil
}

// HashName returns the multihash name of code, or its hex code when unknown.
func HashName(code uint64) string {
	if name, ok := multihash.Codes[code]; ok {
		return name
	}
	return fmt.Sprintf("0x%x", code)
}

// HashNames returns the supported hash function names, sorted.
func HashNames() []string {
	out := make([]string, 0, len(supported))
	for name := range supported {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// LinkBytes returns the DAG-CBOR link payload for id: the identity
// multibase prefix followed by the binary CID.
func LinkBytes(id cid.Cid) []byte {
	raw := id.Bytes()
	out := make([]byte, 0, len(raw)+1)
	out = append(out, linkPrefix)
	return append(out, raw...)
}

// ParseLink parses a DAG-CBOR link payload.
func ParseLink(payload []byte) (cid.Cid, error) {
	if len(payload) == 0 || payload[0] != linkPrefix {
		return cid.Undef, ErrMissingPrefix
	}
	return cid.Cast(payload[1:])
}
