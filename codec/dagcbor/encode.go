package dagcbor

import (
	"fmt"
	"io"
	"math"

	gocbor "github.com/fxamacker/cbor/v2"

	"xdao.co/ipld/cidutil"
	"xdao.co/ipld/ipld"
)

// encMode writes the grammar ReadValue accepts: Core Deterministic
// Encoding (sorted map keys, smallest integer arguments, definite lengths)
// with every float as a full 64-bit double, since half and single
// precision are not produced by this package.
var encMode gocbor.EncMode

func init() {
	opts := gocbor.CoreDetEncOptions()
	opts.ShortestFloat = gocbor.ShortestFloatNone
	opts.NaNConvert = gocbor.NaNConvertNone
	opts.InfConvert = gocbor.InfConvertNone
	opts.BigIntConvert = gocbor.BigIntConvertShortest

	var err error
	encMode, err = opts.EncMode()
	if err != nil {
		panic("dagcbor: CBOR encoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v as a DAG-CBOR block.
//
// Links are written as tag 42 around the identity-prefixed CID bytes. The
// decoder only accepts that payload in the one-byte length form of 24 to
// 255 bytes, so Marshal fails with ErrLinkLength for any other CID.
func Marshal(v ipld.Value) ([]byte, error) {
	x, err := toCBOR(v)
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(x)
}

// Encode writes v to w as one DAG-CBOR item.
func Encode(w io.Writer, v ipld.Value) error {
	x, err := toCBOR(v)
	if err != nil {
		return err
	}
	return encMode.NewEncoder(w).Encode(x)
}

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) of data.
func Diagnose(data []byte) (string, error) {
	return gocbor.Diagnose(data)
}

func toCBOR(v ipld.Value) (any, error) {
	switch x := v.(type) {
	case nil, ipld.Null:
		return nil, nil
	case ipld.Bool:
		return bool(x), nil
	case ipld.Integer:
		if n, ok := x.Uint64(); ok {
			return n, nil
		}
		if n, ok := x.Int64(); ok {
			return n, nil
		}
		return x.BigInt(), nil
	case ipld.Float:
		return float64(x), nil
	case ipld.String:
		return string(x), nil
	case ipld.Bytes:
		if x == nil {
			return []byte{}, nil
		}
		return []byte(x), nil
	case ipld.List:
		out := make([]any, 0, len(x))
		for _, e := range x {
			ce, err := toCBOR(e)
			if err != nil {
				return nil, err
			}
			out = append(out, ce)
		}
		return out, nil
	case *ipld.Map:
		out := make(map[string]any, x.Len())
		for _, e := range x.Entries() {
			ce, err := toCBOR(e.Value)
			if err != nil {
				return nil, err
			}
			out[e.Key] = ce
		}
		return out, nil
	case ipld.Link:
		if !x.Cid.Defined() {
			return nil, fmt.Errorf("dagcbor: cannot encode undefined link")
		}
		payload := cidutil.LinkBytes(x.Cid)
		if len(payload) < int(minorUint8) || len(payload) > math.MaxUint8 {
			return nil, fmt.Errorf("%w: %d bytes", ErrLinkLength, len(payload))
		}
		return gocbor.Tag{Number: uint64(tagCID), Content: payload}, nil
	default:
		return nil, fmt.Errorf("dagcbor: cannot encode %T", v)
	}
}
