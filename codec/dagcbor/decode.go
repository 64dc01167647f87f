package dagcbor

import (
	"fmt"
	"math"

	"github.com/ipfs/go-cid"

	"xdao.co/ipld/cidutil"
	"xdao.co/ipld/ipld"
)

// Decoder decodes one item of type T from r, consuming exactly its bytes.
//
// Each target has its own acceptance rule over the header byte: a target
// only accepts the ladder tiers its range can hold, so the same bytes may
// decode into a wide type and be rejected by a narrow one.
type Decoder[T any] func(r *Reader) (T, error)

// ReadBool accepts 0xf4 and 0xf5.
func ReadBool(r *Reader) (bool, error) {
	code, err := r.readByte()
	if err != nil {
		return false, err
	}
	switch code {
	case codeFalse:
		return false, nil
	case codeTrue:
		return true, nil
	default:
		return false, r.unexpected(code, "bool")
	}
}

func readUnsigned(r *Reader, maxMinor byte, target string) (uint64, error) {
	code, err := r.readByte()
	if err != nil {
		return 0, err
	}
	if code>>5 != majorUnsigned {
		return 0, r.unexpected(code, target)
	}
	return r.readArg(code, maxMinor, target)
}

// ReadUint8 accepts 0x00-0x17 and 0x18.
func ReadUint8(r *Reader) (uint8, error) {
	v, err := readUnsigned(r, minorUint8, "uint8")
	return uint8(v), err
}

// ReadUint16 accepts 0x00-0x19.
func ReadUint16(r *Reader) (uint16, error) {
	v, err := readUnsigned(r, minorUint16, "uint16")
	return uint16(v), err
}

// ReadUint32 accepts 0x00-0x1a.
func ReadUint32(r *Reader) (uint32, error) {
	v, err := readUnsigned(r, minorUint32, "uint32")
	return uint32(v), err
}

// ReadUint64 accepts 0x00-0x1b.
func ReadUint64(r *Reader) (uint64, error) {
	return readUnsigned(r, minorUint64, "uint64")
}

// readSigned accepts major types 0 and 1 up to tier maxMinor and checks the
// result against [min, max].
func readSigned(r *Reader, maxMinor byte, min, max int64, target string) (int64, error) {
	code, err := r.readByte()
	if err != nil {
		return 0, err
	}
	start := r.offset - 1
	major := code >> 5
	if major != majorUnsigned && major != majorNegative {
		return 0, r.unexpected(code, target)
	}
	m, err := r.readArg(code, maxMinor, target)
	if err != nil {
		return 0, err
	}
	if major == majorUnsigned {
		if m > uint64(max) {
			return 0, malformed(start, ErrLengthOutOfRange, fmt.Sprintf("%d overflows %s", m, target))
		}
		return int64(m), nil
	}
	// -1-m >= min  <=>  m <= -1-min
	if m > uint64(-1-min) {
		return 0, malformed(start, ErrLengthOutOfRange, fmt.Sprintf("-1-%d overflows %s", m, target))
	}
	return -1 - int64(m), nil
}

// ReadInt8 accepts 0x00-0x18 and 0x20-0x38 within the int8 range.
func ReadInt8(r *Reader) (int8, error) {
	v, err := readSigned(r, minorUint8, math.MinInt8, math.MaxInt8, "int8")
	return int8(v), err
}

// ReadInt16 accepts 0x00-0x19 and 0x20-0x39 within the int16 range.
func ReadInt16(r *Reader) (int16, error) {
	v, err := readSigned(r, minorUint16, math.MinInt16, math.MaxInt16, "int16")
	return int16(v), err
}

// ReadInt32 accepts 0x00-0x1a and 0x20-0x3a within the int32 range.
func ReadInt32(r *Reader) (int32, error) {
	v, err := readSigned(r, minorUint32, math.MinInt32, math.MaxInt32, "int32")
	return int32(v), err
}

// ReadInt64 accepts 0x00-0x1b and 0x20-0x3b within the int64 range.
func ReadInt64(r *Reader) (int64, error) {
	return readSigned(r, minorUint64, math.MinInt64, math.MaxInt64, "int64")
}

// ReadFloat32 accepts 0xfa only.
func ReadFloat32(r *Reader) (float32, error) {
	code, err := r.readByte()
	if err != nil {
		return 0, err
	}
	if code != codeFloat32 {
		return 0, r.unexpected(code, "float32")
	}
	return r.readFloat32()
}

// ReadFloat64 accepts 0xfa, widened, and 0xfb.
func ReadFloat64(r *Reader) (float64, error) {
	code, err := r.readByte()
	if err != nil {
		return 0, err
	}
	switch code {
	case codeFloat32:
		f, err := r.readFloat32()
		return float64(f), err
	case codeFloat64:
		return r.readFloat64()
	default:
		return 0, r.unexpected(code, "float64")
	}
}

// ReadString accepts major type 3 with any length tier.
func ReadString(r *Reader) (string, error) {
	code, err := r.readByte()
	if err != nil {
		return "", err
	}
	if code>>5 != majorText {
		return "", r.unexpected(code, "string")
	}
	n, err := r.readLen(code, "string", 1)
	if err != nil {
		return "", err
	}
	return r.readText(n)
}

// ReadBytes accepts major type 2 with any length tier.
func ReadBytes(r *Reader) ([]byte, error) {
	code, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if code>>5 != majorBytes {
		return nil, r.unexpected(code, "bytes")
	}
	n, err := r.readLen(code, "bytes", 1)
	if err != nil {
		return nil, err
	}
	return r.readN(n)
}

// ReadCid accepts a link: 0xd8 0x2a followed by a one-byte-length byte string.
func ReadCid(r *Reader) (cid.Cid, error) {
	code, err := r.readByte()
	if err != nil {
		return cid.Undef, err
	}
	if code != codeTag1 {
		return cid.Undef, r.unexpected(code, "cid")
	}
	return readLink(r)
}

// readLink reads the remainder of a link after its 0xd8 header byte.
func readLink(r *Reader) (cid.Cid, error) {
	tag, err := r.readByte()
	if err != nil {
		return cid.Undef, err
	}
	if tag != tagCID {
		return cid.Undef, malformed(r.offset-1, ErrUnknownTag, fmt.Sprintf("tag %d", tag))
	}
	header, err := r.readByte()
	if err != nil {
		return cid.Undef, err
	}
	if header != codeBytes1 {
		return cid.Undef, malformed(r.offset-1, ErrUnknownTag, fmt.Sprintf("link payload header 0x%02x", header))
	}
	n, err := r.readByte()
	if err != nil {
		return cid.Undef, err
	}
	start := r.offset
	payload, err := r.readN(int(n))
	if err != nil {
		return cid.Undef, err
	}
	id, err := cidutil.ParseLink(payload)
	if err != nil {
		return cid.Undef, malformed(start, fmt.Errorf("%w: %w", ErrInvalidCID, err), "")
	}
	return id, nil
}

// ReadOptional decodes null or undefined as nil and anything else with elem.
func ReadOptional[T any](r *Reader, elem Decoder[T]) (*T, error) {
	code, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if code == codeNull || code == codeUndefined {
		return nil, nil
	}
	r.unread(code)
	v, err := elem(r)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Optional adapts elem into a Decoder for an optional value.
func Optional[T any](elem Decoder[T]) Decoder[*T] {
	return func(r *Reader) (*T, error) { return ReadOptional(r, elem) }
}

func readListHeader(r *Reader) (int, error) {
	code, err := r.readByte()
	if err != nil {
		return 0, err
	}
	if code>>5 != majorArray {
		return 0, r.unexpected(code, "list")
	}
	return r.readLen(code, "list", 1)
}

func readMapHeader(r *Reader) (int, error) {
	code, err := r.readByte()
	if err != nil {
		return 0, err
	}
	if code>>5 != majorMap {
		return 0, r.unexpected(code, "map")
	}
	return r.readLen(code, "map", 2)
}

// ReadList decodes an array whose elements all decode with elem.
func ReadList[T any](r *Reader, elem Decoder[T]) ([]T, error) {
	n, err := readListHeader(r)
	if err != nil {
		return nil, err
	}
	return readElems(r, n, elem)
}

func readElems[T any](r *Reader, n int, elem Decoder[T]) ([]T, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.leave()
	out := make([]T, 0, prealloc(n))
	for i := 0; i < n; i++ {
		v, err := elem(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ListOf adapts elem into a Decoder for a list.
func ListOf[T any](elem Decoder[T]) Decoder[[]T] {
	return func(r *Reader) ([]T, error) { return ReadList(r, elem) }
}

// ReadMap decodes a map with text keys whose values all decode with elem.
// When a key repeats, the last entry wins.
func ReadMap[T any](r *Reader, elem Decoder[T]) (*ipld.SortedMap[T], error) {
	n, err := readMapHeader(r)
	if err != nil {
		return nil, err
	}
	entries, err := readPairs(r, n, elem)
	if err != nil {
		return nil, err
	}
	return ipld.SortedMapFromEntries(entries), nil
}

// readPairs returns entries in wire order; callers sort them once.
func readPairs[T any](r *Reader, n int, elem Decoder[T]) ([]ipld.Entry[T], error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.leave()
	out := make([]ipld.Entry[T], 0, prealloc(n))
	for i := 0; i < n; i++ {
		key, err := ReadString(r)
		if err != nil {
			return nil, err
		}
		v, err := elem(r)
		if err != nil {
			return nil, err
		}
		out = append(out, ipld.Entry[T]{Key: key, Value: v})
	}
	return out, nil
}

// MapOf adapts elem into a Decoder for a sorted map.
func MapOf[T any](elem Decoder[T]) Decoder[*ipld.SortedMap[T]] {
	return func(r *Reader) (*ipld.SortedMap[T], error) { return ReadMap(r, elem) }
}
