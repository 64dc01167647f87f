package dagcbor

import (
	"bytes"
	"fmt"

	"xdao.co/ipld/ipld"
)

// ReadValue decodes one item of any accepted form into the generic value
// model, recursing into lists and maps. Every nested element is fully
// decoded; a failure anywhere fails the whole item.
func ReadValue(r *Reader) (ipld.Value, error) {
	code, err := r.readByte()
	if err != nil {
		return nil, err
	}
	switch code >> 5 {
	case majorUnsigned:
		n, err := r.readArg(code, minorUint64, "value")
		if err != nil {
			return nil, err
		}
		return ipld.NewUint(n), nil

	case majorNegative:
		m, err := r.readArg(code, minorUint64, "value")
		if err != nil {
			return nil, err
		}
		return ipld.NewNegative(m), nil

	case majorBytes:
		n, err := r.readLen(code, "value", 1)
		if err != nil {
			return nil, err
		}
		b, err := r.readN(n)
		if err != nil {
			return nil, err
		}
		return ipld.Bytes(b), nil

	case majorText:
		n, err := r.readLen(code, "value", 1)
		if err != nil {
			return nil, err
		}
		s, err := r.readText(n)
		if err != nil {
			return nil, err
		}
		return ipld.String(s), nil

	case majorArray:
		n, err := r.readLen(code, "value", 1)
		if err != nil {
			return nil, err
		}
		elems, err := readElems(r, n, ReadValue)
		if err != nil {
			return nil, err
		}
		return ipld.List(elems), nil

	case majorMap:
		n, err := r.readLen(code, "value", 2)
		if err != nil {
			return nil, err
		}
		entries, err := readPairs(r, n, ReadValue)
		if err != nil {
			return nil, err
		}
		return ipld.MapFromEntries(entries), nil

	case majorTag:
		if code != codeTag1 {
			return nil, r.unexpected(code, "value")
		}
		id, err := readLink(r)
		if err != nil {
			return nil, err
		}
		return ipld.NewLink(id), nil

	default:
		return readSimple(r, code)
	}
}

func readSimple(r *Reader, code byte) (ipld.Value, error) {
	switch code {
	case codeFalse:
		return ipld.Bool(false), nil
	case codeTrue:
		return ipld.Bool(true), nil
	case codeNull, codeUndefined:
		return ipld.Null{}, nil
	case codeFloat32:
		f, err := r.readFloat32()
		if err != nil {
			return nil, err
		}
		return ipld.Float(f), nil
	case codeFloat64:
		f, err := r.readFloat64()
		if err != nil {
			return nil, err
		}
		return ipld.Float(f), nil
	default:
		return nil, r.unexpected(code, "value")
	}
}

// Decode reads the next item from a stream of concatenated items. It
// returns io.EOF, unwrapped, when r is exhausted at an item boundary.
func Decode(r *Reader) (ipld.Value, error) {
	if _, err := r.peekByte(); err != nil {
		return nil, err
	}
	return ReadValue(r)
}

// Unmarshal decodes a block holding exactly one item.
func Unmarshal(data []byte) (ipld.Value, error) {
	return UnmarshalAs(data, ReadValue)
}

// UnmarshalAs decodes a block holding exactly one item of type T.
func UnmarshalAs[T any](data []byte, dec Decoder[T]) (T, error) {
	r := NewReader(bytes.NewReader(data))
	v, err := dec(r)
	if err != nil {
		var zero T
		return zero, err
	}
	if r.Offset() != int64(len(data)) {
		var zero T
		return zero, malformed(r.Offset(), ErrTrailingBytes, fmt.Sprintf("%d bytes left", int64(len(data))-r.Offset()))
	}
	return v, nil
}
