package ipld

import (
	"bytes"
	"math"

	"github.com/ipfs/go-cid"
)

// Equal reports whether a and b are the same value. Maps compare by their
// sorted entries, so insertion order never matters. NaN equals NaN.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Null:
		return true
	case Bool:
		return x == b.(Bool)
	case Integer:
		return x == b.(Integer)
	case Float:
		y := b.(Float)
		if math.IsNaN(float64(x)) && math.IsNaN(float64(y)) {
			return true
		}
		return x == y
	case String:
		return x == b.(String)
	case Bytes:
		return bytes.Equal(x, b.(Bytes))
	case List:
		y := b.(List)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case *Map:
		y := b.(*Map)
		if x.Len() != y.Len() {
			return false
		}
		ye := y.Entries()
		for i, e := range x.Entries() {
			if e.Key != ye[i].Key || !Equal(e.Value, ye[i].Value) {
				return false
			}
		}
		return true
	case Link:
		return x.Cid.Equals(b.(Link).Cid)
	default:
		return false
	}
}

// Clone returns a deep copy of v that shares no mutable state with it.
func Clone(v Value) Value {
	switch x := v.(type) {
	case Bytes:
		return Bytes(bytes.Clone(x))
	case List:
		out := make(List, len(x))
		for i := range x {
			out[i] = Clone(x[i])
		}
		return out
	case *Map:
		out := NewMap(x.Len())
		for _, e := range x.Entries() {
			out.entries = append(out.entries, Entry[Value]{Key: e.Key, Value: Clone(e.Value)})
		}
		return out
	default:
		return v
	}
}

// Links returns every CID linked from v, depth first in list and key order.
// Duplicates are kept.
func Links(v Value) []cid.Cid {
	var out []cid.Cid
	var visit func(Value)
	visit = func(v Value) {
		switch x := v.(type) {
		case Link:
			out = append(out, x.Cid)
		case List:
			for _, e := range x {
				visit(e)
			}
		case *Map:
			for _, e := range x.Entries() {
				visit(e.Value)
			}
		}
	}
	visit(v)
	return out
}
