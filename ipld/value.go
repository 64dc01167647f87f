// Package ipld defines the generic, self-describing value model shared by
// the codec and the DAG walker.
//
// A Value is exactly one of Null, Bool, Integer, Float, String, Bytes, List,
// *Map or Link. Maps always iterate in key order so that re-encoding a
// decoded value is deterministic.
package ipld

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/ipfs/go-cid"
)

// Kind names the active variant of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInteger
	KindFloat
	KindString
	KindBytes
	KindList
	KindMap
	KindLink
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindLink:
		return "link"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is the closed union of data model variants.
//
// The unexported method keeps the set closed to this package.
type Value interface {
	Kind() Kind
	fmt.Stringer
	value()
}

type (
	// Null is the absent value. Both CBOR null and undefined decode to it.
	Null struct{}
	// Bool is a boolean.
	Bool bool
	// Float is an IEEE-754 double.
	Float float64
	// String is UTF-8 text.
	String string
	// Bytes is a raw byte string.
	Bytes []byte
	// List is an ordered sequence of values.
	List []Value
	// Link references another block by CID.
	Link struct{ Cid cid.Cid }
)

func (Null) Kind() Kind    { return KindNull }
func (Bool) Kind() Kind    { return KindBool }
func (Integer) Kind() Kind { return KindInteger }
func (Float) Kind() Kind   { return KindFloat }
func (String) Kind() Kind  { return KindString }
func (Bytes) Kind() Kind   { return KindBytes }
func (List) Kind() Kind    { return KindList }
func (*Map) Kind() Kind    { return KindMap }
func (Link) Kind() Kind    { return KindLink }

func (Null) value()    {}
func (Bool) value()    {}
func (Integer) value() {}
func (Float) value()   {}
func (String) value()  {}
func (Bytes) value()   {}
func (List) value()    {}
func (*Map) value()    {}
func (Link) value()    {}

// NewLink wraps id as a Link value.
func NewLink(id cid.Cid) Link { return Link{Cid: id} }

func (Null) String() string { return "null" }

func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

func (f Float) String() string { return strconv.FormatFloat(float64(f), 'g', -1, 64) }

func (s String) String() string { return strconv.Quote(string(s)) }

func (b Bytes) String() string { return "h'" + hex.EncodeToString(b) + "'" }

func (l List) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range l {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(valueString(v))
	}
	sb.WriteByte(']')
	return sb.String()
}

func (l Link) String() string {
	if !l.Cid.Defined() {
		return "link(undef)"
	}
	return "link(" + l.Cid.String() + ")"
}

func valueString(v Value) string {
	if v == nil {
		return "<nil>"
	}
	return v.String()
}

// Index returns element i of a List. ok is false when v is not a list or i
// is out of range.
func Index(v Value, i int) (Value, bool) {
	l, isList := v.(List)
	if !isList || i < 0 || i >= len(l) {
		return nil, false
	}
	return l[i], true
}

// Lookup returns the entry for key in a Map. ok is false when v is not a map
// or the key is absent.
func Lookup(v Value, key string) (Value, bool) {
	m, isMap := v.(*Map)
	if !isMap || m == nil {
		return nil, false
	}
	return m.Get(key)
}
