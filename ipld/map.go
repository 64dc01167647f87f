package ipld

import (
	"sort"
	"strings"
)

// Entry is one key/value pair of a SortedMap.
type Entry[V any] struct {
	Key   string
	Value V
}

// SortedMap is a string-keyed map whose iteration order is always ascending
// byte-wise key order. Keys are unique: Set replaces an existing entry.
//
// The zero value is an empty map ready to use.
type SortedMap[V any] struct {
	entries []Entry[V]
}

// NewSortedMap returns an empty map with room for n entries.
func NewSortedMap[V any](n int) *SortedMap[V] {
	return &SortedMap[V]{entries: make([]Entry[V], 0, n)}
}

func (m *SortedMap[V]) search(key string) (int, bool) {
	i := sort.Search(len(m.entries), func(i int) bool { return m.entries[i].Key >= key })
	return i, i < len(m.entries) && m.entries[i].Key == key
}

// Set stores value under key, replacing any previous entry.
// It reports whether an entry was replaced.
func (m *SortedMap[V]) Set(key string, value V) (replaced bool) {
	i, found := m.search(key)
	if found {
		m.entries[i].Value = value
		return true
	}
	// Appending in order is the common case for canonical input.
	if i == len(m.entries) {
		m.entries = append(m.entries, Entry[V]{Key: key, Value: value})
		return false
	}
	m.entries = append(m.entries, Entry[V]{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = Entry[V]{Key: key, Value: value}
	return false
}

// SortedMapFromEntries builds a map from entries in any order. When a key
// repeats, the last entry wins. The entries slice is reordered and reused.
func SortedMapFromEntries[V any](entries []Entry[V]) *SortedMap[V] {
	return &SortedMap[V]{entries: sortEntries(entries)}
}

// sortEntries sorts es by key in O(n log n) and drops all but the last entry
// for each repeated key.
func sortEntries[V any](es []Entry[V]) []Entry[V] {
	if sort.SliceIsSorted(es, func(i, j int) bool { return es[i].Key < es[j].Key }) && !hasAdjacentDup(es) {
		return es
	}
	sort.SliceStable(es, func(i, j int) bool { return es[i].Key < es[j].Key })
	out := es[:0]
	for i, e := range es {
		if i+1 < len(es) && es[i+1].Key == e.Key {
			continue
		}
		out = append(out, e)
	}
	return out
}

func hasAdjacentDup[V any](es []Entry[V]) bool {
	for i := 1; i < len(es); i++ {
		if es[i-1].Key == es[i].Key {
			return true
		}
	}
	return false
}

// Get returns the value stored under key.
func (m *SortedMap[V]) Get(key string) (V, bool) {
	if m == nil {
		var zero V
		return zero, false
	}
	i, found := m.search(key)
	if !found {
		var zero V
		return zero, false
	}
	return m.entries[i].Value, true
}

// Delete removes key. It reports whether the key was present.
func (m *SortedMap[V]) Delete(key string) bool {
	i, found := m.search(key)
	if !found {
		return false
	}
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
	return true
}

// Len returns the number of entries.
func (m *SortedMap[V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Keys returns the keys in sorted order.
func (m *SortedMap[V]) Keys() []string {
	out := make([]string, 0, m.Len())
	for _, e := range m.Entries() {
		out = append(out, e.Key)
	}
	return out
}

// Entries returns the entries in key order. The slice must not be modified.
func (m *SortedMap[V]) Entries() []Entry[V] {
	if m == nil {
		return nil
	}
	return m.entries
}

// Range calls fn for each entry in key order until fn returns false.
func (m *SortedMap[V]) Range(fn func(key string, value V) bool) {
	for _, e := range m.Entries() {
		if !fn(e.Key, e.Value) {
			return
		}
	}
}

// Map is the data model map variant.
type Map struct {
	SortedMap[Value]
}

// NewMap returns an empty Map with room for n entries.
func NewMap(n int) *Map {
	return &Map{SortedMap: SortedMap[Value]{entries: make([]Entry[Value], 0, n)}}
}

// MapFromEntries is SortedMapFromEntries for data model maps.
func MapFromEntries(entries []Entry[Value]) *Map {
	return &Map{SortedMap: SortedMap[Value]{entries: sortEntries(entries)}}
}

// MapOf builds a Map from alternating key, value arguments.
// It panics on an odd argument count; it is meant for literals in code and tests.
func MapOf(kv ...any) *Map {
	if len(kv)%2 != 0 {
		panic("ipld: MapOf requires key/value pairs")
	}
	m := NewMap(len(kv) / 2)
	for i := 0; i < len(kv); i += 2 {
		m.Set(kv[i].(string), kv[i+1].(Value))
	}
	return m
}

func (m *Map) String() string {
	if m == nil {
		return "{}"
	}
	var sb strings.Builder
	sb.WriteByte('{')
	for i, e := range m.entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(String(e.Key).String())
		sb.WriteString(": ")
		sb.WriteString(valueString(e.Value))
	}
	sb.WriteByte('}')
	return sb.String()
}
