package machine

import (
	"fmt"

	"github.com/mna/swiss"
)

// Map is the language's hash map type: value-keyed (only Hashable values may
// be keys), iterating in insertion order. swiss.Map gives no iteration-order
// guarantee of its own, so Map layers an ordered key slice on top of it, per
// SPEC_FULL.md's note on adapting the map for insertion-order iteration.
type Map struct {
	m    *swiss.Map[Value, Value]
	keys []Value // insertion order, including keys later overwritten in place
}

// NewMap returns a map with initial capacity for at least size items.
func NewMap(size int) *Map {
	if size < 0 {
		size = 0
	}
	return &Map{m: swiss.NewMap[Value, Value](uint32(size))}
}

func (m *Map) String() string { return fmt.Sprintf("map(%p)", m) }
func (Map) Type() string      { return "map" }
func (m *Map) Len() int       { return m.m.Count() }

// Get returns the value for k, or (Null, false) if absent.
func (m *Map) Get(k Value) (Value, bool) {
	v, ok := m.m.Get(k)
	if !ok {
		return Null, false
	}
	return v, true
}

// Set assigns v to k, recording k's insertion position the first time it is
// seen.
func (m *Map) Set(k, v Value) {
	if _, existed := m.m.Get(k); !existed {
		m.keys = append(m.keys, k)
	}
	m.m.Put(k, v)
}

// KeyAt and ValueAt return the key/value pair at ordinal position i in
// insertion order, for GET_VALUE_AT's for-in desugaring over maps.
func (m *Map) KeyAt(i int) (Value, bool) {
	if i < 0 || i >= len(m.keys) {
		return Null, false
	}
	return m.keys[i], true
}

func (m *Map) ValueAt(i int) (Value, bool) {
	k, ok := m.KeyAt(i)
	if !ok {
		return Null, false
	}
	return m.Get(k)
}

// Pairs invokes fn for every key/value pair in insertion order, for GC
// marking and diagnostic rendering.
func (m *Map) Pairs(fn func(k, v Value)) {
	for _, k := range m.keys {
		if v, ok := m.m.Get(k); ok {
			fn(k, v)
		}
	}
}
