package model

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Set is an insertion-ordered set of strings.
type Set struct {
	items []string
	index map[string]struct{}
}

// NewSet returns a set holding values in first-seen order.
func NewSet(values ...string) *Set {
	s := &Set{index: make(map[string]struct{})}
	s.Add(values...)
	return s
}

// Add appends values not already present and reports whether anything was added.
func (s *Set) Add(values ...string) bool {
	added := false
	for _, v := range values {
		if _, ok := s.index[v]; ok {
			continue
		}
		s.index[v] = struct{}{}
		s.items = append(s.items, v)
		added = true
	}
	return added
}

// Has reports whether v is in the set.
func (s *Set) Has(v string) bool {
	_, ok := s.index[v]
	return ok
}

// Len returns the number of items.
func (s *Set) Len() int { return len(s.items) }

// Values returns a copy of the items in insertion order.
func (s *Set) Values() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// Unique removes duplicates from values, keeping the first occurrence.
func Unique(values []string) []string {
	return NewSet(values...).Values()
}

// MultiMap is an insertion-ordered map from a key to an ordered list of unique values.
// It backs alias tables (class -> alternate names) and resolve paths (prefix -> folders).
type MultiMap struct {
	keys   []string
	values map[string][]string
}

// NewMultiMap returns an empty map.
func NewMultiMap() *MultiMap {
	return &MultiMap{values: make(map[string][]string)}
}

// MultiMapOf builds a map from an unordered Go map. Keys are sorted so the result is deterministic.
func MultiMapOf(m map[string][]string) *MultiMap {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	mm := NewMultiMap()
	for _, k := range keys {
		mm.Add(k, m[k]...)
	}
	return mm
}

// Add appends values to key, skipping values already listed under it.
// A key with no values is still registered.
func (m *MultiMap) Add(key string, values ...string) {
	existing, ok := m.values[key]
	if !ok {
		m.keys = append(m.keys, key)
	}
	for _, v := range values {
		if contains(existing, v) {
			continue
		}
		existing = append(existing, v)
	}
	if existing == nil {
		existing = []string{}
	}
	m.values[key] = existing
}

// Merge adds every entry of other, preserving other's order.
func (m *MultiMap) Merge(other *MultiMap) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		m.Add(k, other.values[k]...)
	}
}

// Get returns the values under key.
func (m *MultiMap) Get(key string) ([]string, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *MultiMap) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys.
func (m *MultiMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Clone returns an independent copy.
func (m *MultiMap) Clone() *MultiMap {
	c := NewMultiMap()
	c.Merge(m)
	return c
}

// MarshalJSON writes the map as a JSON object with keys in insertion order.
func (m *MultiMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of string arrays, keeping the document's key order.
func (m *MultiMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = *NewMultiMap()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var values []string
		if err := dec.Decode(&values); err != nil {
			return err
		}
		m.Add(key, values...)
	}
	_, err := dec.Token()
	return err
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
