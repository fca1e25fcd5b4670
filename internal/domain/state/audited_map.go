package state

import "sort"

// Values is the plain key-value form of the working state
type Values = map[string]any

// AuditedMap is a key-value container that records a full snapshot of
// itself before every mutation.
//
// Snapshots are taken before the write is applied: snapshots[i] is the
// content that existed immediately before mutation i+1. History appends the
// live content, so the timeline reads {initial, after 1, ..., current}.
type AuditedMap struct {
	values    Values
	snapshots []Values
}

// NewAuditedMap creates a map seeded with a shallow copy of initial.
// Seeding is not a mutation and records no snapshot.
func NewAuditedMap(initial Values) *AuditedMap {
	return &AuditedMap{values: copyValues(initial)}
}

// Get returns the value stored under key
func (m *AuditedMap) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present
func (m *AuditedMap) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Len returns the number of keys
func (m *AuditedMap) Len() int {
	return len(m.values)
}

// Keys returns the keys in sorted order
func (m *AuditedMap) Keys() []string {
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Range calls fn for every key in sorted order until fn returns false
func (m *AuditedMap) Range(fn func(key string, value any) bool) {
	for _, k := range m.Keys() {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// Set snapshots the current content and then writes value under key
func (m *AuditedMap) Set(key string, value any) {
	m.snapshots = append(m.snapshots, copyValues(m.values))
	m.values[key] = value
}

// Delete snapshots the current content and then removes key.
// Removing an absent key is not a mutation and returns false.
func (m *AuditedMap) Delete(key string) bool {
	if _, ok := m.values[key]; !ok {
		return false
	}
	m.snapshots = append(m.snapshots, copyValues(m.values))
	delete(m.values, key)
	return true
}

// Mutations returns the number of mutations applied since construction
func (m *AuditedMap) Mutations() int {
	return len(m.snapshots)
}

// Snapshot returns a shallow copy of the live content
func (m *AuditedMap) Snapshot() Values {
	return copyValues(m.values)
}

// History returns the pre-write snapshots followed by a copy of the live
// content. The result always has Mutations()+1 elements.
func (m *AuditedMap) History() []Values {
	out := make([]Values, 0, len(m.snapshots)+1)
	for _, s := range m.snapshots {
		out = append(out, copyValues(s))
	}
	return append(out, copyValues(m.values))
}

// GetString returns the string under key, or "" when absent or not a string
func (m *AuditedMap) GetString(key string) string {
	s, _ := m.values[key].(string)
	return s
}

// GetInt returns the int under key, or 0 when absent or not an int
func (m *AuditedMap) GetInt(key string) int {
	switch v := m.values[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

// GetFloat returns the float64 under key, or 0 when absent or not numeric
func (m *AuditedMap) GetFloat(key string) float64 {
	switch v := m.values[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

// GetBool returns the bool under key, or false when absent or not a bool
func (m *AuditedMap) GetBool(key string) bool {
	b, _ := m.values[key].(bool)
	return b
}

func copyValues(src Values) Values {
	dst := make(Values, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
