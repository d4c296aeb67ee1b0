package value

import "sort"

// Object is an ordered mapping from string keys to values. Insertion
// order is preserved and observable through iteration and serialization.
type Object struct {
	keys    []string
	entries map[string]Value
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{entries: make(map[string]Value)}
}

// NewObjectCapacity returns an empty object sized for n entries.
func NewObjectCapacity(n int) *Object {
	return &Object{
		keys:    make([]string, 0, n),
		entries: make(map[string]Value, n),
	}
}

// Len returns the number of entries.
func (o *Object) Len() int {
	return len(o.keys)
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.entries[key]
	return v, ok
}

// Set stores a value under key. A new key is appended to the iteration
// order; an existing key keeps its position.
func (o *Object) Set(key string, v Value) {
	if _, ok := o.entries[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.entries[key] = v
}

// Delete removes a key, preserving the order of the remaining entries.
func (o *Object) Delete(key string) {
	if _, ok := o.entries[key]; !ok {
		return
	}
	delete(o.entries, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order. The slice is shared; callers
// must not mutate it.
func (o *Object) Keys() []string {
	return o.keys
}

// SortedKeys returns the keys in lexicographic order.
func (o *Object) SortedKeys() []string {
	ks := make([]string, len(o.keys))
	copy(ks, o.keys)
	sort.Strings(ks)
	return ks
}

// Values returns the values in insertion order.
func (o *Object) Values() []Value {
	vs := make([]Value, 0, len(o.keys))
	for _, k := range o.keys {
		vs = append(vs, o.entries[k])
	}
	return vs
}

// Clone returns a shallow copy. Values are shared; the engine treats
// them as immutable, so structural updates copy before mutating.
func (o *Object) Clone() *Object {
	c := NewObjectCapacity(len(o.keys))
	for _, k := range o.keys {
		c.Set(k, o.entries[k])
	}
	return c
}
