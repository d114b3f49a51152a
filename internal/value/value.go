// Package value is the structured-value model shared by the flatten and
// reconstruct pipelines: an ordered JSON-like tree with exactly three cases.
package value

import (
	"encoding/json"
	"iter"
)

// Value is one of *Object, *Array or Scalar. The interface is sealed; use
// Match to consume it.
type Value interface {
	isValue()
}

// Match dispatches v to the callback for its case. All three callbacks are
// required, so every consumer handles every case.
func Match(v Value, onObject func(*Object), onArray func(*Array), onScalar func(Scalar)) {
	switch t := v.(type) {
	case *Object:
		onObject(t)
	case *Array:
		onArray(t)
	case Scalar:
		onScalar(t)
	case nil:
		onScalar(Null())
	default:
		panic("value: unknown case")
	}
}

// Object is an insertion-ordered mapping of string keys to values.
type Object struct {
	keys  []string
	index map[string]int
	vals  []Value
}

func (*Object) isValue() {}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{index: make(map[string]int)}
}

// Set stores v under key. Replacing an existing key keeps its position.
func (o *Object) Set(key string, v Value) {
	if i, ok := o.index[key]; ok {
		o.vals[i] = v
		return
	}
	o.index[key] = len(o.keys)
	o.keys = append(o.keys, key)
	o.vals = append(o.vals, v)
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	i, ok := o.index[key]
	if !ok {
		return nil, false
	}
	return o.vals[i], true
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.index[key]
	return ok
}

// Delete removes key, preserving the order of the remaining keys.
func (o *Object) Delete(key string) {
	i, ok := o.index[key]
	if !ok {
		return
	}
	o.keys = append(o.keys[:i], o.keys[i+1:]...)
	o.vals = append(o.vals[:i], o.vals[i+1:]...)
	delete(o.index, key)
	for j := i; j < len(o.keys); j++ {
		o.index[o.keys[j]] = j
	}
}

// Keys returns a copy of the keys in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of fields.
func (o *Object) Len() int {
	return len(o.keys)
}

// All iterates over the fields in insertion order.
func (o *Object) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for i, k := range o.keys {
			if !yield(k, o.vals[i]) {
				return
			}
		}
	}
}

// Clone returns a deep copy.
func (o *Object) Clone() *Object {
	c := NewObject()
	for k, v := range o.All() {
		c.Set(k, Clone(v))
	}
	return c
}

// Array is an ordered sequence of values.
type Array struct {
	items []Value
}

func (*Array) isValue() {}

// NewArray returns an array holding items.
func NewArray(items ...Value) *Array {
	return &Array{items: items}
}

// Append adds v to the end of the array.
func (a *Array) Append(v Value) {
	a.items = append(a.items, v)
}

// Len returns the number of elements.
func (a *Array) Len() int {
	return len(a.items)
}

// At returns the element at position i.
func (a *Array) At(i int) Value {
	return a.items[i]
}

// Items returns the elements. The slice is shared with the array.
func (a *Array) Items() []Value {
	return a.items
}

// Scalar is a string, json.Number, bool or null.
type Scalar struct {
	v any
}

func (Scalar) isValue() {}

func String(s string) Scalar      { return Scalar{v: s} }
func Number(n json.Number) Scalar { return Scalar{v: n} }
func Bool(b bool) Scalar          { return Scalar{v: b} }
func Null() Scalar                { return Scalar{} }

// Interface returns the underlying Go value: string, json.Number, bool or nil.
func (s Scalar) Interface() any {
	return s.v
}

// IsNull reports whether s is the JSON null.
func (s Scalar) IsNull() bool {
	return s.v == nil
}

// Clone returns a deep copy of v.
func Clone(v Value) Value {
	var out Value
	Match(v,
		func(o *Object) { out = o.Clone() },
		func(a *Array) {
			c := &Array{items: make([]Value, 0, a.Len())}
			for _, item := range a.items {
				c.items = append(c.items, Clone(item))
			}
			out = c
		},
		func(s Scalar) { out = s },
	)
	return out
}

// Equal reports whether a and b hold the same tree. Object key order is
// ignored; array order is not. Numbers compare by their literal text.
func Equal(a, b Value) bool {
	eq := false
	Match(a,
		func(x *Object) {
			y, ok := b.(*Object)
			if !ok || x.Len() != y.Len() {
				return
			}
			for k, xv := range x.All() {
				yv, ok := y.Get(k)
				if !ok || !Equal(xv, yv) {
					return
				}
			}
			eq = true
		},
		func(x *Array) {
			y, ok := b.(*Array)
			if !ok || x.Len() != y.Len() {
				return
			}
			for i := range x.items {
				if !Equal(x.items[i], y.items[i]) {
					return
				}
			}
			eq = true
		},
		func(x Scalar) {
			y, ok := b.(Scalar)
			eq = ok && x.v == y.v
		},
	)
	return eq
}
