// Package flatten splits a nested document into one-level record collections
// and prunes the degenerate records that splitting leaves behind.
package flatten

import (
	"strconv"

	"github.com/dgallion1/flatjson/internal/collection"
	"github.com/dgallion1/flatjson/internal/value"
)

// rootPath is the structural path of the document root, used only for
// collision reports.
const rootPath = "$"

// state is the traversal context threaded through the recursion.
type state struct {
	prefix   string // name that nested collections are joined onto
	target   string // collection receiving scalars at this level
	path     string // structural path, for collision reports
	id       value.Scalar
	hasID    bool
	index    int
	setIndex bool
}

// flattener owns the accumulator for a single Flatten call.
type flattener struct {
	set *collection.Set
}

// Flatten converts v into a set of named collections. Nested objects with more
// than one field and array elements become records; scalars are written onto
// the most recent record of the collection they belong to. An object with a
// single field still extends the names of collections nested under it, but
// its scalars land on the enclosing record.
//
// Only one id level is tracked: once an ancestor's id is inherited, ids of
// deeper objects are copied as ordinary fields but do not replace it.
func Flatten(v value.Value) *collection.Set {
	f := &flattener{set: collection.NewSet()}
	f.walk(v, "", state{path: rootPath})
	return f.set
}

// Document runs the flatten pipeline: Flatten, the optional collision check,
// then Clean.
func Document(v value.Value, strict bool) (*collection.Set, error) {
	set := Flatten(v)
	if strict {
		if err := set.CheckCollisions(); err != nil {
			return nil, err
		}
	}
	return Clean(set), nil
}

func (f *flattener) walk(v value.Value, key string, st state) {
	value.Match(v,
		func(o *value.Object) { f.object(o, st) },
		func(a *value.Array) { f.array(a, st) },
		func(s value.Scalar) { f.scalar(key, s, st) },
	)
}

func (f *flattener) object(o *value.Object, st state) {
	if !st.hasID {
		if v, ok := o.Get(collection.IDField); ok {
			if s, isScalar := v.(value.Scalar); isScalar && !s.IsNull() {
				st.id, st.hasID = s, true
			}
		}
	}

	for key, child := range o.All() {
		childPath := st.path + "." + key
		value.Match(child,
			func(c *value.Object) {
				next := st
				next.path = childPath
				next.prefix = collection.Join(st.prefix, key)
				if c.Len() > 1 {
					next.target = next.prefix
					f.set.EnsurePath(next.target, childPath)
					f.set.Append(next.target, f.newRecord(st))
				}
				f.walk(c, key, next)
			},
			func(c *value.Array) {
				next := st
				next.path = childPath + "[]"
				next.prefix = collection.Join(st.prefix, collection.Singular(key))
				next.target = next.prefix
				f.set.EnsurePath(next.prefix, next.path)
				f.walk(c, key, next)
			},
			func(s value.Scalar) {
				f.scalar(key, s, st)
			},
		)
	}
}

func (f *flattener) array(a *value.Array, st state) {
	if st.prefix == "" {
		st.prefix = collection.FallbackName
		st.target = st.prefix
		f.set.EnsurePath(st.prefix, st.path)
	}
	for i, item := range a.Items() {
		rec := value.NewObject()
		if st.hasID {
			rec.Set(collection.IDField, st.id)
		}
		if a.Len() > 1 {
			st.setIndex = true
			rec.Set(collection.IndexField, value.String(strconv.Itoa(i)))
		}
		f.set.Append(st.target, rec)

		next := st
		next.index = i
		f.walk(item, "", next)
	}
}

func (f *flattener) scalar(key string, s value.Scalar, st state) {
	name := st.target
	if name == "" {
		name = collection.FallbackName
		f.set.EnsurePath(name, rootPath)
	}
	rec, ok := f.set.Last(name)
	if !ok {
		rec = value.NewObject()
		f.set.Append(name, rec)
	}
	rec.Set(key, s)
}

// newRecord starts a record for a nested object, carrying the linkage fields
// of the current traversal level.
func (f *flattener) newRecord(st state) *value.Object {
	rec := value.NewObject()
	if st.hasID {
		rec.Set(collection.IDField, st.id)
	}
	if st.setIndex {
		rec.Set(collection.IndexField, value.String(strconv.Itoa(st.index)))
	}
	return rec
}
