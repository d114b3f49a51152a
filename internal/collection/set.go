package collection

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dgallion1/flatjson/internal/value"
)

// ErrNameCollision is returned when strict handling is requested and two
// different structural paths produced the same collection name.
var ErrNameCollision = errors.New("collection name collision")

// Collision records a second structural path mapping onto an existing name.
// The records of both paths end up in the same collection.
type Collision struct {
	Name   string `json:"name"`
	First  string `json:"first_path"`
	Second string `json:"second_path"`
}

func (c Collision) String() string {
	return fmt.Sprintf("%s: %s and %s", c.Name, c.First, c.Second)
}

// Set maps collection names to ordered record sequences. Names keep their
// insertion order.
type Set struct {
	names      []string
	records    map[string][]*value.Object
	paths      map[string]string
	collisions []Collision
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{
		records: make(map[string][]*value.Object),
		paths:   make(map[string]string),
	}
}

// Ensure creates the named collection if it does not exist yet.
func (s *Set) Ensure(name string) {
	if _, ok := s.records[name]; ok {
		return
	}
	s.names = append(s.names, name)
	s.records[name] = []*value.Object{}
}

// EnsurePath is Ensure plus collision tracking: path describes the structural
// position that produced name.
func (s *Set) EnsurePath(name, path string) {
	s.Ensure(name)
	first, ok := s.paths[name]
	if !ok {
		s.paths[name] = path
		return
	}
	if first == path {
		return
	}
	for _, c := range s.collisions {
		if c.Name == name && c.Second == path {
			return
		}
	}
	s.collisions = append(s.collisions, Collision{Name: name, First: first, Second: path})
}

// Append adds rec to the named collection, creating it if needed.
func (s *Set) Append(name string, rec *value.Object) {
	s.Ensure(name)
	s.records[name] = append(s.records[name], rec)
}

// Last returns the most recently appended record of the named collection.
func (s *Set) Last(name string) (*value.Object, bool) {
	recs := s.records[name]
	if len(recs) == 0 {
		return nil, false
	}
	return recs[len(recs)-1], true
}

// Records returns the records of the named collection.
func (s *Set) Records(name string) []*value.Object {
	return s.records[name]
}

// Replace swaps the records of an existing collection.
func (s *Set) Replace(name string, recs []*value.Object) {
	if _, ok := s.records[name]; !ok {
		s.names = append(s.names, name)
	}
	s.records[name] = recs
}

// Delete removes the named collection.
func (s *Set) Delete(name string) {
	if _, ok := s.records[name]; !ok {
		return
	}
	delete(s.records, name)
	delete(s.paths, name)
	s.names = slices.DeleteFunc(s.names, func(n string) bool { return n == name })
}

// Has reports whether the named collection exists.
func (s *Set) Has(name string) bool {
	_, ok := s.records[name]
	return ok
}

// Names returns the collection names in insertion order.
func (s *Set) Names() []string {
	return slices.Clone(s.names)
}

// Len returns the number of collections.
func (s *Set) Len() int {
	return len(s.names)
}

// RecordCount returns the total number of records across all collections.
func (s *Set) RecordCount() int {
	n := 0
	for _, recs := range s.records {
		n += len(recs)
	}
	return n
}

// Collisions returns the name collisions seen while the set was built.
func (s *Set) Collisions() []Collision {
	return slices.Clone(s.collisions)
}

// CheckCollisions returns ErrNameCollision describing every collision, or nil.
func (s *Set) CheckCollisions() error {
	if len(s.collisions) == 0 {
		return nil
	}
	parts := make([]string, len(s.collisions))
	for i, c := range s.collisions {
		parts[i] = c.String()
	}
	return fmt.Errorf("%w: %s", ErrNameCollision, strings.Join(parts, "; "))
}

// Clone returns a deep copy of the set.
func (s *Set) Clone() *Set {
	c := NewSet()
	for _, name := range s.names {
		recs := make([]*value.Object, len(s.records[name]))
		for i, r := range s.records[name] {
			recs[i] = r.Clone()
		}
		c.names = append(c.names, name)
		c.records[name] = recs
	}
	for k, v := range s.paths {
		c.paths[k] = v
	}
	c.collisions = slices.Clone(s.collisions)
	return c
}

// Sorted returns a copy whose names are in lexical order.
func (s *Set) Sorted() *Set {
	c := s.Clone()
	slices.Sort(c.names)
	return c
}
