package reconstruct

import (
	"fmt"

	"github.com/dgallion1/flatjson/internal/collection"
)

// Deepest returns the name with the most segments. Ties go to the name that
// comes first in names.
func Deepest(names []string) string {
	best, bestDepth := "", 0
	for _, name := range names {
		if d := collection.Depth(name); d > bestDepth {
			best, bestDepth = name, d
		}
	}
	return best
}

// AttributeName is the key a child collection is attached under: its last
// segment, pluralised when the collection holds more than one record.
func AttributeName(name string, records int) string {
	attr := collection.LastSegment(name)
	if records > 1 {
		attr = collection.Plural(attr)
	}
	return attr
}

// ResolveParent strips trailing segments from name until the remainder names
// a collection present in set. It gives up after the last segment.
func ResolveParent(name string, set *collection.Set) (string, error) {
	candidate := name
	for range collection.Depth(name) {
		candidate = collection.TrimLast(candidate)
		if candidate == "" {
			break
		}
		if set.Has(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w for %q", ErrUnresolvedParent, name)
}
