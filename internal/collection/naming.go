// Package collection holds the flattened representation of a document: named
// collections of one-level records, and the naming scheme that encodes each
// collection's position in the original tree.
package collection

import "strings"

const (
	// Separator joins ancestor keys into a collection name.
	Separator = "_"

	// IDField carries the nearest ancestor's id onto descendant records.
	IDField = "id"
	// IndexField carries a record's position within a multi-element array.
	IndexField = "__index"

	// FallbackName names the collection used when the root is not an object.
	FallbackName = "output"
)

// Join appends key to prefix. An empty prefix yields key unchanged.
func Join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + Separator + key
}

// Singular strips one trailing "s". A key that is only "s" is kept.
func Singular(key string) string {
	s := strings.TrimSuffix(key, "s")
	if s == "" {
		return key
	}
	return s
}

// Plural appends "s".
func Plural(name string) string {
	return name + "s"
}

// Segments splits a name on the separator.
func Segments(name string) []string {
	return strings.Split(name, Separator)
}

// Depth is the number of separator-delimited segments in name.
func Depth(name string) int {
	return strings.Count(name, Separator) + 1
}

// LastSegment returns the final segment of name.
func LastSegment(name string) string {
	if i := strings.LastIndex(name, Separator); i >= 0 {
		return name[i+len(Separator):]
	}
	return name
}

// TrimLast removes the final segment of name. A single-segment name yields "".
func TrimLast(name string) string {
	if i := strings.LastIndex(name, Separator); i >= 0 {
		return name[:i]
	}
	return ""
}

// IsLinkageField reports whether field is one of the synthetic linkage fields.
func IsLinkageField(field string) bool {
	return field == IDField || field == IndexField
}
