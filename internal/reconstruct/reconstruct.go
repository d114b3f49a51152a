// Package reconstruct rebuilds a nested document from flattened collections,
// using nothing but the collection names to recover the tree.
package reconstruct

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dgallion1/flatjson/internal/collection"
	"github.com/dgallion1/flatjson/internal/value"
)

var (
	// ErrEmptySet is returned when there is nothing to reconstruct.
	ErrEmptySet = errors.New("no collections to reconstruct")
	// ErrUnresolvedParent is returned when no ancestor of a collection name
	// is present in the remaining set.
	ErrUnresolvedParent = errors.New("no parent collection")
	// ErrEmptyParent is returned when a child must attach to the last record
	// of a parent collection that has none.
	ErrEmptyParent = errors.New("parent collection has no records")
)

type options struct {
	log *slog.Logger
}

// Option configures Reconstruct.
type Option func(*options)

// WithLogger logs every merge step at debug level.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// Reconstruct merges the collections of set into a single document, deepest
// collection first. The input set is not modified.
//
// Children attach to their parent either as a whole sequence on the parent's
// last record (parent has fewer records than the child) or one-to-one by
// position. The choice is made on record counts alone, so sibling collections
// whose lengths happen to match can be attached to the wrong parent record.
func Reconstruct(set *collection.Set, opts ...Option) (*value.Object, error) {
	o := options{log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}
	if set.Len() == 0 {
		return nil, ErrEmptySet
	}

	work := set.Clone()
	for work.Len() > 1 {
		child := Deepest(work.Names())
		childRecs := work.Records(child)
		attr := AttributeName(child, len(childRecs))

		parent, err := ResolveParent(child, work)
		if err != nil {
			return nil, fmt.Errorf("reconstruct: %w", err)
		}
		parentRecs := work.Records(parent)

		for _, rec := range childRecs {
			rec.Delete(collection.IDField)
			rec.Delete(collection.IndexField)
		}

		if len(parentRecs) < len(childRecs) {
			if len(parentRecs) == 0 {
				return nil, fmt.Errorf("reconstruct %q: %w: %q", child, ErrEmptyParent, parent)
			}
			seq := value.NewArray()
			for _, rec := range childRecs {
				seq.Append(rec)
			}
			parentRecs[len(parentRecs)-1].Set(attr, seq)
			o.log.Debug("attached sequence", "child", child, "parent", parent, "attribute", attr, "records", len(childRecs))
		} else {
			for i, rec := range childRecs {
				parentRecs[i].Set(attr, rec)
			}
			o.log.Debug("merged positionally", "child", child, "parent", parent, "attribute", attr, "records", len(childRecs))
		}
		work.Delete(child)
	}

	// The root collection is never a child, so its position markers are
	// dropped here. Its id fields are kept: at this level they are the
	// document's own data.
	root := work.Names()[0]
	seq := value.NewArray()
	for _, rec := range work.Records(root) {
		rec.Delete(collection.IndexField)
		seq.Append(rec)
	}
	doc := value.NewObject()
	doc.Set(collection.Plural(root), seq)
	return doc, nil
}
