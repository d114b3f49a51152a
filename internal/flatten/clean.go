package flatten

import (
	"github.com/dgallion1/flatjson/internal/collection"
	"github.com/dgallion1/flatjson/internal/value"
)

// Clean removes records that carry no payload: fewer than two fields, or only
// the two linkage fields. A collection emptied by pruning is dropped; one that
// was empty to begin with is kept. Clean mutates set and returns it.
//
// Clean must run after Flatten has finished, since pruning shifts the record
// positions that __index and "last record" writes refer to.
func Clean(set *collection.Set) *collection.Set {
	for _, name := range set.Names() {
		recs := set.Records(name)
		kept := make([]*value.Object, 0, len(recs))
		for _, rec := range recs {
			if !degenerate(rec) {
				kept = append(kept, rec)
			}
		}
		if len(kept) == len(recs) {
			continue
		}
		if len(kept) == 0 {
			set.Delete(name)
			continue
		}
		set.Replace(name, kept)
	}
	return set
}

func degenerate(rec *value.Object) bool {
	if rec.Len() < 2 {
		return true
	}
	return rec.Len() == 2 && rec.Has(collection.IDField) && rec.Has(collection.IndexField)
}
