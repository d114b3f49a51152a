package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dgallion1/flatjson/internal/collection"
	"github.com/dgallion1/flatjson/internal/decode"
	"github.com/dgallion1/flatjson/internal/value"
)

const reconstructedSuffix = "_reconstructed" + Ext

// LoadDir reads every collection artifact in dir into a set. Names are added
// in lexical order, which fixes the tie-break order used by reconstruction.
// Subdirectories, non-JSON files and earlier reconstruction outputs are
// ignored.
func LoadDir(dir string) (*collection.Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(n), Ext) || strings.HasSuffix(n, reconstructedSuffix) {
			continue
		}
		names = append(names, n)
	}
	slices.Sort(names)

	set := collection.NewSet()
	for _, n := range names {
		data, err := os.ReadFile(filepath.Join(dir, n))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", n, err)
		}
		if err := AddCollection(set, strings.TrimSuffix(n, filepath.Ext(n)), data); err != nil {
			return nil, fmt.Errorf("load %s: %w", n, err)
		}
	}
	return set, nil
}

// AddCollection decodes one artifact (a JSON array of objects) into set.
func AddCollection(set *collection.Set, name string, data []byte) error {
	v, err := decode.JSON(data)
	if err != nil {
		return err
	}
	return addRecords(set, name, v)
}

// FromDocument builds a set from an object mapping collection names to
// record arrays, the in-memory equivalent of a directory of artifacts.
func FromDocument(v value.Value) (*collection.Set, error) {
	obj, ok := v.(*value.Object)
	if !ok {
		return nil, fmt.Errorf("collections must be a JSON object of name -> records")
	}
	set := collection.NewSet()
	for name, recs := range obj.All() {
		if err := addRecords(set, name, recs); err != nil {
			return nil, fmt.Errorf("collection %q: %w", name, err)
		}
	}
	return set, nil
}

func addRecords(set *collection.Set, name string, v value.Value) error {
	arr, ok := v.(*value.Array)
	if !ok {
		return fmt.Errorf("collection must be a JSON array")
	}
	set.Ensure(name)
	for i, item := range arr.Items() {
		rec, ok := item.(*value.Object)
		if !ok {
			return fmt.Errorf("record %d is not an object", i)
		}
		set.Append(name, rec)
	}
	return nil
}
