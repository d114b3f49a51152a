// Package artifact turns collection sets into named output files and back:
// one pretty-printed JSON array per collection, plus the zip bundle and the
// docx report that accompany them.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/flatjson/internal/collection"
	"github.com/dgallion1/flatjson/internal/value"
)

const (
	// Ext is the extension of a collection artifact.
	Ext = ".json"
	// ArchiveName is the zip bundle holding every collection artifact.
	ArchiveName = "flattened.zip"
	// ReportName is the docx rendering of the collections.
	ReportName = "flattened.docx"

	ContentTypeJSON = "application/json"
	ContentTypeZip  = "application/zip"
	ContentTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	indent = "    "
)

// ErrUnsafeName is returned for an artifact name that is not a single plain
// file name, such as one built from a document key containing a path.
var ErrUnsafeName = errors.New("unsafe artifact name")

// CheckName rejects names that would resolve outside the directory or archive
// they are written into.
func CheckName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || !filepath.IsLocal(name) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}
	return nil
}

// File is one named output.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// FileName returns the artifact name for a collection.
func FileName(collectionName string) string {
	return collectionName + Ext
}

// EncodeCollection renders records as a pretty-printed JSON array.
func EncodeCollection(records []*value.Object) ([]byte, error) {
	arr := value.NewArray()
	for _, rec := range records {
		arr.Append(rec)
	}
	return value.MarshalIndent(arr, "", indent)
}

// Encode renders every collection of set, in set order.
func Encode(set *collection.Set) ([]File, error) {
	files := make([]File, 0, set.Len())
	for _, name := range set.Names() {
		if err := CheckName(FileName(name)); err != nil {
			return nil, err
		}
		data, err := EncodeCollection(set.Records(name))
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		files = append(files, File{Name: FileName(name), ContentType: ContentTypeJSON, Data: data})
	}
	return files, nil
}

// EncodeDocument renders a reconstructed document.
func EncodeDocument(doc value.Value) ([]byte, error) {
	return value.MarshalIndent(doc, "", indent)
}

// ReconstructedName names the output of the reconstruct pipeline after the
// document's first top-level key.
func ReconstructedName(doc *value.Object) string {
	name := collection.FallbackName
	if keys := doc.Keys(); len(keys) > 0 {
		name = keys[0]
	}
	return name + "_reconstructed" + Ext
}

// WriteDir writes files into dir, creating it if needed.
func WriteDir(dir string, files []File) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for _, f := range files {
		if err := CheckName(f.Name); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, f.Name), f.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.Name, err)
		}
	}
	return nil
}
