package artifact

import (
	"archive/zip"
	"bytes"
	"fmt"
	"time"
)

// Zip bundles files into a single archive. Entries are stored with a fixed
// timestamp so the same collections always produce the same bytes.
func Zip(files []File) (File, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		if err := CheckName(f.Name); err != nil {
			return File{}, err
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			return File{}, fmt.Errorf("zip %s: %w", f.Name, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			return File{}, fmt.Errorf("zip %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return File{}, fmt.Errorf("close zip: %w", err)
	}
	return File{Name: ArchiveName, ContentType: ContentTypeZip, Data: buf.Bytes()}, nil
}
