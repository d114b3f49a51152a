// Package decode turns raw document bytes into an ordered value.Value tree.
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/flatjson/internal/value"
)

// Decoder converts a raw document into a value tree.
type Decoder interface {
	Decode(r io.Reader) (value.Value, error)
}

// Error reports a document that could not be decoded.
type Error struct {
	Format string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Format, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsDecodeError reports whether err came from a malformed document.
func IsDecodeError(err error) bool {
	var de *Error
	return errors.As(err, &de)
}

// SupportedExtensions lists the document extensions that can be decoded.
var SupportedExtensions = map[string]bool{
	".json": true,
	".yaml": true,
	".yml":  true,
}

// ForFile returns the decoder for a filename.
func ForFile(filename string) (Decoder, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json":
		return &JSONDecoder{}, nil
	case ".yaml", ".yml":
		return &YAMLDecoder{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// JSON decodes a JSON document held in memory.
func JSON(data []byte) (value.Value, error) {
	return (&JSONDecoder{}).Decode(bytes.NewReader(data))
}
