package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirStore keeps uploaded artifacts under a local directory. The server uses
// it when no remote object store is configured.
type DirStore struct {
	Root string
	// BaseURL is where Root is served from, e.g. "/artifacts".
	BaseURL string
}

// PutObject writes data to Root/key.
func (d *DirStore) PutObject(ctx context.Context, key, contentType string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", key, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// path maps key under Root, refusing keys that would escape it.
func (d *DirStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	if clean == string(filepath.Separator) || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(d.Root, clean), nil
}

// PublicURL returns the address key is served from.
func (d *DirStore) PublicURL(key string) string {
	return strings.TrimRight(d.BaseURL, "/") + "/" + strings.TrimLeft(key, "/")
}
