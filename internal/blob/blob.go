// Package blob is a small content-addressed file store for original uploads
// and generated error reports. Keys are xxh3 hashes of the content plus the
// original extension, so re-uploading the same file costs nothing and a key
// recorded on an import run always resolves to the exact bytes of that run.
package blob

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/xxh3"
)

// Store persists blobs under a single directory.
type Store struct {
	dir string
}

// NewStore creates the backing directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Put stores content and returns its key. The key embeds the lowercased
// extension of name so reports and spreadsheets stay distinguishable on disk.
func (s *Store) Put(name string, content []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	key := fmt.Sprintf("%016x%s", xxh3.Hash(content), ext)

	path := filepath.Join(s.dir, key)
	if _, err := os.Stat(path); err == nil {
		return key, nil // already stored; content-addressed keys never collide on different bytes
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("publish blob: %w", err)
	}
	return key, nil
}

// PutReader drains r into the store.
func (s *Store) PutReader(name string, r io.Reader) (string, []byte, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	key, err := s.Put(name, content)
	return key, content, err
}

// Open returns the content of a stored blob.
func (s *Store) Open(key string) (io.ReadCloser, error) {
	if key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return nil, fmt.Errorf("malformed blob key %q", key)
	}
	return os.Open(filepath.Join(s.dir, key))
}
