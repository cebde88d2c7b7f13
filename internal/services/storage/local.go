// Package storage keeps uploaded files on the local filesystem.
// It backs the built-in upload service and the /files/:key route.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidKey is returned for keys that would escape the storage root.
var ErrInvalidKey = errors.New("invalid storage key")

// Object describes a stored file.
type Object struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Local stores files under a single directory, one file per key.
type Local struct {
	basePath string
}

// NewLocal creates the storage directory if needed.
func NewLocal(basePath string) (*Local, error) {
	if basePath == "" {
		basePath = "./data/uploads"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Local{basePath: basePath}, nil
}

// Save writes data under key, replacing any existing file. A failed write
// leaves no file behind.
func (s *Local) Save(_ context.Context, key string, data io.Reader) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(f, data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

// Open returns a reader for key. The caller must close it.
func (s *Local) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Local) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// List returns every stored object.
func (s *Local) List(_ context.Context) ([]Object, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("list storage dir: %w", err)
	}

	objects := make([]Object, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // removed between ReadDir and Info
		}
		objects = append(objects, Object{Key: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	return objects, nil
}

// Path returns the on-disk path for key, for serving with c.File.
func (s *Local) Path(key string) (string, error) {
	return s.path(key)
}

func (s *Local) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.basePath, key), nil
}

// FilesRoute is the URL path prefix under which stored files are served.
const FilesRoute = "/files/"

// PublicURL builds the public URL for key.
func PublicURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + FilesRoute + key
}

// KeyFromURL extracts the storage key from a URL produced by PublicURL.
// ok is false for URLs that point anywhere else.
func KeyFromURL(baseURL, url string) (key string, ok bool) {
	prefix := strings.TrimRight(baseURL, "/") + FilesRoute
	if baseURL == "" || !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key = strings.TrimPrefix(url, prefix)
	if key == "" || key != filepath.Base(key) {
		return "", false
	}
	return key, true
}
