// Package blob abstracts the external object store that holds attachment
// bytes. The engine only keeps the returned URL.
package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store is the blob-store collaborator.
type Store interface {
	Put(ctx context.Context, fileName string, r io.Reader) (url string, size int64, err error)
}

// DiskStore writes blobs under a local directory and returns URLs below a
// configured base path. Stands in for the platform object store in
// single-node deployments.
type DiskStore struct {
	dir     string
	baseURL string
}

// NewDiskStore builds a disk-backed store, creating the directory if needed.
func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *DiskStore) Put(ctx context.Context, fileName string, r io.Reader) (string, int64, error) {
	key := uuid.NewString() + "-" + sanitize(fileName)
	path := filepath.Join(s.dir, key)

	f, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		_ = os.Remove(path)
		return "", 0, err
	}
	return s.baseURL + "/" + key, size, nil
}

func sanitize(name string) string {
	name = filepath.Base(name)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
