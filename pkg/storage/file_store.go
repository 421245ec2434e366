package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileStore saves uploaded media to disk under a base directory. References
// it returns are paths below publicPrefix, served by the HTTP layer as
// static files.
type FileStore struct {
	basePath     string
	publicPrefix string
}

// NewFileStore creates the base directory if missing.
func NewFileStore(basePath, publicPrefix string) (*FileStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	publicPrefix = strings.TrimSuffix(publicPrefix, "/")
	if publicPrefix == "" {
		publicPrefix = "/uploads"
	}
	return &FileStore{basePath: basePath, publicPrefix: publicPrefix}, nil
}

// BasePath returns the directory uploads live in, for static serving.
func (f *FileStore) BasePath() string {
	return f.basePath
}

// Save writes the blob under key and returns its public reference.
func (f *FileStore) Save(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	key = cleanKey(key)
	if key == "" {
		return "", fmt.Errorf("storage key is required")
	}
	target := filepath.Join(f.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return f.publicPrefix + "/" + key, nil
}

// Delete removes a stored blob. Missing files are not an error.
func (f *FileStore) Delete(_ context.Context, key string) error {
	key = cleanKey(key)
	if key == "" {
		return nil
	}
	err := os.Remove(filepath.Join(f.basePath, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// cleanKey normalizes a storage key and rejects traversal outside the base.
func cleanKey(key string) string {
	key = path.Clean(strings.TrimPrefix(key, "/"))
	if key == "." || strings.HasPrefix(key, "..") {
		return ""
	}
	return key
}
