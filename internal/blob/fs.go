package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"recbase/internal/services"
)

// FSStore keeps payloads under a root directory.
type FSStore struct {
	root string
}

// NewFS creates the root directory when missing.
func NewFS(root string) (*FSStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, services.Wrap(services.ErrConfiguration, services.StageBlob, "open", "blob path is empty", nil)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, services.Wrap(services.ErrStorageUnavailable, services.StageBlob, "open", root, err)
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", services.Wrap(services.ErrValidation, services.StageBlob, "key", fmt.Sprintf("invalid key %q", key), nil)
	}
	return filepath.Join(s.root, clean), nil
}

// Put writes data atomically: a temp file in the target directory is renamed
// into place.
func (s *FSStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.path(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrStorageUnavailable, services.StageBlob, "put", key, err)
	}
	tmp, err := os.CreateTemp(dir, ".blob-*")
	if err != nil {
		return services.Wrap(services.ErrStorageUnavailable, services.StageBlob, "put", key, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return services.Wrap(services.ErrStorageUnavailable, services.StageBlob, "put", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return services.Wrap(services.ErrStorageUnavailable, services.StageBlob, "put", key, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return services.Wrap(services.ErrStorageUnavailable, services.StageBlob, "put", key, err)
	}
	return nil
}

// Get reads a payload.
func (s *FSStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStorageUnavailable, services.StageBlob, "get", key, err)
	}
	return data, nil
}

// Delete removes a payload. Missing keys are not an error.
func (s *FSStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return services.Wrap(services.ErrStorageUnavailable, services.StageBlob, "delete", key, err)
	}
	_ = os.Remove(filepath.Dir(target)) // only succeeds when the shard is empty
	return nil
}
