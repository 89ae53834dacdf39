// Package blob stores raw recording payloads outside the catalog database.
//
// Payloads are addressed by content hash, so writing the same file twice is
// idempotent. Two backends are available: a local directory tree and any
// S3-compatible object store. Both hold bytes produced by Codec, which
// zstd-compresses payloads when enabled and transparently decodes either form.
package blob

import (
	"context"
	"fmt"
	"strings"

	"recbase/internal/config"
	"recbase/internal/services"
)

// Store persists opaque payloads by key.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Key returns the storage key of a content hash: a two-character shard
// directory followed by the hash.
func Key(hash string) string {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if len(hash) < 3 {
		return hash
	}
	return hash[:2] + "/" + hash
}

// Open constructs the configured backend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Blob.Backend {
	case config.BlobBackendS3:
		return NewS3(ctx, S3Options{
			Endpoint:        cfg.Blob.Host,
			Bucket:          cfg.Blob.Bucket,
			Region:          cfg.Blob.Region,
			Prefix:          cfg.Blob.Path,
			AccessKeyID:     cfg.Blob.AccessKeyID,
			SecretAccessKey: cfg.Blob.SecretAccessKey,
		})
	case config.BlobBackendFS, "":
		return NewFS(cfg.Blob.Path)
	default:
		return nil, services.Wrap(services.ErrConfiguration, services.StageBlob, "open", fmt.Sprintf("unsupported backend %q", cfg.Blob.Backend), nil)
	}
}

func notFound(key string) error {
	return services.Wrap(services.ErrNotFound, services.StageBlob, "get", key, nil)
}
