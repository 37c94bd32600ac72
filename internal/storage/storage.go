package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pandapunten/apiserver/config"
)

// ErrObjectNotFound is returned by Get when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Open constructs the named backend (minio, gcs or s3) and makes sure its
// bucket exists.
func Open(ctx context.Context, backend string, cfg config.Config) (ObjectStorage, error) {
	var (
		obj ObjectStorage
		err error
	)

	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "minio":
		obj, err = NewMinioClient(cfg.Minio)
	case "gcs":
		obj, err = NewGCSClient(ctx, cfg.GCS)
	case "s3":
		obj, err = NewS3Client(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown object storage backend %q", backend)
	}
	if err != nil {
		return nil, err
	}

	if err := obj.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", obj.Bucket(), err)
	}
	return obj, nil
}
