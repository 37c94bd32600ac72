package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pandapunten/apiserver/internal/storage"
	"github.com/pandapunten/apiserver/types"
)

const jsonContentType = "application/json"

// ObjectBackend is the subset of storage.ObjectStorage the collection needs.
type ObjectBackend interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// ObjectCollection keeps the collection as one JSON object in a bucket.
type ObjectCollection struct {
	backend ObjectBackend
	key     string
}

func NewObjectCollection(backend ObjectBackend, key string) *ObjectCollection {
	return &ObjectCollection{backend: backend, key: key}
}

// Load fetches the object. A missing object is created holding an empty
// collection.
func (c *ObjectCollection) Load(ctx context.Context) ([]types.User, error) {
	reader, err := c.backend.Get(ctx, c.key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			if err := c.put(ctx, emptyDocument); err != nil {
				return nil, fmt.Errorf("create object %s: %w", c.key, err)
			}
			return []types.User{}, nil
		}
		return nil, fmt.Errorf("get object %s: %w", c.key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", c.key, err)
	}
	return decodeUsers(data)
}

func (c *ObjectCollection) Save(ctx context.Context, users []types.User) error {
	data, err := encodeUsers(users)
	if err != nil {
		return err
	}
	if err := c.put(ctx, data); err != nil {
		return fmt.Errorf("put object %s: %w", c.key, err)
	}
	return nil
}

func (c *ObjectCollection) put(ctx context.Context, data []byte) error {
	return c.backend.Put(ctx, c.key, bytes.NewReader(data), int64(len(data)), jsonContentType)
}
