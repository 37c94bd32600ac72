package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pandapunten/apiserver/types"
)

// FileCollection keeps the collection in a single JSON file.
type FileCollection struct {
	path string
}

func NewFileCollection(path string) *FileCollection {
	return &FileCollection{path: path}
}

// Path returns the backing file location.
func (c *FileCollection) Path() string {
	return c.path
}

// Load reads the file. A missing file is created holding an empty collection.
func (c *FileCollection) Load(ctx context.Context) ([]types.User, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if err := c.write(emptyDocument); err != nil {
				return nil, fmt.Errorf("create %s: %w", c.path, err)
			}
			return []types.User{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", c.path, err)
	}
	return decodeUsers(data)
}

// Save replaces the file contents with the given collection.
func (c *FileCollection) Save(ctx context.Context, users []types.User) error {
	data, err := encodeUsers(users)
	if err != nil {
		return err
	}
	if err := c.write(data); err != nil {
		return fmt.Errorf("write %s: %w", c.path, err)
	}
	return nil
}

// write goes through a temporary file in the same directory and renames it
// into place, so readers see either the old or the new document.
func (c *FileCollection) write(data []byte) error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(c.path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
