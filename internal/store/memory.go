package store

import (
	"context"
	"sync"

	"github.com/pandapunten/apiserver/types"
)

// MemoryCollection keeps the collection in process memory.
type MemoryCollection struct {
	mu    sync.Mutex
	users []types.User
	saves int
}

func NewMemoryCollection(users ...types.User) *MemoryCollection {
	return &MemoryCollection{users: cloneUsers(users)}
}

func (c *MemoryCollection) Load(ctx context.Context) ([]types.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneUsers(c.users), nil
}

func (c *MemoryCollection) Save(ctx context.Context, users []types.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = cloneUsers(users)
	c.saves++
	return nil
}

// Saves reports how many times Save has been called.
func (c *MemoryCollection) Saves() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}
