package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pandapunten/apiserver/types"
)

// Collection loads and saves the whole user collection at once.
// There are no partial updates: every mutation rewrites everything.
type Collection interface {
	Load(ctx context.Context) ([]types.User, error)
	Save(ctx context.Context, users []types.User) error
}

// record is the persisted shape of a user. Points are derived, so they are
// not part of it; a legacy "pandapunten" field is ignored on decode.
type record struct {
	Name      string    `json:"name"`
	Token     string    `json:"token"`
	LastReset time.Time `json:"last_reset"`
}

var emptyDocument = []byte("[]")

func encodeUsers(users []types.User) ([]byte, error) {
	records := make([]record, 0, len(users))
	for _, u := range users {
		records = append(records, record{Name: u.Name, Token: u.Token, LastReset: u.LastReset})
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode users: %w", err)
	}
	return data, nil
}

func decodeUsers(data []byte) ([]types.User, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []types.User{}, nil
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	users := make([]types.User, 0, len(records))
	for _, r := range records {
		users = append(users, types.User{Name: r.Name, Token: r.Token, LastReset: r.LastReset})
	}
	return users, nil
}

func cloneUsers(users []types.User) []types.User {
	out := make([]types.User, len(users))
	copy(out, users)
	return out
}
