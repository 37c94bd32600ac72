package store

import (
	"context"

	"github.com/pandapunten/apiserver/types"
	"github.com/sirupsen/logrus"
)

// Forgiving wraps a Collection so that storage failures never reach callers:
// load failures are logged and read as an empty collection, save failures
// are logged and dropped.
//
// A failed load followed by a successful save overwrites whatever the
// backend held. That matches the degrade-silently mode; use the wrapped
// collection directly to fail loudly instead.
type Forgiving struct {
	next Collection
	log  logrus.FieldLogger
}

func NewForgiving(next Collection, log logrus.FieldLogger) *Forgiving {
	return &Forgiving{next: next, log: log}
}

func (f *Forgiving) Load(ctx context.Context) ([]types.User, error) {
	users, err := f.next.Load(ctx)
	if err != nil {
		f.log.WithError(err).Error("failed to load users, continuing with an empty collection")
		return []types.User{}, nil
	}
	return users, nil
}

func (f *Forgiving) Save(ctx context.Context, users []types.User) error {
	if err := f.next.Save(ctx, users); err != nil {
		f.log.WithError(err).WithField("users", len(users)).Error("failed to save users")
	}
	return nil
}
