package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/pandapunten/apiserver/internal/logging"
	"github.com/pandapunten/apiserver/internal/store"
	"github.com/pandapunten/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (f *fakeObjects) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeObjects) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("missing")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type failingCollection struct{}

func (failingCollection) Load(ctx context.Context) ([]types.User, error) {
	return nil, errors.New("disk on fire")
}

func (failingCollection) Save(ctx context.Context, users []types.User) error {
	return nil
}

func TestJob_Key(t *testing.T) {
	at := time.Date(2024, time.March, 5, 7, 8, 9, 0, time.FixedZone("CET", 3600))

	job := NewJob(store.NewMemoryCollection(), newFakeObjects(), "backups/", logging.Discard())
	assert.Equal(t, "backups/20240305T060809Z.json", job.Key(at))

	job = NewJob(store.NewMemoryCollection(), newFakeObjects(), "snapshots", logging.Discard())
	assert.Equal(t, "snapshots/20240305T060809Z.json", job.Key(at))

	job = NewJob(store.NewMemoryCollection(), newFakeObjects(), "", logging.Discard())
	assert.Equal(t, "20240305T060809Z.json", job.Key(at))
}

func TestJob_RunOnce(t *testing.T) {
	lastReset := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	source := store.NewMemoryCollection(types.User{Name: "Alice", Token: "t1", LastReset: lastReset})
	objects := newFakeObjects()

	job := NewJob(source, objects, "backups/", logging.Discard())
	job.now = func() time.Time { return time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC) }

	key, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "backups/20240601T120000Z.json", key)

	var saved []map[string]any
	require.NoError(t, json.Unmarshal(objects.objects[key], &saved))
	require.Len(t, saved, 1)
	assert.Equal(t, "Alice", saved[0]["name"])
	assert.Equal(t, "t1", saved[0]["token"])
	assert.NotContains(t, saved[0], "pandapunten")
}

func TestJob_RunOnceErrors(t *testing.T) {
	_, err := NewJob(failingCollection{}, newFakeObjects(), "b/", logging.Discard()).RunOnce(context.Background())
	require.ErrorContains(t, err, "disk on fire")

	objects := newFakeObjects()
	objects.putErr = errors.New("bucket gone")
	_, err = NewJob(store.NewMemoryCollection(), objects, "b/", logging.Discard()).RunOnce(context.Background())
	require.ErrorContains(t, err, "bucket gone")
}

func TestNewScheduler(t *testing.T) {
	job := NewJob(store.NewMemoryCollection(), newFakeObjects(), "b/", logging.Discard())

	for _, schedule := range []string{"0 3 * * *", "@daily", "@every 6h"} {
		s, err := NewScheduler(schedule, job)
		require.NoError(t, err, schedule)
		s.Start()
		s.Stop(context.Background())
	}

	_, err := NewScheduler("every tuesday", job)
	require.Error(t, err)
}
