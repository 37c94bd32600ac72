package backup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pandapunten/apiserver/internal/store"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	keyTimeLayout  = "20060102T150405Z"
	defaultTimeout = 30 * time.Second
)

// Job copies the current user collection into object storage, one object
// per run.
type Job struct {
	source  store.Collection
	backend store.ObjectBackend
	prefix  string
	log     logrus.FieldLogger
	now     func() time.Time
	timeout time.Duration
}

func NewJob(source store.Collection, backend store.ObjectBackend, prefix string, log logrus.FieldLogger) *Job {
	return &Job{
		source:  source,
		backend: backend,
		prefix:  prefix,
		log:     log,
		now:     time.Now,
		timeout: defaultTimeout,
	}
}

// Key returns the object key a run at t writes to.
func (j *Job) Key(t time.Time) string {
	prefix := j.prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + t.UTC().Format(keyTimeLayout) + ".json"
}

// RunOnce writes one snapshot and returns its key.
func (j *Job) RunOnce(ctx context.Context) (string, error) {
	users, err := j.source.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load users: %w", err)
	}

	key := j.Key(j.now())
	if err := store.NewObjectCollection(j.backend, key).Save(ctx, users); err != nil {
		return "", err
	}

	j.log.WithFields(logrus.Fields{"key": key, "users": len(users)}).Info("backup written")
	return key, nil
}

// Run implements cron.Job.
func (j *Job) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	if _, err := j.RunOnce(ctx); err != nil {
		j.log.WithError(err).Error("backup failed")
	}
}

// Scheduler runs a Job on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler parses schedule as a standard five-field cron expression or a
// descriptor such as "@daily" or "@every 6h".
func NewScheduler(schedule string, job *Job) (*Scheduler, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddJob(schedule, job); err != nil {
		return nil, fmt.Errorf("invalid backup schedule %q: %w", schedule, err)
	}
	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running backup to finish or ctx
// to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
