package services

import (
	"context"
	"sync"
	"time"

	"github.com/pandapunten/apiserver/internal/points"
	"github.com/pandapunten/apiserver/internal/store"
	"github.com/pandapunten/apiserver/types"
	"github.com/sirupsen/logrus"
)

// UserService encapsulates user use-cases over a full-collection store.
//
// Mutations hold mu across load, modify and save, so requests served by one
// process never lose each other's writes. Separate processes sharing the
// same backing document are not coordinated and the last writer wins.
type UserService struct {
	repo   store.Collection
	events *EventPublisher
	log    logrus.FieldLogger
	now    func() time.Time
	token  func() (string, error)

	mu sync.Mutex
}

type UserServiceOption func(*UserService)

// WithEvents publishes a UserEvent after each persisted mutation.
func WithEvents(events *EventPublisher) UserServiceOption {
	return func(s *UserService) { s.events = events }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) UserServiceOption {
	return func(s *UserService) { s.now = now }
}

// WithTokenGenerator overrides how new user tokens are produced.
func WithTokenGenerator(gen func() (string, error)) UserServiceOption {
	return func(s *UserService) { s.token = gen }
}

func NewUserService(repo store.Collection, log logrus.FieldLogger, opts ...UserServiceOption) *UserService {
	s := &UserService{
		repo:  repo,
		log:   log,
		now:   time.Now,
		token: NewToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every user with points computed against the current time.
// Points are not written back.
func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	users, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range users {
		users[i].Points = points.For(users[i].LastReset, now)
	}
	return users, nil
}

// Create appends a user with a fresh token. A nil startDate means now.
func (s *UserService) Create(ctx context.Context, name string, startDate *time.Time) (types.User, error) {
	token, err := s.token()
	if err != nil {
		return types.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.repo.Load(ctx)
	if err != nil {
		return types.User{}, err
	}

	now := s.now()
	lastReset := now
	if startDate != nil {
		lastReset = *startDate
	}

	user := types.User{
		Name:      name,
		Token:     token,
		LastReset: lastReset,
	}
	users = append(users, user)
	if err := s.repo.Save(ctx, users); err != nil {
		return types.User{}, err
	}

	user.Points = points.For(user.LastReset, now)
	s.log.WithField("name", user.Name).Info("user created")
	s.publish(ctx, types.EventUserCreated, user, now)
	return user, nil
}

// Delete removes the first user holding token and returns it.
func (s *UserService) Delete(ctx context.Context, token string) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.repo.Load(ctx)
	if err != nil {
		return types.User{}, err
	}

	idx := indexOfToken(users, token)
	if idx < 0 {
		return types.User{}, store.ErrNotFound
	}

	removed := users[idx]
	users = append(users[:idx], users[idx+1:]...)
	if err := s.repo.Save(ctx, users); err != nil {
		return types.User{}, err
	}

	now := s.now()
	removed.Points = points.For(removed.LastReset, now)
	s.log.WithField("name", removed.Name).Info("user deleted")
	s.publish(ctx, types.EventUserDeleted, removed, now)
	return removed, nil
}

// AdjustResetDate overwrites the user's last reset with an arbitrary
// instant, future dates included.
func (s *UserService) AdjustResetDate(ctx context.Context, token string, newDate time.Time) (types.User, error) {
	return s.setLastReset(ctx, token, func(time.Time) time.Time { return newDate }, types.EventUserResetDateAdjusted)
}

// SelfReset sets the user's last reset to now.
func (s *UserService) SelfReset(ctx context.Context, token string) (types.User, error) {
	return s.setLastReset(ctx, token, func(now time.Time) time.Time { return now }, types.EventUserReset)
}

func (s *UserService) setLastReset(ctx context.Context, token string, next func(now time.Time) time.Time, eventType string) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.repo.Load(ctx)
	if err != nil {
		return types.User{}, err
	}

	idx := indexOfToken(users, token)
	if idx < 0 {
		return types.User{}, store.ErrNotFound
	}

	now := s.now()
	users[idx].LastReset = next(now)
	if err := s.repo.Save(ctx, users); err != nil {
		return types.User{}, err
	}

	user := users[idx]
	user.Points = points.For(user.LastReset, now)
	s.log.WithFields(logrus.Fields{
		"name":       user.Name,
		"last_reset": user.LastReset.Format(time.RFC3339),
		"event":      eventType,
	}).Info("user reset date changed")
	s.publish(ctx, eventType, user, now)
	return user, nil
}

func (s *UserService) publish(ctx context.Context, eventType string, user types.User, now time.Time) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, eventType, user, now)
}

func indexOfToken(users []types.User, token string) int {
	for i, u := range users {
		if u.Token == token {
			return i
		}
	}
	return -1
}
