package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/pandapunten/apiserver/config"
	"github.com/pandapunten/apiserver/internal/auth"
	"github.com/pandapunten/apiserver/internal/backup"
	"github.com/pandapunten/apiserver/internal/db"
	"github.com/pandapunten/apiserver/internal/handlers"
	"github.com/pandapunten/apiserver/internal/mq"
	"github.com/pandapunten/apiserver/internal/services"
	"github.com/pandapunten/apiserver/internal/storage"
	"github.com/pandapunten/apiserver/internal/store"
	"github.com/sirupsen/logrus"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        logrus.FieldLogger
	scheduler  *backup.Scheduler
	closers    []func() error
}

// New constructs a Server with basic middleware and defaults. Everything
// opened here is released by Shutdown, or immediately when New fails.
func New(ctx context.Context, cfg config.Config, log *logrus.Logger) (srv *Server, err error) {
	s := &Server{log: log}
	defer func() {
		if err != nil {
			s.close()
		}
	}()

	guard, err := auth.NewGuard(cfg.Admin.Token, cfg.Admin.TokenHash)
	if err != nil {
		return nil, err
	}
	var sessions *auth.Sessions
	if cfg.Admin.SessionSecret != "" {
		sessions = auth.NewSessions(cfg.Admin.SessionSecret, cfg.Admin.SessionTTL)
	}

	collection, closeCollection, err := OpenCollection(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, closeCollection)

	repo := collection
	if !cfg.Storage.Strict {
		repo = store.NewForgiving(collection, log)
	}

	opts := []services.UserServiceOption{}
	broker, err := mq.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open mq: %w", err)
	}
	if broker != nil {
		s.closers = append(s.closers, broker.Close)
		opts = append(opts, services.WithEvents(services.NewEventPublisher(broker, cfg.MQ.Channel, log)))
	}
	userService := services.NewUserService(repo, log, opts...)

	if cfg.Backup.Schedule != "" {
		scheduler, closeBackup, err := newBackupScheduler(ctx, cfg, collection, log)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, closeBackup)
		s.scheduler = scheduler
	}

	s.router = NewRouter(userService, handlers.NewAdminHandler(guard, sessions), log)
	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.WithFields(logrus.Fields{
		"storage":  storageName(cfg),
		"strict":   cfg.Storage.Strict,
		"events":   broker != nil,
		"sessions": sessions != nil,
		"backup":   s.scheduler != nil,
	}).Info("server configured")

	return s, nil
}

// NewRouter builds the HTTP routes around an already constructed service.
func NewRouter(userService *services.UserService, admin *handlers.AdminHandler, log logrus.FieldLogger) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: log, NoColor: true}),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", handlers.AdminTokenHeader},
			MaxAge:         300,
		}),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		handlers.UserRouter(r, userService, admin)
		r.Route("/admin", func(r chi.Router) {
			handlers.AdminRouter(r, admin)
		})
	})
	return router
}

// OpenCollection opens the backend named by cfg.Storage.Backend. The
// returned func releases its connections.
func OpenCollection(ctx context.Context, cfg config.Config) (store.Collection, func() error, error) {
	noop := func() error { return nil }

	switch backend := storageName(cfg); backend {
	case "file":
		return store.NewFileCollection(cfg.Storage.DataFile), noop, nil
	case "memory":
		return store.NewMemoryCollection(), noop, nil
	case "postgres":
		conn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return store.NewPostgresCollection(conn), conn.Close, nil
	case "minio", "gcs", "s3":
		obj, err := storage.Open(ctx, backend, cfg)
		if err != nil {
			return nil, nil, err
		}
		return store.NewObjectCollection(obj, cfg.Storage.ObjectKey), closerFor(obj), nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// OpenBackupJob opens the backup target and returns a job reading from
// collection.
func OpenBackupJob(ctx context.Context, cfg config.Config, collection store.Collection, log logrus.FieldLogger) (*backup.Job, func() error, error) {
	if strings.TrimSpace(cfg.Backup.Backend) == "" {
		return nil, nil, errors.New("BACKUP_BACKEND is required for backups")
	}
	obj, err := storage.Open(ctx, cfg.Backup.Backend, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open backup storage: %w", err)
	}
	return backup.NewJob(collection, obj, cfg.Backup.Prefix, log), closerFor(obj), nil
}

func newBackupScheduler(ctx context.Context, cfg config.Config, collection store.Collection, log logrus.FieldLogger) (*backup.Scheduler, func() error, error) {
	job, closeJob, err := OpenBackupJob(ctx, cfg, collection, log)
	if err != nil {
		return nil, nil, err
	}
	scheduler, err := backup.NewScheduler(cfg.Backup.Schedule, job)
	if err != nil {
		_ = closeJob()
		return nil, nil, err
	}
	return scheduler, closeJob, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	if s.scheduler != nil {
		s.scheduler.Start()
	}
	s.log.WithField("addr", s.httpServer.Addr).Info("listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones until ctx
// expires, then releases storage and broker connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.scheduler != nil {
		s.scheduler.Stop(ctx)
	}
	s.close()
	return err
}

func (s *Server) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.log.WithError(err).Warn("close failed")
		}
	}
	s.closers = nil
}

func storageName(cfg config.Config) string {
	backend := strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if backend == "" {
		return "file"
	}
	return backend
}

func closerFor(v any) func() error {
	if c, ok := v.(io.Closer); ok {
		return c.Close
	}
	return func() error { return nil }
}
